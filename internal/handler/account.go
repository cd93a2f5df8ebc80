package handler

import (
	"net/http"

	"finance-ledger/internal/ledger"
	"finance-ledger/internal/models"
	"finance-ledger/internal/util"

	"github.com/gin-gonic/gin"
)

// AccountHandler serves bank accounts and their balance history.
type AccountHandler struct {
	Ledger *ledger.Service
}

func NewAccountHandler(svc *ledger.Service) *AccountHandler {
	return &AccountHandler{Ledger: svc}
}

type createAccountReq struct {
	Name           string `json:"name" binding:"required,max=100"`
	Type           string `json:"type" binding:"required"`
	OpeningBalance string `json:"opening_balance"`
	SetupDate      string `json:"setup_date"`
	BankName       string `json:"bank_name" binding:"max=100"`
	AccountNumber  string `json:"account_number" binding:"max=50"`
}

type updateAccountReq struct {
	Name           *string `json:"name" binding:"omitempty,max=100"`
	Type           *string `json:"type"`
	OpeningBalance *string `json:"opening_balance"`
	BankName       *string `json:"bank_name" binding:"omitempty,max=100"`
	AccountNumber  *string `json:"account_number" binding:"omitempty,max=50"`
	IsActive       *bool   `json:"is_active"`
}

func (h *AccountHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	accounts, err := h.Ledger.ListAccounts(c.Request.Context(), user.ID, c.Query("include_inactive") == "true")
	if err != nil {
		fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(accounts))
	var total int64
	for i := range accounts {
		items = append(items, accountView(&accounts[i]))
		total += accounts[i].Balance
	}
	util.Success(c, util.Response{
		"items":         items,
		"total_balance": util.FormatAmount(total),
	})
}

func (h *AccountHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req createAccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}

	in := ledger.AccountInput{
		Name:          req.Name,
		Type:          models.AccountType(req.Type),
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
	}
	if req.OpeningBalance != "" {
		if in.OpeningBalance, ok = parseAmountField(c, "opening_balance", req.OpeningBalance); !ok {
			return
		}
	}
	if in.SetupDate, ok = parseDateField(c, "setup_date", req.SetupDate, util.Today()); !ok {
		return
	}

	acct, err := h.Ledger.CreateAccount(c.Request.Context(), user.ID, in)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"account": accountView(acct)})
}

func (h *AccountHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	acct, err := h.Ledger.GetAccount(c.Request.Context(), user.ID, id)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"account": accountView(acct)})
}

func (h *AccountHandler) Update(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req updateAccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}

	in := ledger.AccountUpdate{
		Name:          req.Name,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		IsActive:      req.IsActive,
	}
	if req.Type != nil {
		t := models.AccountType(*req.Type)
		in.Type = &t
	}
	if req.OpeningBalance != nil {
		ob, ok := parseAmountField(c, "opening_balance", *req.OpeningBalance)
		if !ok {
			return
		}
		in.OpeningBalance = &ob
	}

	acct, err := h.Ledger.UpdateAccount(c.Request.Context(), user.ID, id, in)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"account": accountView(acct)})
}

func (h *AccountHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Ledger.DeleteAccount(c.Request.Context(), user.ID, id); err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"message": "account deleted"})
}

// Balance answers GET /accounts/:id/balance?date=YYYY-MM-DD (default today).
func (h *AccountHandler) Balance(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	on, ok := parseDateField(c, "date", c.Query("date"), util.Today())
	if !ok {
		return
	}
	balance, err := h.Ledger.BalanceAsOf(c.Request.Context(), user.ID, id, on)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{
		"account_id":    id,
		"date":          dateString(on),
		"balance":       util.FormatAmount(balance),
		"balance_cents": balance,
	})
}

// Daily answers GET /accounts/:id/daily?from=&to=; the range defaults to
// the last 30 days.
func (h *AccountHandler) Daily(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	to, ok := parseDateField(c, "to", c.Query("to"), util.Today())
	if !ok {
		return
	}
	from, ok := parseDateField(c, "from", c.Query("from"), to.AddDate(0, 0, -29))
	if !ok {
		return
	}

	points, err := h.Ledger.DailyBalances(c.Request.Context(), user.ID, id, from, to)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"account_id": id, "items": pointsView(points)})
}
