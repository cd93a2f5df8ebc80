package handler

import (
	"net/http"
	"strings"
	"time"

	"finance-ledger/internal/ledger"
	"finance-ledger/internal/util"

	"github.com/gin-gonic/gin"
)

type BudgetHandler struct {
	Ledger *ledger.Service
}

func NewBudgetHandler(svc *ledger.Service) *BudgetHandler {
	return &BudgetHandler{Ledger: svc}
}

type budgetReq struct {
	CategoryID uint   `json:"category_id" binding:"required"`
	Month      string `json:"month" binding:"required"`
	Amount     string `json:"amount" binding:"required"`
}

type copyBudgetsReq struct {
	Month string `json:"month" binding:"required"`
}

// monthField parses YYYY-MM; an empty value yields the current month.
func monthField(c *gin.Context, field, value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return util.MonthStart(util.Today()), true
	}
	m, err := util.ParseMonth(value)
	if err != nil {
		util.FieldError(c, field, err.Error())
		return time.Time{}, false
	}
	return m, true
}

func (h *BudgetHandler) bind(c *gin.Context) (ledger.BudgetInput, bool) {
	var req budgetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return ledger.BudgetInput{}, false
	}
	month, ok := monthField(c, "month", req.Month)
	if !ok {
		return ledger.BudgetInput{}, false
	}
	amount, ok := parseAmountField(c, "amount", req.Amount)
	if !ok {
		return ledger.BudgetInput{}, false
	}
	return ledger.BudgetInput{CategoryID: req.CategoryID, Month: month, Amount: amount}, true
}

// List returns the budgets of ?month=YYYY-MM, default the current month.
func (h *BudgetHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	month, ok := monthField(c, "month", c.Query("month"))
	if !ok {
		return
	}
	rows, err := h.Ledger.ListBudgets(c.Request.Context(), user.ID, month)
	if err != nil {
		fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(rows))
	var budgeted, spent int64
	for i := range rows {
		items = append(items, budgetView(&rows[i]))
		budgeted += rows[i].Budget.BudgetedAmount
		spent += rows[i].Spent
	}
	util.Success(c, util.Response{
		"month":          month.Format("2006-01"),
		"items":          items,
		"total_budgeted": util.FormatAmount(budgeted),
		"total_spent":    util.FormatAmount(spent),
	})
}

func (h *BudgetHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	in, ok := h.bind(c)
	if !ok {
		return
	}
	p, err := h.Ledger.CreateBudget(c.Request.Context(), user.ID, in)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"budget": budgetView(p)})
}

func (h *BudgetHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := h.Ledger.GetBudget(c.Request.Context(), user.ID, id)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"budget": budgetView(p)})
}

func (h *BudgetHandler) Update(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	in, ok := h.bind(c)
	if !ok {
		return
	}
	p, err := h.Ledger.UpdateBudget(c.Request.Context(), user.ID, id, in)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"budget": budgetView(p)})
}

func (h *BudgetHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Ledger.DeleteBudget(c.Request.Context(), user.ID, id); err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"message": "budget deleted"})
}

// CopyPrevious fills the given month with last month's budgets.
func (h *BudgetHandler) CopyPrevious(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req copyBudgetsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	month, ok := monthField(c, "month", req.Month)
	if !ok {
		return
	}
	n, err := h.Ledger.CopyPreviousBudgets(c.Request.Context(), user.ID, month)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"copied": n, "month": month.Format("2006-01")})
}
