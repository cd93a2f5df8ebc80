package handler

import (
	"net/http"

	"finance-ledger/internal/ledger"
	"finance-ledger/internal/util"

	"github.com/gin-gonic/gin"
)

type TransferHandler struct {
	Ledger   *ledger.Service
	PageSize int
}

func NewTransferHandler(svc *ledger.Service, pageSize int) *TransferHandler {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &TransferHandler{Ledger: svc, PageSize: pageSize}
}

type transferReq struct {
	FromAccountID uint   `json:"from_account_id" binding:"required"`
	ToAccountID   uint   `json:"to_account_id" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	Description   string `json:"description" binding:"max=1000"`
	Date          string `json:"date"`
}

func (h *TransferHandler) bind(c *gin.Context) (ledger.TransferInput, bool) {
	var req transferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return ledger.TransferInput{}, false
	}
	amount, ok := parseAmountField(c, "amount", req.Amount)
	if !ok {
		return ledger.TransferInput{}, false
	}
	on, ok := parseDateField(c, "date", req.Date, util.Today())
	if !ok {
		return ledger.TransferInput{}, false
	}
	return ledger.TransferInput{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        amount,
		Description:   req.Description,
		Date:          on,
	}, true
}

func (h *TransferHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	in, ok := h.bind(c)
	if !ok {
		return
	}
	t, err := h.Ledger.CreateTransfer(c.Request.Context(), user.ID, in)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"transfer": transferView(t)})
}

func (h *TransferHandler) Update(c *gin.Context) {
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
	t, err := h.Ledger.UpdateTransfer(c.Request.Context(), user.ID, id, in)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"transfer": transferView(t)})
}

func (h *TransferHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Ledger.DeleteTransfer(c.Request.Context(), user.ID, id); err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"message": "transfer deleted"})
}

func (h *TransferHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	t, err := h.Ledger.GetTransfer(c.Request.Context(), user.ID, id)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"transfer": transferView(t)})
}

// List matches account_id against either side of the transfer.
func (h *TransferHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	f, ok := filterFromQuery(c, h.PageSize)
	if !ok {
		return
	}
	rows, total, err := h.Ledger.ListTransfers(c.Request.Context(), user.ID, f)
	if err != nil {
		fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(rows))
	for i := range rows {
		items = append(items, transferView(&rows[i]))
	}
	util.Success(c, util.Response{
		"items": items,
		"total": total,
		"page":  f.Page,
		"size":  f.PageSize,
	})
}

func (h *TransferHandler) Clone(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	on, ok := optionalDate(c, "date")
	if !ok {
		return
	}
	t, err := h.Ledger.CloneTransfer(c.Request.Context(), user.ID, id, on)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"transfer": transferView(t)})
}
