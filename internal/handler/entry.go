package handler

import (
	"net/http"

	"finance-ledger/internal/ledger"
	"finance-ledger/internal/models"
	"finance-ledger/internal/util"

	"github.com/gin-gonic/gin"
)

// EntryHandler serves either incomes or expenses, depending on Kind.
type EntryHandler struct {
	Ledger   *ledger.Service
	Kind     models.Kind
	PageSize int
}

func NewEntryHandler(svc *ledger.Service, kind models.Kind, pageSize int) *EntryHandler {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &EntryHandler{Ledger: svc, Kind: kind, PageSize: pageSize}
}

type entryReq struct {
	AccountID   *uint    `json:"account_id" binding:"required"`
	CategoryID  *uint    `json:"category_id"`
	Amount      string   `json:"amount" binding:"required"`
	Description string   `json:"description" binding:"max=1000"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags" binding:"max=20"`
}

type bulkDeleteReq struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}

type bulkTagReq struct {
	IDs    []uint `json:"ids" binding:"required,min=1"`
	TagIDs []uint `json:"tag_ids" binding:"required,min=1"`
	Remove bool   `json:"remove"`
}

func (h *EntryHandler) bind(c *gin.Context) (ledger.TxnInput, bool) {
	var req entryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return ledger.TxnInput{}, false
	}
	amount, ok := parseAmountField(c, "amount", req.Amount)
	if !ok {
		return ledger.TxnInput{}, false
	}
	on, ok := parseDateField(c, "date", req.Date, util.Today())
	if !ok {
		return ledger.TxnInput{}, false
	}
	return ledger.TxnInput{
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Amount:      amount,
		Description: req.Description,
		Date:        on,
		Tags:        req.Tags,
	}, true
}

func (h *EntryHandler) key() string {
	if h.Kind == models.KindIncome {
		return "income"
	}
	return "expense"
}

func (h *EntryHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	in, ok := h.bind(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if h.Kind == models.KindIncome {
		row, err := h.Ledger.CreateIncome(ctx, user.ID, in)
		if err != nil {
			fail(c, err)
			return
		}
		util.Success(c, util.Response{h.key(): incomeView(row)})
		return
	}
	row, err := h.Ledger.CreateExpense(ctx, user.ID, in)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{h.key(): expenseView(row)})
}

func (h *EntryHandler) Update(c *gin.Context) {
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
	ctx := c.Request.Context()
	if h.Kind == models.KindIncome {
		row, err := h.Ledger.UpdateIncome(ctx, user.ID, id, in)
		if err != nil {
			fail(c, err)
			return
		}
		util.Success(c, util.Response{h.key(): incomeView(row)})
		return
	}
	row, err := h.Ledger.UpdateExpense(ctx, user.ID, id, in)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{h.key(): expenseView(row)})
}

func (h *EntryHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var err error
	if h.Kind == models.KindIncome {
		err = h.Ledger.DeleteIncome(c.Request.Context(), user.ID, id)
	} else {
		err = h.Ledger.DeleteExpense(c.Request.Context(), user.ID, id)
	}
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"message": h.key() + " deleted"})
}

func (h *EntryHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if h.Kind == models.KindIncome {
		row, err := h.Ledger.GetIncome(ctx, user.ID, id)
		if err != nil {
			fail(c, err)
			return
		}
		util.Success(c, util.Response{h.key(): incomeView(row)})
		return
	}
	row, err := h.Ledger.GetExpense(ctx, user.ID, id)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{h.key(): expenseView(row)})
}

// List supports from, to, account_id, category_id, tags (comma separated
// ids), page and page_size.
func (h *EntryHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	f, ok := filterFromQuery(c, h.PageSize)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var (
		items []gin.H
		total int64
	)
	if h.Kind == models.KindIncome {
		rows, n, err := h.Ledger.ListIncomes(ctx, user.ID, f)
		if err != nil {
			fail(c, err)
			return
		}
		items, total = make([]gin.H, 0, len(rows)), n
		for i := range rows {
			items = append(items, incomeView(&rows[i]))
		}
	} else {
		rows, n, err := h.Ledger.ListExpenses(ctx, user.ID, f)
		if err != nil {
			fail(c, err)
			return
		}
		items, total = make([]gin.H, 0, len(rows)), n
		for i := range rows {
			items = append(items, expenseView(&rows[i]))
		}
	}

	util.Success(c, util.Response{
		"items": items,
		"total": total,
		"page":  f.Page,
		"size":  f.PageSize,
	})
}

// Clone copies an entry to ?date= (default today).
func (h *EntryHandler) Clone(c *gin.Context) {
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
	ctx := c.Request.Context()
	if h.Kind == models.KindIncome {
		row, err := h.Ledger.CloneIncome(ctx, user.ID, id, on)
		if err != nil {
			fail(c, err)
			return
		}
		util.Success(c, util.Response{h.key(): incomeView(row)})
		return
	}
	row, err := h.Ledger.CloneExpense(ctx, user.ID, id, on)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{h.key(): expenseView(row)})
}

func (h *EntryHandler) BulkDelete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req bulkDeleteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	var (
		res ledger.BulkResult
		err error
	)
	if h.Kind == models.KindIncome {
		res, err = h.Ledger.BulkDeleteIncomes(c.Request.Context(), user.ID, req.IDs)
	} else {
		res, err = h.Ledger.BulkDeleteExpenses(c.Request.Context(), user.ID, req.IDs)
	}
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"deleted": res.Deleted, "skipped": res.Skipped})
}

func (h *EntryHandler) BulkTag(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req bulkTagReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	var (
		n   int
		err error
	)
	if h.Kind == models.KindIncome {
		n, err = h.Ledger.BulkTagIncomes(c.Request.Context(), user.ID, req.IDs, req.TagIDs, req.Remove)
	} else {
		n, err = h.Ledger.BulkTagExpenses(c.Request.Context(), user.ID, req.IDs, req.TagIDs, req.Remove)
	}
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"updated": n})
}
