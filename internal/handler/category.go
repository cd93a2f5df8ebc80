package handler

import (
	"net/http"

	"finance-ledger/internal/ledger"
	"finance-ledger/internal/models"
	"finance-ledger/internal/util"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	Ledger *ledger.Service
}

func NewCategoryHandler(svc *ledger.Service) *CategoryHandler {
	return &CategoryHandler{Ledger: svc}
}

type categoryReq struct {
	Name        string `json:"name" binding:"required,max=100"`
	Type        string `json:"type" binding:"required,oneof=income expense"`
	Description string `json:"description" binding:"max=500"`
}

// List accepts ?type=income|expense.
func (h *CategoryHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	typ := models.CategoryType(c.Query("type"))
	if typ != "" && typ != models.CategoryIncome && typ != models.CategoryExpense {
		util.FieldError(c, "type", "must be income or expense")
		return
	}
	cats, err := h.Ledger.ListCategories(c.Request.Context(), user.ID, typ)
	if err != nil {
		fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(cats))
	for i := range cats {
		items = append(items, categoryView(&cats[i]))
	}
	util.Success(c, util.Response{"items": items})
}

func (h *CategoryHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req categoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	cat, err := h.Ledger.CreateCategory(c.Request.Context(), user.ID, ledger.CategoryInput{
		Name:        req.Name,
		Type:        models.CategoryType(req.Type),
		Description: req.Description,
	})
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"category": categoryView(cat)})
}

func (h *CategoryHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	cat, err := h.Ledger.GetCategory(c.Request.Context(), user.ID, id)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"category": categoryView(cat)})
}

func (h *CategoryHandler) Update(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req categoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	cat, err := h.Ledger.UpdateCategory(c.Request.Context(), user.ID, id, ledger.CategoryInput{
		Name:        req.Name,
		Type:        models.CategoryType(req.Type),
		Description: req.Description,
	})
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"category": categoryView(cat)})
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Ledger.DeleteCategory(c.Request.Context(), user.ID, id); err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"message": "category deleted"})
}
