package handler

import (
	"net/http"

	"finance-ledger/internal/ledger"
	"finance-ledger/internal/util"

	"github.com/gin-gonic/gin"
)

type TagHandler struct {
	Ledger *ledger.Service
}

func NewTagHandler(svc *ledger.Service) *TagHandler {
	return &TagHandler{Ledger: svc}
}

type tagReq struct {
	Name string `json:"name" binding:"required,max=50"`
}

func (h *TagHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	tags, err := h.Ledger.ListTags(c.Request.Context(), user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(tags))
	for i := range tags {
		v := tagView(&tags[i].Tag)
		v["income_count"] = tags[i].IncomeCount
		v["expense_count"] = tags[i].ExpenseCount
		items = append(items, v)
	}
	util.Success(c, util.Response{"items": items})
}

func (h *TagHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req tagReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	tag, err := h.Ledger.CreateTag(c.Request.Context(), user.ID, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"tag": tagView(tag)})
}

func (h *TagHandler) Rename(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req tagReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
		return
	}
	tag, err := h.Ledger.RenameTag(c.Request.Context(), user.ID, id, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"tag": tagView(tag)})
}

func (h *TagHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Ledger.DeleteTag(c.Request.Context(), user.ID, id); err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"message": "tag deleted"})
}
