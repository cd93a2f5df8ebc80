package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finance-ledger/internal/ledger"
	"finance-ledger/internal/models"
	"finance-ledger/internal/util"

	"github.com/gin-gonic/gin"
)

// currentUser returns the user AuthMiddleware stored on the context. It
// writes the 401 itself when there is none.
func currentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get("currentUser")
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return nil, false
	}
	user, ok := v.(*models.User)
	if !ok || user == nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return nil, false
	}
	return user, true
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid id")
		return 0, false
	}
	return uint(id), true
}

// fail maps ledger errors onto the response envelope.
func fail(c *gin.Context, err error) {
	if v, ok := ledger.AsValidation(err); ok {
		util.FieldError(c, v.Field, v.Message)
		return
	}
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "not found")
	case errors.Is(err, ledger.ErrConflict):
		util.Error(c, http.StatusConflict, util.CodeConflict, "the ledger is busy, please retry")
	default:
		slog.ErrorContext(c.Request.Context(), "request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Any("err", err),
		)
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "internal error")
	}
}

func parseAmountField(c *gin.Context, field, value string) (int64, bool) {
	cents, err := util.ParseAmount(value)
	if err != nil {
		util.FieldError(c, field, err.Error())
		return 0, false
	}
	return cents, true
}

// parseDateField parses YYYY-MM-DD; an empty value yields def.
func parseDateField(c *gin.Context, field, value string, def time.Time) (time.Time, bool) {
	if strings.TrimSpace(value) == "" {
		return def, true
	}
	t, err := util.ParseDate(strings.TrimSpace(value))
	if err != nil {
		util.FieldError(c, field, err.Error())
		return time.Time{}, false
	}
	return t, true
}

func optionalDate(c *gin.Context, field string) (*time.Time, bool) {
	v := c.Query(field)
	if v == "" {
		return nil, true
	}
	t, ok := parseDateField(c, field, v, time.Time{})
	if !ok {
		return nil, false
	}
	return &t, true
}

func optionalID(c *gin.Context, field string) (*uint, bool) {
	v := c.Query(field)
	if v == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		util.FieldError(c, field, "invalid id")
		return nil, false
	}
	u := uint(id)
	return &u, true
}

// idList parses "1,2,3".
func idList(c *gin.Context, field string) ([]uint, bool) {
	v := strings.TrimSpace(c.Query(field))
	if v == "" {
		return nil, true
	}
	var ids []uint
	for _, part := range strings.Split(v, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			util.FieldError(c, field, "invalid id list")
			return nil, false
		}
		ids = append(ids, uint(id))
	}
	return ids, true
}

// filterFromQuery reads from, to, account_id, category_id, tags, page and
// page_size.
func filterFromQuery(c *gin.Context, defaultPageSize int) (ledger.Filter, bool) {
	var f ledger.Filter
	var ok bool
	if f.From, ok = optionalDate(c, "from"); !ok {
		return f, false
	}
	if f.To, ok = optionalDate(c, "to"); !ok {
		return f, false
	}
	if f.AccountID, ok = optionalID(c, "account_id"); !ok {
		return f, false
	}
	if f.CategoryID, ok = optionalID(c, "category_id"); !ok {
		return f, false
	}
	if f.TagIDs, ok = idList(c, "tags"); !ok {
		return f, false
	}

	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if f.Page <= 0 {
		f.Page = 1
	}
	f.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if f.PageSize <= 0 || f.PageSize > 100 {
		f.PageSize = defaultPageSize
	}
	return f, true
}

func dateString(t time.Time) string {
	return t.Format(time.DateOnly)
}
