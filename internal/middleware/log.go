package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"

	"finance-ledger/internal/models"
	"finance-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const maxAuditBody = 2000

// RequestLogger writes one structured line per request.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}
		log.LogAttrs(c.Request.Context(), level, "request", attrs...)
	}
}

// AuditMiddleware records every write of a logged in user. Path and body are
// stored encrypted; reads are not recorded.
func AuditMiddleware(db *gorm.DB, encryptKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		c.Next()

		v, ok := c.Get("currentUser")
		if !ok {
			return
		}
		user, ok := v.(*models.User)
		if !ok || user == nil {
			return
		}

		path := c.Request.URL.Path
		action := c.Request.Method + " " + path
		if len(body) > 0 && len(body) < maxAuditBody && !sensitivePath(c.FullPath()) {
			action += " " + string(body)
		}

		encPath, err := util.EncryptString(encryptKey, path)
		if err != nil {
			slog.WarnContext(c.Request.Context(), "audit encrypt failed", slog.Any("err", err))
			return
		}
		encAction, err := util.EncryptString(encryptKey, action)
		if err != nil {
			slog.WarnContext(c.Request.Context(), "audit encrypt failed", slog.Any("err", err))
			return
		}

		ua := c.Request.UserAgent()
		if len(ua) > 255 {
			ua = ua[:255]
		}
		entry := models.AuditLog{
			UserID:    &user.ID,
			Method:    c.Request.Method,
			PathEnc:   encPath,
			ActionEnc: encAction,
			Status:    c.Writer.Status(),
			IP:        c.ClientIP(),
			UserAgent: ua,
		}
		if err := db.WithContext(c.Request.Context()).Create(&entry).Error; err != nil {
			slog.WarnContext(c.Request.Context(), "audit write failed", slog.Any("err", err))
		}
	}
}

// sensitivePath reports routes whose bodies carry passwords.
func sensitivePath(route string) bool {
	return route == "/api/profile/password"
}
