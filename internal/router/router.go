package router

import (
	"log/slog"

	"finance-ledger/internal/config"
	"finance-ledger/internal/handler"
	"finance-ledger/internal/ledger"
	"finance-ledger/internal/middleware"
	"finance-ledger/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter wires every API route onto a new gin engine.
func SetupRouter(cfg *config.Config, db *gorm.DB, svc *ledger.Service, log *slog.Logger) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(log), gin.Recovery())

	api := r.Group("/api")

	authHandler := handler.NewAuthHandler(db, svc, cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpireHours)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(cfg.JWT.Secret, cfg.JWT.Issuer, db),
		middleware.AuditMiddleware(db, cfg.Security.EncryptionKey),
	)

	protected.GET("/me", handler.GetMe)
	protected.POST("/profile", handler.UpdateProfile(db))
	protected.POST("/profile/password", handler.ChangePassword(db))

	accounts := handler.NewAccountHandler(svc)
	protected.GET("/accounts", accounts.List)
	protected.POST("/accounts", accounts.Create)
	protected.GET("/accounts/:id", accounts.Get)
	protected.PUT("/accounts/:id", accounts.Update)
	protected.DELETE("/accounts/:id", accounts.Delete)
	protected.GET("/accounts/:id/balance", accounts.Balance)
	protected.GET("/accounts/:id/daily", accounts.Daily)

	categories := handler.NewCategoryHandler(svc)
	protected.GET("/categories", categories.List)
	protected.POST("/categories", categories.Create)
	protected.GET("/categories/:id", categories.Get)
	protected.PUT("/categories/:id", categories.Update)
	protected.DELETE("/categories/:id", categories.Delete)

	tags := handler.NewTagHandler(svc)
	protected.GET("/tags", tags.List)
	protected.POST("/tags", tags.Create)
	protected.PUT("/tags/:id", tags.Rename)
	protected.DELETE("/tags/:id", tags.Delete)

	for path, kind := range map[string]models.Kind{"/incomes": models.KindIncome, "/expenses": models.KindExpense} {
		h := handler.NewEntryHandler(svc, kind, cfg.App.PageSize)
		g := protected.Group(path)
		g.GET("", h.List)
		g.POST("", h.Create)
		g.POST("/bulk-delete", h.BulkDelete)
		g.POST("/bulk-tag", h.BulkTag)
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Update)
		g.DELETE("/:id", h.Delete)
		g.POST("/:id/clone", h.Clone)
	}

	transfers := handler.NewTransferHandler(svc, cfg.App.PageSize)
	protected.GET("/transfers", transfers.List)
	protected.POST("/transfers", transfers.Create)
	protected.GET("/transfers/:id", transfers.Get)
	protected.PUT("/transfers/:id", transfers.Update)
	protected.DELETE("/transfers/:id", transfers.Delete)
	protected.POST("/transfers/:id/clone", transfers.Clone)

	budgets := handler.NewBudgetHandler(svc)
	protected.GET("/budgets", budgets.List)
	protected.POST("/budgets", budgets.Create)
	protected.POST("/budgets/copy-previous", budgets.CopyPrevious)
	protected.GET("/budgets/:id", budgets.Get)
	protected.PUT("/budgets/:id", budgets.Update)
	protected.DELETE("/budgets/:id", budgets.Delete)

	reports := handler.NewReportHandler(svc, cfg.Ledger.NetWorthMonths)
	protected.GET("/reports/summary", reports.Summary)
	protected.GET("/reports/monthly", reports.Monthly)
	protected.GET("/reports/annual", reports.Annual)
	protected.GET("/reports/net-worth", reports.NetWorth)
	protected.POST("/reconcile", reports.Reconcile)

	backups := handler.NewBackupHandler(db, svc, cfg.Security.EncryptionKey, cfg.Backup.Dir)
	protected.POST("/backups", backups.CreateBackup)
	protected.GET("/backups", backups.ListBackups)
	protected.GET("/backups/:id/download", backups.DownloadBackup)
	protected.POST("/backups/:id/restore", backups.RestoreBackup)
	protected.DELETE("/backups/:id", backups.DeleteBackup)

	exports := handler.NewExportHandler(svc)
	protected.GET("/export/csv", exports.ExportCSV)
	protected.GET("/export/xlsx", exports.ExportXLSX)

	logs := handler.NewLogHandler(db, cfg.Security.EncryptionKey)
	protected.GET("/logs", logs.ListLogs)

	return r
}
