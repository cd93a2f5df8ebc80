package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"finance-ledger/internal/ledger"
	"finance-ledger/internal/models"
	"finance-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BackupHandler writes encrypted ledger snapshots to disk and restores them.
type BackupHandler struct {
	DB         *gorm.DB
	Ledger     *ledger.Service
	EncryptKey string
	BackupDir  string
}

func NewBackupHandler(db *gorm.DB, svc *ledger.Service, encryptKey, backupDir string) *BackupHandler {
	return &BackupHandler{
		DB:         db,
		Ledger:     svc,
		EncryptKey: encryptKey,
		BackupDir:  backupDir,
	}
}

func backupView(b *models.Backup) gin.H {
	return gin.H{
		"id":         b.ID,
		"file_name":  b.FileName,
		"size":       b.Size,
		"created_at": b.CreatedAt,
	}
}

func (h *BackupHandler) owned(c *gin.Context, userID uint) (*models.Backup, bool) {
	id, ok := idParam(c)
	if !ok {
		return nil, false
	}
	var b models.Backup
	err := h.DB.WithContext(c.Request.Context()).Where("id = ? AND user_id = ?", id, userID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "backup not found")
		return nil, false
	}
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return &b, true
}

// CreateBackup snapshots the whole ledger of the current user.
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	snap, err := h.Ledger.Snapshot(ctx, user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		fail(c, fmt.Errorf("encode snapshot: %w", err))
		return
	}
	enc, err := util.EncryptBackup(h.EncryptKey, raw)
	if err != nil {
		fail(c, fmt.Errorf("encrypt snapshot: %w", err))
		return
	}

	if err := os.MkdirAll(h.BackupDir, 0o755); err != nil {
		fail(c, fmt.Errorf("create backup dir: %w", err))
		return
	}
	fileName := fmt.Sprintf("backup-%d-%s.bin", user.ID, uuid.New().String())
	filePath := filepath.Join(h.BackupDir, fileName)
	if err := os.WriteFile(filePath, enc, 0o600); err != nil {
		fail(c, fmt.Errorf("write backup: %w", err))
		return
	}

	backup := models.Backup{
		UserID:   user.ID,
		FileName: fileName,
		FilePath: filePath,
		Size:     int64(len(enc)),
	}
	if err := h.DB.WithContext(ctx).Create(&backup).Error; err != nil {
		_ = os.Remove(filePath)
		fail(c, err)
		return
	}

	slog.InfoContext(ctx, "backup created",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("file", fileName),
		slog.Int("accounts", len(snap.Accounts)),
	)
	util.Success(c, util.Response{"backup": backupView(&backup)})
}

func (h *BackupHandler) ListBackups(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var list []models.Backup
	if err := h.DB.WithContext(c.Request.Context()).
		Where("user_id = ?", user.ID).
		Order("created_at DESC, id DESC").
		Find(&list).Error; err != nil {
		fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(list))
	for i := range list {
		items = append(items, backupView(&list[i]))
	}
	util.Success(c, util.Response{"items": items})
}

func (h *BackupHandler) DownloadBackup(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	backup, ok := h.owned(c, user.ID)
	if !ok {
		return
	}
	c.FileAttachment(backup.FilePath, backup.FileName)
}

// DeleteBackup removes the file first, then the record.
func (h *BackupHandler) DeleteBackup(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	backup, ok := h.owned(c, user.ID)
	if !ok {
		return
	}
	if err := os.Remove(backup.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		fail(c, fmt.Errorf("remove backup: %w", err))
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Delete(backup).Error; err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"message": "backup deleted"})
}

// RestoreBackup replaces the current ledger with the backup's and reports
// any balances the restore had to correct.
func (h *BackupHandler) RestoreBackup(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	backup, ok := h.owned(c, user.ID)
	if !ok {
		return
	}

	enc, err := os.ReadFile(backup.FilePath)
	if err != nil {
		fail(c, fmt.Errorf("read backup: %w", err))
		return
	}
	raw, err := util.DecryptBackup(h.EncryptKey, enc)
	if err != nil {
		// files written before backups carried a salt
		raw, err = util.DecryptAES(h.EncryptKey, enc)
	}
	if err != nil {
		util.FieldError(c, "file", "backup cannot be decrypted with the current key")
		return
	}
	var snap ledger.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		util.FieldError(c, "file", "backup is corrupt")
		return
	}

	report, err := h.Ledger.Restore(c.Request.Context(), user.ID, &snap)
	if err != nil {
		fail(c, err)
		return
	}
	slog.InfoContext(c.Request.Context(), "backup restored",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.Uint64("backup_id", uint64(backup.ID)),
		slog.Int("corrections", len(report.Corrections)),
	)
	util.Success(c, util.Response{
		"message":   "backup restored",
		"accounts":  len(snap.Accounts),
		"incomes":   len(snap.Incomes),
		"expenses":  len(snap.Expenses),
		"transfers": len(snap.Transfers),
		"report":    reconcileView(report),
	})
}
