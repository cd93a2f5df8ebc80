package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finance-ledger/internal/models"
	"finance-ledger/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransferInput creates or replaces a transfer.
type TransferInput struct {
	FromAccountID uint
	ToAccountID   uint
	Amount        int64
	Description   string
	Date          time.Time
}

func (in TransferInput) assign(t *models.Transfer) {
	t.FromAccountID = in.FromAccountID
	t.ToAccountID = in.ToAccountID
	t.Amount = in.Amount
	t.Description = strings.TrimSpace(in.Description)
	t.Date = util.DateOnly(in.Date)
}

// CreateTransfer moves money between two of the user's accounts.
func (s *Service) CreateTransfer(ctx context.Context, userID uint, in TransferInput) (*models.Transfer, error) {
	tr := models.Transfer{UserID: userID}
	in.assign(&tr)

	var out *models.Transfer
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		if err := validateTransfer(tx, userID, &tr, nil); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&tr).Error; err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}
		if err := applyCreate(tx, &tr); err != nil {
			return err
		}
		var err error
		out, err = loadTransfer(tx, userID, tr.ID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTransfer replaces a transfer. Balances move by the difference
// when only the amount changed, otherwise the old transfer is reversed
// and the new one applied.
func (s *Service) UpdateTransfer(ctx context.Context, userID, id uint, in TransferInput) (*models.Transfer, error) {
	var out *models.Transfer
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		tr, err := loadTransfer(tx, userID, id, true)
		if err != nil {
			return err
		}
		old := *tr
		in.assign(tr)
		if err := validateTransfer(tx, userID, tr, &old); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(tr).Error; err != nil {
			return fmt.Errorf("update transfer: %w", err)
		}
		if err := applyUpdate(tx, &old, tr); err != nil {
			return err
		}
		out, err = loadTransfer(tx, userID, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) DeleteTransfer(ctx context.Context, userID, id uint) error {
	return s.atomic(ctx, func(tx *gorm.DB) error {
		tr, err := loadTransfer(tx, userID, id, true)
		if err != nil {
			return err
		}
		if err := applyDelete(tx, tr); err != nil {
			return err
		}
		return tx.Delete(tr).Error
	})
}

func (s *Service) GetTransfer(ctx context.Context, userID, id uint) (*models.Transfer, error) {
	var out *models.Transfer
	err := s.read(ctx, func(db *gorm.DB) error {
		var err error
		out, err = loadTransfer(db, userID, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListTransfers honours the date range and account of f; the account
// matches either side.
func (s *Service) ListTransfers(ctx context.Context, userID uint, f Filter) ([]models.Transfer, int64, error) {
	var (
		rows  []models.Transfer
		total int64
	)
	err := s.read(ctx, func(db *gorm.DB) error {
		base := func() *gorm.DB {
			return db.Model(&models.Transfer{}).Where("transfers.user_id = ?", userID).Scopes(f.transfers)
		}
		if err := base().Count(&total).Error; err != nil {
			return err
		}
		return base().
			Preload("FromAccount").Preload("ToAccount").
			Order("transfers.date DESC, transfers.id DESC").
			Scopes(f.paginate).
			Find(&rows).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CloneTransfer copies a transfer to date, or to today when date is nil.
func (s *Service) CloneTransfer(ctx context.Context, userID, id uint, date *time.Time) (*models.Transfer, error) {
	src, err := s.GetTransfer(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	in := TransferInput{
		FromAccountID: src.FromAccountID,
		ToAccountID:   src.ToAccountID,
		Amount:        src.Amount,
		Description:   src.Description,
		Date:          s.today(),
	}
	if date != nil {
		in.Date = *date
	}
	return s.CreateTransfer(ctx, userID, in)
}

func loadTransfer(tx *gorm.DB, userID, id uint, lock bool) (*models.Transfer, error) {
	q := tx.Preload("FromAccount").Preload("ToAccount")
	if lock {
		q = forUpdate(tx)
	}
	var tr models.Transfer
	err := q.Where("id = ? AND user_id = ?", id, userID).First(&tr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("transfer %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &tr, nil
}
