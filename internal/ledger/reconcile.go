package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"finance-ledger/internal/models"

	"gorm.io/gorm"
)

// ReconcileOptions scopes a reconciliation run. UserID zero means every
// user. DryRun reports drift without repairing it.
type ReconcileOptions struct {
	UserID uint
	DryRun bool
}

// Correction is one account whose stored balance disagreed with its entries.
type Correction struct {
	AccountID uint   `json:"account_id" yaml:"account_id"`
	UserID    uint   `json:"user_id" yaml:"user_id"`
	Name      string `json:"name" yaml:"name"`
	Old       int64  `json:"old" yaml:"old"`
	New       int64  `json:"new" yaml:"new"`
}

// ReconcileReport summarizes a run.
type ReconcileReport struct {
	Checked     int          `json:"checked" yaml:"checked"`
	DryRun      bool         `json:"dry_run" yaml:"dry_run"`
	Corrections []Correction `json:"corrections" yaml:"corrections"`
}

// Reconcile recomputes every active account's balance from its entries and
// overwrites the stored value where they differ. Running it twice in a row
// corrects nothing the second time.
func (s *Service) Reconcile(ctx context.Context, opts ReconcileOptions) (*ReconcileReport, error) {
	var ids []uint
	err := s.read(ctx, func(db *gorm.DB) error {
		q := db.Model(&models.Account{}).Where("is_active = ?", true)
		if opts.UserID != 0 {
			q = q.Where("user_id = ?", opts.UserID)
		}
		return q.Order("id").Pluck("id", &ids).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	report := &ReconcileReport{DryRun: opts.DryRun, Corrections: []Correction{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		c, found, err := s.reconcileAccount(ctx, id, opts.DryRun)
		if err != nil {
			return report, err
		}
		if !found {
			continue
		}
		report.Checked++
		if c == nil {
			continue
		}
		report.Corrections = append(report.Corrections, *c)
		s.log.Warn("balance drift",
			slog.Uint64("account_id", uint64(c.AccountID)),
			slog.Uint64("user_id", uint64(c.UserID)),
			slog.String("name", c.Name),
			slog.Int64("stored", c.Old),
			slog.Int64("computed", c.New),
			slog.Bool("dry_run", opts.DryRun),
		)
	}
	return report, nil
}

// reconcileAccount checks one account under its row lock. found is false
// when the account was deleted since it was listed.
func (s *Service) reconcileAccount(ctx context.Context, id uint, dryRun bool) (c *Correction, found bool, err error) {
	err = s.atomic(ctx, func(tx *gorm.DB) error {
		var accounts []models.Account
		if err := forUpdate(tx).Where("id = ?", id).Limit(1).Find(&accounts).Error; err != nil {
			return err
		}
		if len(accounts) == 0 {
			return nil
		}
		acct := accounts[0]
		found = true

		totals, err := sumAccount(tx, acct.ID, nil, false)
		if err != nil {
			return err
		}
		computed := totals.net()
		if computed == acct.Balance {
			return nil
		}
		c = &Correction{AccountID: acct.ID, UserID: acct.UserID, Name: acct.Name, Old: acct.Balance, New: computed}
		if dryRun {
			return nil
		}
		return tx.Model(&models.Account{}).Where("id = ?", acct.ID).UpdateColumn("balance", computed).Error
	})
	return c, found, err
}
