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

// AccountInput creates an account. A zero SetupDate means today.
type AccountInput struct {
	Name           string
	Type           models.AccountType
	OpeningBalance int64
	SetupDate      time.Time
	BankName       string
	AccountNumber  string
}

// AccountUpdate changes an account. Nil fields are left alone. Balance and
// setup date cannot be edited; OpeningBalance is revised through the
// opening-balance entry.
type AccountUpdate struct {
	Name           *string
	Type           *models.AccountType
	BankName       *string
	AccountNumber  *string
	IsActive       *bool
	OpeningBalance *int64
}

func validateAccountFields(name string, typ models.AccountType) error {
	if err := util.ValidateName(name, 100); err != nil {
		return invalid("name", "%s", err.Error())
	}
	if !typ.Valid() {
		return invalid("type", "unknown account type %q", typ)
	}
	return nil
}

// CreateAccount stores a new account and materializes its opening balance
// as an income dated on the setup date.
func (s *Service) CreateAccount(ctx context.Context, userID uint, in AccountInput) (*models.Account, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateAccountFields(in.Name, in.Type); err != nil {
		return nil, err
	}
	if in.OpeningBalance <= -util.MaxAmount || in.OpeningBalance >= util.MaxAmount {
		return nil, invalid("opening_balance", "opening balance out of range")
	}
	setup := util.DateOnly(in.SetupDate)
	if in.SetupDate.IsZero() {
		setup = s.today()
	}

	acct := models.Account{
		UserID:         userID,
		Name:           in.Name,
		Type:           in.Type,
		OpeningBalance: in.OpeningBalance,
		SetupDate:      setup,
		BankName:       strings.TrimSpace(in.BankName),
		AccountNumber:  strings.TrimSpace(in.AccountNumber),
		IsActive:       true,
	}
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&acct).Error; err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		if acct.OpeningBalance != 0 {
			if err := s.bootstrapOpeningBalance(tx, &acct, acct.OpeningBalance, setup); err != nil {
				return err
			}
		}
		return tx.First(&acct, acct.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// UpdateAccount edits an account's descriptive fields and, when
// OpeningBalance changes, revises the opening-balance entry so the balance
// moves by the difference.
func (s *Service) UpdateAccount(ctx context.Context, userID, id uint, in AccountUpdate) (*models.Account, error) {
	var acct models.Account
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		if err := lockAccount(tx, userID, id, &acct); err != nil {
			return err
		}
		if in.Name != nil {
			acct.Name = strings.TrimSpace(*in.Name)
		}
		if in.Type != nil {
			acct.Type = *in.Type
		}
		if in.BankName != nil {
			acct.BankName = strings.TrimSpace(*in.BankName)
		}
		if in.AccountNumber != nil {
			acct.AccountNumber = strings.TrimSpace(*in.AccountNumber)
		}
		if in.IsActive != nil {
			acct.IsActive = *in.IsActive
		}
		if err := validateAccountFields(acct.Name, acct.Type); err != nil {
			return err
		}

		if in.OpeningBalance != nil && *in.OpeningBalance != acct.OpeningBalance {
			ob := *in.OpeningBalance
			if ob <= -util.MaxAmount || ob >= util.MaxAmount {
				return invalid("opening_balance", "opening balance out of range")
			}
			if err := s.reviseOpeningBalance(tx, &acct, ob); err != nil {
				return err
			}
			acct.OpeningBalance = ob
		}

		err := tx.Model(&acct).
			Select("name", "type", "bank_name", "account_number", "is_active", "opening_balance").
			Updates(&acct).Error
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		return tx.First(&acct, acct.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// DeleteAccount removes an account and keeps every surviving balance
// consistent: transfers touching it are reversed and deleted, its
// opening-balance entry is deleted and its other incomes and expenses are
// kept without an account.
func (s *Service) DeleteAccount(ctx context.Context, userID, id uint) error {
	return s.atomic(ctx, func(tx *gorm.DB) error {
		var acct models.Account
		if err := lockAccount(tx, userID, id, &acct); err != nil {
			return err
		}

		var transfers []models.Transfer
		err := forUpdate(tx).
			Where("from_account_id = ? OR to_account_id = ?", id, id).
			Find(&transfers).Error
		if err != nil {
			return fmt.Errorf("load transfers: %w", err)
		}
		for i := range transfers {
			if err := applyDelete(tx, &transfers[i]); err != nil {
				return err
			}
			if err := tx.Delete(&transfers[i]).Error; err != nil {
				return fmt.Errorf("delete transfer %d: %w", transfers[i].ID, err)
			}
		}

		err = tx.Exec("DELETE FROM income_tags WHERE income_id IN (SELECT id FROM incomes WHERE account_id = ? AND is_opening_balance = ?)", id, true).Error
		if err != nil {
			return fmt.Errorf("untag opening balance: %w", err)
		}
		err = tx.Where("account_id = ? AND is_opening_balance = ?", id, true).Delete(&models.Income{}).Error
		if err != nil {
			return fmt.Errorf("delete opening balance: %w", err)
		}
		for _, m := range []any{&models.Income{}, &models.Expense{}} {
			if err := tx.Model(m).Where("account_id = ?", id).Update("account_id", nil).Error; err != nil {
				return fmt.Errorf("detach entries: %w", err)
			}
		}

		if err := tx.Delete(&acct).Error; err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		return nil
	})
}

// GetAccount returns one of the user's accounts.
func (s *Service) GetAccount(ctx context.Context, userID, id uint) (*models.Account, error) {
	var acct models.Account
	err := s.read(ctx, func(db *gorm.DB) error {
		return ownedAccount(db, userID, id, &acct)
	})
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// ListAccounts returns the user's accounts by name. Inactive accounts are
// included only when includeInactive is set.
func (s *Service) ListAccounts(ctx context.Context, userID uint, includeInactive bool) ([]models.Account, error) {
	var accounts []models.Account
	err := s.read(ctx, func(db *gorm.DB) error {
		q := db.Where("user_id = ?", userID)
		if !includeInactive {
			q = q.Where("is_active = ?", true)
		}
		return q.Order("name ASC, id ASC").Find(&accounts).Error
	})
	return accounts, err
}

func ownedAccount(db *gorm.DB, userID, id uint, dst *models.Account) error {
	err := db.Where("id = ? AND user_id = ?", id, userID).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	return err
}

func lockAccount(tx *gorm.DB, userID, id uint, dst *models.Account) error {
	return ownedAccount(forUpdate(tx), userID, id, dst)
}

// bootstrapOpeningBalance creates the opening-balance entry of a freshly
// inserted account. The account row starts at zero and the entry's own
// balance adjustment lands it on amount.
func (s *Service) bootstrapOpeningBalance(tx *gorm.DB, acct *models.Account, amount int64, asOf time.Time) error {
	err := tx.Model(&models.Account{}).Where("id = ?", acct.ID).UpdateColumn("balance", 0).Error
	if err != nil {
		return fmt.Errorf("reset balance: %w", err)
	}
	return s.createMarker(tx, acct, amount, asOf)
}

// reviseOpeningBalance moves the opening balance to amount. With a marker in
// place the change is a plain amount edit of that entry. Without one the
// balance is rebuilt from the other entries and a fresh marker is created on
// top of it.
func (s *Service) reviseOpeningBalance(tx *gorm.DB, acct *models.Account, amount int64) error {
	var marker models.Income
	err := forUpdate(tx).
		Where("account_id = ? AND is_opening_balance = ?", acct.ID, true).
		First(&marker).Error

	switch {
	case err == nil:
		old := marker
		old.AccountID = cloneID(marker.AccountID)
		marker.Amount = amount
		marker.Description = openingDescription(acct.Name)
		if err := tx.Model(&marker).Select("amount", "description").Updates(&marker).Error; err != nil {
			return fmt.Errorf("update opening balance: %w", err)
		}
		return applyUpdate(tx, &old, &marker)

	case errors.Is(err, gorm.ErrRecordNotFound):
		totals, err := sumAccount(tx, acct.ID, nil, true)
		if err != nil {
			return err
		}
		err = tx.Model(&models.Account{}).Where("id = ?", acct.ID).UpdateColumn("balance", totals.net()).Error
		if err != nil {
			return fmt.Errorf("rebuild balance: %w", err)
		}
		if amount == 0 {
			return nil
		}
		return s.createMarker(tx, acct, amount, acct.SetupDate)

	default:
		return fmt.Errorf("find opening balance: %w", err)
	}
}

func (s *Service) createMarker(tx *gorm.DB, acct *models.Account, amount int64, asOf time.Time) error {
	cat, err := s.ensureOpeningCategory(tx, acct.UserID)
	if err != nil {
		return err
	}
	accountID := acct.ID
	marker := models.Income{
		Transaction: models.Transaction{
			UserID:      acct.UserID,
			AccountID:   &accountID,
			CategoryID:  &cat.ID,
			Amount:      amount,
			Description: openingDescription(acct.Name),
			Date:        util.DateOnly(asOf),
		},
		IsOpeningBalance: true,
	}
	if err := tx.Omit(clause.Associations).Create(&marker).Error; err != nil {
		return fmt.Errorf("create opening balance: %w", err)
	}
	return applyCreate(tx, &marker)
}

func openingDescription(accountName string) string {
	return "Opening balance for " + accountName
}
