package ledger

import (
	"errors"
	"time"

	"finance-ledger/internal/models"
	"finance-ledger/internal/util"

	"gorm.io/gorm"
)

// validateEntry runs inside the write transaction, before anything is
// written.
func validateEntry(tx *gorm.DB, userID uint, kind models.Kind, t *models.Transaction) error {
	if err := util.ValidateAmount(t.Amount); err != nil {
		return invalid("amount", "%s", err.Error())
	}
	if t.Date.IsZero() {
		return invalid("date", "date is required")
	}
	if t.AccountID == nil {
		return invalid("account_id", "account is required")
	}

	acct, err := accountForEntry(tx, userID, *t.AccountID, "account_id")
	if err != nil {
		return err
	}
	if t.Date.Before(acct.SetupDate) {
		return invalid("date", "date cannot be before the account setup date (%s)", acct.SetupDate.Format(time.DateOnly))
	}

	if t.CategoryID != nil {
		var cat models.Category
		if err := ownedCategory(tx, userID, *t.CategoryID, &cat); err != nil {
			if errors.Is(err, ErrNotFound) {
				return invalid("category_id", "category not found")
			}
			return err
		}
		if string(cat.Type) != string(kind) {
			return invalid("category_id", "category %q is not an %s category", cat.Name, kind)
		}
	}
	return nil
}

// validateTransfer checks a new or edited transfer. old is the stored
// transfer when editing: its amount is available again when the source
// account stays the same.
func validateTransfer(tx *gorm.DB, userID uint, t, old *models.Transfer) error {
	if err := util.ValidateAmount(t.Amount); err != nil {
		return invalid("amount", "%s", err.Error())
	}
	if t.FromAccountID == t.ToAccountID {
		return invalid("to_account_id", "cannot transfer to the same account")
	}
	if t.Date.IsZero() {
		return invalid("date", "date is required")
	}

	from, err := accountForEntry(tx, userID, t.FromAccountID, "from_account_id")
	if err != nil {
		return err
	}
	to, err := accountForEntry(tx, userID, t.ToAccountID, "to_account_id")
	if err != nil {
		return err
	}
	for _, acct := range []*models.Account{from, to} {
		if t.Date.Before(acct.SetupDate) {
			return invalid("date", "date cannot be before the setup date of %s (%s)", acct.Name, acct.SetupDate.Format(time.DateOnly))
		}
	}

	available := from.Balance
	if old != nil && old.FromAccountID == t.FromAccountID {
		available += old.Amount
	}
	if t.Amount > available {
		return invalid("amount", "insufficient balance in %s, available: %s", from.Name, util.FormatAmount(available))
	}
	return nil
}

func accountForEntry(tx *gorm.DB, userID, id uint, field string) (*models.Account, error) {
	var acct models.Account
	if err := ownedAccount(tx, userID, id, &acct); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalid(field, "account not found")
		}
		return nil, err
	}
	return &acct, nil
}
