package ledger

import (
	"fmt"
	"time"

	"finance-ledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// leg is one account's share of a ledger entry.
type leg struct {
	accountID *uint
	delta     int64
}

// legsOf reduces an entry to the signed balance changes it stands for.
func legsOf(entry any) []leg {
	switch e := entry.(type) {
	case *models.Income:
		return []leg{{e.AccountID, e.Amount}}
	case *models.Expense:
		return []leg{{e.AccountID, -e.Amount}}
	case *models.Transfer:
		from, to := e.FromAccountID, e.ToAccountID
		return []leg{{&from, -e.Amount}, {&to, e.Amount}}
	}
	panic(fmt.Sprintf("ledger: %T is not a ledger entry", entry))
}

func applyCreate(tx *gorm.DB, entry any) error {
	for _, l := range legsOf(entry) {
		if err := addToBalance(tx, l.accountID, l.delta); err != nil {
			return err
		}
	}
	return nil
}

// applyUpdate moves balances from old's legs to updated's legs. old must be
// a snapshot taken under the row lock, before any field was assigned.
func applyUpdate(tx *gorm.DB, old, updated any) error {
	before, after := legsOf(old), legsOf(updated)

	if !sameAccounts(before, after) {
		for _, l := range before {
			if err := addToBalance(tx, l.accountID, -l.delta); err != nil {
				return err
			}
		}
		for _, l := range after {
			if err := addToBalance(tx, l.accountID, l.delta); err != nil {
				return err
			}
		}
		return nil
	}

	for i := range after {
		if err := addToBalance(tx, after[i].accountID, after[i].delta-before[i].delta); err != nil {
			return err
		}
	}
	return nil
}

func applyDelete(tx *gorm.DB, entry any) error {
	for _, l := range legsOf(entry) {
		if err := addToBalance(tx, l.accountID, -l.delta); err != nil {
			return err
		}
	}
	return nil
}

// addToBalance is a single atomic read-modify-write in the store. A missing
// account (NULL reference, or a row that no longer exists) is skipped.
func addToBalance(tx *gorm.DB, accountID *uint, delta int64) error {
	if accountID == nil || delta == 0 {
		return nil
	}
	err := tx.Model(&models.Account{}).
		Where("id = ?", *accountID).
		UpdateColumn("balance", gorm.Expr("balance + ?", delta)).Error
	if err != nil {
		return fmt.Errorf("adjust balance of account %d: %w", *accountID, err)
	}
	return nil
}

func sameAccounts(a, b []leg) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameID(a[i].accountID, b[i].accountID) {
			return false
		}
	}
	return true
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneID(id *uint) *uint {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// forUpdate locks the selected rows until the transaction ends. SQLite has
// no row locks; there the immediate write transaction already serializes.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// accountTotals are the four sums a balance is made of.
type accountTotals struct {
	Income      int64
	Expense     int64
	TransferIn  int64
	TransferOut int64
}

func (t accountTotals) net() int64 {
	return t.Income - t.Expense + t.TransferIn - t.TransferOut
}

// sumAccount totals every entry against accountID. With after set only
// entries dated strictly later count.
func sumAccount(tx *gorm.DB, accountID uint, after *time.Time, skipMarker bool) (accountTotals, error) {
	var t accountTotals

	scope := func(q *gorm.DB) *gorm.DB {
		if after != nil {
			q = q.Where("date > ?", *after)
		}
		return q
	}

	incomes := tx.Model(&models.Income{}).Where("account_id = ?", accountID).Scopes(scope)
	if skipMarker {
		incomes = incomes.Where("is_opening_balance = ?", false)
	}
	sums := []struct {
		query *gorm.DB
		dst   *int64
	}{
		{incomes, &t.Income},
		{tx.Model(&models.Expense{}).Where("account_id = ?", accountID).Scopes(scope), &t.Expense},
		{tx.Model(&models.Transfer{}).Where("to_account_id = ?", accountID).Scopes(scope), &t.TransferIn},
		{tx.Model(&models.Transfer{}).Where("from_account_id = ?", accountID).Scopes(scope), &t.TransferOut},
	}
	for _, s := range sums {
		if err := s.query.Select("COALESCE(SUM(amount), 0)").Scan(s.dst).Error; err != nil {
			return accountTotals{}, fmt.Errorf("sum entries of account %d: %w", accountID, err)
		}
	}
	return t, nil
}
