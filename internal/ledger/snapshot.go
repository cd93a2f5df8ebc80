package ledger

import (
	"context"
	"fmt"
	"time"

	"finance-ledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotVersion is bumped whenever the Snapshot layout changes.
const SnapshotVersion = 1

// Snapshot is a user's complete ledger. Ids are the stored ones and are
// remapped on restore.
type Snapshot struct {
	Version    int                    `json:"version"`
	CreatedAt  time.Time              `json:"created_at"`
	Accounts   []models.Account       `json:"accounts"`
	Categories []models.Category      `json:"categories"`
	Tags       []models.Tag           `json:"tags"`
	Incomes    []SnapshotEntry        `json:"incomes"`
	Expenses   []SnapshotEntry        `json:"expenses"`
	Transfers  []models.Transfer      `json:"transfers"`
	Budgets    []models.MonthlyBudget `json:"budgets"`
}

// SnapshotEntry is an income or expense with its tag ids.
type SnapshotEntry struct {
	models.Transaction
	IsOpeningBalance bool   `json:"is_opening_balance,omitempty"`
	TagIDs           []uint `json:"tag_ids,omitempty"`
}

// Snapshot reads the user's ledger in one transaction.
func (s *Service) Snapshot(ctx context.Context, userID uint) (*Snapshot, error) {
	snap := &Snapshot{Version: SnapshotVersion, CreatedAt: s.now().UTC()}
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		owned := func(dst any) error {
			return tx.Where("user_id = ?", userID).Order("id").Find(dst).Error
		}
		for _, dst := range []any{&snap.Accounts, &snap.Categories, &snap.Tags, &snap.Transfers, &snap.Budgets} {
			if err := owned(dst); err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}
		}

		var incomes []models.Income
		if err := tx.Preload("Tags").Where("user_id = ?", userID).Order("id").Find(&incomes).Error; err != nil {
			return fmt.Errorf("snapshot incomes: %w", err)
		}
		for _, in := range incomes {
			snap.Incomes = append(snap.Incomes, SnapshotEntry{
				Transaction:      in.Transaction,
				IsOpeningBalance: in.IsOpeningBalance,
				TagIDs:           tagIDs(in.Tags),
			})
		}
		var expenses []models.Expense
		if err := tx.Preload("Tags").Where("user_id = ?", userID).Order("id").Find(&expenses).Error; err != nil {
			return fmt.Errorf("snapshot expenses: %w", err)
		}
		for _, ex := range expenses {
			snap.Expenses = append(snap.Expenses, SnapshotEntry{Transaction: ex.Transaction, TagIDs: tagIDs(ex.Tags)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Restore replaces the user's ledger with snap in one transaction, then
// reconciles the user's accounts so the restored balances match the
// restored entries.
func (s *Service) Restore(ctx context.Context, userID uint, snap *Snapshot) (*ReconcileReport, error) {
	if snap == nil || snap.Version != SnapshotVersion {
		return nil, invalid("file", "unsupported backup version")
	}
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		if err := wipeLedger(tx, userID); err != nil {
			return err
		}
		return restoreLedger(tx, userID, snap)
	})
	if err != nil {
		return nil, err
	}
	return s.Reconcile(ctx, ReconcileOptions{UserID: userID})
}

func wipeLedger(tx *gorm.DB, userID uint) error {
	stmts := []string{
		"DELETE FROM income_tags WHERE income_id IN (SELECT id FROM incomes WHERE user_id = ?)",
		"DELETE FROM expense_tags WHERE expense_id IN (SELECT id FROM expenses WHERE user_id = ?)",
		"DELETE FROM incomes WHERE user_id = ?",
		"DELETE FROM expenses WHERE user_id = ?",
		"DELETE FROM transfers WHERE user_id = ?",
		"DELETE FROM monthly_budgets WHERE user_id = ?",
		"DELETE FROM tags WHERE user_id = ?",
		"DELETE FROM categories WHERE user_id = ?",
		"DELETE FROM accounts WHERE user_id = ?",
	}
	for _, stmt := range stmts {
		if err := tx.Exec(stmt, userID).Error; err != nil {
			return fmt.Errorf("clear ledger: %w", err)
		}
	}
	return nil
}

// idMap translates snapshot ids to freshly inserted ones.
type idMap map[uint]uint

func (m idMap) ptr(old *uint) *uint {
	if old == nil {
		return nil
	}
	if id, ok := m[*old]; ok {
		return &id
	}
	return nil
}

func restoreLedger(tx *gorm.DB, userID uint, snap *Snapshot) error {
	insert := func(v any) error {
		return tx.Omit(clause.Associations).Create(v).Error
	}
	accounts, categories, tags := idMap{}, idMap{}, idMap{}

	for _, a := range snap.Accounts {
		old := a.ID
		a.ID, a.UserID = 0, userID
		active := a.IsActive
		if err := insert(&a); err != nil {
			return fmt.Errorf("restore account %q: %w", a.Name, err)
		}
		// is_active has a column default, so false is not sent on insert
		if !active {
			if err := tx.Model(&a).UpdateColumn("is_active", false).Error; err != nil {
				return fmt.Errorf("restore account %q: %w", a.Name, err)
			}
		}
		accounts[old] = a.ID
	}
	for _, c := range snap.Categories {
		old := c.ID
		c.ID, c.UserID = 0, userID
		if err := insert(&c); err != nil {
			return fmt.Errorf("restore category %q: %w", c.Name, err)
		}
		categories[old] = c.ID
	}
	for _, t := range snap.Tags {
		old := t.ID
		t.ID, t.UserID = 0, userID
		if err := insert(&t); err != nil {
			return fmt.Errorf("restore tag %q: %w", t.Name, err)
		}
		tags[old] = t.ID
	}

	remap := func(e SnapshotEntry) models.Transaction {
		t := e.Transaction
		t.ID, t.UserID = 0, userID
		t.AccountID = accounts.ptr(e.AccountID)
		t.CategoryID = categories.ptr(e.CategoryID)
		return t
	}
	link := func(join, fk string, entryID uint, tagIDs []uint) error {
		for _, old := range tagIDs {
			id, ok := tags[old]
			if !ok {
				continue
			}
			if err := tx.Exec("INSERT INTO "+join+" ("+fk+", tag_id) VALUES (?, ?)", entryID, id).Error; err != nil {
				return fmt.Errorf("restore %s: %w", join, err)
			}
		}
		return nil
	}

	for _, e := range snap.Incomes {
		in := models.Income{Transaction: remap(e), IsOpeningBalance: e.IsOpeningBalance}
		if err := insert(&in); err != nil {
			return fmt.Errorf("restore income: %w", err)
		}
		if err := link("income_tags", "income_id", in.ID, e.TagIDs); err != nil {
			return err
		}
	}
	for _, e := range snap.Expenses {
		ex := models.Expense{Transaction: remap(e)}
		if err := insert(&ex); err != nil {
			return fmt.Errorf("restore expense: %w", err)
		}
		if err := link("expense_tags", "expense_id", ex.ID, e.TagIDs); err != nil {
			return err
		}
	}

	for _, t := range snap.Transfers {
		from, okFrom := accounts[t.FromAccountID]
		to, okTo := accounts[t.ToAccountID]
		if !okFrom || !okTo {
			continue
		}
		t.ID, t.UserID = 0, userID
		t.FromAccountID, t.ToAccountID = from, to
		t.FromAccount, t.ToAccount = nil, nil
		if err := insert(&t); err != nil {
			return fmt.Errorf("restore transfer: %w", err)
		}
	}
	for _, b := range snap.Budgets {
		cat, ok := categories[b.CategoryID]
		if !ok {
			continue
		}
		b.ID, b.UserID, b.CategoryID, b.Category = 0, userID, cat, nil
		if err := insert(&b); err != nil {
			return fmt.Errorf("restore budget: %w", err)
		}
	}
	return nil
}

func tagIDs(tags []models.Tag) []uint {
	ids := make([]uint, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids
}
