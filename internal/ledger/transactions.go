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

// TxnInput creates or replaces an income or expense. Tags are names;
// unknown names become new tags.
type TxnInput struct {
	AccountID   *uint
	CategoryID  *uint
	Amount      int64
	Description string
	Date        time.Time
	Tags        []string
}

func (in TxnInput) assign(t *models.Transaction) {
	t.AccountID = cloneID(in.AccountID)
	t.CategoryID = cloneID(in.CategoryID)
	t.Amount = in.Amount
	t.Description = strings.TrimSpace(in.Description)
	t.Date = util.DateOnly(in.Date)
}

// BulkResult reports a bulk delete. Skipped counts protected or unknown ids.
type BulkResult struct {
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
}

// entryRow is *models.Income or *models.Expense.
type entryRow[E any] interface {
	*E
	Txn() *models.Transaction
	Kind() models.Kind
}

func (s *Service) CreateIncome(ctx context.Context, userID uint, in TxnInput) (*models.Income, error) {
	return createEntry[models.Income](ctx, s, userID, in)
}

func (s *Service) UpdateIncome(ctx context.Context, userID, id uint, in TxnInput) (*models.Income, error) {
	return updateEntry[models.Income](ctx, s, userID, id, in)
}

func (s *Service) DeleteIncome(ctx context.Context, userID, id uint) error {
	return s.atomic(ctx, func(tx *gorm.DB) error {
		return deleteEntry[models.Income](tx, userID, id)
	})
}

func (s *Service) GetIncome(ctx context.Context, userID, id uint) (*models.Income, error) {
	return getEntry[models.Income](ctx, s, userID, id)
}

func (s *Service) ListIncomes(ctx context.Context, userID uint, f Filter) ([]models.Income, int64, error) {
	return listEntries[models.Income](ctx, s, userID, f)
}

// CloneIncome copies an income to date, or to today when date is nil.
func (s *Service) CloneIncome(ctx context.Context, userID, id uint, date *time.Time) (*models.Income, error) {
	return cloneEntry[models.Income](ctx, s, userID, id, date)
}

func (s *Service) BulkDeleteIncomes(ctx context.Context, userID uint, ids []uint) (BulkResult, error) {
	return bulkDelete[models.Income](ctx, s, userID, ids)
}

// BulkTagIncomes adds (or with remove set, removes) tags on incomes and
// returns how many incomes were touched.
func (s *Service) BulkTagIncomes(ctx context.Context, userID uint, ids, tagIDs []uint, remove bool) (int, error) {
	return bulkTag[models.Income](ctx, s, userID, ids, tagIDs, remove)
}

func (s *Service) CreateExpense(ctx context.Context, userID uint, in TxnInput) (*models.Expense, error) {
	return createEntry[models.Expense](ctx, s, userID, in)
}

func (s *Service) UpdateExpense(ctx context.Context, userID, id uint, in TxnInput) (*models.Expense, error) {
	return updateEntry[models.Expense](ctx, s, userID, id, in)
}

func (s *Service) DeleteExpense(ctx context.Context, userID, id uint) error {
	return s.atomic(ctx, func(tx *gorm.DB) error {
		return deleteEntry[models.Expense](tx, userID, id)
	})
}

func (s *Service) GetExpense(ctx context.Context, userID, id uint) (*models.Expense, error) {
	return getEntry[models.Expense](ctx, s, userID, id)
}

func (s *Service) ListExpenses(ctx context.Context, userID uint, f Filter) ([]models.Expense, int64, error) {
	return listEntries[models.Expense](ctx, s, userID, f)
}

func (s *Service) CloneExpense(ctx context.Context, userID, id uint, date *time.Time) (*models.Expense, error) {
	return cloneEntry[models.Expense](ctx, s, userID, id, date)
}

func (s *Service) BulkDeleteExpenses(ctx context.Context, userID uint, ids []uint) (BulkResult, error) {
	return bulkDelete[models.Expense](ctx, s, userID, ids)
}

func (s *Service) BulkTagExpenses(ctx context.Context, userID uint, ids, tagIDs []uint, remove bool) (int, error) {
	return bulkTag[models.Expense](ctx, s, userID, ids, tagIDs, remove)
}

func createEntry[E any, P entryRow[E]](ctx context.Context, s *Service, userID uint, in TxnInput) (P, error) {
	row := P(new(E))
	in.assign(row.Txn())
	row.Txn().UserID = userID

	var out P
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		if err := validateEntry(tx, userID, row.Kind(), row.Txn()); err != nil {
			return err
		}
		tags, err := resolveTags(tx, userID, in.Tags)
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
			return fmt.Errorf("create %s: %w", row.Kind(), err)
		}
		if err := setTags(tx, row, tags); err != nil {
			return err
		}
		if err := applyCreate(tx, row); err != nil {
			return err
		}
		out, err = loadEntry[E, P](tx, userID, row.Txn().ID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func updateEntry[E any, P entryRow[E]](ctx context.Context, s *Service, userID, id uint, in TxnInput) (P, error) {
	var out P
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		row, err := loadEntry[E, P](tx, userID, id, true)
		if err != nil {
			return err
		}
		if isMarker(row) {
			return protectedError()
		}

		snapshot := *row
		old := P(&snapshot)
		old.Txn().AccountID = cloneID(row.Txn().AccountID)

		in.assign(row.Txn())
		if err := validateEntry(tx, userID, row.Kind(), row.Txn()); err != nil {
			return err
		}
		tags, err := resolveTags(tx, userID, in.Tags)
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(row).Error; err != nil {
			return fmt.Errorf("update %s: %w", row.Kind(), err)
		}
		if err := setTags(tx, row, tags); err != nil {
			return err
		}
		if err := applyUpdate(tx, old, row); err != nil {
			return err
		}
		out, err = loadEntry[E, P](tx, userID, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func deleteEntry[E any, P entryRow[E]](tx *gorm.DB, userID, id uint) error {
	row, err := loadEntry[E, P](tx, userID, id, true)
	if err != nil {
		return err
	}
	if isMarker(row) {
		return protectedError()
	}
	if err := applyDelete(tx, row); err != nil {
		return err
	}
	if err := tx.Model(row).Association("Tags").Clear(); err != nil {
		return fmt.Errorf("untag %s %d: %w", row.Kind(), id, err)
	}
	if err := tx.Delete(row).Error; err != nil {
		return fmt.Errorf("delete %s %d: %w", row.Kind(), id, err)
	}
	return nil
}

func getEntry[E any, P entryRow[E]](ctx context.Context, s *Service, userID, id uint) (P, error) {
	var out P
	err := s.read(ctx, func(db *gorm.DB) error {
		var err error
		out, err = loadEntry[E, P](db, userID, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func listEntries[E any, P entryRow[E]](ctx context.Context, s *Service, userID uint, f Filter) ([]E, int64, error) {
	t := tablesFor(P(new(E)).Kind())
	var (
		rows  []E
		total int64
	)
	err := s.read(ctx, func(db *gorm.DB) error {
		base := func() *gorm.DB {
			return db.Model(P(new(E))).Where(t.table+".user_id = ?", userID).Scopes(f.entries(t))
		}
		if err := base().Count(&total).Error; err != nil {
			return err
		}
		return base().
			Preload("Account").Preload("Category").Preload("Tags").
			Order(t.table + ".date DESC, " + t.table + ".id DESC").
			Scopes(f.paginate).
			Find(&rows).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func cloneEntry[E any, P entryRow[E]](ctx context.Context, s *Service, userID, id uint, date *time.Time) (P, error) {
	src, err := getEntry[E, P](ctx, s, userID, id)
	if err != nil {
		return nil, err
	}
	if isMarker(src) {
		return nil, protectedError()
	}

	t := src.Txn()
	in := TxnInput{
		AccountID:   t.AccountID,
		CategoryID:  t.CategoryID,
		Amount:      t.Amount,
		Description: t.Description,
		Date:        s.today(),
		Tags:        tagNames(src),
	}
	if date != nil {
		in.Date = *date
	}
	return createEntry[E, P](ctx, s, userID, in)
}

func bulkDelete[E any, P entryRow[E]](ctx context.Context, s *Service, userID uint, ids []uint) (BulkResult, error) {
	var res BulkResult
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		res = BulkResult{}
		for _, id := range uniqueIDs(ids) {
			err := deleteEntry[E, P](tx, userID, id)
			switch {
			case errors.Is(err, ErrProtected), errors.Is(err, ErrNotFound):
				res.Skipped++
			case err != nil:
				return err
			default:
				res.Deleted++
			}
		}
		return nil
	})
	if err != nil {
		return BulkResult{}, err
	}
	return res, nil
}

func bulkTag[E any, P entryRow[E]](ctx context.Context, s *Service, userID uint, ids, tagIDs []uint, remove bool) (int, error) {
	var n int
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		tags, err := ownedTags(tx, userID, tagIDs)
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			return invalid("tag_ids", "no tags selected")
		}
		var rows []E
		if len(ids) > 0 {
			if err := tx.Where("user_id = ? AND id IN ?", userID, uniqueIDs(ids)).Find(&rows).Error; err != nil {
				return err
			}
		}
		for i := range rows {
			assoc := tx.Model(P(&rows[i])).Association("Tags")
			if remove {
				err = assoc.Delete(tags)
			} else {
				err = assoc.Append(tags)
			}
			if err != nil {
				return fmt.Errorf("tag entries: %w", err)
			}
		}
		n = len(rows)
		return nil
	})
	return n, err
}

func loadEntry[E any, P entryRow[E]](tx *gorm.DB, userID, id uint, lock bool) (P, error) {
	row := P(new(E))
	q := tx.Preload("Account").Preload("Category").Preload("Tags")
	if lock {
		q = forUpdate(tx)
	}
	err := q.Where("id = ? AND user_id = ?", id, userID).First(row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s %d: %w", row.Kind(), id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func setTags(tx *gorm.DB, row any, tags []models.Tag) error {
	assoc := tx.Model(row).Association("Tags")
	var err error
	if len(tags) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(tags)
	}
	if err != nil {
		return fmt.Errorf("set tags: %w", err)
	}
	return nil
}

func tagNames(row any) []string {
	var tags []models.Tag
	switch e := row.(type) {
	case *models.Income:
		tags = e.Tags
	case *models.Expense:
		tags = e.Tags
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}

func isMarker(row any) bool {
	inc, ok := row.(*models.Income)
	return ok && inc.IsOpeningBalance
}

func protectedError() error {
	return &ValidationError{
		Message: "the opening balance entry can only be changed through its account",
		Err:     ErrProtected,
	}
}
