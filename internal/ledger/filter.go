package ledger

import (
	"time"

	"finance-ledger/internal/models"

	"gorm.io/gorm"
)

// Filter narrows lists and reports. Zero fields do not filter. TagIDs
// matches entries carrying any of the tags.
type Filter struct {
	From       *time.Time
	To         *time.Time
	AccountID  *uint
	CategoryID *uint
	TagIDs     []uint
	Page       int
	PageSize   int
}

type entryTables struct {
	table string
	join  string
	fk    string
}

func tablesFor(kind models.Kind) entryTables {
	if kind == models.KindIncome {
		return entryTables{table: "incomes", join: "income_tags", fk: "income_id"}
	}
	return entryTables{table: "expenses", join: "expense_tags", fk: "expense_id"}
}

func (f Filter) entries(t entryTables) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.From != nil {
			q = q.Where(t.table+".date >= ?", *f.From)
		}
		if f.To != nil {
			q = q.Where(t.table+".date <= ?", *f.To)
		}
		if f.AccountID != nil {
			q = q.Where(t.table+".account_id = ?", *f.AccountID)
		}
		if f.CategoryID != nil {
			q = q.Where(t.table+".category_id = ?", *f.CategoryID)
		}
		if len(f.TagIDs) > 0 {
			q = q.Where(t.table+".id IN (SELECT "+t.fk+" FROM "+t.join+" WHERE tag_id IN ?)", f.TagIDs)
		}
		return q
	}
}

func (f Filter) transfers(q *gorm.DB) *gorm.DB {
	if f.From != nil {
		q = q.Where("transfers.date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("transfers.date <= ?", *f.To)
	}
	if f.AccountID != nil {
		q = q.Where("transfers.from_account_id = ? OR transfers.to_account_id = ?", *f.AccountID, *f.AccountID)
	}
	return q
}

func (f Filter) paginate(q *gorm.DB) *gorm.DB {
	if f.PageSize <= 0 {
		return q
	}
	page := max(f.Page, 1)
	return q.Offset((page - 1) * f.PageSize).Limit(f.PageSize)
}
