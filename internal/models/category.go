package models

import "time"

// CategoryType is income or expense. The sign of a ledger entry comes from
// its kind, never from its category.
type CategoryType string

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

// Category represents income/expense category.
type Category struct {
	ID          uint         `gorm:"primaryKey"`
	UserID      uint         `gorm:"index;not null"`
	Name        string       `gorm:"size:100;not null"`
	Type        CategoryType `gorm:"size:16;index;not null"`
	Description string       `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	User User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
