package models

import "time"

// MonthlyBudget caps spending for one expense category in one month.
// Month is always the first day of the month.
type MonthlyBudget struct {
	ID             uint      `gorm:"primaryKey"`
	UserID         uint      `gorm:"uniqueIndex:idx_budget_user_category_month;not null"`
	CategoryID     uint      `gorm:"uniqueIndex:idx_budget_user_category_month;not null"`
	Month          time.Time `gorm:"uniqueIndex:idx_budget_user_category_month;not null"`
	BudgetedAmount int64     `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Category *Category `gorm:"constraint:OnDelete:CASCADE"`
}
