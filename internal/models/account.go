package models

import "time"

// AccountType classifies a bank account.
type AccountType string

const (
	AccountSavings    AccountType = "savings"
	AccountChecking   AccountType = "checking"
	AccountCredit     AccountType = "credit"
	AccountCash       AccountType = "cash"
	AccountInvestment AccountType = "investment"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountSavings, AccountChecking, AccountCredit, AccountCash, AccountInvestment:
		return true
	}
	return false
}

// Account is a bank account. Balance always equals the sum of every income,
// expense and transfer leg recorded against it, the opening-balance income
// included. All amounts are stored in cents.
type Account struct {
	ID             uint        `gorm:"primaryKey"`
	UserID         uint        `gorm:"index;not null"`
	Name           string      `gorm:"size:100;not null"`
	Type           AccountType `gorm:"size:20;index;not null"`
	Balance        int64       `gorm:"not null;default:0"`
	OpeningBalance int64       `gorm:"not null;default:0"`
	SetupDate      time.Time   `gorm:"index;not null"` // opening balance is effective as of this date
	BankName       string      `gorm:"size:100"`
	AccountNumber  string      `gorm:"size:50"`
	IsActive       bool        `gorm:"index;not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	User User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
