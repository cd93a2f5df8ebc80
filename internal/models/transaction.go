package models

import "time"

// Kind tells incomes and expenses apart.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Transaction holds the columns shared by Income and Expense. Amount is an
// unsigned magnitude in cents; the kind decides whether it adds or subtracts.
// AccountID and CategoryID become NULL when the referenced row is deleted.
type Transaction struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"index;not null"`
	AccountID   *uint     `gorm:"index"`
	CategoryID  *uint     `gorm:"index"`
	Amount      int64     `gorm:"not null"`
	Description string    `gorm:"type:text"`
	Date        time.Time `gorm:"index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Txn gives generic code access to the shared columns.
func (t *Transaction) Txn() *Transaction { return t }

// Income adds to its account's balance. Exactly one income per account may
// carry IsOpeningBalance; that row materializes the account's opening balance.
type Income struct {
	Transaction
	IsOpeningBalance bool `gorm:"index;not null;default:false"`

	Account  *Account  `gorm:"constraint:OnDelete:SET NULL"`
	Category *Category `gorm:"constraint:OnDelete:SET NULL"`
	Tags     []Tag     `gorm:"many2many:income_tags;constraint:OnDelete:CASCADE"`
}

func (*Income) Kind() Kind { return KindIncome }

// Expense subtracts from its account's balance.
type Expense struct {
	Transaction

	Account  *Account  `gorm:"constraint:OnDelete:SET NULL"`
	Category *Category `gorm:"constraint:OnDelete:SET NULL"`
	Tags     []Tag     `gorm:"many2many:expense_tags;constraint:OnDelete:CASCADE"`
}

func (*Expense) Kind() Kind { return KindExpense }
