package models

import "time"

// Transfer moves Amount (cents, unsigned) from one account to another.
type Transfer struct {
	ID            uint      `gorm:"primaryKey"`
	UserID        uint      `gorm:"index;not null"`
	FromAccountID uint      `gorm:"index;not null"`
	ToAccountID   uint      `gorm:"index;not null"`
	Amount        int64     `gorm:"not null"`
	Description   string    `gorm:"type:text"`
	Date          time.Time `gorm:"index;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	FromAccount *Account `gorm:"foreignKey:FromAccountID;constraint:OnDelete:CASCADE"`
	ToAccount   *Account `gorm:"foreignKey:ToAccountID;constraint:OnDelete:CASCADE"`
}
