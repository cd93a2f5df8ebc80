package models

import "time"

// Tag labels incomes and expenses. Name is stored normalized and is unique
// per user regardless of case.
type Tag struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"uniqueIndex:idx_tags_user_name;not null"`
	Name      string `gorm:"size:50;uniqueIndex:idx_tags_user_name;not null"`
	Color     string `gorm:"size:16;not null"`
	CreatedAt time.Time
}
