package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"unicode"
	"unicode/utf8"

	"finance-ledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagPalette holds the colors new tags are painted with.
var TagPalette = []string{
	"#ef4444", "#f97316", "#f59e0b", "#84cc16", "#10b981",
	"#06b6d4", "#3b82f6", "#6366f1", "#8b5cf6", "#ec4899",
}

// NormalizeTagName capitalizes the first letter of every word and removes
// the spaces between words: "monthly bills" becomes "MonthlyBills".
func NormalizeTagName(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r, size := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(word[size:])
	}
	return b.String()
}

func randomColor() string {
	return TagPalette[rand.Intn(len(TagPalette))]
}

// TagUsage is a tag with the number of entries carrying it.
type TagUsage struct {
	models.Tag
	IncomeCount  int64 `json:"income_count"`
	ExpenseCount int64 `json:"expense_count"`
}

func normalizedTag(name string) (string, error) {
	n := NormalizeTagName(name)
	if n == "" {
		return "", invalid("name", "tag name is empty")
	}
	if utf8.RuneCountInString(n) > 50 {
		return "", invalid("name", "tag name too long, max 50 characters")
	}
	return n, nil
}

func findTagByName(tx *gorm.DB, userID uint, name string, dst *models.Tag) error {
	return tx.Where("user_id = ? AND LOWER(name) = LOWER(?)", userID, name).First(dst).Error
}

func (s *Service) CreateTag(ctx context.Context, userID uint, name string) (*models.Tag, error) {
	n, err := normalizedTag(name)
	if err != nil {
		return nil, err
	}
	tag := models.Tag{UserID: userID, Name: n, Color: randomColor()}
	err = s.atomic(ctx, func(tx *gorm.DB) error {
		var existing models.Tag
		err := findTagByName(tx, userID, n, &existing)
		if err == nil {
			return invalid("name", "tag %q already exists", n)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&tag).Error
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// RenameTag re-normalizes name and rejects it when another tag already
// uses it.
func (s *Service) RenameTag(ctx context.Context, userID, id uint, name string) (*models.Tag, error) {
	n, err := normalizedTag(name)
	if err != nil {
		return nil, err
	}
	var tag models.Tag
	err = s.atomic(ctx, func(tx *gorm.DB) error {
		if err := ownedTag(forUpdate(tx), userID, id, &tag); err != nil {
			return err
		}
		var existing models.Tag
		err := findTagByName(tx, userID, n, &existing)
		if err == nil && existing.ID != tag.ID {
			return invalid("name", "tag %q already exists", n)
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		tag.Name = n
		return tx.Model(&tag).Update("name", n).Error
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// DeleteTag removes a tag from every entry and deletes it.
func (s *Service) DeleteTag(ctx context.Context, userID, id uint) error {
	return s.atomic(ctx, func(tx *gorm.DB) error {
		var tag models.Tag
		if err := ownedTag(forUpdate(tx), userID, id, &tag); err != nil {
			return err
		}
		for _, join := range []string{"income_tags", "expense_tags"} {
			if err := tx.Exec("DELETE FROM "+join+" WHERE tag_id = ?", id).Error; err != nil {
				return fmt.Errorf("untag %s: %w", join, err)
			}
		}
		return tx.Delete(&tag).Error
	})
}

// ListTags returns the user's tags by name with their usage counts.
func (s *Service) ListTags(ctx context.Context, userID uint) ([]TagUsage, error) {
	var out []TagUsage
	err := s.read(ctx, func(db *gorm.DB) error {
		var tags []models.Tag
		if err := db.Where("user_id = ?", userID).Order("name ASC").Find(&tags).Error; err != nil {
			return err
		}
		incomes, err := tagCounts(db, "income_tags")
		if err != nil {
			return err
		}
		expenses, err := tagCounts(db, "expense_tags")
		if err != nil {
			return err
		}
		out = make([]TagUsage, 0, len(tags))
		for _, t := range tags {
			out = append(out, TagUsage{Tag: t, IncomeCount: incomes[t.ID], ExpenseCount: expenses[t.ID]})
		}
		return nil
	})
	return out, err
}

func tagCounts(db *gorm.DB, join string) (map[uint]int64, error) {
	var rows []struct {
		TagID uint
		N     int64
	}
	err := db.Table(join).Select("tag_id, COUNT(*) AS n").Group("tag_id").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", join, err)
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.TagID] = r.N
	}
	return counts, nil
}

// resolveTags maps tag names to the user's tags, creating missing ones.
// Duplicates after normalization collapse into one tag.
func resolveTags(tx *gorm.DB, userID uint, names []string) ([]models.Tag, error) {
	var tags []models.Tag
	seen := make(map[string]bool)
	for _, name := range names {
		n := NormalizeTagName(name)
		if n == "" || seen[strings.ToLower(n)] {
			continue
		}
		seen[strings.ToLower(n)] = true

		var tag models.Tag
		err := findTagByName(tx, userID, n, &tag)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if utf8.RuneCountInString(n) > 50 {
				return nil, invalid("tags", "tag %q too long, max 50 characters", n)
			}
			tag = models.Tag{UserID: userID, Name: n, Color: randomColor()}
			err = tx.Omit(clause.Associations).Create(&tag).Error
		}
		if err != nil {
			return nil, fmt.Errorf("resolve tag %q: %w", n, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// ownedTags loads tags by id and fails unless all of them belong to userID.
func ownedTags(tx *gorm.DB, userID uint, ids []uint) ([]models.Tag, error) {
	var tags []models.Tag
	if len(ids) == 0 {
		return tags, nil
	}
	if err := tx.Where("user_id = ? AND id IN ?", userID, ids).Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(uniqueIDs(ids)) {
		return nil, invalid("tag_ids", "unknown tag")
	}
	return tags, nil
}

func ownedTag(db *gorm.DB, userID, id uint, dst *models.Tag) error {
	err := db.Where("id = ? AND user_id = ?", id, userID).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("tag %d: %w", id, ErrNotFound)
	}
	return err
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
