package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finance-ledger/internal/models"
	"finance-ledger/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CategoryInput creates or replaces a category.
type CategoryInput struct {
	Name        string
	Type        models.CategoryType
	Description string
}

func (in *CategoryInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if err := util.ValidateName(in.Name, 100); err != nil {
		return invalid("name", "%s", err.Error())
	}
	if in.Type != models.CategoryIncome && in.Type != models.CategoryExpense {
		return invalid("type", "category type must be income or expense")
	}
	return nil
}

// EnsureOpeningBalanceCategory returns the user's opening-balance category,
// creating it on first use.
func (s *Service) EnsureOpeningBalanceCategory(ctx context.Context, userID uint) (*models.Category, error) {
	var cat *models.Category
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		var err error
		cat, err = s.ensureOpeningCategory(tx, userID)
		return err
	})
	return cat, err
}

// ensureOpeningCategory get-or-creates the opening-balance category and
// forces its type back to income if someone changed it.
func (s *Service) ensureOpeningCategory(tx *gorm.DB, userID uint) (*models.Category, error) {
	var cat models.Category
	err := tx.Where("user_id = ? AND name = ?", userID, s.openingCategory).Order("id").First(&cat).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		cat = models.Category{
			UserID:      userID,
			Name:        s.openingCategory,
			Type:        models.CategoryIncome,
			Description: "Initial balances of bank accounts",
		}
		if err := tx.Omit(clause.Associations).Create(&cat).Error; err != nil {
			return nil, fmt.Errorf("create opening balance category: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("find opening balance category: %w", err)
	case cat.Type != models.CategoryIncome:
		if err := tx.Model(&cat).Update("type", models.CategoryIncome).Error; err != nil {
			return nil, fmt.Errorf("fix opening balance category: %w", err)
		}
	}
	return &cat, nil
}

func (s *Service) CreateCategory(ctx context.Context, userID uint, in CategoryInput) (*models.Category, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	cat := models.Category{
		UserID:      userID,
		Name:        in.Name,
		Type:        in.Type,
		Description: strings.TrimSpace(in.Description),
	}
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&cat).Error
	})
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// UpdateCategory replaces a category's fields. Budgets only apply to
// expense categories, so a budgeted category keeps its type.
func (s *Service) UpdateCategory(ctx context.Context, userID, id uint, in CategoryInput) (*models.Category, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var cat models.Category
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		if err := ownedCategory(forUpdate(tx), userID, id, &cat); err != nil {
			return err
		}
		if cat.Type == models.CategoryExpense && in.Type != models.CategoryExpense {
			var budgets int64
			if err := tx.Model(&models.MonthlyBudget{}).Where("category_id = ?", id).Count(&budgets).Error; err != nil {
				return fmt.Errorf("count budgets: %w", err)
			}
			if budgets > 0 {
				return invalid("type", "category has budgets; delete them before changing its type")
			}
		}
		cat.Name = in.Name
		cat.Type = in.Type
		cat.Description = strings.TrimSpace(in.Description)
		return tx.Model(&cat).Select("name", "type", "description").Updates(&cat).Error
	})
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// DeleteCategory removes a category. Its entries stay, uncategorized, and
// its budgets go with it.
func (s *Service) DeleteCategory(ctx context.Context, userID, id uint) error {
	return s.atomic(ctx, func(tx *gorm.DB) error {
		var cat models.Category
		if err := ownedCategory(forUpdate(tx), userID, id, &cat); err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Delete(&models.MonthlyBudget{}).Error; err != nil {
			return fmt.Errorf("delete budgets: %w", err)
		}
		for _, m := range []any{&models.Income{}, &models.Expense{}} {
			if err := tx.Model(m).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
				return fmt.Errorf("detach entries: %w", err)
			}
		}
		return tx.Delete(&cat).Error
	})
}

func (s *Service) GetCategory(ctx context.Context, userID, id uint) (*models.Category, error) {
	var cat models.Category
	if err := s.read(ctx, func(db *gorm.DB) error { return ownedCategory(db, userID, id, &cat) }); err != nil {
		return nil, err
	}
	return &cat, nil
}

// ListCategories returns the user's categories, optionally of one type.
func (s *Service) ListCategories(ctx context.Context, userID uint, typ models.CategoryType) ([]models.Category, error) {
	var cats []models.Category
	err := s.read(ctx, func(db *gorm.DB) error {
		q := db.Where("user_id = ?", userID)
		if typ != "" {
			q = q.Where("type = ?", typ)
		}
		return q.Order("type ASC, name ASC").Find(&cats).Error
	})
	return cats, err
}

func ownedCategory(db *gorm.DB, userID, id uint, dst *models.Category) error {
	err := db.Where("id = ? AND user_id = ?", id, userID).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return err
}
