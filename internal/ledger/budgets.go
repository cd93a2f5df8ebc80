package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance-ledger/internal/models"
	"finance-ledger/internal/util"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BudgetInput creates or replaces a monthly budget. Month may be any day of
// the month.
type BudgetInput struct {
	CategoryID uint
	Month      time.Time
	Amount     int64
}

// BudgetProgress is a budget with what has been spent against it.
type BudgetProgress struct {
	Budget     models.MonthlyBudget `json:"budget"`
	Spent      int64                `json:"spent"`
	Remaining  int64                `json:"remaining"`
	Percentage float64              `json:"percentage"`
}

func newProgress(b models.MonthlyBudget, spent int64) BudgetProgress {
	return BudgetProgress{
		Budget:     b,
		Spent:      spent,
		Remaining:  b.BudgetedAmount - spent,
		Percentage: percentage(spent, b.BudgetedAmount),
	}
}

// percentage is spent/budgeted in percent, two decimals; zero when nothing
// is budgeted.
func percentage(spent, budgeted int64) float64 {
	if budgeted <= 0 {
		return 0
	}
	return decimal.NewFromInt(spent).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(budgeted), 2).
		InexactFloat64()
}

func (s *Service) validateBudget(tx *gorm.DB, userID uint, in BudgetInput, selfID uint) error {
	if in.Amount < 0 || in.Amount >= util.MaxAmount {
		return invalid("budgeted_amount", "budgeted amount out of range")
	}
	if in.Month.IsZero() {
		return invalid("month", "month is required")
	}
	var cat models.Category
	if err := ownedCategory(tx, userID, in.CategoryID, &cat); err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid("category_id", "category not found")
		}
		return err
	}
	if cat.Type != models.CategoryExpense {
		return invalid("category_id", "budgets need an expense category")
	}

	var n int64
	err := tx.Model(&models.MonthlyBudget{}).
		Where("user_id = ? AND category_id = ? AND month = ? AND id <> ?", userID, in.CategoryID, util.MonthStart(in.Month), selfID).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n > 0 {
		return invalid("category_id", "a budget for %s in %s already exists", cat.Name, in.Month.Format("2006-01"))
	}
	return nil
}

func (s *Service) CreateBudget(ctx context.Context, userID uint, in BudgetInput) (*BudgetProgress, error) {
	var out BudgetProgress
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		if err := s.validateBudget(tx, userID, in, 0); err != nil {
			return err
		}
		b := models.MonthlyBudget{
			UserID:         userID,
			CategoryID:     in.CategoryID,
			Month:          util.MonthStart(in.Month),
			BudgetedAmount: in.Amount,
		}
		if err := tx.Omit(clause.Associations).Create(&b).Error; err != nil {
			return fmt.Errorf("create budget: %w", err)
		}
		var err error
		out, err = budgetProgress(tx, userID, b.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) UpdateBudget(ctx context.Context, userID, id uint, in BudgetInput) (*BudgetProgress, error) {
	var out BudgetProgress
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		var b models.MonthlyBudget
		if err := ownedBudget(forUpdate(tx), userID, id, &b); err != nil {
			return err
		}
		if err := s.validateBudget(tx, userID, in, id); err != nil {
			return err
		}
		b.CategoryID = in.CategoryID
		b.Month = util.MonthStart(in.Month)
		b.BudgetedAmount = in.Amount
		if err := tx.Model(&b).Select("category_id", "month", "budgeted_amount").Updates(&b).Error; err != nil {
			return fmt.Errorf("update budget: %w", err)
		}
		var err error
		out, err = budgetProgress(tx, userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) DeleteBudget(ctx context.Context, userID, id uint) error {
	return s.atomic(ctx, func(tx *gorm.DB) error {
		var b models.MonthlyBudget
		if err := ownedBudget(forUpdate(tx), userID, id, &b); err != nil {
			return err
		}
		return tx.Delete(&b).Error
	})
}

func (s *Service) GetBudget(ctx context.Context, userID, id uint) (*BudgetProgress, error) {
	var out BudgetProgress
	err := s.read(ctx, func(db *gorm.DB) error {
		var err error
		out, err = budgetProgress(db, userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBudgets returns the budgets of month with their progress, ordered by
// category name.
func (s *Service) ListBudgets(ctx context.Context, userID uint, month time.Time) ([]BudgetProgress, error) {
	var out []BudgetProgress
	err := s.read(ctx, func(db *gorm.DB) error {
		var budgets []models.MonthlyBudget
		err := db.Preload("Category").
			Joins("JOIN categories ON categories.id = monthly_budgets.category_id").
			Where("monthly_budgets.user_id = ? AND monthly_budgets.month = ?", userID, util.MonthStart(month)).
			Order("categories.name ASC").
			Find(&budgets).Error
		if err != nil {
			return err
		}
		out = make([]BudgetProgress, 0, len(budgets))
		for _, b := range budgets {
			spent, err := spentInMonth(db, userID, b.CategoryID, b.Month)
			if err != nil {
				return err
			}
			out = append(out, newProgress(b, spent))
		}
		return nil
	})
	return out, err
}

// CopyPreviousBudgets copies last month's budgets into month. It refuses
// when month already has budgets and returns how many were copied.
func (s *Service) CopyPreviousBudgets(ctx context.Context, userID uint, month time.Time) (int, error) {
	target := util.MonthStart(month)
	prev := target.AddDate(0, -1, 0)

	var copied int
	err := s.atomic(ctx, func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.MonthlyBudget{}).Where("user_id = ? AND month = ?", userID, target).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return invalid("month", "%s already has budgets", target.Format("2006-01"))
		}

		var previous []models.MonthlyBudget
		if err := tx.Where("user_id = ? AND month = ?", userID, prev).Order("id").Find(&previous).Error; err != nil {
			return err
		}
		if len(previous) == 0 {
			return invalid("month", "no budgets in %s to copy", prev.Format("2006-01"))
		}
		for _, b := range previous {
			nb := models.MonthlyBudget{
				UserID:         userID,
				CategoryID:     b.CategoryID,
				Month:          target,
				BudgetedAmount: b.BudgetedAmount,
			}
			if err := tx.Omit(clause.Associations).Create(&nb).Error; err != nil {
				return fmt.Errorf("copy budget: %w", err)
			}
		}
		copied = len(previous)
		return nil
	})
	return copied, err
}

func budgetProgress(db *gorm.DB, userID, id uint) (BudgetProgress, error) {
	var b models.MonthlyBudget
	if err := ownedBudget(db.Preload("Category"), userID, id, &b); err != nil {
		return BudgetProgress{}, err
	}
	spent, err := spentInMonth(db, userID, b.CategoryID, b.Month)
	if err != nil {
		return BudgetProgress{}, err
	}
	return newProgress(b, spent), nil
}

func spentInMonth(db *gorm.DB, userID, categoryID uint, month time.Time) (int64, error) {
	var spent int64
	err := db.Model(&models.Expense{}).
		Where("user_id = ? AND category_id = ? AND date >= ? AND date <= ?",
			userID, categoryID, util.MonthStart(month), util.MonthEnd(month)).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&spent).Error
	if err != nil {
		return 0, fmt.Errorf("sum spending: %w", err)
	}
	return spent, nil
}

func ownedBudget(db *gorm.DB, userID, id uint, dst *models.MonthlyBudget) error {
	err := db.Where("monthly_budgets.id = ? AND monthly_budgets.user_id = ?", id, userID).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("budget %d: %w", id, ErrNotFound)
	}
	return err
}
