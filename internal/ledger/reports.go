package ledger

import (
	"context"
	"fmt"
	"time"

	"finance-ledger/internal/models"
	"finance-ledger/internal/util"

	"gorm.io/gorm"
)

// CategoryTotal is the sum of one category's entries. A nil CategoryID
// collects uncategorized entries.
type CategoryTotal struct {
	CategoryID *uint  `json:"category_id"`
	Name       string `json:"name"`
	Total      int64  `json:"total"`
}

// Summary aggregates incomes and expenses matching a Filter.
type Summary struct {
	TotalIncome       int64           `json:"total_income"`
	TotalExpense      int64           `json:"total_expense"`
	Net               int64           `json:"net"`
	IncomeByCategory  []CategoryTotal `json:"income_by_category"`
	ExpenseByCategory []CategoryTotal `json:"expense_by_category"`
}

// BudgetLine compares a month's spending in one expense category with its
// budget. Budgeted and Remaining are nil when the category has no budget.
type BudgetLine struct {
	CategoryID uint     `json:"category_id"`
	Name       string   `json:"name"`
	Spent      int64    `json:"spent"`
	Budgeted   *int64   `json:"budgeted"`
	Remaining  *int64   `json:"remaining"`
	Percentage *float64 `json:"percentage"`
}

// MonthlySummary is the month report: totals, budgets, money moved into
// investment accounts and month-end balances.
type MonthlySummary struct {
	Month       time.Time    `json:"month"`
	Summary     Summary      `json:"summary"`
	Budgets     []BudgetLine `json:"budgets"`
	Investments int64        `json:"investments"`
	NetWorth    *NetWorth    `json:"net_worth"`
}

// Summary totals the user's incomes and expenses matching f. Opening
// balances are not income and are left out. Paging fields of f are ignored.
func (s *Service) Summary(ctx context.Context, userID uint, f Filter) (*Summary, error) {
	var out *Summary
	err := s.read(ctx, func(db *gorm.DB) error {
		var err error
		out, err = summarize(db, userID, f)
		return err
	})
	return out, err
}

func summarize(db *gorm.DB, userID uint, f Filter) (*Summary, error) {
	incomes, err := categoryTotals(db, userID, f, tablesFor(models.KindIncome))
	if err != nil {
		return nil, err
	}
	expenses, err := categoryTotals(db, userID, f, tablesFor(models.KindExpense))
	if err != nil {
		return nil, err
	}
	sum := &Summary{IncomeByCategory: incomes, ExpenseByCategory: expenses}
	for _, c := range incomes {
		sum.TotalIncome += c.Total
	}
	for _, c := range expenses {
		sum.TotalExpense += c.Total
	}
	sum.Net = sum.TotalIncome - sum.TotalExpense
	return sum, nil
}

func categoryTotals(db *gorm.DB, userID uint, f Filter, t entryTables) ([]CategoryTotal, error) {
	q := db.Table(t.table)
	if t.table == "incomes" {
		q = q.Where("incomes.is_opening_balance = ?", false)
	}
	var rows []CategoryTotal
	err := q.
		Select(t.table+".category_id AS category_id, COALESCE(categories.name, 'Uncategorized') AS name, SUM("+t.table+".amount) AS total").
		Joins("LEFT JOIN categories ON categories.id = "+t.table+".category_id").
		Where(t.table+".user_id = ?", userID).
		Scopes(f.entries(t)).
		Group(t.table + ".category_id, categories.name").
		Order("total DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sum %s by category: %w", t.table, err)
	}
	if rows == nil {
		rows = []CategoryTotal{}
	}
	return rows, nil
}

// MonthlySummary reports on one calendar month. tagIDs narrows the totals
// and budget spending to entries carrying any of the tags. Opening-balance
// entries count toward NetWorth but never toward the income totals or
// Investments.
func (s *Service) MonthlySummary(ctx context.Context, userID uint, month time.Time, tagIDs []uint) (*MonthlySummary, error) {
	start, end := util.MonthStart(month), util.MonthEnd(month)
	f := Filter{From: &start, To: &end, TagIDs: tagIDs}

	out := &MonthlySummary{Month: start}
	err := s.read(ctx, func(db *gorm.DB) error {
		sum, err := summarize(db, userID, f)
		if err != nil {
			return err
		}
		out.Summary = *sum

		if out.Budgets, err = budgetLines(db, userID, start, sum.ExpenseByCategory); err != nil {
			return err
		}
		if out.Investments, err = investments(db, userID, start, end); err != nil {
			return err
		}
		out.NetWorth, err = netWorthAsOf(db, userID, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MonthTotals is one month's row in an AnnualSummary.
type MonthTotals struct {
	Month       time.Time `json:"month"`
	Income      int64     `json:"income"`
	Expense     int64     `json:"expense"`
	Savings     int64     `json:"savings"`
	Investments int64     `json:"investments"`
}

// AnnualSummary is the year report: totals per category, a month by month
// breakdown and the year-end balances.
type AnnualSummary struct {
	Year        int           `json:"year"`
	Summary     Summary       `json:"summary"`
	Savings     int64         `json:"savings"`
	Investments int64         `json:"investments"`
	Months      []MonthTotals `json:"months"`
	NetWorth    *NetWorth     `json:"net_worth"`
}

// AnnualSummary reports on one calendar year, with the same exclusions as
// MonthlySummary. tagIDs narrows the income and expense figures. NetWorth
// is taken at December 31 over the accounts set up by then.
func (s *Service) AnnualSummary(ctx context.Context, userID uint, year int, tagIDs []uint) (*AnnualSummary, error) {
	if year < 1900 || year > 9999 {
		return nil, invalid("year", "year must be between 1900 and 9999")
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	out := &AnnualSummary{Year: year, Months: make([]MonthTotals, 0, 12)}
	err := s.read(ctx, func(db *gorm.DB) error {
		sum, err := summarize(db, userID, Filter{From: &start, To: &end, TagIDs: tagIDs})
		if err != nil {
			return err
		}
		out.Summary = *sum
		out.Savings = sum.TotalIncome - sum.TotalExpense

		for m := start; m.Year() == year; m = m.AddDate(0, 1, 0) {
			from, to := util.MonthStart(m), util.MonthEnd(m)
			ms, err := summarize(db, userID, Filter{From: &from, To: &to, TagIDs: tagIDs})
			if err != nil {
				return err
			}
			inv, err := investments(db, userID, from, to)
			if err != nil {
				return err
			}
			out.Investments += inv
			out.Months = append(out.Months, MonthTotals{
				Month:       from,
				Income:      ms.TotalIncome,
				Expense:     ms.TotalExpense,
				Savings:     ms.TotalIncome - ms.TotalExpense,
				Investments: inv,
			})
		}

		out.NetWorth, err = netWorthAsOf(db, userID, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// budgetLines lists every expense category that either had spending or a
// budget in the month.
func budgetLines(db *gorm.DB, userID uint, month time.Time, spent []CategoryTotal) ([]BudgetLine, error) {
	var budgets []models.MonthlyBudget
	if err := db.Preload("Category").Where("user_id = ? AND month = ?", userID, month).Find(&budgets).Error; err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}

	lines := make([]BudgetLine, 0, len(spent)+len(budgets))
	index := make(map[uint]int)
	for _, c := range spent {
		if c.CategoryID == nil {
			continue
		}
		index[*c.CategoryID] = len(lines)
		lines = append(lines, BudgetLine{CategoryID: *c.CategoryID, Name: c.Name, Spent: c.Total})
	}
	for _, b := range budgets {
		i, ok := index[b.CategoryID]
		if !ok {
			name := ""
			if b.Category != nil {
				name = b.Category.Name
			}
			i = len(lines)
			lines = append(lines, BudgetLine{CategoryID: b.CategoryID, Name: name})
		}
		budgeted := b.BudgetedAmount
		remaining := budgeted - lines[i].Spent
		pct := percentage(lines[i].Spent, budgeted)
		lines[i].Budgeted = &budgeted
		lines[i].Remaining = &remaining
		lines[i].Percentage = &pct
	}
	return lines, nil
}

// investments is the money that reached investment accounts in the month,
// as income or as transfers in.
func investments(db *gorm.DB, userID uint, start, end time.Time) (int64, error) {
	var incomeTotal, transferTotal int64
	err := db.Table("incomes").
		Joins("JOIN accounts ON accounts.id = incomes.account_id").
		Where("incomes.user_id = ? AND accounts.type = ? AND incomes.is_opening_balance = ? AND incomes.date >= ? AND incomes.date <= ?",
			userID, models.AccountInvestment, false, start, end).
		Select("COALESCE(SUM(incomes.amount), 0)").
		Scan(&incomeTotal).Error
	if err != nil {
		return 0, fmt.Errorf("sum investment income: %w", err)
	}
	err = db.Table("transfers").
		Joins("JOIN accounts ON accounts.id = transfers.to_account_id").
		Where("transfers.user_id = ? AND accounts.type = ? AND transfers.date >= ? AND transfers.date <= ?",
			userID, models.AccountInvestment, start, end).
		Select("COALESCE(SUM(transfers.amount), 0)").
		Scan(&transferTotal).Error
	if err != nil {
		return 0, fmt.Errorf("sum investment transfers: %w", err)
	}
	return incomeTotal + transferTotal, nil
}
