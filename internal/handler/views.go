package handler

import (
	"finance-ledger/internal/ledger"
	"finance-ledger/internal/models"
	"finance-ledger/internal/util"

	"github.com/gin-gonic/gin"
)

func accountView(a *models.Account) gin.H {
	return gin.H{
		"id":                    a.ID,
		"name":                  a.Name,
		"type":                  a.Type,
		"balance":               util.FormatAmount(a.Balance),
		"balance_cents":         a.Balance,
		"opening_balance":       util.FormatAmount(a.OpeningBalance),
		"opening_balance_cents": a.OpeningBalance,
		"setup_date":            dateString(a.SetupDate),
		"bank_name":             a.BankName,
		"account_number":        a.AccountNumber,
		"is_active":             a.IsActive,
		"created_at":            a.CreatedAt,
	}
}

func categoryView(cat *models.Category) gin.H {
	return gin.H{
		"id":          cat.ID,
		"name":        cat.Name,
		"type":        cat.Type,
		"description": cat.Description,
	}
}

func tagView(t *models.Tag) gin.H {
	return gin.H{"id": t.ID, "name": t.Name, "color": t.Color}
}

func txnView(t *models.Transaction, acct *models.Account, cat *models.Category, tags []models.Tag) gin.H {
	v := gin.H{
		"id":           t.ID,
		"amount":       util.FormatAmount(t.Amount),
		"amount_cents": t.Amount,
		"description":  t.Description,
		"date":         dateString(t.Date),
		"account_id":   t.AccountID,
		"category_id":  t.CategoryID,
		"account":      nil,
		"category":     nil,
		"created_at":   t.CreatedAt,
	}
	if acct != nil {
		v["account"] = gin.H{"id": acct.ID, "name": acct.Name}
	}
	if cat != nil {
		v["category"] = gin.H{"id": cat.ID, "name": cat.Name}
	}
	tv := make([]gin.H, 0, len(tags))
	for i := range tags {
		tv = append(tv, tagView(&tags[i]))
	}
	v["tags"] = tv
	return v
}

func incomeView(in *models.Income) gin.H {
	v := txnView(&in.Transaction, in.Account, in.Category, in.Tags)
	v["is_opening_balance"] = in.IsOpeningBalance
	return v
}

func expenseView(ex *models.Expense) gin.H {
	return txnView(&ex.Transaction, ex.Account, ex.Category, ex.Tags)
}

func transferView(t *models.Transfer) gin.H {
	v := gin.H{
		"id":              t.ID,
		"from_account_id": t.FromAccountID,
		"to_account_id":   t.ToAccountID,
		"amount":          util.FormatAmount(t.Amount),
		"amount_cents":    t.Amount,
		"description":     t.Description,
		"date":            dateString(t.Date),
		"created_at":      t.CreatedAt,
	}
	if t.FromAccount != nil {
		v["from_account"] = gin.H{"id": t.FromAccount.ID, "name": t.FromAccount.Name}
	}
	if t.ToAccount != nil {
		v["to_account"] = gin.H{"id": t.ToAccount.ID, "name": t.ToAccount.Name}
	}
	return v
}

func budgetView(p *ledger.BudgetProgress) gin.H {
	v := gin.H{
		"id":              p.Budget.ID,
		"category_id":     p.Budget.CategoryID,
		"month":           p.Budget.Month.Format("2006-01"),
		"budgeted_amount": util.FormatAmount(p.Budget.BudgetedAmount),
		"spent":           util.FormatAmount(p.Spent),
		"remaining":       util.FormatAmount(p.Remaining),
		"percentage":      p.Percentage,
	}
	if p.Budget.Category != nil {
		v["category"] = gin.H{"id": p.Budget.Category.ID, "name": p.Budget.Category.Name}
	}
	return v
}
