package handler

import (
	"net/http"
	"strconv"

	"finance-ledger/internal/ledger"
	"finance-ledger/internal/util"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves the read-only reports and the reconcile endpoint.
type ReportHandler struct {
	Ledger         *ledger.Service
	NetWorthMonths int
}

func NewReportHandler(svc *ledger.Service, netWorthMonths int) *ReportHandler {
	return &ReportHandler{Ledger: svc, NetWorthMonths: netWorthMonths}
}

func categoryTotalsView(rows []ledger.CategoryTotal) []gin.H {
	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		out = append(out, gin.H{
			"category_id": r.CategoryID,
			"name":        r.Name,
			"total":       util.FormatAmount(r.Total),
		})
	}
	return out
}

func summaryView(s *ledger.Summary) gin.H {
	return gin.H{
		"total_income":        util.FormatAmount(s.TotalIncome),
		"total_expense":       util.FormatAmount(s.TotalExpense),
		"net":                 util.FormatAmount(s.Net),
		"income_by_category":  categoryTotalsView(s.IncomeByCategory),
		"expense_by_category": categoryTotalsView(s.ExpenseByCategory),
	}
}

func netWorthView(nw *ledger.NetWorth) gin.H {
	accounts := make([]gin.H, 0, len(nw.Accounts))
	for _, a := range nw.Accounts {
		accounts = append(accounts, gin.H{
			"account_id": a.AccountID,
			"name":       a.Name,
			"type":       a.Type,
			"balance":    util.FormatAmount(a.Balance),
		})
	}
	return gin.H{
		"date":     dateString(nw.Date),
		"total":    util.FormatAmount(nw.Total),
		"accounts": accounts,
	}
}

func pointsView(points []ledger.BalancePoint) []gin.H {
	out := make([]gin.H, 0, len(points))
	for _, p := range points {
		out = append(out, gin.H{
			"date":          dateString(p.Date),
			"balance":       util.FormatAmount(p.Balance),
			"balance_cents": p.Balance,
		})
	}
	return out
}

// Summary takes the same filters as the entry lists.
func (h *ReportHandler) Summary(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	f, ok := filterFromQuery(c, 1)
	if !ok {
		return
	}
	s, err := h.Ledger.Summary(c.Request.Context(), user.ID, f)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"summary": summaryView(s)})
}

// Monthly reports on ?month=YYYY-MM, optionally narrowed by ?tags=.
func (h *ReportHandler) Monthly(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	month, ok := monthField(c, "month", c.Query("month"))
	if !ok {
		return
	}
	tags, ok := idList(c, "tags")
	if !ok {
		return
	}
	m, err := h.Ledger.MonthlySummary(c.Request.Context(), user.ID, month, tags)
	if err != nil {
		fail(c, err)
		return
	}

	budgets := make([]gin.H, 0, len(m.Budgets))
	for _, b := range m.Budgets {
		line := gin.H{
			"category_id": b.CategoryID,
			"name":        b.Name,
			"spent":       util.FormatAmount(b.Spent),
			"budgeted":    nil,
			"remaining":   nil,
			"percentage":  b.Percentage,
		}
		if b.Budgeted != nil {
			line["budgeted"] = util.FormatAmount(*b.Budgeted)
			line["remaining"] = util.FormatAmount(*b.Remaining)
		}
		budgets = append(budgets, line)
	}

	util.Success(c, util.Response{
		"month":       m.Month.Format("2006-01"),
		"summary":     summaryView(&m.Summary),
		"budgets":     budgets,
		"investments": util.FormatAmount(m.Investments),
		"net_worth":   netWorthView(m.NetWorth),
	})
}

// Annual reports on ?year=YYYY (default this year), optionally narrowed by
// ?tags=.
func (h *ReportHandler) Annual(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	year := util.Today().Year()
	if v := c.Query("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			util.FieldError(c, "year", "must be a four digit year")
			return
		}
		year = n
	}
	tags, ok := idList(c, "tags")
	if !ok {
		return
	}
	a, err := h.Ledger.AnnualSummary(c.Request.Context(), user.ID, year, tags)
	if err != nil {
		fail(c, err)
		return
	}

	months := make([]gin.H, 0, len(a.Months))
	for _, m := range a.Months {
		months = append(months, gin.H{
			"month":       m.Month.Format("2006-01"),
			"income":      util.FormatAmount(m.Income),
			"expense":     util.FormatAmount(m.Expense),
			"savings":     util.FormatAmount(m.Savings),
			"investments": util.FormatAmount(m.Investments),
		})
	}
	util.Success(c, util.Response{
		"year":        a.Year,
		"summary":     summaryView(&a.Summary),
		"savings":     util.FormatAmount(a.Savings),
		"investments": util.FormatAmount(a.Investments),
		"months":      months,
		"net_worth":   netWorthView(a.NetWorth),
	})
}

// NetWorth returns the current net worth and a month-end history covering
// ?months= (default from config).
func (h *ReportHandler) NetWorth(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	months := h.NetWorthMonths
	if v := c.Query("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 120 {
			util.FieldError(c, "months", "must be between 1 and 120")
			return
		}
		months = n
	}
	on, ok := parseDateField(c, "date", c.Query("date"), util.Today())
	if !ok {
		return
	}

	ctx := c.Request.Context()
	nw, err := h.Ledger.NetWorthAsOf(ctx, user.ID, on)
	if err != nil {
		fail(c, err)
		return
	}
	history, err := h.Ledger.NetWorthHistory(ctx, user.ID, months)
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{
		"net_worth": netWorthView(nw),
		"history":   pointsView(history),
	})
}

// Reconcile repairs the caller's balances; ?dry_run=true only reports.
func (h *ReportHandler) Reconcile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	dry, err := strconv.ParseBool(c.DefaultQuery("dry_run", "false"))
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid dry_run")
		return
	}
	report, err := h.Ledger.Reconcile(c.Request.Context(), ledger.ReconcileOptions{UserID: user.ID, DryRun: dry})
	if err != nil {
		fail(c, err)
		return
	}
	util.Success(c, util.Response{"report": reconcileView(report)})
}

func reconcileView(r *ledger.ReconcileReport) gin.H {
	corrections := make([]gin.H, 0, len(r.Corrections))
	for _, c := range r.Corrections {
		corrections = append(corrections, gin.H{
			"account_id": c.AccountID,
			"name":       c.Name,
			"old":        util.FormatAmount(c.Old),
			"new":        util.FormatAmount(c.New),
		})
	}
	return gin.H{
		"checked":     r.Checked,
		"dry_run":     r.DryRun,
		"corrections": corrections,
	}
}
