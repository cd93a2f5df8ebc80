package handler

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"time"

	"finance-ledger/internal/ledger"
	"finance-ledger/internal/models"
	"finance-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportHandler downloads incomes, expenses and transfers as CSV or XLSX.
// Both accept the list filters (from, to, account_id, category_id, tags)
// and ignore paging.
type ExportHandler struct {
	Ledger *ledger.Service
}

func NewExportHandler(svc *ledger.Service) *ExportHandler {
	return &ExportHandler{Ledger: svc}
}

var exportHeaders = []string{"Type", "Date", "Account", "To Account", "Category", "Amount", "Description", "Tags"}

type exportRow struct {
	Kind        string
	Date        time.Time
	Account     string
	ToAccount   string
	Category    string
	Amount      int64
	Description string
	Tags        string
}

func (r exportRow) record() []string {
	return []string{r.Kind, dateString(r.Date), r.Account, r.ToAccount, r.Category, util.FormatAmount(r.Amount), r.Description, r.Tags}
}

func accountName(a *models.Account) string {
	if a == nil {
		return ""
	}
	return a.Name
}

func categoryName(c *models.Category) string {
	if c == nil {
		return ""
	}
	return c.Name
}

func joinTags(tags []models.Tag) string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return strings.Join(names, ",")
}

// rows gathers every matching entry, newest first. Transfers only honor the
// date and account filters.
func (h *ExportHandler) rows(c *gin.Context) ([]exportRow, bool) {
	user, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	f, ok := filterFromQuery(c, 0)
	if !ok {
		return nil, false
	}
	f.Page, f.PageSize = 0, 0
	ctx := c.Request.Context()

	incomes, _, err := h.Ledger.ListIncomes(ctx, user.ID, f)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	expenses, _, err := h.Ledger.ListExpenses(ctx, user.ID, f)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	var transfers []models.Transfer
	if f.CategoryID == nil && len(f.TagIDs) == 0 {
		if transfers, _, err = h.Ledger.ListTransfers(ctx, user.ID, f); err != nil {
			fail(c, err)
			return nil, false
		}
	}

	out := make([]exportRow, 0, len(incomes)+len(expenses)+len(transfers))
	for _, in := range incomes {
		out = append(out, exportRow{
			Kind:        "income",
			Date:        in.Date,
			Account:     accountName(in.Account),
			Category:    categoryName(in.Category),
			Amount:      in.Amount,
			Description: in.Description,
			Tags:        joinTags(in.Tags),
		})
	}
	for _, ex := range expenses {
		out = append(out, exportRow{
			Kind:        "expense",
			Date:        ex.Date,
			Account:     accountName(ex.Account),
			Category:    categoryName(ex.Category),
			Amount:      ex.Amount,
			Description: ex.Description,
			Tags:        joinTags(ex.Tags),
		})
	}
	for _, t := range transfers {
		out = append(out, exportRow{
			Kind:        "transfer",
			Date:        t.Date,
			Account:     accountName(t.FromAccount),
			ToAccount:   accountName(t.ToAccount),
			Amount:      t.Amount,
			Description: t.Description,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, true
}

func (h *ExportHandler) ExportCSV(c *gin.Context) {
	rows, ok := h.rows(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"ledger_%s.csv\"", time.Now().Format("20060102")))

	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportHeaders)
	for _, r := range rows {
		_ = w.Write(r.record())
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = c.Error(err)
	}
}

func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	rows, ok := h.rows(c)
	if !ok {
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Ledger"
	index, err := f.NewSheet(sheet)
	if err != nil {
		fail(c, err)
		return
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for i, name := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, name)
	}
	for i, r := range rows {
		line := i + 2
		for j, v := range r.record() {
			cell, _ := excelize.CoordinatesToCellName(j+1, line)
			if j == 5 {
				_ = f.SetCellValue(sheet, cell, util.AmountDecimal(r.Amount).InexactFloat64())
				continue
			}
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 10)
	_ = f.SetColWidth(sheet, "B", "B", 12)
	_ = f.SetColWidth(sheet, "C", "E", 18)
	_ = f.SetColWidth(sheet, "F", "F", 12)
	_ = f.SetColWidth(sheet, "G", "G", 30)
	_ = f.SetColWidth(sheet, "H", "H", 20)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"ledger_%s.xlsx\"", time.Now().Format("20060102")))
	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}
