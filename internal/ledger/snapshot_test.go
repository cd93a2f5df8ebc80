package ledger

import (
	"encoding/json"
	"testing"

	"finance-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s, uid := newTestService(t)
	a := mustAccount(t, s, uid, "A", 100_00)
	b := mustAccount(t, s, uid, "B", 0)
	food := mustCategory(t, s, uid, "Food", models.CategoryExpense)
	_, err := s.CreateExpense(ctx, uid, TxnInput{AccountID: &a.ID, CategoryID: &food.ID, Amount: 10_00, Date: date(2024, 2, 1), Tags: []string{"weekly"}})
	require.NoError(t, err)
	_, err = s.CreateTransfer(ctx, uid, TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Amount: 30_00, Date: date(2024, 2, 2)})
	require.NoError(t, err)
	_, err = s.CreateBudget(ctx, uid, BudgetInput{CategoryID: food.ID, Month: date(2024, 2, 1), Amount: 50_00})
	require.NoError(t, err)
	inactive := false
	_, err = s.UpdateAccount(ctx, uid, b.ID, AccountUpdate{IsActive: &inactive})
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx, uid)
	require.NoError(t, err)
	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	// changes after the backup are discarded by the restore
	mustExpense(t, s, uid, a.ID, 5_00, date(2024, 3, 1))

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(raw, &decoded))
	report, err := s.Restore(ctx, uid, &decoded)
	require.NoError(t, err)
	assert.Empty(t, report.Corrections)

	accounts, err := s.ListAccounts(ctx, uid, true)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "A", accounts[0].Name)
	assert.Equal(t, int64(60_00), accounts[0].Balance)
	assert.Equal(t, int64(30_00), accounts[1].Balance)
	assert.False(t, accounts[1].IsActive)

	expenses, total, err := s.ListExpenses(ctx, uid, Filter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.NotNil(t, expenses[0].Category)
	assert.Equal(t, "Food", expenses[0].Category.Name)
	require.Len(t, expenses[0].Tags, 1)
	assert.Equal(t, "Weekly", expenses[0].Tags[0].Name)

	list, err := s.ListBudgets(ctx, uid, date(2024, 2, 1))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(10_00), list[0].Spent)

	var markers int64
	require.NoError(t, s.DB().Model(&models.Income{}).Where("user_id = ? AND is_opening_balance = ?", uid, true).Count(&markers).Error)
	assert.Equal(t, int64(1), markers)
	requireConsistent(t, s)
}

func TestRestoreRejectsUnknownVersion(t *testing.T) {
	s, uid := newTestService(t)
	_, err := s.Restore(ctx, uid, &Snapshot{Version: 99})
	_, ok := AsValidation(err)
	assert.True(t, ok)
}
