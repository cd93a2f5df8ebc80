package ledger

import (
	"testing"

	"finance-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileRepairsDrift(t *testing.T) {
	s, uid := newTestService(t)
	a := mustAccount(t, s, uid, "A", 100_00)
	b := mustAccount(t, s, uid, "B", 0)
	mustExpense(t, s, uid, a.ID, 25_00, date(2024, 2, 1))
	requireConsistent(t, s)

	require.NoError(t, s.DB().Model(&models.Account{}).Where("id = ?", a.ID).UpdateColumn("balance", 1).Error)

	report, err := s.Reconcile(ctx, ReconcileOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	require.Len(t, report.Corrections, 1)
	assert.Equal(t, Correction{AccountID: a.ID, UserID: uid, Name: "A", Old: 1, New: 75_00}, report.Corrections[0])
	assert.Equal(t, int64(1), balanceOf(t, s, a.ID), "dry run must not write")

	report, err = s.Reconcile(ctx, ReconcileOptions{})
	require.NoError(t, err)
	require.Len(t, report.Corrections, 1)
	assert.Equal(t, int64(75_00), balanceOf(t, s, a.ID))
	assert.Equal(t, int64(0), balanceOf(t, s, b.ID))

	// idempotent
	report, err = s.Reconcile(ctx, ReconcileOptions{})
	require.NoError(t, err)
	assert.Empty(t, report.Corrections)
}

func TestReconcileScopedToUser(t *testing.T) {
	s, alice := newTestService(t)
	bob := createUser(t, s.DB(), "bob")
	a := mustAccount(t, s, alice, "A", 10_00)
	b := mustAccount(t, s, bob, "B", 10_00)
	for _, id := range []uint{a.ID, b.ID} {
		require.NoError(t, s.DB().Model(&models.Account{}).Where("id = ?", id).UpdateColumn("balance", 0).Error)
	}

	report, err := s.Reconcile(ctx, ReconcileOptions{UserID: bob})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	require.Len(t, report.Corrections, 1)
	assert.Equal(t, b.ID, report.Corrections[0].AccountID)
	assert.Equal(t, int64(0), balanceOf(t, s, a.ID))
	assert.Equal(t, int64(10_00), balanceOf(t, s, b.ID))
}

func TestReconcileSkipsInactiveAccounts(t *testing.T) {
	s, uid := newTestService(t)
	a := mustAccount(t, s, uid, "A", 10_00)
	inactive := false
	_, err := s.UpdateAccount(ctx, uid, a.ID, AccountUpdate{IsActive: &inactive})
	require.NoError(t, err)
	require.NoError(t, s.DB().Model(&models.Account{}).Where("id = ?", a.ID).UpdateColumn("balance", 0).Error)

	report, err := s.Reconcile(ctx, ReconcileOptions{})
	require.NoError(t, err)
	assert.Zero(t, report.Checked)
	assert.Empty(t, report.Corrections)
}
