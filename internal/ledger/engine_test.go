package ledger

import (
	"errors"
	"sync"
	"testing"

	"finance-ledger/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomeRoundTrip(t *testing.T) {
	s, uid := newTestService(t)
	acct := mustAccount(t, s, uid, "Checking", 100_00)

	in := mustIncome(t, s, uid, acct.ID, 50_00, date(2024, 2, 1))
	assert.Equal(t, int64(150_00), balanceOf(t, s, acct.ID))

	require.NoError(t, s.DeleteIncome(ctx, uid, in.ID))
	assert.Equal(t, int64(100_00), balanceOf(t, s, acct.ID))
	requireConsistent(t, s)
}

func TestExpenseUpdateAppliesDelta(t *testing.T) {
	s, uid := newTestService(t)
	acct := mustAccount(t, s, uid, "Checking", 100_00)
	ex := mustExpense(t, s, uid, acct.ID, 30_00, date(2024, 2, 1))
	require.Equal(t, int64(70_00), balanceOf(t, s, acct.ID))

	updates := countBalanceUpdates(t, s, func() {
		_, err := s.UpdateExpense(ctx, uid, ex.ID, TxnInput{AccountID: &acct.ID, Amount: 45_00, Date: date(2024, 2, 1)})
		require.NoError(t, err)
	})
	assert.Equal(t, 1, updates)
	assert.Equal(t, int64(55_00), balanceOf(t, s, acct.ID))

	updates = countBalanceUpdates(t, s, func() {
		_, err := s.UpdateExpense(ctx, uid, ex.ID, TxnInput{AccountID: &acct.ID, Amount: 45_00, Date: date(2024, 2, 2), Description: "lunch"})
		require.NoError(t, err)
	})
	assert.Equal(t, 0, updates)
	assert.Equal(t, int64(55_00), balanceOf(t, s, acct.ID))
	requireConsistent(t, s)
}

func TestIncomeAccountChange(t *testing.T) {
	s, uid := newTestService(t)
	a := mustAccount(t, s, uid, "A", 100_00)
	b := mustAccount(t, s, uid, "B", 0)
	in := mustIncome(t, s, uid, a.ID, 20_00, date(2024, 2, 1))

	updates := countBalanceUpdates(t, s, func() {
		_, err := s.UpdateIncome(ctx, uid, in.ID, TxnInput{AccountID: &b.ID, Amount: 20_00, Date: date(2024, 2, 1)})
		require.NoError(t, err)
	})
	assert.Equal(t, 2, updates)
	assert.Equal(t, int64(100_00), balanceOf(t, s, a.ID))
	assert.Equal(t, int64(20_00), balanceOf(t, s, b.ID))

	// account and amount together
	_, err := s.UpdateIncome(ctx, uid, in.ID, TxnInput{AccountID: &a.ID, Amount: 35_00, Date: date(2024, 2, 1)})
	require.NoError(t, err)
	assert.Equal(t, int64(135_00), balanceOf(t, s, a.ID))
	assert.Equal(t, int64(0), balanceOf(t, s, b.ID))
	requireConsistent(t, s)
}

func TestTransferSymmetry(t *testing.T) {
	s, uid := newTestService(t)
	a := mustAccount(t, s, uid, "A", 100_00)
	b := mustAccount(t, s, uid, "B", 10_00)
	c := mustAccount(t, s, uid, "C", 0)
	total := func() int64 {
		return balanceOf(t, s, a.ID) + balanceOf(t, s, b.ID) + balanceOf(t, s, c.ID)
	}

	tr, err := s.CreateTransfer(ctx, uid, TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Amount: 40_00, Date: date(2024, 2, 1)})
	require.NoError(t, err)
	assert.Equal(t, int64(60_00), balanceOf(t, s, a.ID))
	assert.Equal(t, int64(50_00), balanceOf(t, s, b.ID))
	assert.Equal(t, int64(110_00), total())

	updates := countBalanceUpdates(t, s, func() {
		_, err = s.UpdateTransfer(ctx, uid, tr.ID, TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Amount: 50_00, Date: date(2024, 2, 1)})
		require.NoError(t, err)
	})
	assert.Equal(t, 2, updates)
	assert.Equal(t, int64(50_00), balanceOf(t, s, a.ID))
	assert.Equal(t, int64(60_00), balanceOf(t, s, b.ID))

	updates = countBalanceUpdates(t, s, func() {
		_, err = s.UpdateTransfer(ctx, uid, tr.ID, TransferInput{FromAccountID: b.ID, ToAccountID: c.ID, Amount: 5_00, Date: date(2024, 2, 1)})
		require.NoError(t, err)
	})
	assert.Equal(t, 4, updates)
	assert.Equal(t, int64(100_00), balanceOf(t, s, a.ID))
	assert.Equal(t, int64(5_00), balanceOf(t, s, b.ID))
	assert.Equal(t, int64(5_00), balanceOf(t, s, c.ID))
	assert.Equal(t, int64(110_00), total())

	require.NoError(t, s.DeleteTransfer(ctx, uid, tr.ID))
	assert.Equal(t, int64(100_00), balanceOf(t, s, a.ID))
	assert.Equal(t, int64(10_00), balanceOf(t, s, b.ID))
	assert.Equal(t, int64(0), balanceOf(t, s, c.ID))
	requireConsistent(t, s)
}

func TestSameAccountTransferRejected(t *testing.T) {
	s, uid := newTestService(t)
	a := mustAccount(t, s, uid, "A", 100_00)

	updates := countBalanceUpdates(t, s, func() {
		_, err := s.CreateTransfer(ctx, uid, TransferInput{FromAccountID: a.ID, ToAccountID: a.ID, Amount: 10_00, Date: date(2024, 2, 1)})
		v, ok := AsValidation(err)
		require.True(t, ok, "want validation error, got %v", err)
		assert.Equal(t, "to_account_id", v.Field)
	})
	assert.Equal(t, 0, updates)

	var n int64
	require.NoError(t, s.DB().Model(&models.Transfer{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Equal(t, int64(100_00), balanceOf(t, s, a.ID))
}

func TestTransferValidation(t *testing.T) {
	s, uid := newTestService(t)
	a := mustAccount(t, s, uid, "A", 100_00)
	b := mustAccount(t, s, uid, "B", 0)

	cases := []struct {
		name  string
		in    TransferInput
		field string
	}{
		{"insufficient", TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Amount: 100_01, Date: date(2024, 2, 1)}, "amount"},
		{"zero amount", TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Amount: 0, Date: date(2024, 2, 1)}, "amount"},
		{"before setup", TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Amount: 1_00, Date: date(2023, 12, 31)}, "date"},
		{"unknown account", TransferInput{FromAccountID: a.ID, ToAccountID: 999, Amount: 1_00, Date: date(2024, 2, 1)}, "to_account_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreateTransfer(ctx, uid, tc.in)
			v, ok := AsValidation(err)
			require.True(t, ok, "want validation error, got %v", err)
			assert.Equal(t, tc.field, v.Field)
		})
	}

	// editing may reuse the amount the transfer already moved
	tr, err := s.CreateTransfer(ctx, uid, TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Amount: 80_00, Date: date(2024, 2, 1)})
	require.NoError(t, err)
	_, err = s.UpdateTransfer(ctx, uid, tr.ID, TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Amount: 100_00, Date: date(2024, 2, 1)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), balanceOf(t, s, a.ID))
	requireConsistent(t, s)
}

func TestEntryValidation(t *testing.T) {
	s, uid := newTestService(t)
	a := mustAccount(t, s, uid, "A", 0)
	food := mustCategory(t, s, uid, "Food", models.CategoryExpense)
	other := createUser(t, s.DB(), "bob")
	bobs := mustAccount(t, s, other, "Bob's", 0)

	_, err := s.CreateIncome(ctx, uid, TxnInput{AccountID: &a.ID, CategoryID: &food.ID, Amount: 1_00, Date: date(2024, 2, 1)})
	v, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "category_id", v.Field)

	_, err = s.CreateExpense(ctx, uid, TxnInput{AccountID: &a.ID, Amount: 1_00, Date: date(2023, 6, 1)})
	v, ok = AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "date", v.Field)

	_, err = s.CreateExpense(ctx, uid, TxnInput{AccountID: &bobs.ID, Amount: 1_00, Date: date(2024, 2, 1)})
	v, ok = AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "account_id", v.Field)

	_, err = s.CreateExpense(ctx, uid, TxnInput{AccountID: &a.ID, Amount: -5, Date: date(2024, 2, 1)})
	v, ok = AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "amount", v.Field)

	_, err = s.GetAccount(ctx, uid, bobs.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(0), balanceOf(t, s, a.ID))
}

func TestOpeningBalanceBootstrap(t *testing.T) {
	s, uid := newTestService(t)
	acct := mustAccount(t, s, uid, "Savings", 1000_00)
	assert.Equal(t, int64(1000_00), acct.Balance)
	assert.Equal(t, int64(1000_00), acct.OpeningBalance)

	var markers []models.Income
	require.NoError(t, s.DB().Preload("Category").Where("account_id = ? AND is_opening_balance = ?", acct.ID, true).Find(&markers).Error)
	require.Len(t, markers, 1)
	assert.Equal(t, int64(1000_00), markers[0].Amount)
	assert.True(t, markers[0].Date.Equal(date(2024, 1, 1)))
	require.NotNil(t, markers[0].Category)
	assert.Equal(t, DefaultOpeningBalanceCategory, markers[0].Category.Name)
	assert.Equal(t, models.CategoryIncome, markers[0].Category.Type)

	// a second account reuses the category
	mustAccount(t, s, uid, "Wallet", 20_00)
	var cats int64
	require.NoError(t, s.DB().Model(&models.Category{}).Where("name = ?", DefaultOpeningBalanceCategory).Count(&cats).Error)
	assert.Equal(t, int64(1), cats)

	// credit accounts may open below zero
	card, err := s.CreateAccount(ctx, uid, AccountInput{Name: "Card", Type: models.AccountCredit, OpeningBalance: -250_00, SetupDate: date(2024, 1, 1)})
	require.NoError(t, err)
	assert.Equal(t, int64(-250_00), card.Balance)
	requireConsistent(t, s)
}

func TestOpeningBalanceRevisionWithMarker(t *testing.T) {
	s, uid := newTestService(t)
	acct := mustAccount(t, s, uid, "Savings", 1000_00)
	mustExpense(t, s, uid, acct.ID, 300_00, date(2024, 2, 1))

	ob := int64(1500_00)
	updated, err := s.UpdateAccount(ctx, uid, acct.ID, AccountUpdate{OpeningBalance: &ob})
	require.NoError(t, err)
	assert.Equal(t, int64(1200_00), updated.Balance)
	assert.Equal(t, ob, updated.OpeningBalance)

	var n int64
	require.NoError(t, s.DB().Model(&models.Income{}).Where("account_id = ? AND is_opening_balance = ?", acct.ID, true).Count(&n).Error)
	assert.Equal(t, int64(1), n)
	requireConsistent(t, s)
}

func TestOpeningBalanceRevisionWithoutMarker(t *testing.T) {
	s, uid := newTestService(t)
	acct := mustAccount(t, s, uid, "Cash", 0)
	mustIncome(t, s, uid, acct.ID, 200_00, date(2024, 2, 1))

	// stale stored value is overwritten with the net of the entries
	require.NoError(t, s.DB().Model(&models.Account{}).Where("id = ?", acct.ID).UpdateColumn("balance", 999).Error)

	ob := int64(300_00)
	updated, err := s.UpdateAccount(ctx, uid, acct.ID, AccountUpdate{OpeningBalance: &ob})
	require.NoError(t, err)
	assert.Equal(t, int64(500_00), updated.Balance)

	var marker models.Income
	require.NoError(t, s.DB().Where("account_id = ? AND is_opening_balance = ?", acct.ID, true).First(&marker).Error)
	assert.Equal(t, ob, marker.Amount)
	assert.True(t, marker.Date.Equal(date(2024, 1, 1)))
	requireConsistent(t, s)
}

func TestOpeningBalanceIsProtected(t *testing.T) {
	s, uid := newTestService(t)
	acct := mustAccount(t, s, uid, "Savings", 100_00)
	var marker models.Income
	require.NoError(t, s.DB().Where("account_id = ? AND is_opening_balance = ?", acct.ID, true).First(&marker).Error)

	_, err := s.UpdateIncome(ctx, uid, marker.ID, TxnInput{AccountID: &acct.ID, Amount: 1_00, Date: date(2024, 1, 1)})
	assert.ErrorIs(t, err, ErrProtected)
	_, ok := AsValidation(err)
	assert.True(t, ok)

	assert.ErrorIs(t, s.DeleteIncome(ctx, uid, marker.ID), ErrProtected)

	in := mustIncome(t, s, uid, acct.ID, 5_00, date(2024, 2, 1))
	res, err := s.BulkDeleteIncomes(ctx, uid, []uint{marker.ID, in.ID, 12345})
	require.NoError(t, err)
	assert.Equal(t, BulkResult{Deleted: 1, Skipped: 2}, res)

	assert.Equal(t, int64(100_00), balanceOf(t, s, acct.ID))
	requireConsistent(t, s)
}

func TestDeleteAccountKeepsSurvivorsConsistent(t *testing.T) {
	s, uid := newTestService(t)
	a := mustAccount(t, s, uid, "A", 100_00)
	b := mustAccount(t, s, uid, "B", 50_00)
	_, err := s.CreateTransfer(ctx, uid, TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Amount: 30_00, Date: date(2024, 2, 1)})
	require.NoError(t, err)
	_, err = s.CreateTransfer(ctx, uid, TransferInput{FromAccountID: b.ID, ToAccountID: a.ID, Amount: 5_00, Date: date(2024, 2, 2)})
	require.NoError(t, err)
	ex := mustExpense(t, s, uid, a.ID, 10_00, date(2024, 2, 3))
	require.Equal(t, int64(75_00), balanceOf(t, s, b.ID))

	require.NoError(t, s.DeleteAccount(ctx, uid, a.ID))
	assert.Equal(t, int64(50_00), balanceOf(t, s, b.ID))

	_, err = s.GetAccount(ctx, uid, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// the expense survives without an account
	got, err := s.GetExpense(ctx, uid, ex.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AccountID)

	// and deleting it later touches nothing
	updates := countBalanceUpdates(t, s, func() {
		require.NoError(t, s.DeleteExpense(ctx, uid, ex.ID))
	})
	assert.Zero(t, updates)
	requireConsistent(t, s)
}

func TestConcurrentCreatesOnOneAccount(t *testing.T) {
	s, uid := newTestService(t)
	acct := mustAccount(t, s, uid, "Shared", 0)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateIncome(ctx, uid, TxnInput{AccountID: &acct.ID, Amount: 1_00, Date: date(2024, 2, 1)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int64(workers*1_00), balanceOf(t, s, acct.ID))
	requireConsistent(t, s)
}

func TestCloneEntries(t *testing.T) {
	s, uid := newTestService(t)
	a := mustAccount(t, s, uid, "A", 100_00)
	b := mustAccount(t, s, uid, "B", 0)

	ex, err := s.CreateExpense(ctx, uid, TxnInput{AccountID: &a.ID, Amount: 10_00, Date: date(2024, 2, 1), Tags: []string{"coffee"}})
	require.NoError(t, err)
	clone, err := s.CloneExpense(ctx, uid, ex.ID, nil)
	require.NoError(t, err)
	assert.NotEqual(t, ex.ID, clone.ID)
	assert.True(t, clone.Date.Equal(date(2024, 3, 15)))
	require.Len(t, clone.Tags, 1)
	assert.Equal(t, "Coffee", clone.Tags[0].Name)

	tr, err := s.CreateTransfer(ctx, uid, TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Amount: 20_00, Date: date(2024, 2, 1)})
	require.NoError(t, err)
	on := date(2024, 3, 1)
	trClone, err := s.CloneTransfer(ctx, uid, tr.ID, &on)
	require.NoError(t, err)
	assert.True(t, trClone.Date.Equal(on))

	assert.Equal(t, int64(40_00), balanceOf(t, s, a.ID))
	assert.Equal(t, int64(40_00), balanceOf(t, s, b.ID))
	requireConsistent(t, s)
}

func TestListEntriesFilters(t *testing.T) {
	s, uid := newTestService(t)
	a := mustAccount(t, s, uid, "A", 0)
	b := mustAccount(t, s, uid, "B", 0)
	for i := 1; i <= 5; i++ {
		mustIncome(t, s, uid, a.ID, int64(i)*1_00, date(2024, 2, i))
	}
	mustIncome(t, s, uid, b.ID, 9_00, date(2024, 2, 10))

	rows, total, err := s.ListIncomes(ctx, uid, Filter{AccountID: &a.ID, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(5_00), rows[0].Amount)

	from, to := date(2024, 2, 2), date(2024, 2, 3)
	rows, total, err = s.ListIncomes(ctx, uid, Filter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, rows, 2)
}

func TestClassifyConflicts(t *testing.T) {
	assert.ErrorIs(t, classify(sqlite3.Error{Code: sqlite3.ErrBusy}), ErrConflict)
	assert.ErrorIs(t, classify(sqlite3.Error{Code: sqlite3.ErrLocked}), ErrConflict)
	assert.ErrorIs(t, classify(&pgconn.PgError{Code: "40P01"}), ErrConflict)
	assert.ErrorIs(t, classify(&pgconn.PgError{Code: "55P03"}), ErrConflict)

	other := errors.New("boom")
	assert.Same(t, other, classify(other))
	assert.NotErrorIs(t, classify(&pgconn.PgError{Code: "23505"}), ErrConflict)
	assert.Nil(t, classify(nil))
}
