package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"finance-ledger/internal/config"
	"finance-ledger/internal/database"
	"finance-ledger/internal/logging"
	"finance-ledger/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var ctx = context.Background()

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Init(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newTestService returns a service whose today is 2024-03-15 and a fresh
// user.
func newTestService(t *testing.T) (*Service, uint) {
	t.Helper()
	db := setupTestDB(t)
	s := NewService(db,
		WithLogger(logging.Discard()),
		WithClock(func() time.Time { return date(2024, 3, 15).Add(10 * time.Hour) }),
	)
	return s, createUser(t, db, "alice")
}

func createUser(t *testing.T, db *gorm.DB, name string) uint {
	t.Helper()
	u := models.User{Username: name, PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)
	return u.ID
}

func mustAccount(t *testing.T, s *Service, userID uint, name string, opening int64) *models.Account {
	t.Helper()
	acct, err := s.CreateAccount(ctx, userID, AccountInput{
		Name:           name,
		Type:           models.AccountChecking,
		OpeningBalance: opening,
		SetupDate:      date(2024, 1, 1),
	})
	require.NoError(t, err)
	return acct
}

func mustCategory(t *testing.T, s *Service, userID uint, name string, typ models.CategoryType) *models.Category {
	t.Helper()
	cat, err := s.CreateCategory(ctx, userID, CategoryInput{Name: name, Type: typ})
	require.NoError(t, err)
	return cat
}

func mustIncome(t *testing.T, s *Service, userID, accountID uint, amount int64, on time.Time) *models.Income {
	t.Helper()
	in, err := s.CreateIncome(ctx, userID, TxnInput{AccountID: &accountID, Amount: amount, Date: on})
	require.NoError(t, err)
	return in
}

func mustExpense(t *testing.T, s *Service, userID, accountID uint, amount int64, on time.Time) *models.Expense {
	t.Helper()
	ex, err := s.CreateExpense(ctx, userID, TxnInput{AccountID: &accountID, Amount: amount, Date: on})
	require.NoError(t, err)
	return ex
}

func balanceOf(t *testing.T, s *Service, accountID uint) int64 {
	t.Helper()
	var acct models.Account
	require.NoError(t, s.DB().First(&acct, accountID).Error)
	return acct.Balance
}

// requireConsistent fails when any stored balance disagrees with the
// entries behind it.
func requireConsistent(t *testing.T, s *Service) {
	t.Helper()
	report, err := s.Reconcile(ctx, ReconcileOptions{DryRun: true})
	require.NoError(t, err)
	require.Empty(t, report.Corrections)
}

// countBalanceUpdates counts UPDATE statements against accounts issued
// while fn runs.
func countBalanceUpdates(t *testing.T, s *Service, fn func()) int {
	t.Helper()
	n := 0
	name := "test:count_account_updates"
	require.NoError(t, s.DB().Callback().Update().After("gorm:update").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == "accounts" && tx.Error == nil {
			n++
		}
	}))
	defer s.DB().Callback().Update().Remove(name)
	fn()
	return n
}

func parseTestDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}
