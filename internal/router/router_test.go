package router_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"finance-ledger/internal/config"
	"finance-ledger/internal/database"
	"finance-ledger/internal/ledger"
	"finance-ledger/internal/logging"
	"finance-ledger/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type envelope struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field"`
	Data    map[string]any `json:"data"`
}

type client struct {
	t     *testing.T
	r     *gin.Engine
	token string
}

func (c *client) raw(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	return w
}

func (c *client) do(method, path string, body any) (int, envelope) {
	c.t.Helper()
	w := c.raw(method, path, body)
	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func setup(t *testing.T) *client {
	t.Helper()
	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: gin.TestMode},
		JWT:      config.JWTConfig{Secret: "test-secret", Issuer: "finance-ledger", ExpireHours: 1},
		Security: config.SecurityConfig{EncryptionKey: "test-key"},
		Backup:   config.BackupConfig{Dir: t.TempDir()},
		App:      config.AppSubConfig{PageSize: 20},
		Ledger:   config.LedgerConfig{OpeningBalanceCategory: "Opening Balance", NetWorthMonths: 6},
	}
	db, err := database.Init(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	log := logging.Discard()
	svc := ledger.NewService(db, ledger.WithLogger(log))
	return &client{t: t, r: router.SetupRouter(cfg, db, svc, log)}
}

func (c *client) login(username string) {
	c.t.Helper()
	code, env := c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username":         username,
		"password":         "Secret123",
		"confirm_password": "Secret123",
	})
	require.Equal(c.t, http.StatusOK, code, env.Message)

	code, env = c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": "Secret123",
	})
	require.Equal(c.t, http.StatusOK, code, env.Message)
	c.token = env.Data["token"].(string)
}

func idOf(t *testing.T, env envelope, key string) uint {
	t.Helper()
	obj, ok := env.Data[key].(map[string]any)
	require.True(t, ok, "missing %s in response", key)
	return uint(obj["id"].(float64))
}

func TestLedgerFlow(t *testing.T) {
	c := setup(t)

	code, _ := c.do(http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	c.login("alice")

	code, env := c.do(http.MethodPost, "/api/accounts", map[string]any{
		"name":            "Checking",
		"type":            "checking",
		"opening_balance": "100.00",
		"setup_date":      "2024-01-01",
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	checking := idOf(t, env, "account")
	assert.Equal(t, "100.00", env.Data["account"].(map[string]any)["balance"])

	code, env = c.do(http.MethodPost, "/api/accounts", map[string]any{
		"name":       "Savings",
		"type":       "savings",
		"setup_date": "2024-01-01",
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	savings := idOf(t, env, "account")

	code, env = c.do(http.MethodPost, "/api/expenses", map[string]any{
		"account_id": checking,
		"amount":     "25.50",
		"date":       "2024-02-01",
		"tags":       []string{"Groceries"},
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = c.do(http.MethodPost, "/api/transfers", map[string]any{
		"from_account_id": checking,
		"to_account_id":   savings,
		"amount":          "10",
		"date":            "2024-02-10",
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = c.do(http.MethodPost, "/api/transfers", map[string]any{
		"from_account_id": checking,
		"to_account_id":   checking,
		"amount":          "1",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "to_account_id", env.Field)

	code, env = c.do(http.MethodPost, "/api/expenses", map[string]any{
		"account_id": checking,
		"amount":     "1.234",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "amount", env.Field)

	code, env = c.do(http.MethodGet, fmt.Sprintf("/api/accounts/%d", checking), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "64.50", env.Data["account"].(map[string]any)["balance"])

	code, env = c.do(http.MethodGet, fmt.Sprintf("/api/accounts/%d/balance?date=2024-01-15", checking), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "100.00", env.Data["balance"])

	code, env = c.do(http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "74.50", env.Data["total_balance"])

	code, env = c.do(http.MethodPost, "/api/reconcile?dry_run=true", nil)
	require.Equal(t, http.StatusOK, code)
	report := env.Data["report"].(map[string]any)
	assert.Equal(t, float64(2), report["checked"])
	assert.Empty(t, report["corrections"])

	code, env = c.do(http.MethodGet, "/api/logs", nil)
	require.Equal(t, http.StatusOK, code)
	assert.GreaterOrEqual(t, env.Data["total"].(float64), float64(4))
}

func TestAnnualReport(t *testing.T) {
	c := setup(t)
	c.login("alice")

	code, env := c.do(http.MethodPost, "/api/accounts", map[string]any{
		"name":            "Checking",
		"type":            "checking",
		"opening_balance": "100.00",
		"setup_date":      "2024-01-01",
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	checking := idOf(t, env, "account")

	code, env = c.do(http.MethodPost, "/api/incomes", map[string]any{
		"account_id": checking,
		"amount":     "40",
		"date":       "2024-03-05",
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = c.do(http.MethodGet, "/api/reports/annual?year=2024", nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, float64(2024), env.Data["year"])
	assert.Equal(t, "40.00", env.Data["savings"])
	months := env.Data["months"].([]any)
	require.Len(t, months, 12)
	assert.Equal(t, "2024-03", months[2].(map[string]any)["month"])
	assert.Equal(t, "40.00", months[2].(map[string]any)["income"])
	assert.Equal(t, "140.00", env.Data["net_worth"].(map[string]any)["total"])

	code, env = c.do(http.MethodGet, "/api/reports/annual?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "year", env.Field)
}

func TestOpeningBalanceEntryCannotBeDeleted(t *testing.T) {
	c := setup(t)
	c.login("bob")

	code, env := c.do(http.MethodPost, "/api/accounts", map[string]any{
		"name":            "Wallet",
		"type":            "cash",
		"opening_balance": "20",
		"setup_date":      "2024-01-01",
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = c.do(http.MethodGet, "/api/incomes", nil)
	require.Equal(t, http.StatusOK, code)
	items := env.Data["items"].([]any)
	require.Len(t, items, 1)
	marker := items[0].(map[string]any)
	assert.Equal(t, true, marker["is_opening_balance"])

	code, _ = c.do(http.MethodDelete, fmt.Sprintf("/api/incomes/%d", uint(marker["id"].(float64))), nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUsersAreIsolated(t *testing.T) {
	c := setup(t)
	c.login("carol")
	code, env := c.do(http.MethodPost, "/api/accounts", map[string]any{"name": "Mine", "type": "checking"})
	require.Equal(t, http.StatusOK, code, env.Message)
	mine := idOf(t, env, "account")

	c.token = ""
	c.login("dave")
	code, _ = c.do(http.MethodGet, fmt.Sprintf("/api/accounts/%d", mine), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBackupRestore(t *testing.T) {
	c := setup(t)
	c.login("erin")

	code, env := c.do(http.MethodPost, "/api/accounts", map[string]any{
		"name":            "Checking",
		"type":            "checking",
		"opening_balance": "50",
		"setup_date":      "2024-01-01",
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = c.do(http.MethodPost, "/api/backups", nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	backup := idOf(t, env, "backup")

	code, env = c.do(http.MethodPost, "/api/accounts", map[string]any{"name": "Extra", "type": "cash"})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = c.do(http.MethodPost, fmt.Sprintf("/api/backups/%d/restore", backup), nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, float64(1), env.Data["accounts"])

	code, env = c.do(http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, env.Data["items"], 1)
	assert.Equal(t, "50.00", env.Data["total_balance"])
}

func TestLoginLockout(t *testing.T) {
	c := setup(t)
	c.login("frank")
	c.token = ""

	for i := 0; i < 5; i++ {
		code, _ := c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "frank", "password": "Wrong1234"})
		require.Equal(t, http.StatusUnauthorized, code)
	}
	code, env := c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "frank", "password": "Secret123"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, env.Message, "too many")
}

func TestExport(t *testing.T) {
	c := setup(t)
	c.login("grace")

	code, env := c.do(http.MethodPost, "/api/accounts", map[string]any{
		"name":            "Checking",
		"type":            "checking",
		"opening_balance": "80",
		"setup_date":      "2024-01-01",
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	checking := idOf(t, env, "account")
	code, env = c.do(http.MethodPost, "/api/expenses", map[string]any{
		"account_id":  checking,
		"amount":      "12.30",
		"date":        "2024-03-02",
		"description": "lunch",
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	w := c.raw(http.MethodGet, "/api/export/csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Type", records[0][0])
	assert.Equal(t, []string{"expense", "2024-03-02", "Checking", "", "", "12.30", "lunch", ""}, records[1])
	assert.Equal(t, "income", records[2][0])

	w = c.raw(http.MethodGet, "/api/export/xlsx?from=2024-03-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Ledger")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "lunch", rows[1][6])
}
