package ledger

import (
	"context"
	"fmt"
	"time"

	"finance-ledger/internal/models"
	"finance-ledger/internal/util"

	"gorm.io/gorm"
)

// BalancePoint is a balance on one date.
type BalancePoint struct {
	Date    time.Time `json:"date"`
	Balance int64     `json:"balance"`
}

// AccountBalance is one account's balance as of a date.
type AccountBalance struct {
	AccountID uint               `json:"account_id"`
	Name      string             `json:"name"`
	Type      models.AccountType `json:"type"`
	Balance   int64              `json:"balance"`
}

// NetWorth is the sum of the balances of every account open on Date.
type NetWorth struct {
	Date     time.Time        `json:"date"`
	Total    int64            `json:"total"`
	Accounts []AccountBalance `json:"accounts"`
}

// BalanceAsOf reconstructs an account's balance at the end of date by
// unwinding every entry dated later from the stored balance.
func (s *Service) BalanceAsOf(ctx context.Context, userID, accountID uint, date time.Time) (int64, error) {
	var balance int64
	err := s.read(ctx, func(db *gorm.DB) error {
		var acct models.Account
		if err := ownedAccount(db, userID, accountID, &acct); err != nil {
			return err
		}
		var err error
		balance, err = balanceAsOf(db, &acct, date)
		return err
	})
	return balance, err
}

func balanceAsOf(db *gorm.DB, acct *models.Account, date time.Time) (int64, error) {
	d := util.DateOnly(date)
	later, err := sumAccount(db, acct.ID, &d, false)
	if err != nil {
		return 0, err
	}
	return acct.Balance - later.net(), nil
}

// NetWorthAsOf sums the reconstructed balances of the user's active
// accounts set up on or before date.
func (s *Service) NetWorthAsOf(ctx context.Context, userID uint, date time.Time) (*NetWorth, error) {
	var nw *NetWorth
	err := s.read(ctx, func(db *gorm.DB) error {
		var err error
		nw, err = netWorthAsOf(db, userID, date)
		return err
	})
	return nw, err
}

func netWorthAsOf(db *gorm.DB, userID uint, date time.Time) (*NetWorth, error) {
	d := util.DateOnly(date)
	var accounts []models.Account
	err := db.Where("user_id = ? AND is_active = ? AND setup_date <= ?", userID, true, d).
		Order("name ASC, id ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	nw := &NetWorth{Date: d, Accounts: make([]AccountBalance, 0, len(accounts))}
	for i := range accounts {
		b, err := balanceAsOf(db, &accounts[i], d)
		if err != nil {
			return nil, err
		}
		nw.Total += b
		nw.Accounts = append(nw.Accounts, AccountBalance{
			AccountID: accounts[i].ID,
			Name:      accounts[i].Name,
			Type:      accounts[i].Type,
			Balance:   b,
		})
	}
	return nw, nil
}

type datedAmount struct {
	Date   time.Time
	Amount int64
}

// DailyBalances returns one end-of-day balance per day from from to to,
// both inclusive.
func (s *Service) DailyBalances(ctx context.Context, userID, accountID uint, from, to time.Time) ([]BalancePoint, error) {
	from, to = util.DateOnly(from), util.DateOnly(to)
	if to.Before(from) {
		return nil, invalid("to", "end date is before start date")
	}
	if to.Sub(from) > 366*24*time.Hour {
		return nil, invalid("to", "range is limited to one year")
	}

	var points []BalancePoint
	err := s.read(ctx, func(db *gorm.DB) error {
		var acct models.Account
		if err := ownedAccount(db, userID, accountID, &acct); err != nil {
			return err
		}
		running, err := balanceAsOf(db, &acct, from.AddDate(0, 0, -1))
		if err != nil {
			return err
		}

		deltas := make(map[time.Time]int64)
		sources := []struct {
			query *gorm.DB
			sign  int64
		}{
			{db.Model(&models.Income{}).Where("account_id = ?", accountID), 1},
			{db.Model(&models.Expense{}).Where("account_id = ?", accountID), -1},
			{db.Model(&models.Transfer{}).Where("to_account_id = ?", accountID), 1},
			{db.Model(&models.Transfer{}).Where("from_account_id = ?", accountID), -1},
		}
		for _, src := range sources {
			var rows []datedAmount
			err := src.query.Select("date", "amount").Where("date >= ? AND date <= ?", from, to).Find(&rows).Error
			if err != nil {
				return fmt.Errorf("load entries: %w", err)
			}
			for _, r := range rows {
				deltas[util.DateOnly(r.Date)] += src.sign * r.Amount
			}
		}

		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			running += deltas[d]
			points = append(points, BalancePoint{Date: d, Balance: running})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

// NetWorthHistory returns month-end net worth from the start of the month
// `months` months ago through today; the current month's point is today.
func (s *Service) NetWorthHistory(ctx context.Context, userID uint, months int) ([]BalancePoint, error) {
	if months <= 0 {
		months = 12
	}
	today := s.today()
	start := util.MonthStart(today).AddDate(0, -months, 0)

	var points []BalancePoint
	err := s.read(ctx, func(db *gorm.DB) error {
		for m := start; !m.After(today); m = m.AddDate(0, 1, 0) {
			end := util.MonthEnd(m)
			if end.After(today) {
				end = today
			}
			nw, err := netWorthAsOf(db, userID, end)
			if err != nil {
				return err
			}
			points = append(points, BalancePoint{Date: end, Balance: nw.Total})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}
