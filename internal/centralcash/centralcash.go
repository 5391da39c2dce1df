package centralcash

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"apipanel/internal/domain"
	"apipanel/internal/models"
	"apipanel/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("central cash: amount must be positive")
	ErrUnknownType   = errors.New("central cash: unknown entry type")
)

// maxActivityEntries caps the global activity journal.
const maxActivityEntries = 100

// storedStats are the incrementally maintained aggregate fields. The
// revenue and user figures of models.CashStats are derived at read time
// from the journal, so they can never go stale across day boundaries.
type storedStats struct {
	TotalBalance         decimal.Decimal `json:"total_balance"`
	TotalRecharges       decimal.Decimal `json:"total_recharges"`
	TotalPlanSales       decimal.Decimal `json:"total_plan_sales"`
	TotalCommissionsPaid decimal.Decimal `json:"total_commissions_paid"`
	TotalWithdrawals     decimal.Decimal `json:"total_withdrawals"`
}

// Ledger is the system-wide journal of money-moving events plus its
// aggregate statistics. One mutex serializes every journal mutation.
type Ledger struct {
	store storage.Store
	mu    sync.Mutex
	now   func() time.Time
}

func New(store storage.Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Add assigns the entry an ID and timestamp, prepends it to the journal
// and applies it to the running stats. Amount must be positive for every
// type except "ajuste", which carries a signed correction and may be
// negative but not zero.
func (l *Ledger) Add(entry models.CashEntry) (models.CashEntry, error) {
	switch entry.Type {
	case domain.CashRecharge, domain.CashPlanSale, domain.CashReferralCommission,
		domain.CashRechargeCommission, domain.CashWithdrawal:
		if entry.Amount.Sign() <= 0 {
			return models.CashEntry{}, ErrInvalidAmount
		}
	case domain.CashAdjustment:
		if entry.Amount.IsZero() {
			return models.CashEntry{}, ErrInvalidAmount
		}
	default:
		return models.CashEntry{}, fmt.Errorf("%w: %q", ErrUnknownType, entry.Type)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry.ID = uuid.NewString()
	entry.Date = l.now()

	var journal []models.CashEntry
	if _, err := storage.GetJSON(l.store, storage.CentralCashTransactionsKey, &journal); err != nil {
		return models.CashEntry{}, err
	}
	journal = append([]models.CashEntry{entry}, journal...)
	if err := storage.SetJSON(l.store, storage.CentralCashTransactionsKey, journal); err != nil {
		return models.CashEntry{}, err
	}

	stats, err := l.readStoredStats()
	if err != nil {
		return models.CashEntry{}, err
	}
	applyEntry(&stats, entry)
	if err := storage.SetJSON(l.store, storage.CentralCashStatsKey, stats); err != nil {
		return models.CashEntry{}, err
	}
	return entry, nil
}

func (l *Ledger) readStoredStats() (storedStats, error) {
	var stats storedStats
	if _, err := storage.GetJSON(l.store, storage.CentralCashStatsKey, &stats); err != nil {
		return storedStats{}, err
	}
	return stats, nil
}

// applyEntry folds one journal entry into the running totals.
// Recharges and plan sales flow in; commissions and withdrawals flow
// out; adjustments apply their signed amount directly.
func applyEntry(stats *storedStats, e models.CashEntry) {
	switch e.Type {
	case domain.CashRecharge:
		stats.TotalBalance = stats.TotalBalance.Add(e.Amount)
		stats.TotalRecharges = stats.TotalRecharges.Add(e.Amount)
	case domain.CashPlanSale:
		stats.TotalBalance = stats.TotalBalance.Add(e.Amount)
		stats.TotalPlanSales = stats.TotalPlanSales.Add(e.Amount)
	case domain.CashReferralCommission, domain.CashRechargeCommission:
		stats.TotalBalance = stats.TotalBalance.Sub(e.Amount)
		stats.TotalCommissionsPaid = stats.TotalCommissionsPaid.Add(e.Amount)
	case domain.CashWithdrawal:
		stats.TotalBalance = stats.TotalBalance.Sub(e.Amount)
		stats.TotalWithdrawals = stats.TotalWithdrawals.Add(e.Amount)
	case domain.CashAdjustment:
		stats.TotalBalance = stats.TotalBalance.Add(e.Amount)
	}
}

// Transactions returns the full journal, newest first.
func (l *Ledger) Transactions() ([]models.CashEntry, error) {
	var journal []models.CashEntry
	if _, err := storage.GetJSON(l.store, storage.CentralCashTransactionsKey, &journal); err != nil {
		return nil, err
	}
	return journal, nil
}

func (l *Ledger) TransactionsByType(entryType string) ([]models.CashEntry, error) {
	journal, err := l.Transactions()
	if err != nil {
		return nil, err
	}
	out := make([]models.CashEntry, 0)
	for _, e := range journal {
		if e.Type == entryType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *Ledger) TransactionsByPeriod(start, end time.Time) ([]models.CashEntry, error) {
	journal, err := l.Transactions()
	if err != nil {
		return nil, err
	}
	out := make([]models.CashEntry, 0)
	for _, e := range journal {
		if !e.Date.Before(start) && e.Date.Before(end) {
			out = append(out, e)
		}
	}
	return out, nil
}

// RevenueByPeriod buckets recharge and plan-sale amounts by calendar
// day for the last days days, oldest bucket first, today last. Days with
// no revenue appear as zero.
func (l *Ledger) RevenueByPeriod(days int) ([]models.DailyRevenue, error) {
	if days <= 0 {
		return nil, fmt.Errorf("central cash: days must be positive, got %d", days)
	}
	journal, err := l.Transactions()
	if err != nil {
		return nil, err
	}
	today := l.now()
	buckets := make([]models.DailyRevenue, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, i-days+1).Format("2006-01-02")
		buckets[i] = models.DailyRevenue{Date: date, Revenue: decimal.Zero}
		index[date] = i
	}
	for _, e := range journal {
		if e.Type != domain.CashRecharge && e.Type != domain.CashPlanSale {
			continue
		}
		if i, ok := index[e.Date.Format("2006-01-02")]; ok {
			buckets[i].Revenue = buckets[i].Revenue.Add(e.Amount)
		}
	}
	return buckets, nil
}

// RegisterUserActivity prepends to the capped global activity journal.
func (l *Ledger) RegisterUserActivity(userID, activity string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var entries []models.UserActivity
	if _, err := storage.GetJSON(l.store, storage.UserActivityKey, &entries); err != nil {
		return err
	}
	entries = append([]models.UserActivity{{UserID: userID, Activity: activity, Date: l.now()}}, entries...)
	if len(entries) > maxActivityEntries {
		entries = entries[:maxActivityEntries]
	}
	return storage.SetJSON(l.store, storage.UserActivityKey, entries)
}

// Activity returns the recent-activity journal, newest first.
func (l *Ledger) Activity() ([]models.UserActivity, error) {
	var entries []models.UserActivity
	if _, err := storage.GetJSON(l.store, storage.UserActivityKey, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Stats combines the running totals with the derived figures: daily and
// monthly revenue come from the journal filtered by calendar date, user
// counts from the activity journal.
func (l *Ledger) Stats() (models.CashStats, error) {
	stored, err := l.readStoredStats()
	if err != nil {
		return models.CashStats{}, err
	}
	return l.deriveStats(stored)
}

func (l *Ledger) deriveStats(stored storedStats) (models.CashStats, error) {
	journal, err := l.Transactions()
	if err != nil {
		return models.CashStats{}, err
	}
	today := l.now().Format("2006-01-02")
	month := l.now().Format("2006-01")
	daily, monthly := decimal.Zero, decimal.Zero
	for _, e := range journal {
		if e.Type != domain.CashRecharge && e.Type != domain.CashPlanSale {
			continue
		}
		date := e.Date.Format("2006-01-02")
		if date == today {
			daily = daily.Add(e.Amount)
		}
		if date[:7] == month {
			monthly = monthly.Add(e.Amount)
		}
	}

	activity, err := l.Activity()
	if err != nil {
		return models.CashStats{}, err
	}
	users := make(map[string]bool)
	activeToday := make(map[string]bool)
	for _, a := range activity {
		users[a.UserID] = true
		if a.Date.Format("2006-01-02") == today {
			activeToday[a.UserID] = true
		}
	}

	return models.CashStats{
		TotalBalance:         stored.TotalBalance,
		DailyRevenue:         daily,
		MonthlyRevenue:       monthly,
		TotalRecharges:       stored.TotalRecharges,
		TotalPlanSales:       stored.TotalPlanSales,
		TotalCommissionsPaid: stored.TotalCommissionsPaid,
		TotalWithdrawals:     stored.TotalWithdrawals,
		UsersCount:           len(users),
		ActiveUsersToday:     len(activeToday),
	}, nil
}

// RecomputeStats rebuilds the running totals from the journal and
// persists them, correcting any drift, then returns the full stats.
func (l *Ledger) RecomputeStats() (models.CashStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	journal, err := l.Transactions()
	if err != nil {
		return models.CashStats{}, err
	}
	var stats storedStats
	for _, e := range journal {
		applyEntry(&stats, e)
	}
	if err := storage.SetJSON(l.store, storage.CentralCashStatsKey, stats); err != nil {
		return models.CashStats{}, err
	}
	return l.deriveStats(stats)
}
