package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashEntry is one entry in the system-wide central cash journal. The
// journal is append-only and kept newest-first. Amount is positive for
// every type except "ajuste", which carries a signed correction.
type CashEntry struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Detail      CashDetail      `json:"detail"`
}

// CashDetail carries the per-type payload of a cash entry. Exactly one
// field is set, matching the entry's Type.
type CashDetail struct {
	Recharge   *RechargeDetail   `json:"recharge,omitempty"`
	PlanSale   *PlanSaleDetail   `json:"plan_sale,omitempty"`
	Commission *CommissionDetail `json:"commission,omitempty"`
	Withdrawal *WithdrawalDetail `json:"withdrawal,omitempty"`
	Adjustment *AdjustmentDetail `json:"adjustment,omitempty"`
}

type RechargeDetail struct {
	Method        string `json:"method"`
	PixKey        string `json:"pix_key,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

type PlanSaleDetail struct {
	PlanName string `json:"plan_name"`
}

type CommissionDetail struct {
	ReferrerID     string          `json:"referrer_id"`
	OriginalUserID string          `json:"original_user_id"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
}

type WithdrawalDetail struct {
	PixKey string `json:"pix_key"`
}

type AdjustmentDetail struct {
	Reason string `json:"reason"`
}

// CashStats is the aggregate view over the central cash journal.
// TotalBalance and the per-type totals are maintained incrementally on
// every insert; the revenue and user figures are derived at read time.
type CashStats struct {
	TotalBalance         decimal.Decimal `json:"total_balance"`
	DailyRevenue         decimal.Decimal `json:"daily_revenue"`
	MonthlyRevenue       decimal.Decimal `json:"monthly_revenue"`
	TotalRecharges       decimal.Decimal `json:"total_recharges"`
	TotalPlanSales       decimal.Decimal `json:"total_plan_sales"`
	TotalCommissionsPaid decimal.Decimal `json:"total_commissions_paid"`
	TotalWithdrawals     decimal.Decimal `json:"total_withdrawals"`
	UsersCount           int             `json:"users_count"`
	ActiveUsersToday     int             `json:"active_users_today"`
}

// DailyRevenue is one bucket of the revenue-by-period report.
type DailyRevenue struct {
	Date    string          `json:"date"` // YYYY-MM-DD
	Revenue decimal.Decimal `json:"revenue"`
}

// UserActivity is one entry of the capped global activity journal.
type UserActivity struct {
	UserID   string    `json:"user_id"`
	Activity string    `json:"activity"`
	Date     time.Time `json:"date"`
}
