package storage

import (
	"encoding/json"
	"fmt"
)

// Store is the key-value port all bookkeeping state lives behind. Values
// are JSON documents. Implementations must be safe for concurrent use;
// callers that need multi-key atomicity serialize their own operations.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// GetJSON reads key and unmarshals it into out. Returns false with no
// error when the key is absent.
func GetJSON(s Store, key string, out any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("storage: corrupt value at %q: %w", key, err)
	}
	return true, nil
}

// SetJSON marshals v and stores it under key.
func SetJSON(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: marshal %q: %w", key, err)
	}
	return s.Set(key, string(raw))
}

// Key builders for the bookkeeping namespace.

func WalletBalanceKey(userID string) string { return "wallet_balance_" + userID }
func PlanBalanceKey(userID string) string   { return "plan_balance_" + userID }
func TransactionsKey(userID string) string  { return "balance_transactions_" + userID }
func ActivePlanKey(userID string) string    { return "active_plan_" + userID }

const (
	CentralCashTransactionsKey = "central_cash_transactions"
	CentralCashStatsKey        = "central_cash_stats"
	UserActivityKey            = "central_cash_user_activity"
	ReferralRecordsKey         = "referral_records"
	DeviceRecordsKey           = "device_records"
	ReferralConfigKey          = "referral_system_config"
	RegisteredUsersKey         = "registered_users"
)
