package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralRecord tracks a single referral from registration to payout.
//
// Status transitions:
//
//	pending -> completed  (bonus distributed before expiry)
//	pending -> expired    (first processing attempt after ExpiresAt)
//	pending -> failed     (a bonus credit failed mid-distribution)
type ReferralRecord struct {
	ID                string          `json:"id"`
	ReferrerID        string          `json:"referrer_id"`
	ReferredUserID    string          `json:"referred_user_id"`
	BonusAmount       decimal.Decimal `json:"bonus_amount"`
	Status            string          `json:"status"`
	DeviceFingerprint string          `json:"device_fingerprint,omitempty"`
	IPAddress         string          `json:"ip_address,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	ExpiresAt         time.Time       `json:"expires_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	FailureReason     string          `json:"failure_reason,omitempty"`
}

// DeviceRecord remembers which device registered which account, for the
// optional duplicate-device check.
type DeviceRecord struct {
	Fingerprint string    `json:"fingerprint"`
	UserID      string    `json:"user_id"`
	IPAddress   string    `json:"ip_address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RegisteredUser is the minimal directory entry referral codes resolve
// against. A user's own ID and login both act as their referral code.
type RegisteredUser struct {
	ID    string `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`
}

// ReferrerInfo identifies the resolved owner of a referral code.
type ReferrerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ReferralConfig is the live policy fetched from the remote config
// service, with hardcoded fallbacks when the fetch fails.
type ReferralConfig struct {
	BonusAmount          decimal.Decimal `json:"referral_bonus_amount"`
	CommissionPercentage decimal.Decimal `json:"referral_commission_percentage"`
	Enabled              bool            `json:"referral_system_enabled"`
}
