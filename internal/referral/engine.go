package referral

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"apipanel/internal/centralcash"
	"apipanel/internal/domain"
	"apipanel/internal/events"
	"apipanel/internal/ledger"
	"apipanel/internal/models"
	"apipanel/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCode       = errors.New("invalid referral code")
	ErrSelfReferral      = errors.New("users cannot refer themselves")
	ErrAlreadyReferred   = errors.New("user already has a referral")
	ErrDuplicateDevice   = errors.New("device already used for a referral")
	ErrNoPendingReferral = errors.New("no pending referral for user")
	ErrReferralExpired   = errors.New("referral expired")
)

// ConfigSource supplies the live referral policy. ConfigClient is the
// production implementation.
type ConfigSource interface {
	Config() models.ReferralConfig
}

// DeviceInfo identifies the registering device for the optional
// duplicate-device check.
type DeviceInfo struct {
	Fingerprint string `json:"fingerprint"`
	IPAddress   string `json:"ip_address"`
}

// BonusResult reports what a completed signup-bonus distribution paid.
type BonusResult struct {
	BonusReceived decimal.Decimal `json:"bonus_received"`
	ReferrerID    string          `json:"referrer_id"`
	ReferrerBonus decimal.Decimal `json:"referrer_bonus"`
}

// CommissionResult reports a paid recharge commission.
type CommissionResult struct {
	ReferrerID string          `json:"referrer_id"`
	Commission decimal.Decimal `json:"commission"`
}

// Engine validates referral codes, tracks pending referrals and
// distributes signup bonuses and recharge commissions through the
// balance ledger, journaling every payout to central cash.
type Engine struct {
	store       storage.Store
	ledger      *ledger.Ledger
	cash        *centralcash.Ledger
	config      ConfigSource
	bus         events.Bus
	deviceCheck bool

	mu  sync.Mutex
	now func() time.Time
}

func New(store storage.Store, bal *ledger.Ledger, cash *centralcash.Ledger, config ConfigSource, bus events.Bus, deviceCheck bool) *Engine {
	return &Engine{
		store:       store,
		ledger:      bal,
		cash:        cash,
		config:      config,
		bus:         bus,
		deviceCheck: deviceCheck,
		now:         time.Now,
	}
}

// RegisterUser adds a user to the directory referral codes resolve
// against. Registering an existing ID updates login and name.
func (e *Engine) RegisterUser(id, login, name string) error {
	if id == "" {
		return fmt.Errorf("referral: user id is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	var users []models.RegisteredUser
	if _, err := storage.GetJSON(e.store, storage.RegisteredUsersKey, &users); err != nil {
		return err
	}
	for i, u := range users {
		if u.ID == id {
			users[i].Login = login
			users[i].Name = name
			return storage.SetJSON(e.store, storage.RegisteredUsersKey, users)
		}
	}
	users = append(users, models.RegisteredUser{ID: id, Login: login, Name: name})
	return storage.SetJSON(e.store, storage.RegisteredUsersKey, users)
}

// ValidateCode resolves a referral code to its owner. The sentinel code
// maps to the synthetic system referrer; anything else must match a
// registered user's ID or login.
func (e *Engine) ValidateCode(code string) (*models.ReferrerInfo, error) {
	if code == "" {
		return nil, ErrInvalidCode
	}
	if code == domain.SystemReferralCode {
		return &models.ReferrerInfo{ID: domain.SystemReferralCode, Name: domain.SystemReferrerName}, nil
	}
	var users []models.RegisteredUser
	if _, err := storage.GetJSON(e.store, storage.RegisteredUsersKey, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == code || (u.Login != "" && u.Login == code) {
			name := u.Name
			if name == "" {
				name = u.Login
			}
			return &models.ReferrerInfo{ID: u.ID, Name: name}, nil
		}
	}
	return nil, ErrInvalidCode
}

func (e *Engine) loadRecords() ([]models.ReferralRecord, error) {
	var records []models.ReferralRecord
	if _, err := storage.GetJSON(e.store, storage.ReferralRecordsKey, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (e *Engine) saveRecords(records []models.ReferralRecord) error {
	return storage.SetJSON(e.store, storage.ReferralRecordsKey, records)
}

// CreatePendingReferral records a pending referral for a newly
// registered user. The bonus amount is frozen from the live policy at
// creation time; the record expires after seven days. When the referral
// system is disabled no record is created.
func (e *Engine) CreatePendingReferral(code, newUserID string, device DeviceInfo) error {
	cfg := e.config.Config()
	if !cfg.Enabled {
		log.Printf("[referral] system disabled, skipping referral for %s", newUserID)
		return nil
	}
	ref, err := e.ValidateCode(code)
	if err != nil {
		return err
	}
	if ref.ID == newUserID {
		return ErrSelfReferral
	}
	dup, err := e.CheckDuplicateDevice(device)
	if err != nil {
		return err
	}
	if dup {
		return ErrDuplicateDevice
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	records, err := e.loadRecords()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.ReferredUserID == newUserID &&
			(r.Status == domain.ReferralPending || r.Status == domain.ReferralCompleted) {
			return ErrAlreadyReferred
		}
	}

	now := e.now()
	records = append(records, models.ReferralRecord{
		ID:                uuid.NewString(),
		ReferrerID:        ref.ID,
		ReferredUserID:    newUserID,
		BonusAmount:       cfg.BonusAmount,
		Status:            domain.ReferralPending,
		DeviceFingerprint: device.Fingerprint,
		IPAddress:         device.IPAddress,
		CreatedAt:         now,
		ExpiresAt:         now.AddDate(0, 0, domain.ReferralExpiryDays),
	})
	if err := e.saveRecords(records); err != nil {
		return err
	}
	if device.Fingerprint != "" {
		if err := e.recordDevice(device, newUserID); err != nil {
			log.Printf("[referral] failed to record device for %s: %v", newUserID, err)
		}
	}
	return nil
}

func (e *Engine) recordDevice(device DeviceInfo, userID string) error {
	var devices []models.DeviceRecord
	if _, err := storage.GetJSON(e.store, storage.DeviceRecordsKey, &devices); err != nil {
		return err
	}
	devices = append(devices, models.DeviceRecord{
		Fingerprint: device.Fingerprint,
		UserID:      userID,
		IPAddress:   device.IPAddress,
		CreatedAt:   e.now(),
	})
	return storage.SetJSON(e.store, storage.DeviceRecordsKey, devices)
}

// CheckDuplicateDevice reports whether the device fingerprint has
// already been used for a referral. Disabled by default; always false
// when the check is off or the fingerprint is empty.
func (e *Engine) CheckDuplicateDevice(device DeviceInfo) (bool, error) {
	if !e.deviceCheck || device.Fingerprint == "" {
		return false, nil
	}
	var devices []models.DeviceRecord
	if _, err := storage.GetJSON(e.store, storage.DeviceRecordsKey, &devices); err != nil {
		return false, err
	}
	for _, d := range devices {
		if d.Fingerprint == device.Fingerprint {
			return true, nil
		}
	}
	return false, nil
}

// ProcessBonus distributes the signup bonus for the user's pending
// referral: the referred user's plan balance is credited, and unless the
// referrer is the system sentinel, the referrer's plan balance gets the
// same amount. Exactly one pending record is processed per call. Expired
// records flip to expired and pay nothing; a credit failure mid-flight
// flips the record to failed.
func (e *Engine) ProcessBonus(userID string) (*BonusResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.loadRecords()
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, r := range records {
		if r.ReferredUserID == userID && r.Status == domain.ReferralPending {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNoPendingReferral
	}
	rec := &records[idx]

	now := e.now()
	if now.After(rec.ExpiresAt) {
		rec.Status = domain.ReferralExpired
		if err := e.saveRecords(records); err != nil {
			return nil, err
		}
		return nil, ErrReferralExpired
	}

	if err := e.ledger.Credit(userID, domain.BalancePlan, rec.BonusAmount, "Bônus de indicação", ""); err != nil {
		e.markFailed(records, idx, "credit referred user: "+err.Error())
		return nil, fmt.Errorf("referral: credit referred user %s: %w", userID, err)
	}
	payout := rec.BonusAmount
	referrerBonus := decimal.Zero
	if rec.ReferrerID != domain.SystemReferralCode {
		if err := e.ledger.Credit(rec.ReferrerID, domain.BalancePlan, rec.BonusAmount, "Bônus por indicação de "+userID, ""); err != nil {
			e.markFailed(records, idx, "credit referrer: "+err.Error())
			return nil, fmt.Errorf("referral: credit referrer %s: %w", rec.ReferrerID, err)
		}
		referrerBonus = rec.BonusAmount
		payout = payout.Add(referrerBonus)
	}

	rec.Status = domain.ReferralCompleted
	rec.CompletedAt = &now
	if err := e.saveRecords(records); err != nil {
		return nil, err
	}

	if _, err := e.cash.Add(models.CashEntry{
		Type:        domain.CashReferralCommission,
		UserID:      userID,
		Amount:      payout,
		Description: "Bônus de indicação",
		Detail: models.CashDetail{Commission: &models.CommissionDetail{
			ReferrerID:     rec.ReferrerID,
			OriginalUserID: userID,
			OriginalAmount: rec.BonusAmount,
		}},
	}); err != nil {
		log.Printf("[referral] failed to journal bonus payout for %s: %v", userID, err)
	}

	return &BonusResult{
		BonusReceived: rec.BonusAmount,
		ReferrerID:    rec.ReferrerID,
		ReferrerBonus: referrerBonus,
	}, nil
}

func (e *Engine) markFailed(records []models.ReferralRecord, idx int, reason string) {
	records[idx].Status = domain.ReferralFailed
	records[idx].FailureReason = reason
	if err := e.saveRecords(records); err != nil {
		log.Printf("[referral] failed to persist failed referral %s: %v", records[idx].ID, err)
	}
}

// ProcessRechargeCommission pays the referrer their percentage of a
// recharge made by a user they referred. No-op unless the user has a
// completed referral with a non-sentinel referrer.
func (e *Engine) ProcessRechargeCommission(userID string, rechargeAmount decimal.Decimal) (*CommissionResult, error) {
	if rechargeAmount.Sign() <= 0 {
		return nil, nil
	}
	cfg := e.config.Config()
	if !cfg.Enabled {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	records, err := e.loadRecords()
	if err != nil {
		return nil, err
	}
	var referrerID string
	for _, r := range records {
		if r.ReferredUserID == userID && r.Status == domain.ReferralCompleted {
			referrerID = r.ReferrerID
			break
		}
	}
	if referrerID == "" || referrerID == domain.SystemReferralCode {
		return nil, nil
	}

	commission := rechargeAmount.Mul(cfg.CommissionPercentage).Div(decimal.NewFromInt(100))
	if commission.Sign() <= 0 {
		return nil, nil
	}
	if err := e.ledger.Credit(referrerID, domain.BalanceWallet, commission, "Comissão de recarga de "+userID, ""); err != nil {
		return nil, fmt.Errorf("referral: credit commission to %s: %w", referrerID, err)
	}
	if _, err := e.cash.Add(models.CashEntry{
		Type:        domain.CashRechargeCommission,
		UserID:      referrerID,
		Amount:      commission,
		Description: "Comissão de recarga",
		Detail: models.CashDetail{Commission: &models.CommissionDetail{
			ReferrerID:     referrerID,
			OriginalUserID: userID,
			OriginalAmount: rechargeAmount,
		}},
	}); err != nil {
		log.Printf("[referral] failed to journal commission for %s: %v", referrerID, err)
	}
	if e.bus != nil {
		e.bus.Publish(context.Background(), events.Event{
			Name: domain.EventBalanceRechargeUpdated,
			Data: map[string]any{
				"user_id":        referrerID,
				"should_animate": true,
				"amount":         commission.String(),
				"method":         domain.CashRechargeCommission,
			},
		})
	}
	return &CommissionResult{ReferrerID: referrerID, Commission: commission}, nil
}

// Records returns all referral records (admin view).
func (e *Engine) Records() ([]models.ReferralRecord, error) {
	return e.loadRecords()
}
