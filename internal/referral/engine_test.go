package referral

import (
	"errors"
	"testing"
	"time"

	"apipanel/internal/centralcash"
	"apipanel/internal/domain"
	"apipanel/internal/events"
	"apipanel/internal/ledger"
	"apipanel/internal/models"
	"apipanel/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type staticConfig struct {
	cfg models.ReferralConfig
}

func (s staticConfig) Config() models.ReferralConfig { return s.cfg }

type fixture struct {
	store  storage.Store
	ledger *ledger.Ledger
	cash   *centralcash.Ledger
	engine *Engine
}

func newFixture(store storage.Store, deviceCheck bool) *fixture {
	bus := events.NewLocalBus()
	bal := ledger.New(store, bus)
	cash := centralcash.New(store)
	cfg := staticConfig{cfg: DefaultConfig()}
	return &fixture{
		store:  store,
		ledger: bal,
		cash:   cash,
		engine: New(store, bal, cash, cfg, bus, deviceCheck),
	}
}

func TestValidateCode(t *testing.T) {
	f := newFixture(storage.NewMemoryStore(), false)
	require.NoError(t, f.engine.RegisterUser("42", "maria", "Maria"))

	info, err := f.engine.ValidateCode(domain.SystemReferralCode)
	require.NoError(t, err)
	assert.Equal(t, domain.SystemReferrerName, info.Name)

	info, err = f.engine.ValidateCode("42")
	require.NoError(t, err)
	assert.Equal(t, "42", info.ID)

	info, err = f.engine.ValidateCode("maria")
	require.NoError(t, err)
	assert.Equal(t, "42", info.ID)

	_, err = f.engine.ValidateCode("nobody")
	assert.ErrorIs(t, err, ErrInvalidCode)
	_, err = f.engine.ValidateCode("")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

// Redeeming the sentinel code pays the signup bonus once, onto the plan
// balance, and completes the record. A second processing attempt finds
// no pending record.
func TestSystemCodeBonusOnce(t *testing.T) {
	f := newFixture(storage.NewMemoryStore(), false)
	require.NoError(t, f.engine.CreatePendingReferral(domain.SystemReferralCode, "U1", DeviceInfo{}))

	result, err := f.engine.ProcessBonus("U1")
	require.NoError(t, err)
	assert.True(t, result.BonusReceived.Equal(dec("3.00")))
	assert.Equal(t, domain.SystemReferralCode, result.ReferrerID)
	assert.True(t, result.ReferrerBonus.IsZero())

	plan, err := f.ledger.Balance("U1", domain.BalancePlan)
	require.NoError(t, err)
	assert.True(t, plan.Equal(dec("3.00")))

	txs, err := f.ledger.Transactions("U1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxCredit, txs[0].Type)
	assert.Equal(t, domain.BalancePlan, txs[0].BalanceType)
	assert.True(t, txs[0].Amount.Equal(dec("3.00")))

	records, err := f.engine.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ReferralCompleted, records[0].Status)
	require.NotNil(t, records[0].CompletedAt)

	_, err = f.engine.ProcessBonus("U1")
	assert.ErrorIs(t, err, ErrNoPendingReferral)
	plan, _ = f.ledger.Balance("U1", domain.BalancePlan)
	assert.True(t, plan.Equal(dec("3.00")), "second call must not double-credit")
}

// A real referrer gets the same plan bonus as the referred user, and
// later earns 5% of the referred user's recharges on their wallet.
func TestReferrerBonusAndRechargeCommission(t *testing.T) {
	f := newFixture(storage.NewMemoryStore(), false)
	require.NoError(t, f.engine.RegisterUser("42", "maria", "Maria"))
	require.NoError(t, f.engine.CreatePendingReferral("42", "U2", DeviceInfo{}))

	result, err := f.engine.ProcessBonus("U2")
	require.NoError(t, err)
	assert.Equal(t, "42", result.ReferrerID)
	assert.True(t, result.ReferrerBonus.Equal(dec("3.00")))

	planU2, _ := f.ledger.Balance("U2", domain.BalancePlan)
	plan42, _ := f.ledger.Balance("42", domain.BalancePlan)
	assert.True(t, planU2.Equal(dec("3.00")))
	assert.True(t, plan42.Equal(dec("3.00")))

	// both bonuses journaled as one referral-commission payout
	payouts, err := f.cash.TransactionsByType(domain.CashReferralCommission)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.True(t, payouts[0].Amount.Equal(dec("6.00")))
	require.NotNil(t, payouts[0].Detail.Commission)
	assert.Equal(t, "42", payouts[0].Detail.Commission.ReferrerID)

	// the referred user recharges 100.00
	require.NoError(t, f.ledger.Credit("U2", domain.BalanceWallet, dec("100.00"), "Recarga", ""))
	commission, err := f.engine.ProcessRechargeCommission("U2", dec("100.00"))
	require.NoError(t, err)
	require.NotNil(t, commission)
	assert.Equal(t, "42", commission.ReferrerID)
	assert.True(t, commission.Commission.Equal(dec("5.00")), "commission: %s", commission.Commission)

	wallet42, _ := f.ledger.Balance("42", domain.BalanceWallet)
	walletU2, _ := f.ledger.Balance("U2", domain.BalanceWallet)
	assert.True(t, wallet42.Equal(dec("5.00")))
	assert.True(t, walletU2.Equal(dec("100.00")), "commission must not touch the recharged wallet")

	journal, err := f.cash.TransactionsByType(domain.CashRechargeCommission)
	require.NoError(t, err)
	require.Len(t, journal, 1)
	assert.True(t, journal[0].Amount.Equal(dec("5.00")))
}

func TestRechargeCommissionNoops(t *testing.T) {
	f := newFixture(storage.NewMemoryStore(), false)

	// no referral at all
	res, err := f.engine.ProcessRechargeCommission("U9", dec("50.00"))
	require.NoError(t, err)
	assert.Nil(t, res)

	// sentinel referrer earns nothing
	require.NoError(t, f.engine.CreatePendingReferral(domain.SystemReferralCode, "U1", DeviceInfo{}))
	_, err = f.engine.ProcessBonus("U1")
	require.NoError(t, err)
	res, err = f.engine.ProcessRechargeCommission("U1", dec("50.00"))
	require.NoError(t, err)
	assert.Nil(t, res)

	// pending (not completed) referral earns nothing
	require.NoError(t, f.engine.RegisterUser("42", "maria", "Maria"))
	require.NoError(t, f.engine.CreatePendingReferral("42", "U2", DeviceInfo{}))
	res, err = f.engine.ProcessRechargeCommission("U2", dec("50.00"))
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestExpirationBoundary(t *testing.T) {
	f := newFixture(storage.NewMemoryStore(), false)
	created := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	expiry := created.AddDate(0, 0, domain.ReferralExpiryDays)

	f.engine.now = func() time.Time { return created }
	require.NoError(t, f.engine.CreatePendingReferral(domain.SystemReferralCode, "U1", DeviceInfo{}))

	// one second past expiry: record flips to expired, nothing is paid
	f.engine.now = func() time.Time { return expiry.Add(time.Second) }
	_, err := f.engine.ProcessBonus("U1")
	assert.ErrorIs(t, err, ErrReferralExpired)
	records, _ := f.engine.Records()
	require.Len(t, records, 1)
	assert.Equal(t, domain.ReferralExpired, records[0].Status)
	plan, _ := f.ledger.Balance("U1", domain.BalancePlan)
	assert.True(t, plan.IsZero())

	// an expired record does not block a new referral
	f.engine.now = func() time.Time { return expiry.Add(time.Hour) }
	require.NoError(t, f.engine.CreatePendingReferral(domain.SystemReferralCode, "U1", DeviceInfo{}))

	// one second before the new expiry: bonus is paid
	f.engine.now = func() time.Time {
		return expiry.Add(time.Hour).AddDate(0, 0, domain.ReferralExpiryDays).Add(-time.Second)
	}
	_, err = f.engine.ProcessBonus("U1")
	require.NoError(t, err)
	plan, _ = f.ledger.Balance("U1", domain.BalancePlan)
	assert.True(t, plan.Equal(dec("3.00")))
}

func TestCreatePendingReferralGuards(t *testing.T) {
	f := newFixture(storage.NewMemoryStore(), false)
	require.NoError(t, f.engine.RegisterUser("42", "maria", "Maria"))

	assert.ErrorIs(t, f.engine.CreatePendingReferral("nobody", "U1", DeviceInfo{}), ErrInvalidCode)
	assert.ErrorIs(t, f.engine.CreatePendingReferral("42", "42", DeviceInfo{}), ErrSelfReferral)

	require.NoError(t, f.engine.CreatePendingReferral("42", "U1", DeviceInfo{}))
	assert.ErrorIs(t, f.engine.CreatePendingReferral("42", "U1", DeviceInfo{}), ErrAlreadyReferred)
}

func TestDisabledSystemCreatesNothing(t *testing.T) {
	store := storage.NewMemoryStore()
	f := newFixture(store, false)
	f.engine.config = staticConfig{cfg: models.ReferralConfig{
		BonusAmount:          dec("3.00"),
		CommissionPercentage: dec("5"),
		Enabled:              false,
	}}

	require.NoError(t, f.engine.CreatePendingReferral(domain.SystemReferralCode, "U1", DeviceInfo{}))
	records, err := f.engine.Records()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDuplicateDeviceCheck(t *testing.T) {
	f := newFixture(storage.NewMemoryStore(), true)
	device := DeviceInfo{Fingerprint: "fp-1", IPAddress: "10.0.0.1"}
	require.NoError(t, f.engine.CreatePendingReferral(domain.SystemReferralCode, "U1", device))

	err := f.engine.CreatePendingReferral(domain.SystemReferralCode, "U2", device)
	assert.ErrorIs(t, err, ErrDuplicateDevice)

	// with the check disabled the same device passes
	off := newFixture(storage.NewMemoryStore(), false)
	require.NoError(t, off.engine.CreatePendingReferral(domain.SystemReferralCode, "U1", device))
	require.NoError(t, off.engine.CreatePendingReferral(domain.SystemReferralCode, "U2", device))
}

// failingStore breaks writes to one key, simulating a storage fault
// mid-distribution.
type failingStore struct {
	*storage.MemoryStore
	failKey string
}

func (f *failingStore) Set(key, value string) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(key, value)
}

func TestCreditFailureMarksRecordFailed(t *testing.T) {
	store := &failingStore{
		MemoryStore: storage.NewMemoryStore(),
		failKey:     storage.PlanBalanceKey("42"),
	}
	f := newFixture(store, false)
	require.NoError(t, f.engine.RegisterUser("42", "maria", "Maria"))
	require.NoError(t, f.engine.CreatePendingReferral("42", "U1", DeviceInfo{}))

	_, err := f.engine.ProcessBonus("U1")
	require.Error(t, err)

	records, rerr := f.engine.Records()
	require.NoError(t, rerr)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ReferralFailed, records[0].Status)
	assert.NotEmpty(t, records[0].FailureReason)
}
