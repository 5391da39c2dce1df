package referral

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"apipanel/internal/models"
	"apipanel/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFetchAndCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"referral_bonus_amount":"4.50","referral_commission_percentage":"7","referral_system_enabled":true}`))
	}))
	defer srv.Close()

	store := storage.NewMemoryStore()
	client := NewConfigClient(srv.URL, time.Second, store)

	cfg := client.Config()
	assert.True(t, cfg.BonusAmount.Equal(dec("4.50")))
	assert.True(t, cfg.CommissionPercentage.Equal(dec("7")))
	assert.True(t, cfg.Enabled)

	// fetched config is cached in the store
	var cached models.ReferralConfig
	ok, err := storage.GetJSON(store, storage.ReferralConfigKey, &cached)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cached.BonusAmount.Equal(dec("4.50")))
}

func TestConfigFallsBackToCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := storage.NewMemoryStore()
	require.NoError(t, storage.SetJSON(store, storage.ReferralConfigKey, models.ReferralConfig{
		BonusAmount:          dec("2.00"),
		CommissionPercentage: dec("3"),
		Enabled:              true,
	}))

	cfg := NewConfigClient(srv.URL, time.Second, store).Config()
	assert.True(t, cfg.BonusAmount.Equal(dec("2.00")))
	assert.True(t, cfg.CommissionPercentage.Equal(dec("3")))
}

func TestConfigFallsBackToDefaults(t *testing.T) {
	store := storage.NewMemoryStore()

	// no URL configured
	cfg := NewConfigClient("", time.Second, store).Config()
	assert.True(t, cfg.BonusAmount.Equal(dec("3.00")))
	assert.True(t, cfg.CommissionPercentage.Equal(dec("5")))
	assert.True(t, cfg.Enabled)

	// unreachable service, empty cache
	cfg = NewConfigClient("http://127.0.0.1:1", time.Second, store).Config()
	assert.True(t, cfg.BonusAmount.Equal(dec("3.00")))
}

func TestConfigRejectsInvalidAmounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"referral_bonus_amount":"0","referral_commission_percentage":"5","referral_system_enabled":true}`))
	}))
	defer srv.Close()

	cfg := NewConfigClient(srv.URL, time.Second, storage.NewMemoryStore()).Config()
	// invalid payload falls through to the defaults
	assert.True(t, cfg.BonusAmount.Equal(dec("3.00")))
}
