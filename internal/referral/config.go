package referral

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"apipanel/internal/models"
	"apipanel/internal/storage"

	"github.com/shopspring/decimal"
)

// DefaultConfig is the hardcoded fallback policy used when neither the
// remote config service nor the cached copy is available.
func DefaultConfig() models.ReferralConfig {
	return models.ReferralConfig{
		BonusAmount:          decimal.RequireFromString("3.00"),
		CommissionPercentage: decimal.NewFromInt(5),
		Enabled:              true,
	}
}

// ConfigClient fetches the live referral policy from the remote config
// service, caching the last good copy in the store. Fetch failures are
// never surfaced to callers; they fall back to cache, then defaults.
type ConfigClient struct {
	url    string
	store  storage.Store
	client *http.Client
}

func NewConfigClient(url string, timeout time.Duration, store storage.Store) *ConfigClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ConfigClient{
		url:    url,
		store:  store,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *ConfigClient) Config() models.ReferralConfig {
	if c.url != "" {
		cfg, err := c.fetch()
		if err == nil {
			if err := storage.SetJSON(c.store, storage.ReferralConfigKey, cfg); err != nil {
				log.Printf("[referral] failed to cache config: %v", err)
			}
			return cfg
		}
		log.Printf("[referral] config fetch failed, using cached/default: %v", err)
	}
	var cached models.ReferralConfig
	ok, err := storage.GetJSON(c.store, storage.ReferralConfigKey, &cached)
	if err == nil && ok {
		return cached
	}
	return DefaultConfig()
}

func (c *ConfigClient) fetch() (models.ReferralConfig, error) {
	resp, err := c.client.Get(c.url)
	if err != nil {
		return models.ReferralConfig{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.ReferralConfig{}, fmt.Errorf("config service returned %d", resp.StatusCode)
	}
	var cfg models.ReferralConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return models.ReferralConfig{}, err
	}
	if cfg.BonusAmount.Sign() <= 0 || cfg.CommissionPercentage.Sign() < 0 {
		return models.ReferralConfig{}, fmt.Errorf("config service returned invalid amounts")
	}
	return cfg, nil
}
