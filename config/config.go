package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Referral ReferralConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	APIKey string
	Expiry time.Duration
	Issuer string
}

type ReferralConfig struct {
	ConfigURL          string
	FetchTimeout       time.Duration
	DeviceCheckEnabled bool
}

// StorageConfig selects the Store implementation: "memory" or "mysql".
type StorageConfig struct {
	Driver string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         get("PORT", "8090"),
			Env:          get("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             get("DB_DSN", "apipanel:apipanel@tcp(localhost:3306)/apipanel?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		Redis: RedisConfig{
			Enabled:  get("REDIS_ADDR", "") != "",
			Addr:     get("REDIS_ADDR", "localhost:6379"),
			Password: get("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: get("JWT_SECRET", "change-me-in-production"),
			APIKey: get("API_KEY", "change-me-api-key"),
			Expiry: time.Duration(getInt("JWT_EXPIRY_MIN", 60)) * time.Minute,
			Issuer: "apipanel",
		},
		Referral: ReferralConfig{
			ConfigURL:          get("REFERRAL_CONFIG_URL", ""),
			FetchTimeout:       5 * time.Second,
			DeviceCheckEnabled: get("REFERRAL_DEVICE_CHECK", "") == "true",
		},
		Storage: StorageConfig{
			Driver: get("STORAGE_DRIVER", "mysql"),
		},
	}
}

func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
