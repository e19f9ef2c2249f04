// Package config loads the server configuration from the environment, an
// optional .env file and an optional vh.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/evcraddock/visit-hub/internal/auth"
	"github.com/evcraddock/visit-hub/internal/db"
)

// Slot backends.
const (
	BackendSQLite = "sqlite"
	BackendValkey = "valkey"
	BackendMemory = "memory"
)

// DefaultStorageCapacity is the nominal size of the visits slot.
const DefaultStorageCapacity = 5 * 1024 * 1024

// Config is the server configuration.
type Config struct {
	Addr            string
	DBPath          string
	DBDriver        string
	SlotBackend     string
	ValkeyAddr      string
	DevMode         bool
	LogLevel        string
	JWTSecret       string
	SessionTTL      time.Duration
	SetupToken      string
	AdminUsername   string
	AdminPassword   string
	AdminEmail      string
	StorageCapacity int64
	SecureCookies   bool
}

// Load reads .env (if present), VH_* environment variables and vh.yaml from
// the working directory or ~/.config/vh.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "vh"))
	}
	return load(viper.New(), paths...)
}

func load(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetEnvPrefix("VH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	if path, err := db.DefaultPath(); err == nil {
		v.SetDefault("db_path", path)
	}
	v.SetDefault("db_driver", db.DriverCGO)
	v.SetDefault("slot_backend", BackendSQLite)
	v.SetDefault("valkey_addr", "localhost:6379")
	v.SetDefault("dev_mode", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("session_ttl", auth.DefaultSessionTTL)
	v.SetDefault("setup_token", "")
	v.SetDefault("admin_username", "")
	v.SetDefault("admin_password", "")
	v.SetDefault("admin_email", "")
	v.SetDefault("storage_capacity", DefaultStorageCapacity)
	v.SetDefault("secure_cookies", false)

	v.SetConfigName("vh")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		Addr:            v.GetString("addr"),
		DBPath:          v.GetString("db_path"),
		DBDriver:        v.GetString("db_driver"),
		SlotBackend:     strings.ToLower(v.GetString("slot_backend")),
		ValkeyAddr:      v.GetString("valkey_addr"),
		DevMode:         v.GetBool("dev_mode"),
		LogLevel:        v.GetString("log_level"),
		JWTSecret:       v.GetString("jwt_secret"),
		SessionTTL:      v.GetDuration("session_ttl"),
		SetupToken:      v.GetString("setup_token"),
		AdminUsername:   v.GetString("admin_username"),
		AdminPassword:   v.GetString("admin_password"),
		AdminEmail:      v.GetString("admin_email"),
		StorageCapacity: v.GetInt64("storage_capacity"),
		SecureCookies:   v.GetBool("secure_cookies"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the combination of settings. In dev mode a missing JWT
// secret is replaced with a fixed development value.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if !c.DevMode {
			return errors.New("jwt_secret is required (set VH_JWT_SECRET)")
		}
		c.JWTSecret = "visit-hub-dev-secret"
	}

	switch c.SlotBackend {
	case BackendSQLite, BackendValkey, BackendMemory:
	default:
		return fmt.Errorf("unknown slot_backend %q", c.SlotBackend)
	}

	switch c.DBDriver {
	case db.DriverCGO, db.DriverPure, db.DriverLibSQL:
	default:
		return fmt.Errorf("unknown db_driver %q", c.DBDriver)
	}

	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if c.SlotBackend == BackendValkey && c.ValkeyAddr == "" {
		return errors.New("valkey_addr is required for the valkey backend")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	if c.StorageCapacity <= 0 {
		return fmt.Errorf("storage_capacity must be positive, got %d", c.StorageCapacity)
	}
	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		return errors.New("admin_username and admin_password must be set together")
	}
	return nil
}

// Auth returns the session and token settings.
func (c *Config) Auth() auth.Config {
	return auth.Config{
		JWTSecret:     []byte(c.JWTSecret),
		SessionTTL:    c.SessionTTL,
		SecureCookies: c.SecureCookies,
	}
}
