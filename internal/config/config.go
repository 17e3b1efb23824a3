// Package config carries the two configuration layers: immutable
// process environment (tokens, DSNs) and the hot-reloadable
// config.json with feature toggles and limits.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Env is read once at startup from the process environment (.env is
// loaded by main before this).
type Env struct {
	BotToken    string
	AdminID     int64
	DatabaseURL string

	RedisAddr     string // empty means in-memory sessions
	RedisPassword string
	RedisDB       int

	HTTPAddr         string // empty disables the ops API
	JWTSecret        string
	OpsAdminUser     string
	OpsAdminPassword string // bcrypt hash

	ServerURL        string // shown in connection info, also QR-encoded
	ValidationPolicy string // "basic" or "strict"
}

func LoadEnv() (*Env, error) {
	e := &Env{
		BotToken:         os.Getenv("BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		HTTPAddr:         os.Getenv("HTTP_ADDR"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		OpsAdminUser:     os.Getenv("OPS_ADMIN_USER"),
		OpsAdminPassword: os.Getenv("OPS_ADMIN_PASSWORD"),
		ServerURL:        os.Getenv("SERVER_URL"),
		ValidationPolicy: os.Getenv("VALIDATION_POLICY"),
	}
	if e.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is not set")
	}
	if raw := os.Getenv("ADMIN_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_ID: %w", err)
		}
		e.AdminID = id
	}
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB: %w", err)
		}
		e.RedisDB = db
	}
	if e.ValidationPolicy == "" {
		e.ValidationPolicy = "basic"
	}
	return e, nil
}

// Features gates whole flows. A disabled feature rejects at the entry
// point before any repository access.
type Features struct {
	Registration       bool `json:"registration"`
	PasswordReset      bool `json:"password_reset"`
	AccountManagement  bool `json:"account_management"`
	AdminPanel         bool `json:"admin_panel"`
	AdminBroadcast     bool `json:"admin_broadcast"`
	AdminCheckDB       bool `json:"admin_check_db"`
	AdminDeleteAccount bool `json:"admin_delete_account"`
	AdminReloadConfig  bool `json:"admin_reload_config"`
	CurrencyShop       bool `json:"currency_shop"`
}

type Settings struct {
	MaxAccountsPerUser int `json:"max_accounts_per_user"`
}

type ShopSettings struct {
	Enabled      bool `json:"enabled"`
	BalanceCheck bool `json:"balance_check"`
	Purchase     bool `json:"purchase"`
	CustomMin    int  `json:"custom_min"`
	CustomMax    int  `json:"custom_max"`
}

type fileConfig struct {
	Features Features     `json:"features"`
	Settings Settings     `json:"settings"`
	Shop     ShopSettings `json:"currency_shop"`
}

func defaults() fileConfig {
	return fileConfig{
		Features: Features{
			Registration:       true,
			PasswordReset:      true,
			AccountManagement:  true,
			AdminPanel:         true,
			AdminBroadcast:     true,
			AdminCheckDB:       true,
			AdminDeleteAccount: true,
			AdminReloadConfig:  true,
			CurrencyShop:       false,
		},
		Settings: Settings{MaxAccountsPerUser: 3},
		Shop:     ShopSettings{CustomMin: 1, CustomMax: 10000},
	}
}

// Runtime is the reloadable portion. Readers take a snapshot; Reload
// swaps it atomically and reports what changed.
type Runtime struct {
	mu   sync.RWMutex
	path string
	cur  fileConfig
}

// LoadRuntime reads path, falling back to defaults when the file is
// missing or malformed (the bot must come up either way).
func LoadRuntime(path string) *Runtime {
	r := &Runtime{path: path, cur: defaults()}
	if cfg, err := readFile(path); err == nil {
		r.cur = cfg
	}
	return r
}

func readFile(path string) (fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, err
	}
	cfg := defaults()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Settings.MaxAccountsPerUser <= 0 {
		cfg.Settings.MaxAccountsPerUser = defaults().Settings.MaxAccountsPerUser
	}
	return cfg, nil
}

func (r *Runtime) Features() Features {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cur.Features
}

func (r *Runtime) MaxAccountsPerUser() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cur.Settings.MaxAccountsPerUser
}

func (r *Runtime) Shop() ShopSettings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cur.Shop
}

// Reload re-reads the file and returns human-readable change lines for
// the admin notification.
func (r *Runtime) Reload() ([]string, error) {
	next, err := readFile(r.path)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	prev := r.cur
	r.cur = next
	r.mu.Unlock()

	var changes []string
	for _, d := range []struct {
		name     string
		old, new bool
	}{
		{"registration", prev.Features.Registration, next.Features.Registration},
		{"password_reset", prev.Features.PasswordReset, next.Features.PasswordReset},
		{"account_management", prev.Features.AccountManagement, next.Features.AccountManagement},
		{"admin_panel", prev.Features.AdminPanel, next.Features.AdminPanel},
		{"admin_broadcast", prev.Features.AdminBroadcast, next.Features.AdminBroadcast},
		{"admin_check_db", prev.Features.AdminCheckDB, next.Features.AdminCheckDB},
		{"admin_delete_account", prev.Features.AdminDeleteAccount, next.Features.AdminDeleteAccount},
		{"admin_reload_config", prev.Features.AdminReloadConfig, next.Features.AdminReloadConfig},
		{"currency_shop", prev.Features.CurrencyShop, next.Features.CurrencyShop},
	} {
		if d.old != d.new {
			state := "disabled"
			if d.new {
				state = "enabled"
			}
			changes = append(changes, fmt.Sprintf("feature %s %s", d.name, state))
		}
	}
	if prev.Settings.MaxAccountsPerUser != next.Settings.MaxAccountsPerUser {
		changes = append(changes, fmt.Sprintf("account limit changed to %d", next.Settings.MaxAccountsPerUser))
	}
	return changes, nil
}
