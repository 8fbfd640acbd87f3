// Package config loads service configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/yumao/kakeibo/internal/reconcile"
	"github.com/yumao/kakeibo/internal/schedule"
	"github.com/yumao/kakeibo/internal/sheets"
)

// Config holds application configuration.
type Config struct {
	Server  ServerConfig
	Sheets  SheetsConfig
	Budget  BudgetConfig
	Assets  AssetsConfig
	Trigger []TriggerConfig
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port string
}

// SheetsConfig locates the spreadsheet.
type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Ledger          string
	AssetSheet      string `mapstructure:"asset_sheet"`
	Status          string
	Wishlist        string
	Projection      string
	HeaderRows      int `mapstructure:"header_rows"`
}

// BudgetConfig holds the monthly allowance, with overrides keyed by
// month number ("2" = February).
type BudgetConfig struct {
	Monthly   float64
	Overrides map[string]float64
}

// AssetsConfig names the special asset rows.
type AssetsConfig struct {
	TotalName string   `mapstructure:"total_name"`
	Liquid    []string // account names counted as liquid cash
}

// TriggerConfig defines one scheduled fixed-cost action.
type TriggerConfig struct {
	Key     string
	Label   string
	Amount  float64
	Inflow  bool
	Day     int
	Account string
}

// Load reads configuration from file and env. Env var overrides use
// prefix KAKEIBO_, e.g. KAKEIBO_SHEETS_SPREADSHEET_ID.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("sheets.ledger", "Ledger")
	v.SetDefault("sheets.asset_sheet", "Assets")
	v.SetDefault("sheets.status", "Status")
	v.SetDefault("sheets.wishlist", "Wishlist")
	v.SetDefault("sheets.projection", "Projection")
	v.SetDefault("sheets.header_rows", 4)
	v.SetDefault("budget.monthly", 2207)
	v.SetDefault("budget.overrides", map[string]float64{"2": 97})
	v.SetDefault("assets.total_name", "total")
	v.SetDefault("assets.liquid", []string{"primary cash", "secondary wallet"})

	v.SetConfigType("toml")

	cfgPath := os.Getenv("KAKEIBO_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "kakeibo"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("KAKEIBO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// SheetsClientConfig converts to the store package's config.
func (c Config) SheetsClientConfig() sheets.Config {
	return sheets.Config{
		SpreadsheetID:    c.Sheets.SpreadsheetID,
		CredentialsFile:  c.Sheets.CredentialsFile,
		LedgerSheet:      c.Sheets.Ledger,
		AssetSheet:       c.Sheets.AssetSheet,
		StatusSheet:      c.Sheets.Status,
		WishlistSheet:    c.Sheets.Wishlist,
		ProjectionSheet:  c.Sheets.Projection,
		LedgerHeaderRows: c.Sheets.HeaderRows,
		TotalName:        c.Assets.TotalName,
	}
}

// BudgetSchedule converts the budget table to the engine's form.
// Override keys that are not month numbers are ignored.
func (c Config) BudgetSchedule() reconcile.BudgetSchedule {
	overrides := make(map[int]decimal.Decimal, len(c.Budget.Overrides))
	for k, amt := range c.Budget.Overrides {
		m, err := strconv.Atoi(k)
		if err != nil || m < 1 || m > 12 {
			continue
		}
		overrides[m] = decimal.NewFromFloat(amt)
	}
	return reconcile.BudgetSchedule{
		Default:   decimal.NewFromFloat(c.Budget.Monthly),
		Overrides: overrides,
	}
}

// Triggers converts the configured fixed-cost actions.
func (c Config) Triggers() []schedule.Trigger {
	out := make([]schedule.Trigger, 0, len(c.Trigger))
	for _, t := range c.Trigger {
		out = append(out, schedule.Trigger{
			Key:     t.Key,
			Label:   t.Label,
			Amount:  decimal.NewFromFloat(t.Amount),
			Inflow:  t.Inflow,
			Day:     t.Day,
			Account: t.Account,
		})
	}
	return out
}
