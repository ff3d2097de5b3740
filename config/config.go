package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Price sources
const (
	PriceSourceNone      = "none"
	PriceSourceStatic    = "static"
	PriceSourceOneClick  = "oneclick"
	PriceSourceChainlink = "chainlink"
)

// Config holds the application configuration
type Config struct {
	Dapp    string
	Account string
	ChainID int64
	RPCURL  string

	TokensFile  string
	TokensURL   string
	OrdersFile  string
	OrdersStore string

	PriceSource string
	PricesFile  string
	PriceFeeds  map[string]string

	OneClickJWT     string
	OneClickBaseURL string

	AmountPrecision int32
	RefreshInterval time.Duration

	// LogoURLTemplate overrides the dapp's logo url template, e.g.
	// "https://logos.example/{address}.png"
	LogoURLTemplate string

	LogLevel string
	LogFile  string
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".twap-adapter")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("dapp", "pancake")
	viper.SetDefault("price_source", PriceSourceNone)
	viper.SetDefault("oneclick_base_url", "https://1click.chaindefuser.com")
	viper.SetDefault("amount_precision", 6)
	viper.SetDefault("refresh_interval", "30s")
	viper.SetDefault("log_level", "warn")

	// Read from environment variables
	viper.SetEnvPrefix("TWAP_ADAPTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Dapp:            strings.ToLower(viper.GetString("dapp")),
		Account:         viper.GetString("account"),
		ChainID:         viper.GetInt64("chain_id"),
		RPCURL:          viper.GetString("rpc_url"),
		TokensFile:      viper.GetString("tokens_file"),
		TokensURL:       viper.GetString("tokens_url"),
		OrdersFile:      viper.GetString("orders_file"),
		OrdersStore:     viper.GetString("orders_store"),
		PriceSource:     strings.ToLower(viper.GetString("price_source")),
		PricesFile:      viper.GetString("prices_file"),
		PriceFeeds:      viper.GetStringMapString("price_feeds"),
		OneClickJWT:     viper.GetString("oneclick_jwt"),
		OneClickBaseURL: viper.GetString("oneclick_base_url"),
		AmountPrecision: viper.GetInt32("amount_precision"),
		RefreshInterval: viper.GetDuration("refresh_interval"),
		LogoURLTemplate: viper.GetString("logo_url_template"),
		LogLevel:        viper.GetString("log_level"),
		LogFile:         viper.GetString("log_file"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// Validate checks values that can't be defaulted
func (c *Config) Validate() error {
	if c.Dapp == "" {
		return fmt.Errorf("dapp not set. Please set TWAP_ADAPTER_DAPP or add 'dapp' to .twap-adapter.yaml")
	}

	if c.Account != "" && !common.IsHexAddress(c.Account) {
		return fmt.Errorf("invalid account address: %s", c.Account)
	}

	if c.TokensFile == "" && c.TokensURL == "" {
		return fmt.Errorf("no token list configured. Please set tokens_file or tokens_url")
	}

	switch c.PriceSource {
	case PriceSourceNone:
	case PriceSourceStatic:
		if c.PricesFile == "" {
			return fmt.Errorf("price source 'static' requires prices_file")
		}
	case PriceSourceOneClick:
		if c.OneClickJWT == "" {
			return fmt.Errorf("price source 'oneclick' requires oneclick_jwt. Please set TWAP_ADAPTER_ONECLICK_JWT")
		}
	case PriceSourceChainlink:
		if c.RPCURL == "" {
			return fmt.Errorf("price source 'chainlink' requires rpc_url")
		}
		if len(c.PriceFeeds) == 0 {
			return fmt.Errorf("price source 'chainlink' requires price_feeds")
		}
	default:
		return fmt.Errorf("unknown price source '%s' (expected none, static, oneclick or chainlink)", c.PriceSource)
	}

	if c.AmountPrecision < 0 || c.AmountPrecision > 18 {
		return fmt.Errorf("amount_precision must be between 0 and 18, got %d", c.AmountPrecision)
	}

	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive")
	}

	return nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
