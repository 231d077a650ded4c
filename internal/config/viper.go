// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. BUDGETSYNC_LOG_LEVEL.
const EnvPrefix = "BUDGETSYNC"

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Browser struct {
		Bin                 string `mapstructure:"bin" yaml:"bin"`
		Headless            bool   `mapstructure:"headless" yaml:"headless"`
		UserAgent           string `mapstructure:"user_agent" yaml:"user_agent"`
		LoginURL            string `mapstructure:"login_url" yaml:"login_url"`
		AppURL              string `mapstructure:"app_url" yaml:"app_url"`
		BudgetsURL          string `mapstructure:"budgets_url" yaml:"budgets_url"`
		ElementTimeoutMS    int    `mapstructure:"element_timeout_ms" yaml:"element_timeout_ms"`
		NavigationTimeoutMS int    `mapstructure:"navigation_timeout_ms" yaml:"navigation_timeout_ms"`
		LoginTypingDelayMS  int    `mapstructure:"login_typing_delay_ms" yaml:"login_typing_delay_ms"`
		MaxCandidateLinks   int    `mapstructure:"max_candidate_links" yaml:"max_candidate_links"`
	} `mapstructure:"browser" yaml:"browser"`

	Sync struct {
		TypingDelayMS int `mapstructure:"typing_delay_ms" yaml:"typing_delay_ms"`
		OpenPauseMS   int `mapstructure:"open_pause_ms" yaml:"open_pause_ms"`
		CommitPauseMS int `mapstructure:"commit_pause_ms" yaml:"commit_pause_ms"`
		ScrollPauseMS int `mapstructure:"scroll_pause_ms" yaml:"scroll_pause_ms"`
		RowPauseMS    int `mapstructure:"row_pause_ms" yaml:"row_pause_ms"`
		SettlePauseMS int `mapstructure:"settle_pause_ms" yaml:"settle_pause_ms"`
		RetryPauseMS  int `mapstructure:"retry_pause_ms" yaml:"retry_pause_ms"`
	} `mapstructure:"sync" yaml:"sync"`

	Normalizer struct {
		Delimiter    string `mapstructure:"delimiter" yaml:"delimiter"`
		SnippetLimit int    `mapstructure:"snippet_limit" yaml:"snippet_limit"`
		Synonyms     struct {
			Group    []string `mapstructure:"group" yaml:"group"`
			Category []string `mapstructure:"category" yaml:"category"`
			Amount   []string `mapstructure:"amount" yaml:"amount"`
		} `mapstructure:"synonyms" yaml:"synonyms"`
	} `mapstructure:"normalizer" yaml:"normalizer"`

	Diagnostics struct {
		Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
		Directory string `mapstructure:"directory" yaml:"directory"`
	} `mapstructure:"diagnostics" yaml:"diagnostics"`

	Selectors struct {
		File string `mapstructure:"file" yaml:"file"`
	} `mapstructure:"selectors" yaml:"selectors"`

	Server struct {
		Port             int    `mapstructure:"port" yaml:"port"`
		MaxUploadMB      int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
		UploadDir        string `mapstructure:"upload_dir" yaml:"upload_dir"`
		ShutdownTimeoutS int    `mapstructure:"shutdown_timeout_s" yaml:"shutdown_timeout_s"`
	} `mapstructure:"server" yaml:"server"`

	History struct {
		Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
		DBPath  string `mapstructure:"db_path" yaml:"db_path"`
	} `mapstructure:"history" yaml:"history"`
}

// InitializeConfig initializes Viper configuration with hierarchical loading.
// An empty configFile searches the default locations.
func InitializeConfig(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.budget-sync")
		v.AddConfigPath(".budget-sync")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration built from defaults only.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.login_url", "https://app.ynab.com/users/sign_in")
	v.SetDefault("browser.app_url", "https://app.ynab.com/")
	v.SetDefault("browser.budgets_url", "https://app.ynab.com/users/budgets")
	v.SetDefault("browser.element_timeout_ms", 5000)
	v.SetDefault("browser.navigation_timeout_ms", 60000)
	v.SetDefault("browser.login_typing_delay_ms", 30)
	v.SetDefault("browser.max_candidate_links", 200)

	v.SetDefault("sync.typing_delay_ms", 20)
	v.SetDefault("sync.open_pause_ms", 400)
	v.SetDefault("sync.commit_pause_ms", 600)
	v.SetDefault("sync.scroll_pause_ms", 100)
	v.SetDefault("sync.row_pause_ms", 150)
	v.SetDefault("sync.settle_pause_ms", 300)
	v.SetDefault("sync.retry_pause_ms", 800)

	v.SetDefault("normalizer.delimiter", ",")
	v.SetDefault("normalizer.snippet_limit", 20000)
	v.SetDefault("normalizer.synonyms.group", []string{"Category Group", "Category", "group"})
	v.SetDefault("normalizer.synonyms.category", []string{"Category Name", "Name", "category"})
	v.SetDefault("normalizer.synonyms.amount", []string{"Amount", "Budget", "amount"})

	v.SetDefault("diagnostics.enabled", true)
	v.SetDefault("diagnostics.directory", ".")

	v.SetDefault("selectors.file", "")

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("server.upload_dir", "")
	v.SetDefault("server.shutdown_timeout_s", 10)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.db_path", "data/history.db")
}

// Validate checks a configuration after flag overrides have been applied.
func Validate(config *Config) error {
	return validateConfig(config)
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if utf8.RuneCountInString(config.Normalizer.Delimiter) != 1 {
		return fmt.Errorf("normalizer delimiter must be a single character, got: %q", config.Normalizer.Delimiter)
	}

	if config.Normalizer.SnippetLimit < 1 {
		return fmt.Errorf("normalizer.snippet_limit must be positive, got: %d", config.Normalizer.SnippetLimit)
	}

	syn := config.Normalizer.Synonyms
	if len(syn.Group) == 0 || len(syn.Category) == 0 || len(syn.Amount) == 0 {
		return fmt.Errorf("normalizer.synonyms must list at least one header for group, category and amount")
	}

	if config.Browser.ElementTimeoutMS < 1 || config.Browser.NavigationTimeoutMS < 1 {
		return fmt.Errorf("browser timeouts must be positive, got element=%d navigation=%d",
			config.Browser.ElementTimeoutMS, config.Browser.NavigationTimeoutMS)
	}

	if config.Browser.LoginURL == "" || config.Browser.BudgetsURL == "" {
		return fmt.Errorf("browser.login_url and browser.budgets_url are required")
	}

	for name, ms := range map[string]int{
		"sync.typing_delay_ms": config.Sync.TypingDelayMS,
		"sync.open_pause_ms":   config.Sync.OpenPauseMS,
		"sync.commit_pause_ms": config.Sync.CommitPauseMS,
		"sync.scroll_pause_ms": config.Sync.ScrollPauseMS,
		"sync.row_pause_ms":    config.Sync.RowPauseMS,
		"sync.settle_pause_ms": config.Sync.SettlePauseMS,
		"sync.retry_pause_ms":  config.Sync.RetryPauseMS,
	} {
		if ms < 0 {
			return fmt.Errorf("%s must not be negative, got: %d", name, ms)
		}
	}

	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", config.Server.Port)
	}

	if config.Server.MaxUploadMB < 1 || config.Server.MaxUploadMB > 512 {
		return fmt.Errorf("server.max_upload_mb must be between 1 and 512, got: %d", config.Server.MaxUploadMB)
	}

	if config.History.Enabled && config.History.DBPath == "" {
		return fmt.Errorf("history.db_path required when history is enabled")
	}

	return nil
}

// Millis converts a millisecond setting to a duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Delimiter returns the normalizer delimiter as a rune.
func (c *Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.Normalizer.Delimiter)
	return r
}
