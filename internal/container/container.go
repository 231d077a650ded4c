// Package container provides dependency injection for the budget-sync application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"fmt"

	"fjacquet/budget-sync/internal/browser"
	"fjacquet/budget-sync/internal/config"
	"fjacquet/budget-sync/internal/diagnostics"
	"fjacquet/budget-sync/internal/history"
	"fjacquet/budget-sync/internal/logging"
	"fjacquet/budget-sync/internal/navigator"
	"fjacquet/budget-sync/internal/normalizer"
	"fjacquet/budget-sync/internal/runner"
	"fjacquet/budget-sync/internal/selectors"
	"fjacquet/budget-sync/internal/session"
	"fjacquet/budget-sync/internal/synchronizer"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation. All fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger        logging.Logger
	config        *config.Config
	catalog       *selectors.Catalog
	diagnostics   *diagnostics.Writer
	normalizer    *normalizer.Normalizer
	opener        *browser.Opener
	authenticator *session.Authenticator
	navigator     *navigator.Navigator
	synchronizer  *synchronizer.Synchronizer
	history       *history.Store
	runner        *runner.Runner
}

// NewContainer creates and wires all application dependencies.
// No browser is started here; the opener launches one per run.
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	// Create logger first as it's needed by other components
	logger := logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)

	catalog, err := selectors.Load(cfg.Selectors.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load selector catalog: %w", err)
	}

	diag := diagnostics.NewWriter(cfg.Diagnostics.Directory, cfg.Diagnostics.Enabled,
		logger.WithField(logging.FieldComponent, logging.ComponentDiagnostics))

	norm := normalizer.New(NormalizerOptions(cfg), logger)

	opener := browser.NewOpener(browser.Options{
		Bin:               cfg.Browser.Bin,
		Headless:          cfg.Browser.Headless,
		UserAgent:         cfg.Browser.UserAgent,
		ElementTimeout:    config.Millis(cfg.Browser.ElementTimeoutMS),
		NavigationTimeout: config.Millis(cfg.Browser.NavigationTimeoutMS),
	}, logger)

	authCfg := session.DefaultAuthConfig()
	authCfg.LoginURL = cfg.Browser.LoginURL
	authCfg.AppURL = cfg.Browser.AppURL
	authCfg.TypingDelay = config.Millis(cfg.Browser.LoginTypingDelayMS)
	auth := session.NewAuthenticator(catalog, authCfg, diag,
		logger.WithField(logging.FieldComponent, logging.ComponentSession))

	navCfg := navigator.DefaultConfig()
	navCfg.ListingURL = cfg.Browser.BudgetsURL
	navCfg.MaxCandidates = cfg.Browser.MaxCandidateLinks
	nav := navigator.New(navCfg, diag, logger)

	syncer := synchronizer.New(catalog, synchronizer.Config{
		TypingDelay: config.Millis(cfg.Sync.TypingDelayMS),
		OpenPause:   config.Millis(cfg.Sync.OpenPauseMS),
		CommitPause: config.Millis(cfg.Sync.CommitPauseMS),
		ScrollPause: config.Millis(cfg.Sync.ScrollPauseMS),
		RowPause:    config.Millis(cfg.Sync.RowPauseMS),
		SettlePause: config.Millis(cfg.Sync.SettlePauseMS),
		RetryPause:  config.Millis(cfg.Sync.RetryPauseMS),
	}, logger)

	deps := runner.Deps{
		Normalizer:    norm,
		Opener:        opener,
		Authenticator: auth,
		Navigator:     nav,
		Synchronizer:  syncer,
		Diagnostics:   diag,
		Logger:        logger,
	}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.DBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open run history: %w", err)
		}
		deps.Recorder = store
	}

	logger.Info("Container initialized successfully",
		logging.F("selectors_version", catalog.Version),
		logging.F("history_enabled", cfg.History.Enabled),
		logging.F("headless", cfg.Browser.Headless))

	return &Container{
		logger:        logger,
		config:        cfg,
		catalog:       catalog,
		diagnostics:   diag,
		normalizer:    norm,
		opener:        opener,
		authenticator: auth,
		navigator:     nav,
		synchronizer:  syncer,
		history:       store,
		runner:        runner.New(deps),
	}, nil
}

// NormalizerOptions maps the normalizer section of cfg.
func NormalizerOptions(cfg *config.Config) normalizer.Options {
	return normalizer.Options{
		Delimiter:    cfg.Delimiter(),
		SnippetLimit: cfg.Normalizer.SnippetLimit,
		Synonyms: normalizer.Synonyms{
			Group:    cfg.Normalizer.Synonyms.Group,
			Category: cfg.Normalizer.Synonyms.Category,
			Amount:   cfg.Normalizer.Synonyms.Amount,
		},
	}
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetCatalog returns the selector catalog.
func (c *Container) GetCatalog() *selectors.Catalog {
	return c.catalog
}

// GetDiagnostics returns the diagnostic artifact writer.
func (c *Container) GetDiagnostics() *diagnostics.Writer {
	return c.diagnostics
}

// GetNormalizer returns the record normalizer.
func (c *Container) GetNormalizer() *normalizer.Normalizer {
	return c.normalizer
}

// GetOpener returns the browser opener.
func (c *Container) GetOpener() *browser.Opener {
	return c.opener
}

// GetNavigator returns the budget navigator.
func (c *Container) GetNavigator() *navigator.Navigator {
	return c.navigator
}

// GetSynchronizer returns the budget synchronizer.
func (c *Container) GetSynchronizer() *synchronizer.Synchronizer {
	return c.synchronizer
}

// GetHistory returns the run history store, or nil when history is disabled.
func (c *Container) GetHistory() *history.Store {
	return c.history
}

// GetRunner returns the run orchestrator.
func (c *Container) GetRunner() *runner.Runner {
	return c.runner
}

// Close releases the history database.
func (c *Container) Close() error {
	if c.history != nil {
		if err := c.history.Close(); err != nil {
			return fmt.Errorf("failed to close run history: %w", err)
		}
	}
	c.logger.Debug("Container closed")
	return nil
}
