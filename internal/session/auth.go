package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fjacquet/budget-sync/internal/diagnostics"
	"fjacquet/budget-sync/internal/logging"
	"fjacquet/budget-sync/internal/runlog"
	"fjacquet/budget-sync/internal/selectors"
)

// AuthConfig holds the URLs and pacing of the login flow.
type AuthConfig struct {
	LoginURL    string
	AppURL      string
	TypingDelay time.Duration
	// LoadPause follows the login page navigation.
	LoadPause time.Duration
	// SignInPause precedes and follows the best-effort "Sign in" click.
	SignInPause time.Duration
	// AppPause follows the fallback navigation to the app root.
	AppPause time.Duration
}

// DefaultAuthConfig returns the values used against app.ynab.com.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		LoginURL:    "https://app.ynab.com/users/sign_in",
		AppURL:      "https://app.ynab.com/",
		TypingDelay: 30 * time.Millisecond,
		LoadPause:   2500 * time.Millisecond,
		SignInPause: 2000 * time.Millisecond,
		AppPause:    2000 * time.Millisecond,
	}
}

// Authenticator signs a session in through the remote login form.
type Authenticator struct {
	catalog *selectors.Catalog
	cfg     AuthConfig
	diag    *diagnostics.Writer
	logger  logging.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(catalog *selectors.Catalog, cfg AuthConfig, diag *diagnostics.Writer, logger logging.Logger) *Authenticator {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Authenticator{catalog: catalog, cfg: cfg, diag: diag, logger: logger}
}

// Authenticate opens the login page and submits the credentials if a login
// form shows up. It reports whether a login was attempted; success is not
// verified. When no form is found the page is sent to the app root instead,
// which covers an already signed-in browser profile.
func (a *Authenticator) Authenticate(ctx context.Context, pager Pager, email, password string, log *runlog.Log) (bool, error) {
	log.Redact(password)

	log.Printf("Opening login page...")
	if err := pager.Front().Navigate(ctx, a.cfg.LoginURL); err != nil {
		return false, fmt.Errorf("failed to open login page: %w", err)
	}
	if err := Sleep(ctx, a.cfg.LoadPause); err != nil {
		return false, err
	}

	a.snapshot(ctx, pager.Front(), log)

	if err := Sleep(ctx, a.cfg.SignInPause); err != nil {
		return false, err
	}
	if a.clickFirst(ctx, pager.Front(), a.catalog.MustGet(selectors.SignIn)) {
		a.logger.Debug("Clicked sign-in control", logging.F(logging.FieldComponent, logging.ComponentSession))
	}
	if err := Sleep(ctx, a.cfg.SignInPause); err != nil {
		return false, err
	}

	page := pager.Front()
	emailInput, err := page.Find(ctx, a.catalog.MustGet(selectors.LoginEmail))
	if err != nil {
		log.Warnf("Login form not found, trying the main app page...")
		if err := pager.Front().Navigate(ctx, a.cfg.AppURL); err != nil {
			return false, fmt.Errorf("failed to open app page: %w", err)
		}
		return false, Sleep(ctx, a.cfg.AppPause)
	}

	log.Printf("Logging in...")
	if err := a.fill(ctx, page, emailInput, email); err != nil {
		return false, fmt.Errorf("failed to type email: %w", err)
	}
	passwordInput, err := page.Find(ctx, a.catalog.MustGet(selectors.LoginPassword))
	if err != nil {
		log.Warnf("Password field not found")
	} else if err := a.fill(ctx, page, passwordInput, password); err != nil {
		return false, errors.New("failed to type password")
	}

	if !a.submit(ctx, page) {
		log.Warnf("Login submit control not found")
	}
	if err := page.WaitNavigation(ctx); err != nil {
		a.logger.WithError(err).Debug("Navigation after login did not settle",
			logging.F(logging.FieldComponent, logging.ComponentSession))
	}
	log.Printf("Logged in (attempted).")
	return true, nil
}

func (a *Authenticator) snapshot(ctx context.Context, page Page, log *runlog.Log) {
	html, err := page.HTML(ctx)
	if err != nil {
		a.logger.WithError(err).Debug("Could not read landing page markup")
		return
	}
	path, err := a.diag.WriteText(diagnostics.DashboardSnapshot, html)
	if err != nil {
		a.logger.WithError(err).Debug("Could not save landing page snapshot")
		return
	}
	if path != "" {
		log.Printf("Saved %s for inspection.", diagnostics.DashboardSnapshot)
	}
}

func (a *Authenticator) fill(ctx context.Context, page Page, el Element, text string) error {
	if err := el.Click(ctx, 1); err != nil {
		if err := el.Focus(ctx); err != nil {
			return err
		}
	}
	return page.Type(ctx, text, a.cfg.TypingDelay)
}

func (a *Authenticator) submit(ctx context.Context, page Page) bool {
	el, err := page.Find(ctx, a.catalog.MustGet(selectors.LoginSubmit))
	if err == nil && el.Click(ctx, 1) == nil {
		return true
	}
	return ClickByText(ctx, page, "sign in")
}

func (a *Authenticator) clickFirst(ctx context.Context, page Page, lookup selectors.Lookup) bool {
	els, err := page.FindAll(ctx, lookup)
	if err != nil || len(els) == 0 {
		return false
	}
	return els[0].Click(ctx, 1) == nil
}
