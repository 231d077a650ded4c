// Package navigator positions a session on the budget the user asked for.
package navigator

import (
	"context"
	"fmt"
	"time"

	"fjacquet/budget-sync/internal/diagnostics"
	"fjacquet/budget-sync/internal/logging"
	"fjacquet/budget-sync/internal/runerror"
	"fjacquet/budget-sync/internal/runlog"
	"fjacquet/budget-sync/internal/session"
)

// Config holds the listing URL, pauses and the candidate dump cap.
type Config struct {
	ListingURL    string
	OpenPause     time.Duration
	ListingPause  time.Duration
	MaxCandidates int
}

// DefaultConfig returns the values used against app.ynab.com.
func DefaultConfig() Config {
	return Config{
		ListingURL:    "https://app.ynab.com/users/budgets",
		OpenPause:     1200 * time.Millisecond,
		ListingPause:  1000 * time.Millisecond,
		MaxCandidates: 200,
	}
}

// Navigator opens a budget by name.
type Navigator struct {
	cfg      Config
	matchers []Matcher
	diag     *diagnostics.Writer
	logger   logging.Logger
}

// New creates a Navigator with the default matchers.
func New(cfg Config, diag *diagnostics.Writer, logger logging.Logger) *Navigator {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultConfig().MaxCandidates
	}
	if cfg.ListingURL == "" {
		cfg.ListingURL = DefaultConfig().ListingURL
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Navigator{
		cfg:      cfg,
		matchers: DefaultMatchers(),
		diag:     diag,
		logger:   logger.WithField(logging.FieldComponent, logging.ComponentNavigator),
	}
}

// WithMatchers replaces the matcher tiers.
func (n *Navigator) WithMatchers(m ...Matcher) *Navigator {
	n.matchers = m
	return n
}

// OpenBudget looks for the budget link on the current page, then on the
// budget listing page, and follows it. When neither page has a match the
// candidate links are saved and a *runerror.NavigationError is returned.
func (n *Navigator) OpenBudget(ctx context.Context, pager session.Pager, budget string, log *runlog.Log) error {
	log.Printf("Trying to open budget directly: %q", budget)

	anchors, err := n.anchors(ctx, pager.Front())
	if err != nil {
		log.Warnf("Could not read current page: %v", err)
	}
	if a, tier, ok := Pick(anchors, budget, n.matchers); ok {
		log.Printf("Found budget link (%s match) -> %s", tier, a.Href)
		if err := n.follow(ctx, pager, a, n.cfg.OpenPause); err != nil {
			return &runerror.NavigationError{Budget: budget, Candidates: len(anchors), Err: err}
		}
		log.Printf("Budget opened (direct).")
		return nil
	}

	log.Printf("Not found on current page, trying %s ...", n.cfg.ListingURL)
	if err := pager.Front().Navigate(ctx, n.cfg.ListingURL); err != nil {
		log.Warnf("Error while opening budget listing: %v", err)
	} else if err := session.Sleep(ctx, n.cfg.ListingPause); err != nil {
		return err
	}

	anchors, err = n.anchors(ctx, pager.Front())
	if err != nil {
		log.Warnf("Could not read budget listing: %v", err)
	}
	if a, tier, ok := Pick(anchors, budget, n.matchers); ok {
		log.Printf("Found budget link on listing (%s match) -> %s", tier, a.Href)
		if err := n.follow(ctx, pager, a, n.cfg.ListingPause); err != nil {
			return &runerror.NavigationError{Budget: budget, Candidates: len(anchors), Err: err}
		}
		log.Printf("Budget opened (from listing).")
		return nil
	}

	n.dump(anchors, log)
	log.Warnf("Unable to find budget %q.", budget)
	return &runerror.NavigationError{Budget: budget, Candidates: len(anchors)}
}

func (n *Navigator) anchors(ctx context.Context, page session.Page) ([]Anchor, error) {
	markup, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	base, err := page.URL(ctx)
	if err != nil {
		return nil, err
	}
	return ExtractAnchors(markup, base)
}

func (n *Navigator) follow(ctx context.Context, pager session.Pager, a Anchor, pause time.Duration) error {
	if err := pager.Front().Navigate(ctx, a.Href); err != nil {
		return fmt.Errorf("open %s: %w", a.Href, err)
	}
	n.logger.Info("Opened budget", logging.F(logging.FieldURL, a.Href))
	return session.Sleep(ctx, pause)
}

func (n *Navigator) dump(anchors []Anchor, log *runlog.Log) {
	if len(anchors) > n.cfg.MaxCandidates {
		anchors = anchors[:n.cfg.MaxCandidates]
	}
	if anchors == nil {
		anchors = []Anchor{}
	}
	path, err := n.diag.WriteJSON(diagnostics.BudgetCandidates, anchors)
	if err != nil {
		log.Warnf("Couldn't write %s: %v", diagnostics.BudgetCandidates, err)
		return
	}
	if path != "" {
		log.Printf("Saved %s (count: %d).", diagnostics.BudgetCandidates, len(anchors))
	}
}
