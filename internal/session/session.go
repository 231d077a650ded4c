// Package session defines the contracts the navigator, the synchronizer and the
// login flow use to drive a remote page. The go-rod implementation lives in
// internal/browser; tests use the in-memory fakes from sessiontest.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"fjacquet/budget-sync/internal/selectors"
)

// ErrNotFound is returned when a lookup matches nothing before its timeout.
var ErrNotFound = errors.New("element not found")

// Key is a keyboard key understood by Page.Press.
type Key string

const (
	KeyEnter     Key = "Enter"
	KeyTab       Key = "Tab"
	KeyBackspace Key = "Backspace"
)

// Element is a handle on one node of the remote page.
type Element interface {
	Text(ctx context.Context) (string, error)
	// Attribute returns "" when the attribute is absent.
	Attribute(ctx context.Context, name string) (string, error)
	// HasClass reports whether the element carries any of the classes.
	HasClass(ctx context.Context, classes ...string) (bool, error)
	Click(ctx context.Context, clicks int) error
	Focus(ctx context.Context) error
	Blur(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error
	Value(ctx context.Context) (string, error)
	// SetText replaces the inner text of a contenteditable element.
	SetText(ctx context.Context, text string) error

	// Find and FindAll search descendants without waiting.
	Find(ctx context.Context, lookup selectors.Lookup) (Element, error)
	FindAll(ctx context.Context, lookup selectors.Lookup) ([]Element, error)
	// Next returns the next element sibling or ErrNotFound.
	Next(ctx context.Context) (Element, error)
	// Closest returns the nearest ancestor matching lookup or ErrNotFound.
	Closest(ctx context.Context, lookup selectors.Lookup) (Element, error)
	// Equal reports whether both handles point at the same node.
	Equal(other Element) bool
}

// Page is the front browser page.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)

	// Find waits up to the element timeout for the first matching strategy.
	Find(ctx context.Context, lookup selectors.Lookup) (Element, error)
	// FindAll returns the matches of the first strategy that matches anything, without waiting.
	FindAll(ctx context.Context, lookup selectors.Lookup) ([]Element, error)

	// Type sends text to the focused element, pausing delay between keys.
	Type(ctx context.Context, text string, delay time.Duration) error
	Press(ctx context.Context, key Key) error
	// SelectAll selects the content of the focused element (Ctrl+A).
	SelectAll(ctx context.Context) error
	// WaitNavigation waits until the page settles after a navigation or the navigation timeout elapses.
	WaitNavigation(ctx context.Context) error
}

// Pager gives access to the current front page. The front page can change
// while a run is in progress, so callers must not keep the returned Page.
type Pager interface {
	Front() Page
}

// Session is a live browser owned by one run.
type Session interface {
	Pager
	Close() error
}

// Opener starts sessions.
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// MatchesText reports whether the element's inner text, aria-label or title
// contains needle, ignoring case.
func MatchesText(ctx context.Context, el Element, needle string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return false
	}
	if txt, err := el.Text(ctx); err == nil && strings.Contains(strings.ToLower(strings.TrimSpace(txt)), needle) {
		return true
	}
	for _, attr := range []string{"aria-label", "title"} {
		if v, err := el.Attribute(ctx, attr); err == nil && strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// FindByText returns the first clickable element on page whose text matches.
func FindByText(ctx context.Context, page Page, text string) (Element, error) {
	return page.Find(ctx, selectors.ByText(text))
}

// ClickByText clicks the first clickable element whose text matches.
// It reports whether something was clicked.
func ClickByText(ctx context.Context, page Page, text string) bool {
	el, err := page.FindAll(ctx, selectors.ByText(text))
	if err != nil || len(el) == 0 {
		return false
	}
	return el[0].Click(ctx, 1) == nil
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
