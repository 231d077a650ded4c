package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fjacquet/budget-sync/internal/selectors"
	"fjacquet/budget-sync/internal/session"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
)

const pollInterval = 100 * time.Millisecond

// Page wraps the rod page that was front when it was requested.
type Page struct {
	page *rod.Page
	opts Options
}

func (p *Page) bound(ctx context.Context) (*rod.Page, error) {
	if p.page == nil {
		return nil, errors.New("no front page")
	}
	return p.page.Context(ctx), nil
}

// Navigate loads url and waits for the load event within the navigation timeout.
func (p *Page) Navigate(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.NavigationTimeout)
	defer cancel()
	rp, err := p.bound(ctx)
	if err != nil {
		return err
	}
	if err := rp.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := rp.WaitLoad(); err != nil {
		return fmt.Errorf("wait for %s: %w", url, err)
	}
	return nil
}

// URL returns the current page URL.
func (p *Page) URL(ctx context.Context) (string, error) {
	rp, err := p.bound(ctx)
	if err != nil {
		return "", err
	}
	info, err := rp.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// HTML returns the serialized document.
func (p *Page) HTML(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.ElementTimeout)
	defer cancel()
	rp, err := p.bound(ctx)
	if err != nil {
		return "", err
	}
	return rp.HTML()
}

// Find polls the lookup's strategies in order until one matches or the element timeout elapses.
func (p *Page) Find(ctx context.Context, lookup selectors.Lookup) (session.Element, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.ElementTimeout)
	defer cancel()

	for {
		found, err := p.FindAll(ctx, lookup)
		if err == nil && len(found) > 0 {
			return found[0], nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", lookup.Name, session.ErrNotFound)
		case <-time.After(pollInterval):
		}
	}
}

// FindAll returns the matches of the first strategy that matches anything.
func (p *Page) FindAll(ctx context.Context, lookup selectors.Lookup) ([]session.Element, error) {
	rp, err := p.bound(ctx)
	if err != nil {
		return nil, err
	}
	return resolve(ctx, lookup, func(css string) (rod.Elements, error) {
		return rp.Elements(css)
	}, p.opts)
}

// Type sends text to the focused element one character at a time. Printable
// ASCII goes through key down/up events; anything else is inserted as text.
func (p *Page) Type(ctx context.Context, text string, delay time.Duration) error {
	rp, err := p.bound(ctx)
	if err != nil {
		return err
	}
	for _, r := range text {
		if k, ok := keyFor(r); ok {
			err = rp.Keyboard.Type(k)
		} else {
			err = rp.InsertText(string(r))
		}
		if err != nil {
			return err
		}
		if err := session.Sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

var keys = map[session.Key]input.Key{
	session.KeyEnter:     input.Enter,
	session.KeyTab:       input.Tab,
	session.KeyBackspace: input.Backspace,
}

// keyFor maps r to a key of the US layout rod knows. Upper case letters and
// shifted symbols are defined there too.
func keyFor(r rune) (input.Key, bool) {
	if r < ' ' || r > '~' {
		return 0, false
	}
	return input.Key(r), true
}

// Press presses and releases one key.
func (p *Page) Press(ctx context.Context, key session.Key) error {
	k, ok := keys[key]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}
	rp, err := p.bound(ctx)
	if err != nil {
		return err
	}
	return rp.Keyboard.Type(k)
}

// SelectAll sends Ctrl+A.
func (p *Page) SelectAll(ctx context.Context) error {
	rp, err := p.bound(ctx)
	if err != nil {
		return err
	}
	return rp.KeyActions().Press(input.ControlLeft).Type(input.KeyA).Do()
}

// WaitNavigation waits for the load event of the page within the navigation timeout.
func (p *Page) WaitNavigation(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.NavigationTimeout)
	defer cancel()
	rp, err := p.bound(ctx)
	if err != nil {
		return err
	}
	return rp.WaitLoad()
}

// resolve runs the strategies of lookup through query and returns the first
// non-empty result. Text strategies filter their candidates by text.
func resolve(ctx context.Context, lookup selectors.Lookup, query func(css string) (rod.Elements, error), opts Options) ([]session.Element, error) {
	var lastErr error
	for _, s := range lookup.Strategies {
		css := s.CSS
		if s.IsText() {
			css = s.Candidates
			if css == "" {
				css = selectors.TextCandidates
			}
		}
		els, err := query(css)
		if err != nil {
			lastErr = err
			continue
		}
		var out []session.Element
		for _, el := range els {
			wrapped := wrap(el, opts)
			if s.IsText() && !session.MatchesText(ctx, wrapped, s.Text) {
				continue
			}
			out = append(out, wrapped)
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, lastErr
}
