package browser

import (
	"context"
	"errors"
	"fmt"

	"fjacquet/budget-sync/internal/selectors"
	"fjacquet/budget-sync/internal/session"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Element wraps a rod element.
type Element struct {
	el   *rod.Element
	opts Options
}

// bound returns the element limited to the element timeout. The caller must
// call done when the operation returns.
func (e *Element) bound(ctx context.Context) (el *rod.Element, done context.CancelFunc) {
	ctx, done = context.WithTimeout(ctx, e.opts.ElementTimeout)
	return e.el.Context(ctx), done
}

// wrap detaches a node found through a bounded query from that query's context.
func wrap(el *rod.Element, opts Options) *Element {
	return &Element{el: el.Context(context.Background()), opts: opts}
}

func (e *Element) eval(ctx context.Context, js string, params ...interface{}) (*proto.RuntimeRemoteObject, error) {
	el, done := e.bound(ctx)
	defer done()
	return el.Eval(js, params...)
}

// Text returns the rendered text.
func (e *Element) Text(ctx context.Context) (string, error) {
	res, err := e.eval(ctx, `() => (this.innerText || this.textContent || "")`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Attribute returns the attribute value or "" when it is absent.
func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	el, done := e.bound(ctx)
	defer done()
	v, err := el.Attribute(name)
	if err != nil || v == nil {
		return "", err
	}
	return *v, nil
}

// HasClass reports whether the element has any of the classes.
func (e *Element) HasClass(ctx context.Context, classes ...string) (bool, error) {
	res, err := e.eval(ctx, `(names) => names.some(n => this.classList.contains(n))`, classes)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// Click clicks with the left button.
func (e *Element) Click(ctx context.Context, clicks int) error {
	el, done := e.bound(ctx)
	defer done()
	return el.Click(proto.InputMouseButtonLeft, clicks)
}

// Focus focuses the element.
func (e *Element) Focus(ctx context.Context) error {
	el, done := e.bound(ctx)
	defer done()
	return el.Focus()
}

// Blur removes focus so the app commits the value.
func (e *Element) Blur(ctx context.Context) error {
	_, err := e.eval(ctx, `() => this.blur()`)
	return err
}

// ScrollIntoView centers the element in the viewport.
func (e *Element) ScrollIntoView(ctx context.Context) error {
	_, err := e.eval(ctx, `() => this.scrollIntoView({ block: "center" })`)
	return err
}

// Value returns the value property of an input.
func (e *Element) Value(ctx context.Context) (string, error) {
	res, err := e.eval(ctx, `() => (this.value === undefined || this.value === null) ? "" : String(this.value)`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// SetText replaces the inner text of a contenteditable element.
func (e *Element) SetText(ctx context.Context, text string) error {
	_, err := e.eval(ctx, `(t) => { this.innerText = t; this.dispatchEvent(new Event("input", { bubbles: true })) }`, text)
	return err
}

// Find returns the first descendant matching lookup.
func (e *Element) Find(ctx context.Context, lookup selectors.Lookup) (session.Element, error) {
	all, err := e.FindAll(ctx, lookup)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%s: %w", lookup.Name, session.ErrNotFound)
	}
	return all[0], nil
}

// FindAll returns the descendants matched by the first matching strategy.
func (e *Element) FindAll(ctx context.Context, lookup selectors.Lookup) ([]session.Element, error) {
	el, done := e.bound(ctx)
	defer done()
	return resolve(ctx, lookup, func(css string) (rod.Elements, error) {
		return el.Elements(css)
	}, e.opts)
}

// Next returns the next element sibling.
func (e *Element) Next(ctx context.Context) (session.Element, error) {
	el, done := e.bound(ctx)
	defer done()
	next, err := el.Sleeper(rod.NotFoundSleeper).Next()
	if err != nil {
		var notFound *rod.ElementNotFoundError
		if errors.As(err, &notFound) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	return wrap(next, e.opts), nil
}

// Closest returns the nearest ancestor matched by lookup.
func (e *Element) Closest(ctx context.Context, lookup selectors.Lookup) (session.Element, error) {
	el, done := e.bound(ctx)
	defer done()
	for _, s := range lookup.Strategies {
		if s.CSS == "" {
			continue
		}
		parents, err := el.Parents(s.CSS)
		if err != nil {
			return nil, err
		}
		if len(parents) > 0 {
			return wrap(parents[0], e.opts), nil
		}
	}
	return nil, fmt.Errorf("%s: %w", lookup.Name, session.ErrNotFound)
}

// Equal reports whether other wraps the same DOM node.
func (e *Element) Equal(other session.Element) bool {
	o, ok := other.(*Element)
	if !ok || o == nil {
		return false
	}
	same, err := e.el.Equal(o.el)
	return err == nil && same
}
