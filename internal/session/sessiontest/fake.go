// Package sessiontest provides in-memory fakes of the session contracts.
// Lookups are matched by name, so tests register elements under the lookup
// names the code under test asks for.
package sessiontest

import (
	"context"
	"strings"
	"sync"
	"time"

	"fjacquet/budget-sync/internal/selectors"
	"fjacquet/budget-sync/internal/session"
)

// Element is a fake page node.
type Element struct {
	Label   string
	TextVal string
	Attrs   map[string]string
	Classes []string
	// Editable marks a contenteditable node.
	Editable bool

	Children map[string][]*Element
	Sibling  *Element
	Parents  map[string]*Element

	// RejectWrites drops that many typed values before accepting input.
	RejectWrites int
	// OnClick runs after every click.
	OnClick func(clicks int)

	page      *Page
	value     string
	Clicks    []int
	Focused   bool
	Blurred   int
	Scrolled  int
	ClickErr  error
	selected  bool
	rejecting bool
}

// NewElement creates an element with the given text.
func NewElement(label, text string, classes ...string) *Element {
	return &Element{Label: label, TextVal: text, Classes: classes}
}

// WithValue sets the current input value.
func (e *Element) WithValue(v string) *Element {
	e.value = v
	return e
}

// Add registers child elements under a lookup name.
func (e *Element) Add(lookup string, children ...*Element) *Element {
	if e.Children == nil {
		e.Children = make(map[string][]*Element)
	}
	e.Children[lookup] = append(e.Children[lookup], children...)
	return e
}

// Within registers parent as the closest ancestor matching lookup.
func (e *Element) Within(lookup string, parent *Element) *Element {
	if e.Parents == nil {
		e.Parents = make(map[string]*Element)
	}
	e.Parents[lookup] = parent
	return e
}

func (e *Element) Text(context.Context) (string, error) { return e.TextVal, nil }

func (e *Element) Attribute(_ context.Context, name string) (string, error) {
	if name == "contenteditable" && e.Editable {
		return "true", nil
	}
	return e.Attrs[name], nil
}

func (e *Element) HasClass(_ context.Context, classes ...string) (bool, error) {
	for _, want := range classes {
		for _, have := range e.Classes {
			if want == have {
				return true, nil
			}
		}
	}
	return false, nil
}

// RemoveClass drops a class, e.g. to model expanding a collapsed row.
func (e *Element) RemoveClass(class string) {
	out := e.Classes[:0]
	for _, c := range e.Classes {
		if c != class {
			out = append(out, c)
		}
	}
	e.Classes = out
}

func (e *Element) Click(_ context.Context, clicks int) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks = append(e.Clicks, clicks)
	if e.page != nil {
		e.page.focus(e)
		if clicks >= 3 {
			e.selected = true
		}
	}
	if e.OnClick != nil {
		e.OnClick(clicks)
	}
	return nil
}

func (e *Element) Focus(context.Context) error {
	e.Focused = true
	if e.page != nil {
		e.page.focus(e)
	}
	return nil
}

func (e *Element) Blur(context.Context) error {
	e.Blurred++
	e.Focused = false
	e.commit()
	return nil
}

func (e *Element) ScrollIntoView(context.Context) error {
	e.Scrolled++
	return nil
}

func (e *Element) Value(context.Context) (string, error) { return e.value, nil }

// CurrentValue returns the input value without a context.
func (e *Element) CurrentValue() string { return e.value }

func (e *Element) SetText(_ context.Context, text string) error {
	e.TextVal = text
	e.value = text
	return nil
}

func (e *Element) Find(ctx context.Context, lookup selectors.Lookup) (session.Element, error) {
	all, _ := e.FindAll(ctx, lookup)
	if len(all) == 0 {
		return nil, session.ErrNotFound
	}
	return all[0], nil
}

func (e *Element) FindAll(_ context.Context, lookup selectors.Lookup) ([]session.Element, error) {
	return toSession(e.page, e.Children[lookup.Name]), nil
}

func (e *Element) Next(context.Context) (session.Element, error) {
	if e.Sibling == nil {
		return nil, session.ErrNotFound
	}
	e.Sibling.page = e.page
	return e.Sibling, nil
}

func (e *Element) Closest(_ context.Context, lookup selectors.Lookup) (session.Element, error) {
	p, ok := e.Parents[lookup.Name]
	if !ok {
		return nil, session.ErrNotFound
	}
	p.page = e.page
	return p, nil
}

func (e *Element) Equal(other session.Element) bool {
	o, ok := other.(*Element)
	return ok && o == e
}

// commit applies a pending rejected write: the field snaps back to empty.
func (e *Element) commit() {
	if e.rejecting {
		e.value = ""
		e.rejecting = false
	}
}

func (e *Element) typeText(text string) {
	if e.Editable {
		e.TextVal += text
		return
	}
	if e.selected {
		e.value = ""
		e.selected = false
	}
	e.value += text
	if e.RejectWrites > 0 {
		e.RejectWrites--
		e.rejecting = true
	}
}

func (e *Element) press(key session.Key) {
	switch key {
	case session.KeyBackspace:
		if e.selected {
			e.value = ""
			e.selected = false
		} else if n := len(e.value); n > 0 {
			e.value = e.value[:n-1]
		}
	case session.KeyEnter, session.KeyTab:
		e.commit()
	}
}

// Page is a fake front page.
type Page struct {
	mu sync.Mutex

	URLVal   string
	HTMLVal  string
	Elements map[string][]*Element
	// Routes maps a URL to the markup served after navigating to it.
	Routes map[string]string

	// OnPress runs after every key press with the focused element (may be nil).
	OnPress func(key session.Key, focused *Element)
	// OnNavigate runs after every navigation.
	OnNavigate func(url string)

	NavigateErr error
	Visited     []string
	Typed       []string
	Pressed     []session.Key
	Finds       []string
	focused     *Element
}

// NewPage creates an empty fake page.
func NewPage(url string) *Page {
	return &Page{URLVal: url, Elements: make(map[string][]*Element), Routes: make(map[string]string)}
}

// Add registers elements under a lookup name.
func (p *Page) Add(lookup string, els ...*Element) *Page {
	for _, el := range els {
		el.page = p
	}
	p.Elements[lookup] = append(p.Elements[lookup], els...)
	return p
}

// Set replaces the elements registered under a lookup name.
func (p *Page) Set(lookup string, els ...*Element) *Page {
	delete(p.Elements, lookup)
	return p.Add(lookup, els...)
}

// Focused returns the element holding focus.
func (p *Page) Focused() *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focused
}

func (p *Page) focus(e *Element) {
	p.mu.Lock()
	p.focused = e
	p.mu.Unlock()
}

func (p *Page) Navigate(_ context.Context, url string) error {
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.Visited = append(p.Visited, url)
	p.URLVal = url
	if html, ok := p.Routes[url]; ok {
		p.HTMLVal = html
	}
	if p.OnNavigate != nil {
		p.OnNavigate(url)
	}
	return nil
}

func (p *Page) URL(context.Context) (string, error)  { return p.URLVal, nil }
func (p *Page) HTML(context.Context) (string, error) { return p.HTMLVal, nil }

func (p *Page) Find(ctx context.Context, lookup selectors.Lookup) (session.Element, error) {
	all, _ := p.FindAll(ctx, lookup)
	if len(all) == 0 {
		return nil, session.ErrNotFound
	}
	return all[0], nil
}

func (p *Page) FindAll(_ context.Context, lookup selectors.Lookup) ([]session.Element, error) {
	p.Finds = append(p.Finds, lookup.Name)
	return toSession(p, p.Elements[lookup.Name]), nil
}

func (p *Page) Type(_ context.Context, text string, _ time.Duration) error {
	p.Typed = append(p.Typed, text)
	if f := p.Focused(); f != nil {
		f.typeText(text)
	}
	return nil
}

func (p *Page) Press(_ context.Context, key session.Key) error {
	p.Pressed = append(p.Pressed, key)
	f := p.Focused()
	if f != nil {
		f.press(key)
	}
	if p.OnPress != nil {
		p.OnPress(key, f)
	}
	return nil
}

func (p *Page) SelectAll(context.Context) error {
	if f := p.Focused(); f != nil {
		f.selected = true
	}
	return nil
}

func (p *Page) WaitNavigation(context.Context) error { return nil }

// Pager is a fixed-page session.Pager and session.Session.
type Pager struct {
	Page   *Page
	Closed bool
}

func (p *Pager) Front() session.Page { return p.Page }

func (p *Pager) Close() error {
	p.Closed = true
	return nil
}

// ContainsText reports whether any typed string contains s.
func (p *Page) ContainsText(s string) bool {
	for _, t := range p.Typed {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}

func toSession(page *Page, els []*Element) []session.Element {
	out := make([]session.Element, 0, len(els))
	for _, el := range els {
		if el.page == nil {
			el.page = page
		}
		out = append(out, el)
	}
	return out
}
