package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"fjacquet/budget-sync/internal/logging"
	"fjacquet/budget-sync/internal/selectors"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLauncher_DisablesAutomationFingerprints(t *testing.T) {
	l := newLauncher(Options{Headless: true, Bin: "/usr/bin/true"})

	assert.Equal(t, "AutomationControlled", l.Get(flags.Flag("disable-blink-features")))
	assert.True(t, l.Has(flags.Flag("start-maximized")))
	assert.True(t, l.Has(flags.Flag("disable-infobars")))
	assert.True(t, l.Has(flags.NoSandbox))
	assert.True(t, l.Has(flags.Flag("disable-gpu")))
	assert.False(t, l.Has(flags.Flag("enable-automation")))
	assert.Equal(t, "/usr/bin/true", l.Get(flags.Bin))
}

func TestNewOpener_Defaults(t *testing.T) {
	o := NewOpener(Options{}, logging.NewMockLogger())

	assert.Equal(t, 5*time.Second, o.opts.ElementTimeout)
	assert.Equal(t, 60*time.Second, o.opts.NavigationTimeout)
	assert.Equal(t, DefaultUserAgent, o.opts.UserAgent)
}

func TestSession_FrontWithoutPage(t *testing.T) {
	s := &Session{opts: DefaultOptions(), logger: logging.NewMockLogger()}

	_, err := s.Front().URL(context.Background())
	assert.Error(t, err)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestSession_PromoteSkipsCurrentFront(t *testing.T) {
	mock := logging.NewMockLogger()
	calls := 0
	s := &Session{opts: DefaultOptions(), logger: mock}
	s.attach = func(proto.TargetTargetID) (*rod.Page, error) {
		calls++
		return nil, errors.New("unexpected attach")
	}
	s.setFront(&rod.Page{TargetID: "first"})

	s.promote("first")

	assert.Zero(t, calls)
	assert.Equal(t, proto.TargetTargetID("first"), s.front.TargetID)
	assert.Empty(t, mock.GetEntries())
}

func TestSession_PromoteSwitchesFront(t *testing.T) {
	mock := logging.NewMockLogger()
	s := &Session{opts: DefaultOptions(), logger: mock}
	s.attach = func(id proto.TargetTargetID) (*rod.Page, error) {
		return &rod.Page{TargetID: id}, nil
	}
	s.setFront(&rod.Page{TargetID: "first"})

	s.promote("popup")

	assert.Equal(t, proto.TargetTargetID("popup"), s.front.TargetID)
	front, ok := s.Front().(*Page)
	require.True(t, ok)
	assert.Equal(t, proto.TargetTargetID("popup"), front.page.TargetID)
	assert.True(t, mock.HasEntry("INFO", "Switched to newly opened page"))
}

func TestSession_PromoteKeepsFrontOnAttachFailure(t *testing.T) {
	mock := logging.NewMockLogger()
	s := &Session{opts: DefaultOptions(), logger: mock}
	s.attach = func(proto.TargetTargetID) (*rod.Page, error) {
		return nil, errors.New("target gone")
	}
	s.setFront(&rod.Page{TargetID: "first"})

	s.promote("popup")

	assert.Equal(t, proto.TargetTargetID("first"), s.front.TargetID)
	assert.True(t, mock.HasEntry("WARN", "Could not switch to new page"))
}

func TestElement_BoundReleasesTimeout(t *testing.T) {
	e := &Element{el: &rod.Element{}, opts: Options{ElementTimeout: time.Hour}}

	el, done := e.bound(context.Background())
	deadline, ok := el.GetContext().Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), deadline, time.Minute)

	done()
	assert.ErrorIs(t, el.GetContext().Err(), context.Canceled)

	found := wrap(el, e.opts)
	assert.NoError(t, found.el.GetContext().Err())
}

func TestKeyFor(t *testing.T) {
	for r := ' '; r <= '~'; r++ {
		k, ok := keyFor(r)
		require.True(t, ok, "rune %q", r)
		assert.NotPanics(t, func() { _ = k.Info() }, "rune %q", r)
	}

	for _, r := range []rune{'\n', '\t', 'é', 'ß', '€'} {
		_, ok := keyFor(r)
		assert.False(t, ok, "rune %q", r)
	}
}

// TestSession_AgainstLocalPage drives a real browser. It only runs when
// BUDGETSYNC_BROWSER_TEST is set because it needs Chrome on the machine.
func TestSession_AgainstLocalPage(t *testing.T) {
	if os.Getenv("BUDGETSYNC_BROWSER_TEST") == "" {
		t.Skip("set BUDGETSYNC_BROWSER_TEST=1 to run against a local Chrome")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/popup" {
			_, _ = w.Write([]byte(`<html><body><input id="q"></body></html>`))
			return
		}
		_, _ = w.Write([]byte(`<html><body>
			<div class="budget-table-row is-master-category collapsed"><span class="budget-table-cell-name">Home</span></div>
			<div class="budget-table-row"><span class="budget-table-cell-name">Rent</span>
				<button aria-label="Rent">x</button><input class="ember-text-field" value="12"></div>
			<button title="Add Category Group">+</button>
			<script>document.title = String(navigator.webdriver)</script>
		</body></html>`))
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.Headless = true
	opts.ElementTimeout = 2 * time.Second
	s, err := NewOpener(opts, logging.NewMockLogger()).Open(context.Background())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	page := s.Front()
	require.NoError(t, page.Navigate(ctx, srv.URL))

	catalog, err := selectors.Default()
	require.NoError(t, err)

	masters, err := page.FindAll(ctx, catalog.MustGet(selectors.MasterRow))
	require.NoError(t, err)
	require.Len(t, masters, 1)

	collapsed, err := masters[0].HasClass(ctx, catalog.Classes.Collapsed...)
	require.NoError(t, err)
	assert.True(t, collapsed)

	addGroup, err := page.Find(ctx, catalog.MustGet(selectors.AddGroup))
	require.NoError(t, err)
	title, err := addGroup.Attribute(ctx, "title")
	require.NoError(t, err)
	assert.Equal(t, "Add Category Group", title)

	button, err := page.Find(ctx, catalog.MustGet(selectors.AmountButton).Bind("name", "Rent"))
	require.NoError(t, err)
	row, err := button.Closest(ctx, catalog.MustGet(selectors.BudgetRow))
	require.NoError(t, err)
	input, err := row.Find(ctx, catalog.MustGet(selectors.AmountInput))
	require.NoError(t, err)
	value, err := input.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, "12", value)

	next, err := masters[0].Next(ctx)
	require.NoError(t, err)
	assert.True(t, next.Equal(row))

	_, err = page.Find(ctx, catalog.MustGet(selectors.GroupNameInput))
	assert.Error(t, err)

	first := s.(*Session).front
	_, err = first.Eval(`(u) => { window.open(u) }`, srv.URL+"/popup")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		u, err := s.Front().URL(ctx)
		return err == nil && strings.HasSuffix(u, "/popup")
	}, 10*time.Second, 100*time.Millisecond)

	popup := s.Front()
	require.NoError(t, popup.WaitNavigation(ctx))
	field, err := popup.Find(ctx, selectors.Lookup{Name: "query", Strategies: []selectors.Strategy{{Name: "id", CSS: "#q"}}})
	require.NoError(t, err)
	require.NoError(t, field.Focus(ctx))
	require.NoError(t, popup.Type(ctx, "Rent 1.500", 0))
	typed, err := field.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Rent 1.500", typed)
}
