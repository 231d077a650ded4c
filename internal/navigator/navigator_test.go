package navigator

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fjacquet/budget-sync/internal/diagnostics"
	"fjacquet/budget-sync/internal/logging"
	"fjacquet/budget-sync/internal/runerror"
	"fjacquet/budget-sync/internal/runlog"
	"fjacquet/budget-sync/internal/session/sessiontest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listing = "https://app.ynab.com/users/budgets"

func newTestNavigator(t *testing.T, dir string) *Navigator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.OpenPause = 0
	cfg.ListingPause = 0
	logger := logging.NewMockLogger()
	return New(cfg, diagnostics.NewWriter(dir, true, logger), logger)
}

func TestExtractAnchors(t *testing.T) {
	markup := `<html><body>
		<a href="/budgets/123">  Family
			Budget </a>
		<a href="https://app.ynab.com/abc/budget">Other</a>
		<a href="/settings">Settings</a>
		<a>No href</a>
	</body></html>`

	anchors, err := ExtractAnchors(markup, "https://app.ynab.com/users/budgets")
	require.NoError(t, err)
	assert.Equal(t, []Anchor{
		{Href: "https://app.ynab.com/budgets/123", Text: "Family Budget"},
		{Href: "https://app.ynab.com/abc/budget", Text: "Other"},
	}, anchors)
}

func TestExtractAnchors_InlineMarkupKeepsWordsWhole(t *testing.T) {
	markup := `<a href="/budgets/123"><span class="b">Ciw</span>aruga</a>
		<a href="/budgets/456"><div>Family</div><div>Budget</div></a>
		<a href="/budgets/789">Summer<br>Trip</a>`

	anchors, err := ExtractAnchors(markup, "https://app.ynab.com/users/budgets")
	require.NoError(t, err)
	require.Len(t, anchors, 3)
	assert.Equal(t, "Ciwaruga", anchors[0].Text)
	assert.Equal(t, "Family Budget", anchors[1].Text)
	assert.Equal(t, "Summer Trip", anchors[2].Text)

	got, tier, ok := Pick(anchors, "Ciwaruga", DefaultMatchers())
	require.True(t, ok)
	assert.Equal(t, "https://app.ynab.com/budgets/123", got.Href)
	assert.Equal(t, DefaultMatchers()[0].Name, tier)
}

func TestPick_Tiers(t *testing.T) {
	anchors := []Anchor{
		{Href: "https://x/budgets/1", Text: "Household 2024"},
		{Href: "https://x/budgets/2", Text: "household"},
		{Href: "https://x/budget/summer-trip", Text: ""},
	}

	tests := []struct {
		budget   string
		wantHref string
		wantTier string
	}{
		{budget: "Household", wantHref: "https://x/budgets/2", wantTier: "exact"},
		{budget: "2024", wantHref: "https://x/budgets/1", wantTier: "substring"},
		{budget: "Summer Trip", wantHref: "https://x/budget/summer-trip", wantTier: "slug"},
	}
	for _, tt := range tests {
		t.Run(tt.budget, func(t *testing.T) {
			a, tier, ok := Pick(anchors, tt.budget, DefaultMatchers())
			require.True(t, ok)
			assert.Equal(t, tt.wantHref, a.Href)
			assert.Equal(t, tt.wantTier, tier)
		})
	}

	_, _, ok := Pick(anchors, "Missing", DefaultMatchers())
	assert.False(t, ok)
	_, _, ok = Pick(anchors, "  ", DefaultMatchers())
	assert.False(t, ok)
}

func TestOpenBudget_OnCurrentPage(t *testing.T) {
	page := sessiontest.NewPage("https://app.ynab.com/")
	page.HTMLVal = `<a href="/budgets/42">Household</a>`

	log := runlog.New(logging.NewMockLogger())
	err := newTestNavigator(t, t.TempDir()).OpenBudget(context.Background(), &sessiontest.Pager{Page: page}, "household", log)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://app.ynab.com/budgets/42"}, page.Visited)
	assert.Contains(t, strings.Join(log.Lines(), "\n"), "Budget opened (direct).")
}

func TestOpenBudget_FromListing(t *testing.T) {
	page := sessiontest.NewPage("https://app.ynab.com/")
	page.HTMLVal = `<a href="/budgets/1">Other</a>`
	page.Routes[listing] = `<a href="/budgets/7">Summer Trip</a>`

	err := newTestNavigator(t, t.TempDir()).OpenBudget(context.Background(), &sessiontest.Pager{Page: page}, "Summer Trip", runlog.New(logging.NewMockLogger()))
	require.NoError(t, err)

	assert.Equal(t, []string{listing, "https://app.ynab.com/budgets/7"}, page.Visited)
}

func TestOpenBudget_NotFoundDumpsCandidates(t *testing.T) {
	dir := t.TempDir()
	page := sessiontest.NewPage("https://app.ynab.com/")

	var links strings.Builder
	for i := 0; i < 250; i++ {
		links.WriteString(`<a href="/budgets/x">Other</a>`)
	}
	page.Routes[listing] = links.String()

	err := newTestNavigator(t, dir).OpenBudget(context.Background(), &sessiontest.Pager{Page: page}, "Household", runlog.New(logging.NewMockLogger()))

	var navErr *runerror.NavigationError
	require.True(t, errors.As(err, &navErr))
	assert.Equal(t, "Household", navErr.Budget)
	assert.Equal(t, 250, navErr.Candidates)

	data, err := os.ReadFile(filepath.Join(dir, diagnostics.BudgetCandidates))
	require.NoError(t, err)
	var dumped []Anchor
	require.NoError(t, json.Unmarshal(data, &dumped))
	assert.Len(t, dumped, 200)
}

func TestOpenBudget_NavigationFailure(t *testing.T) {
	page := sessiontest.NewPage("https://app.ynab.com/")
	page.HTMLVal = `<a href="/budgets/42">Household</a>`
	page.NavigateErr = errors.New("timeout")

	err := newTestNavigator(t, t.TempDir()).OpenBudget(context.Background(), &sessiontest.Pager{Page: page}, "Household", runlog.New(logging.NewMockLogger()))
	assert.Equal(t, runerror.KindNavigation, runerror.KindOf(err))
	assert.ErrorContains(t, err, "timeout")
}

func TestOpenBudget_CustomMatchers(t *testing.T) {
	page := sessiontest.NewPage("https://app.ynab.com/")
	page.HTMLVal = `<a href="/budgets/42">Household 2024</a>`

	nav := newTestNavigator(t, t.TempDir()).WithMatchers(DefaultMatchers()[0])
	err := nav.OpenBudget(context.Background(), &sessiontest.Pager{Page: page}, "Household", runlog.New(logging.NewMockLogger()))
	assert.Error(t, err)
}
