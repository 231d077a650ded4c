package session_test

import (
	"context"
	"testing"
	"time"

	"fjacquet/budget-sync/internal/selectors"
	"fjacquet/budget-sync/internal/session"
	"fjacquet/budget-sync/internal/session/sessiontest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesText(t *testing.T) {
	ctx := context.Background()

	byText := sessiontest.NewElement("a", "  Add Category Group ")
	byAria := sessiontest.NewElement("b", "+")
	byAria.Attrs = map[string]string{"aria-label": "Add Category Group"}
	byTitle := sessiontest.NewElement("c", "")
	byTitle.Attrs = map[string]string{"title": "add group"}

	assert.True(t, session.MatchesText(ctx, byText, "category group"))
	assert.True(t, session.MatchesText(ctx, byAria, "CATEGORY GROUP"))
	assert.True(t, session.MatchesText(ctx, byTitle, "add group"))
	assert.False(t, session.MatchesText(ctx, byTitle, "category group"))
	assert.False(t, session.MatchesText(ctx, byText, "  "))
}

func TestClickByText(t *testing.T) {
	ctx := context.Background()
	page := sessiontest.NewPage("about:blank")
	button := sessiontest.NewElement("b", "Sign in")
	page.Add(selectors.ByText("Sign In").Name, button)

	assert.True(t, session.ClickByText(ctx, page, "Sign In"))
	assert.Len(t, button.Clicks, 1)
	assert.False(t, session.ClickByText(ctx, page, "register"))

	el, err := session.FindByText(ctx, page, "sign in")
	require.NoError(t, err)
	assert.True(t, el.Equal(button))
}

func TestSleep_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := session.Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	assert.NoError(t, session.Sleep(context.Background(), 0))
}
