package navigator

import (
	"regexp"
	"strings"
)

// Matcher picks a budget link by one rule.
type Matcher struct {
	Name  string
	Match func(a Anchor, budget string) bool
}

var spaces = regexp.MustCompile(`\s+`)

// DefaultMatchers are tried in order: exact text, text substring, URL slug.
func DefaultMatchers() []Matcher {
	return []Matcher{
		{Name: "exact", Match: func(a Anchor, budget string) bool {
			return a.Text != "" && strings.EqualFold(a.Text, budget)
		}},
		{Name: "substring", Match: func(a Anchor, budget string) bool {
			return a.Text != "" && strings.Contains(strings.ToLower(a.Text), strings.ToLower(budget))
		}},
		{Name: "slug", Match: func(a Anchor, budget string) bool {
			slug := spaces.ReplaceAllString(strings.ToLower(budget), "-")
			return a.Href != "" && strings.Contains(strings.ToLower(a.Href), slug)
		}},
	}
}

// Pick returns the first anchor matched by the first matcher that matches
// anything, with the matcher's name.
func Pick(anchors []Anchor, budget string, matchers []Matcher) (Anchor, string, bool) {
	budget = strings.TrimSpace(budget)
	if budget == "" {
		return Anchor{}, "", false
	}
	for _, m := range matchers {
		for _, a := range anchors {
			if m.Match(a, budget) {
				return a, m.Name, true
			}
		}
	}
	return Anchor{}, "", false
}
