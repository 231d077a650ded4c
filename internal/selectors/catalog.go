// Package selectors holds the catalog of element lookups used to drive the
// remote budgeting UI. The catalog is data: a default is embedded in the binary
// and a YAML file can override individual lookups.
package selectors

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Lookup names used by the application.
const (
	SignIn            = "sign_in"
	LoginEmail        = "login_email"
	LoginPassword     = "login_password"
	LoginSubmit       = "login_submit"
	BudgetTable       = "budget_table"
	MasterRow         = "master_row"
	RowName           = "row_name"
	BudgetRow         = "budget_row"
	AddGroup          = "add_group"
	GroupNameInput    = "group_name_input"
	AddCategory       = "add_category"
	CategoryNameInput = "category_name_input"
	AmountButton      = "amount_button"
	AmountInput       = "amount_input"
)

var required = []string{
	SignIn, LoginEmail, LoginPassword, LoginSubmit, BudgetTable, MasterRow, RowName,
	BudgetRow, AddGroup, GroupNameInput, AddCategory, CategoryNameInput, AmountButton, AmountInput,
}

// TextCandidates is the default set of clickable elements scanned by text strategies.
const TextCandidates = "button, a, [role='button']"

// Strategy is one way of locating an element. Exactly one of CSS or Text is set.
// Text matches case-insensitively against the inner text, aria-label or title of
// the elements selected by Candidates.
type Strategy struct {
	Name       string `yaml:"name"`
	CSS        string `yaml:"css,omitempty"`
	Text       string `yaml:"text,omitempty"`
	Candidates string `yaml:"candidates,omitempty"`
}

// IsText reports whether the strategy matches by text.
func (s Strategy) IsText() bool {
	return s.Text != ""
}

// Lookup is an ordered list of strategies. The first one that matches wins.
type Lookup struct {
	Name       string     `yaml:"-"`
	Strategies []Strategy `yaml:"strategies"`
}

// Bind returns a copy of the lookup with {key} placeholders in CSS selectors
// replaced by the quoted-string-safe value. The copy is named "name[value]".
func (l Lookup) Bind(key, value string) Lookup {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	out := Lookup{
		Name:       l.Name + "[" + value + "]",
		Strategies: make([]Strategy, len(l.Strategies)),
	}
	for i, s := range l.Strategies {
		s.CSS = strings.ReplaceAll(s.CSS, "{"+key+"}", escaped)
		out.Strategies[i] = s
	}
	return out
}

// ByText builds an ad-hoc lookup that matches clickable elements by text.
func ByText(text string) Lookup {
	needle := strings.ToLower(strings.TrimSpace(text))
	return Lookup{
		Name:       "text:" + needle,
		Strategies: []Strategy{{Name: "text", Candidates: TextCandidates, Text: needle}},
	}
}

// Classes lists the CSS classes that mark row states.
type Classes struct {
	Master    []string `yaml:"master"`
	Collapsed []string `yaml:"collapsed"`
}

// Catalog is the full set of lookups plus row state classes.
type Catalog struct {
	Version int               `yaml:"version"`
	Classes Classes           `yaml:"classes"`
	Lookups map[string]Lookup `yaml:"lookups"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse selector catalog: %w", err)
	}
	for name, l := range c.Lookups {
		l.Name = name
		c.Lookups[name] = l
	}
	return &c, nil
}

// Load returns the embedded catalog with the lookups of overridePath (if set)
// replacing the defaults of the same name. Classes are replaced when non-empty.
func Load(overridePath string) (*Catalog, error) {
	base, err := Default()
	if err != nil {
		return nil, err
	}
	if overridePath == "" {
		return base, base.Validate()
	}

	data, err := os.ReadFile(overridePath) // #nosec G304 -- operator supplied catalog path
	if err != nil {
		return nil, fmt.Errorf("failed to read selector override %s: %w", overridePath, err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, err
	}

	base.Merge(override)
	return base, base.Validate()
}

// Merge copies lookups and non-empty class lists from other into c.
func (c *Catalog) Merge(other *Catalog) {
	if other == nil {
		return
	}
	if c.Lookups == nil {
		c.Lookups = make(map[string]Lookup)
	}
	for name, l := range other.Lookups {
		c.Lookups[name] = l
	}
	if len(other.Classes.Master) > 0 {
		c.Classes.Master = other.Classes.Master
	}
	if len(other.Classes.Collapsed) > 0 {
		c.Classes.Collapsed = other.Classes.Collapsed
	}
	if other.Version > c.Version {
		c.Version = other.Version
	}
}

// Validate checks that every lookup the application uses is present and usable.
func (c *Catalog) Validate() error {
	var problems []string
	for _, name := range required {
		l, ok := c.Lookups[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing lookup %q", name))
			continue
		}
		if len(l.Strategies) == 0 {
			problems = append(problems, fmt.Sprintf("lookup %q has no strategies", name))
		}
		for i, s := range l.Strategies {
			if (s.CSS == "") == (s.Text == "") {
				problems = append(problems, fmt.Sprintf("lookup %q strategy %d must set exactly one of css or text", name, i))
			}
		}
	}
	if len(c.Classes.Master) == 0 {
		problems = append(problems, "classes.master is empty")
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("invalid selector catalog: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Get returns the named lookup.
func (c *Catalog) Get(name string) (Lookup, error) {
	l, ok := c.Lookups[name]
	if !ok {
		return Lookup{}, fmt.Errorf("unknown lookup %q", name)
	}
	return l, nil
}

// MustGet returns the named lookup and panics when it is missing. Only use it
// with names checked by Validate.
func (c *Catalog) MustGet(name string) Lookup {
	l, err := c.Get(name)
	if err != nil {
		panic(err)
	}
	return l
}
