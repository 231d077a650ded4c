package synchronizer

import (
	"fjacquet/budget-sync/internal/selectors"
	"fjacquet/budget-sync/internal/session"
	"fjacquet/budget-sync/internal/session/sessiontest"
)

// fakeBudget models the budget table: master rows followed by their category rows.
type fakeBudget struct {
	page       *sessiontest.Page
	groups     []*fakeGroup
	groupInput *sessiontest.Element
	catInput   *sessiontest.Element
	addTarget  *fakeGroup
}

type fakeGroup struct {
	name   string
	master *sessiontest.Element
	rows   []*fakeCategory
}

type fakeCategory struct {
	row    *sessiontest.Element
	button *sessiontest.Element
	input  *sessiontest.Element
}

func newFakeBudget() *fakeBudget {
	b := &fakeBudget{page: sessiontest.NewPage("https://app.ynab.com/budgets/1")}

	b.groupInput = sessiontest.NewElement("group-input", "")
	b.catInput = sessiontest.NewElement("category-input", "")
	b.page.Add(selectors.GroupNameInput, b.groupInput)
	b.page.Add(selectors.CategoryNameInput, b.catInput)

	addGroup := sessiontest.NewElement("add-group", "Category Group")
	b.page.Add(selectors.AddGroup, addGroup)

	b.page.OnPress = func(key session.Key, focused *sessiontest.Element) {
		if key != session.KeyEnter {
			return
		}
		switch focused {
		case b.groupInput:
			b.addGroup(focused.CurrentValue(), false)
			b.groupInput.WithValue("")
		case b.catInput:
			if b.addTarget != nil {
				b.addCategory(b.addTarget.name, focused.CurrentValue(), "0")
				b.catInput.WithValue("")
			}
		}
	}
	return b
}

func (b *fakeBudget) pager() *sessiontest.Pager {
	return &sessiontest.Pager{Page: b.page}
}

func (b *fakeBudget) group(name string) *fakeGroup {
	for _, g := range b.groups {
		if g.name == name {
			return g
		}
	}
	return nil
}

func (b *fakeBudget) addGroup(name string, collapsed bool) *fakeGroup {
	classes := []string{"budget-table-row", "is-master-category"}
	if collapsed {
		classes = append(classes, "is-collapsed")
	}
	master := sessiontest.NewElement("master:"+name, name, classes...)
	master.Add(selectors.RowName, sessiontest.NewElement("name", "  "+name+" "))
	master.OnClick = func(int) { master.RemoveClass("is-collapsed") }

	g := &fakeGroup{name: name, master: master}
	add := sessiontest.NewElement("add-category:"+name, "+")
	add.OnClick = func(int) { b.addTarget = g }
	master.Add(selectors.AddCategory, add)

	b.groups = append(b.groups, g)
	b.rebuild()
	return g
}

func (b *fakeBudget) addCategory(group, name, value string) *fakeCategory {
	g := b.group(group)
	row := sessiontest.NewElement("row:"+name, name, "budget-table-row")
	row.Add(selectors.RowName, sessiontest.NewElement("name", name))
	input := sessiontest.NewElement("input:"+name, "").WithValue(value)
	row.Add(selectors.AmountInput, input)
	button := sessiontest.NewElement("button:"+name, "").Within(selectors.BudgetRow, row)

	c := &fakeCategory{row: row, button: button, input: input}
	g.rows = append(g.rows, c)
	b.rebuild()
	return c
}

func (b *fakeBudget) rebuild() {
	var masters, rows []*sessiontest.Element
	for _, g := range b.groups {
		masters = append(masters, g.master)
		rows = append(rows, g.master)
		for _, c := range g.rows {
			rows = append(rows, c.row)
			b.page.Set(buttonKey(c.row.TextVal), c.button)
		}
	}
	b.page.Set(selectors.MasterRow, masters...)
	b.page.Set(selectors.BudgetRow, rows...)
}

func buttonKey(category string) string {
	return selectors.Lookup{Name: selectors.AmountButton}.Bind("name", category).Name
}
