package synchronizer

import (
	"context"
	"strings"

	"fjacquet/budget-sync/internal/models"
	"fjacquet/budget-sync/internal/runlog"
	"fjacquet/budget-sync/internal/selectors"
	"fjacquet/budget-sync/internal/session"
)

// ensureSubcategory creates the record's category under its group unless a
// row with that name already follows the group's master row.
func (s *Synchronizer) ensureSubcategory(ctx context.Context, page session.Page, rec models.CanonicalRecord, log *runlog.Log) models.StepResult {
	master := s.findMaster(ctx, page, rec.Group)
	if master == nil {
		log.Warnf("Master group %q not found for subcategory check", rec.Group)
		return failed(models.StepSubcategory, rec, "group not found", nil)
	}
	s.expand(ctx, master)

	if s.hasSubcategory(ctx, page, master, rec.Category) {
		log.Printf("Subcategory exists: %s", rec.Category)
		return done(models.StepSubcategory, false)
	}

	addLookup := s.catalog.MustGet(selectors.AddCategory)
	add, err := master.Find(ctx, addLookup)
	if err != nil {
		if next, nextErr := master.Next(ctx); nextErr == nil {
			add, err = next.Find(ctx, addLookup)
		}
	}
	if err != nil || add == nil {
		log.Warnf("Add category button not found for group %q", rec.Group)
		return failed(models.StepSubcategory, rec, "add-category control not found", err)
	}
	if err := add.Click(ctx, 1); err != nil {
		return failed(models.StepSubcategory, rec, "add-category control not clickable", err)
	}
	s.sleep(ctx, s.cfg.OpenPause)

	input, err := page.Find(ctx, s.catalog.MustGet(selectors.CategoryNameInput))
	if err != nil {
		log.Warnf("Could not find input to type subcategory")
		return failed(models.StepSubcategory, rec, "category name input not found", err)
	}
	if err := s.fillName(ctx, page, input, rec.Category); err != nil {
		return failed(models.StepSubcategory, rec, "typing category name failed", err)
	}
	if err := page.Press(ctx, session.KeyEnter); err != nil {
		return failed(models.StepSubcategory, rec, "submitting category failed", err)
	}
	s.sleep(ctx, s.cfg.CommitPause)

	log.Printf("Created subcategory: %s", rec.Category)
	return done(models.StepSubcategory, true)
}

// expand clicks a collapsed master row open.
func (s *Synchronizer) expand(ctx context.Context, master session.Element) {
	collapsed, err := master.HasClass(ctx, s.catalog.Classes.Collapsed...)
	if err != nil || !collapsed {
		return
	}
	if err := master.Click(ctx, 1); err != nil {
		s.logger.WithError(err).Debug("Could not expand group")
		return
	}
	s.sleep(ctx, s.cfg.OpenPause)
}

// hasSubcategory scans the rows after master up to the next master row.
func (s *Synchronizer) hasSubcategory(ctx context.Context, page session.Page, master session.Element, category string) bool {
	rows, err := page.FindAll(ctx, s.catalog.MustGet(selectors.BudgetRow))
	if err != nil {
		return false
	}
	start := -1
	for i, row := range rows {
		if row.Equal(master) {
			start = i
			break
		}
	}
	if start < 0 {
		return false
	}
	want := strings.TrimSpace(category)
	for _, row := range rows[start+1:] {
		if isMaster, _ := row.HasClass(ctx, s.catalog.Classes.Master...); isMaster {
			break
		}
		if strings.EqualFold(s.rowName(ctx, row), want) {
			return true
		}
	}
	return false
}

// fillName types into a text input or sets the text of a contenteditable node.
func (s *Synchronizer) fillName(ctx context.Context, page session.Page, input session.Element, name string) error {
	if editable, _ := input.Attribute(ctx, "contenteditable"); editable == "true" {
		return input.SetText(ctx, name)
	}
	if err := input.Focus(ctx); err != nil {
		return input.SetText(ctx, name)
	}
	if err := page.Type(ctx, name, s.cfg.TypingDelay); err != nil {
		return input.SetText(ctx, name)
	}
	return nil
}
