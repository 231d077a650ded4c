package synchronizer

import (
	"context"
	"errors"

	"fjacquet/budget-sync/internal/models"
	"fjacquet/budget-sync/internal/runlog"
	"fjacquet/budget-sync/internal/selectors"
	"fjacquet/budget-sync/internal/session"
)

// ensureGroup creates the record's category group when no master row carries
// its name. The new group is not re-read; the subcategory step finds out.
func (s *Synchronizer) ensureGroup(ctx context.Context, page session.Page, rec models.CanonicalRecord, log *runlog.Log) models.StepResult {
	if _, err := page.Find(ctx, s.catalog.MustGet(selectors.BudgetTable)); err != nil && !errors.Is(err, session.ErrNotFound) {
		s.logger.WithError(err).Debug("Budget table did not show up")
	}

	if s.findMaster(ctx, page, rec.Group) != nil {
		log.Printf("Group exists: %s", rec.Group)
		return done(models.StepGroup, false)
	}

	log.Printf("Creating group: %s", rec.Group)
	buttons, err := page.FindAll(ctx, s.catalog.MustGet(selectors.AddGroup))
	if err != nil || len(buttons) == 0 {
		log.Warnf("+Category Group button not found.")
		return failed(models.StepGroup, rec, "add-group control not found", err)
	}
	if err := buttons[0].Click(ctx, 1); err != nil {
		log.Warnf("Could not click +Category Group: %v", err)
		return failed(models.StepGroup, rec, "add-group control not clickable", err)
	}
	s.sleep(ctx, s.cfg.OpenPause)

	input, err := page.Find(ctx, s.catalog.MustGet(selectors.GroupNameInput))
	if err != nil {
		log.Warnf("Could not find input for new group after clicking the button.")
		return failed(models.StepGroup, rec, "group name input not found", err)
	}
	if err := input.Focus(ctx); err != nil {
		return failed(models.StepGroup, rec, "group name input not focusable", err)
	}
	if err := page.Type(ctx, rec.Group, s.cfg.TypingDelay); err != nil {
		return failed(models.StepGroup, rec, "typing group name failed", err)
	}
	if err := page.Press(ctx, session.KeyEnter); err != nil {
		return failed(models.StepGroup, rec, "submitting group failed", err)
	}
	s.sleep(ctx, s.cfg.CommitPause)

	log.Printf("Created group: %s", rec.Group)
	return done(models.StepGroup, true)
}
