package synchronizer

import (
	"context"
	"strings"

	"fjacquet/budget-sync/internal/models"
	"fjacquet/budget-sync/internal/runerror"
	"fjacquet/budget-sync/internal/runlog"
	"fjacquet/budget-sync/internal/selectors"
	"fjacquet/budget-sync/internal/session"
)

// assignAmount writes the record's amount into its budget row and verifies
// it. It returns the amount step, followed by the verify step when a write
// happened.
func (s *Synchronizer) assignAmount(ctx context.Context, page session.Page, rec models.CanonicalRecord, log *runlog.Log) []models.StepResult {
	if !rec.HasAmount() {
		log.Printf("Amount is 0 or invalid, skipping.")
		return []models.StepResult{skipped(models.StepAmount, "amount is zero")}
	}

	want := rec.AmountDigits()
	log.Printf("Setting amount for %s -> %s", rec.Category, want)

	buttons, err := page.FindAll(ctx, s.catalog.MustGet(selectors.AmountButton).Bind("name", rec.Category))
	if err != nil || len(buttons) == 0 {
		log.Warnf("Category control not found for: %s", rec.Category)
		return []models.StepResult{failed(models.StepAmount, rec, "category control not found", err)}
	}
	button := buttons[0]
	_ = button.ScrollIntoView(ctx)
	s.sleep(ctx, s.cfg.ScrollPause)

	row, err := button.Closest(ctx, s.catalog.MustGet(selectors.BudgetRow))
	if err != nil {
		log.Warnf("Row not found for: %s", rec.Category)
		return []models.StepResult{failed(models.StepAmount, rec, "budget row not found", err)}
	}
	_ = row.ScrollIntoView(ctx)
	s.sleep(ctx, s.cfg.RowPause)
	if err := row.Click(ctx, 1); err != nil {
		return []models.StepResult{failed(models.StepAmount, rec, "budget row not clickable", err)}
	}
	s.sleep(ctx, s.cfg.RowPause)

	input, err := row.Find(ctx, s.catalog.MustGet(selectors.AmountInput))
	if err != nil {
		log.Warnf("Budget input not found for: %s", rec.Category)
		return []models.StepResult{failed(models.StepAmount, rec, "amount input not found", err)}
	}

	if err := s.write(ctx, page, input, want); err != nil {
		log.Warnf("Error setting amount for %s: %v", rec.Category, err)
		return []models.StepResult{failed(models.StepAmount, rec, "writing amount failed", err)}
	}

	verify := s.verify(ctx, page, input, rec, want, log)
	if verify.Status == models.StepDone {
		log.Printf("Assigned %s -> %s", want, rec.Category)
	}
	return []models.StepResult{done(models.StepAmount, false), verify}
}

// write focuses the input, clears it and types the digits, then blurs and
// tabs away so the app saves the value.
func (s *Synchronizer) write(ctx context.Context, page session.Page, input session.Element, digits string) error {
	if err := input.Focus(ctx); err != nil {
		return err
	}
	if err := page.SelectAll(ctx); err != nil {
		return err
	}
	if err := page.Press(ctx, session.KeyBackspace); err != nil {
		return err
	}
	if err := page.Type(ctx, digits, s.cfg.TypingDelay); err != nil {
		return err
	}
	if err := input.Blur(ctx); err != nil {
		return err
	}
	if err := page.Press(ctx, session.KeyTab); err != nil {
		return err
	}
	s.sleep(ctx, s.cfg.SettlePause)
	return nil
}

// verify compares the saved value with want and retries the write once.
func (s *Synchronizer) verify(ctx context.Context, page session.Page, input session.Element, rec models.CanonicalRecord, want string, log *runlog.Log) models.StepResult {
	got := s.saved(ctx, input)
	if got == want {
		return done(models.StepVerify, false)
	}

	log.Warnf("Input rejected (saw %q), retrying...", got)
	s.sleep(ctx, s.cfg.SettlePause)
	if err := s.rewrite(ctx, page, input, want); err != nil {
		res := failed(models.StepVerify, rec, "retry failed", err)
		res.Retried = true
		return res
	}

	got = s.saved(ctx, input)
	if got == want {
		log.Printf("Amount accepted after retry for %s", rec.Category)
		res := done(models.StepVerify, false)
		res.Retried = true
		return res
	}

	log.Warnf("Amount for %s is still %q after retry, expected %s", rec.Category, got, want)
	return models.StepResult{
		Step:    models.StepVerify,
		Status:  models.StepFailed,
		Reason:  "value mismatch after retry",
		Retried: true,
		Err:     &runerror.VerificationMismatch{Category: rec.Category, Expected: want, Actual: got},
	}
}

func (s *Synchronizer) rewrite(ctx context.Context, page session.Page, input session.Element, digits string) error {
	if err := input.Click(ctx, 3); err != nil {
		return err
	}
	if err := page.Press(ctx, session.KeyBackspace); err != nil {
		return err
	}
	if err := page.Type(ctx, digits, s.cfg.TypingDelay); err != nil {
		return err
	}
	if err := page.Press(ctx, session.KeyEnter); err != nil {
		return err
	}
	s.sleep(ctx, s.cfg.RetryPause)
	return nil
}

// saved reads the input value reduced to its digits, without leading zeros.
func (s *Synchronizer) saved(ctx context.Context, input session.Element) string {
	v, err := input.Value(ctx)
	if err != nil {
		return ""
	}
	return digitsOnly(v)
}

func digitsOnly(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	out := strings.TrimLeft(b.String(), "0")
	if out == "" && b.Len() > 0 {
		return "0"
	}
	return out
}
