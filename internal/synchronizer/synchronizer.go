// Package synchronizer reconciles canonical records against the open budget:
// it makes sure each record's group and category exist and assigns the amount.
package synchronizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fjacquet/budget-sync/internal/logging"
	"fjacquet/budget-sync/internal/models"
	"fjacquet/budget-sync/internal/runerror"
	"fjacquet/budget-sync/internal/runlog"
	"fjacquet/budget-sync/internal/selectors"
	"fjacquet/budget-sync/internal/session"
)

// Config holds typing speed and the pauses that let the remote app catch up.
type Config struct {
	TypingDelay time.Duration
	// OpenPause follows clicks that open an editor or expand a group.
	OpenPause time.Duration
	// CommitPause follows the Enter that creates a group or category.
	CommitPause time.Duration
	ScrollPause time.Duration
	RowPause    time.Duration
	// SettlePause follows the Tab that commits an amount.
	SettlePause time.Duration
	// RetryPause follows the Enter of the retried amount write.
	RetryPause time.Duration
}

// DefaultConfig returns the pacing used against app.ynab.com.
func DefaultConfig() Config {
	return Config{
		TypingDelay: 20 * time.Millisecond,
		OpenPause:   400 * time.Millisecond,
		CommitPause: 600 * time.Millisecond,
		ScrollPause: 100 * time.Millisecond,
		RowPause:    150 * time.Millisecond,
		SettlePause: 300 * time.Millisecond,
		RetryPause:  800 * time.Millisecond,
	}
}

// Synchronizer runs the per-record state machine.
type Synchronizer struct {
	catalog *selectors.Catalog
	cfg     Config
	logger  logging.Logger
}

// New creates a Synchronizer.
func New(catalog *selectors.Catalog, cfg Config, logger logging.Logger) *Synchronizer {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Synchronizer{
		catalog: catalog,
		cfg:     cfg,
		logger:  logger.WithField(logging.FieldComponent, logging.ComponentSynchronizer),
	}
}

// Reconcile processes records in order. A failure in one step or record never
// stops the others; everything is reported.
func (s *Synchronizer) Reconcile(ctx context.Context, pager session.Pager, records []models.CanonicalRecord, log *runlog.Log) models.SyncReport {
	var report models.SyncReport
	for i, rec := range records {
		if ctx.Err() != nil {
			log.Warnf("Stopped after %d of %d records: %v", i, len(records), ctx.Err())
			break
		}
		log.Printf("Processing: %s -> %s -> Budget %s", rec.Group, rec.Category, rec.Amount.String())
		outcome := s.process(ctx, pager, rec, log)
		report.Add(outcome)

		s.logger.Debug("Record processed",
			logging.F(logging.FieldGroup, rec.Group),
			logging.F(logging.FieldCategory, rec.Category),
			logging.F(logging.FieldStatus, string(outcome.State)))
	}

	log.Printf("Finished: %d groups created, %d categories created, %d amounts set, %d skipped, %d failed.",
		report.GroupsCreated, report.SubcategoriesCreated, report.AmountsSet, report.AmountsSkipped, report.Failed)
	return report
}

func (s *Synchronizer) process(ctx context.Context, pager session.Pager, rec models.CanonicalRecord, log *runlog.Log) (outcome models.RecordOutcome) {
	outcome = models.RecordOutcome{Record: rec, State: models.StatePending}
	defer func() {
		if r := recover(); r != nil {
			err := &runerror.StepFailure{Group: rec.Group, Category: rec.Category, Reason: fmt.Sprintf("panic: %v", r)}
			log.Warnf("Error processing %s -> %s: %v", rec.Group, rec.Category, r)
			outcome.Steps = append(outcome.Steps, models.StepResult{Status: models.StepFailed, Reason: err.Reason, Err: err})
			outcome.State = models.StateStepFailed
		}
	}()

	outcome.Steps = append(outcome.Steps, s.ensureGroup(ctx, pager.Front(), rec, log))
	outcome.State = models.StateGroupChecked

	outcome.Steps = append(outcome.Steps, s.ensureSubcategory(ctx, pager.Front(), rec, log))
	outcome.State = models.StateSubcategoryChecked

	outcome.Steps = append(outcome.Steps, s.assignAmount(ctx, pager.Front(), rec, log)...)

	switch {
	case outcome.Failed():
		outcome.State = models.StateStepFailed
	case !rec.HasAmount():
		outcome.State = models.StateAmountSkipped
	default:
		outcome.State = models.StateAmountSet
	}
	return outcome
}

func done(step string, created bool) models.StepResult {
	return models.StepResult{Step: step, Status: models.StepDone, Created: created}
}

func skipped(step, reason string) models.StepResult {
	return models.StepResult{Step: step, Status: models.StepSkipped, Reason: reason}
}

func failed(step string, rec models.CanonicalRecord, reason string, err error) models.StepResult {
	return models.StepResult{
		Step:   step,
		Status: models.StepFailed,
		Reason: reason,
		Err:    &runerror.StepFailure{Step: step, Group: rec.Group, Category: rec.Category, Reason: reason, Err: err},
	}
}

// rowName reads the trimmed name cell of a budget row.
func (s *Synchronizer) rowName(ctx context.Context, row session.Element) string {
	cell, err := row.Find(ctx, s.catalog.MustGet(selectors.RowName))
	if err != nil {
		return ""
	}
	txt, err := cell.Text(ctx)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(txt)
}

// findMaster returns the master row named group, compared case-insensitively.
func (s *Synchronizer) findMaster(ctx context.Context, page session.Page, group string) session.Element {
	masters, err := page.FindAll(ctx, s.catalog.MustGet(selectors.MasterRow))
	if err != nil {
		return nil
	}
	for _, m := range masters {
		if strings.EqualFold(s.rowName(ctx, m), strings.TrimSpace(group)) {
			return m
		}
	}
	return nil
}

func (s *Synchronizer) sleep(ctx context.Context, d time.Duration) {
	_ = session.Sleep(ctx, d)
}
