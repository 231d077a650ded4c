// Package runner sequences one reconciliation run: validate, normalize, open a
// browser session, sign in, open the budget, reconcile, clean up.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fjacquet/budget-sync/internal/diagnostics"
	"fjacquet/budget-sync/internal/fileutils"
	"fjacquet/budget-sync/internal/logging"
	"fjacquet/budget-sync/internal/models"
	"fjacquet/budget-sync/internal/normalizer"
	"fjacquet/budget-sync/internal/runerror"
	"fjacquet/budget-sync/internal/runlog"
	"fjacquet/budget-sync/internal/session"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Normalizer converts file bytes to canonical records.
type Normalizer interface {
	Normalize(data []byte) (*normalizer.Result, error)
}

// Authenticator signs the session in.
type Authenticator interface {
	Authenticate(ctx context.Context, pager session.Pager, email, password string, log *runlog.Log) (bool, error)
}

// Navigator opens the target budget.
type Navigator interface {
	OpenBudget(ctx context.Context, pager session.Pager, budget string, log *runlog.Log) error
}

// Synchronizer reconciles records against the open budget.
type Synchronizer interface {
	Reconcile(ctx context.Context, pager session.Pager, records []models.CanonicalRecord, log *runlog.Log) models.SyncReport
}

// Recorder stores finished runs.
type Recorder interface {
	Record(ctx context.Context, run models.RunRecord) error
}

// Deps are the collaborators of a Runner. Recorder may be nil.
type Deps struct {
	Normalizer    Normalizer
	Opener        session.Opener
	Authenticator Authenticator
	Navigator     Navigator
	Synchronizer  Synchronizer
	Diagnostics   *diagnostics.Writer
	Recorder      Recorder
	Logger        logging.Logger
}

// Result is what a run hands back to the shell.
type Result struct {
	RunID      string
	Success    bool
	Log        []string
	Normalized *normalizer.Result
	Report     models.SyncReport
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Runner executes runs one at a time.
type Runner struct {
	deps Deps
	lock *semaphore.Weighted
	now  func() time.Time
}

// New creates a Runner.
func New(deps Deps) *Runner {
	if deps.Logger == nil {
		deps.Logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Runner{deps: deps, lock: semaphore.NewWeighted(1), now: time.Now}
}

// Run executes one run to completion. Concurrent callers queue behind the
// run in progress. The session is closed and a temporary input file removed
// on every path, panics included.
func (r *Runner) Run(ctx context.Context, in models.RunInput) *Result {
	res := &Result{RunID: uuid.NewString()}
	logger := r.deps.Logger.WithFields(
		logging.F(logging.FieldComponent, logging.ComponentRunner),
		logging.F(logging.FieldRunID, res.RunID))
	log := runlog.New(logger)
	log.Redact(in.Password)
	defer log.Release()

	defer func() {
		if in.Temporary {
			if err := fileutils.RemoveIfExists(in.FilePath); err != nil {
				logger.WithError(err).Warn("Could not remove uploaded file", logging.F(logging.FieldFile, in.FilePath))
			}
		}
	}()

	if !r.lock.TryAcquire(1) {
		log.Printf("Another sync is running, waiting for it to finish...")
		if err := r.lock.Acquire(ctx, 1); err != nil {
			res.Err = &runerror.UnexpectedFault{Err: fmt.Errorf("waiting for run lock: %w", err)}
			log.Warnf("Error: %v", res.Err)
			res.Log = log.Lines()
			return res
		}
	}
	defer r.lock.Release(1)

	res.StartedAt = r.now()
	res.Normalized, res.Report, res.Err = r.execute(ctx, in, log)
	res.FinishedAt = r.now()
	res.Success = res.Err == nil

	if res.Err != nil {
		log.Warnf("Error: %v", res.Err)
	}
	res.Log = log.Lines()

	logger.Info("Run finished",
		logging.F(logging.FieldBudget, in.BudgetName),
		logging.F(logging.FieldStatus, status(res)),
		logging.F(logging.FieldDuration, res.FinishedAt.Sub(res.StartedAt).Milliseconds()))

	r.record(ctx, in, res, logger)
	return res
}

func (r *Runner) execute(ctx context.Context, in models.RunInput, log *runlog.Log) (norm *normalizer.Result, report models.SyncReport, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &runerror.UnexpectedFault{Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	if missing := in.Missing(); len(missing) > 0 {
		return nil, report, &runerror.InputError{Fields: missing}
	}
	if !fileutils.FileExists(in.FilePath) {
		return nil, report, &runerror.InputError{Reason: "uploaded file not found"}
	}

	log.Printf("Reading uploaded file...")
	data, err := fileutils.ReadFile(in.FilePath)
	if err != nil {
		return nil, report, &runerror.InputError{Reason: err.Error()}
	}

	norm, err = r.deps.Normalizer.Normalize(data)
	if err != nil {
		r.explainNormalizeError(err, log)
		return nil, report, err
	}
	log.Printf("Loaded %d rows (%s); %d dropped, %d amounts zeroed (negative or unreadable).", len(norm.Records), norm.Source, norm.Dropped, norm.Zeroed)
	if norm.Repaired > 0 {
		log.Printf("Repaired %d quote-wrapped lines.", norm.Repaired)
	}
	log.Printf("Parsed %d rows for processing.", len(norm.Records))

	log.Printf("Launching browser...")
	sess, err := r.deps.Opener.Open(ctx)
	if err != nil {
		return norm, report, &runerror.UnexpectedFault{Err: err}
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warnf("Browser did not close cleanly: %v", cerr)
		}
	}()

	if _, err := r.deps.Authenticator.Authenticate(ctx, sess, in.Email, in.Password, log); err != nil {
		return norm, report, &runerror.UnexpectedFault{Err: err}
	}

	if err := r.deps.Navigator.OpenBudget(ctx, sess, in.BudgetName, log); err != nil {
		var navErr *runerror.NavigationError
		if errors.As(err, &navErr) {
			return norm, report, err
		}
		return norm, report, &runerror.UnexpectedFault{Err: err}
	}

	report = r.deps.Synchronizer.Reconcile(ctx, sess, norm.Records, log)
	if err := ctx.Err(); err != nil {
		return norm, report, &runerror.UnexpectedFault{Err: err}
	}
	log.Printf("Finished automation successfully!")
	return norm, report, nil
}

func (r *Runner) explainNormalizeError(err error, log *runlog.Log) {
	var parseErr *runerror.ParseError
	var emptyErr *runerror.EmptyResultError
	switch {
	case errors.As(err, &parseErr):
		path, werr := r.deps.Diagnostics.WriteText(diagnostics.BadInput, parseErr.Snippet)
		if werr != nil {
			log.Warnf("Couldn't write %s: %v", diagnostics.BadInput, werr)
		} else if path != "" {
			log.Printf("Cannot parse CSV/XLSX file. Saved %s for analysis.", diagnostics.BadInput)
		}
	case errors.As(err, &emptyErr):
		log.Warnf("No valid rows found in file. Check CSV/XLSX headers.")
	}
}

func (r *Runner) record(ctx context.Context, in models.RunInput, res *Result, logger logging.Logger) {
	if r.deps.Recorder == nil {
		return
	}
	run := models.RunRecord{
		ID:                   res.RunID,
		StartedAt:            res.StartedAt,
		FinishedAt:           res.FinishedAt,
		BudgetName:           in.BudgetName,
		Status:               status(res),
		ErrorKind:            string(runerror.KindOf(res.Err)),
		GroupsCreated:        res.Report.GroupsCreated,
		SubcategoriesCreated: res.Report.SubcategoriesCreated,
		AmountsSet:           res.Report.AmountsSet,
		Failures:             res.Report.Failed,
		Log:                  res.Log,
	}
	if res.Normalized != nil {
		run.Records = len(res.Normalized.Records)
		run.Dropped = res.Normalized.Dropped
		run.Zeroed = res.Normalized.Zeroed
	}
	if err := r.deps.Recorder.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.WithError(err).Warn("Could not record run history")
	}
}

func status(res *Result) string {
	if res.Success {
		return models.RunStatusSuccess
	}
	return models.RunStatusFailed
}
