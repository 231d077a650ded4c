package models

import (
	"strings"
	"time"
)

// RunInput carries everything a run needs. Password must never be logged or stored.
type RunInput struct {
	Email      string
	Password   string
	BudgetName string
	FilePath   string
	// Temporary marks FilePath as an upload the run must delete when it ends.
	Temporary bool
}

// Missing returns the names of required fields that are blank.
func (in RunInput) Missing() []string {
	var missing []string
	if strings.TrimSpace(in.Email) == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(in.BudgetName) == "" {
		missing = append(missing, "budgetName")
	}
	if strings.TrimSpace(in.FilePath) == "" {
		missing = append(missing, "file")
	}
	return missing
}

// Run status values stored in history.
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// RunRecord is the persisted summary of a finished run.
type RunRecord struct {
	ID                   string
	StartedAt            time.Time
	FinishedAt           time.Time
	BudgetName           string
	Status               string
	ErrorKind            string
	Records              int
	Dropped              int
	Zeroed               int
	GroupsCreated        int
	SubcategoriesCreated int
	AmountsSet           int
	Failures             int
	Log                  []string
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
