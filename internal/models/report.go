package models

// StepStatus is the outcome tag of a single synchronization step.
type StepStatus int

const (
	StepDone StepStatus = iota
	StepSkipped
	StepFailed
)

func (s StepStatus) String() string {
	switch s {
	case StepDone:
		return "done"
	case StepSkipped:
		return "skipped"
	case StepFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Step names.
const (
	StepGroup       = "group"
	StepSubcategory = "subcategory"
	StepAmount      = "amount"
	StepVerify      = "verify"
)

// StepResult is the tagged result of one step for one record.
// Created is set when the step added something remotely; Retried when a
// verification needed its second write.
type StepResult struct {
	Step    string
	Status  StepStatus
	Reason  string
	Created bool
	Retried bool
	Err     error
}

// RecordState follows a record through the synchronization state machine.
type RecordState string

const (
	StatePending            RecordState = "PENDING"
	StateGroupChecked       RecordState = "GROUP_CHECKED"
	StateSubcategoryChecked RecordState = "SUBCATEGORY_CHECKED"
	StateAmountSet          RecordState = "AMOUNT_SET"
	StateAmountSkipped      RecordState = "AMOUNT_SKIPPED"
	StateStepFailed         RecordState = "STEP_FAILED"
)

// RecordOutcome collects the step results of one record.
type RecordOutcome struct {
	Record CanonicalRecord
	State  RecordState
	Steps  []StepResult
}

// Failed reports whether any step failed.
func (o RecordOutcome) Failed() bool {
	for _, s := range o.Steps {
		if s.Status == StepFailed {
			return true
		}
	}
	return false
}

// SyncReport aggregates the outcomes of a reconciliation pass.
type SyncReport struct {
	Outcomes             []RecordOutcome
	GroupsCreated        int
	SubcategoriesCreated int
	AmountsSet           int
	AmountsSkipped       int
	Failed               int
	Mismatches           int
	Retries              int
}

// Add folds one outcome into the report counters.
func (r *SyncReport) Add(o RecordOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	for _, s := range o.Steps {
		if s.Status == StepDone && s.Created {
			switch s.Step {
			case StepGroup:
				r.GroupsCreated++
			case StepSubcategory:
				r.SubcategoriesCreated++
			}
		}
		if s.Retried {
			r.Retries++
		}
		if s.Step == StepVerify && s.Status == StepFailed {
			r.Mismatches++
		}
	}
	switch o.State {
	case StateAmountSet:
		r.AmountsSet++
	case StateAmountSkipped:
		r.AmountsSkipped++
	case StateStepFailed:
		r.Failed++
	}
}
