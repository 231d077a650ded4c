package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCanonicalRecord(t *testing.T) {
	tests := []struct {
		name     string
		group    string
		category string
		amount   decimal.Decimal
		wantOK   bool
		want     CanonicalRecord
	}{
		{
			name:     "trims names",
			group:    "  Home ",
			category: " Rent",
			amount:   decimal.NewFromInt(1500),
			wantOK:   true,
			want:     CanonicalRecord{Group: "Home", Category: "Rent", Amount: decimal.NewFromInt(1500)},
		},
		{
			name:     "negative clamps to zero",
			group:    "Home",
			category: "Rent",
			amount:   decimal.NewFromInt(-5),
			wantOK:   true,
			want:     CanonicalRecord{Group: "Home", Category: "Rent", Amount: decimal.Zero},
		},
		{name: "blank group", group: " ", category: "Rent", amount: decimal.Zero},
		{name: "blank category", group: "Home", category: "", amount: decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NewCanonicalRecord(tt.group, tt.category, tt.amount)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.want.Group, got.Group)
			assert.Equal(t, tt.want.Category, got.Category)
			assert.True(t, tt.want.Amount.Equal(got.Amount), "amount %s", got.Amount)
		})
	}
}

func TestCanonicalRecord_AmountDigits(t *testing.T) {
	r := CanonicalRecord{Amount: decimal.RequireFromString("1234.56")}
	assert.Equal(t, "1235", r.AmountDigits())
	assert.True(t, r.HasAmount())

	zero := CanonicalRecord{Amount: decimal.Zero}
	assert.Equal(t, "0", zero.AmountDigits())
	assert.False(t, zero.HasAmount())
}

func TestCanonicalRecord_HasAmountUsesRoundedValue(t *testing.T) {
	tests := []struct {
		amount string
		want   bool
	}{
		{"0.4", false},
		{"0.49", false},
		{"0.5", true},
		{"1", true},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			r := CanonicalRecord{Amount: decimal.RequireFromString(tt.amount)}
			assert.Equal(t, tt.want, r.HasAmount())
			if !tt.want {
				assert.Equal(t, "0", r.AmountDigits())
			}
		})
	}
}

func TestToExportRows(t *testing.T) {
	rows := ToExportRows([]CanonicalRecord{
		{Group: "Home", Category: "Rent", Amount: decimal.RequireFromString("1500000")},
		{Group: "Food", Category: "Groceries", Amount: decimal.RequireFromString("1234.56")},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "Home", rows[0].Group)
	assert.Equal(t, "Rent", rows[0].Category)
	assert.Equal(t, "1500000", rows[0].Amount)
	assert.Equal(t, "1234,56", rows[1].Amount)
}

func TestRunInput_Missing(t *testing.T) {
	in := RunInput{Email: "a@b.c", Password: "x", BudgetName: "  ", FilePath: "f.csv"}
	assert.Equal(t, []string{"budgetName"}, in.Missing())

	assert.Equal(t, []string{"email", "password", "budgetName", "file"}, RunInput{}.Missing())
}

func TestRunRecord_Duration(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := RunRecord{StartedAt: start, FinishedAt: start.Add(90 * time.Second)}
	assert.Equal(t, 90*time.Second, r.Duration())
	assert.Zero(t, RunRecord{StartedAt: start}.Duration())
}

func TestSyncReport_Add(t *testing.T) {
	var report SyncReport
	report.Add(RecordOutcome{
		State: StateAmountSet,
		Steps: []StepResult{
			{Step: StepGroup, Status: StepDone, Created: true},
			{Step: StepSubcategory, Status: StepDone, Created: true},
			{Step: StepAmount, Status: StepDone},
		},
	})
	report.Add(RecordOutcome{
		State: StateAmountSkipped,
		Steps: []StepResult{
			{Step: StepGroup, Status: StepDone},
			{Step: StepSubcategory, Status: StepDone},
			{Step: StepAmount, Status: StepSkipped, Reason: "amount is zero"},
		},
	})
	failed := RecordOutcome{
		State: StateStepFailed,
		Steps: []StepResult{
			{Step: StepGroup, Status: StepFailed, Err: errors.New("boom")},
			{Step: StepVerify, Status: StepFailed, Retried: true},
		},
	}
	report.Add(failed)

	assert.Len(t, report.Outcomes, 3)
	assert.Equal(t, 1, report.GroupsCreated)
	assert.Equal(t, 1, report.SubcategoriesCreated)
	assert.Equal(t, 1, report.AmountsSet)
	assert.Equal(t, 1, report.AmountsSkipped)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Retries)
	assert.Equal(t, 1, report.Mismatches)
	assert.True(t, failed.Failed())
	assert.Equal(t, "skipped", StepSkipped.String())
}
