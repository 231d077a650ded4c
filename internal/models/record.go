package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CanonicalRecord is one normalized ledger line: a category group, a category
// inside it, and the budgeted amount. Amount is never negative.
type CanonicalRecord struct {
	Group    string
	Category string
	Amount   decimal.Decimal
}

// NewCanonicalRecord trims names and clamps negative amounts to zero. The
// second return value is false when group or category is empty.
func NewCanonicalRecord(group, category string, amount decimal.Decimal) (CanonicalRecord, bool) {
	group = strings.TrimSpace(group)
	category = strings.TrimSpace(category)
	if group == "" || category == "" {
		return CanonicalRecord{}, false
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return CanonicalRecord{Group: group, Category: category, Amount: amount}, true
}

// HasAmount reports whether the record carries an amount worth assigning:
// one that is still positive once rounded to whole units.
func (r CanonicalRecord) HasAmount() bool {
	return r.Amount.Round(0).IsPositive()
}

// AmountDigits returns the amount rounded to whole units, as the digit string
// typed into the remote amount field.
func (r CanonicalRecord) AmountDigits() string {
	return r.Amount.Round(0).StringFixed(0)
}

// ExportRow is the CSV shape of a CanonicalRecord.
type ExportRow struct {
	Group    string `csv:"Category Group"`
	Category string `csv:"Category Name"`
	Amount   string `csv:"Amount"`
}

// ToExportRows converts records for CSV export. Amounts use a decimal comma
// so the rows normalize back to the same values.
func ToExportRows(records []CanonicalRecord) []*ExportRow {
	rows := make([]*ExportRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, &ExportRow{
			Group:    r.Group,
			Category: r.Category,
			Amount:   strings.Replace(r.Amount.String(), ".", ",", 1),
		})
	}
	return rows
}
