package normalizer

import (
	"encoding/csv"
	"fmt"
	"io"

	"fjacquet/budget-sync/internal/models"

	"github.com/gocarina/gocsv"
)

// WriteCSV writes records with the canonical header, using delim between fields.
// The output normalizes back to the same records.
func WriteCSV(w io.Writer, records []models.CanonicalRecord, delim rune) error {
	csvWriter := csv.NewWriter(w)
	if delim != 0 {
		csvWriter.Comma = delim
	}
	if err := gocsv.MarshalCSV(models.ToExportRows(records), gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	csvWriter.Flush()
	return csvWriter.Error()
}
