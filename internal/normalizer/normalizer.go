// Package normalizer turns uploaded ledger files into canonical records.
// CSV is tried first; spreadsheets (.xlsx) are read when the bytes are a zip
// container or CSV parsing fails.
package normalizer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"fjacquet/budget-sync/internal/fileutils"
	"fjacquet/budget-sync/internal/logging"
	"fjacquet/budget-sync/internal/models"
	"fjacquet/budget-sync/internal/runerror"

	"github.com/shopspring/decimal"
)

// Source values reported in Result.Source.
const (
	SourceCSV  = "csv"
	SourceXLSX = "xlsx"
)

const byteOrderMark = "\uFEFF"

var zipMagic = []byte("PK\x03\x04")

// Synonyms lists the accepted header names per canonical column, in priority order.
type Synonyms struct {
	Group    []string
	Category []string
	Amount   []string
}

// DefaultSynonyms returns the header names accepted out of the box.
func DefaultSynonyms() Synonyms {
	return Synonyms{
		Group:    []string{"Category Group", "Category", "group"},
		Category: []string{"Category Name", "Name", "category"},
		Amount:   []string{"Amount", "Budget", "amount"},
	}
}

// Options configures a Normalizer.
type Options struct {
	Delimiter    rune
	SnippetLimit int
	Synonyms     Synonyms
}

// DefaultOptions returns comma-delimited input, a 20000 character snippet and the default synonyms.
func DefaultOptions() Options {
	return Options{Delimiter: ',', SnippetLimit: 20000, Synonyms: DefaultSynonyms()}
}

// Result is the outcome of a successful normalization.
type Result struct {
	Records []models.CanonicalRecord
	// Dropped counts rows without a group or category.
	Dropped int
	// Zeroed counts rows whose amount was negative or unreadable and became zero.
	// A blank amount is a plain zero and is not counted.
	Zeroed   int
	Repaired int
	Source   string
}

// Normalizer converts raw file bytes into canonical records.
type Normalizer struct {
	opts   Options
	logger logging.Logger
}

// New creates a Normalizer. Zero option values fall back to the defaults.
func New(opts Options, logger logging.Logger) *Normalizer {
	def := DefaultOptions()
	if opts.Delimiter == 0 {
		opts.Delimiter = def.Delimiter
	}
	if opts.SnippetLimit <= 0 {
		opts.SnippetLimit = def.SnippetLimit
	}
	if len(opts.Synonyms.Group) == 0 {
		opts.Synonyms.Group = def.Synonyms.Group
	}
	if len(opts.Synonyms.Category) == 0 {
		opts.Synonyms.Category = def.Synonyms.Category
	}
	if len(opts.Synonyms.Amount) == 0 {
		opts.Synonyms.Amount = def.Synonyms.Amount
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Normalizer{opts: opts, logger: logger}
}

// table is a header row plus data rows. numeric marks cells holding a
// machine-formatted number rather than user text.
type table struct {
	header  []string
	rows    [][]string
	numeric [][]bool
}

// Normalize parses data and maps it to canonical records. It returns a
// *runerror.ParseError when no reader accepts the bytes and a
// *runerror.EmptyResultError when no row survives.
func (n *Normalizer) Normalize(data []byte) (*Result, error) {
	text := strings.ReplaceAll(string(data), byteOrderMark, "")
	log := n.logger.WithField(logging.FieldComponent, logging.ComponentNormalizer)

	var (
		tbl      *table
		source   string
		repaired int
		csvErr   error
	)

	if bytes.HasPrefix(data, zipMagic) {
		csvErr = errors.New("input is a zip container")
	} else {
		var fixed string
		fixed, repaired = RepairLines(text, n.opts.Delimiter)
		tbl, csvErr = readCSV(fixed, n.opts.Delimiter)
		source = SourceCSV
	}

	if csvErr != nil {
		log.WithError(csvErr).Debug("CSV parse failed, trying spreadsheet reader")
		var xlsxErr error
		tbl, xlsxErr = readXLSX(data)
		if xlsxErr != nil {
			return nil, &runerror.ParseError{
				Snippet: fileutils.Head(text, n.opts.SnippetLimit),
				Err:     fmt.Errorf("csv: %v; xlsx: %w", csvErr, xlsxErr),
			}
		}
		source = SourceXLSX
		repaired = 0
	}

	res := n.mapRecords(tbl)
	res.Source = source
	res.Repaired = repaired

	log.Info("Normalized input",
		logging.F(logging.FieldSource, source),
		logging.F(logging.FieldCount, len(res.Records)),
		logging.F("dropped", res.Dropped),
		logging.F("zeroed", res.Zeroed))

	if len(res.Records) == 0 {
		return nil, &runerror.EmptyResultError{Dropped: res.Dropped}
	}
	return res, nil
}

func (n *Normalizer) mapRecords(tbl *table) *Result {
	groupCols := columnIndexes(tbl.header, n.opts.Synonyms.Group)
	categoryCols := columnIndexes(tbl.header, n.opts.Synonyms.Category)
	amountCols := columnIndexes(tbl.header, n.opts.Synonyms.Amount)

	res := &Result{}
	for i, row := range tbl.rows {
		group, _ := firstValue(row, groupCols)
		category, _ := firstValue(row, categoryCols)

		amount, parsed := decimal.Zero, true
		if raw, col := firstValue(row, amountCols); raw != "" {
			if tbl.numeric != nil && col < len(tbl.numeric[i]) && tbl.numeric[i][col] {
				amount, parsed = parseRawNumber(raw)
			} else {
				amount, parsed = parseAmount(raw)
			}
		}

		rec, ok := models.NewCanonicalRecord(group, category, amount)
		if !ok {
			res.Dropped++
			continue
		}
		if amount.IsNegative() || !parsed {
			res.Zeroed++
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

// columnIndexes returns the header positions of names, in synonym order.
func columnIndexes(header []string, names []string) []int {
	var cols []int
	for _, name := range names {
		for i, h := range header {
			if h == name {
				cols = append(cols, i)
			}
		}
	}
	return cols
}

func firstValue(row []string, cols []int) (string, int) {
	for _, c := range cols {
		if c < len(row) {
			if v := strings.TrimSpace(row[c]); v != "" {
				return v, c
			}
		}
	}
	return "", -1
}

func readCSV(text string, delim rune) (*table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	tbl := &table{}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if blank(rec) {
			continue
		}
		cells := trimAll(rec)
		if tbl.header == nil {
			tbl.header = cells
			continue
		}
		tbl.rows = append(tbl.rows, cells)
	}
	if tbl.header == nil {
		return nil, errors.New("no header row")
	}
	return tbl, nil
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
