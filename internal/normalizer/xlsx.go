package normalizer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// readXLSX reads the first sheet of a workbook. The first non-blank row is the header.
func readXLSX(data []byte) (*table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	tbl := &table{}
	for r, row := range rows {
		if blank(row) {
			continue
		}
		for i := range row {
			row[i] = strings.ReplaceAll(row[i], byteOrderMark, "")
		}
		cells := trimAll(row)
		if tbl.header == nil {
			tbl.header = cells
			continue
		}
		numeric := make([]bool, len(cells))
		for c := range cells {
			numeric[c] = isNumericCell(f, sheet, c+1, r+1)
		}
		tbl.rows = append(tbl.rows, cells)
		tbl.numeric = append(tbl.numeric, numeric)
	}
	if tbl.header == nil {
		return nil, fmt.Errorf("sheet %s is empty", sheet)
	}
	return tbl, nil
}

func isNumericCell(f *excelize.File, sheet string, col, row int) bool {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return false
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return false
	}
	switch typ {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		return true
	default:
		return false
	}
}
