package collect

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"benritz/bonds/internal/input"
	"benritz/bonds/internal/types"

	"github.com/pbnjay/grate"
	_ "github.com/pbnjay/grate/simple" // tsv
	_ "github.com/pbnjay/grate/xls"
	_ "github.com/pbnjay/grate/xlsx"
)

// SpecRow is one bond read from a spreadsheet. Err is set when the row could
// not be turned into a valid BondSpec.
type SpecRow struct {
	Row  int
	Name string
	Spec types.BondSpec
	Err  error
}

var ErrMissingColumn = fmt.Errorf("missing column")

// Sheet column headers, matched case-insensitively. face and amount are optional.
const (
	colName      = "name"
	colPrice     = "price"
	colFace      = "face"
	colCoupon    = "coupon"
	colMaturity  = "maturity"
	colFrequency = "frequency"
	colAmount    = "amount"
)

var sheetFlags = map[string]string{
	colPrice:     input.FlagPrice,
	colFace:      input.FlagFace,
	colCoupon:    input.FlagCoupon,
	colMaturity:  input.FlagMaturity,
	colFrequency: input.FlagFrequency,
	colAmount:    input.FlagAmount,
}

// LoadSpecs reads bonds from a csv file or the first sheet of a tsv, xls or
// xlsx file. The first row holds the column headers.
func LoadSpecs(path string) ([]SpecRow, error) {
	var (
		records [][]string
		err     error
	)

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		records, err = readCSV(path)
	} else {
		records, err = readWorkbook(path)
	}
	if err != nil {
		return nil, err
	}

	return parseSpecRows(records)
}

// readCSV is used for .csv files since grate only detects csv with ten or
// more rows and otherwise falls back to single column tsv.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	return r.ReadAll()
}

func readWorkbook(path string) ([][]string, error) {
	wb, err := grate.Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheets, err := wb.List()
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, types.ErrDataUnavailable
	}

	sheet, err := wb.Get(sheets[0])
	if err != nil {
		return nil, err
	}

	var records [][]string
	for sheet.Next() {
		records = append(records, append([]string(nil), sheet.Strings()...))
	}

	if err := sheet.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func parseSpecRows(records [][]string) ([]SpecRow, error) {
	if len(records) == 0 {
		return nil, types.ErrDataUnavailable
	}

	columns, err := headerColumns(records[0])
	if err != nil {
		return nil, err
	}

	var rows []SpecRow
	for i, cells := range records[1:] {
		if isBlank(cells) {
			continue
		}
		rows = append(rows, parseSpecRow(i+2, columns, cells))
	}

	return rows, nil
}

func headerColumns(cells []string) (map[string]int, error) {
	columns := map[string]int{}
	for i, c := range cells {
		columns[strings.ToLower(strings.TrimSpace(c))] = i
	}

	for _, required := range []string{colPrice, colCoupon, colMaturity, colFrequency} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	return columns, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseSpecRow(n int, columns map[string]int, cells []string) SpecRow {
	cell := func(name string) (string, bool) {
		i, ok := columns[name]
		if !ok || i >= len(cells) || strings.TrimSpace(cells[i]) == "" {
			return "", false
		}
		return cells[i], true
	}

	row := SpecRow{Row: n}
	if name, ok := cell(colName); ok {
		row.Name = strings.TrimSpace(name)
	}

	values := map[string]string{}
	for col, flag := range sheetFlags {
		if v, ok := cell(col); ok {
			values[flag] = v
		}
	}

	if len(values) == 0 {
		row.Err = input.ErrMissingRequired
		return row
	}

	row.Spec, row.Err = input.Resolve(values, false, nil)
	if row.Err != nil {
		row.Err = fmt.Errorf("row %d: %w", n, row.Err)
	}

	return row
}
