// Package tabular extracts recipient references from uploaded spreadsheet
// or CSV buffers under a fixed column contract.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// RecipientColumn is the header cell the first row must contain
// (case-insensitive, trimmed). The name is a fixed upload contract shared
// with the spreadsheet templates users fill in; it is not configurable.
const RecipientColumn = "nomeUser"

// Format selects the decoder. It is derived from the upload's filename
// suffix by the caller; buffers are never content-sniffed.
type Format int

const (
	FormatXLS Format = iota
	FormatXLSX
	FormatCSV
)

// FormatForFilename maps a filename suffix to a Format.
func FormatForFilename(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xls":
		return FormatXLS, true
	case ".xlsx":
		return FormatXLSX, true
	case ".csv":
		return FormatCSV, true
	}
	return 0, false
}

// Reason narrows a ParseError.
type Reason string

const (
	// ReasonBadData: the buffer could not be decoded as the tagged format.
	ReasonBadData Reason = "bad_data"
	// ReasonMissingColumn: no header cell matches RecipientColumn.
	ReasonMissingColumn Reason = "missing_column"
	// ReasonEmptySource: the table has no data rows below the header.
	ReasonEmptySource Reason = "empty_source"
	// ReasonNoRecipients: data rows exist but every recipient cell is blank.
	ReasonNoRecipients Reason = "no_recipients"
)

type ParseError struct {
	Reason Reason
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse: %s: %v", e.Detail, e.Err)
	}
	return "parse: " + e.Detail
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(reason Reason, err error, format string, args ...any) *ParseError {
	return &ParseError{Reason: reason, Detail: fmt.Sprintf(format, args...), Err: err}
}

// Parse decodes data as the tagged format and returns the recipient
// references under the RecipientColumn header, in source row order, with
// blank cells skipped. Parsing is pure: the same buffer always yields the
// same sequence.
func Parse(data []byte, format Format) ([]string, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatXLS:
		rows, err = readXLS(data)
	case FormatXLSX:
		rows, err = readXLSX(data)
	case FormatCSV:
		rows, err = readCSV(data)
	default:
		return nil, parseErr(ReasonBadData, nil, "unknown format tag %d", format)
	}
	if err != nil {
		return nil, err
	}
	return extract(rows)
}

func extract(rows [][]string) ([]string, error) {
	if len(rows) == 0 {
		return nil, parseErr(ReasonEmptySource, nil, "file has no rows")
	}

	col := -1
	for i, cell := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(cell), RecipientColumn) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, parseErr(ReasonMissingColumn, nil, "column %q not found in the header row", RecipientColumn)
	}

	if len(rows) == 1 {
		return nil, parseErr(ReasonEmptySource, nil, "file has a header but no data rows")
	}

	var refs []string
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[col]); v != "" {
			refs = append(refs, v)
		}
	}
	if len(refs) == 0 {
		return nil, parseErr(ReasonNoRecipients, nil, "no recipients found under column %q", RecipientColumn)
	}
	return refs, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, parseErr(ReasonBadData, err, "cannot read xlsx workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, parseErr(ReasonEmptySource, nil, "workbook has no sheets")
	}
	// First sheet only, like the upload templates.
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, parseErr(ReasonBadData, err, "cannot read sheet %q", sheets[0])
	}
	return rows, nil
}

func readXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, parseErr(ReasonBadData, err, "cannot read xls workbook")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, parseErr(ReasonEmptySource, nil, "workbook has no sheets")
	}
	return wb.ReadAllCells(int(sheet.MaxRow) + 1), nil
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, parseErr(ReasonBadData, err, "cannot read csv")
	}
	return rows, nil
}
