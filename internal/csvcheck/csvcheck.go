// Package csvcheck implements the CSV validation pipeline: encoding
// resolution, structural parsing, per-cell checks, and duplicate-row
// detection. The package is pure computation over an in-memory buffer;
// it performs no I/O and holds no state between invocations, so callers
// may run any number of validations concurrently.
package csvcheck

import "encoding/json"

// Kind identifies the condition a finding reports.
type Kind string

const (
	KindEmptyValue     Kind = "empty_value"
	KindIncorrectType  Kind = "incorrect_type"
	KindDuplicate      Kind = "duplicate"
	KindStructureError Kind = "structure_error"
)

// Severity classifies how serious a finding is. The pipeline never gates
// success on severity; that policy belongs to the caller.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is one recorded validation issue. Row is the 1-based position of
// the offending record among the file's data records (header excluded);
// zero means the finding applies to the file as a whole. Column is empty
// for findings that are not tied to a single cell.
type Finding struct {
	Kind     Kind     `json:"validation_type"`
	Row      int      `json:"row_number"`
	Column   string   `json:"column_name"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// MarshalJSON serializes a zero Row as a null row_number and an empty
// Column as a null column_name, so file-level and row-level findings are
// distinguishable on the wire.
func (f Finding) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind     Kind     `json:"validation_type"`
		Row      *int     `json:"row_number"`
		Column   *string  `json:"column_name"`
		Message  string   `json:"message"`
		Severity Severity `json:"severity"`
	}{Kind: f.Kind, Message: f.Message, Severity: f.Severity}
	if f.Row > 0 {
		out.Row = &f.Row
	}
	if f.Column != "" {
		out.Column = &f.Column
	}
	return json.Marshal(out)
}

// Row is one parsed data record. Num is its 1-based position among the
// file's data records (header and blank lines excluded, ragged records
// included), so findings from every stage number rows the same way. Cells
// maps column name to the raw cell string; type coercion is deferred
// entirely to the validation stage.
type Row struct {
	Num   int
	Cells map[string]string
}

// Table is the structural parse result: the header columns in source order
// and the data rows that matched the header's width. Every row holds
// exactly the header's column set; ragged records are excluded at parse
// time and reported as findings instead.
type Table struct {
	Columns []string
	Rows    []Row
}

// Report is the pipeline's complete output for one file.
type Report struct {
	Table    Table
	Findings []Finding
	RowCount int    // rows that survived structural parsing
	Encoding string // encoding used to decode the input ("utf-8" or "latin-1")
}

// HasErrors reports whether any finding carries error severity. Callers
// that reject files on critical findings branch on this.
func (r *Report) HasErrors() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// StructureError indicates the file could not be parsed into the expected
// tabular shape at all: empty input, no header, or duplicate header names.
// It aborts the run; data-quality issues never do.
type StructureError struct {
	Message string
}

func (e *StructureError) Error() string {
	return e.Message
}
