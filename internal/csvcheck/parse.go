package csvcheck

// parse.go splits decoded text into a header and data rows.
//
// The first non-empty record is the header. Header fields are trimmed and
// must be non-empty and unique; a duplicate header name would make
// column-keyed findings ambiguous, so it is fatal. A record whose field
// count differs from the header is recorded as a row-level structure_error
// finding and excluded from the parsed rows; parsing continues with the
// remaining records. A data record whose cells are all empty still counts
// as a row — its cells surface as empty_value findings downstream. Fully
// blank lines produce no record at all. A file with a header and zero data
// rows is valid.

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// parseTable parses decoded CSV text into a Table plus row-level findings.
// The returned error is non-nil only for fatal structural failures.
func parseTable(text string) (Table, []Finding, *StructureError) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, serr := readHeader(r)
	if serr != nil {
		return Table{}, nil, serr
	}

	table := Table{Columns: header}
	var findings []Finding

	rowNum := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			findings = append(findings, Finding{
				Kind:     KindStructureError,
				Row:      rowNum,
				Message:  fmt.Sprintf("row could not be parsed: %v", err),
				Severity: SeverityError,
			})
			continue
		}
		if len(record) != len(header) {
			findings = append(findings, Finding{
				Kind:     KindStructureError,
				Row:      rowNum,
				Message:  fmt.Sprintf("expected %d fields, got %d", len(header), len(record)),
				Severity: SeverityError,
			})
			continue
		}

		cells := make(map[string]string, len(header))
		for i, col := range header {
			cells[col] = record[i]
		}
		table.Rows = append(table.Rows, Row{Num: rowNum, Cells: cells})
	}

	return table, findings, nil
}

// readHeader reads records until the first non-empty one and validates it
// as the header row.
func readHeader(r *csv.Reader) ([]string, *StructureError) {
	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil, &StructureError{Message: "file has no header row"}
		}
		if err != nil {
			return nil, &StructureError{Message: fmt.Sprintf("header could not be parsed: %v", err)}
		}
		if isEmptyRecord(record) {
			continue
		}

		header := make([]string, len(record))
		seen := make(map[string]bool, len(record))
		for i, field := range record {
			name := strings.TrimSpace(field)
			if name == "" {
				return nil, &StructureError{Message: fmt.Sprintf("header field %d is empty", i+1)}
			}
			if seen[name] {
				return nil, &StructureError{Message: fmt.Sprintf("duplicate header name %q", name)}
			}
			seen[name] = true
			header[i] = name
		}
		return header, nil
	}
}

// isEmptyRecord reports whether every field is blank after trimming.
func isEmptyRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
