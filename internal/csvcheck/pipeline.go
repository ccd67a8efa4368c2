package csvcheck

import "strings"

// Options configures a Pipeline.
type Options struct {
	// NumericColumns overrides the keyword set for numeric-column
	// detection. Empty means DefaultNumericColumns.
	NumericColumns []string
}

// Pipeline validates CSV uploads. A Pipeline is immutable after creation
// and safe for concurrent use.
type Pipeline struct {
	numeric map[string]bool
}

// New creates a Pipeline with the given options.
func New(opts Options) *Pipeline {
	keywords := opts.NumericColumns
	if len(keywords) == 0 {
		keywords = DefaultNumericColumns
	}
	numeric := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		numeric[strings.ToLower(strings.TrimSpace(kw))] = true
	}
	return &Pipeline{numeric: numeric}
}

// Validate runs the full pipeline over raw file bytes and always returns a
// report. A fatal structural failure (empty file, no header, duplicate
// header names) yields a report with zero rows and a single file-level
// structure_error finding; row- and cell-level issues are recorded as
// findings and never abort the run.
//
// Findings are ordered by stage (structure, then cell checks, then
// duplicates), then by row, then by header-column order. The order is
// stable for reproducible output but carries no semantic weight.
func (p *Pipeline) Validate(content []byte) *Report {
	text, encoding, serr := decodeText(content)
	if serr != nil {
		return fatalReport(serr, encoding)
	}

	table, findings, serr := parseTable(text)
	if serr != nil {
		return fatalReport(serr, encoding)
	}

	findings = append(findings, validateCells(table, p.numeric)...)
	findings = append(findings, detectDuplicates(table)...)

	return &Report{
		Table:    table,
		Findings: findings,
		RowCount: len(table.Rows),
		Encoding: encoding,
	}
}

// fatalReport wraps a StructureError into a report with zero rows.
func fatalReport(serr *StructureError, encoding string) *Report {
	return &Report{
		Findings: []Finding{{
			Kind:     KindStructureError,
			Message:  serr.Message,
			Severity: SeverityError,
		}},
		Encoding: encoding,
	}
}
