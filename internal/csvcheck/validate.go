package csvcheck

// validate.go runs the per-cell checks: empty-value detection for every
// cell, and decimal coercion for cells in numeric columns.
//
// A column is numeric when its trimmed, lowercased name exactly matches a
// configured keyword. This is a deliberate zero-configuration heuristic,
// not schema inference: a column named "price_description" is not numeric,
// and a column named "price" always is.

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultNumericColumns is the built-in keyword set for numeric-column
// detection. Callers may override it via Options.
var DefaultNumericColumns = []string{
	"precio", "cantidad", "monto", "total", "price", "quantity", "amount",
}

// decimalRegex matches a decimal number after grouping normalization:
// optional sign, digits, at most one decimal point.
var decimalRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// validateCells produces empty_value and incorrect_type findings for every
// cell of the table, in row order then header-column order. It never fails.
func validateCells(table Table, numeric map[string]bool) []Finding {
	var findings []Finding

	for _, row := range table.Rows {
		for _, col := range table.Columns {
			value := strings.TrimSpace(row.Cells[col])
			if value == "" {
				findings = append(findings, Finding{
					Kind:     KindEmptyValue,
					Row:      row.Num,
					Column:   col,
					Message:  fmt.Sprintf("empty value in column %q", col),
					Severity: SeverityWarning,
				})
				continue
			}
			if numeric[strings.ToLower(col)] && !isDecimal(value) {
				findings = append(findings, Finding{
					Kind:     KindIncorrectType,
					Row:      row.Num,
					Column:   col,
					Message:  fmt.Sprintf("expected a number in column %q, got %q", col, value),
					Severity: SeverityError,
				})
			}
		}
	}

	return findings
}

// isDecimal reports whether the value coerces to a decimal number.
func isDecimal(s string) bool {
	return decimalRegex.MatchString(normalizeDecimal(s))
}

// normalizeDecimal strips grouping punctuation and unifies the decimal
// separator to '.'. Handles both "1,234.56" and "1.234,56" conventions,
// and a bare comma as decimal separator ("10,5").
func normalizeDecimal(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			// "1.234,56": dots group, comma is the decimal separator.
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// "1,234.56": commas group.
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if strings.Count(s, ",") == 1 {
			// "10,5": comma as decimal separator.
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// "1,234,567": commas group.
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	return s
}
