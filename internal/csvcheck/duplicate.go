package csvcheck

// duplicate.go flags repeated rows. Each row gets a SHA-256 digest over its
// (column, trimmed value) pairs in header order; the first row producing a
// given digest is never flagged, every later row with the same digest is.
// Digest collisions are treated as true duplicates, which is acceptable for
// a well-distributed hash. Single pass, O(n) auxiliary space.

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// detectDuplicates produces duplicate findings for the parsed rows in row
// order. Whether a row is flagged depends only on rows that occurred
// earlier in file order. It never fails.
func detectDuplicates(table Table) []Finding {
	var findings []Finding

	seen := make(map[[sha256.Size]byte]int, len(table.Rows))
	for _, row := range table.Rows {
		digest := rowDigest(table.Columns, row)
		if first, ok := seen[digest]; ok {
			findings = append(findings, Finding{
				Kind:     KindDuplicate,
				Row:      row.Num,
				Message:  fmt.Sprintf("duplicate row (same as row %d)", first),
				Severity: SeverityWarning,
			})
			continue
		}
		seen[digest] = row.Num
	}

	return findings
}

// rowDigest computes a deterministic digest over the row's cells in header
// order. Column order matters: the same values under a reordered header
// hash differently.
func rowDigest(columns []string, row Row) [sha256.Size]byte {
	h := sha256.New()
	for _, col := range columns {
		h.Write([]byte(col))
		h.Write([]byte{0})
		h.Write([]byte(strings.TrimSpace(row.Cells[col])))
		h.Write([]byte{0})
	}
	var digest [sha256.Size]byte
	h.Sum(digest[:0])
	return digest
}
