package csvcheck

import "testing"

func TestNormalizeDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"42", "42"},
		{"10,5", "10.5"},
		{"10.5", "10.5"},
		{"1,234.56", "1234.56"},
		{"1.234,56", "1234.56"},
		{"1,234,567", "1234567"},
		{"1 234,56", "1234.56"},
		{"-3.25", "-3.25"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := normalizeDecimal(tt.in); got != tt.want {
				t.Errorf("normalizeDecimal(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsDecimal(t *testing.T) {
	valid := []string{"0", "42", "-1", "+7", "10.5", ".5", "3.", "10,5", "1,234.56", "1.234,56"}
	for _, v := range valid {
		if !isDecimal(v) {
			t.Errorf("isDecimal(%q) = false, want true", v)
		}
	}

	invalid := []string{"", "abc", "12abc", "1.2.3", "-", "+", "1e5", "10..5", "NaN"}
	for _, v := range invalid {
		if isDecimal(v) {
			t.Errorf("isDecimal(%q) = true, want false", v)
		}
	}
}

func TestRowDigest_ColumnOrderMatters(t *testing.T) {
	row := Row{Num: 1, Cells: map[string]string{"a": "1", "b": "2"}}

	d1 := rowDigest([]string{"a", "b"}, row)
	d2 := rowDigest([]string{"b", "a"}, row)
	if d1 == d2 {
		t.Error("digest identical under reordered columns, want different")
	}
}

func TestRowDigest_Deterministic(t *testing.T) {
	cols := []string{"a", "b"}
	r1 := Row{Num: 1, Cells: map[string]string{"a": "1", "b": "2"}}
	r2 := Row{Num: 9, Cells: map[string]string{"a": "1", "b": "2"}}

	if rowDigest(cols, r1) != rowDigest(cols, r2) {
		t.Error("digest differs for identical cell values")
	}
}
