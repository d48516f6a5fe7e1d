// Package table provides the generic column-oriented table that flows through
// the analysis pipeline. A Table is a set of equal-length named columns whose
// cells are scalar-or-missing; column lookup is case-insensitive because
// survey extracts are inconsistent about header casing (DIABETE4 vs diabete4).
package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind discriminates the three cell states.
type Kind int

const (
	Missing Kind = iota
	Number
	Text
)

// Value is a single scalar-or-missing cell.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

// Num returns a numeric value.
func Num(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{Kind: Number, Num: f}
}

// Str returns a text value. An empty string is treated as missing, matching
// how blank cells arrive from CSV extracts.
func Str(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{Kind: Text, Str: s}
}

// None is the missing cell.
var None = Value{}

// IsMissing reports whether the cell holds no value.
func (v Value) IsMissing() bool { return v.Kind == Missing }

// Float returns the numeric view of the cell: the number itself, a parsed
// text value when the text is numeric, or NaN for everything else.
func (v Value) Float() float64 {
	switch v.Kind {
	case Number:
		return v.Num
	case Text:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

// Int returns the truncated integer view of the cell, the form survey code
// comparisons use. ok is false when the cell has no numeric interpretation.
func (v Value) Int() (int, bool) {
	f := v.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// String renders the cell for group labels and JSON echo. Numbers use the
// shortest round-trip form so 13.0 prints as "13".
func (v Value) String() string {
	switch v.Kind {
	case Number:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case Text:
		return v.Str
	}
	return ""
}

// MarshalJSON serializes missing cells as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case Number:
		if math.IsInf(v.Num, 0) || math.IsNaN(v.Num) {
			return []byte("null"), nil
		}
		return []byte(strconv.FormatFloat(v.Num, 'g', -1, 64)), nil
	case Text:
		return []byte(strconv.Quote(v.Str)), nil
	}
	return []byte("null"), nil
}

// Column is a sequence of cells.
type Column []Value

// Table is an ordered collection of equal-length named columns.
type Table struct {
	names   []string          // insertion order, original casing
	index   map[string]int    // lowercase name -> position in names
	columns map[string]Column // lowercase name -> cells
	rows    int
}

// New creates an empty table.
func New() *Table {
	return &Table{
		index:   make(map[string]int),
		columns: make(map[string]Column),
	}
}

// Rows returns the row count.
func (t *Table) Rows() int { return t.rows }

// Names returns column names in insertion order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Has reports whether a column exists, case-insensitively.
func (t *Table) Has(name string) bool {
	_, ok := t.columns[strings.ToLower(name)]
	return ok
}

// Column returns the cells of a column looked up case-insensitively.
// Absent columns return (nil, false); callers treat that as all-missing.
func (t *Table) Column(name string) (Column, bool) {
	col, ok := t.columns[strings.ToLower(name)]
	return col, ok
}

// ResolveName returns the stored casing of a column name, or "" if absent.
func (t *Table) ResolveName(name string) string {
	if i, ok := t.index[strings.ToLower(name)]; ok {
		return t.names[i]
	}
	return ""
}

// SetColumn adds or replaces a column. The first column added fixes the row
// count; later columns must match it.
func (t *Table) SetColumn(name string, col Column) error {
	if len(t.columns) == 0 {
		t.rows = len(col)
	} else if len(col) != t.rows {
		return fmt.Errorf("column %q has %d rows, table has %d", name, len(col), t.rows)
	}
	key := strings.ToLower(name)
	if _, exists := t.columns[key]; !exists {
		t.index[key] = len(t.names)
		t.names = append(t.names, name)
	}
	t.columns[key] = col
	return nil
}

// Cell returns the value at (column, row); missing if the column is absent.
func (t *Table) Cell(name string, row int) Value {
	col, ok := t.Column(name)
	if !ok || row < 0 || row >= len(col) {
		return None
	}
	return col[row]
}

// Floats returns the numeric view of a column as a float slice (NaN for
// missing or non-numeric cells). An absent column yields all-NaN.
func (t *Table) Floats(name string) []float64 {
	out := make([]float64, t.rows)
	col, ok := t.Column(name)
	if !ok {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	for i, v := range col {
		out[i] = v.Float()
	}
	return out
}

// Records flattens up to limit rows of the named columns into uniform
// field-name -> cell records for JSON serialization. limit <= 0 means all.
func (t *Table) Records(names []string, limit int) []map[string]Value {
	n := t.rows
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]map[string]Value, 0, n)
	for i := 0; i < n; i++ {
		rec := make(map[string]Value, len(names))
		for _, name := range names {
			if !t.Has(name) {
				continue
			}
			rec[name] = t.Cell(name, i)
		}
		out = append(out, rec)
	}
	return out
}
