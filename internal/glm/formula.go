package glm

import (
	"math"
	"sort"
	"strings"

	"github.com/epistat/t2d-analyzer/internal/table"
)

// formula is a parsed "outcome ~ term + term" expression.
type formula struct {
	outcome string
	terms   []term
}

// term is one right-hand-side expression. "1" (intercept-only) parses to an
// empty term list; an explicit C(...) wrapper forces categorical treatment,
// otherwise the column's content decides.
type term struct {
	raw         string // original text, used as the coefficient name prefix
	column      string
	categorical bool // forced by C(...)
}

func parseFormula(s string) (*formula, error) {
	parts := strings.SplitN(s, "~", 2)
	if len(parts) != 2 {
		return nil, fitErrorf("formula %q must contain '~'", s)
	}
	outcome := strings.TrimSpace(parts[0])
	if outcome == "" {
		return nil, fitErrorf("formula %q has no outcome", s)
	}

	f := &formula{outcome: outcome}
	for _, piece := range strings.Split(parts[1], "+") {
		raw := strings.TrimSpace(piece)
		if raw == "" || raw == "1" {
			continue
		}
		t := term{raw: raw, column: raw}
		if inner, ok := stripCategorical(raw); ok {
			t.categorical = true
			t.column = inner
		}
		f.terms = append(f.terms, t)
	}
	return f, nil
}

// stripCategorical unwraps "C(col)" to "col".
func stripCategorical(raw string) (string, bool) {
	if strings.HasPrefix(raw, "C(") && strings.HasSuffix(raw, ")") {
		return strings.TrimSpace(raw[2 : len(raw)-1]), true
	}
	return "", false
}

// design is the realized model matrix.
type design struct {
	y     []float64   // binary response, complete rows only
	w     []float64   // frequency weights, complete rows only
	x     [][]float64 // row-major model matrix, first column is the intercept
	names []string    // coefficient names, names[0] == "Intercept"
}

// buildDesign resolves the formula against the table: drops rows with a
// missing outcome, missing covariate value, or non-finite weight, then
// dummy-codes categorical terms against their first-sorted reference level.
// Coefficient names follow the patsy convention: Intercept, then
// term[T.level] per non-reference level.
func buildDesign(f *formula, data *table.Table, weights []float64) (*design, error) {
	n := data.Rows()
	if !data.Has(f.outcome) {
		return nil, fitErrorf("outcome column %q not found", f.outcome)
	}
	for _, t := range f.terms {
		if !data.Has(t.column) {
			return nil, fitErrorf("covariate column %q not found", t.column)
		}
	}

	outcome := data.Floats(f.outcome)

	// A term contributes categorically when forced by C(...) or when the
	// column holds any non-numeric value.
	categorical := make([]bool, len(f.terms))
	for ti, t := range f.terms {
		categorical[ti] = t.categorical || !columnIsNumeric(data, t.column)
	}

	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !finite(outcome[i]) {
			continue
		}
		if i >= len(weights) || !finite(weights[i]) {
			continue
		}
		complete := true
		for ti, t := range f.terms {
			cell := data.Cell(t.column, i)
			if cell.IsMissing() || (!categorical[ti] && !finite(cell.Float())) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, fitErrorf("no complete observations to fit")
	}

	d := &design{
		y:     make([]float64, len(keep)),
		w:     make([]float64, len(keep)),
		names: []string{"Intercept"},
	}
	cols := [][]float64{ones(len(keep))}

	for k, i := range keep {
		d.y[k] = outcome[i]
		d.w[k] = weights[i]
	}

	for ti, t := range f.terms {
		if !categorical[ti] {
			col := make([]float64, len(keep))
			for k, i := range keep {
				col[k] = data.Cell(t.column, i).Float()
			}
			cols = append(cols, col)
			d.names = append(d.names, t.raw)
			continue
		}

		levels := levelsOf(data, t.column, keep)
		// First-sorted level is the reference and gets no column.
		for _, level := range levels[1:] {
			col := make([]float64, len(keep))
			for k, i := range keep {
				if data.Cell(t.column, i).String() == level {
					col[k] = 1
				}
			}
			cols = append(cols, col)
			d.names = append(d.names, t.raw+"[T."+level+"]")
		}
	}

	d.x = make([][]float64, len(keep))
	for k := range d.x {
		row := make([]float64, len(cols))
		for j, col := range cols {
			row[j] = col[k]
		}
		d.x[k] = row
	}
	return d, nil
}

func columnIsNumeric(data *table.Table, name string) bool {
	col, ok := data.Column(name)
	if !ok {
		return false
	}
	for _, v := range col {
		if v.Kind == table.Text {
			if math.IsNaN(v.Float()) {
				return false
			}
		}
	}
	return true
}

func levelsOf(data *table.Table, name string, keep []int) []string {
	set := make(map[string]struct{})
	for _, i := range keep {
		set[data.Cell(name, i).String()] = struct{}{}
	}
	levels := make([]string, 0, len(set))
	for s := range set {
		levels = append(levels, s)
	}
	sort.Strings(levels)
	return levels
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
