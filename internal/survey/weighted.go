// Package survey implements weighted aggregation over recoded tables:
// survey-weighted means and grouped prevalence estimates.
package survey

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/epistat/t2d-analyzer/internal/recode"
	"github.com/epistat/t2d-analyzer/internal/table"
)

// MissingGroupLabel labels the partition of rows whose grouping value is
// missing. The partition is always retained, never dropped.
const MissingGroupLabel = "(missing)"

// OverallLabel labels the single result emitted when no grouping column is
// requested.
const OverallLabel = "Overall"

// GroupResult is one weighted prevalence estimate.
type GroupResult struct {
	Group      string  `json:"group"`
	Prevalence float64 `json:"prev"` // NaN when undefined; serialized as null
	Weight     float64 `json:"weight_sum"`
	N          int     `json:"n"`
}

// MarshalJSON serializes an undefined prevalence as null, since encoding/json
// rejects NaN.
func (g GroupResult) MarshalJSON() ([]byte, error) {
	type alias struct {
		Group      string   `json:"group"`
		Prevalence *float64 `json:"prev"`
		Weight     float64  `json:"weight_sum"`
		N          int      `json:"n"`
	}
	a := alias{Group: g.Group, Weight: g.Weight, N: g.N}
	if isFinite(g.Prevalence) {
		p := g.Prevalence
		a.Prevalence = &p
	}
	return json.Marshal(a)
}

// WeightedMean returns sum(x*w)/sum(w) over the indices where both x and w
// are finite. NaN when that subset is empty.
func WeightedMean(x, w []float64) float64 {
	var num, den float64
	any := false
	for i := range x {
		if i >= len(w) {
			break
		}
		if !isFinite(x[i]) || !isFinite(w[i]) {
			continue
		}
		num += x[i] * w[i]
		den += w[i]
		any = true
	}
	if !any || den == 0 {
		return math.NaN()
	}
	return num / den
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Prevalence computes the weighted prevalence of the binary outcome, grouped
// by the named column (or a single Overall result when by is empty).
//
// Missing outcome values are substituted with 0 before averaging: rows that
// could not be classified count as non-cases. This is a deliberate policy,
// not a defect; changing it changes every published number. Callers needing
// stricter handling must pre-filter missing rows.
//
// Results are sorted by descending prevalence; ties keep first-seen partition
// order, and groups with undefined prevalence sort last. The missing-value
// partition is retained as its own group.
func Prevalence(t *table.Table, by, weightCol string) []GroupResult {
	weightCol = recode.EnsureWeight(t, weightCol)

	outcome := t.Floats(recode.ColT2DBinary)
	for i, v := range outcome {
		if math.IsNaN(v) {
			outcome[i] = 0
		}
	}
	weights := t.Floats(weightCol)

	if by == "" {
		return []GroupResult{summarize(OverallLabel, outcome, weights, allIndices(t.Rows()))}
	}

	groups, order := partition(t, by)
	results := make([]GroupResult, 0, len(order))
	for _, label := range order {
		results = append(results, summarize(label, outcome, weights, groups[label]))
	}

	sort.SliceStable(results, func(i, j int) bool {
		pi, pj := results[i].Prevalence, results[j].Prevalence
		switch {
		case math.IsNaN(pi):
			return false
		case math.IsNaN(pj):
			return true
		default:
			return pi > pj
		}
	})
	return results
}

// partition splits row indices by the exact value of the grouping column,
// keeping missing values as their own group. order preserves first-seen
// group order for the stable tie-break.
func partition(t *table.Table, by string) (map[string][]int, []string) {
	groups := make(map[string][]int)
	var order []string

	col, ok := t.Column(by)
	for i := 0; i < t.Rows(); i++ {
		label := MissingGroupLabel
		if ok && i < len(col) && !col[i].IsMissing() {
			label = col[i].String()
		}
		if _, seen := groups[label]; !seen {
			order = append(order, label)
		}
		groups[label] = append(groups[label], i)
	}
	return groups, order
}

func summarize(label string, outcome, weights []float64, idx []int) GroupResult {
	x := make([]float64, len(idx))
	w := make([]float64, len(idx))
	var wsum float64
	for k, i := range idx {
		x[k] = outcome[i]
		w[k] = weights[i]
		if isFinite(weights[i]) {
			wsum += weights[i]
		}
	}
	return GroupResult{
		Group:      label,
		Prevalence: WeightedMean(x, w),
		Weight:     wsum,
		N:          len(idx),
	}
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
