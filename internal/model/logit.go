// Package model builds the weighted logistic regression of the derived
// outcome against covariates: formula construction, weight resolution,
// delegation to the GLM solver, and the odds-ratio transform of the returned
// coefficient table.
package model

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/epistat/t2d-analyzer/internal/glm"
	"github.com/epistat/t2d-analyzer/internal/recode"
	"github.com/epistat/t2d-analyzer/internal/table"
)

// waldZ is the fixed critical value for the ~95% Wald interval. It is not a
// per-model quantile.
const waldZ = 1.96

// Term is one coefficient row after the odds-ratio transform.
// Invariant: ORLow <= OR <= ORHigh (monotonic exp of a symmetric interval in
// log-odds space).
type Term struct {
	Term   string  `json:"term"`
	OR     float64 `json:"OR"`
	ORLow  float64 `json:"OR_low"`
	ORHigh float64 `json:"OR_high"`
	P      float64 `json:"P>|z|"`
}

// MarshalJSON serializes non-finite statistics as null.
func (t Term) MarshalJSON() ([]byte, error) {
	type alias struct {
		Term   string   `json:"term"`
		OR     *float64 `json:"OR"`
		ORLow  *float64 `json:"OR_low"`
		ORHigh *float64 `json:"OR_high"`
		P      *float64 `json:"P>|z|"`
	}
	return json.Marshal(alias{
		Term:   t.Term,
		OR:     finitePtr(t.OR),
		ORLow:  finitePtr(t.ORLow),
		ORHigh: finitePtr(t.ORHigh),
		P:      finitePtr(t.P),
	})
}

func finitePtr(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Result is the full regression output.
type Result struct {
	Formula string `json:"formula"`
	Terms   []Term `json:"table"`
	Obs     int    `json:"n_obs"`
}

// BuildFormula joins the caller's covariate expressions (trimmed, empties
// discarded, otherwise unvalidated) onto the outcome. With no covariates the
// defaults are the derived categorical columns present in the table; with
// none of those, the model reduces to intercept-only.
func BuildFormula(t *table.Table, covariates []string) string {
	terms := make([]string, 0, len(covariates))
	for _, c := range covariates {
		c = strings.TrimSpace(c)
		if c != "" {
			terms = append(terms, c)
		}
	}

	if len(terms) == 0 {
		for _, col := range []string{recode.ColBMICat, recode.ColAgeGroupOut, recode.ColSexOut} {
			if t.Has(col) {
				terms = append(terms, "C("+col+")")
			}
		}
	}

	if len(terms) == 0 {
		return recode.ColT2DBinary + " ~ 1"
	}
	return recode.ColT2DBinary + " ~ " + strings.Join(terms, " + ")
}

// Logit fits the weighted logistic regression on a recoded table. A nil
// solver means the GLM capability is absent from this build; callers surface
// that as their capability-unavailable condition.
func Logit(solver glm.Solver, t *table.Table, covariates []string, weightCol string) (*Result, error) {
	weightCol = recode.EnsureWeight(t, weightCol)
	formula := BuildFormula(t, covariates)
	weights := t.Floats(weightCol)

	fit, err := solver.Fit(formula, t, weights)
	if err != nil {
		return nil, err
	}

	terms := make([]Term, len(fit.Coefficients))
	for i, c := range fit.Coefficients {
		terms[i] = Term{
			Term:   c.Term,
			OR:     math.Exp(c.Coef),
			ORLow:  math.Exp(c.Coef - waldZ*c.StdErr),
			ORHigh: math.Exp(c.Coef + waldZ*c.StdErr),
			P:      c.P,
		}
	}

	return &Result{Formula: formula, Terms: terms, Obs: fit.Obs}, nil
}
