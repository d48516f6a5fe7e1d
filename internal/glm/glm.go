// Package glm fits binomial-family generalized linear models. It is the
// numerical collaborator behind the regression endpoint: callers hand it a
// formula, a column table, and per-row frequency weights; it hands back a
// coefficient table (term, coefficient, standard error, p-value).
//
// Only the binomial family with the logit link is implemented, which is the
// only family the service requests.
package glm

import (
	"errors"
	"fmt"

	"github.com/epistat/t2d-analyzer/internal/table"
)

// ErrFitFailure is the Is-target for numerical failures: non-convergence,
// degenerate designs, and formula errors discovered during fitting.
var ErrFitFailure = errors.New("fit failure")

// FitError carries the solver diagnostic for a failed fit. The whole fit
// fails or succeeds; there is no partial-success mode.
type FitError struct {
	Diagnostic string
}

func (e *FitError) Error() string {
	return fmt.Sprintf("model fit failed: %s", e.Diagnostic)
}

func (e *FitError) Is(target error) bool {
	return target == ErrFitFailure
}

func fitErrorf(format string, args ...any) error {
	return &FitError{Diagnostic: fmt.Sprintf(format, args...)}
}

// Coefficient is one row of the fitted coefficient table.
type Coefficient struct {
	Term   string
	Coef   float64
	StdErr float64
	P      float64
}

// Fit is a successful model fit.
type Fit struct {
	Coefficients []Coefficient
	Obs          int // observations used after dropping incomplete rows
	Iterations   int
	Deviance     float64
}

// Solver fits a weighted binomial GLM. weights are integer-like frequency
// weights aligned with the table's rows; non-finite weights drop the row.
type Solver interface {
	Fit(formula string, data *table.Table, weights []float64) (*Fit, error)
}
