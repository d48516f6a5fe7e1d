package glm

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/epistat/t2d-analyzer/internal/table"
)

// Convergence defaults, matching the common IRLS settings for binomial GLMs.
const (
	DefaultMaxIter = 25
	DefaultTol     = 1e-8
)

// muFloor keeps fitted probabilities away from 0 and 1 so the working
// weights and deviance stay finite.
const muFloor = 1e-10

// IRLSSolver fits a binomial/logit GLM by iteratively reweighted least
// squares. Standard errors are Wald, from the inverse of the final weighted
// normal matrix; p-values are two-sided normal.
type IRLSSolver struct {
	MaxIter int
	Tol     float64
}

// NewIRLSSolver returns a solver with default convergence settings.
func NewIRLSSolver() *IRLSSolver {
	return &IRLSSolver{MaxIter: DefaultMaxIter, Tol: DefaultTol}
}

// Fit implements Solver. The whole fit succeeds or fails; failures carry the
// solver diagnostic as a FitError.
func (s *IRLSSolver) Fit(formulaStr string, data *table.Table, weights []float64) (*Fit, error) {
	f, err := parseFormula(formulaStr)
	if err != nil {
		return nil, err
	}
	d, err := buildDesign(f, data, weights)
	if err != nil {
		return nil, err
	}

	n := len(d.y)
	p := len(d.names)
	if n < p {
		return nil, fitErrorf("%d observations for %d coefficients", n, p)
	}
	for _, yi := range d.y {
		if yi != 0 && yi != 1 {
			return nil, fitErrorf("outcome is not binary (found %g)", yi)
		}
	}

	maxIter := s.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	tol := s.Tol
	if tol <= 0 {
		tol = DefaultTol
	}

	beta := make([]float64, p)
	eta := make([]float64, n)
	mu := make([]float64, n)
	for i, yi := range d.y {
		// Standard binomial starting values.
		mu[i] = (yi + 0.5) / 2
		eta[i] = logit(mu[i])
	}

	xtwx := mat.NewSymDense(p, nil)
	xtwz := mat.NewVecDense(p, nil)
	var chol mat.Cholesky

	dev := deviance(d.y, mu, d.w)
	converged := false
	iterations := 0

	for iter := 0; iter < maxIter; iter++ {
		iterations = iter + 1

		// Accumulate X'WX and X'Wz for the working response z.
		xtwx.Zero()
		xtwz.Zero()
		for i := 0; i < n; i++ {
			v := mu[i] * (1 - mu[i])
			wi := d.w[i] * v
			zi := eta[i] + (d.y[i]-mu[i])/v
			row := d.x[i]
			for j := 0; j < p; j++ {
				xtwz.SetVec(j, xtwz.AtVec(j)+wi*row[j]*zi)
				for k := j; k < p; k++ {
					xtwx.SetSym(j, k, xtwx.At(j, k)+wi*row[j]*row[k])
				}
			}
		}

		if ok := chol.Factorize(xtwx); !ok {
			return nil, fitErrorf("weighted design matrix is singular at iteration %d", iterations)
		}
		var betaVec mat.VecDense
		if err := chol.SolveVecTo(&betaVec, xtwz); err != nil {
			return nil, fitErrorf("solving normal equations: %v", err)
		}
		for j := 0; j < p; j++ {
			beta[j] = betaVec.AtVec(j)
		}

		for i := 0; i < n; i++ {
			eta[i] = dot(d.x[i], beta)
			mu[i] = clampMu(sigmoid(eta[i]))
		}

		newDev := deviance(d.y, mu, d.w)
		if math.IsNaN(newDev) || math.IsInf(newDev, 0) {
			return nil, fitErrorf("deviance diverged at iteration %d", iterations)
		}
		if math.Abs(newDev-dev) < tol*(math.Abs(newDev)+0.1) {
			dev = newDev
			converged = true
			break
		}
		dev = newDev
	}

	if !converged {
		return nil, fitErrorf("IRLS did not converge after %d iterations", iterations)
	}

	// Wald covariance from the final factorization.
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, fitErrorf("inverting information matrix: %v", err)
	}

	coefs := make([]Coefficient, p)
	for j := 0; j < p; j++ {
		se := math.Sqrt(cov.At(j, j))
		z := beta[j] / se
		coefs[j] = Coefficient{
			Term:   d.names[j],
			Coef:   beta[j],
			StdErr: se,
			P:      2 * distuv.UnitNormal.Survival(math.Abs(z)),
		}
	}

	return &Fit{
		Coefficients: coefs,
		Obs:          n,
		Iterations:   iterations,
		Deviance:     dev,
	}, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

func clampMu(m float64) float64 {
	if m < muFloor {
		return muFloor
	}
	if m > 1-muFloor {
		return 1 - muFloor
	}
	return m
}

// deviance is the binomial deviance with frequency weights; the y*log(y/mu)
// terms vanish at y in {0,1}.
func deviance(y, mu, w []float64) float64 {
	var dev float64
	for i := range y {
		m := clampMu(mu[i])
		if y[i] == 1 {
			dev += -2 * w[i] * math.Log(m)
		} else {
			dev += -2 * w[i] * math.Log(1-m)
		}
	}
	return dev
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
