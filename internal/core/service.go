package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/epistat/t2d-analyzer/internal/config"
	"github.com/epistat/t2d-analyzer/internal/glm"
	"github.com/epistat/t2d-analyzer/internal/loader"
	"github.com/epistat/t2d-analyzer/internal/logging"
	"github.com/epistat/t2d-analyzer/internal/metrics"
	"github.com/epistat/t2d-analyzer/internal/model"
	"github.com/epistat/t2d-analyzer/internal/recode"
	"github.com/epistat/t2d-analyzer/internal/render"
	"github.com/epistat/t2d-analyzer/internal/survey"
	"github.com/epistat/t2d-analyzer/internal/table"
)

// Service runs the analysis pipeline: load the uploaded extract, recode the
// outcome columns, then aggregate or regress. Every operation is a pure
// function of the request; the service holds no cross-request state beyond
// the fit semaphore.
type Service struct {
	cfg     *config.Config
	solver  glm.Solver // nil means the GLM capability is absent
	limiter *FitLimiter
	metrics *metrics.Metrics
}

// NewService creates a service. solver may be nil, in which case regression
// requests fail with ErrSolverUnavailable; metrics may be nil in tests.
func NewService(cfg *config.Config, solver glm.Solver, m *metrics.Metrics) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	return &Service{
		cfg:     cfg,
		solver:  solver,
		limiter: NewFitLimiter(cfg.Analysis.MaxConcurrentFits, cfg.Analysis.FitWaitTime),
		metrics: m,
	}, nil
}

// SolverAvailable reports whether the GLM capability is wired in.
// Logged at startup as the explicit capability check.
func (s *Service) SolverAvailable() bool { return s.solver != nil }

// FitLimiterActive returns the number of in-flight fits, for shutdown logging.
func (s *Service) FitLimiterActive() int { return s.limiter.ActiveCount() }

// WaitForFits blocks until in-flight fits drain or ctx expires.
func (s *Service) WaitForFits(ctx context.Context) error { return s.limiter.WaitForDrain(ctx) }

// loadAndRecode is the shared front half of every operation.
func (s *Service) loadAndRecode(ctx context.Context, data []byte, filename string) (*table.Table, error) {
	t, err := loader.Load(data, filename)
	if err != nil {
		return nil, err
	}
	s.metrics.AddRowsLoaded(t.Rows())
	logging.FromContext(ctx).Debug("table loaded",
		"file", filename, "rows", t.Rows(), "columns", len(t.Names()))
	return recode.Recode(t), nil
}

// RecodeTable loads, recodes, and echoes the derived columns plus the
// resolved weight column as uniform records, capped at the configured row
// limit to bound payload size.
func (s *Service) RecodeTable(ctx context.Context, data []byte, filename, weightCol string) ([]map[string]table.Value, error) {
	op := "recode"
	logger := logging.WithFields(ctx, "analysis_id", uuid.NewString(), "operation", op)

	t, err := s.loadAndRecode(ctx, data, filename)
	s.metrics.ObserveAnalysis(op, err)
	if err != nil {
		return nil, err
	}

	weightCol = recode.EnsureWeight(t, s.resolveWeight(weightCol))
	keep := append(recode.DerivedColumns(), weightCol)
	records := t.Records(keep, s.cfg.Analysis.RecodeRowLimit)

	logger.Info("recode complete", "rows", t.Rows(), "returned", len(records))
	return records, nil
}

// Prevalence loads, recodes, and computes weighted prevalence grouped by the
// optional column.
func (s *Service) Prevalence(ctx context.Context, data []byte, filename, by, weightCol string) ([]survey.GroupResult, error) {
	op := "prevalence"
	logger := logging.WithFields(ctx, "analysis_id", uuid.NewString(), "operation", op)

	t, err := s.loadAndRecode(ctx, data, filename)
	s.metrics.ObserveAnalysis(op, err)
	if err != nil {
		return nil, err
	}

	results := survey.Prevalence(t, by, s.resolveWeight(weightCol))
	logger.Info("prevalence complete", "groups", len(results), "by", by)
	return results, nil
}

// PrevalencePNG computes grouped prevalence and renders it as a bar chart.
func (s *Service) PrevalencePNG(ctx context.Context, w io.Writer, data []byte, filename, by, weightCol string) error {
	results, err := s.Prevalence(ctx, data, filename, by, weightCol)
	if err != nil {
		return err
	}

	series := make([]render.LabeledValue, len(results))
	for i, r := range results {
		series[i] = render.LabeledValue{Label: r.Group, Value: r.Prevalence}
	}
	return render.BarPNG(w, PrevalenceTitle(by), series)
}

// PrevalenceTitle is the chart title for a grouping column.
func PrevalenceTitle(by string) string {
	if by == "" {
		return "T2D prevalence (overall)"
	}
	return "T2D prevalence by " + by
}

// Logit loads, recodes, and fits the weighted logistic regression. Fits run
// behind the semaphore so a burst of slow regressions cannot stall the rest
// of the service.
func (s *Service) Logit(ctx context.Context, data []byte, filename string, covariates []string, weightCol string) (*model.Result, error) {
	op := "logit"
	logger := logging.WithFields(ctx, "analysis_id", uuid.NewString(), "operation", op)

	if s.solver == nil {
		s.metrics.ObserveAnalysis(op, ErrSolverUnavailable)
		return nil, ErrSolverUnavailable
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		s.metrics.ObserveAnalysis(op, err)
		return nil, err
	}
	defer s.limiter.Release()

	t, err := s.loadAndRecode(ctx, data, filename)
	if err != nil {
		s.metrics.ObserveAnalysis(op, err)
		return nil, err
	}

	start := time.Now()
	result, err := model.Logit(s.solver, t, covariates, s.resolveWeight(weightCol))
	s.metrics.ObserveFit(time.Since(start))
	s.metrics.ObserveAnalysis(op, err)
	if err != nil {
		logger.Warn("model fit failed", "error", err)
		return nil, err
	}

	logger.Info("logit complete",
		"formula", result.Formula, "terms", len(result.Terms), "n_obs", result.Obs)
	return result, nil
}

// resolveWeight applies the configured default weight column when the
// request does not name one.
func (s *Service) resolveWeight(weightCol string) string {
	if weightCol == "" {
		return s.cfg.Analysis.WeightColumn
	}
	return weightCol
}
