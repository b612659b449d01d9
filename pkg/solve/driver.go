// Package solve implements the Solve Driver of spec §4.6: it configures
// the CP engine's branch-and-bound search from a problem's
// SolverParameters, runs the solve under cooperative cancellation, and
// translates the engine's outcome into the fixed status vocabulary of
// §4.6/§7 before handing the bound variable values to pkg/schedule for
// extraction.
package solve

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/internal/errs"
	"github.com/gitrdm/templatesched/internal/metrics"
	"github.com/gitrdm/templatesched/pkg/builder"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/schedule"
)

// Reporter is the single progress-submission capability of spec §9,
// replacing the source's ad hoc callback registration: a solve reports
// its best objective so far, elapsed time, and nodes explored, and the
// caller decides what to do with it (log, publish a metric, or nothing).
type Reporter interface {
	ProgressEvent(best *int, elapsed time.Duration, nodesExplored int64)
}

// NopReporter discards every progress event. NewDriver uses one when
// given a nil reporter.
type NopReporter struct{}

func (NopReporter) ProgressEvent(*int, time.Duration, int64) {}

// MetricsReporter publishes progress events to a metrics.Registry,
// satisfying Reporter without coupling the driver's search loop to
// prometheus directly.
type MetricsReporter struct {
	Registry *metrics.Registry
}

func (r *MetricsReporter) ProgressEvent(best *int, elapsed time.Duration, nodesExplored int64) {
	if r == nil || r.Registry == nil {
		return
	}
	if best != nil {
		r.Registry.ObjectiveValue.Set(float64(*best))
	}
	r.Registry.NodesExplored.Observe(float64(nodesExplored))
}

// Driver runs one solve end to end: build (if not already built), search,
// translate status, and extract the solution.
type Driver struct {
	logger   *zap.Logger
	metrics  *metrics.Registry
	reporter Reporter
}

// NewDriver constructs a Driver. A nil logger becomes zap.NewNop(); a nil
// metricsRegistry disables metrics recording; a nil reporter becomes
// NopReporter.
func NewDriver(logger *zap.Logger, metricsRegistry *metrics.Registry, reporter Reporter) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Driver{logger: logger, metrics: metricsRegistry, reporter: reporter}
}

// Run builds p into a model via builder.Build, then solves it. baseline,
// when non-nil, is a previously observed solve time (e.g. a per-instance
// solve of an equivalent problem) used to compute
// Metrics.SpeedupVsBaseline.
//
// Errors returned are the §7 taxonomy: *errs.MalformedProblemError and
// *errs.InternalError from building propagate unchanged; a completed
// search returns one of *errs.InfeasibleError, *errs.TimeLimitError, or
// *errs.CanceledError alongside whatever partial solution (nil or
// feasible) accompanies that status. A nil error means OPTIMAL or
// FEASIBLE.
func (d *Driver) Run(ctx context.Context, p *problem.Problem, baseline *time.Duration) (*schedule.Solution, error) {
	result, err := builder.Build(p, d.logger)
	if err != nil {
		return nil, err
	}
	return d.RunBuilt(ctx, p, result, baseline)
}

// RunBuilt is Run for a problem already built by the caller (e.g.
// pkg/benchmark re-solving the same model under different parameters
// without rebuilding it each time).
func (d *Driver) RunBuilt(ctx context.Context, p *problem.Problem, result *builder.Result, baseline *time.Duration) (*schedule.Solution, error) {
	params := p.Template.SolverParameters
	solver := minikanren.NewSolverWithConfig(result.Model, configFromParams(params))
	monitor := minikanren.NewSolverMonitor()
	solver.SetMonitor(monitor)

	opts := buildOptions(params)
	minimize := result.Direction == builder.Minimize

	d.logger.Info("solve started",
		zap.String("template_id", p.Template.ID),
		zap.Int("instance_count", len(p.Instances)),
		zap.Int("variables", result.Model.VariableCount()),
		zap.Int("constraints", result.Model.ConstraintCount()),
	)

	start := time.Now()
	values, objValue, searchErr := solver.SolveOptimalWithOptions(ctx, result.Objective, minimize, opts...)
	elapsed := time.Since(start)

	stats := monitor.GetStats()
	d.reporter.ProgressEvent(progressValue(values, objValue), elapsed, stats.NodesExplored)

	status, reportErr := translateOutcome(values, searchErr, result)
	d.logger.Info("solve finished",
		zap.String("status", string(status)),
		zap.Duration("elapsed", elapsed),
		zap.Int64("nodes_explored", stats.NodesExplored),
		zap.Int64("backtracks", stats.Backtracks),
	)

	if values == nil {
		d.recordMetrics(status, elapsed, 0, stats)
		if reportErr == nil {
			// Defensive: translateOutcome always returns a non-nil error
			// when values is nil (infeasible, unknown, or an internal
			// failure all qualify).
			reportErr = &errs.InternalError{Reason: "solve produced no values and no error"}
		}
		sol := &schedule.Solution{Metrics: schedule.Metrics{
			Status:           status,
			SolveTimeSeconds: elapsed.Seconds(),
			InstanceCount:    len(p.Instances),
		}}
		if status == schedule.StatusInfeasible {
			return nil, reportErr
		}
		return sol, reportErr
	}

	sol, err := schedule.Extract(p, result, values)
	if err != nil {
		return nil, err
	}
	sol.Metrics.Status = status
	sol.Metrics.SolveTimeSeconds = elapsed.Seconds()
	if baseline != nil && baseline.Seconds() > 0 && elapsed.Seconds() > 0 {
		speedup := baseline.Seconds() / elapsed.Seconds()
		sol.Metrics.SpeedupVsBaseline = &speedup
	}
	d.recordMetrics(status, elapsed, sol.Metrics.ObjectiveValue, stats)
	return sol, reportErr
}

func (d *Driver) recordMetrics(status schedule.Status, elapsed time.Duration, objective int, stats *minikanren.SolverStats) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordSolve(string(status), elapsed.Seconds(), objective, stats.NodesExplored, stats.Backtracks)
}

func progressValue(values []int, objValue int) *int {
	if values == nil {
		return nil
	}
	v := objValue
	return &v
}

// configFromParams maps SolverParameters.SearchBranching onto
// minikanren.SolverConfig per heuristics.go's own documented convention:
// AUTOMATIC keeps the domain/degree default, FIXED_SEARCH selects
// lexicographic variable order and ascending values for a fully
// deterministic, reproducible branch order.
func configFromParams(params problem.SolverParameters) *minikanren.SolverConfig {
	cfg := minikanren.DefaultSolverConfig()
	if params.SearchBranching == "FIXED_SEARCH" {
		cfg.VariableHeuristic = minikanren.HeuristicLex
		cfg.ValueHeuristic = minikanren.ValueOrderAsc
	}
	return cfg
}

// buildOptions translates the remaining recognized solver parameters
// (§6) into OptimizeOptions. LinearizationLevel has no equivalent in this
// native branch-and-bound engine (it is a CP-SAT-specific knob for
// deciding which constraints become linear relaxations); it is accepted
// on the wire for contract compatibility and otherwise ignored, which is
// why it never appears below.
func buildOptions(params problem.SolverParameters) []minikanren.OptimizeOption {
	var opts []minikanren.OptimizeOption
	if params.MaxTimeSeconds > 0 {
		opts = append(opts, minikanren.WithTimeLimit(time.Duration(params.MaxTimeSeconds*float64(time.Second))))
	}
	if params.NumSearchWorkers > 1 {
		opts = append(opts, minikanren.WithParallelWorkers(params.NumSearchWorkers))
	}
	return opts
}

// translateOutcome implements §4.6/§7's status and error mapping:
//
//	values present, no error            -> OPTIMAL, nil
//	values present, search limit hit    -> FEASIBLE, *errs.TimeLimitError{HasFeasible:true}
//	values present, ctx canceled        -> TIME_LIMIT, *errs.CanceledError{HasFeasible:true}
//	values present, ctx deadline        -> TIME_LIMIT, *errs.TimeLimitError{HasFeasible:true}
//	values absent, no error             -> INFEASIBLE, *errs.InfeasibleError
//	values absent, ctx canceled         -> UNKNOWN, *errs.CanceledError{HasFeasible:false}
//	values absent, ctx deadline         -> UNKNOWN, *errs.TimeLimitError{HasFeasible:false}
//	values absent, any other error      -> UNKNOWN, *errs.InternalError
func translateOutcome(values []int, searchErr error, result *builder.Result) (schedule.Status, error) {
	canceled := errors.Is(searchErr, context.Canceled)
	deadline := errors.Is(searchErr, context.DeadlineExceeded)
	limitReached := errors.Is(searchErr, minikanren.ErrSearchLimitReached)

	if values != nil {
		switch {
		case canceled:
			return schedule.StatusTimeLimit, &errs.CanceledError{HasFeasible: true}
		case deadline:
			return schedule.StatusTimeLimit, &errs.TimeLimitError{HasFeasible: true}
		case limitReached:
			return schedule.StatusFeasible, &errs.TimeLimitError{HasFeasible: true}
		default:
			return schedule.StatusOptimal, nil
		}
	}

	switch {
	case canceled:
		return schedule.StatusUnknown, &errs.CanceledError{HasFeasible: false}
	case deadline:
		return schedule.StatusUnknown, &errs.TimeLimitError{HasFeasible: false}
	case searchErr == nil:
		return schedule.StatusInfeasible, &errs.InfeasibleError{Hints: result.InfeasibleHints()}
	default:
		return schedule.StatusUnknown, errs.NewInternalError("solve search failed", searchErr)
	}
}
