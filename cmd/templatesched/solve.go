package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gitrdm/templatesched/internal/errs"
	"github.com/gitrdm/templatesched/internal/metrics"
	"github.com/gitrdm/templatesched/pkg/schedule"
	"github.com/gitrdm/templatesched/pkg/solve"
	"github.com/gitrdm/templatesched/pkg/store/postgres"

	"github.com/prometheus/client_golang/prometheus"
)

// exitError carries the spec §6 exit code alongside the underlying
// error so Execute can translate it without re-deriving the status.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCodeFor(err error) (int, bool) {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code, true
	}
	return 0, false
}

// newSolveCmd builds the `solve` subcommand of spec §6's CLI surface:
//
//	solve --pattern <id> [--instances <ids>] [--max-time <sec>] [--workers <n>] [--out <path>]
func newSolveCmd() *cobra.Command {
	var (
		pattern   string
		instances []string
		maxTime   float64
		workers   int
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve one pattern and emit its schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd.Context(), solveArgs{
				pattern:   pattern,
				instances: instances,
				maxTime:   maxTime,
				workers:   workers,
				outPath:   outPath,
			})
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "template (pattern) id to solve (required)")
	cmd.Flags().StringSliceVar(&instances, "instances", nil, "restrict the solve to these instance ids (default: all flagged instances)")
	cmd.Flags().Float64Var(&maxTime, "max-time", 0, "solver time limit in seconds (0: use the template's own solver_parameters)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel search workers (0: use the template's own solver_parameters)")
	cmd.Flags().StringVar(&outPath, "out", "", "write the solution JSON here (default: stdout)")
	cmd.MarkFlagRequired("pattern")

	return cmd
}

type solveArgs struct {
	pattern   string
	instances []string
	maxTime   float64
	workers   int
	outPath   string
}

func runSolve(ctx context.Context, args solveArgs) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	defer logger.Sync()

	db, err := postgres.Open(postgres.Config{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetInt("db.port"),
		Name:     viper.GetString("db.name"),
		User:     viper.GetString("db.user"),
		Password: viper.GetString("db.password"),
		SSLMode:  viper.GetString("db.sslmode"),
	}, logger)
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("connect to store: %w", err)}
	}
	defer db.Close()

	p, err := db.LoadPattern(ctx, args.pattern, args.instances)
	if err != nil {
		return &exitError{code: 4, err: fmt.Errorf("load pattern %s: %w", args.pattern, err)}
	}

	if args.maxTime > 0 {
		p.Template.SolverParameters.MaxTimeSeconds = args.maxTime
		p.SolverParameters.MaxTimeSeconds = args.maxTime
	}
	if args.workers > 0 {
		p.Template.SolverParameters.NumSearchWorkers = args.workers
		p.SolverParameters.NumSearchWorkers = args.workers
	}

	registry := metrics.NewRegistry(prometheus.NewRegistry())
	reporter := &solve.MetricsReporter{Registry: registry}
	driver := solve.NewDriver(logger, registry, reporter)

	sol, solveErr := driver.Run(ctx, p, nil)

	var scheduleID string
	if sol != nil {
		scheduleID, err = db.StoreSchedule(ctx, p, sol)
		if err != nil {
			logger.Warn("failed to persist solved schedule", zap.Error(err))
		}
	}

	if solveErr != nil {
		code := exitCodeForSolveError(solveErr)
		if sol == nil {
			return &exitError{code: code, err: solveErr}
		}
		// A partial (feasible but non-optimal) solution is still written
		// out before the exit code for the solve error is returned.
		if writeErr := writeSolution(sol, scheduleID, args.outPath); writeErr != nil {
			return &exitError{code: 1, err: writeErr}
		}
		return &exitError{code: code, err: solveErr}
	}

	if err := writeSolution(sol, scheduleID, args.outPath); err != nil {
		return &exitError{code: 1, err: err}
	}
	return nil
}

// exitCodeForSolveError maps the §7 error taxonomy to the §6 exit codes.
func exitCodeForSolveError(err error) int {
	var infeasible *errs.InfeasibleError
	var malformed *errs.MalformedProblemError
	var timeLimit *errs.TimeLimitError
	var canceled *errs.CanceledError

	switch {
	case errors.As(err, &infeasible):
		return 2
	case errors.As(err, &malformed):
		return 4
	case errors.As(err, &timeLimit):
		if timeLimit.HasFeasible {
			return 0
		}
		return 3
	case errors.As(err, &canceled):
		if canceled.HasFeasible {
			return 0
		}
		return 3
	default:
		return 1
	}
}

func writeSolution(sol *schedule.Solution, scheduleID, outPath string) error {
	wire := sol.ToWire(scheduleID)
	body, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal solution: %w", err)
	}

	if outPath == "" {
		_, err := os.Stdout.Write(append(body, '\n'))
		return err
	}
	return os.WriteFile(outPath, append(body, '\n'), 0o644)
}

var _ = time.Second // retained: --max-time is expressed in seconds on the wire (spec §6)
var _ = strings.TrimSpace
