package solve

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gitrdm/templatesched/internal/errs"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/schedule"
)

// twoTaskChainProblem mirrors the S1 seed scenario used throughout the
// constraint family packages: T1(M1, dur=4) -> T2(M1, dur=2), one
// instance, machine M1 capacity 1.
func twoTaskChainProblem() *problem.Problem {
	return &problem.Problem{
		Template: problem.Template{
			ID: "tmpl-1",
			Tasks: []problem.TemplateTask{
				{ID: "t1", Position: 0, MinOperators: 1, MaxOperators: 1, Modes: []problem.Mode{{ID: "m1a", MachineID: "M1", DurationUnits: 4}}},
				{ID: "t2", Position: 1, MinOperators: 1, MaxOperators: 1, Modes: []problem.Mode{{ID: "m2a", MachineID: "M1", DurationUnits: 2}}},
			},
			Precedences: []problem.Precedence{
				{PredecessorTaskID: "t1", SuccessorTaskID: "t2", MinDelayUnits: 0},
			},
		},
		Instances: []problem.Instance{
			{ID: "i1", TemplateID: "tmpl-1", EarliestStartUnit: 0},
		},
		Machines: []problem.Machine{{ID: "M1", CellID: "cell-1", Capacity: 1}},
		Cells:    []problem.WorkCell{{ID: "cell-1", Capacity: 1}},
	}
}

// infeasibleProblem gives two instances of the S1 chain (6 units of work
// each) the same capacity-1 machine. The horizon is sized off a single
// instance's critical path with a 20% buffer (~8 units); NoOverlap then
// forces 12 units of serialized work into those 8, which cannot fit.
func infeasibleProblem() *problem.Problem {
	p := twoTaskChainProblem()
	p.Instances = []problem.Instance{
		{ID: "i1", TemplateID: "tmpl-1", EarliestStartUnit: 0},
		{ID: "i2", TemplateID: "tmpl-1", EarliestStartUnit: 0},
	}
	return p
}

func intPtr(v int) *int { return &v }

func TestDriverRunReturnsOptimal(t *testing.T) {
	d := NewDriver(zap.NewNop(), nil, nil)
	sol, err := d.Run(context.Background(), twoTaskChainProblem(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sol.Metrics.Status != schedule.StatusOptimal {
		t.Fatalf("expected OPTIMAL, got %s", sol.Metrics.Status)
	}
	if sol.Metrics.MakespanUnits != 6 {
		t.Fatalf("expected makespan 6, got %d", sol.Metrics.MakespanUnits)
	}
}

func TestDriverRunReturnsInfeasible(t *testing.T) {
	d := NewDriver(zap.NewNop(), nil, nil)
	_, err := d.Run(context.Background(), infeasibleProblem(), nil)
	if err == nil {
		t.Fatal("expected an error for an infeasible problem")
	}
	var infeasible *errs.InfeasibleError
	if !errors.As(err, &infeasible) {
		t.Fatalf("expected *errs.InfeasibleError, got %T: %v", err, err)
	}
}

func TestDriverRunCanceledBeforeStart(t *testing.T) {
	d := NewDriver(zap.NewNop(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sol, err := d.Run(ctx, twoTaskChainProblem(), nil)
	if err == nil {
		t.Fatal("expected an error for a pre-canceled context")
	}
	if sol != nil && sol.Metrics.Status != schedule.StatusUnknown && sol.Metrics.Status != schedule.StatusTimeLimit {
		t.Fatalf("unexpected status for a canceled solve: %s", sol.Metrics.Status)
	}
}

func TestDriverRunComputesSpeedupVsBaseline(t *testing.T) {
	d := NewDriver(zap.NewNop(), nil, nil)
	baseline := 10 * time.Second
	sol, err := d.Run(context.Background(), twoTaskChainProblem(), &baseline)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sol.Metrics.SpeedupVsBaseline == nil {
		t.Fatal("expected a non-nil SpeedupVsBaseline")
	}
	if *sol.Metrics.SpeedupVsBaseline <= 0 {
		t.Fatalf("expected a positive speedup, got %v", *sol.Metrics.SpeedupVsBaseline)
	}
}

func TestNopReporterDiscardsEvents(t *testing.T) {
	var r Reporter = NopReporter{}
	r.ProgressEvent(intPtr(5), time.Second, 42)
}
