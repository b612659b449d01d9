package schedule

import (
	"context"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/builder"
	"github.com/gitrdm/templatesched/pkg/problem"
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

func solveFixture(t *testing.T, p *problem.Problem) (*builder.Result, []int) {
	t.Helper()
	result, err := builder.Build(p, zap.NewNop())
	if err != nil {
		t.Fatalf("builder.Build: %v", err)
	}
	solver := minikanren.NewSolver(result.Model)
	values, _, err := solver.SolveOptimal(context.Background(), result.Objective, true)
	if err != nil {
		t.Fatalf("SolveOptimal: %v", err)
	}
	if values == nil {
		t.Fatal("expected a feasible solution")
	}
	return result, values
}

func TestExtractS1SingleChain(t *testing.T) {
	p := twoTaskChainProblem()
	result, values := solveFixture(t, p)

	sol, err := Extract(p, result, values)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(sol.Tasks) != 2 {
		t.Fatalf("expected 2 scheduled tasks, got %d", len(sol.Tasks))
	}

	byTask := make(map[string]ScheduledTask, len(sol.Tasks))
	for _, st := range sol.Tasks {
		byTask[st.TemplateTaskID] = st
	}

	t1, ok := byTask["t1"]
	if !ok {
		t.Fatal("missing t1 in extracted solution")
	}
	t2, ok := byTask["t2"]
	if !ok {
		t.Fatal("missing t2 in extracted solution")
	}

	if t1.StartUnit != 0 || t1.EndUnit != 4 {
		t.Fatalf("expected t1 to run 0-4, got %d-%d", t1.StartUnit, t1.EndUnit)
	}
	if t2.StartUnit != 4 || t2.EndUnit != 6 {
		t.Fatalf("expected t2 to run 4-6, got %d-%d", t2.StartUnit, t2.EndUnit)
	}
	if t1.AssignedMachineID != "M1" || t2.AssignedMachineID != "M1" {
		t.Fatalf("expected both tasks assigned to M1, got %s and %s", t1.AssignedMachineID, t2.AssignedMachineID)
	}
	if t1.ModeID != "m1a" || t2.ModeID != "m2a" {
		t.Fatalf("expected mode ids m1a/m2a, got %s/%s", t1.ModeID, t2.ModeID)
	}

	if sol.Metrics.MakespanUnits != 6 {
		t.Fatalf("expected makespan 6, got %d", sol.Metrics.MakespanUnits)
	}
	if sol.Metrics.InstanceCount != 1 {
		t.Fatalf("expected instance count 1, got %d", sol.Metrics.InstanceCount)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	p := twoTaskChainProblem()
	result, values := solveFixture(t, p)

	first, err := Extract(p, result, values)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	second, err := Extract(p, result, values)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(first.Tasks) != len(second.Tasks) {
		t.Fatalf("task count differs across calls: %d vs %d", len(first.Tasks), len(second.Tasks))
	}
	for i := range first.Tasks {
		if !reflect.DeepEqual(first.Tasks[i], second.Tasks[i]) {
			t.Fatalf("task %d differs across calls: %+v vs %+v", i, first.Tasks[i], second.Tasks[i])
		}
	}
}

func TestExtractComputesLatenessAgainstDueUnit(t *testing.T) {
	p := twoTaskChainProblem()
	due := 3
	p.Instances[0].DueUnit = &due
	result, values := solveFixture(t, p)

	sol, err := Extract(p, result, values)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if sol.Metrics.MaxLatenessUnits != 3 {
		t.Fatalf("expected max lateness 3 (completion 6 - due 3), got %d", sol.Metrics.MaxLatenessUnits)
	}
	if sol.Metrics.TotalLatenessUnits != 3 {
		t.Fatalf("expected total lateness 3, got %d", sol.Metrics.TotalLatenessUnits)
	}
}

func TestExtractNoLatenessWhenNoDueUnit(t *testing.T) {
	p := twoTaskChainProblem()
	result, values := solveFixture(t, p)

	sol, err := Extract(p, result, values)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if sol.Metrics.TotalLatenessUnits != 0 || sol.Metrics.MaxLatenessUnits != 0 {
		t.Fatalf("expected zero lateness without a due unit, got total=%d max=%d",
			sol.Metrics.TotalLatenessUnits, sol.Metrics.MaxLatenessUnits)
	}
}
