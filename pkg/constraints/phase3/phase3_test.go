package phase3

import (
	"testing"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/varfactory"
)

func dueDateProblem() *problem.Problem {
	due := 10
	return &problem.Problem{
		Template: problem.Template{
			ID: "tmpl-1",
			Tasks: []problem.TemplateTask{
				{ID: "t1", Position: 0, Modes: []problem.Mode{{ID: "m1a", MachineID: "M1", DurationUnits: 4}}},
				{ID: "t2", Position: 1, Modes: []problem.Mode{{ID: "m2a", MachineID: "M1", DurationUnits: 2}}},
			},
			Precedences: []problem.Precedence{{PredecessorTaskID: "t1", SuccessorTaskID: "t2", MinDelayUnits: 0}},
		},
		Instances: []problem.Instance{{ID: "i1", TemplateID: "tmpl-1", EarliestStartUnit: 0, DueUnit: &due}},
		Machines:  []problem.Machine{{ID: "M1", CellID: "cell-1", Capacity: 1, CostPerHour: 60}},
		Cells:     []problem.WorkCell{{ID: "cell-1", Capacity: 1}},
	}
}

func buildFactory(t *testing.T, p *problem.Problem, horizon int) (*minikanren.Model, *varfactory.Factory) {
	t.Helper()
	model := minikanren.NewModel()
	f, err := varfactory.New(model, p, horizon)
	if err != nil {
		t.Fatalf("varfactory.New: %v", err)
	}
	return model, f
}

func TestApplyMakespanObjectiveAddsOneMaxConstraint(t *testing.T) {
	p := dueDateProblem()
	model, f := buildFactory(t, p, 20)
	before := model.ConstraintCount()
	obj, err := ApplyMakespanObjective(model, f, p)
	if err != nil {
		t.Fatalf("ApplyMakespanObjective: %v", err)
	}
	if obj.Shift != 1 {
		t.Fatalf("expected makespan shift of 1 (End's own varfactory shift), got %d", obj.Shift)
	}
	if got, want := model.ConstraintCount()-before, 1; got != want {
		t.Fatalf("expected %d new constraint, got %d", want, got)
	}
}

func TestApplyLatenessObjectivesNilWhenNoDueDates(t *testing.T) {
	p := dueDateProblem()
	p.Instances[0].DueUnit = nil
	model, f := buildFactory(t, p, 20)
	total, max, err := ApplyLatenessObjectives(model, f, p)
	if err != nil {
		t.Fatalf("ApplyLatenessObjectives: %v", err)
	}
	if total != nil || max != nil {
		t.Fatalf("expected nil lateness objectives when no instance declares a due date")
	}
}

func TestApplyLatenessObjectivesBuildsComponents(t *testing.T) {
	p := dueDateProblem()
	model, f := buildFactory(t, p, 20)
	total, max, err := ApplyLatenessObjectives(model, f, p)
	if err != nil {
		t.Fatalf("ApplyLatenessObjectives: %v", err)
	}
	if total == nil || max == nil {
		t.Fatalf("expected non-nil lateness objectives when a due date is declared")
	}
	if total.Shift != 1 {
		t.Fatalf("expected total lateness shift of 1 (single instance), got %d", total.Shift)
	}
}

func TestApplyCostObjectiveAccumulatesAcrossModes(t *testing.T) {
	p := dueDateProblem()
	model, f := buildFactory(t, p, 20)
	obj, err := ApplyCostObjective(model, f, p)
	if err != nil {
		t.Fatalf("ApplyCostObjective: %v", err)
	}
	if obj.Shift != 2 {
		t.Fatalf("expected cost shift equal to the number of (task,mode) terms (2), got %d", obj.Shift)
	}
}

func TestApplyScalarizationRequiresExplicitChoice(t *testing.T) {
	p := dueDateProblem()
	model, f := buildFactory(t, p, 20)
	makespan, err := ApplyMakespanObjective(model, f, p)
	if err != nil {
		t.Fatalf("ApplyMakespanObjective: %v", err)
	}
	components := Components{"makespan": makespan}
	if _, err := ApplyScalarization(model, p, components); err == nil {
		t.Fatalf("expected error when neither ObjectiveWeights nor ObjectiveLexOrder is set")
	}
}

func TestApplyScalarizationWeightedSum(t *testing.T) {
	p := dueDateProblem()
	p.Template.SolverParameters.ObjectiveWeights = map[string]float64{"makespan": 1.0}
	model, f := buildFactory(t, p, 20)
	makespan, err := ApplyMakespanObjective(model, f, p)
	if err != nil {
		t.Fatalf("ApplyMakespanObjective: %v", err)
	}
	components := Components{"makespan": makespan}
	obj, err := ApplyScalarization(model, p, components)
	if err != nil {
		t.Fatalf("ApplyScalarization: %v", err)
	}
	if obj == nil {
		t.Fatalf("expected non-nil scalarized objective variable")
	}
}

func TestApplyScalarizationLexicographic(t *testing.T) {
	p := dueDateProblem()
	p.Template.SolverParameters.ObjectiveLexOrder = []string{"total_lateness", "makespan"}
	model, f := buildFactory(t, p, 20)
	makespan, err := ApplyMakespanObjective(model, f, p)
	if err != nil {
		t.Fatalf("ApplyMakespanObjective: %v", err)
	}
	totalLateness, _, err := ApplyLatenessObjectives(model, f, p)
	if err != nil {
		t.Fatalf("ApplyLatenessObjectives: %v", err)
	}
	components := Components{"makespan": makespan, "total_lateness": totalLateness}
	obj, err := ApplyScalarization(model, p, components)
	if err != nil {
		t.Fatalf("ApplyScalarization: %v", err)
	}
	if obj == nil {
		t.Fatalf("expected non-nil scalarized objective variable")
	}
}
