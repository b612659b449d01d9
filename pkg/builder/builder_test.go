package builder

import (
	"testing"

	"go.uber.org/zap"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/varfactory"
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

func TestBuildAppliesPhase1FamiliesAndDefaultsToMakespan(t *testing.T) {
	p := twoTaskChainProblem()
	result, err := Build(p, zap.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.Objective == nil {
		t.Fatalf("expected a non-nil default objective")
	}
	if result.Direction != Minimize {
		t.Fatalf("expected default objective direction Minimize")
	}
	if result.Model.ConstraintCount() == 0 {
		t.Fatalf("expected phase1 families to add constraints")
	}
}

func TestBuildRejectsInvalidProblem(t *testing.T) {
	p := twoTaskChainProblem()
	p.Template.Tasks[0].Modes = nil
	if _, err := Build(p, zap.NewNop()); err == nil {
		t.Fatalf("expected Build to surface problem.Validate's error")
	}
}

func TestBuildAppliesPhase2FamiliesWhenEnabled(t *testing.T) {
	p := twoTaskChainProblem()
	p.Template.SolverParameters.EnablePhase2 = true
	p.Operators = []problem.Operator{{ID: "op1"}}
	result, err := Build(p, zap.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.Model.ConstraintCount() == 0 {
		t.Fatalf("expected constraints from phase1 and phase2 families")
	}
}

func TestBuildPhase3RequiresExplicitScalarizationChoice(t *testing.T) {
	p := twoTaskChainProblem()
	p.Template.SolverParameters.EnablePhase3 = true
	if _, err := Build(p, zap.NewNop()); err == nil {
		t.Fatalf("expected an error when EnablePhase3 is set without ObjectiveWeights or ObjectiveLexOrder")
	}
}

func TestBuildPhase3WeightedSumObjective(t *testing.T) {
	due := 20
	p := twoTaskChainProblem()
	p.Instances[0].DueUnit = &due
	p.Machines[0].CostPerHour = 60
	p.Template.SolverParameters.EnablePhase3 = true
	p.Template.SolverParameters.ObjectiveWeights = map[string]float64{
		"makespan":       0.5,
		"total_lateness": 0.3,
		"total_cost":     0.2,
	}
	result, err := Build(p, zap.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.Objective == nil {
		t.Fatalf("expected a scalarized objective variable")
	}
}

func TestSymmetryBreakingAddsOneConstraintPerIdenticalPair(t *testing.T) {
	p := twoTaskChainProblem()
	p.Instances = append(p.Instances, problem.Instance{ID: "i2", TemplateID: "tmpl-1", EarliestStartUnit: 0})
	model := minikanren.NewModel()
	f, err := varfactory.New(model, p, 20)
	if err != nil {
		t.Fatalf("varfactory.New: %v", err)
	}
	before := model.ConstraintCount()
	if err := applySymmetryBreaking(model, f, p, zap.NewNop()); err != nil {
		t.Fatalf("applySymmetryBreaking: %v", err)
	}
	if got, want := model.ConstraintCount()-before, 1; got != want {
		t.Fatalf("expected %d symmetry-breaking constraint for two identical instances, got %d", want, got)
	}
}

func TestSymmetryBreakingSkipsDistinctInstances(t *testing.T) {
	due := 5
	p := twoTaskChainProblem()
	p.Instances = append(p.Instances, problem.Instance{ID: "i2", TemplateID: "tmpl-1", EarliestStartUnit: 0, DueUnit: &due})
	model := minikanren.NewModel()
	f, err := varfactory.New(model, p, 20)
	if err != nil {
		t.Fatalf("varfactory.New: %v", err)
	}
	before := model.ConstraintCount()
	if err := applySymmetryBreaking(model, f, p, zap.NewNop()); err != nil {
		t.Fatalf("applySymmetryBreaking: %v", err)
	}
	if got := model.ConstraintCount() - before; got != 0 {
		t.Fatalf("expected no symmetry-breaking constraints for instances with different due dates, got %d", got)
	}
}

func TestGroupKeyForDistinguishesDueDates(t *testing.T) {
	due := 10
	withDue := groupKeyFor(problem.Instance{EarliestStartUnit: 0, DueUnit: &due})
	withoutDue := groupKeyFor(problem.Instance{EarliestStartUnit: 0})
	if withDue == withoutDue {
		t.Fatalf("expected distinct group keys for instances with and without a due date")
	}
}
