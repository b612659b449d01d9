package varfactory

import (
	"testing"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/problem"
)

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

func TestNewTightensStartLowerBoundByPredecessorChain(t *testing.T) {
	p := twoTaskChainProblem()
	model := minikanren.NewModel()

	f, err := New(model, p, 20)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	t1 := f.Vars("i1", "t1")
	t2 := f.Vars("i1", "t2")

	if got := ToDomainValue(0); !t1.Start.Domain().Has(got) {
		t.Fatalf("expected t1.start domain to include unit 0")
	}
	// t2's earliest feasible start is t1's shortest mode duration (4) after
	// earliest_start=0 plus min_delay=0.
	if t2.Start.Domain().Has(ToDomainValue(0)) {
		t.Fatalf("expected t2.start domain to exclude unit 0 (tightened by predecessor delay)")
	}
	if !t2.Start.Domain().Has(ToDomainValue(4)) {
		t.Fatalf("expected t2.start domain to include unit 4")
	}
}

func TestNewCreatesOneModeBooleanPerMode(t *testing.T) {
	p := twoTaskChainProblem()
	model := minikanren.NewModel()

	f, err := New(model, p, 20)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	t1 := f.Vars("i1", "t1")
	if len(t1.ModeSelected) != 1 {
		t.Fatalf("expected 1 mode boolean, got %d", len(t1.ModeSelected))
	}
	if len(t1.AssignedMachine) != 1 {
		t.Fatalf("expected 1 machine boolean, got %d", len(t1.AssignedMachine))
	}
}

func TestIndexIsDenseAndStable(t *testing.T) {
	p := twoTaskChainProblem()
	model := minikanren.NewModel()

	f, err := New(model, p, 20)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	idx1 := f.Index("i1", "t1")
	idx2 := f.Index("i1", "t2")
	if idx1 == idx2 {
		t.Fatalf("expected distinct dense indices for distinct tasks")
	}
	if f.Index("i1", "t1") != idx1 {
		t.Fatalf("expected stable index across repeated calls")
	}
}

func TestDomainValueRoundTrip(t *testing.T) {
	for unit := 0; unit < 50; unit++ {
		if got := FromDomainValue(ToDomainValue(unit)); got != unit {
			t.Fatalf("round trip failed for unit %d: got %d", unit, got)
		}
	}
}
