package phase2

import (
	"testing"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/varfactory"
)

func singleTaskProblem() *problem.Problem {
	return &problem.Problem{
		Template: problem.Template{
			ID: "tmpl-solo",
			Tasks: []problem.TemplateTask{
				{
					ID: "t1", Position: 0, MinOperators: 1, MaxOperators: 2,
					Modes: []problem.Mode{{ID: "m1a", MachineID: "M1", DurationUnits: 4}},
					SkillRequirements: []problem.SkillRequirement{
						{SkillID: "weld", RequiredLevel: problem.Competent, Count: 1},
					},
				},
			},
		},
		Instances: []problem.Instance{{ID: "i1", TemplateID: "tmpl-solo", EarliestStartUnit: 0}},
		Machines:  []problem.Machine{{ID: "M1", CellID: "cell-1", Capacity: 1}},
		Cells:     []problem.WorkCell{{ID: "cell-1", Capacity: 1}},
		Operators: []problem.Operator{
			{ID: "op1", Skills: map[string]problem.ProficiencyLevel{"weld": problem.Expert}},
			{ID: "op2", Skills: map[string]problem.ProficiencyLevel{"paint": problem.Expert}},
		},
	}
}

func TestBuildOperatorAssignmentsSkipsUnattendedTasks(t *testing.T) {
	p := singleTaskProblem()
	p.Template.Tasks = append(p.Template.Tasks, problem.TemplateTask{
		ID: "t2", Position: 1, IsUnattended: true,
		Modes: []problem.Mode{{ID: "m2a", MachineID: "M1", DurationUnits: 1}},
	})
	model := minikanren.NewModel()
	assignments := BuildOperatorAssignments(model, p)

	if _, ok := assignments.Get("i1", "t1", "op1"); !ok {
		t.Fatalf("expected assignment variable for attended task t1")
	}
	if _, ok := assignments.Get("i1", "t2", "op1"); ok {
		t.Fatalf("expected no assignment variable for unattended task t2")
	}
}

func TestApplyOperatorCountsAddsOneConstraintPerTask(t *testing.T) {
	p := singleTaskProblem()
	model := minikanren.NewModel()
	assignments := BuildOperatorAssignments(model, p)
	before := model.ConstraintCount()
	if err := ApplyOperatorCounts(model, p, assignments); err != nil {
		t.Fatalf("ApplyOperatorCounts: %v", err)
	}
	if got, want := model.ConstraintCount()-before, 1; got != want {
		t.Fatalf("expected %d new constraint, got %d", want, got)
	}
}

func TestApplySkillRequirementsRejectsNoQualifiedOperator(t *testing.T) {
	p := singleTaskProblem()
	p.Template.Tasks[0].SkillRequirements[0].SkillID = "unobtainium"
	model := minikanren.NewModel()
	assignments := BuildOperatorAssignments(model, p)
	if err := ApplySkillRequirements(model, p, assignments); err == nil {
		t.Fatalf("expected error when no operator is qualified")
	}
}

func TestApplySkillRequirementsAddsConstraintWhenQualified(t *testing.T) {
	p := singleTaskProblem()
	model := minikanren.NewModel()
	assignments := BuildOperatorAssignments(model, p)
	before := model.ConstraintCount()
	if err := ApplySkillRequirements(model, p, assignments); err != nil {
		t.Fatalf("ApplySkillRequirements: %v", err)
	}
	if got, want := model.ConstraintCount()-before, 1; got != want {
		t.Fatalf("expected %d new constraint, got %d", want, got)
	}
}

func TestApplyOperatorShiftsSkipsUnrestrictedOperators(t *testing.T) {
	p := singleTaskProblem()
	model := minikanren.NewModel()
	f, err := varfactory.New(model, p, 20)
	if err != nil {
		t.Fatalf("varfactory.New: %v", err)
	}
	assignments := BuildOperatorAssignments(model, p)
	before := model.ConstraintCount()
	if err := ApplyOperatorShifts(model, f, p, assignments); err != nil {
		t.Fatalf("ApplyOperatorShifts: %v", err)
	}
	if got := model.ConstraintCount() - before; got != 0 {
		t.Fatalf("expected no constraints for operators with no declared shifts, got %d", got)
	}
}

func TestApplyOperatorShiftsAddsConstraintsWhenDeclared(t *testing.T) {
	p := singleTaskProblem()
	p.Operators[0].Shifts = []problem.Interval{{StartUnit: 0, EndUnit: 32}}
	model := minikanren.NewModel()
	f, err := varfactory.New(model, p, 40)
	if err != nil {
		t.Fatalf("varfactory.New: %v", err)
	}
	assignments := BuildOperatorAssignments(model, p)
	before := model.ConstraintCount()
	if err := ApplyOperatorShifts(model, f, p, assignments); err != nil {
		t.Fatalf("ApplyOperatorShifts: %v", err)
	}
	if got := model.ConstraintCount() - before; got == 0 {
		t.Fatalf("expected constraints added for an operator with declared shifts")
	}
}

func twoMachineSetupProblem() *problem.Problem {
	return &problem.Problem{
		Template: problem.Template{
			ID: "tmpl-setup",
			Tasks: []problem.TemplateTask{
				{ID: "a", Position: 0, MinOperators: 0, MaxOperators: 0, Modes: []problem.Mode{{ID: "ma", MachineID: "M1", DurationUnits: 2}}},
				{ID: "b", Position: 1, MinOperators: 0, MaxOperators: 0, Modes: []problem.Mode{{ID: "mb", MachineID: "M1", DurationUnits: 2}}},
			},
		},
		Instances: []problem.Instance{
			{ID: "i1", TemplateID: "tmpl-setup", EarliestStartUnit: 0},
			{ID: "i2", TemplateID: "tmpl-setup", EarliestStartUnit: 0},
		},
		Machines: []problem.Machine{{ID: "M1", CellID: "cell-1", Capacity: 1}},
		Cells:    []problem.WorkCell{{ID: "cell-1", Capacity: 1}},
		SetupTimes: []problem.SetupTime{
			{FromTask: "a", ToTask: "b", MachineID: "M1", SetupTimeUnits: 3},
		},
	}
}

func TestApplySequenceDependentSetupNoOpWithoutTable(t *testing.T) {
	p := twoTaskNoSetupProblem()
	model := minikanren.NewModel()
	f, err := varfactory.New(model, p, 20)
	if err != nil {
		t.Fatalf("varfactory.New: %v", err)
	}
	before := model.ConstraintCount()
	if err := ApplySequenceDependentSetup(model, f, p); err != nil {
		t.Fatalf("ApplySequenceDependentSetup: %v", err)
	}
	if got := model.ConstraintCount() - before; got != 0 {
		t.Fatalf("expected no constraints added without a setup-time table, got %d", got)
	}
}

func twoTaskNoSetupProblem() *problem.Problem {
	p := twoMachineSetupProblem()
	p.SetupTimes = nil
	return p
}

func TestApplySequenceDependentSetupRanksDeclaredPairs(t *testing.T) {
	p := twoMachineSetupProblem()
	model := minikanren.NewModel()
	f, err := varfactory.New(model, p, 20)
	if err != nil {
		t.Fatalf("varfactory.New: %v", err)
	}
	if err := ApplySequenceDependentSetup(model, f, p); err != nil {
		t.Fatalf("ApplySequenceDependentSetup: %v", err)
	}
	if model.ConstraintCount() == 0 {
		t.Fatalf("expected ranking constraints for the declared a->b setup-time pair across instances")
	}
}

func TestCalendarUnavailableIntervalsMarksNonWorkingDay(t *testing.T) {
	cal := &problem.Calendar{ID: "cal-1", WorkingDaysMask: 0b1111110, DefaultStartUnit: 32, DefaultEndUnit: 64}
	windows := calendarUnavailableIntervals(cal, unitsPerDay*2)
	if len(windows) == 0 {
		t.Fatalf("expected at least one unavailable window")
	}
	// Day 0 is not a working day (bit 0 clear) -> the whole day should be
	// one unavailable window.
	found := false
	for _, w := range windows {
		if w.StartUnit == 0 && w.EndUnit == unitsPerDay {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected day 0 to be fully unavailable, got %+v", windows)
	}
}
