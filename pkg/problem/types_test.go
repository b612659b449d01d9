package problem

import "testing"

func TestCriticalPathUpperBoundTwoTaskChain(t *testing.T) {
	tmpl := twoTaskChainProblem().Template
	// T1 dur=4, T2 dur=2, min_delay=0 -> longest path finish = 4+2 = 6.
	if got := tmpl.CriticalPathUpperBound(); got != 6 {
		t.Fatalf("expected critical path bound 6, got %d", got)
	}
}

func TestCriticalPathUpperBoundWithMinDelay(t *testing.T) {
	tmpl := twoTaskChainProblem().Template
	tmpl.Precedences[0].MinDelayUnits = 3
	if got := tmpl.CriticalPathUpperBound(); got != 9 {
		t.Fatalf("expected critical path bound 9, got %d", got)
	}
}

func TestCriticalPathUpperBoundSingleTask(t *testing.T) {
	tmpl := Template{
		Tasks: []TemplateTask{
			{ID: "solo", Position: 0, Modes: []Mode{{ID: "m", MachineID: "M1", DurationUnits: 7}}},
		},
	}
	if got := tmpl.CriticalPathUpperBound(); got != 7 {
		t.Fatalf("expected critical path bound 7, got %d", got)
	}
}
