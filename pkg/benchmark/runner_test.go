package benchmark

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/gitrdm/templatesched/internal/parallel"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/solve"
)

// twoTaskChainProblem mirrors the S1 seed scenario used throughout the
// constraint family packages, except that T2 runs on its own machine:
// T1(M1, dur=4) -> T2(M2, dur=2).
func twoTaskChainProblem(instanceCount int) *problem.Problem {
	instances := make([]problem.Instance, instanceCount)
	for i := range instances {
		instances[i] = problem.Instance{
			ID:         instanceIDFor(i),
			TemplateID: "tmpl-1",
		}
	}
	return &problem.Problem{
		Template: problem.Template{
			ID: "tmpl-1",
			Tasks: []problem.TemplateTask{
				{ID: "t1", Position: 0, MinOperators: 1, MaxOperators: 1, Modes: []problem.Mode{{ID: "m1a", MachineID: "M1", DurationUnits: 4}}},
				{ID: "t2", Position: 1, MinOperators: 1, MaxOperators: 1, Modes: []problem.Mode{{ID: "m2a", MachineID: "M2", DurationUnits: 2}}},
			},
			Precedences: []problem.Precedence{
				{PredecessorTaskID: "t1", SuccessorTaskID: "t2", MinDelayUnits: 0},
			},
		},
		Instances: instances,
		Machines: []problem.Machine{
			{ID: "M1", CellID: "cell-1", Capacity: 1},
			{ID: "M2", CellID: "cell-1", Capacity: 1},
		},
		Cells: []problem.WorkCell{{ID: "cell-1", Capacity: len(instances) + 1}},
	}
}

func instanceIDFor(i int) string {
	return string(rune('a' + i))
}

func TestRunnerCompareReportsSpeedupAndPromotes(t *testing.T) {
	driver := solve.NewDriver(zap.NewNop(), nil, nil)
	pool := parallel.NewWorkerPool(2)
	defer pool.Shutdown()
	promotion := NewMemoryPromotionStore()
	runner := NewRunner(driver, pool, promotion, zap.NewNop())

	p := twoTaskChainProblem(2)
	comparison, err := runner.Compare(context.Background(), p)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if comparison.InstanceCount != 2 {
		t.Fatalf("expected instance count 2, got %d", comparison.InstanceCount)
	}
	if comparison.Bucket != Bucket1to2 {
		t.Fatalf("expected bucket %s, got %s", Bucket1to2, comparison.Bucket)
	}
	if comparison.Solution == nil {
		t.Fatal("expected a non-nil solution")
	}
	if !comparison.Promoted {
		t.Fatal("expected the first comparison to be promoted")
	}

	_, ok, err := promotion.Get(context.Background(), "tmpl-1", Bucket1to2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected a promoted parameter record to be retrievable")
	}
}

func TestRunnerCompareWithoutPromotionStore(t *testing.T) {
	driver := solve.NewDriver(zap.NewNop(), nil, nil)
	pool := parallel.NewWorkerPool(2)
	defer pool.Shutdown()
	runner := NewRunner(driver, pool, nil, zap.NewNop())

	comparison, err := runner.Compare(context.Background(), twoTaskChainProblem(1))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if comparison.Promoted {
		t.Fatal("expected Promoted to stay false with no PromotionStore configured")
	}
}
