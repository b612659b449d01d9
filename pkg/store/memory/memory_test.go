package memory

import (
	"context"
	"testing"

	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/schedule"
	"github.com/gitrdm/templatesched/pkg/store"
)

func seededProblem() *problem.Problem {
	return &problem.Problem{
		Template: problem.Template{ID: "tpl-1", Name: "Widget"},
		Instances: []problem.Instance{
			{ID: "inst-1", TemplateID: "tpl-1"},
			{ID: "inst-2", TemplateID: "tpl-1"},
		},
	}
}

func TestLoadPatternReturnsSeededProblem(t *testing.T) {
	s := New()
	s.Seed(seededProblem())

	p, err := s.LoadPattern(context.Background(), "tpl-1", nil)
	if err != nil {
		t.Fatalf("LoadPattern returned error: %v", err)
	}
	if len(p.Instances) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(p.Instances))
	}
}

func TestLoadPatternUnknownPattern(t *testing.T) {
	s := New()
	_, err := s.LoadPattern(context.Background(), "missing", nil)
	if err != store.ErrPatternNotFound {
		t.Fatalf("expected ErrPatternNotFound, got %v", err)
	}
}

func TestLoadPatternFiltersByInstanceIDs(t *testing.T) {
	s := New()
	s.Seed(seededProblem())

	p, err := s.LoadPattern(context.Background(), "tpl-1", []string{"inst-2"})
	if err != nil {
		t.Fatalf("LoadPattern returned error: %v", err)
	}
	if len(p.Instances) != 1 || p.Instances[0].ID != "inst-2" {
		t.Fatalf("expected only inst-2, got %+v", p.Instances)
	}
}

func TestLoadPatternRejectsUnknownInstanceID(t *testing.T) {
	s := New()
	s.Seed(seededProblem())

	_, err := s.LoadPattern(context.Background(), "tpl-1", []string{"inst-9"})
	if err == nil {
		t.Fatal("expected an error for an unknown instance id")
	}
}

func TestLoadPatternDoesNotMutateSeededProblem(t *testing.T) {
	s := New()
	s.Seed(seededProblem())

	p, err := s.LoadPattern(context.Background(), "tpl-1", []string{"inst-1"})
	if err != nil {
		t.Fatalf("LoadPattern returned error: %v", err)
	}
	p.Instances[0].Priority = 99

	again, err := s.LoadPattern(context.Background(), "tpl-1", nil)
	if err != nil {
		t.Fatalf("LoadPattern returned error: %v", err)
	}
	if again.Instances[0].Priority == 99 {
		t.Fatal("mutating a returned Problem's Instances leaked back into the seeded problem")
	}
}

func TestStoreScheduleRoundTrips(t *testing.T) {
	s := New()
	p := seededProblem()
	sol := &schedule.Solution{
		Metrics: schedule.Metrics{Status: schedule.StatusOptimal, MakespanUnits: 10},
	}

	id, err := s.StoreSchedule(context.Background(), p, sol)
	if err != nil {
		t.Fatalf("StoreSchedule returned error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty schedule id")
	}

	got, ok := s.Get(id)
	if !ok {
		t.Fatalf("expected to find schedule %s", id)
	}
	if got.TemplateID != "tpl-1" || got.Solution.Metrics.MakespanUnits != 10 {
		t.Fatalf("unexpected stored schedule: %+v", got)
	}
}

func TestStoreScheduleAssignsDistinctIDs(t *testing.T) {
	s := New()
	p := seededProblem()
	sol := &schedule.Solution{Metrics: schedule.Metrics{Status: schedule.StatusOptimal}}

	id1, _ := s.StoreSchedule(context.Background(), p, sol)
	id2, _ := s.StoreSchedule(context.Background(), p, sol)
	if id1 == id2 {
		t.Fatalf("expected distinct schedule ids, got %s twice", id1)
	}
}
