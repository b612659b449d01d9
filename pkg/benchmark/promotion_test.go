package benchmark

import (
	"context"
	"testing"

	"github.com/gitrdm/templatesched/pkg/problem"
)

func TestBucketFor(t *testing.T) {
	cases := map[int]InstanceCountBucket{
		1:  Bucket1to2,
		2:  Bucket1to2,
		3:  Bucket3to5,
		5:  Bucket3to5,
		6:  Bucket6to20,
		20: Bucket6to20,
		21: Bucket21Plus,
		500: Bucket21Plus,
	}
	for n, want := range cases {
		if got := BucketFor(n); got != want {
			t.Errorf("BucketFor(%d) = %s, want %s", n, got, want)
		}
	}
}

func TestPromoteFirstRecordAlwaysWins(t *testing.T) {
	store := NewMemoryPromotionStore()
	rec := ParameterRecord{TemplateID: "tmpl-1", Bucket: Bucket1to2, ObservedSolveTimeSeconds: 2.0, ObservedObjective: 10}

	promoted, err := store.Promote(context.Background(), rec)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if !promoted {
		t.Fatal("expected the first record to be promoted")
	}

	got, ok, err := store.Get(context.Background(), "tmpl-1", Bucket1to2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected a stored record")
	}
	if got.Version != 1 {
		t.Fatalf("expected version 1, got %d", got.Version)
	}
}

func TestPromoteFasterAndNoWorseReplaces(t *testing.T) {
	store := NewMemoryPromotionStore()
	ctx := context.Background()
	store.Promote(ctx, ParameterRecord{TemplateID: "tmpl-1", Bucket: Bucket1to2, ObservedSolveTimeSeconds: 5.0, ObservedObjective: 10})

	promoted, err := store.Promote(ctx, ParameterRecord{TemplateID: "tmpl-1", Bucket: Bucket1to2, ObservedSolveTimeSeconds: 3.0, ObservedObjective: 10})
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if !promoted {
		t.Fatal("expected a faster, no-worse candidate to be promoted")
	}

	got, _, _ := store.Get(ctx, "tmpl-1", Bucket1to2)
	if got.Version != 2 {
		t.Fatalf("expected version 2, got %d", got.Version)
	}
}

func TestPromoteSlowerCandidateRejected(t *testing.T) {
	store := NewMemoryPromotionStore()
	ctx := context.Background()
	store.Promote(ctx, ParameterRecord{TemplateID: "tmpl-1", Bucket: Bucket1to2, ObservedSolveTimeSeconds: 2.0, ObservedObjective: 10})

	promoted, err := store.Promote(ctx, ParameterRecord{TemplateID: "tmpl-1", Bucket: Bucket1to2, ObservedSolveTimeSeconds: 4.0, ObservedObjective: 10})
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if promoted {
		t.Fatal("expected a slower candidate to be rejected")
	}
}

func TestPromoteFasterButWorseObjectiveRejected(t *testing.T) {
	store := NewMemoryPromotionStore()
	ctx := context.Background()
	store.Promote(ctx, ParameterRecord{TemplateID: "tmpl-1", Bucket: Bucket1to2, ObservedSolveTimeSeconds: 5.0, ObservedObjective: 10})

	promoted, err := store.Promote(ctx, ParameterRecord{TemplateID: "tmpl-1", Bucket: Bucket1to2, ObservedSolveTimeSeconds: 1.0, ObservedObjective: 20})
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if promoted {
		t.Fatal("expected a faster-but-worse-objective candidate to be rejected")
	}
}

func TestGetUnknownTemplateBucket(t *testing.T) {
	store := NewMemoryPromotionStore()
	_, ok, err := store.Get(context.Background(), "missing", Bucket1to2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected no record for an unknown template/bucket pair")
	}
}

func TestBucketsAreIndependentPerTemplate(t *testing.T) {
	store := NewMemoryPromotionStore()
	ctx := context.Background()
	store.Promote(ctx, ParameterRecord{TemplateID: "tmpl-1", Bucket: Bucket1to2, Parameters: problem.SolverParameters{SearchBranching: "FIXED_SEARCH"}, ObservedSolveTimeSeconds: 1.0})
	store.Promote(ctx, ParameterRecord{TemplateID: "tmpl-1", Bucket: Bucket3to5, Parameters: problem.SolverParameters{SearchBranching: "AUTOMATIC"}, ObservedSolveTimeSeconds: 1.0})

	small, ok, _ := store.Get(ctx, "tmpl-1", Bucket1to2)
	if !ok || small.Parameters.SearchBranching != "FIXED_SEARCH" {
		t.Fatalf("unexpected record for small bucket: %+v", small)
	}
	large, ok, _ := store.Get(ctx, "tmpl-1", Bucket3to5)
	if !ok || large.Parameters.SearchBranching != "AUTOMATIC" {
		t.Fatalf("unexpected record for large bucket: %+v", large)
	}
}
