package drug

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/medrx/medrx/internal/platform/cache"
)

type fakeIndex struct {
	passes [][]Brand
	err    error
	calls  int
}

func (f *fakeIndex) SearchRanked(_ context.Context, q string, limit int) ([][]Brand, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.passes, nil
}

func TestSearch_ValidatesQueryAndLimit(t *testing.T) {
	svc := NewService(&fakeIndex{}, nil, 0)
	ctx := context.Background()

	tests := []struct {
		name  string
		q     string
		limit int
	}{
		{"too short", "p", 10},
		{"empty after trim", "   ", 10},
		{"too long", strings.Repeat("a", 129), 10},
		{"limit zero", "para", 0},
		{"limit too large", "para", 26},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Search(ctx, tt.q, tt.limit); !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}
}

func TestSearch_TrimsBeforeValidating(t *testing.T) {
	idx := &fakeIndex{passes: [][]Brand{{brand(1, "Paracetamol")}}}
	svc := NewService(idx, nil, 0)

	got, err := svc.Search(context.Background(), "  para  ", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 result, got %d", len(got))
	}
}

func TestSearch_MergesAndCaps(t *testing.T) {
	idx := &fakeIndex{passes: [][]Brand{
		{brand(1, "Para Forte")},
		{brand(1, "Para Forte"), brand(2, "Paracip"), brand(3, "Paracetamol")},
		{brand(4, "Parocin")},
	}}
	svc := NewService(idx, nil, 0)

	got, err := svc.Search(context.Background(), "para forte", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalIDs(ids(got), []int64{1, 2, 3}) {
		t.Errorf("expected [1 2 3], got %v", ids(got))
	}
}

func TestSearch_IndexFailureIsUniformlyUnavailable(t *testing.T) {
	idx := &fakeIndex{err: errors.New("connection refused: 10.0.0.5:5432")}
	svc := NewService(idx, nil, 0)

	_, err := svc.Search(context.Background(), "para", 10)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	// Internal detail must not leak through the returned error.
	if strings.Contains(err.Error(), "10.0.0.5") {
		t.Errorf("store detail leaked: %v", err)
	}
}

func TestSearch_CachesResults(t *testing.T) {
	idx := &fakeIndex{passes: [][]Brand{{brand(1, "Paracetamol")}}}
	mem := cache.NewMemory()
	defer mem.Close()
	svc := NewService(idx, mem, time.Minute)
	ctx := context.Background()

	first, err := svc.Search(ctx, "para", 10)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Search(ctx, "para", 10)
	if err != nil {
		t.Fatal(err)
	}

	if idx.calls != 1 {
		t.Errorf("expected 1 index call, got %d", idx.calls)
	}
	if !equalIDs(ids(first), ids(second)) {
		t.Errorf("cached result differs: %v vs %v", ids(first), ids(second))
	}

	// A different limit is a different cache entry.
	if _, err := svc.Search(ctx, "para", 5); err != nil {
		t.Fatal(err)
	}
	if idx.calls != 2 {
		t.Errorf("expected cache miss for new limit, got %d calls", idx.calls)
	}
}
