package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/lectern-app/lectern/internal/judge"
)

type progressSnapshot struct {
	processed int
	succeeded int
	failed    int
}

// fakeProgressStore reports StatusProcessing until cancelAfter status
// reads have happened, then StatusCancelled.
type fakeProgressStore struct {
	cancelAfter int
	reads       int
	snapshots   []progressSnapshot
}

func (f *fakeProgressStore) currentStatus(_ context.Context, _ uuid.UUID) (Status, error) {
	f.reads++
	if f.cancelAfter > 0 && f.reads > f.cancelAfter {
		return StatusCancelled, nil
	}
	return StatusProcessing, nil
}

func (f *fakeProgressStore) recordProgress(_ context.Context, _ uuid.UUID, processed, succeeded, failed int) error {
	f.snapshots = append(f.snapshots, progressSnapshot{processed, succeeded, failed})
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sendResults(verdicts ...indexedVerdict) <-chan indexedVerdict {
	results := make(chan indexedVerdict, len(verdicts))
	for _, v := range verdicts {
		results <- v
	}
	close(results)
	return results
}

func TestCollectVerdictsOutOfOrderCompletion(t *testing.T) {
	store := &fakeProgressStore{}

	// Workers finish in completion order 30, 10, 20; the request order
	// is 10, 20, 30.
	results := sendResults(
		indexedVerdict{2, judge.Verdict{QuestionID: 30}},
		indexedVerdict{0, judge.Verdict{QuestionID: 10, Failed: true, Error: "judge: timeout"}},
		indexedVerdict{1, judge.Verdict{QuestionID: 20}},
	)

	col := collectVerdicts(context.Background(), store, uuid.New(), 3, results, quietLogger())

	if col.cancelled {
		t.Fatal("cancelled = true, want false")
	}
	if col.processed != 3 || col.succeeded != 2 || col.failed != 1 {
		t.Errorf("counters = {processed %d, succeeded %d, failed %d}, want {3, 2, 1}",
			col.processed, col.succeeded, col.failed)
	}

	want := []int64{10, 20, 30}
	if len(col.verdicts) != len(want) {
		t.Fatalf("verdict count = %d, want %d", len(col.verdicts), len(want))
	}
	for i, v := range col.verdicts {
		if v.QuestionID != want[i] {
			t.Errorf("verdicts[%d].QuestionID = %d, want request order %v", i, v.QuestionID, want)
		}
	}
}

func TestCollectVerdictsCountersMonotonic(t *testing.T) {
	store := &fakeProgressStore{}

	const total = 5
	results := make(chan indexedVerdict, total)
	for i := 0; i < total; i++ {
		v := judge.Verdict{QuestionID: int64(i + 1)}
		if i%2 == 1 {
			v.Failed = true
		}
		results <- indexedVerdict{i, v}
	}
	close(results)

	collectVerdicts(context.Background(), store, uuid.New(), total, results, quietLogger())

	if len(store.snapshots) != total {
		t.Fatalf("progress snapshots = %d, want %d", len(store.snapshots), total)
	}

	prev := progressSnapshot{}
	for i, s := range store.snapshots {
		if s.succeeded+s.failed > s.processed || s.processed > total {
			t.Errorf("snapshot[%d] = %+v violates 0 <= succeeded+failed <= processed <= %d", i, s, total)
		}
		if s.processed != prev.processed+1 {
			t.Errorf("snapshot[%d].processed = %d, want monotonic increment from %d", i, s.processed, prev.processed)
		}
		if s.succeeded < prev.succeeded || s.failed < prev.failed {
			t.Errorf("snapshot[%d] = %+v regressed from %+v", i, s, prev)
		}
		prev = s
	}
}

func TestCollectVerdictsCancellationDiscardsLateResults(t *testing.T) {
	store := &fakeProgressStore{cancelAfter: 2}

	results := sendResults(
		indexedVerdict{0, judge.Verdict{QuestionID: 10}},
		indexedVerdict{1, judge.Verdict{QuestionID: 20}},
		indexedVerdict{2, judge.Verdict{QuestionID: 30}},
		indexedVerdict{3, judge.Verdict{QuestionID: 40}},
	)

	col := collectVerdicts(context.Background(), store, uuid.New(), 4, results, quietLogger())

	if !col.cancelled {
		t.Fatal("cancelled = false, want true")
	}
	if col.processed != 2 {
		t.Errorf("processed = %d, want 2 (results after cancellation discarded)", col.processed)
	}
	if len(col.verdicts) != 2 {
		t.Fatalf("verdict count = %d, want 2", len(col.verdicts))
	}
	if col.verdicts[0].QuestionID != 10 || col.verdicts[1].QuestionID != 20 {
		t.Errorf("verdicts = [%d, %d], want accepted prefix [10, 20]",
			col.verdicts[0].QuestionID, col.verdicts[1].QuestionID)
	}

	// The sticky flag means no further status reads once cancellation
	// is observed.
	if store.reads != 3 {
		t.Errorf("status reads = %d, want 3", store.reads)
	}
}
