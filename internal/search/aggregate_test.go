package search_test

import (
	"testing"

	"github.com/lectern-app/lectern/internal/search"
)

func hit(lecture, chunk int64, score float64) search.Hit {
	return search.Hit{
		ChunkID:   chunk,
		LectureID: lecture,
		Snippet:   "snippet",
		Score:     score,
	}
}

func TestAggregateSum(t *testing.T) {
	hits := []search.Hit{
		hit(1, 101, 3.0),
		hit(1, 102, 0.8),
		hit(2, 201, 1.2),
	}

	got := search.Aggregate(hits, search.AggregateOptions{
		TopKLectures:       2,
		EvidencePerLecture: 3,
		Mode:               search.AggModeSum,
	})

	if len(got) != 2 {
		t.Fatalf("candidate count = %d, want 2", len(got))
	}
	if got[0].LectureID != 1 || got[0].Score != 3.8 {
		t.Errorf("candidate[0] = {lecture %d, score %v}, want {lecture 1, score 3.8}", got[0].LectureID, got[0].Score)
	}
	if got[1].LectureID != 2 || got[1].Score != 1.2 {
		t.Errorf("candidate[1] = {lecture %d, score %v}, want {lecture 2, score 1.2}", got[1].LectureID, got[1].Score)
	}
}

func TestAggregateTopMMean(t *testing.T) {
	hits := []search.Hit{
		hit(1, 101, 4.0),
		hit(1, 102, 2.0),
		hit(1, 103, 0.5),
		hit(2, 201, 3.5),
	}

	got := search.Aggregate(hits, search.AggregateOptions{
		TopKLectures:       5,
		EvidencePerLecture: 3,
		Mode:               search.AggModeTopMMean,
		TopM:               2,
	})

	if len(got) != 2 {
		t.Fatalf("candidate count = %d, want 2", len(got))
	}
	// Lecture 2's single hit averages above lecture 1's top-2 mean.
	if got[0].LectureID != 2 || got[0].Score != 3.5 {
		t.Errorf("candidate[0] = {lecture %d, score %v}, want {lecture 2, score 3.5}", got[0].LectureID, got[0].Score)
	}
	if got[1].LectureID != 1 || got[1].Score != 3.0 {
		t.Errorf("candidate[1] = {lecture %d, score %v}, want {lecture 1, score 3.0}", got[1].LectureID, got[1].Score)
	}
}

func TestAggregateChunkCapBeforeAggregation(t *testing.T) {
	hits := []search.Hit{
		hit(1, 101, 1.0),
		hit(1, 102, 1.0),
		hit(1, 103, 1.0),
		hit(1, 104, 1.0),
		hit(2, 201, 2.5),
	}

	got := search.Aggregate(hits, search.AggregateOptions{
		TopKLectures:       5,
		EvidencePerLecture: 5,
		Mode:               search.AggModeSum,
		ChunkCap:           2,
	})

	// Without the cap lecture 1 would win on volume (4.0 vs 2.5).
	if got[0].LectureID != 2 {
		t.Errorf("candidate[0].LectureID = %d, want 2", got[0].LectureID)
	}
	if got[1].Score != 2.0 {
		t.Errorf("capped lecture 1 score = %v, want 2.0", got[1].Score)
	}
	if len(got[1].Evidence) != 2 {
		t.Errorf("capped lecture 1 evidence count = %d, want 2", len(got[1].Evidence))
	}
}

func TestAggregateTieRetainsDiscoveryOrder(t *testing.T) {
	hits := []search.Hit{
		hit(7, 701, 1.5),
		hit(3, 301, 1.5),
		hit(9, 901, 1.5),
	}

	got := search.Aggregate(hits, search.AggregateOptions{
		TopKLectures:       5,
		EvidencePerLecture: 1,
		Mode:               search.AggModeSum,
	})

	want := []int64{7, 3, 9}
	for i, c := range got {
		if c.LectureID != want[i] {
			t.Errorf("candidate[%d].LectureID = %d, want %d", i, c.LectureID, want[i])
		}
	}
}

func TestAggregateEvidenceBounds(t *testing.T) {
	hits := []search.Hit{
		hit(1, 101, 3.0),
		hit(1, 102, 2.0),
		hit(1, 103, 1.0),
	}

	got := search.Aggregate(hits, search.AggregateOptions{
		TopKLectures:       1,
		EvidencePerLecture: 2,
		Mode:               search.AggModeSum,
	})

	ev := got[0].Evidence
	if len(ev) != 2 {
		t.Fatalf("evidence count = %d, want 2", len(ev))
	}
	if ev[0].ChunkID != 101 || ev[1].ChunkID != 102 {
		t.Errorf("evidence chunks = [%d, %d], want [101, 102]", ev[0].ChunkID, ev[1].ChunkID)
	}
	if ev[0].Score < ev[1].Score {
		t.Error("evidence not ordered by descending score")
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := search.Aggregate(nil, search.AggregateOptions{TopKLectures: 5, Mode: search.AggModeSum})
	if len(got) != 0 {
		t.Errorf("Aggregate(nil) = %v, want empty", got)
	}
}

func TestTrimSnippet(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips markup", "<b>cardiac</b> output", "cardiac output"},
		{"collapses whitespace", "renal\n\t  tubule", "renal tubule"},
		{"trims edges", "  plain  ", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := search.TrimSnippet(tt.in); got != tt.want {
				t.Errorf("TrimSnippet(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
