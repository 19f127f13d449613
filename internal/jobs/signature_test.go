package jobs_test

import (
	"testing"

	"github.com/lectern-app/lectern/internal/jobs"
	"github.com/lectern-app/lectern/internal/lectures"
)

func TestSignatureOrderInsensitive(t *testing.T) {
	a := jobs.Signature([]int64{10, 20, 30}, "", nil)
	b := jobs.Signature([]int64{30, 10, 20}, "", nil)

	if a != b {
		t.Errorf("signature depends on question order: %q != %q", a, b)
	}
}

func TestSignatureDeduplicates(t *testing.T) {
	a := jobs.Signature([]int64{10, 20}, "", nil)
	b := jobs.Signature([]int64{10, 20, 10, 20}, "", nil)

	if a != b {
		t.Errorf("signature depends on duplicates: %q != %q", a, b)
	}
}

func TestSignatureDistinguishesInputs(t *testing.T) {
	base := jobs.Signature([]int64{10, 20}, "", nil)

	tests := []struct {
		name string
		got  string
	}{
		{
			name: "different question set",
			got:  jobs.Signature([]int64{10, 21}, "", nil),
		},
		{
			name: "idempotency key",
			got:  jobs.Signature([]int64{10, 20}, "batch-7", nil),
		},
		{
			name: "block scope",
			got:  jobs.Signature([]int64{10, 20}, "", &lectures.Scope{BlockIDs: []int64{3}}),
		},
		{
			name: "lecture scope",
			got:  jobs.Signature([]int64{10, 20}, "", &lectures.Scope{LectureIDs: []int64{5}}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got == base {
				t.Error("signature collides with unscoped, unkeyed request")
			}
		})
	}
}

func TestSignatureEmptyScopeEqualsNil(t *testing.T) {
	a := jobs.Signature([]int64{10}, "", nil)
	b := jobs.Signature([]int64{10}, "", &lectures.Scope{})

	if a != b {
		t.Errorf("empty scope must canonicalize like nil scope: %q != %q", a, b)
	}
}

func TestSignatureScopeOrderInsensitive(t *testing.T) {
	a := jobs.Signature([]int64{10}, "", &lectures.Scope{BlockIDs: []int64{1, 2}, LectureIDs: []int64{8, 9}})
	b := jobs.Signature([]int64{10}, "", &lectures.Scope{BlockIDs: []int64{2, 1}, LectureIDs: []int64{9, 8}})

	if a != b {
		t.Errorf("signature depends on scope id order: %q != %q", a, b)
	}
}

func TestJobStatusReport(t *testing.T) {
	tests := []struct {
		name        string
		job         jobs.Job
		wantPercent float64
		wantCancel  bool
	}{
		{
			name:        "processing halfway",
			job:         jobs.Job{Status: jobs.StatusProcessing, TotalCount: 4, ProcessedCount: 2, SuccessCount: 1, FailedCount: 1},
			wantPercent: 50,
			wantCancel:  true,
		},
		{
			name:        "pending untouched",
			job:         jobs.Job{Status: jobs.StatusPending, TotalCount: 4},
			wantPercent: 0,
			wantCancel:  true,
		},
		{
			name:        "completed",
			job:         jobs.Job{Status: jobs.StatusCompleted, TotalCount: 4, ProcessedCount: 4, SuccessCount: 4},
			wantPercent: 100,
			wantCancel:  false,
		},
		{
			name:        "zero total guards division",
			job:         jobs.Job{Status: jobs.StatusFailed},
			wantPercent: 0,
			wantCancel:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := tt.job.StatusReport()
			if report.ProgressPercent != tt.wantPercent {
				t.Errorf("ProgressPercent = %v, want %v", report.ProgressPercent, tt.wantPercent)
			}
			if report.CanCancel != tt.wantCancel {
				t.Errorf("CanCancel = %v, want %v", report.CanCancel, tt.wantCancel)
			}
			if report.Processed != tt.job.ProcessedCount || report.Total != tt.job.TotalCount {
				t.Errorf("counters = {%d/%d}, want {%d/%d}",
					report.Processed, report.Total, tt.job.ProcessedCount, tt.job.TotalCount)
			}
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		status      jobs.Status
		terminal    bool
		cancellable bool
		reusable    bool
	}{
		{jobs.StatusPending, false, true, true},
		{jobs.StatusProcessing, false, true, true},
		{jobs.StatusCompleted, true, false, true},
		{jobs.StatusFailed, true, false, false},
		{jobs.StatusCancelled, true, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Errorf("Terminal() = %v, want %v", got, tt.terminal)
			}
			if got := tt.status.Cancellable(); got != tt.cancellable {
				t.Errorf("Cancellable() = %v, want %v", got, tt.cancellable)
			}
			if got := tt.status.Reusable(); got != tt.reusable {
				t.Errorf("Reusable() = %v, want %v", got, tt.reusable)
			}
		})
	}
}
