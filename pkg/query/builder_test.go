package query_test

import (
	"testing"

	"github.com/lectern-app/lectern/pkg/query"
)

func jobsProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "classification_jobs", "j").
		Project("id", "ID").
		Project("status", "Status").
		Project("signature", "Signature").
		Project("created_at", "CreatedAt")
}

func strPtr(s string) *string { return &s }

func TestBuild(t *testing.T) {
	sql, args := query.NewBuilder(jobsProjection()).Build()

	want := "SELECT j.id, j.status, j.signature, j.created_at " +
		"FROM public.classification_jobs j"
	if sql != want {
		t.Errorf("Build() = %q, want %q", sql, want)
	}
	if len(args) != 0 {
		t.Errorf("Build() args = %v, want none", args)
	}
}

func TestBuildWithConditionsAndSort(t *testing.T) {
	sql, args := query.
		NewBuilder(jobsProjection(), query.SortField{Field: "CreatedAt", Descending: true}).
		WhereEquals("Status", "pending").
		Build()

	want := "SELECT j.id, j.status, j.signature, j.created_at " +
		"FROM public.classification_jobs j " +
		"WHERE j.status = $1 " +
		"ORDER BY j.created_at DESC"
	if sql != want {
		t.Errorf("Build() = %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != "pending" {
		t.Errorf("Build() args = %v, want [pending]", args)
	}
}

func TestBuildCount(t *testing.T) {
	sql, args := query.
		NewBuilder(jobsProjection()).
		WhereEquals("Status", "completed").
		BuildCount()

	want := "SELECT COUNT(*) FROM public.classification_jobs j WHERE j.status = $1"
	if sql != want {
		t.Errorf("BuildCount() = %q, want %q", sql, want)
	}
	if len(args) != 1 {
		t.Errorf("BuildCount() args = %v, want one", args)
	}
}

func TestBuildPage(t *testing.T) {
	sql, args := query.
		NewBuilder(jobsProjection(), query.SortField{Field: "CreatedAt", Descending: true}).
		WhereSearch(strPtr("abc"), "Signature").
		BuildPage(2, 25)

	want := "SELECT j.id, j.status, j.signature, j.created_at " +
		"FROM public.classification_jobs j " +
		"WHERE (j.signature ILIKE $1) " +
		"ORDER BY j.created_at DESC " +
		"LIMIT 25 OFFSET 25"
	if sql != want {
		t.Errorf("BuildPage() = %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != "%abc%" {
		t.Errorf("BuildPage() args = %v, want [%%abc%%]", args)
	}
}

func TestBuildSingle(t *testing.T) {
	sql, args := query.NewBuilder(jobsProjection()).BuildSingle("ID", 42)

	want := "SELECT j.id, j.status, j.signature, j.created_at " +
		"FROM public.classification_jobs j " +
		"WHERE j.id = $1"
	if sql != want {
		t.Errorf("BuildSingle() = %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != 42 {
		t.Errorf("BuildSingle() args = %v, want [42]", args)
	}
}

func TestBuildSingleOrNull(t *testing.T) {
	sql, _ := query.
		NewBuilder(jobsProjection()).
		WhereEquals("Signature", "sig").
		BuildSingleOrNull()

	want := "SELECT j.id, j.status, j.signature, j.created_at " +
		"FROM public.classification_jobs j " +
		"WHERE j.signature = $1 " +
		"LIMIT 1"
	if sql != want {
		t.Errorf("BuildSingleOrNull() = %q, want %q", sql, want)
	}
}
