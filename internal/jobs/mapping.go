package jobs

import (
	"net/url"

	"github.com/lectern-app/lectern/pkg/query"
	"github.com/lectern-app/lectern/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "classification_jobs", "j").
	Project("id", "ID").
	Project("status", "Status").
	Project("signature", "Signature").
	Project("total_count", "TotalCount").
	Project("processed_count", "ProcessedCount").
	Project("success_count", "SuccessCount").
	Project("failed_count", "FailedCount").
	Project("request", "Request").
	Project("result", "Result").
	Project("error", "Error").
	Project("created_at", "CreatedAt").
	Project("started_at", "StartedAt").
	Project("completed_at", "CompletedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for job queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	Status    *string `json:"status,omitempty"`
	Signature *string `json:"signature,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("Signature", f.Signature)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if s := values.Get("signature"); s != "" {
		f.Signature = &s
	}

	return f
}

func scanJob(s repository.Scanner) (Job, error) {
	var j Job

	err := s.Scan(
		&j.ID,
		&j.Status,
		&j.Signature,
		&j.TotalCount,
		&j.ProcessedCount,
		&j.SuccessCount,
		&j.FailedCount,
		&j.Request,
		&j.Result,
		&j.Error,
		&j.CreatedAt,
		&j.StartedAt,
		&j.CompletedAt,
	)

	return j, err
}
