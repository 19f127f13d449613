package api

import (
	"github.com/lectern-app/lectern/internal/apply"
	"github.com/lectern-app/lectern/internal/jobs"
	"github.com/lectern-app/lectern/internal/judge"
	"github.com/lectern-app/lectern/internal/lectures"
	"github.com/lectern-app/lectern/internal/questions"
	"github.com/lectern-app/lectern/internal/search"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Jobs      jobs.System
	Questions questions.System
	Lectures  lectures.System
}

// NewDomain creates all domain systems from the API runtime. The full
// classification pipeline (retrieval, aggregation, judge, applier) is
// assembled here and owned by the jobs system.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()
	cfg := runtime.Config
	logger := runtime.Logger

	questionsSystem := questions.New(db, logger)
	lecturesSystem := lectures.New(db, logger)

	engine := search.NewEngine(db, cfg.Search, logger)

	judgeSystem := judge.New(
		judge.NewChatClient(&cfg.Judge),
		nil,
		cfg.Judge,
		logger,
	)

	applier := apply.New(db, cfg.Apply, cfg.Judge.Model, logger)

	pipeline := &jobs.Pipeline{
		Questions: questionsSystem,
		Lectures:  lecturesSystem,
		Engine:    engine,
		Aggregate: cfg.Aggregate.Options(),
		Judge:     judgeSystem,
		TopN:      cfg.Search.TopN,
		Logger:    logger,
	}

	jobsSystem := jobs.New(
		runtime.Lifecycle.Context(),
		db,
		cfg.Jobs,
		pipeline,
		applier,
		logger,
		runtime.Pagination,
	)

	return &Domain{
		Jobs:      jobsSystem,
		Questions: questionsSystem,
		Lectures:  lecturesSystem,
	}
}
