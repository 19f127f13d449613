package lectures

import (
	"github.com/lectern-app/lectern/pkg/query"
	"github.com/lectern-app/lectern/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "lectures", "l").
	Project("id", "ID").
	Project("block_id", "BlockID").
	Project("title", "Title").
	Project("path", "Path")

func scanLecture(s repository.Scanner) (Lecture, error) {
	var l Lecture

	err := s.Scan(
		&l.ID,
		&l.BlockID,
		&l.Title,
		&l.Path,
	)

	return l, err
}
