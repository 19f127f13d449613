package jobs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/lectern-app/lectern/internal/lectures"
)

// Signature computes the stable request signature used for idempotent
// job reuse: a SHA-256 digest over the sorted, deduplicated question id
// list, the optional idempotency key, and the canonicalized scope.
// Submissions that differ only in question order or duplicates produce
// the same signature.
func Signature(questionIDs []int64, idempotencyKey string, scope *lectures.Scope) string {
	ids := canonicalIDs(questionIDs)

	var b strings.Builder
	b.WriteString("q:")
	writeIDs(&b, ids)

	b.WriteString("|k:")
	b.WriteString(idempotencyKey)

	b.WriteString("|s:")
	if !scope.IsZero() {
		b.WriteString("b=")
		writeIDs(&b, canonicalIDs(scope.BlockIDs))
		b.WriteString(";l=")
		writeIDs(&b, canonicalIDs(scope.LectureIDs))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func canonicalIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func writeIDs(b *strings.Builder, ids []int64) {
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(b, "%d", id)
	}
}
