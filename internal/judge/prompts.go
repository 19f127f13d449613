package judge

import (
	"fmt"
	"strings"

	"github.com/lectern-app/lectern/internal/search"
)

const passOneSystem = `You assign exam questions to the lecture whose source material they were drawn from.
You are given one question and a ranked list of candidate lectures with evidence excerpts from their indexed material.
Choose exactly one of the offered lecture ids, or null if none of them fits.
Cite evidence only by chunk_id, and every quote must be copied verbatim from that chunk's excerpt.
Respond with a single JSON object and nothing else:
{"lecture_id": <id or null>, "confidence": <0.0-1.0>, "reason": "<short justification>", "no_match": <true|false>, "evidence": [{"chunk_id": <id>, "quote": "<verbatim excerpt>", "page_start": <page or null>, "page_end": <page or null>}]}`

const passTwoSystem = `You previously judged this exam question as no-match or low-confidence against its candidate lectures.
Re-examine the candidates and decide: is this truly a no-match, or is there a weaker-but-real match?
Decision modes:
- "strict_match": a candidate clearly fits and you can cite verbatim evidence.
- "weak_match": a candidate plausibly fits but the evidence is indirect; confidence may be low.
- "no_match": no candidate fits.
Respond with a single JSON object and nothing else:
{"decision": "strict_match"|"weak_match"|"no_match", "lecture_id": <id or null>, "confidence": <0.0-1.0>, "reason": "<short justification>", "evidence": [{"chunk_id": <id>, "quote": "<verbatim excerpt>", "page_start": <page or null>, "page_end": <page or null>}]}`

func passOnePrompt(question string, candidates []search.Candidate) string {
	var b strings.Builder
	b.WriteString("Question:\n")
	b.WriteString(question)
	b.WriteString("\n\nCandidate lectures:\n")
	writeCandidates(&b, candidates)
	return b.String()
}

func passTwoPrompt(question string, candidates []search.Candidate) string {
	var b strings.Builder
	b.WriteString("Question:\n")
	b.WriteString(question)
	b.WriteString("\n\nCandidate lectures (re-examination):\n")
	writeCandidates(&b, candidates)
	return b.String()
}

func writeCandidates(b *strings.Builder, candidates []search.Candidate) {
	for i, c := range candidates {
		fmt.Fprintf(b, "%d. lecture_id=%d", i+1, c.LectureID)
		if c.LecturePath != "" {
			fmt.Fprintf(b, " path=%q", c.LecturePath)
		}
		fmt.Fprintf(b, " score=%.3f\n", c.Score)

		for _, ev := range c.Evidence {
			fmt.Fprintf(b, "   chunk_id=%d pages=%d-%d text=%q\n",
				ev.ChunkID, ev.PageStart, ev.PageEnd, ev.Snippet)
		}
	}
}
