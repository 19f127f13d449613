package jobs

import (
	"encoding/json"

	"github.com/lectern-app/lectern/internal/judge"
	"github.com/lectern-app/lectern/internal/lectures"
)

// envelopeVersion tags serialized envelopes so a future layout change
// can be detected. Parsing fails closed on any other version.
const envelopeVersion = 1

// RequestEnvelope is the serialized classification request stored on
// the job row.
type RequestEnvelope struct {
	Version        int             `json:"version"`
	QuestionIDs    []int64         `json:"question_ids"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Scope          *lectures.Scope `json:"scope,omitempty"`
}

// ResultEnvelope is the serialized verdict list stored on the job row.
// Verdicts preserve the request's question order, not completion order.
type ResultEnvelope struct {
	Version  int             `json:"version"`
	Verdicts []judge.Verdict `json:"verdicts"`
}

func encodeRequest(env RequestEnvelope) ([]byte, error) {
	env.Version = envelopeVersion
	return json.Marshal(env)
}

// parseRequest decodes a stored request envelope. Malformed payloads
// and unknown versions fail closed to an empty envelope rather than
// erroring, so a corrupt historical row degrades instead of breaking
// reads.
func parseRequest(raw []byte) RequestEnvelope {
	var env RequestEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return RequestEnvelope{Version: envelopeVersion}
	}
	if env.Version != envelopeVersion {
		return RequestEnvelope{Version: envelopeVersion}
	}
	return env
}

func encodeResult(env ResultEnvelope) ([]byte, error) {
	env.Version = envelopeVersion
	if env.Verdicts == nil {
		env.Verdicts = []judge.Verdict{}
	}
	return json.Marshal(env)
}

// parseResult decodes a stored result envelope, failing closed to an
// empty verdict list on malformed payloads or unknown versions.
func parseResult(raw []byte) ResultEnvelope {
	empty := ResultEnvelope{Version: envelopeVersion, Verdicts: []judge.Verdict{}}

	if len(raw) == 0 {
		return empty
	}

	var env ResultEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return empty
	}
	if env.Version != envelopeVersion {
		return empty
	}
	if env.Verdicts == nil {
		env.Verdicts = []judge.Verdict{}
	}
	return env
}
