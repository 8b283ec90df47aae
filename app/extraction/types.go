package extraction

import (
	"fmt"
	"slices"
)

type Type string

const (
	TypeBillDiscussions    Type = "bill_discussions"
	TypeCommitteeDecisions Type = "committee_decisions"
	TypeAmendments         Type = "amendments"
	TypeSpeakerStatements  Type = "speaker_statements"
	TypeAll                Type = "all"
)

// ExtractorVersion is stamped on every persisted discussion.
const ExtractorVersion = "1.0"

var knownTypes = []Type{TypeBillDiscussions, TypeCommitteeDecisions, TypeAmendments, TypeSpeakerStatements}

// KnownTypes lists the concrete extraction types, excluding TypeAll.
func KnownTypes() []Type {
	return slices.Clone(knownTypes)
}

func ParseType(value string) (Type, error) {
	t := Type(value)
	if t == TypeAll || slices.Contains(knownTypes, t) {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, value)
}

// Payload is one decoded JSON object returned by a backend.
type Payload map[string]any

// Context carries correlation identifiers through to the backend and logs.
type Context struct {
	TranscriptID string
	CommitteeID  int64
	ChunkIndex   int
	ChunkCount   int
}

type resultKind int

const (
	resultSingle resultKind = iota
	resultGrouped
)

// Result is either a single payload for one extraction type or a payload per
// sub-type when TypeAll was requested.
type Result struct {
	kind    resultKind
	typ     Type
	single  Payload
	grouped map[Type]Payload
}

func Single(t Type, payload Payload) Result {
	return Result{kind: resultSingle, typ: t, single: payload}
}

func Grouped(payloads map[Type]Payload) Result {
	return Result{kind: resultGrouped, typ: TypeAll, grouped: payloads}
}

func (r Result) IsGrouped() bool {
	return r.kind == resultGrouped
}

// Batch is one (type, payload) pair ready to be persisted.
type Batch struct {
	Type    Type
	Payload Payload
}

// Batches flattens the result in a stable type order.
func (r Result) Batches() []Batch {
	if r.kind == resultSingle {
		if r.single == nil {
			return nil
		}
		return []Batch{{Type: r.typ, Payload: r.single}}
	}

	types := make([]Type, 0, len(r.grouped))
	for t := range r.grouped {
		types = append(types, t)
	}
	slices.Sort(types)

	batches := make([]Batch, 0, len(types))
	for _, t := range types {
		batches = append(batches, Batch{Type: t, Payload: r.grouped[t]})
	}
	return batches
}
