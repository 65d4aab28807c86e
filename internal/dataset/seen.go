// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import "github.com/pdiddy/paper-enhance/pkg/types"

// SkipReason explains why ShouldProcess rejected a record.
type SkipReason int

const (
	Accepted SkipReason = iota
	MissingID
	Duplicate
)

// SeenSet tracks record identifiers accepted during one run. It is not
// persisted; a new run starts empty.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet returns an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

// ShouldProcess reports whether rec should be processed and marks its id as
// seen when it is.
func (s *SeenSet) ShouldProcess(rec types.Record) bool {
	return s.Check(rec) == Accepted
}

// Check is ShouldProcess with the reason for a rejection.
func (s *SeenSet) Check(rec types.Record) SkipReason {
	id, ok := rec.ID()
	if !ok {
		return MissingID
	}
	if _, dup := s.ids[id]; dup {
		return Duplicate
	}
	s.ids[id] = struct{}{}
	return Accepted
}

// Len returns the number of accepted identifiers.
func (s *SeenSet) Len() int {
	return len(s.ids)
}
