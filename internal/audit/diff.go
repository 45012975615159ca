package audit

import (
	"reflect"
	"strings"

	"github.com/fixora/tasktrail/internal/domain"
)

// DefaultIgnoredFields are bookkeeping and credential fields never recorded
var DefaultIgnoredFields = []string{"updatedAt", "createdAt", "password"}

// FieldSet is a set of snapshot field names
type FieldSet map[string]struct{}

// NewFieldSet builds a set from names, skipping blanks
func NewFieldSet(names ...string) FieldSet {
	s := make(FieldSet, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Has reports whether name is in the set
func (s FieldSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Diff returns the non-ignored fields whose normalized values differ.
// A nil snapshot stands for "no state", so every non-nil field of the
// other side counts as changed. The result is empty, never nil, when
// nothing changed.
func Diff(before, after domain.Snapshot, ignored FieldSet) domain.Changes {
	changes := domain.Changes{}
	seen := make(map[string]struct{}, len(before)+len(after))

	compare := func(field string) {
		if _, done := seen[field]; done {
			return
		}
		seen[field] = struct{}{}
		if ignored.Has(field) {
			return
		}
		b, a := before[field], after[field]
		if reflect.DeepEqual(b, a) {
			return
		}
		changes[field] = domain.FieldChange{Before: b, After: a}
	}

	for field := range before {
		compare(field)
	}
	for field := range after {
		compare(field)
	}
	return changes
}

// Redact returns a copy of s without the ignored fields
func Redact(s domain.Snapshot, ignored FieldSet) domain.Snapshot {
	if s == nil {
		return nil
	}
	out := make(domain.Snapshot, len(s))
	for k, v := range s {
		if !ignored.Has(k) {
			out[k] = v
		}
	}
	return out
}
