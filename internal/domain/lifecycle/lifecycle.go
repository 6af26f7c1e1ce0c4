// Package lifecycle builds and checks the idempotency keys that keep a
// remediation decision from being executed twice.
package lifecycle

import (
	"fmt"
	"strings"

	"github.com/okian/followup/internal/domain/model"
)

// Decision is a remediation action applied to an entity.
type Decision string

// Known decisions.
const (
	DecisionClose        Decision = "close"
	DecisionLabel        Decision = "label"
	DecisionFlagRedesign Decision = "flag_redesign"
)

// DefaultEntityKind is used when a caller does not name one.
const DefaultEntityKind = "lesson"

const sep = ":"

// Reference identifies one (entity, decision) pair.
type Reference struct {
	EntityKind string   `json:"entity_kind"`
	EntityID   string   `json:"entity_id"`
	Decision   Decision `json:"decision"`
}

// String renders "{entityKind}:{entityId}:{decision}".
func (r Reference) String() string {
	return r.EntityKind + sep + r.EntityID + sep + string(r.Decision)
}

// Validate checks that r survives a build/parse round trip. Only the
// entity id may contain the separator.
func (r Reference) Validate() error {
	switch {
	case r.EntityKind == "" || r.EntityID == "" || r.Decision == "":
		return fmt.Errorf("%w: empty reference part in %q", model.ErrMalformedReference, r.String())
	case strings.Contains(r.EntityKind, sep):
		return fmt.Errorf("%w: entity kind %q contains %q", model.ErrMalformedReference, r.EntityKind, sep)
	case strings.Contains(string(r.Decision), sep):
		return fmt.Errorf("%w: decision %q contains %q", model.ErrMalformedReference, r.Decision, sep)
	}
	return nil
}

// BuildReferenceID returns the reference string for an entity decision.
func BuildReferenceID(entityKind, entityID string, decision Decision) string {
	return Reference{EntityKind: entityKind, EntityID: entityID, Decision: decision}.String()
}

// ParseReferenceID is the inverse of BuildReferenceID. The kind ends at the
// first separator and the decision starts after the last one.
func ParseReferenceID(s string) (Reference, error) {
	first := strings.Index(s, sep)
	last := strings.LastIndex(s, sep)
	if first < 0 || first == last {
		return Reference{}, fmt.Errorf("%w: %q", model.ErrMalformedReference, s)
	}
	r := Reference{
		EntityKind: s[:first],
		EntityID:   s[first+1 : last],
		Decision:   Decision(s[last+1:]),
	}
	if err := r.Validate(); err != nil {
		return Reference{}, err
	}
	return r, nil
}

// Set is a collection of applied reference strings.
type Set map[string]struct{}

// NewSet builds a set from reference strings.
func NewSet(refs ...string) Set {
	s := make(Set, len(refs))
	for _, r := range refs {
		s[r] = struct{}{}
	}
	return s
}

// Contains reports whether ref is in the set.
func (s Set) Contains(ref string) bool {
	_, ok := s[ref]
	return ok
}

// ShouldSkip reports whether the decision was already applied to the entity.
// A different decision on the same entity is never skipped.
func ShouldSkip(applied Set, entityKind, entityID string, decision Decision) bool {
	return applied.Contains(BuildReferenceID(entityKind, entityID, decision))
}

// AppliedFromEvents collects the references carried by lifecycle markers.
func AppliedFromEvents(events []model.Event) Set {
	s := make(Set)
	for _, e := range events {
		if e.Kind == model.KindLifecycleApplied && e.ReferenceID != "" {
			s[e.ReferenceID] = struct{}{}
		}
	}
	return s
}

// Marker returns the event to append after r has been applied.
func Marker(r Reference, actor, day string) model.Event {
	return model.Event{
		UserID:      actor,
		Kind:        model.KindLifecycleApplied,
		EventDate:   day,
		ReferenceID: r.String(),
	}
}
