// Package evaluation compares before and after snapshots of one entity and
// classifies whether a remediation helped.
package evaluation

import (
	"fmt"

	"github.com/okian/followup/internal/domain/model"
)

// DefaultThreshold is the minimum rate change, in percentage points, that
// counts as a real improvement or regression.
const DefaultThreshold = 5

// Status is the outcome of a before/after comparison.
type Status string

// Outcome classes, evaluated in declaration order.
const (
	StatusInsufficientData Status = "INSUFFICIENT_DATA"
	StatusImproved         Status = "IMPROVED"
	StatusRegressed        Status = "REGRESSED"
	StatusNoChange         Status = "NO_CHANGE"
)

// Delta is the comparison of two snapshots of the same entity.
type Delta struct {
	Before      model.Snapshot
	After       model.Snapshot
	DeltaRate   int // after minus before, percentage points
	Status      Status
	IsLowSample bool
}

// ROIDelta adds the completion conversion comparison.
type ROIDelta struct {
	Before              model.ROISnapshot
	After               model.ROISnapshot
	DeltaRate           int
	CompletionDeltaRate int
	Status              Status
	CompletionStatus    Status
	IsLowSample         bool
}

// Option applies a configuration option to a comparison.
type Option func(*Classifier)

// WithMinSample sets the origin count required on both sides.
func WithMinSample(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.MinSample = n
		}
	}
}

// WithThreshold sets the improvement/regression threshold in percentage points.
func WithThreshold(pp int) Option {
	return func(c *Classifier) {
		if pp > 0 {
			c.Threshold = pp
		}
	}
}

// Classifier holds the sample-size guard and change threshold.
type Classifier struct {
	MinSample int
	Threshold int
}

// NewClassifier builds a classifier with defaults of 5 and 5.
func NewClassifier(opts ...Option) Classifier {
	c := Classifier{MinSample: model.DefaultMinSample, Threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LowSample reports whether either side lacks enough origins.
func (c Classifier) LowSample(beforeOrigins, afterOrigins int) bool {
	return beforeOrigins < c.MinSample || afterOrigins < c.MinSample
}

// Classify maps a delta to a status. The sample guard wins over any delta.
func (c Classifier) Classify(beforeOrigins, afterOrigins, delta int) Status {
	switch {
	case c.LowSample(beforeOrigins, afterOrigins):
		return StatusInsufficientData
	case delta >= c.Threshold:
		return StatusImproved
	case delta <= -c.Threshold:
		return StatusRegressed
	default:
		return StatusNoChange
	}
}

// Compare evaluates before against after. Snapshots of different entities
// yield ErrEntityMismatch and a zero Delta.
func Compare(before, after model.Snapshot, opts ...Option) (Delta, error) {
	if before.EntityID != after.EntityID {
		return Delta{}, fmt.Errorf("%w: before %q, after %q", model.ErrEntityMismatch, before.EntityID, after.EntityID)
	}
	c := NewClassifier(opts...)
	d := after.FollowUpRate - before.FollowUpRate
	return Delta{
		Before:      before,
		After:       after,
		DeltaRate:   d,
		Status:      c.Classify(before.OriginCount, after.OriginCount, d),
		IsLowSample: c.LowSample(before.OriginCount, after.OriginCount),
	}, nil
}

// CompareROI evaluates follow-up and completion conversion together, using
// the same threshold and sample guard for both.
func CompareROI(before, after model.ROISnapshot, opts ...Option) (ROIDelta, error) {
	base, err := Compare(before.Snapshot, after.Snapshot, opts...)
	if err != nil {
		return ROIDelta{}, err
	}
	c := NewClassifier(opts...)
	cd := after.CompletionRate - before.CompletionRate
	return ROIDelta{
		Before:              before,
		After:               after,
		DeltaRate:           base.DeltaRate,
		CompletionDeltaRate: cd,
		Status:              base.Status,
		CompletionStatus:    c.Classify(before.OriginCount, after.OriginCount, cd),
		IsLowSample:         base.IsLowSample,
	}, nil
}
