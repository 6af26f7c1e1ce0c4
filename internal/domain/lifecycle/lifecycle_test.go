package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/followup/internal/domain/lifecycle"
	"github.com/okian/followup/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
	"pgregory.net/rapid"
)

func TestReferenceID(t *testing.T) {
	Convey("Given a lesson close decision", t, func() {
		id := lifecycle.BuildReferenceID("lesson", "l42", lifecycle.DecisionClose)

		Convey("Then the string format should be kind:id:decision", func() {
			So(id, ShouldEqual, "lesson:l42:close")
		})

		Convey("Then parsing should return the same parts", func() {
			r, err := lifecycle.ParseReferenceID(id)
			So(err, ShouldBeNil)
			So(r, ShouldResemble, lifecycle.Reference{EntityKind: "lesson", EntityID: "l42", Decision: lifecycle.DecisionClose})
		})
	})

	Convey("Given an entity id containing the separator", t, func() {
		id := lifecycle.BuildReferenceID("lesson", "course:7:l1", lifecycle.DecisionFlagRedesign)
		r, err := lifecycle.ParseReferenceID(id)

		Convey("Then the middle segment should be kept whole", func() {
			So(err, ShouldBeNil)
			So(r.EntityID, ShouldEqual, "course:7:l1")
			So(r.Decision, ShouldEqual, lifecycle.DecisionFlagRedesign)
		})
	})

	Convey("Given malformed references", t, func() {
		for _, s := range []string{"", "lesson", "lesson:l1", "::", "lesson::close", ":l1:close", "lesson:l1:"} {
			r, err := lifecycle.ParseReferenceID(s)

			So(errors.Is(err, model.ErrMalformedReference), ShouldBeTrue)
			So(r, ShouldResemble, lifecycle.Reference{})
		}
	})
}

func TestShouldSkip(t *testing.T) {
	Convey("Given an applied close decision", t, func() {
		applied := lifecycle.NewSet("lesson:l1:close")

		Convey("Then the same pair should be skipped", func() {
			So(lifecycle.ShouldSkip(applied, "lesson", "l1", lifecycle.DecisionClose), ShouldBeTrue)
		})

		Convey("Then a different decision on the same entity should not", func() {
			So(lifecycle.ShouldSkip(applied, "lesson", "l1", lifecycle.DecisionLabel), ShouldBeFalse)
		})

		Convey("Then the same decision on another entity should not", func() {
			So(lifecycle.ShouldSkip(applied, "lesson", "l2", lifecycle.DecisionClose), ShouldBeFalse)
		})
	})
}

func TestAppliedFromEvents(t *testing.T) {
	Convey("Given a mix of events", t, func() {
		events := []model.Event{
			{Kind: model.KindLifecycleApplied, ReferenceID: "lesson:l1:close"},
			{Kind: model.KindLifecycleApplied},
			{Kind: model.KindContentViewed, ReferenceID: "lesson:l2:close"},
		}

		s := lifecycle.AppliedFromEvents(events)

		Convey("Then only lifecycle markers should contribute", func() {
			So(s, ShouldHaveLength, 1)
			So(s.Contains("lesson:l1:close"), ShouldBeTrue)
		})
	})

	Convey("Given a marker built for a reference", t, func() {
		r := lifecycle.Reference{EntityKind: "lesson", EntityID: "l1", Decision: lifecycle.DecisionLabel}
		m := lifecycle.Marker(r, "system", "2024-01-10")

		So(m.Kind, ShouldEqual, model.KindLifecycleApplied)
		So(m.ReferenceID, ShouldEqual, "lesson:l1:label")
		So(m.Validate(), ShouldBeNil)
	})
}

func TestGuard(t *testing.T) {
	ctx := context.Background()
	ref := lifecycle.Reference{EntityKind: "lesson", EntityID: "l1", Decision: lifecycle.DecisionClose}

	Convey("Given a guard seeded with applied references", t, func() {
		g := lifecycle.NewGuard(lifecycle.WithApplied(lifecycle.NewSet("lesson:l9:label")))

		So(g.Size(), ShouldEqual, 1)

		Convey("When recording a new reference", func() {
			already := g.Record(ctx, ref)

			Convey("Then it should be new the first time and skipped afterwards", func() {
				So(already, ShouldBeFalse)
				So(g.ShouldSkip(ctx, ref), ShouldBeTrue)
				So(g.Record(ctx, ref), ShouldBeTrue)
				So(g.Size(), ShouldEqual, 2)
			})
		})

		Convey("When a recorded reference is released", func() {
			g.Record(ctx, ref)
			g.Unrecord(ctx, ref)
			g.Unrecord(ctx, ref)

			Convey("Then it should be recordable again", func() {
				So(g.ShouldSkip(ctx, ref), ShouldBeFalse)
				So(g.Size(), ShouldEqual, 1)
			})
		})

		Convey("When merging a set with overlap", func() {
			g.Merge(lifecycle.NewSet("lesson:l9:label", "lesson:l3:close"))
			So(g.Size(), ShouldEqual, 2)
		})
	})

	Convey("Given concurrent callers racing on one reference", t, func() {
		g := lifecycle.NewGuard()
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !g.Record(ctx, ref) {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one should win", func() {
			So(wins, ShouldEqual, 1)
			So(g.Size(), ShouldEqual, 1)
		})
	})
}

func TestReferenceRoundTripProperty(t *testing.T) {
	segment := rapid.StringMatching(`[a-z_]{1,12}`)
	rapid.Check(t, func(rt *rapid.T) {
		kind := segment.Draw(rt, "kind")
		decision := lifecycle.Decision(segment.Draw(rt, "decision"))
		id := rapid.StringMatching(`[a-zA-Z0-9:_-]{1,20}`).Draw(rt, "id")

		r, err := lifecycle.ParseReferenceID(lifecycle.BuildReferenceID(kind, id, decision))
		if err != nil {
			rt.Fatalf("parse failed: %v", err)
		}
		want := lifecycle.Reference{EntityKind: kind, EntityID: id, Decision: decision}
		if r != want {
			rt.Fatalf("round trip mismatch: %s", fmt.Sprintf("%+v != %+v", r, want))
		}
	})
}

func TestParseNeverPanicsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := rapid.String().Draw(rt, "s")
		r, err := lifecycle.ParseReferenceID(s)
		if err == nil && r.String() != s {
			rt.Fatalf("accepted %q but renders %q", s, r.String())
		}
	})
}
