package evaluation_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okian/followup/internal/domain/evaluation"
	"github.com/okian/followup/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func snap(id string, origins, rate int) model.Snapshot {
	return model.Snapshot{EntityID: id, OriginCount: origins, FollowUpRate: rate}
}

func TestCompare(t *testing.T) {
	Convey("Given before {10, 30%} and after {12, 50%}", t, func() {
		d, err := evaluation.Compare(snap("l1", 10, 30), snap("l1", 12, 50))

		Convey("Then the outcome should be an improvement of 20pp", func() {
			So(err, ShouldBeNil)
			So(d.DeltaRate, ShouldEqual, 20)
			So(d.Status, ShouldEqual, evaluation.StatusImproved)
			So(d.IsLowSample, ShouldBeFalse)
		})
	})

	Convey("Given snapshots of different entities", t, func() {
		d, err := evaluation.Compare(snap("l1", 10, 30), snap("l2", 10, 50))

		Convey("Then an explicit entity mismatch should be returned", func() {
			So(errors.Is(err, model.ErrEntityMismatch), ShouldBeTrue)
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			So(d, ShouldResemble, evaluation.Delta{})
		})
	})

	Convey("Given threshold edges", t, func() {
		cases := []struct {
			before, after int
			want          evaluation.Status
		}{
			{30, 35, evaluation.StatusImproved},
			{30, 34, evaluation.StatusNoChange},
			{30, 26, evaluation.StatusNoChange},
			{30, 25, evaluation.StatusRegressed},
		}
		for _, tc := range cases {
			d, err := evaluation.Compare(snap("l1", 10, tc.before), snap("l1", 10, tc.after))
			So(err, ShouldBeNil)
			So(d.Status, ShouldEqual, tc.want)
		}
	})

	Convey("Given a low sample on one side", t, func() {
		d, err := evaluation.Compare(snap("l1", 4, 0), snap("l1", 50, 100))

		Convey("Then the sample guard should win over a large delta", func() {
			So(err, ShouldBeNil)
			So(d.DeltaRate, ShouldEqual, 100)
			So(d.Status, ShouldEqual, evaluation.StatusInsufficientData)
			So(d.IsLowSample, ShouldBeTrue)
		})
	})

	Convey("Given custom options", t, func() {
		d, _ := evaluation.Compare(snap("l1", 3, 30), snap("l1", 3, 38),
			evaluation.WithMinSample(2), evaluation.WithThreshold(10))

		Convey("Then they should change the classification", func() {
			So(d.Status, ShouldEqual, evaluation.StatusNoChange)
		})
	})
}

func TestCompareROI(t *testing.T) {
	Convey("Given ROI snapshots", t, func() {
		before := model.ROISnapshot{Snapshot: snap("l1", 10, 30), CompletionCount: 5, CompletionRate: 50}
		after := model.ROISnapshot{Snapshot: snap("l1", 10, 32), CompletionCount: 2, CompletionRate: 20}

		d, err := evaluation.CompareROI(before, after)

		Convey("Then both deltas should be classified independently", func() {
			So(err, ShouldBeNil)
			So(d.DeltaRate, ShouldEqual, 2)
			So(d.Status, ShouldEqual, evaluation.StatusNoChange)
			So(d.CompletionDeltaRate, ShouldEqual, -30)
			So(d.CompletionStatus, ShouldEqual, evaluation.StatusRegressed)
		})

		Convey("When the entities differ", func() {
			after.EntityID = "l2"
			_, err := evaluation.CompareROI(before, after)
			So(errors.Is(err, model.ErrEntityMismatch), ShouldBeTrue)
		})
	})
}

func TestRenderReport(t *testing.T) {
	Convey("Given an improved delta", t, func() {
		at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		before := model.Snapshot{EntityID: "l1", OriginCount: 10, FollowUpCount: 3, FollowUpRate: 30,
			FollowUpByKind: map[model.Kind]int{model.KindQuizStarted: 2, model.KindNoteCreated: 1}, SnapshotAt: at}
		after := model.Snapshot{EntityID: "l1", OriginCount: 12, FollowUpCount: 6, FollowUpRate: 50,
			FollowUpByKind: map[model.Kind]int{model.KindQuizStarted: 4, model.KindReviewStarted: 3}, SnapshotAt: at.AddDate(0, 0, 14)}
		d, _ := evaluation.Compare(before, after)

		out := evaluation.RenderReport(d, evaluation.ReportMeta{Title: "Fractions", EntityKind: "lesson"})

		Convey("Then it should carry glyph, table, breakdown and recommendation", func() {
			So(out, ShouldStartWith, "## ✅ Follow-up evaluation: Fractions")
			So(out, ShouldContainSubstring, "- lesson: `l1`")
			So(out, ShouldContainSubstring, "| Follow-up rate | 30% | 50% | +20pp |")
			So(out, ShouldContainSubstring, "| Origins | 10 | 12 | +2 |")
			So(out, ShouldContainSubstring, "| note_created | 1 | 0 |")
			So(out, ShouldContainSubstring, "| review_started | 0 | 3 |")
			So(out, ShouldContainSubstring, "2024-02-15T00:00:00Z")
			So(out, ShouldContainSubstring, "> The change is working.")
		})

		Convey("Then breakdown rows should be sorted by kind", func() {
			So(strings.Index(out, "note_created"), ShouldBeLessThan, strings.Index(out, "quiz_started"))
			So(strings.Index(out, "quiz_started"), ShouldBeLessThan, strings.Index(out, "review_started"))
		})

		Convey("Then rendering twice should be byte-identical", func() {
			So(evaluation.RenderReport(d, evaluation.ReportMeta{Title: "Fractions", EntityKind: "lesson"}), ShouldEqual, out)
		})
	})

	Convey("Given an ROI delta without metadata", t, func() {
		d, _ := evaluation.CompareROI(
			model.ROISnapshot{Snapshot: snap("l9", 2, 0)},
			model.ROISnapshot{Snapshot: snap("l9", 2, 50), CompletionCount: 1, CompletionRate: 50},
		)
		out := evaluation.RenderROIReport(d, evaluation.ReportMeta{})

		Convey("Then it should fall back to the id and show completion rows", func() {
			So(out, ShouldStartWith, "## ⏳ ROI evaluation: l9")
			So(out, ShouldContainSubstring, "| Completion rate | 0% | 50% | +50pp |")
			So(out, ShouldContainSubstring, "n/a")
			So(out, ShouldContainSubstring, "Keep collecting data.")
		})
	})
}
