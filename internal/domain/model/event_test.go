package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/followup/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestTimestampOf(t *testing.T) {
	convey.Convey("Given events with and without a precise instant", t, func() {
		convey.Convey("When OccurredAt is set", func() {
			at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.FixedZone("CET", 3600))
			ts, err := model.TimestampOf(model.Event{EventDate: "2024-01-15", OccurredAt: at})

			convey.Convey("Then it should be returned in UTC", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ts.Location(), convey.ShouldEqual, time.UTC)
				convey.So(ts.Equal(at), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When only the event date is known", func() {
			ts, err := model.TimestampOf(model.Event{EventDate: "2024-01-15"})

			convey.Convey("Then it should fall back to midnight UTC", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ts, convey.ShouldEqual, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
			})
		})

		convey.Convey("When the date cannot be parsed", func() {
			_, err := model.TimestampOf(model.Event{ID: "e1", EventDate: "15/01/2024"})

			convey.Convey("Then it should report invalid input", func() {
				convey.So(errors.Is(err, model.ErrInvalidInput), convey.ShouldBeTrue)
			})
		})
	})
}

func TestKindClassification(t *testing.T) {
	convey.Convey("Given the fixed origin and follow-up sets", t, func() {
		convey.Convey("Then content kinds should be origins only", func() {
			convey.So(model.IsOrigin(model.KindContentViewed, ""), convey.ShouldBeTrue)
			convey.So(model.IsOrigin(model.KindContentCompleted, ""), convey.ShouldBeTrue)
			convey.So(model.IsFollowUp(model.KindContentViewed), convey.ShouldBeFalse)
		})

		convey.Convey("Then review_started should be both", func() {
			convey.So(model.IsOrigin(model.KindReviewStarted, ""), convey.ShouldBeTrue)
			convey.So(model.IsFollowUp(model.KindReviewStarted), convey.ShouldBeTrue)
		})

		convey.Convey("Then engagement kinds should be follow-ups only", func() {
			for _, k := range []model.Kind{model.KindNextContentOpened, model.KindQuizStarted, model.KindNoteCreated} {
				convey.So(model.IsFollowUp(k), convey.ShouldBeTrue)
				convey.So(model.IsOrigin(k, ""), convey.ShouldBeFalse)
			}
		})

		convey.Convey("Then markers should be neither", func() {
			convey.So(model.IsOrigin(model.KindLifecycleApplied, ""), convey.ShouldBeFalse)
			convey.So(model.IsFollowUp(model.KindLifecycleApplied), convey.ShouldBeFalse)
		})

		convey.Convey("When an origin filter is supplied", func() {
			convey.Convey("Then only that kind should match", func() {
				convey.So(model.IsOrigin(model.KindContentViewed, model.KindContentViewed), convey.ShouldBeTrue)
				convey.So(model.IsOrigin(model.KindContentCompleted, model.KindContentViewed), convey.ShouldBeFalse)
			})
		})
	})
}

func TestEventValidate(t *testing.T) {
	convey.Convey("Given event validation scenarios", t, func() {
		valid := model.Event{UserID: "u1", Kind: model.KindContentViewed, EventDate: "2024-01-15"}

		convey.Convey("When the event is complete", func() {
			convey.So(valid.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the user is missing", func() {
			e := valid
			e.UserID = "  "
			convey.So(errors.Is(e.Validate(), model.ErrInvalidInput), convey.ShouldBeTrue)
		})

		convey.Convey("When the kind is missing", func() {
			e := valid
			e.Kind = ""
			convey.So(errors.Is(e.Validate(), model.ErrInvalidInput), convey.ShouldBeTrue)
		})

		convey.Convey("When neither date nor instant is set", func() {
			e := valid
			e.EventDate = ""
			convey.So(errors.Is(e.Validate(), model.ErrInvalidInput), convey.ShouldBeTrue)
		})

		convey.Convey("When only the instant is set", func() {
			e := valid
			e.EventDate = ""
			e.OccurredAt = time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC)

			convey.Convey("Then Normalize should derive the UTC day", func() {
				convey.So(e.Validate(), convey.ShouldBeNil)
				convey.So(e.Normalize().EventDate, convey.ShouldEqual, "2024-01-15")
			})
		})

		convey.Convey("When the date and the instant fall on different UTC days", func() {
			e := valid
			e.EventDate = "2024-01-01"
			e.OccurredAt = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

			convey.Convey("Then the event should be rejected", func() {
				convey.So(errors.Is(e.Validate(), model.ErrInvalidInput), convey.ShouldBeTrue)
				convey.So(errors.Is(e.Normalize().Validate(), model.ErrInvalidInput), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the instant is in another zone but on the same UTC day", func() {
			e := valid
			e.OccurredAt = time.Date(2024, 1, 14, 23, 0, 0, 0, time.FixedZone("x", -2*3600))
			convey.So(e.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestRate(t *testing.T) {
	convey.Convey("Given follow-up rate computation", t, func() {
		convey.So(model.Rate(0, 0), convey.ShouldEqual, 0)
		convey.So(model.Rate(3, 0), convey.ShouldEqual, 0)
		convey.So(model.Rate(1, 3), convey.ShouldEqual, 33)
		convey.So(model.Rate(2, 3), convey.ShouldEqual, 67)
		convey.So(model.Rate(5, 5), convey.ShouldEqual, 100)
	})
}

func TestErrorTaxonomy(t *testing.T) {
	convey.Convey("Given the entity mismatch error", t, func() {
		convey.Convey("Then it should also be an invalid input", func() {
			convey.So(errors.Is(model.ErrEntityMismatch, model.ErrInvalidInput), convey.ShouldBeTrue)
		})
	})
}
