package model_test

import (
	"testing"
	"time"

	model "github.com/cprtrace/cprtrace/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParseTimePoint(t *testing.T) {
	convey.Convey("Given raw wire values for a time field", t, func() {
		convey.Convey("When the value is empty", func() {
			tp := model.ParseTimePoint("")

			convey.Convey("Then the point is unset", func() {
				convey.So(tp.State, convey.ShouldEqual, model.StateUnset)
				convey.So(tp.IsRecorded(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the value is the not-applicable sentinel", func() {
			tp := model.ParseTimePoint(model.SentinelNotApplicable)

			convey.Convey("Then the point is skipped", func() {
				convey.So(tp.State, convey.ShouldEqual, model.StateSkipped)
				convey.So(tp.IsRecorded(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the value is a valid RFC3339 instant", func() {
			tp := model.ParseTimePoint("2024-03-01T10:00:00Z")

			convey.Convey("Then the point is recorded with that instant", func() {
				convey.So(tp.State, convey.ShouldEqual, model.StateRecorded)
				convey.So(tp.At, convey.ShouldEqual, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
			})
		})

		convey.Convey("When the value is unparsable", func() {
			tp := model.ParseTimePoint("10 o'clock-ish")

			convey.Convey("Then the point degrades to unset, never errors", func() {
				convey.So(tp.State, convey.ShouldEqual, model.StateUnset)
			})
		})
	})
}

func TestObservationVariants(t *testing.T) {
	convey.Convey("Given the tagged observation variants", t, func() {
		at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

		convey.Convey("When wrapping a direct time field", func() {
			obs := model.DirectObservation(model.Recorded(at))

			convey.Convey("Then it is not multi-observer", func() {
				convey.So(obs.Multi, convey.ShouldBeFalse)
				convey.So(obs.Direct.At, convey.ShouldEqual, at)
			})
		})

		convey.Convey("When wrapping three observer candidates", func() {
			obs := model.MultiObserverObservation(model.Unset(), model.Recorded(at), model.Skipped())

			convey.Convey("Then candidates map to observer identities in priority order", func() {
				convey.So(obs.Multi, convey.ShouldBeTrue)
				convey.So(obs.Candidate(model.Observer1).State, convey.ShouldEqual, model.StateUnset)
				convey.So(obs.Candidate(model.Observer2).At, convey.ShouldEqual, at)
				convey.So(obs.Candidate(model.Observer3).State, convey.ShouldEqual, model.StateSkipped)
			})
		})
	})
}

func TestEventKeyValid(t *testing.T) {
	convey.Convey("Given timeline event keys", t, func() {
		convey.Convey("Then all listed keys are valid", func() {
			for _, k := range model.EventKeys {
				convey.So(k.Valid(), convey.ShouldBeTrue)
			}
		})

		convey.Convey("Then an unknown key is invalid", func() {
			convey.So(model.EventKey("coffee_break").Valid(), convey.ShouldBeFalse)
		})
	})
}
