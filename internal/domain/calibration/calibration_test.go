package calibration_test

import (
	"testing"
	"time"

	calibration "github.com/cprtrace/cprtrace/internal/domain/calibration"
	model "github.com/cprtrace/cprtrace/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStoreOffset(t *testing.T) {
	Convey("Given a calibration store with paired readings", t, func() {
		ref := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		store := calibration.New(map[model.Observer]model.CalibrationPair{
			model.Observer1: {
				Key:       model.Recorded(ref.Add(2500 * time.Millisecond)),
				Reference: model.Recorded(ref),
			},
			model.Observer2: {
				Key:       model.Recorded(ref.Add(-3 * time.Second)),
				Reference: model.Recorded(ref),
			},
			model.Observer3: {
				Key:       model.Unset(),
				Reference: model.Recorded(ref),
			},
		})

		Convey("When the observer's device runs ahead of the AED", func() {
			offset, ok := store.Offset(model.Observer1)

			Convey("Then the offset is key minus reference", func() {
				So(ok, ShouldBeTrue)
				So(offset, ShouldEqual, 2500*time.Millisecond)
			})
		})

		Convey("When the observer's device runs behind the AED", func() {
			offset, ok := store.Offset(model.Observer2)

			Convey("Then the offset is negative", func() {
				So(ok, ShouldBeTrue)
				So(offset, ShouldEqual, -3*time.Second)
			})
		})

		Convey("When one side of the pair is unset", func() {
			_, ok := store.Offset(model.Observer3)

			Convey("Then no offset is available", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the observer has no pair at all", func() {
			empty := calibration.New(nil)
			_, ok := empty.Offset(model.Observer1)

			Convey("Then no offset is available", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the pair carries a skipped marker", func() {
			skip := calibration.New(map[model.Observer]model.CalibrationPair{
				model.Observer1: {
					Key:       model.Skipped(),
					Reference: model.Recorded(ref),
				},
			})
			_, ok := skip.Offset(model.Observer1)

			Convey("Then no offset is available", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}
