package dedupe_test

import (
	"context"
	"fmt"
	"testing"

	dedupe "github.com/cprtrace/cprtrace/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeenAndRecord(t *testing.T) {
	Convey("Given an in-memory deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("When a case ID is recorded for the first time", func() {
			seen := d.SeenAndRecord(ctx, "case-1")

			Convey("Then it was not seen before", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And when the same ID is recorded again", func() {
				Convey("Then it reports as already seen", func() {
					So(d.SeenAndRecord(ctx, "case-1"), ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When an ID is unrecorded after a failed enqueue", func() {
			d.SeenAndRecord(ctx, "case-2")
			d.Unrecord(ctx, "case-2")

			Convey("Then it can be recorded again", func() {
				So(d.SeenAndRecord(ctx, "case-2"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown ID", func() {
			d.Unrecord(ctx, "never-seen")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestBoundedEviction(t *testing.T) {
	Convey("Given a deduper bounded to 3 IDs", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When a fourth ID is recorded", func() {
			for i := 1; i <= 4; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("case-%d", i))
			}

			Convey("Then the oldest ID was evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "case-1"), ShouldBeFalse)
			})
		})
	})
}
