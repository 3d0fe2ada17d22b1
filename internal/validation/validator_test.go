package validation_test

import (
	"testing"

	"github.com/okian/marquee/internal/validation"
	. "github.com/smartystreets/goconvey/convey"
)

type sample struct {
	Name  string `validate:"required"`
	Mode  string `validate:"oneof=a b"`
	Count int    `validate:"gt=0"`
}

func TestStruct(t *testing.T) {
	Convey("Given a struct with validation tags", t, func() {
		Convey("When every field is valid", func() {
			err := validation.Struct(sample{Name: "x", Mode: "a", Count: 1})

			Convey("Then no error is returned", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When several fields are invalid", func() {
			err := validation.Struct(sample{Mode: "c"})

			Convey("Then each failure is named and described", func() {
				So(err, ShouldNotBeNil)
				So(validation.HasField(err, "Name"), ShouldBeTrue)
				So(validation.HasField(err, "Mode"), ShouldBeTrue)
				So(validation.HasField(err, "Count"), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "Name is required")
				So(err.Error(), ShouldContainSubstring, "Mode must be one of: a b")
				So(err.Error(), ShouldContainSubstring, "Count must be greater than 0")
			})
		})

		Convey("When the error is not a validation error", func() {
			So(validation.HasField(nil, "Name"), ShouldBeFalse)
		})
	})

	Convey("The shared validator is a singleton", t, func() {
		So(validation.Get(), ShouldEqual, validation.Get())
	})
}
