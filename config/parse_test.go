package config

import (
	"errors"
	"testing"

	"github.com/anisan-cli/anidl/key"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Values from the command line should be typed by their defaults", t, func() {
		v, err := Parse(key.DownloaderWorkers, []string{"4"})
		So(err, ShouldBeNil)
		So(v, ShouldEqual, 4)

		v, err = Parse(key.DownloaderForceMuxer, []string{"true"})
		So(err, ShouldBeNil)
		So(v, ShouldEqual, true)

		v, err = Parse(key.NetworkRetryDelay, []string{"150ms"})
		So(err, ShouldBeNil)
		So(v, ShouldEqual, "150ms")
	})

	Convey("Invalid values should be rejected", t, func() {
		_, err := Parse(key.DownloaderWorkers, []string{"0"})
		So(err, ShouldNotBeNil)

		_, err = Parse(key.DownloaderWorkers, []string{"many"})
		So(err, ShouldNotBeNil)

		_, err = Parse(key.NetworkTimeout, []string{"soon"})
		So(err, ShouldNotBeNil)

		_, err = Parse(key.LogsLevel, []string{"loud"})
		So(err, ShouldNotBeNil)

		_, err = Parse(key.IconsVariant, []string{"ascii-art"})
		So(err, ShouldNotBeNil)

		_, err = Parse(key.DownloaderWorkers, nil)
		So(err, ShouldNotBeNil)
	})

	Convey("Unknown keys should be reported", t, func() {
		_, err := Parse("downloader.wokers", []string{"1"})
		So(errors.Is(err, ErrUnknownKey), ShouldBeTrue)
	})
}
