package log

import (
	"testing"

	"github.com/anisan-cli/anidl/filesystem"
	"github.com/anisan-cli/anidl/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Given logging is disabled", t, func() {
		viper.Set(key.LogsWrite, false)

		Convey("Setup should be a no-op", func() {
			So(Setup(), ShouldBeNil)
			So(enabled, ShouldBeFalse)
		})

		Convey("Emitting should not panic", func() {
			So(func() {
				Info("hello")
				Debugf("segment %d", 3)
				WithFields(map[string]any{"url": "https://example.com"}).Warn("ignored")
			}, ShouldNotPanic)
		})
	})
}
