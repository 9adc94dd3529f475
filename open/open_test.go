package open

import (
	"testing"

	"github.com/anisan-cli/anidl/constant"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCommand(t *testing.T) {
	Convey("The default handler should depend on the platform", t, func() {
		cmd, err := command(constant.Linux, "/anime/ep1.mkv", "")
		So(err, ShouldBeNil)
		So(cmd.Args, ShouldResemble, []string{"xdg-open", "/anime/ep1.mkv"})

		cmd, err = command(constant.Darwin, "/anime/ep1.mkv", "")
		So(err, ShouldBeNil)
		So(cmd.Args, ShouldResemble, []string{"open", "/anime/ep1.mkv"})
	})

	Convey("An explicit application should be used when given", t, func() {
		cmd, err := command(constant.Linux, "/anime/ep1.mkv", "mpv")
		So(err, ShouldBeNil)
		So(cmd.Args, ShouldResemble, []string{"mpv", "/anime/ep1.mkv"})

		cmd, err = command(constant.Darwin, "/anime/ep1.mkv", "IINA")
		So(err, ShouldBeNil)
		So(cmd.Args, ShouldResemble, []string{"open", "-a", "IINA", "/anime/ep1.mkv"})
	})

	Convey("Unknown platforms should be reported", t, func() {
		_, err := command("plan9", "/anime/ep1.mkv", "")
		So(err, ShouldNotBeNil)
	})
}
