package tui

import (
	"context"
	"errors"
	"testing"

	"github.com/anisan-cli/anidl/downloader"
	"github.com/anisan-cli/anidl/filesystem"
	tea "github.com/charmbracelet/bubbletea"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBubble(t *testing.T) {
	Convey("Given a download view", t, func() {
		filesystem.SetMemMapFs()
		var cancelled bool
		b := newBubble(Options{Title: "EP1 1080p sub"}, func() { cancelled = true })

		Convey("Progress messages should move the bar", func() {
			b.Update(progressMsg(50))
			So(b.percent, ShouldEqual, 0.5)
			So(b.unknown, ShouldBeFalse)

			b.Update(progressMsg(downloader.Unknown))
			So(b.unknown, ShouldBeTrue)
			So(b.View(), ShouldContainSubstring, "progress unknown")
		})

		Convey("Only the latest infos should be kept", func() {
			for _, info := range []string{"one", "two", "three", "four"} {
				b.Update(infoMsg(info))
			}
			So(b.infos, ShouldResemble, []string{"two", "three", "four"})
		})

		Convey("ctrl+c should cancel the job once", func() {
			b.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
			So(cancelled, ShouldBeTrue)
			So(b.cancelling, ShouldBeTrue)
			So(b.View(), ShouldContainSubstring, "Cancelling")
		})

		Convey("A finished job should quit the program", func() {
			So(filesystem.API().WriteFile("/anime/ep1.mkv", make([]byte, 2048), 0o644), ShouldBeNil)

			_, cmd := b.Update(doneMsg{result: &downloader.Result{Path: "/anime/ep1.mkv"}})
			So(cmd, ShouldNotBeNil)
			So(b.done, ShouldBeTrue)
			So(b.View(), ShouldContainSubstring, "ep1.mkv")
			So(b.View(), ShouldContainSubstring, "2.0 kB")
		})

		Convey("A failed job should show the error", func() {
			b.Update(doneMsg{err: errors.New("segment 3 failed: https://cdn.example/3.ts")})
			So(b.View(), ShouldContainSubstring, "segment 3 failed")

			b.Update(doneMsg{err: &downloader.CancelledError{Cause: context.Canceled}})
			So(b.View(), ShouldContainSubstring, "Download cancelled")
		})
	})
}
