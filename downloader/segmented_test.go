package downloader

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/anisan-cli/anidl/filesystem"
	"github.com/anisan-cli/anidl/hls"
	"github.com/anisan-cli/anidl/source"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSegmented(t *testing.T) {
	Convey("Given a media playlist of three segments", t, func() {
		filesystem.SetMemMapFs()
		sink := &recordingSink{}
		d := newTestDownloader(nil, sink, Settings{Workers: 2})

		Convey("When the segments arrive in playlist order", func() {
			server := newMediaServer(
				segment{size: 100},
				segment{size: 200, delay: 10 * time.Millisecond},
				segment{size: 150, delay: 20 * time.Millisecond},
			)
			defer server.Close()

			path, err := d.Segmented(context.Background(), &source.Stream{URL: server.URL + "/index.m3u8"}, "/anime/ep1")

			Convey("It should concatenate them into a single file", func() {
				So(err, ShouldBeNil)
				So(path, ShouldEqual, "/anime/ep1.ts")

				data, err := filesystem.API().ReadFile(path)
				So(err, ShouldBeNil)
				So(len(data), ShouldEqual, 450)
				So(string(data), ShouldEqual, strings.Repeat("a", 100)+strings.Repeat("b", 200)+strings.Repeat("c", 150))
			})

			Convey("It should report progress once per segment", func() {
				progress := sink.Progresses()
				So(progress, ShouldHaveLength, 3)
				So(progress[0], ShouldAlmostEqual, 100.0/3, 0.01)
				So(progress[1], ShouldAlmostEqual, 200.0/3, 0.01)
				So(progress[2], ShouldEqual, 100)
			})

			Convey("It should leave no temporary files behind", func() {
				So(listDir(t, "/anime"), ShouldResemble, []string{"ep1.ts"})
			})
		})

		Convey("When the last segment arrives first", func() {
			server := newMediaServer(
				segment{size: 100, delay: 40 * time.Millisecond},
				segment{size: 200, delay: 20 * time.Millisecond},
				segment{size: 150},
			)
			defer server.Close()

			wide := newTestDownloader(nil, sink, Settings{Workers: 3})
			path, err := wide.Segmented(context.Background(), &source.Stream{URL: server.URL + "/index.m3u8"}, "/anime/ep1")

			Convey("It should still merge them by ordinal", func() {
				So(err, ShouldBeNil)

				data, err := filesystem.API().ReadFile(path)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, strings.Repeat("a", 100)+strings.Repeat("b", 200)+strings.Repeat("c", 150))

				progress := sink.Progresses()
				So(progress, ShouldHaveLength, 3)
				So(progress[0], ShouldAlmostEqual, 100.0/3, 0.01)
				So(progress[1], ShouldAlmostEqual, 200.0/3, 0.01)
				So(progress[2], ShouldEqual, 100)
			})
		})

		Convey("When a segment is missing on the server", func() {
			server := newMediaServer(segment{size: 100}, segment{size: 200}, segment{size: 150})
			defer server.Close()
			server.Handle("/seg/1.ts", http.NotFound)

			_, err := d.Segmented(context.Background(), &source.Stream{URL: server.URL + "/index.m3u8"}, "/anime/ep1")

			Convey("It should fail with a download error and clean up", func() {
				var downloadErr *DownloadError
				So(errors.As(err, &downloadErr), ShouldBeTrue)
				So(downloadErr.Reason, ShouldEqual, "segment 1 failed")
				So(downloadErr.URL, ShouldEndWith, "/seg/1.ts")
				So(errors.Is(err, ErrCancelled), ShouldBeFalse)
				So(listDir(t, "/anime"), ShouldBeEmpty)
			})
		})

		Convey("When the download is cancelled after the first segment", func() {
			server := newMediaServer(
				segment{size: 100},
				segment{size: 200, delay: 5 * time.Second},
				segment{size: 150, delay: 5 * time.Second},
			)
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sink.onUpdate = func(float64) { cancel() }

			start := time.Now()
			_, err := d.Segmented(ctx, &source.Stream{URL: server.URL + "/index.m3u8"}, "/anime/ep1")

			Convey("It should stop promptly with a cancellation error", func() {
				So(errors.Is(err, ErrCancelled), ShouldBeTrue)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)

				var downloadErr *DownloadError
				So(errors.As(err, &downloadErr), ShouldBeFalse)
				So(time.Since(start), ShouldBeLessThan, 4*time.Second)
			})

			Convey("It should remove the temporary directory and never create the target", func() {
				So(listDir(t, "/anime"), ShouldBeEmpty)
			})
		})

		Convey("When the playlist is empty", func() {
			server := newMediaServer()
			defer server.Close()

			_, err := d.Segmented(context.Background(), &source.Stream{URL: server.URL + "/index.m3u8"}, "/anime/ep1")

			Convey("It should fail with a download error", func() {
				var downloadErr *DownloadError
				So(errors.As(err, &downloadErr), ShouldBeTrue)
				So(downloadErr.Reason, ShouldEqual, "playlist has no segments")
			})
		})
	})
}

func TestPlaylistKinds(t *testing.T) {
	Convey("Given playlists the segment downloader may refuse", t, func() {
		filesystem.SetMemMapFs()
		sink := &recordingSink{}

		server := newMediaServer(segment{size: 10}, segment{size: 20})
		defer server.Close()

		server.Handle("/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("#EXTM3U\n" +
				"#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360\nlow.m3u8\n" +
				"#EXT-X-STREAM-INF:BANDWIDTH=5000000,RESOLUTION=1920x1080\nindex.m3u8\n"))
		})
		server.Handle("/key.m3u8", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("#EXTM3U\n#EXT-X-KEY:METHOD=AES-128,URI=\"key.bin\"\n#EXTINF:10,\nseg/0.ts\n#EXT-X-ENDLIST\n"))
		})

		server.Handle("/fmp4.m3u8", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("#EXTM3U\n#EXT-X-MAP:URI=\"init.mp4\"\n#EXTINF:10,\nseg/0.m4s\n#EXTINF:10,\nseg/1.m4s\n#EXT-X-ENDLIST\n"))
		})
		server.Handle("/init.mp4", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("moov"))
		})
		server.Handle("/seg/0.m4s", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("frag0"))
		})
		server.Handle("/seg/1.m4s", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("frag1"))
		})
		server.Handle("/ranges.m3u8", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("#EXTM3U\n#EXTINF:10,\n#EXT-X-BYTERANGE:1000@0\nseg/0.ts\n#EXT-X-ENDLIST\n"))
		})
		server.Handle("/maps.m3u8", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("#EXTM3U\n#EXT-X-MAP:URI=\"a.mp4\"\n#EXTINF:10,\nseg/0.m4s\n" +
				"#EXT-X-DISCONTINUITY\n#EXT-X-MAP:URI=\"b.mp4\"\n#EXTINF:10,\nseg/1.m4s\n#EXT-X-ENDLIST\n"))
		})

		Convey("An fMP4 playlist should be merged behind its init section", func() {
			d := newTestDownloader(nil, sink, Settings{})
			path, err := d.Segmented(context.Background(), &source.Stream{URL: server.URL + "/fmp4.m3u8"}, "/anime/ep1")

			So(err, ShouldBeNil)
			So(path, ShouldEqual, "/anime/ep1.mp4")
			data, err := filesystem.API().ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "moovfrag0frag1")
			So(listDir(t, "/anime"), ShouldResemble, []string{"ep1.mp4"})
		})

		Convey("Byte-range and multi-init playlists should be rejected", func() {
			d := newTestDownloader(nil, sink, Settings{})
			for playlist, reason := range map[string]string{
				"/ranges.m3u8": "byte-range segments",
				"/maps.m3u8":   "multiple init sections",
			} {
				_, err := d.Segmented(context.Background(), &source.Stream{URL: server.URL + playlist}, "/anime/ep1")

				var unsupported *UnsupportedPlaylistError
				So(errors.As(err, &unsupported), ShouldBeTrue)
				So(unsupported.Reason, ShouldEqual, reason)
			}
		})

		Convey("A master playlist should be rejected by default", func() {
			d := newTestDownloader(nil, sink, Settings{})
			_, err := d.Segmented(context.Background(), &source.Stream{URL: server.URL + "/master.m3u8"}, "/anime/ep1")

			var unsupported *UnsupportedPlaylistError
			So(errors.As(err, &unsupported), ShouldBeTrue)
			So(unsupported.Reason, ShouldEqual, "variant playlist")

			exists, _ := filesystem.API().Exists("/anime")
			So(exists, ShouldBeFalse)
		})

		Convey("A master playlist should be resolved when variant selection is on", func() {
			d := newTestDownloader(nil, sink, Settings{SelectVariant: true})
			path, err := d.Segmented(context.Background(), &source.Stream{URL: server.URL + "/master.m3u8", Resolution: 1080}, "/anime/ep1")

			So(err, ShouldBeNil)
			data, err := filesystem.API().ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, strings.Repeat("a", 10)+strings.Repeat("b", 20))
			So(sink.Infos(), ShouldContain, "Selected the 1080p variant")
		})

		Convey("An encrypted playlist should be rejected", func() {
			d := newTestDownloader(nil, sink, Settings{})
			_, err := d.Segmented(context.Background(), &source.Stream{URL: server.URL + "/key.m3u8"}, "/anime/ep1")

			var unsupported *UnsupportedPlaylistError
			So(errors.As(err, &unsupported), ShouldBeTrue)
			So(unsupported.Reason, ShouldEqual, "encrypted segments")
		})
	})
}

func TestMerge(t *testing.T) {
	Convey("Given downloaded segment files", t, func() {
		filesystem.SetMemMapFs()
		fs := filesystem.API()
		So(fs.WriteFile("/tmp/00000_a.ts", []byte("first"), 0o644), ShouldBeNil)
		So(fs.WriteFile("/tmp/00001_b.ts", []byte("second"), 0o644), ShouldBeNil)

		segments := []hls.Segment{{URI: "a.ts", Ordinal: 0}, {URI: "b.ts", Ordinal: 1}}

		Convey("They should be merged in ordinal order", func() {
			err := merge(context.Background(), "/out.ts", "", segments, []string{"/tmp/00000_a.ts", "/tmp/00001_b.ts"})
			So(err, ShouldBeNil)

			data, _ := fs.ReadFile("/out.ts")
			So(string(data), ShouldEqual, "firstsecond")
		})

		Convey("An init section should be written first", func() {
			So(fs.WriteFile("/tmp/init.mp4", []byte("moov"), 0o644), ShouldBeNil)
			err := merge(context.Background(), "/out.mp4", "/tmp/init.mp4", segments, []string{"/tmp/00000_a.ts", "/tmp/00001_b.ts"})
			So(err, ShouldBeNil)

			data, _ := fs.ReadFile("/out.mp4")
			So(string(data), ShouldEqual, "moovfirstsecond")
		})

		Convey("A segment without a file should fail the merge", func() {
			err := merge(context.Background(), "/out.ts", "", segments, []string{"/tmp/00000_a.ts", ""})

			var downloadErr *DownloadError
			So(errors.As(err, &downloadErr), ShouldBeTrue)
			So(downloadErr.Reason, ShouldEqual, "could not merge, missing a segment")
		})

		Convey("A segment file removed before merging should fail the merge", func() {
			So(fs.Remove("/tmp/00001_b.ts"), ShouldBeNil)
			err := merge(context.Background(), "/out.ts", "", segments, []string{"/tmp/00000_a.ts", "/tmp/00001_b.ts"})

			var downloadErr *DownloadError
			So(errors.As(err, &downloadErr), ShouldBeTrue)
			So(downloadErr.Reason, ShouldEqual, "could not merge, missing a segment")
		})
	})
}

func TestSegmentFilename(t *testing.T) {
	Convey("Segment files should sort in playlist order", t, func() {
		So(segmentFilename(3, "https://cdn.example/hls/seg-3.ts?token=x"), ShouldEqual, "00003_seg-3.ts")
		So(segmentFilename(12, "https://cdn.example/hls/chunk.m4s"), ShouldEqual, "00012_chunk.mp4")
		So(segmentFilename(0, "https://cdn.example/"), ShouldEqual, "00000_segment.ts")
		So(segmentExt("https://cdn.example/a/b.jpg"), ShouldEqual, ".ts")
	})
}
