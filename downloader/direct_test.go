package downloader

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/anisan-cli/anidl/filesystem"
	"github.com/anisan-cli/anidl/source"
	. "github.com/smartystreets/goconvey/convey"
)

// matroskaHeader is the start of an EBML header declaring the matroska doctype.
var matroskaHeader = []byte("\x1a\x45\xdf\xa3\x93\x42\x82\x88matroska\x42\x87\x81\x04")

func TestDirect(t *testing.T) {
	Convey("Given a progressive file server", t, func() {
		filesystem.SetMemMapFs()
		sink := &recordingSink{}
		d := newTestDownloader(nil, sink, Settings{ChunkSize: 256})
		body := bytes.Repeat([]byte{0x42}, 1000)

		Convey("When the length is known", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Length", strconv.Itoa(len(body)))
				_, _ = w.Write(body)
			}))
			defer server.Close()

			path, err := d.Direct(context.Background(), &source.Stream{URL: server.URL + "/ep1.mp4"}, "/anime/ep1")

			Convey("It should write the whole body", func() {
				So(err, ShouldBeNil)
				So(path, ShouldEqual, "/anime/ep1.mp4")

				data, err := filesystem.API().ReadFile(path)
				So(err, ShouldBeNil)
				So(data, ShouldResemble, body)
				So(listDir(t, "/anime"), ShouldResemble, []string{"ep1.mp4"})
			})

			Convey("It should report increasing progress ending at exactly 100", func() {
				progress := sink.Progresses()
				So(progress, ShouldHaveLength, 4)
				So(progress[0], ShouldAlmostEqual, 25.6, 0.001)
				for i := 1; i < len(progress); i++ {
					So(progress[i], ShouldBeGreaterThan, progress[i-1])
				}
				So(progress[len(progress)-1], ShouldEqual, 100)
			})
		})

		Convey("When the length is unknown", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for i := 0; i < 4; i++ {
					_, _ = w.Write(body[:250])
					w.(http.Flusher).Flush()
				}
			}))
			defer server.Close()

			path, err := d.Direct(context.Background(), &source.Stream{URL: server.URL + "/ep1.mp4"}, "/anime/ep1")

			Convey("It should report unknown progress", func() {
				So(err, ShouldBeNil)
				So(path, ShouldEqual, "/anime/ep1.mp4")

				progress := sink.Progresses()
				So(progress, ShouldNotBeEmpty)
				for _, p := range progress {
					So(p, ShouldEqual, Unknown)
				}
			})
		})

		Convey("When the body is a matroska file", func() {
			mkv := append(append([]byte{}, matroskaHeader...), body...)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write(mkv)
			}))
			defer server.Close()

			path, err := d.Direct(context.Background(), &source.Stream{URL: server.URL + "/ep1.mp4"}, "/anime/ep1")

			Convey("It should keep the detected container", func() {
				So(err, ShouldBeNil)
				So(path, ShouldEqual, "/anime/ep1.mkv")
			})
		})

		Convey("When the server refuses the request", func() {
			server := httptest.NewServer(http.NotFoundHandler())
			defer server.Close()

			_, err := d.Direct(context.Background(), &source.Stream{URL: server.URL + "/ep1.mp4"}, "/anime/ep1")

			Convey("It should fail with a download error", func() {
				var downloadErr *DownloadError
				So(errors.As(err, &downloadErr), ShouldBeTrue)
				So(downloadErr.Reason, ShouldEqual, "request failed")
				exists, _ := filesystem.API().Exists("/anime/ep1.mp4")
				So(exists, ShouldBeFalse)
			})
		})

		Convey("When the download is cancelled midway", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Length", "10000")
				_, _ = w.Write(body)
				w.(http.Flusher).Flush()

				select {
				case <-r.Context().Done():
				case <-time.After(5 * time.Second):
				}
			}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sink.onUpdate = func(float64) { cancel() }

			_, err := d.Direct(ctx, &source.Stream{URL: server.URL + "/ep1.mp4"}, "/anime/ep1")

			Convey("It should remove the partial file", func() {
				So(errors.Is(err, ErrCancelled), ShouldBeTrue)
				So(listDir(t, "/anime"), ShouldBeEmpty)
			})
		})
	})
}
