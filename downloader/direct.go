package downloader

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/anisan-cli/anidl/filesystem"
	"github.com/anisan-cli/anidl/log"
	"github.com/anisan-cli/anidl/source"
	"github.com/gabriel-vasile/mimetype"
)

// sniffLimit is how much of the body is kept for container detection.
const sniffLimit = 3072

var videoExts = map[string]string{
	".mp4":  ".mp4",
	".m4v":  ".mp4",
	".mkv":  ".mkv",
	".webm": ".webm",
	".mov":  ".mov",
	".avi":  ".avi",
	".flv":  ".flv",
}

// Direct streams a progressive file into target plus its detected container extension, ".mp4" by default.
func (d *Downloader) Direct(ctx context.Context, stream *source.Stream, target string) (string, error) {
	resp, err := d.client.Get(ctx, stream.URL, stream.Headers())
	if err != nil {
		return "", fail(ctx, &DownloadError{URL: stream.URL, Reason: "request failed", Err: err})
	}
	defer resp.Body.Close()

	const fallback = ".mp4"
	partial := partialPath(target, fallback)

	fs := filesystem.API()
	if err := fs.MkdirAll(filepath.Dir(partial), os.ModePerm); err != nil {
		return "", &DownloadError{URL: stream.URL, Reason: "could not create file", Err: err}
	}

	file, err := fs.OpenFile(partial, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.ModePerm)
	if err != nil {
		return "", &DownloadError{URL: stream.URL, Reason: "could not create file", Err: err}
	}

	var (
		total   = resp.ContentLength
		written int64
		sniff   bytes.Buffer
		buf     = make([]byte, d.settings.ChunkSize)
	)

	copyErr := func() error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			n, readErr := io.ReadFull(resp.Body, buf)
			if n > 0 {
				if _, err := file.Write(buf[:n]); err != nil {
					return &DownloadError{URL: stream.URL, Reason: "could not write file", Err: err}
				}

				if room := sniffLimit - sniff.Len(); room > 0 {
					sniff.Write(buf[:min(n, room)])
				}

				written += int64(n)
				if total > 0 {
					d.sink.Progress(min(float64(written)/float64(total)*100, 100))
				} else {
					d.sink.Progress(Unknown)
				}
			}

			switch readErr {
			case nil:
			case io.EOF, io.ErrUnexpectedEOF:
				return nil
			default:
				return &DownloadError{URL: stream.URL, Reason: "request failed", Err: readErr}
			}
		}
	}()

	if closeErr := file.Close(); copyErr == nil && closeErr != nil {
		copyErr = &DownloadError{URL: stream.URL, Reason: "could not write file", Err: closeErr}
	}

	if copyErr == nil && total > 0 && written < total {
		copyErr = &DownloadError{URL: stream.URL, Reason: "request failed", Err: io.ErrUnexpectedEOF}
	}

	if copyErr != nil {
		discard(partial)
		return "", fail(ctx, copyErr)
	}

	ext := fallback
	if detected, ok := videoExts[mimetype.Detect(sniff.Bytes()).Extension()]; ok {
		ext = detected
	}
	log.Debugf("detected container %s for %s", ext, stream.URL)

	return commit(partial, target, ext)
}
