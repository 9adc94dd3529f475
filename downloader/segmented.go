package downloader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/anisan-cli/anidl/filesystem"
	"github.com/anisan-cli/anidl/hls"
	"github.com/anisan-cli/anidl/log"
	"github.com/anisan-cli/anidl/source"
	"github.com/anisan-cli/anidl/util"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

// Segmented downloads every segment of an HLS media playlist in parallel and
// concatenates them in playlist order into target plus the extension of the first segment.
//
// The first segment that fails after retries cancels the rest. Temporary files are
// removed whatever the outcome.
func (d *Downloader) Segmented(ctx context.Context, stream *source.Stream, target string) (string, error) {
	playlist, err := d.Playlist(ctx, stream)
	if err != nil {
		return "", err
	}

	if len(playlist.Segments) == 0 {
		return "", &DownloadError{URL: stream.URL, Reason: "playlist has no segments"}
	}

	fs := filesystem.API()
	dir, name := filepath.Split(target)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s-%s.segments", name, uuid.NewString()))
	if err := fs.MkdirAll(tmp, os.ModePerm); err != nil {
		return "", &DownloadError{URL: stream.URL, Reason: "could not create the segment directory", Err: err}
	}
	defer discard(tmp)

	var initFile string
	if playlist.Init != nil {
		if initFile, err = d.fetchInit(ctx, stream, playlist.Init.URI, tmp); err != nil {
			return "", fail(ctx, err)
		}
	}

	files, err := d.fetchSegments(ctx, stream, playlist.Segments, tmp)
	if err != nil {
		return "", fail(ctx, err)
	}

	ext := segmentExt(playlist.Segments[0].URI)
	partial := partialPath(target, ext)
	if err := merge(ctx, partial, initFile, playlist.Segments, files); err != nil {
		discard(partial)
		return "", fail(ctx, err)
	}

	return commit(partial, target, ext)
}

// fetchInit writes the fMP4 initialization section into dir.
func (d *Downloader) fetchInit(ctx context.Context, stream *source.Stream, uri, dir string) (string, error) {
	data, err := d.client.GetBytes(ctx, uri, stream.Headers())
	if err != nil {
		return "", &DownloadError{URL: uri, Reason: "init section failed", Err: err}
	}

	path := filepath.Join(dir, "init"+segmentExt(uri))
	if err := filesystem.API().WriteFile(path, data, os.ModePerm); err != nil {
		return "", &DownloadError{URL: uri, Reason: "could not write segment", Err: err}
	}

	return path, nil
}

// fetchSegments writes every segment into dir and returns their paths indexed by ordinal.
func (d *Downloader) fetchSegments(ctx context.Context, stream *source.Stream, segments []hls.Segment, dir string) ([]string, error) {
	var (
		fs      = filesystem.API()
		headers = stream.Headers()
		total   = len(segments)
		files   = make([]string, total)

		mu        sync.Mutex
		completed int
	)

	workers := util.Clamp(d.settings.Workers, 1, total)
	log.Debugf("fetching %s with %d workers", util.Quantify(total, "segment", "segments"), workers)

	p := pool.New().
		WithMaxGoroutines(workers).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()

	for _, segment := range segments {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := d.client.GetBytes(ctx, segment.URI, headers)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return &DownloadError{URL: segment.URI, Reason: fmt.Sprintf("segment %d failed", segment.Ordinal), Err: err}
			}

			path := filepath.Join(dir, segmentFilename(segment.Ordinal, segment.URI))
			if err := fs.WriteFile(path, data, os.ModePerm); err != nil {
				return &DownloadError{URL: segment.URI, Reason: "could not write segment", Err: err}
			}

			mu.Lock()
			defer mu.Unlock()

			files[segment.Ordinal] = path
			completed++
			d.sink.Progress(float64(completed) / float64(total) * 100)
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}

	return files, nil
}

// merge concatenates files into partial in segment order, preceded by init when set.
func merge(ctx context.Context, partial, init string, segments []hls.Segment, files []string) error {
	fs := filesystem.API()

	out, err := fs.Create(partial)
	if err != nil {
		return &DownloadError{URL: partial, Reason: "could not create file", Err: err}
	}
	defer out.Close()

	if init != "" {
		if err := appendFile(out, init); err != nil {
			return &DownloadError{URL: init, Reason: "could not merge, missing the init section", Err: err}
		}
	}

	for _, segment := range segments {
		if err := ctx.Err(); err != nil {
			return err
		}

		if segment.Ordinal >= len(files) || files[segment.Ordinal] == "" {
			return &DownloadError{URL: segment.URI, Reason: "could not merge, missing a segment"}
		}

		if err := appendFile(out, files[segment.Ordinal]); err != nil {
			return &DownloadError{URL: segment.URI, Reason: "could not merge, missing a segment", Err: err}
		}
	}

	if err := out.Close(); err != nil {
		return &DownloadError{URL: partial, Reason: "could not write file", Err: err}
	}

	return nil
}

func appendFile(dst io.Writer, path string) error {
	in, err := filesystem.API().Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	_, err = io.Copy(dst, in)
	return err
}
