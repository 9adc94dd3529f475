package downloader

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/anisan-cli/anidl/log"
	"github.com/anisan-cli/anidl/muxer"
	"github.com/anisan-cli/anidl/source"
)

// Mux lets ffmpeg fetch stream and copy it into target+container, muxing external subtitles alongside.
func (d *Downloader) Mux(ctx context.Context, stream *source.Stream, target, container string) (string, error) {
	container = normalizeExt(container)
	headers := stream.Headers()

	info, err := d.muxer.Probe(ctx, stream.URL, headers)
	if err != nil {
		if ctx.Err() != nil {
			return "", &CancelledError{Cause: ctx.Err()}
		}

		log.Warnf("probe %s: %v", stream.URL, err)
		info = nil
	}

	if info == nil || info.Duration == 0 {
		d.sink.Info("Duration unknown, progress unavailable")
	}

	labels := make([]string, 0, len(stream.Subtitles))
	for label := range stream.Subtitles {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	subtitles := make([]muxer.Subtitle, 0, len(labels))
	for _, label := range labels {
		subtitles = append(subtitles, muxer.Subtitle{Label: label, URL: stream.Subtitles[label].URL})
	}

	partial := partialPath(target, container)
	job := muxer.Job{
		Input:     stream.URL,
		Output:    partial,
		Headers:   headers,
		Subtitles: subtitles,
		Info:      info,
	}

	if err := d.muxer.CopyTranscode(ctx, job, d.sink.Progress); err != nil {
		discard(partial)
		return "", fail(ctx, &DownloadError{URL: stream.URL, Reason: "ffmpeg could not download the stream", Err: err})
	}

	return commit(partial, target, container)
}

// Remux copies the streams of a finished file into container and removes the original.
// It is a no-op when path already has that extension. On failure the original is kept.
func (d *Downloader) Remux(ctx context.Context, path, container string) (string, error) {
	container = normalizeExt(container)
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, container) {
		return path, nil
	}

	target := strings.TrimSuffix(path, ext)
	d.sink.Info(fmt.Sprintf("Remuxing to %s", container))

	info, err := d.muxer.Probe(ctx, path, nil)
	if err != nil {
		if ctx.Err() != nil {
			return "", &CancelledError{Cause: ctx.Err()}
		}

		log.Warnf("probe %s: %v", path, err)
		info = nil
	}

	partial := partialPath(target, container)
	job := muxer.Job{Input: path, Output: partial, Info: info}
	if err := d.muxer.CopyTranscode(ctx, job, d.sink.Progress); err != nil {
		discard(partial)
		return "", fail(ctx, &DownloadError{URL: path, Reason: "ffmpeg could not remux the file", Err: err})
	}

	remuxed, err := commit(partial, target, container)
	if err != nil {
		return "", err
	}

	discard(path)
	return remuxed, nil
}
