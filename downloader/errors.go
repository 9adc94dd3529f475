package downloader

import (
	"context"
	"errors"
	"fmt"
)

// ErrCancelled matches every error returned because the caller cancelled the download.
//
//	if errors.Is(err, downloader.ErrCancelled) { ... }
var ErrCancelled = errors.New("download cancelled")

// CancelledError is returned when the context passed to a download is done.
// Partial artifacts are already removed when it is returned.
type CancelledError struct {
	Cause error
}

func (e *CancelledError) Error() string {
	return ErrCancelled.Error()
}

func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled
}

func (e *CancelledError) Unwrap() error {
	return e.Cause
}

// DownloadError is a failed segment, a missing segment at merge time,
// an unexpected response or an ffmpeg failure.
type DownloadError struct {
	URL    string
	Reason string
	Err    error
}

func (e *DownloadError) Error() string {
	msg := e.Reason
	if e.URL != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.URL)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// UnsupportedPlaylistError is returned for playlists the segment downloader refuses to handle,
// such as master playlists when variant selection is disabled. It is never retried.
type UnsupportedPlaylistError struct {
	URL    string
	Reason string
}

func (e *UnsupportedPlaylistError) Error() string {
	return fmt.Sprintf("unsupported playlist (%s): %s", e.Reason, e.URL)
}

// fail turns err into a CancelledError when ctx is done.
func fail(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return &CancelledError{Cause: ctxErr}
	}

	return err
}
