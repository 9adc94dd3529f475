// Package muxer drives ffprobe and ffmpeg as child processes.
//
// It is used to download streams the built-in downloaders can not handle
// and to remux finished files into another container. Every stream is copied,
// nothing is re-encoded.
package muxer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/anisan-cli/anidl/constant"
	"github.com/anisan-cli/anidl/key"
	"github.com/anisan-cli/anidl/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// execCommand is swapped in tests to run a fake ffmpeg.
var execCommand = exec.CommandContext

// waitDelay bounds how long Wait blocks for output pipes after the process was killed.
const waitDelay = 5 * time.Second

// ExitError describes an ffmpeg or ffprobe invocation that did not succeed.
type ExitError struct {
	Tool   string
	Err    error
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Muxer locates and runs the ffmpeg suite.
type Muxer struct {
	FFmpeg  string
	FFprobe string
}

// New returns a Muxer using the given executables.
func New(ffmpeg, ffprobe string) *Muxer {
	return &Muxer{FFmpeg: ffmpeg, FFprobe: ffprobe}
}

// FromConfig returns a Muxer using the ffmpeg.path and ffprobe.path settings.
func FromConfig() *Muxer {
	return New(viper.GetString(key.FFmpegPath), viper.GetString(key.FFprobePath))
}

// LookPath verifies both executables can be found. It returns the name of the first missing one.
func (m *Muxer) LookPath() (missing string, err error) {
	for _, tool := range []string{m.FFmpeg, m.FFprobe} {
		if _, err := exec.LookPath(tool); err != nil {
			return tool, err
		}
	}
	return "", nil
}

// Stream is a single elementary stream reported by ffprobe.
type Stream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Duration  string `json:"duration"`
}

// Info is the subset of ffprobe's output the downloader needs.
type Info struct {
	// Duration is zero when neither the container nor any stream reports one.
	Duration time.Duration
	Streams  []Stream
}

// Subtitles counts the subtitle streams already present in the input.
func (i *Info) Subtitles() int {
	return lo.CountBy(i.Streams, func(s Stream) bool {
		return s.CodecType == "subtitle"
	})
}

// Probe queries container and stream metadata for input, a URL or a local path.
func (m *Muxer) Probe(ctx context.Context, input string, headers map[string]string) (*Info, error) {
	args := []string{"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams"}
	args = append(args, networkArgs(input, headers)...)
	args = append(args, input)

	cmd := m.command(ctx, m.FFprobe, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debugf("running %s %s", m.FFprobe, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ExitError{Tool: "ffprobe", Err: err, Stderr: strings.TrimSpace(stderr.String())}
	}

	var output struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []Stream `json:"streams"`
	}

	if err := json.Unmarshal(stdout.Bytes(), &output); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	info := &Info{Streams: output.Streams, Duration: parseSeconds(output.Format.Duration)}
	if info.Duration == 0 {
		for _, s := range output.Streams {
			info.Duration = max(info.Duration, parseSeconds(s.Duration))
		}
	}

	return info, nil
}

// Subtitle is an extra subtitle input muxed next to the main input.
type Subtitle struct {
	Label string
	URL   string
}

// Job describes a single stream-copy invocation.
type Job struct {
	Input  string
	Output string
	// Headers are sent with every network input.
	Headers   map[string]string
	Subtitles []Subtitle
	// Info is the probe result for Input, if any. It provides the duration used for
	// progress and the number of subtitle streams already in the input.
	Info *Info
}

// CopyTranscode runs ffmpeg, copying every stream of job.Input into job.Output.
//
// onProgress receives elapsed / duration * 100, or UnknownProgress when the
// duration is unknown. It is called on the calling goroutine. Cancelling ctx
// kills ffmpeg together with its process group. Removing the partial output is
// left to the caller.
func (m *Muxer) CopyTranscode(ctx context.Context, job Job, onProgress func(float64)) error {
	args := transcodeArgs(job)

	cmd := m.command(ctx, m.FFmpeg, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}

	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr

	log.Debugf("running %s %s", m.FFmpeg, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return &ExitError{Tool: "ffmpeg", Err: err}
	}

	var total time.Duration
	if job.Info != nil {
		total = job.Info.Duration
	}
	scanProgress(stdout, total, onProgress)

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &ExitError{Tool: "ffmpeg", Err: err, Stderr: stderr.String()}
	}

	return nil
}

func (m *Muxer) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := execCommand(ctx, name, args...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Cancel = func() error {
		return killProcess(cmd)
	}
	cmd.WaitDelay = waitDelay
	return cmd
}

func transcodeArgs(job Job) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-loglevel", "error",
		"-progress", "pipe:1", "-nostats",
	}

	args = append(args, networkArgs(job.Input, job.Headers)...)
	args = append(args, "-i", job.Input)

	for _, sub := range job.Subtitles {
		args = append(args, networkArgs(sub.URL, job.Headers)...)
		args = append(args, "-i", sub.URL)
	}

	args = append(args, "-map", "0")
	for i := range job.Subtitles {
		args = append(args, "-map", strconv.Itoa(i+1))
	}

	args = append(args, "-c:v", "copy", "-c:a", "copy", "-c:s", "copy")

	offset := 0
	if job.Info != nil {
		offset = job.Info.Subtitles()
	}
	for i, sub := range job.Subtitles {
		if sub.Label == "" {
			continue
		}
		args = append(args, fmt.Sprintf("-metadata:s:s:%d", offset+i), "title="+sub.Label)
	}

	return append(args, job.Output)
}

// networkArgs returns the ffmpeg options carrying the user agent and headers for URL inputs.
func networkArgs(input string, headers map[string]string) []string {
	if !isURL(input) {
		return nil
	}

	args := []string{"-user_agent", constant.UserAgent}
	if len(headers) == 0 {
		return args
	}

	names := lo.Keys(headers)
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\r\n", name, headers[name])
	}

	return append(args, "-headers", b.String())
}

func isURL(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func parseSeconds(s string) time.Duration {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(string(t.buf))
}

// IsExitError reports whether err came from a failed ffmpeg or ffprobe run.
func IsExitError(err error) bool {
	var exit *ExitError
	return errors.As(err, &exit)
}
