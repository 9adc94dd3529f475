// Package downloader turns a resolved stream into a single file on disk.
//
// Download picks one of three strategies from the shape of the stream URL:
// a segmented HLS download, a direct progressive download, or ffmpeg as a last
// resort. It skips targets that already exist and optionally remuxes the result
// into another container. Strategies never fall back to each other.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/anisan-cli/anidl/filesystem"
	"github.com/anisan-cli/anidl/hls"
	"github.com/anisan-cli/anidl/key"
	"github.com/anisan-cli/anidl/log"
	"github.com/anisan-cli/anidl/muxer"
	"github.com/anisan-cli/anidl/network"
	"github.com/anisan-cli/anidl/source"
	"github.com/anisan-cli/anidl/util"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

// Muxer is the subset of *muxer.Muxer used by the downloader.
type Muxer interface {
	Probe(ctx context.Context, input string, headers map[string]string) (*muxer.Info, error)
	CopyTranscode(ctx context.Context, job muxer.Job, onProgress func(float64)) error
}

// Settings tunes the strategies.
type Settings struct {
	// Workers bounds the number of segments fetched at once.
	Workers int
	// ChunkSize is the read size, and progress granularity, of direct downloads.
	ChunkSize int
	// DefaultContainer is used when ffmpeg downloads a stream and no container was requested.
	DefaultContainer string
	// SelectVariant picks a rendition from master playlists instead of rejecting them.
	SelectVariant bool
}

// DefaultSettings matches the defaults registered in the config package.
var DefaultSettings = Settings{
	Workers:          12,
	ChunkSize:        32 * 1024,
	DefaultContainer: ".mkv",
}

// SettingsFromConfig reads the downloader.* keys.
func SettingsFromConfig() Settings {
	return Settings{
		Workers:          viper.GetInt(key.DownloaderWorkers),
		ChunkSize:        viper.GetInt(key.DownloaderChunkSize),
		DefaultContainer: viper.GetString(key.DownloaderDefaultContainer),
		SelectVariant:    viper.GetBool(key.DownloaderSelectVariant),
	}
}

// Downloader runs downloads. A Downloader may serve concurrent calls as long as
// they target different destinations.
type Downloader struct {
	client   *network.Client
	muxer    Muxer
	sink     Sink
	settings Settings
}

// New creates a Downloader. A nil sink discards updates and zero settings fall back to DefaultSettings.
func New(client *network.Client, mux Muxer, sink Sink, settings Settings) *Downloader {
	if sink == nil {
		sink = Discard
	}
	if settings.Workers <= 0 {
		settings.Workers = DefaultSettings.Workers
	}
	if settings.ChunkSize <= 0 {
		settings.ChunkSize = DefaultSettings.ChunkSize
	}
	if settings.DefaultContainer = normalizeExt(settings.DefaultContainer); settings.DefaultContainer == "" {
		settings.DefaultContainer = DefaultSettings.DefaultContainer
	}

	return &Downloader{
		client:   client,
		muxer:    mux,
		sink:     sink,
		settings: settings,
	}
}

// FromConfig creates a Downloader wired with the configured network client and ffmpeg.
func FromConfig(sink Sink) *Downloader {
	return New(network.New(network.OptionsFromConfig()), muxer.FromConfig(), sink, SettingsFromConfig())
}

// Strategy is the way a stream gets downloaded.
type Strategy int

const (
	Segmented Strategy = iota + 1
	Direct
	Muxed
)

func (s Strategy) String() string {
	switch s {
	case Segmented:
		return "segmented"
	case Direct:
		return "direct"
	case Muxed:
		return "ffmpeg"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Dispatch picks the strategy for url. HLS playlists go to the segment downloader
// unless forceMuxer is set, progressive mp4 files are fetched directly and
// everything else is handed to ffmpeg.
func Dispatch(url string, forceMuxer bool) Strategy {
	lower := strings.ToLower(url)

	switch {
	case strings.Contains(lower, "m3u8"):
		if forceMuxer {
			return Muxed
		}
		return Segmented
	case strings.Contains(lower, "mp4"):
		return Direct
	default:
		return Muxed
	}
}

// Options are the per-call choices of Download.
type Options struct {
	// Container, e.g. ".mkv", the result is remuxed into when it differs from what was downloaded.
	Container mo.Option[string]
	// ForceMuxer downloads HLS streams with ffmpeg instead of the segment downloader.
	ForceMuxer bool
}

// Result describes a finished download.
type Result struct {
	Path     string   `json:"path"`
	Strategy Strategy `json:"strategy"`
	// Skipped is set when the target already existed and nothing was downloaded.
	Skipped bool `json:"skipped"`
	Remuxed bool `json:"remuxed"`
}

// Download fetches stream into target, a path without extension. The extension of
// the returned path depends on the strategy and the requested container.
//
// If a file named after target with any extension already exists in the target
// directory, it is returned as is and no request is made.
func (d *Downloader) Download(ctx context.Context, stream *source.Stream, target string, options Options) (*Result, error) {
	container := normalizeExt(options.Container.OrEmpty())
	logger := log.WithFields(map[string]any{"target": target, "url": stream.URL})

	existing, ok, err := Existing(target)
	if err != nil {
		return nil, err
	}
	if ok {
		logger.Info("already downloaded")
		d.sink.Info(fmt.Sprintf("%s is already downloaded, skipping", filepath.Base(existing)))
		return &Result{Path: existing, Skipped: true}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Cause: err}
	}

	strategy := Dispatch(stream.URL, options.ForceMuxer)
	logger.WithField("strategy", strategy).Debug("starting download")

	var path string
	switch strategy {
	case Segmented:
		path, err = d.Segmented(ctx, stream, target)
	case Direct:
		path, err = d.Direct(ctx, stream, target)
	default:
		muxTo := container
		if muxTo == "" {
			muxTo = d.settings.DefaultContainer
		}
		path, err = d.Mux(ctx, stream, target, muxTo)
	}

	if err != nil {
		logger.WithField("strategy", strategy).Errorf("download failed: %v", err)
		return nil, err
	}

	result := &Result{Path: path, Strategy: strategy}
	if container == "" || strings.EqualFold(filepath.Ext(path), container) {
		return result, nil
	}

	remuxed, err := d.Remux(ctx, path, container)
	if err != nil {
		logger.Errorf("remux failed: %v", err)
		// a cancelled call leaves nothing behind, a failed remux keeps the download
		if errors.Is(err, ErrCancelled) {
			discard(path)
		}
		return nil, err
	}

	result.Path = remuxed
	result.Remuxed = true
	return result, nil
}

// Existing looks for a file in the target directory whose name without extension
// equals the base name of target. The directory is created when missing.
func Existing(target string) (path string, ok bool, err error) {
	fs := filesystem.API()
	dir, name := filepath.Split(target)
	if dir == "" {
		dir = "."
	}

	if err := fs.MkdirAll(dir, os.ModePerm); err != nil {
		return "", false, fmt.Errorf("create %s: %w", dir, err)
	}

	entries, err := fs.ReadDir(dir)
	if err != nil {
		return "", false, fmt.Errorf("list %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if util.FileStem(entry.Name()) == name {
			return filepath.Join(dir, entry.Name()), true, nil
		}
	}

	return "", false, nil
}

// Playlist fetches and parses the media playlist of stream, resolving master
// playlists when variant selection is enabled.
func (d *Downloader) Playlist(ctx context.Context, stream *source.Stream) (*hls.Playlist, error) {
	playlist, err := d.fetchPlaylist(ctx, stream.URL, stream.Headers())
	if err != nil {
		return nil, err
	}

	if playlist.IsVariant {
		if !d.settings.SelectVariant {
			return nil, &UnsupportedPlaylistError{URL: stream.URL, Reason: "variant playlist"}
		}

		variant, ok := playlist.SelectVariant(stream.Resolution)
		if !ok {
			return nil, &UnsupportedPlaylistError{URL: stream.URL, Reason: "variant playlist without renditions"}
		}

		d.sink.Info(fmt.Sprintf("Selected the %dp variant", variant.Height))
		if playlist, err = d.fetchPlaylist(ctx, variant.URI, stream.Headers()); err != nil {
			return nil, err
		}

		if playlist.IsVariant {
			return nil, &UnsupportedPlaylistError{URL: variant.URI, Reason: "nested variant playlist"}
		}
	}

	switch {
	case playlist.Encrypted:
		return nil, &UnsupportedPlaylistError{URL: stream.URL, Reason: "encrypted segments"}
	case playlist.ByteRange:
		return nil, &UnsupportedPlaylistError{URL: stream.URL, Reason: "byte-range segments"}
	case playlist.InitSections > 1:
		return nil, &UnsupportedPlaylistError{URL: stream.URL, Reason: "multiple init sections"}
	}

	return playlist, nil
}

func (d *Downloader) fetchPlaylist(ctx context.Context, url string, headers map[string]string) (*hls.Playlist, error) {
	text, final, err := d.client.GetText(ctx, url, headers)
	if err != nil {
		return nil, fail(ctx, &DownloadError{URL: url, Reason: "could not fetch playlist", Err: err})
	}

	playlist, err := hls.ParseString(text, final)
	if err != nil {
		return nil, &DownloadError{URL: url, Reason: "could not parse playlist", Err: err}
	}

	return playlist, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}
