package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/anisan-cli/anidl/downloader"
	"github.com/anisan-cli/anidl/icon"
	"github.com/anisan-cli/anidl/inline"
	"github.com/anisan-cli/anidl/key"
	"github.com/anisan-cli/anidl/open"
	"github.com/anisan-cli/anidl/source"
	"github.com/anisan-cli/anidl/tui"
	"github.com/anisan-cli/anidl/util"
	"github.com/anisan-cli/anidl/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(downloadCmd)

	f := downloadCmd.Flags()
	f.IntP("resolution", "r", 0, "Vertical resolution of the stream, used for naming and variant selection")
	f.Float64P("episode", "e", 0, "Episode number, used for naming")
	f.StringP("language", "l", "sub", "Audio language of the stream: sub or dub")
	f.String("referrer", "", "Referer header required by the stream host")
	f.StringToStringP("subtitle", "s", map[string]string{}, "External subtitle tracks to mux in, as label=url")

	f.StringP("output", "o", "", "Destination path without extension")
	f.StringP("title", "t", "", "Title used to name the file with the filename template")

	f.StringP("dir", "d", "", "Directory to download into when no --output is given")
	lo.Must0(viper.BindPFlag(key.DownloaderDirectory, f.Lookup("dir")))

	f.StringP("container", "c", "", "Remux the result into this container, e.g. mkv")
	lo.Must0(viper.BindPFlag(key.DownloaderContainer, f.Lookup("container")))

	f.Bool("force-muxer", false, "Download HLS streams with ffmpeg")
	lo.Must0(viper.BindPFlag(key.DownloaderForceMuxer, f.Lookup("force-muxer")))

	f.IntP("workers", "w", 0, "Segments fetched in parallel")
	lo.Must0(viper.BindPFlag(key.DownloaderWorkers, f.Lookup("workers")))

	f.Bool("select-variant", false, "Pick a variant from master playlists instead of failing")
	lo.Must0(viper.BindPFlag(key.DownloaderSelectVariant, f.Lookup("select-variant")))

	f.BoolP("json", "j", false, "Print the outcome as JSON to stdout")
	f.Bool("open", false, "Open the file once downloaded")
	f.String("open-with", "", "Application to open the file with")
	f.Bool("reveal", false, "Show the file in the file manager once downloaded")

	downloadCmd.MarkFlagsMutuallyExclusive("output", "title")
	downloadCmd.MarkFlagsMutuallyExclusive("open", "reveal")
}

var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Download a resolved stream to disk",
	Long: `Download a resolved stream to disk.

HLS playlists are fetched segment by segment, progressive mp4 files are streamed directly
and anything else is handed to ffmpeg. Files that already exist are skipped.`,
	Example: `  anidl download https://cdn.example/ep5/index.m3u8 -t "Frieren" -e 5 -r 1080
  anidl download https://cdn.example/ep5.mp4 -o ~/anime/frieren-05 -c mkv --json`,
	Args:    cobra.ExactArgs(1),
	Aliases: []string{"dl"},
	Run: func(cmd *cobra.Command, args []string) {
		stream, err := streamFromFlags(cmd, args[0])
		handleErr(err)

		target := targetFromFlags(cmd, stream)
		options := downloader.Options{
			Container:  optional(viper.GetString(key.DownloaderContainer)),
			ForceMuxer: viper.GetBool(key.DownloaderForceMuxer),
		}

		if options.Container.IsPresent() || downloader.Dispatch(stream.URL, options.ForceMuxer) == downloader.Muxed {
			handleErr(CheckDependencies())
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		asJson := lo.Must(cmd.Flags().GetBool("json"))
		result, err := runDownload(ctx, stream, target, options, asJson)

		if asJson {
			if jsonErr := inline.WriteJSON(os.Stdout, inline.NewReport(stream, target, result, err)); jsonErr != nil {
				handleErr(jsonErr)
			}
		}
		handleErr(err)

		if !asJson {
			printResult(result)
		}

		switch app := lo.Must(cmd.Flags().GetString("open-with")); {
		case app != "" || lo.Must(cmd.Flags().GetBool("open")):
			handleErr(open.File(result.Path, app))
		case lo.Must(cmd.Flags().GetBool("reveal")):
			handleErr(open.Folder(result.Path))
		}
	},
}

func runDownload(ctx context.Context, stream *source.Stream, target string, options downloader.Options, asJson bool) (*downloader.Result, error) {
	if !asJson && viper.GetBool(key.CliProgressBar) && util.IsTerminal(os.Stderr) {
		return tui.Run(ctx, tui.Options{Title: stream.String(), Target: target}, func(ctx context.Context, sink downloader.Sink) (*downloader.Result, error) {
			return downloader.FromConfig(sink).Download(ctx, stream, target, options)
		})
	}

	return downloader.FromConfig(inline.NewSink(os.Stderr, 10)).Download(ctx, stream, target, options)
}

func streamFromFlags(cmd *cobra.Command, url string) (*source.Stream, error) {
	language, err := source.ParseLanguage(lo.Must(cmd.Flags().GetString("language")))
	if err != nil {
		return nil, err
	}

	stream := &source.Stream{
		URL:        url,
		Resolution: lo.Must(cmd.Flags().GetInt("resolution")),
		Episode:    lo.Must(cmd.Flags().GetFloat64("episode")),
		Language:   language,
		Referrer:   optional(lo.Must(cmd.Flags().GetString("referrer"))),
	}

	for label, subtitle := range lo.Must(cmd.Flags().GetStringToString("subtitle")) {
		if stream.Subtitles == nil {
			stream.Subtitles = make(map[string]source.Subtitle)
		}
		stream.Subtitles[label] = source.Subtitle{URL: subtitle, Format: strings.TrimPrefix(filepath.Ext(subtitle), ".")}
	}

	return stream, nil
}

// targetFromFlags resolves the destination without extension: --output as is,
// otherwise the filename template applied to --title, falling back to the URL's file name.
func targetFromFlags(cmd *cobra.Command, stream *source.Stream) string {
	if output := lo.Must(cmd.Flags().GetString("output")); output != "" {
		return output
	}

	name := util.FileStem(strings.SplitN(stream.URL, "?", 2)[0])
	if title := lo.Must(cmd.Flags().GetString("title")); title != "" {
		name = stream.Filename(viper.GetString(key.DownloaderFilenameTemplate), title)
	}

	if name = util.SanitizeFilename(name); name == "" {
		name = "episode"
	}

	return filepath.Join(where.Downloads(), name)
}

func printResult(result *downloader.Result) {
	if result.Skipped {
		fmt.Printf("%s %s already exists\n", icon.Get(icon.Skip), result.Path)
		return
	}

	fmt.Printf("%s Saved %s\n", icon.Get(icon.Success), result.Path)
}

func optional(s string) mo.Option[string] {
	if s == "" {
		return mo.None[string]()
	}
	return mo.Some(s)
}
