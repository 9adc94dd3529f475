package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"

	"github.com/anisan-cli/anidl/color"
	"github.com/anisan-cli/anidl/muxer"
	"github.com/anisan-cli/anidl/style"
	"github.com/anisan-cli/anidl/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().String("referrer", "", "Referer header required by the stream host")
	probeCmd.Flags().BoolP("json", "j", false, "Print the probe result as JSON")
	probeCmd.SetOut(os.Stdout)
}

var probeCmd = &cobra.Command{
	Use:   "probe <url|file>",
	Short: "Show the duration and streams ffprobe reports for a stream or file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(CheckDependencies())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var headers map[string]string
		if referrer := lo.Must(cmd.Flags().GetString("referrer")); referrer != "" {
			headers = map[string]string{"Referer": referrer}
		}

		info, err := muxer.FromConfig().Probe(ctx, args[0], headers)
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(info))
			return
		}

		header := style.New().Bold(true).Foreground(color.Purple).Render
		duration := style.Faint("unknown")
		if info.Duration > 0 {
			duration = info.Duration.String()
		}

		cmd.Printf("%s %s\n", header("Duration"), duration)
		cmd.Printf("%s %s\n", header("Streams"), util.Quantify(len(info.Streams), "stream", "streams"))
		for _, s := range info.Streams {
			cmd.Printf("  #%d %s %s\n", s.Index, style.Fg(color.Yellow)(s.CodecType), s.CodecName)
		}

		if n := info.Subtitles(); n > 0 {
			cmd.Printf("%s %s\n", header("Subtitles"), util.Quantify(n, "track", "tracks"))
		}
	},
}
