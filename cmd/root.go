// Package cmd implements the command-line interface for anidl.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anisan-cli/anidl/color"
	"github.com/anisan-cli/anidl/constant"
	"github.com/anisan-cli/anidl/downloader"
	"github.com/anisan-cli/anidl/icon"
	"github.com/anisan-cli/anidl/key"
	"github.com/anisan-cli/anidl/log"
	"github.com/anisan-cli/anidl/style"
	"github.com/anisan-cli/anidl/version"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// exitCancelled is the conventional exit status after an interrupt.
const exitCancelled = 130

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, square)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().Bool("write-logs", false, "Write diagnostics to the log directory")
	lo.Must0(viper.BindPFlag(key.LogsWrite, rootCmd.PersistentFlags().Lookup("write-logs")))

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		version.Notify()
	})
}

// rootCmd defines the entry point for the anidl application.
var rootCmd = &cobra.Command{
	Use:   constant.Anidl,
	Short: "Download anime episodes from HLS playlists and progressive streams",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - Download anime episodes from HLS playlists and progressive streams"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		handleErr(cmd.Help())
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err == nil {
		return
	}

	if errors.Is(err, downloader.ErrCancelled) {
		log.Warn(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Cancel), "Download cancelled")
		os.Exit(exitCancelled)
	}

	log.Error(err)
	_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
	os.Exit(1)
}
