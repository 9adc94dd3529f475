package cmd

import (
	"fmt"
	"runtime"

	"github.com/anisan-cli/anidl/icon"
	"github.com/anisan-cli/anidl/muxer"
	"github.com/anisan-cli/anidl/style"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that ffmpeg and ffprobe can be found",
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(CheckDependencies())
		fmt.Printf("%s ffmpeg and ffprobe are available\n", icon.Get(icon.Success))
	},
}

// CheckDependencies verifies that the configured ffmpeg and ffprobe binaries exist,
// printing installation hints when one is missing.
func CheckDependencies() error {
	missing, err := muxer.FromConfig().LookPath()
	if err != nil {
		printMissingDependencyError(missing)
		return fmt.Errorf("%s not found: %w", missing, err)
	}

	return nil
}

func printMissingDependencyError(dep string) {
	var installCmd string
	switch runtime.GOOS {
	case "darwin":
		installCmd = "brew install ffmpeg"
	case "linux":
		installCmd = "sudo apt install ffmpeg"
	case "windows":
		installCmd = "scoop install ffmpeg"
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.ErrorColor).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(style.ErrorColor).Render(fmt.Sprintf("%s Error: Missing Dependency", icon.Get(icon.Fail)))
	body := style.New().Foreground(style.Text).Render(fmt.Sprintf("'%s' was not found. Install ffmpeg or set ffmpeg.path and ffprobe.path.", dep))

	suggestion := ""
	if installCmd != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render(installCmd))
	}

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
