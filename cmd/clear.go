package cmd

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/anisan-cli/anidl/downloader"
	"github.com/anisan-cli/anidl/icon"
	"github.com/anisan-cli/anidl/util"
	"github.com/anisan-cli/anidl/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

// clearTarget defines a filesystem resource eligible for cleanup.
type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	location func() ([]string, error)
}

func directory(where func() string) func() ([]string, error) {
	return func() ([]string, error) {
		return []string{where()}, nil
	}
}

var clearTargets = []clearTarget{
	{"cache directory", "cache", mo.Some("c"), directory(where.Cache)},
	{"log directory", "logs", mo.Some("l"), directory(where.Logs)},
	{"unfinished downloads", "partials", mo.Some("p"), func() ([]string, error) {
		return downloader.Leftovers(where.Downloads())
	}},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if target.argShort.IsPresent() {
			clearCmd.Flags().BoolP(target.argLong, target.argShort.MustGet(), false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}

	clearCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached, logged and temporary application artifacts",
	Run: func(cmd *cobra.Command, args []string) {
		selected := lo.Filter(clearTargets, func(target clearTarget, _ int) bool {
			return lo.Must(cmd.Flags().GetBool(target.argLong))
		})

		if len(selected) == 0 {
			handleErr(cmd.Help())
			return
		}

		if !lo.Must(cmd.Flags().GetBool("yes")) {
			names := lo.Map(selected, func(target clearTarget, _ int) string { return target.name })

			var confirmed bool
			handleErr(survey.AskOne(&survey.Confirm{
				Message: fmt.Sprintf("Remove the %s?", strings.Join(names, ", ")),
				Default: false,
			}, &confirmed))

			if !confirmed {
				return
			}
		}

		for _, target := range selected {
			paths, err := target.location()
			handleErr(err)

			e := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), target.name))
			for _, path := range paths {
				if err := util.Delete(path); err != nil {
					e()
					handleErr(fmt.Errorf("clear %s: %w", target.name, err))
				}
			}
			e()

			fmt.Printf("%s %s cleared\n", icon.Get(icon.Success), util.Capitalize(target.name))
		}
	},
}
