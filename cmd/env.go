package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anisan-cli/anidl/color"
	"github.com/anisan-cli/anidl/config"
	"github.com/anisan-cli/anidl/style"
	"github.com/anisan-cli/anidl/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().BoolP("set-only", "s", false, "Display only environment variables that are currently defined")
	envCmd.Flags().BoolP("unset-only", "u", false, "Display only environment variables that are currently undefined")
	envCmd.Flags().BoolP("json", "j", false, "Print the variables as a JSON array")

	envCmd.MarkFlagsMutuallyExclusive("set-only", "unset-only")
}

type envVar struct {
	Name    string `json:"name"`
	Key     string `json:"key,omitempty"`
	Value   string `json:"value,omitempty"`
	Default any    `json:"default,omitempty"`
	Set     bool   `json:"set"`
}

// envVars lists every variable the engine reads, sorted by name.
func envVars() []envVar {
	vars := []envVar{{Name: where.EnvConfigPath}}
	for _, field := range config.Default {
		vars = append(vars, envVar{Name: field.Env(), Key: field.Key, Default: field.Value})
	}

	for i := range vars {
		vars[i].Value, vars[i].Set = os.LookupEnv(vars[i].Name)
	}

	slices.SortFunc(vars, func(a, b envVar) int {
		return strings.Compare(a.Name, b.Name)
	})
	return vars
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Display the collection of supported environment variables",
	Long:  `Display every environment variable that overrides a setting, with its current process value.`,
	Run: func(cmd *cobra.Command, args []string) {
		setOnly := lo.Must(cmd.Flags().GetBool("set-only"))
		unsetOnly := lo.Must(cmd.Flags().GetBool("unset-only"))

		vars := lo.Filter(envVars(), func(v envVar, _ int) bool {
			return !(setOnly && !v.Set) && !(unsetOnly && v.Set)
		})

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(vars))
			return
		}

		name := style.New().Bold(true).Foreground(color.Purple)
		for _, v := range vars {
			cmd.Print(name.Render(v.Name), "=")

			switch {
			case v.Set:
				cmd.Println(style.Fg(color.Green)(v.Value))
			case v.Key != "":
				cmd.Println(style.Fg(color.Red)("unset"), style.Faint(fmt.Sprintf("(default %v)", v.Default)))
			default:
				cmd.Println(style.Fg(color.Red)("unset"))
			}
		}
	},
}
