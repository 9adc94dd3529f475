package version

import (
	"context"
	"fmt"
	"time"

	"github.com/anisan-cli/anidl/color"
	"github.com/anisan-cli/anidl/constant"
	"github.com/anisan-cli/anidl/icon"
	"github.com/anisan-cli/anidl/key"
	"github.com/anisan-cli/anidl/log"
	"github.com/anisan-cli/anidl/style"
	"github.com/anisan-cli/anidl/util"
	"github.com/spf13/viper"
)

// Notify displays a terminal alert if a more recent stable application version is available.
func Notify() {
	if !viper.GetBool(key.CliVersionCheck) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	erase := util.PrintErasable(fmt.Sprintf("%s Checking if new version is available...", icon.Get(icon.Progress)))
	version, err := Latest(ctx)
	erase()
	if err != nil {
		log.Debugf("version check: %v", err)
		return
	}

	if comp, err := Compare(version, constant.Version); err != nil || comp <= 0 {
		return
	}

	fmt.Printf(`
%s New version is available %s %s
%s

`,
		style.Fg(color.Green)("▇▇▇"),
		style.Bold(version),
		style.Faint(fmt.Sprintf("(You're on %s)", constant.Version)),
		style.Faint("https://github.com/anisan-cli/anidl/releases/tag/v"+version),
	)
}
