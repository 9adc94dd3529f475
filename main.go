// Package main is the entry point for the anidl application.
package main

import (
	"github.com/anisan-cli/anidl/cmd"
	"github.com/anisan-cli/anidl/config"
	"github.com/anisan-cli/anidl/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())
	cmd.Execute()
}
