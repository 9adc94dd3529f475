// Package icon renders the status symbols printed next to download results.
package icon

import (
	"github.com/anisan-cli/anidl/key"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	kaomoji = "kaomoji"
	squares = "squares"
)

// iconDef holds one symbol in every variant.
type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	kaomoji string
	squares string
}

var variants = map[string]func(*iconDef) string{
	emoji:   func(d *iconDef) string { return d.emoji },
	nerd:    func(d *iconDef) string { return d.nerd },
	plain:   func(d *iconDef) string { return d.plain },
	kaomoji: func(d *iconDef) string { return d.kaomoji },
	squares: func(d *iconDef) string { return d.squares },
}

// AvailableVariants lists the accepted values of icons.variant.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, kaomoji, squares}
}

// Get renders i in the configured variant. Unknown variants render nothing.
func Get(i Icon) string {
	def, ok := icons[i]
	if !ok {
		return ""
	}

	render, ok := variants[viper.GetString(key.IconsVariant)]
	if !ok {
		return ""
	}

	return render(def)
}

// Valid reports whether variant is one of AvailableVariants.
func Valid(variant string) bool {
	return lo.Contains(AvailableVariants(), variant)
}
