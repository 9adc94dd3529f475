// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/anisan-cli/anidl/color"
	"github.com/anisan-cli/anidl/constant"
	"github.com/anisan-cli/anidl/key"
	"github.com/anisan-cli/anidl/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Anidl + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

// typeName returns the string representation of the field's underlying value type.
func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	case []int:
		return "[]int"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
		EnvExposed = append(EnvExposed, k)
	}

	// Download Engine
	register(key.DownloaderWorkers, 12, "Number of HLS segments fetched concurrently")
	register(key.DownloaderChunkSize, 32*1024, "Chunk size in bytes used when streaming progressive files.\nProgress is reported once per chunk")
	register(key.DownloaderContainer, "", "Container to remux finished downloads into (e.g. .mkv, .mp4).\nLeave empty to keep whatever the stream produced")
	register(key.DownloaderDefaultContainer, ".mkv", "Container used when ffmpeg downloads the stream itself")
	register(key.DownloaderForceMuxer, false, "Download HLS streams with ffmpeg instead of the built-in segment downloader")
	register(key.DownloaderSelectVariant, false, "Pick the variant closest to the requested resolution when given a master playlist.\nWhen disabled master playlists are rejected")
	register(key.DownloaderDirectory, "", "Directory used by \"download --title\". Defaults to the user's Downloads directory")
	register(key.DownloaderFilenameTemplate, "{title}_EP{episode}_{resolution}p_{language}", "Filename template for \"download --title\".\nAvailable fields: {title}, {episode}, {resolution}, {language}")

	// Network
	register(key.NetworkRetries, 3, "Attempts per request before a transient network failure is reported")
	register(key.NetworkRetryDelay, "300ms", "Initial delay between retries, doubled on every attempt")
	register(key.NetworkRetryMaxDelay, "2s", "Upper bound for the delay between retries")
	register(key.NetworkTimeout, "30s", "Time to wait for response headers. Bodies are never cut short")
	register(key.NetworkTLSFingerprint, false, "Use a browser TLS fingerprint for HTTPS requests.\nHelps with CDNs that block Go's default handshake")

	// External tools
	register(key.FFmpegPath, "ffmpeg", "Path or name of the ffmpeg executable")
	register(key.FFprobePath, "ffprobe", "Path or name of the ffprobe executable")

	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")

	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.LogsMaxSize, 10, "Maximum size in megabytes of a log file before it is rotated")
	register(key.LogsMaxBackups, 5, "Number of rotated log files to keep")
	register(key.LogsMaxAge, 14, "Days to keep rotated log files")

	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Enable automatic version check")
	register(key.CliProgressBar, true, "Show an interactive progress bar when attached to a terminal")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
