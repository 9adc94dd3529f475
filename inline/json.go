package inline

import (
	"encoding/json"
	"io"

	"github.com/anisan-cli/anidl/downloader"
	"github.com/anisan-cli/anidl/source"
)

// Report is the machine readable outcome of a download, printed with --json.
type Report struct {
	Stream   *source.Stream `json:"stream" jsonschema:"description=The stream that was requested."`
	Target   string         `json:"target" jsonschema:"description=Destination path without extension."`
	Path     string         `json:"path,omitempty" jsonschema:"description=Path of the finished file. Missing on failure."`
	Strategy string         `json:"strategy,omitempty" jsonschema:"enum=segmented,enum=direct,enum=ffmpeg,description=How the stream was fetched. Missing for skipped downloads."`
	Skipped  bool           `json:"skipped" jsonschema:"description=Whether the file already existed."`
	Remuxed  bool           `json:"remuxed" jsonschema:"description=Whether the file was copied into another container afterwards."`
	Error    string         `json:"error,omitempty" jsonschema:"description=Failure message."`
}

// NewReport describes the outcome of downloading stream into target.
func NewReport(stream *source.Stream, target string, result *downloader.Result, err error) *Report {
	report := &Report{Stream: stream, Target: target}

	if result != nil {
		report.Path = result.Path
		report.Skipped = result.Skipped
		report.Remuxed = result.Remuxed
		if !result.Skipped {
			report.Strategy = result.Strategy.String()
		}
	}

	if err != nil {
		report.Error = err.Error()
	}

	return report
}

// WriteJSON writes report as indented JSON followed by a newline.
func WriteJSON(out io.Writer, report *Report) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
