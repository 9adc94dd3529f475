package tui

import "github.com/anisan-cli/anidl/downloader"

type (
	progressMsg float64
	infoMsg     string
	doneMsg     struct {
		result *downloader.Result
		err    error
	}
)
