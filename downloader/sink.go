package downloader

// Unknown is reported as the percentage when the total size or duration is not known.
const Unknown = -1.0

// Sink receives progress updates. Implementations must be safe for concurrent
// use and must return quickly, since segment workers call them directly.
type Sink interface {
	// Progress receives a completion percentage between 0 and 100, or Unknown.
	Progress(percent float64)
	// Info receives a human-readable status message.
	Info(message string)
}

// SinkFuncs adapts plain functions to a Sink. Nil functions are skipped.
type SinkFuncs struct {
	OnProgress func(percent float64)
	OnInfo     func(message string)
}

func (s SinkFuncs) Progress(percent float64) {
	if s.OnProgress != nil {
		s.OnProgress(percent)
	}
}

func (s SinkFuncs) Info(message string) {
	if s.OnInfo != nil {
		s.OnInfo(message)
	}
}

// Discard ignores every update.
var Discard Sink = SinkFuncs{}
