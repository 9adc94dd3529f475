// Package inline reports downloads as plain lines, for pipes, scripts and dumb terminals.
package inline

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/anisan-cli/anidl/downloader"
	"github.com/anisan-cli/anidl/icon"
)

// Sink writes one line per info message and one per progress step.
type Sink struct {
	// Step is the minimal percentage between two printed progress lines.
	Step float64

	mu      sync.Mutex
	out     io.Writer
	last    float64
	unknown bool
}

// NewSink creates a Sink writing to out.
func NewSink(out io.Writer, step float64) *Sink {
	return &Sink{out: out, Step: step, last: -math.MaxFloat64}
}

func (s *Sink) Progress(percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if percent == downloader.Unknown {
		if !s.unknown {
			s.unknown = true
			fmt.Fprintf(s.out, "%s downloading, size unknown\n", icon.Get(icon.Progress))
		}
		return
	}

	if percent < 100 && percent-s.last < s.Step {
		return
	}

	if percent == s.last {
		return
	}

	s.last = percent
	fmt.Fprintf(s.out, "%s %5.1f%%\n", icon.Get(icon.Progress), percent)
}

func (s *Sink) Info(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.out, "%s %s\n", icon.Get(icon.Info), message)
}
