// Package tui renders a running download as a full-width progress view.
package tui

import (
	"context"
	"errors"
	"os"

	"github.com/anisan-cli/anidl/downloader"
	tea "github.com/charmbracelet/bubbletea"
)

// Job starts the download, reporting to sink. It must return once ctx is cancelled.
type Job func(ctx context.Context, sink downloader.Sink) (*downloader.Result, error)

// Options describe what is being downloaded.
type Options struct {
	// Title is shown above the progress bar, e.g. the episode and resolution.
	Title string
	// Target is the destination without extension.
	Target string
}

// Run executes job while rendering its progress to stderr. Whatever ends the view,
// ctrl+c, a signal or a finished job, Run returns only after job has returned.
func Run(ctx context.Context, options Options, job Job) (*downloader.Result, error) {
	return run(ctx, options, job, tea.WithOutput(os.Stderr))
}

func run(ctx context.Context, options Options, job Job, programOptions ...tea.ProgramOption) (*downloader.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bubble := newBubble(options, cancel)
	program := tea.NewProgram(bubble, programOptions...)

	finished := make(chan doneMsg, 1)
	go func() {
		result, err := job(ctx, &programSink{program: program})
		done := doneMsg{result: result, err: err}
		finished <- done
		program.Send(done)
	}()

	_, runErr := program.Run()

	// the view may quit first (SIGTERM, SIGINT, a failed terminal), the job still owns its artifacts
	cancel()
	done := <-finished

	switch {
	case done.err == nil:
		return done.result, nil
	case runErr != nil && !errors.Is(runErr, tea.ErrInterrupted) && !errors.Is(runErr, tea.ErrProgramKilled):
		return nil, runErr
	default:
		return done.result, done.err
	}
}

// programSink forwards updates from download workers to the program loop.
// Sends return immediately once the program has stopped.
type programSink struct {
	program *tea.Program
}

func (s *programSink) Progress(percent float64) {
	s.program.Send(progressMsg(percent))
}

func (s *programSink) Info(message string) {
	s.program.Send(infoMsg(message))
}
