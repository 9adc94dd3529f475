package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/anisan-cli/anidl/color"
	"github.com/anisan-cli/anidl/downloader"
	"github.com/anisan-cli/anidl/filesystem"
	"github.com/anisan-cli/anidl/icon"
	"github.com/anisan-cli/anidl/style"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wrap"
)

// maxInfos is how many status messages stay visible.
const maxInfos = 3

var paddingStyle = lipgloss.NewStyle().Padding(1, 2)

type statefulBubble struct {
	options Options
	keymap  *keymap
	cancel  context.CancelFunc

	spinnerC  spinner.Model
	progressC progress.Model
	helpC     help.Model

	percent    float64
	unknown    bool
	infos      []string
	cancelling bool

	done   bool
	result *downloader.Result
	err    error

	width int
}

func newBubble(options Options, cancel context.CancelFunc) *statefulBubble {
	bubble := &statefulBubble{
		options: options,
		keymap:  newKeymap(),
		cancel:  cancel,
		helpC:   help.New(),
		width:   80,
	}

	bubble.spinnerC = spinner.New()
	bubble.spinnerC.Spinner = spinner.Dot
	bubble.spinnerC.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	bubble.progressC = progress.New(progress.WithDefaultGradient())
	bubble.resize(bubble.width)

	return bubble
}

func (b *statefulBubble) Init() tea.Cmd {
	return b.spinnerC.Tick
}

func (b *statefulBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width)
	case tea.KeyMsg:
		if key.Matches(msg, b.keymap.cancel) && !b.cancelling && !b.done {
			b.cancelling = true
			b.cancel()
		}
	case progressMsg:
		if msg < 0 {
			b.unknown = true
		} else {
			b.unknown = false
			b.percent = float64(msg) / 100
		}
	case infoMsg:
		b.infos = append(b.infos, string(msg))
		if len(b.infos) > maxInfos {
			b.infos = b.infos[len(b.infos)-maxInfos:]
		}
	case doneMsg:
		b.done = true
		b.result, b.err = msg.result, msg.err
		return b, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinnerC, cmd = b.spinnerC.Update(msg)
		return b, cmd
	}

	return b, nil
}

func (b *statefulBubble) resize(width int) {
	b.width = width
	b.progressC.Width = max(width-paddingStyle.GetHorizontalPadding()-2, 10)
	b.helpC.Width = width
}

func (b *statefulBubble) View() string {
	switch {
	case b.done && b.err != nil:
		return b.viewError()
	case b.done:
		return b.viewDone()
	default:
		return b.viewProgress()
	}
}

func (b *statefulBubble) viewProgress() string {
	title := style.Title("Downloading")
	if b.cancelling {
		title = style.ErrorTitle("Cancelling")
	}

	bar := b.progressC.ViewAs(b.percent)
	if b.unknown {
		bar = b.spinnerC.View() + " " + style.Faint("progress unknown")
	}

	lines := []string{
		title,
		"",
		style.Truncate(b.width)(fmt.Sprintf("%s %s", icon.Get(icon.Download), style.Fg(color.Purple)(b.options.Title))),
		"",
		bar,
		"",
	}

	for _, info := range b.infos {
		lines = append(lines, style.Faint(info))
	}

	lines = append(lines, "", b.helpC.View(b.keymap))
	return paddingStyle.Render(strings.Join(lines, "\n"))
}

func (b *statefulBubble) viewDone() string {
	path := b.result.Path

	message := fmt.Sprintf("%s Saved %s", icon.Get(icon.Success), style.Fg(color.Green)(filepath.Base(path)))
	if b.result.Skipped {
		message = fmt.Sprintf("%s %s already exists", icon.Get(icon.Skip), style.Fg(color.Yellow)(filepath.Base(path)))
	}

	if stat, err := filesystem.API().Stat(path); err == nil {
		message += style.Faint(fmt.Sprintf(" (%s)", humanize.Bytes(uint64(stat.Size()))))
	}

	return paddingStyle.Render(strings.Join([]string{
		style.Title("Done"),
		"",
		message,
		style.Faint(filepath.Dir(path)),
	}, "\n"))
}

func (b *statefulBubble) viewError() string {
	if errors.Is(b.err, downloader.ErrCancelled) {
		return paddingStyle.Render(fmt.Sprintf("%s Download cancelled", icon.Get(icon.Cancel)))
	}

	errorStyle := lipgloss.NewStyle().Foreground(color.Red).Bold(true)
	errorMsg := wrap.String(errorStyle.Render(b.err.Error()), max(b.width-paddingStyle.GetHorizontalPadding(), 20))

	return paddingStyle.Render(strings.Join([]string{
		style.ErrorTitle("Error"),
		"",
		icon.Get(icon.Fail) + " The download failed:",
		"",
		errorMsg,
	}, "\n"))
}
