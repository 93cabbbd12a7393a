package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/recsys-go/internal/config"
	"golang.org/x/term"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// embedProgressMsg reports rows embedded so far.
type embedProgressMsg struct {
	done  int
	total int
}

// workDoneMsg carries the result of the work behind the display.
type workDoneMsg struct {
	err error
}

// progressModel is the bubbletea model for embedding progress.
type progressModel struct {
	title    string
	progress progress.Model
	theme    Theme
	cancel   context.CancelFunc
	start    time.Time
	done     int
	total    int
	finished bool
	quitting bool
	err      error
}

func newProgressModel(title string, cancel context.CancelFunc) progressModel {
	return progressModel{
		title: title,
		progress: progress.New(
			progress.WithDefaultBlend(),
			progress.WithWidth(40),
		),
		theme:  defaultTheme,
		cancel: cancel,
		start:  time.Now(),
	}
}

// Init returns the initial command.
func (m progressModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case embedProgressMsg:
		m.done, m.total = msg.done, msg.total
		return m, nil

	case workDoneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	if m.finished || m.quitting {
		return m.finalView()
	}

	var pct float64
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.title))
	counts := fmt.Sprintf("%d/%d anime", m.done, m.total)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")

	return fmt.Sprintf("%s %s %s\n%s\n", status, m.progress.ViewAs(pct), counts, hint)
}

func (m progressModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nCancelled.\n")
	}
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Failed: %s\n", m.err))
	}
	elapsed := time.Since(m.start).Round(time.Second)
	return m.theme.completedStyle().Render(fmt.Sprintf("✓ Embedded %d anime in %s\n", m.total, elapsed))
}

// progressFunc receives embedding progress.
type progressFunc func(done, total int)

// withProgress runs fn, showing embedding progress in the terminal when
// stderr is a TTY and logging it otherwise. The console log handler is muted
// while the display is active; the log file still receives every record.
func withProgress(ctx context.Context, title string, enabled bool, fn func(ctx context.Context, report progressFunc) error) error {
	if !enabled || !term.IsTerminal(int(os.Stderr.Fd())) {
		return fn(ctx, logProgress())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prev := slog.Default()
	quiet, closeQuiet := config.SetupLogger(cfg, io.Discard)
	slog.SetDefault(quiet)
	defer func() {
		slog.SetDefault(prev)
		_ = closeQuiet()
	}()

	p := tea.NewProgram(newProgressModel(title, cancel), tea.WithOutput(os.Stderr))

	errCh := make(chan error, 1)
	go func() {
		err := fn(ctx, func(done, total int) {
			p.Send(embedProgressMsg{done: done, total: total})
		})
		errCh <- err
		p.Send(workDoneMsg{err: err})
	}()

	finalModel, uiErr := p.Run()
	if uiErr != nil {
		cancel()
		<-errCh
		return fmt.Errorf("progress UI error: %w", uiErr)
	}

	err := <-errCh
	if m, ok := finalModel.(progressModel); ok && m.quitting && errors.Is(err, context.Canceled) {
		return fmt.Errorf("cancelled by user: %w", err)
	}
	return err
}

// logProgress logs embedding progress about every tenth of the total.
func logProgress() progressFunc {
	next := 0
	return func(done, total int) {
		if done < next && done != total {
			return
		}
		slog.Info("embedding progress", "done", done, "total", total)
		next = done + max(total/10, 1)
	}
}
