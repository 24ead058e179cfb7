package cli

import (
	"context"
	"fmt"
	"os"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/raphaelgruber/stockroom-go/internal/models"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

// Style functions for dynamic theming
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

// statsMsg carries the running stats after each chunk round trip.
type statsMsg models.Stats

// doneMsg signals that the driving loop finished.
type doneMsg struct {
	stats models.Stats
	err   error
}

// progressModel is the bubbletea model for chunk-driven job progress.
// Unlike a polled job, updates arrive pushed from the driver goroutine
// after every chunk response.
type progressModel struct {
	label     string
	stats     models.Stats
	haveStats bool
	progress  progress.Model
	theme     Theme
	done      bool
	quitting  bool
	err       error
	cancel    context.CancelFunc
}

// newProgressModel creates a new progress model.
func newProgressModel(label string, cancel context.CancelFunc) progressModel {
	// Create progress bar with color blend
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		label:    label,
		progress: prog,
		theme:    defaultTheme,
		cancel:   cancel,
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

	case statsMsg:
		m.stats = models.Stats(msg)
		m.haveStats = true
		return m, nil

	case doneMsg:
		m.stats = msg.stats
		m.err = msg.err
		m.done = true
		return m, tea.Quit

	case progress.FrameMsg:
		// Update progress bar animation
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

// renderContent builds the display string.
func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if !m.haveStats {
		return fmt.Sprintf("Sending first chunk (%s)...\n", m.label)
	}

	pct := m.stats.Progress / 100
	if pct > 1 {
		pct = 1
	}

	// Status line with color
	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.stats.Status))

	// Progress bar with counts
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d units", m.stats.Processed(), m.stats.Total)
	if n := len(m.stats.Errors); n > 0 {
		counts += m.theme.errorStyle().Render(fmt.Sprintf(" (%d rejected)", n))
	}

	hint := m.theme.hintStyle().Render("Press Ctrl+C to abort; partial progress is kept in the stats file")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nAborted. The saved stats file holds the progress so far.\n")
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ %s failed: %s\n", m.label, m.err))
	}

	var output string
	output += m.theme.completedStyle().Render("✓ Completed") + "\n\n"
	output += fmt.Sprintf("  Units processed: %d\n", m.stats.Processed())
	output += fmt.Sprintf("  Accepted:        %d\n", m.stats.Completed)
	if n := len(m.stats.Errors); n > 0 {
		output += m.theme.errorStyle().Render(fmt.Sprintf("  Rejected:        %d\n", n))
		output += m.theme.hintStyle().Render("\nUse 'stockroom errors' on the saved stats file for details.\n")
	}
	return output
}

// driveFunc runs a whole chunked job, calling onProgress after every
// chunk with the running stats.
type driveFunc func(ctx context.Context, onProgress func(models.Stats)) (models.Stats, error)

// runWithProgress runs a chunked job with an interactive progress bar
// when stdout is a terminal, or plain per-chunk log lines otherwise.
// The returned stats is the last state the job reached, even on error.
func runWithProgress(ctx context.Context, label string, drive driveFunc) (models.Stats, error) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return drive(ctx, func(st models.Stats) {
			fmt.Printf("%s: %d/%d units (%.0f%%) status=%s rejected=%d\n",
				label, st.Processed(), st.Total, st.Progress, st.Status, len(st.Errors))
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(label, cancel))

	type driveResult struct {
		stats models.Stats
		err   error
	}
	resCh := make(chan driveResult, 1)

	go func() {
		stats, err := drive(ctx, func(st models.Stats) {
			p.Send(statsMsg(st))
		})
		resCh <- driveResult{stats: stats, err: err}
		p.Send(doneMsg{stats: stats, err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		res := <-resCh
		return res.stats, fmt.Errorf("progress UI error: %w", err)
	}

	res := <-resCh
	return res.stats, res.err
}
