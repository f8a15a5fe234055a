package main

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/ccbuild"
	"github.com/wippyai/ccbuild/build"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type buildEventMsg struct {
	event build.Event
}

type buildDoneMsg struct {
	err     error
	archive *build.Archive
	objects []string
}

type progressModel struct {
	err      error
	cancel   context.CancelFunc
	run      func() tea.Msg
	archive  *build.Archive
	name     string
	running  []string
	failed   []string
	objects  []string
	spinner  spinner.Model
	progress progress.Model
	total    int
	finished int
	done     bool
}

func newProgressModel(name string, cancel context.CancelFunc, run func() tea.Msg) *progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = runningStyle
	return &progressModel{
		name:     name,
		cancel:   cancel,
		run:      run,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancel()
			return m, nil
		}

	case buildEventMsg:
		return m, m.onEvent(msg.event)

	case buildDoneMsg:
		m.err, m.archive, m.objects = msg.err, msg.archive, msg.objects
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) onEvent(e build.Event) tea.Cmd {
	if e.Total > 0 && e.Type != build.ArchiveStarted && e.Type != build.ArchiveFinished {
		m.total = e.Total
	}
	switch e.Type {
	case build.UnitStarted:
		m.running = append(m.running, e.Source)
	case build.UnitFinished, build.UnitFailed:
		m.running = slices.DeleteFunc(m.running, func(s string) bool { return s == e.Source })
		m.finished++
		if e.Type == build.UnitFailed {
			m.failed = append(m.failed, e.Source)
		}
	}
	if m.total == 0 {
		return nil
	}
	return m.progress.SetPercent(float64(m.finished) / float64(m.total))
}

func (m *progressModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ccbuild"))
	b.WriteString(" ")
	b.WriteString(m.name)
	b.WriteString("\n\n")

	b.WriteString(m.progress.View())
	b.WriteString(fmt.Sprintf(" %d/%d\n\n", m.finished, m.total))

	for _, src := range m.running {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(runningStyle.Render(filepath.Base(src)))
		b.WriteString("\n")
	}
	for _, src := range m.failed {
		b.WriteString(errorStyle.Render("✗ " + src))
		b.WriteString("\n")
	}

	if !m.done {
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("q cancel"))
	}
	return b.String()
}

// summary is printed after the view is torn down so it stays in the
// scrollback.
func (m *progressModel) summary() string {
	switch {
	case m.err != nil:
		return ""
	case m.archive != nil:
		return okStyle.Render("built") + " " + m.archive.Library + "\n"
	default:
		return strings.Join(m.objects, "\n") + "\n"
	}
}

func runInteractive(ctx context.Context, b *ccbuild.Builder, req buildRequest) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := func() tea.Msg {
		if req.objectsOnly {
			objs, err := b.CompileIntermediates(ctx)
			return buildDoneMsg{err: err, objects: objs}
		}
		archive, err := b.Compile(ctx, req.name)
		return buildDoneMsg{err: err, archive: archive}
	}
	m := newProgressModel(req.name, cancel, run)
	p := tea.NewProgram(m)
	b.Observe(build.ObserverFunc(func(e build.Event) {
		p.Send(buildEventMsg{event: e})
	}))

	final, err := p.Run()
	if err != nil {
		return err
	}
	fm := final.(*progressModel)
	if fm.err != nil {
		return fm.err
	}
	fmt.Print(fm.summary())
	return nil
}
