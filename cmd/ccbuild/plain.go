package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/ccbuild"
	"github.com/wippyai/ccbuild/build"
)

var (
	stepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type buildRequest struct {
	name        string
	objectsOnly bool
}

// lineReporter prints one line per build event.
type lineReporter struct {
	out    io.Writer
	styled bool
}

func (r *lineReporter) render(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

func (r *lineReporter) OnBuildEvent(e build.Event) {
	switch e.Type {
	case build.UnitStarted:
		fmt.Fprintf(r.out, "%s %s\n", r.render(stepStyle, fmt.Sprintf("[%d/%d] CC", e.Index+1, e.Total)), e.Source)
	case build.UnitFailed:
		fmt.Fprintf(r.out, "%s %s\n", r.render(errorStyle, "FAILED"), e.Source)
	case build.ArchiveStarted:
		fmt.Fprintf(r.out, "%s %s\n", r.render(stepStyle, "AR"), e.Object)
	case build.ArchiveFinished:
		if e.Err == nil {
			fmt.Fprintf(r.out, "%s %s %s\n", r.render(okStyle, "built"), e.Object,
				r.render(dimStyle, fmt.Sprintf("(%d objects)", e.Total)))
		}
	}
}

func runPlain(ctx context.Context, b *ccbuild.Builder, req buildRequest) error {
	b.Observe(&lineReporter{out: os.Stdout, styled: stdoutTerminal()})
	if req.objectsOnly {
		objs, err := b.CompileIntermediates(ctx)
		if err != nil {
			return err
		}
		for _, o := range objs {
			fmt.Println(o)
		}
		return nil
	}
	_, err := b.Compile(ctx, req.name)
	return err
}
