// Package fakecc is a recording stand-in for compilers, archivers and
// xcrun, used by tests in place of a real toolchain.
package fakecc

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/wippyai/ccbuild/process"
)

// ErrNotFound is returned by LookPath fakes for unknown programs.
var ErrNotFound = errors.New("executable file not found in $PATH")

// Runner records every command it is asked to run and answers like a
// well-behaved GCC or Clang.
type Runner struct {
	mu       sync.Mutex
	commands []*process.Command

	// Fail maps a source base name to the exit status its compile returns.
	Fail map[string]int
	// Reject lists flags the fake compiler refuses with an error.
	Reject []string
	// Banners maps a program base name to its --version output.
	Banners map[string]string
	// SDKs maps an xcrun SDK name to the path it reports.
	SDKs map[string]string
	// ArchiveStatus is the exit status of archiver invocations.
	ArchiveStatus int
	// SpawnError, when set, makes every invocation of that program fail to start.
	SpawnError map[string]error
	// Before runs ahead of every compile; tests use it to block or reorder.
	Before func(ctx context.Context, cmd *process.Command)
}

// New creates a runner with no failures configured.
func New() *Runner {
	return &Runner{}
}

func (r *Runner) Run(ctx context.Context, cmd *process.Command) (*process.Result, error) {
	cp := &process.Command{
		Program: cmd.Program,
		Args:    slices.Clone(cmd.Args),
		Dir:     cmd.Dir,
		Env:     cmd.Env,
	}
	r.mu.Lock()
	r.commands = append(r.commands, cp)
	r.mu.Unlock()

	base := programBase(cmd.Program)
	if err, ok := r.SpawnError[base]; ok {
		return nil, err
	}

	switch {
	case base == "xcrun":
		return r.xcrun(cmd)
	case len(cmd.Args) == 1 && cmd.Args[0] == "--version":
		return r.banner(base), nil
	case IsArchiver(cmd.Program):
		return &process.Result{ExitCode: r.ArchiveStatus, Stderr: archiveDiag(r.ArchiveStatus)}, nil
	}

	if r.Before != nil {
		r.Before(ctx, cmd)
	}
	if err := ctx.Err(); err != nil {
		return &process.Result{ExitCode: 1, Stderr: []byte(err.Error())}, nil
	}
	return r.compile(cmd), nil
}

func (r *Runner) xcrun(cmd *process.Command) (*process.Result, error) {
	sdk := ""
	for i, a := range cmd.Args {
		if a == "--sdk" && i+1 < len(cmd.Args) {
			sdk = cmd.Args[i+1]
		}
	}
	path, ok := r.SDKs[sdk]
	if !ok {
		return &process.Result{
			ExitCode: 1,
			Stderr:   []byte(fmt.Sprintf("xcrun: error: SDK %q cannot be located\n", sdk)),
		}, nil
	}
	return &process.Result{Stdout: []byte(path + "\n")}, nil
}

func (r *Runner) banner(base string) *process.Result {
	if b, ok := r.Banners[base]; ok {
		return &process.Result{Stdout: []byte(b)}
	}
	if strings.Contains(base, "clang") {
		return &process.Result{Stdout: []byte("clang version 17.0.6\nTarget: x86_64-unknown-linux-gnu\n")}
	}
	return &process.Result{Stdout: []byte(base + " (GCC) 13.2.0\n")}
}

func (r *Runner) compile(cmd *process.Command) *process.Result {
	src := SourceOf(cmd)
	if code, ok := r.Fail[filepath.Base(src)]; ok && code != 0 {
		return &process.Result{
			ExitCode: code,
			Stderr:   []byte(fmt.Sprintf("%s:1:1: error: expected ';' before '}' token\n", src)),
		}
	}
	if cmd.Has("-E") {
		return &process.Result{Stdout: []byte(fmt.Sprintf("# 1 %q\nint x;\n", src))}
	}
	for _, a := range cmd.Args {
		if slices.Contains(r.Reject, a) {
			return &process.Result{
				ExitCode: 1,
				Stderr:   []byte(fmt.Sprintf("cc1: error: unrecognized command-line option '%s'\n", a)),
			}
		}
		// GCC accepts C++-only options for C but warns about them
		if strings.HasPrefix(a, "-std=c++") && strings.HasSuffix(src, ".c") {
			return &process.Result{
				Stderr: []byte(fmt.Sprintf("cc1: warning: command-line option '%s' is valid for C++ but not for C\n", a)),
			}
		}
	}
	return &process.Result{}
}

func archiveDiag(code int) []byte {
	if code == 0 {
		return nil
	}
	return []byte("ar: invalid option -- 'x'\n")
}

// Commands returns every recorded command in start order.
func (r *Runner) Commands() []*process.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.commands)
}

// Compiles returns the recorded compile commands, probes excluded.
func (r *Runner) Compiles() []*process.Command {
	var out []*process.Command
	for _, c := range r.Commands() {
		if IsCompile(c) && !IsProbe(c) {
			out = append(out, c)
		}
	}
	return out
}

// Probes returns the recorded flag-support trials.
func (r *Runner) Probes() []*process.Command {
	var out []*process.Command
	for _, c := range r.Commands() {
		if IsProbe(c) {
			out = append(out, c)
		}
	}
	return out
}

// Archives returns the recorded archiver invocations.
func (r *Runner) Archives() []*process.Command {
	var out []*process.Command
	for _, c := range r.Commands() {
		if IsArchiver(c.Program) {
			out = append(out, c)
		}
	}
	return out
}

// CompileOf returns the compile command for the source with the given base
// name, or nil.
func (r *Runner) CompileOf(name string) *process.Command {
	for _, c := range r.Compiles() {
		if filepath.Base(SourceOf(c)) == name {
			return c
		}
	}
	return nil
}

var sourceExts = []string{".c", ".cc", ".cpp", ".cxx", ".C", ".s", ".S", ".asm"}

// SourceOf returns the last argument that names a source file.
func SourceOf(cmd *process.Command) string {
	for i := len(cmd.Args) - 1; i >= 0; i-- {
		if slices.Contains(sourceExts, filepath.Ext(cmd.Args[i])) {
			return cmd.Args[i]
		}
	}
	return ""
}

// IsCompile reports a compiler invocation with -c.
func IsCompile(cmd *process.Command) bool {
	return cmd.Has("-c") && SourceOf(cmd) != ""
}

// IsProbe reports a flag-support trial.
func IsProbe(cmd *process.Command) bool {
	return strings.HasPrefix(filepath.Base(SourceOf(cmd)), "flag_check")
}

// IsArchiver reports ar, llvm-ar, <prefix>-ar and lib.exe.
func IsArchiver(program string) bool {
	base := programBase(program)
	return base == "ar" || base == "lib" || strings.HasSuffix(base, "-ar")
}

func programBase(program string) string {
	return strings.TrimSuffix(strings.ToLower(filepath.Base(program)), ".exe")
}

// AnyPath is a LookPath that finds every program.
func AnyPath(file string) (string, error) {
	return filepath.Join("/fake/bin", file), nil
}

// OnlyPath returns a LookPath that finds just the named programs.
func OnlyPath(names ...string) func(string) (string, error) {
	return func(file string) (string, error) {
		if slices.Contains(names, file) {
			return filepath.Join("/fake/bin", file), nil
		}
		return "", fmt.Errorf("%s: %w", file, ErrNotFound)
	}
}

// Env returns an environment lookup backed by vars.
func Env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}
