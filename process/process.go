// Package process describes a single compiler, archiver or locator
// invocation and the port used to run it.
package process

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"strings"
)

// Command is one fully composed invocation. Args are order-sensitive.
type Command struct {
	Program string
	Args    []string
	Dir     string
	// Env holds overrides layered on top of the parent environment.
	Env map[string]string
}

// Argv returns the program followed by its arguments.
func (c *Command) Argv() []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Program)
	return append(argv, c.Args...)
}

// Has reports whether arg appears verbatim among the arguments.
func (c *Command) Has(arg string) bool {
	for _, a := range c.Args {
		if a == arg {
			return true
		}
	}
	return false
}

// HasPrefix reports whether any argument starts with prefix.
func (c *Command) HasPrefix(prefix string) bool {
	for _, a := range c.Args {
		if strings.HasPrefix(a, prefix) {
			return true
		}
	}
	return false
}

// Result is the captured outcome of a process that ran to completion.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Success reports a zero exit status.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Diagnostics returns stdout followed by stderr. MSVC tools print
// diagnostics on stdout, so both streams are kept.
func (r *Result) Diagnostics() []byte {
	out := make([]byte, 0, len(r.Stdout)+len(r.Stderr))
	out = append(out, r.Stdout...)
	return append(out, r.Stderr...)
}

// Runner executes commands. A non-nil error means the process could not be
// started; a non-zero exit status is reported through Result.
type Runner interface {
	Run(ctx context.Context, cmd *Command) (*Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd *Command) (*Result, error)

func (f RunnerFunc) Run(ctx context.Context, cmd *Command) (*Result, error) {
	return f(ctx, cmd)
}

// ExecRunner runs commands as operating system processes.
type ExecRunner struct{}

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, cmd *Command) (*Result, error) {
	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = mergeEnv(os.Environ(), cmd.Env)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if err := c.Start(); err != nil {
		return nil, err
	}

	err := c.Wait()
	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			if res.ExitCode < 0 {
				// killed by a signal
				res.ExitCode = 1
			}
			return res, nil
		}
		return nil, err
	}
	return res, nil
}

// mergeEnv overlays overrides onto base; later entries win.
func mergeEnv(base []string, overrides map[string]string) []string {
	env := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[k]; ok {
			continue
		}
		env = append(env, kv)
	}
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}
