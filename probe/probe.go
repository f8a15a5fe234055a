// Package probe answers "does this compiler accept this flag?" by compiling
// a trivial translation unit, and remembers the answer for the lifetime of
// one build configuration.
//
// A probe never fails. Anything that stops the trial from producing a clean
// result, including a compiler that cannot be started, counts as
// "unsupported".
package probe

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	ccerrors "github.com/wippyai/ccbuild/errors"
	"github.com/wippyai/ccbuild/flags"
	"github.com/wippyai/ccbuild/process"
	"github.com/wippyai/ccbuild/toolchain"
)

const program = "int main(void) { return 0; }\n"

type key struct {
	identity string
	cpp      bool
	flag     string
}

type entry struct {
	mu        sync.Mutex
	done      bool
	supported bool
}

// Cache memoises flag probes. It is safe for concurrent use; concurrent
// first queries for the same flag run a single trial.
type Cache struct {
	runner process.Runner
	// TempDir is the parent of per-trial scratch directories; empty means
	// os.TempDir.
	TempDir string

	mu      sync.Mutex
	entries map[key]*entry
	trials  atomic.Int64
}

// New creates an empty cache that runs trials through runner.
func New(runner process.Runner) *Cache {
	return &Cache{
		runner:  runner,
		entries: make(map[key]*entry),
	}
}

var _ flags.Prober = (*Cache)(nil)

// Supported reports whether the compiler for cpp accepts flag.
func (c *Cache) Supported(ctx context.Context, cfg *toolchain.Config, cpp bool, flag string) bool {
	k := key{identity: cfg.Identity(), cpp: cpp, flag: flag}

	c.mu.Lock()
	e, ok := c.entries[k]
	if !ok {
		e = &entry{}
		c.entries[k] = e
	}
	c.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return e.supported
	}
	supported := c.try(ctx, cfg, cpp, flag)
	if ctx.Err() != nil {
		// a cancelled trial says nothing about the compiler; ask again next time
		return false
	}
	e.done, e.supported = true, supported
	return supported
}

// Trials returns how many trial compilations have been launched.
func (c *Cache) Trials() int {
	return int(c.trials.Load())
}

func (c *Cache) try(ctx context.Context, cfg *toolchain.Config, cpp bool, flag string) bool {
	c.trials.Add(1)

	dir, err := os.MkdirTemp(c.TempDir, "ccbuild-probe-")
	if err != nil {
		Logger().Warn("flag probe skipped", zap.Error(ccerrors.ProbeFailed(flag, err)))
		return false
	}

	ext := ".c"
	if cpp {
		ext = ".cpp"
	}
	src := filepath.Join(dir, "flag_check"+ext)
	obj := filepath.Join(dir, "flag_check.o")
	defer cleanup(dir, src, obj)

	if err := os.WriteFile(src, []byte(program), 0o644); err != nil {
		Logger().Warn("flag probe skipped", zap.Error(ccerrors.ProbeFailed(flag, err)))
		return false
	}

	cmd := &process.Command{Program: cfg.ProgramFor(cpp), Dir: dir}
	if cfg.IsMsvc() {
		cmd.Args = []string{"-nologo", flag, "-c", "-Fo" + obj, src}
	} else {
		cmd.Args = append(flags.TargetArgs(cfg, cpp), flag, "-o", obj, "-c", src)
	}

	res, err := c.runner.Run(ctx, cmd)
	if err != nil {
		Logger().Debug("flag probe could not run", zap.Error(ccerrors.ProbeFailed(flag, err)))
		return false
	}

	// GCC accepts some flags for the wrong language but warns on stderr
	supported := res.Success() && len(res.Stderr) == 0
	Logger().Debug("flag probe",
		zap.String("flag", flag),
		zap.String("program", cmd.Program),
		zap.Bool("supported", supported))
	return supported
}

func cleanup(dir string, files ...string) {
	var err error
	for _, f := range files {
		if rerr := os.Remove(f); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			err = multierr.Append(err, rerr)
		}
	}
	err = multierr.Append(err, os.RemoveAll(dir))
	if err != nil {
		Logger().Warn("flag probe cleanup failed", zap.String("dir", dir), zap.Error(err))
	}
}
