package ccbuild

import (
	"bytes"
	"context"
	"os"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/ccbuild/build"
	ccerrors "github.com/wippyai/ccbuild/errors"
	"github.com/wippyai/ccbuild/flags"
	"github.com/wippyai/ccbuild/probe"
	"github.com/wippyai/ccbuild/process"
	"github.com/wippyai/ccbuild/toolchain"
)

// Builder collects the sources and settings of one build configuration.
// Setters return the Builder so calls can be chained.
type Builder struct {
	req       toolchain.Request
	opts      flags.Options
	units     []flags.Unit
	outDir    string
	jobs      int
	keepGoing bool

	env       map[string]string
	baseEnv   func(string) (string, bool)
	runner    process.Runner
	lookPath  toolchain.LookPathFunc
	observers []build.Observer
	log       *zap.Logger

	mu     sync.Mutex
	cfg    *toolchain.Config
	probes *probe.Cache
}

// New creates a builder with default settings: optimisation level 2,
// warnings on, and the host as target.
func New() *Builder {
	return &Builder{
		env:    make(map[string]string),
		runner: process.NewExecRunner(),
	}
}

// Target sets the target triple. Empty reads TARGET, then uses the host.
func (b *Builder) Target(triple string) *Builder {
	b.req.Target = triple
	return b.invalidate()
}

// Host sets the host triple. Empty reads HOST, then uses the running machine.
func (b *Builder) Host(triple string) *Builder {
	b.req.Host = triple
	return b.invalidate()
}

// Compiler overrides the C compiler (and the C++ one, unless set).
func (b *Builder) Compiler(program string) *Builder {
	b.req.Compiler = program
	return b.invalidate()
}

// CxxCompiler overrides the C++ compiler.
func (b *Builder) CxxCompiler(program string) *Builder {
	b.req.CxxCompiler = program
	return b.invalidate()
}

// Archiver overrides the static library tool.
func (b *Builder) Archiver(program string) *Builder {
	b.req.Archiver = program
	return b.invalidate()
}

// Sysroot sets --sysroot, or the Apple SDK root on Apple targets.
func (b *Builder) Sysroot(path string) *Builder {
	b.req.Sysroot = path
	return b.invalidate()
}

// OptLevel sets a numeric optimisation level.
func (b *Builder) OptLevel(level int) *Builder {
	b.opts.OptLevel = strconv.Itoa(level)
	return b
}

// OptLevelStr sets the optimisation level by name: 0-3, s or z.
func (b *Builder) OptLevelStr(level string) *Builder {
	b.opts.OptLevel = level
	return b
}

func (b *Builder) Debug(on bool) *Builder {
	b.opts.Debug = on
	return b
}

// ForceFramePointer keeps or drops frame pointers regardless of Debug.
func (b *Builder) ForceFramePointer(on bool) *Builder {
	b.opts.ForceFramePointer = &on
	return b
}

func (b *Builder) Warnings(on bool) *Builder {
	b.opts.Warnings = &on
	return b
}

func (b *Builder) ExtraWarnings(on bool) *Builder {
	b.opts.ExtraWarnings = &on
	return b
}

func (b *Builder) WarningsIntoErrors(on bool) *Builder {
	b.opts.WarningsIntoErrors = on
	return b
}

func (b *Builder) PIC(on bool) *Builder {
	b.opts.PIC = &on
	return b
}

// UsePLT(false) adds -fno-plt on ELF targets built with PIC.
func (b *Builder) UsePLT(on bool) *Builder {
	b.opts.UsePLT = &on
	return b
}

func (b *Builder) StaticFlag(on bool) *Builder {
	b.opts.Static = &on
	return b
}

func (b *Builder) SharedFlag(on bool) *Builder {
	b.opts.Shared = &on
	return b
}

// StaticCRT selects -MT over -MD on MSVC.
func (b *Builder) StaticCRT(on bool) *Builder {
	b.opts.StaticCRT = &on
	return b
}

// Std sets the language standard, as in "c11" or "c++17".
func (b *Builder) Std(std string) *Builder {
	b.opts.Std = std
	return b
}

// Cpp compiles every unit with the C++ driver.
func (b *Builder) Cpp(on bool) *Builder {
	b.opts.Cpp = on
	return b.invalidate()
}

// CppSetStdlib names the C++ standard library for Clang ("c++" for libc++).
func (b *Builder) CppSetStdlib(name string) *Builder {
	b.opts.Stdlib = name
	return b
}

func (b *Builder) Include(dir string) *Builder {
	b.opts.Includes = append(b.opts.Includes, dir)
	return b
}

// Define adds -Dname or, with a non-empty value, -Dname=value.
func (b *Builder) Define(name, value string) *Builder {
	b.opts.Defines = append(b.opts.Defines, flags.Define{Name: name, Value: value})
	return b
}

// Flag adds an argument to every compile.
func (b *Builder) Flag(flag string) *Builder {
	b.opts.Flags = append(b.opts.Flags, flag)
	return b
}

// FlagIfSupported adds an argument that is dropped when the compiler
// rejects it.
func (b *Builder) FlagIfSupported(flag string) *Builder {
	b.opts.FlagsIfSupported = append(b.opts.FlagsIfSupported, flag)
	return b
}

// AsmFlag adds an argument used only for assembly sources.
func (b *Builder) AsmFlag(flag string) *Builder {
	b.opts.AsmFlags = append(b.opts.AsmFlags, flag)
	return b
}

func (b *Builder) File(path string) *Builder {
	b.units = append(b.units, flags.NewUnit(path))
	return b
}

// FileWithFlags adds a source with arguments that apply to it alone.
func (b *Builder) FileWithFlags(path string, extra ...string) *Builder {
	b.units = append(b.units, flags.NewUnit(path, extra...))
	return b
}

// OutDir sets where objects and the library are written. Empty reads OUT_DIR.
func (b *Builder) OutDir(dir string) *Builder {
	b.outDir = dir
	return b
}

// Jobs bounds concurrent compiler processes. Zero reads NUM_JOBS, then
// uses the number of CPUs.
func (b *Builder) Jobs(n int) *Builder {
	b.jobs = n
	return b
}

// KeepGoing compiles every unit even after a failure and reports all of
// the failures.
func (b *Builder) KeepGoing(on bool) *Builder {
	b.keepGoing = on
	return b
}

// Env replaces the environment lookup; nil restores os.LookupEnv.
func (b *Builder) Env(lookup func(string) (string, bool)) *Builder {
	b.baseEnv = lookup
	return b.invalidate()
}

// SetEnv overrides one environment variable for this builder only.
func (b *Builder) SetEnv(key, value string) *Builder {
	b.env[key] = value
	return b.invalidate()
}

// Runner replaces the subprocess runner; nil restores the os/exec one.
func (b *Builder) Runner(r process.Runner) *Builder {
	if r == nil {
		r = process.NewExecRunner()
	}
	b.runner = r
	return b.invalidate()
}

// LookPath replaces the search-path lookup.
func (b *Builder) LookPath(fn toolchain.LookPathFunc) *Builder {
	b.lookPath = fn
	return b.invalidate()
}

// Observe subscribes obs to compile and archive events.
func (b *Builder) Observe(obs build.Observer) *Builder {
	b.observers = append(b.observers, obs)
	return b
}

// Logger sets the logger used for this builder's own messages.
func (b *Builder) Logger(l *zap.Logger) *Builder {
	b.log = l
	return b
}

// Compile compiles every file and archives the objects into the library
// called name (libname.a, or name.lib for MSVC).
func (b *Builder) Compile(ctx context.Context, name string) (*build.Archive, error) {
	o, err := b.orchestrator(ctx)
	if err != nil {
		return nil, err
	}
	archive, err := o.Build(ctx, b.units, name)
	if err != nil {
		return nil, err
	}
	b.logger().Info("library built",
		zap.String("library", archive.Library),
		zap.Int("objects", len(archive.Objects)))
	return archive, nil
}

// CompileIntermediates compiles every file and returns the object paths in
// the order the files were added, without archiving them.
func (b *Builder) CompileIntermediates(ctx context.Context) ([]string, error) {
	o, err := b.orchestrator(ctx)
	if err != nil {
		return nil, err
	}
	return o.Objects(ctx, b.units)
}

// IsFlagSupported reports whether the resolved compiler accepts flag. The
// error is only ever a resolution failure.
func (b *Builder) IsFlagSupported(ctx context.Context, flag string) (bool, error) {
	cfg, probes, err := b.resolve(ctx)
	if err != nil {
		return false, err
	}
	return probes.Supported(ctx, cfg, b.opts.Cpp, flag), nil
}

// Expand runs only the preprocessor over every file and returns the
// concatenated output.
func (b *Builder) Expand(ctx context.Context) ([]byte, error) {
	if len(b.units) == 0 {
		return nil, ccerrors.InvalidInput(ccerrors.PhaseConfig, "no files to expand")
	}
	if err := b.opts.Validate(); err != nil {
		return nil, err
	}
	cfg, probes, err := b.resolve(ctx)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	for _, u := range b.units {
		cmd := flags.Expand(ctx, cfg, &b.opts, u, probes)
		argv := cmd.Argv()
		res, err := b.run().Run(ctx, cmd)
		if err != nil {
			return nil, ccerrors.SpawnFailed(ccerrors.PhaseCompile, u.Source, argv, err)
		}
		if !res.Success() {
			return nil, ccerrors.CompilationFailed(u.Source, argv, res.ExitCode, res.Diagnostics())
		}
		out.Write(res.Stdout)
	}
	return out.Bytes(), nil
}

func (b *Builder) orchestrator(ctx context.Context) (*build.Orchestrator, error) {
	cfg, probes, err := b.resolve(ctx)
	if err != nil {
		return nil, err
	}
	dir := b.outDir
	if dir == "" {
		dir, _ = b.lookupEnv("OUT_DIR")
	}
	if dir == "" {
		return nil, ccerrors.InvalidInput(ccerrors.PhaseConfig, "no output directory: call OutDir or set OUT_DIR")
	}

	opts := b.opts
	o := build.New(cfg, &opts, b.run(), dir)
	o.Prober = probes
	o.Jobs = b.jobs
	o.KeepGoing = b.keepGoing
	o.Env = b.lookupEnv
	for _, obs := range b.observers {
		o.Subscribe(obs)
	}
	return o, nil
}

// resolve returns the toolchain and probe cache of the current
// configuration, resolving them on first use. Failures are not cached.
func (b *Builder) resolve(ctx context.Context) (*toolchain.Config, *probe.Cache, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cfg != nil {
		return b.cfg, b.probes, nil
	}

	req := b.req
	req.Cpp = b.opts.Cpp
	if req.Target == "" {
		req.Target, _ = b.lookupEnv("TARGET")
	}
	if req.Host == "" {
		req.Host, _ = b.lookupEnv("HOST")
	}

	r := &toolchain.Resolver{LookPath: b.lookPath, Env: b.lookupEnv, Runner: b.run()}
	cfg, err := r.Resolve(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	b.cfg, b.probes = cfg, probe.New(b.run())
	b.logger().Debug("toolchain resolved",
		zap.String("target", cfg.Target.Triple),
		zap.Stringer("family", cfg.Family),
		zap.String("cc", cfg.Program))
	return b.cfg, b.probes, nil
}

// invalidate drops the resolved toolchain and its probe answers after a
// setter that changes what resolution would produce.
func (b *Builder) invalidate() *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg, b.probes = nil, nil
	return b
}

func (b *Builder) lookupEnv(key string) (string, bool) {
	if v, ok := b.env[key]; ok {
		return v, true
	}
	if b.baseEnv != nil {
		return b.baseEnv(key)
	}
	return os.LookupEnv(key)
}

func (b *Builder) run() process.Runner {
	return b.runner
}

func (b *Builder) logger() *zap.Logger {
	if b.log != nil {
		return b.log
	}
	return Logger()
}
