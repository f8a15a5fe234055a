// Package flags composes the ordered argument list for one compiler
// invocation from a resolved toolchain, the build options and a unit.
//
// Composition is deterministic: the same inputs always give the same
// arguments in the same order. The only outside input is the Prober, which
// decides whether best-effort flags survive.
package flags

import (
	"context"
	"strings"

	"github.com/wippyai/ccbuild/process"
	"github.com/wippyai/ccbuild/target"
	"github.com/wippyai/ccbuild/toolchain"
)

// Prober answers whether the toolchain accepts a flag. Implementations
// must not fail; an unknown answer is "unsupported".
type Prober interface {
	Supported(ctx context.Context, cfg *toolchain.Config, cpp bool, flag string) bool
}

// Compose builds the command that compiles unit into the object out.
// A nil prober keeps every best-effort flag.
func Compose(ctx context.Context, cfg *toolchain.Config, opts *Options, unit Unit, out string, prober Prober) *process.Command {
	c := newComposer(cfg, opts, unit)
	if unit.Kind == MASM && cfg.IsMsvc() {
		return c.masm(out)
	}
	c.common(ctx, prober)
	if cfg.IsMsvc() {
		c.add("-c", "-Fo"+out, unit.Source)
	} else {
		c.add("-o", out, "-c", unit.Source)
	}
	return c.command()
}

// Expand builds the command that runs only the preprocessor over unit and
// writes the result to stdout.
func Expand(ctx context.Context, cfg *toolchain.Config, opts *Options, unit Unit, prober Prober) *process.Command {
	c := newComposer(cfg, opts, unit)
	c.common(ctx, prober)
	c.add("-E", unit.Source)
	return c.command()
}

// TargetArgs returns the arguments that select the target platform. Flag
// probes use them so a trial runs against the same target as the build.
func TargetArgs(cfg *toolchain.Config, cpp bool) []string {
	c := &composer{cfg: cfg, opts: &Options{Cpp: cpp}, cpp: cpp}
	c.targetSelection()
	return c.args
}

type composer struct {
	cfg  *toolchain.Config
	opts *Options
	unit Unit
	cpp  bool
	args []string
}

func newComposer(cfg *toolchain.Config, opts *Options, unit Unit) *composer {
	if opts == nil {
		opts = &Options{}
	}
	return &composer{
		cfg:  cfg,
		opts: opts,
		unit: unit,
		cpp:  opts.Cpp || unit.Kind == Cpp,
	}
}

func (c *composer) add(args ...string) {
	for _, a := range args {
		// a bare "--" would end option parsing before the source
		if a == "" || a == "--" {
			continue
		}
		c.args = append(c.args, a)
	}
}

func (c *composer) command() *process.Command {
	return &process.Command{
		Program: c.cfg.ProgramFor(c.cpp),
		Args:    c.args,
	}
}

func (c *composer) common(ctx context.Context, prober Prober) {
	if c.cfg.IsMsvc() {
		c.msvcBase()
	} else {
		c.gnuBase()
	}

	c.add(c.envFlags()...)
	c.add(c.opts.Flags...)
	for _, f := range c.opts.FlagsIfSupported {
		if prober == nil || prober.Supported(ctx, c.cfg, c.cpp, f) {
			c.add(f)
		}
	}
	c.add(c.unit.Flags...)
	if c.unit.Kind.IsAsm() {
		c.add(c.opts.AsmFlags...)
	}

	if c.opts.WarningsIntoErrors {
		if c.cfg.IsMsvc() {
			c.add("-WX")
		} else {
			c.add("-Werror")
		}
	}
}

func (c *composer) envFlags() []string {
	var out []string
	if c.cpp {
		out = append(out, c.cfg.EnvCxxFlags...)
	} else {
		out = append(out, c.cfg.EnvCFlags...)
	}
	if c.unit.Kind.IsAsm() {
		out = append(out, c.cfg.EnvAsmFlags...)
	}
	return out
}

func (c *composer) gnuBase() {
	t := c.cfg.Target
	o := c.opts

	if opt := o.Opt(); opt != "0" {
		c.add("-O" + opt)
	}
	if !t.IsApple() {
		c.add("-ffunction-sections", "-fdata-sections")
	}

	if c.pic() {
		c.add("-fPIC")
		if !isTrue(o.UsePLT, true) && t.IsLinuxLike() {
			c.add("-fno-plt")
		}
	}

	if o.Debug {
		c.add(c.dwarf())
	}
	if isTrue(o.ForceFramePointer, o.Debug) {
		c.add("-fno-omit-frame-pointer")
	}

	c.targetSelection()

	if sdk := c.cfg.SDKPath; sdk != "" {
		c.add("-isysroot", sdk)
		if t.Catalyst {
			c.add(catalystArgs(sdk)...)
		}
	} else if c.cfg.Sysroot != "" {
		c.add("--sysroot=" + c.cfg.Sysroot)
	}

	if !c.unit.Kind.IsAsm() {
		if c.cpp && o.Stdlib != "" && c.cfg.IsClang() {
			c.add("-stdlib=lib" + o.Stdlib)
		}
		if o.Std != "" {
			c.add("-std=" + o.Std)
		}
	}

	switch {
	case isTrue(o.Shared, false):
		c.add("-shared")
	case isTrue(o.Static, false):
		c.add("-static")
	}

	c.includesAndDefines()

	if o.warnings() {
		c.add("-Wall")
	}
	if o.extraWarnings() {
		c.add("-Wextra")
	}
}

// targetSelection adds the arguments that pick the output platform and
// word size.
func (c *composer) targetSelection() {
	t := c.cfg.Target
	switch {
	case c.cfg.IsMsvc():
		return
	case t.IsApple():
		c.add(appleTargetArgs(c.cfg, c.cpp)...)
	case c.cfg.IsClang() && !c.cfg.TargetArgInternal && t.Triple != "":
		c.add("--target=" + toolchain.LLVMTriple(t))
	}
	if c.cfg.IsGnu() {
		switch t.ArchFamily {
		case target.X86_64:
			c.add("-m64")
		case target.X86:
			c.add("-m32")
		}
	}
}

func (c *composer) msvcBase() {
	o := c.opts
	c.add("-nologo")
	if isTrue(o.StaticCRT, false) {
		c.add("-MT")
	} else {
		c.add("-MD")
	}
	switch o.Opt() {
	case "0":
	case "1", "s", "z":
		c.add("-O1")
	default:
		c.add("-O2")
	}
	if o.Debug {
		c.add("-Z7")
	}
	if c.cpp {
		c.add("-EHsc")
	}
	if o.Std != "" && !c.unit.Kind.IsAsm() {
		c.add("-std:" + o.Std)
	}
	c.includesAndDefines()
	if o.warnings() {
		c.add("-W4")
	}
}

// masm composes an invocation of the Microsoft assemblers, which share
// neither the driver nor its flags.
func (c *composer) masm(out string) *process.Command {
	program := "ml64.exe"
	switch c.cfg.Target.ArchFamily {
	case target.X86:
		program = "ml.exe"
	case target.AArch64:
		program = "armasm64.exe"
	case target.ARM:
		program = "armasm.exe"
	}
	c.add("-nologo")
	armasm := strings.HasPrefix(program, "armasm")
	if !armasm {
		c.includesAndDefines()
	} else {
		for _, inc := range c.opts.Includes {
			c.add("-i", inc)
		}
	}
	if c.opts.Debug && !armasm {
		c.add("-Zi")
	}
	c.add(c.cfg.EnvAsmFlags...)
	c.add(c.unit.Flags...)
	c.add(c.opts.AsmFlags...)
	if c.opts.WarningsIntoErrors && !armasm {
		c.add("-WX")
	}
	if armasm {
		c.add("-o", out, c.unit.Source)
	} else {
		c.add("-c", "-Fo"+out, c.unit.Source)
	}
	return &process.Command{Program: program, Args: c.args}
}

func (c *composer) includesAndDefines() {
	for _, inc := range c.opts.Includes {
		c.add("-I", inc)
	}
	for _, d := range c.opts.Defines {
		if d.Value == "" {
			c.add("-D" + d.Name)
		} else {
			c.add("-D" + d.Name + "=" + d.Value)
		}
	}
}

// pic reports whether -fPIC applies. Windows, bare-metal and UEFI never
// get it; wasm only on request.
func (c *composer) pic() bool {
	t := c.cfg.Target
	if t.IsUEFIOrNone() || t.IsWindows() {
		return false
	}
	return isTrue(c.opts.PIC, !t.IsWasm())
}

func (c *composer) dwarf() string {
	t := c.cfg.Target
	if t.OS == target.Linux && t.IsKnownArch() {
		return "-gdwarf-4"
	}
	return "-gdwarf-2"
}
