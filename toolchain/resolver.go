// Package toolchain resolves which compiler, archiver and SDK serve a
// (host, target) pair, and classifies the compiler into a flag dialect.
//
// All host access goes through three ports on Resolver: LookPath for the
// search path, Env for environment variables and a process.Runner for the
// few programs the resolver itself invokes ("<cc> --version" and
// "xcrun --show-sdk-path").
package toolchain

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	ccerrors "github.com/wippyai/ccbuild/errors"
	"github.com/wippyai/ccbuild/process"
	"github.com/wippyai/ccbuild/target"
)

// LookPathFunc searches for an executable, like exec.LookPath.
type LookPathFunc func(file string) (string, error)

// EnvFunc looks up an environment variable, like os.LookupEnv.
type EnvFunc func(key string) (string, bool)

// Request carries the caller's explicit choices. Empty fields are filled
// from the environment or from defaults.
type Request struct {
	Compiler    string
	CxxCompiler string
	Archiver    string
	Host        string
	Target      string
	Sysroot     string
	Cpp         bool
}

// Resolver turns a Request into a Config.
type Resolver struct {
	LookPath LookPathFunc
	Env      EnvFunc
	Runner   process.Runner
}

// NewResolver creates a resolver backed by the real host.
func NewResolver() *Resolver {
	return &Resolver{
		LookPath: exec.LookPath,
		Env:      os.LookupEnv,
		Runner:   process.NewExecRunner(),
	}
}

type candidate struct {
	cc, cxx  string
	family   Family
	known    bool
	internal bool
}

// Resolve produces the toolchain configuration for req.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Config, error) {
	host := target.Host()
	if req.Host != "" {
		host = target.Parse(req.Host)
	}
	tgt := host
	if req.Target != "" {
		tgt = target.Parse(req.Target)
	}

	cfg := &Config{
		Target:         tgt,
		Host:           host,
		CrossCompiling: !tgt.Equal(host),
	}

	if err := r.resolveCompiler(ctx, cfg, req); err != nil {
		return nil, err
	}
	cfg.Archiver = r.resolveArchiver(cfg, req)

	// an explicit SDK root is honoured even where the default SDK would do
	if needsSDK(tgt, host) || tgt.IsApple() && req.Sysroot != "" {
		explicit := req.Sysroot
		if explicit == "" {
			explicit, _ = r.lookupEnv("SDKROOT")
		}
		sdk, err := r.resolveSDK(ctx, tgt, explicit)
		if err != nil {
			return nil, err
		}
		cfg.SDKPath = sdk
	} else if !tgt.IsApple() {
		cfg.Sysroot = req.Sysroot
	}

	cfg.DeploymentTarget, cfg.CxxDeploymentTarget = r.deploymentTargets(tgt)

	var err error
	if cfg.EnvCFlags, err = r.envFlags(cfg, "CFLAGS"); err != nil {
		return nil, err
	}
	if cfg.EnvCxxFlags, err = r.envFlags(cfg, "CXXFLAGS"); err != nil {
		return nil, err
	}
	if cfg.EnvAsmFlags, err = r.envFlags(cfg, "ASMFLAGS"); err != nil {
		return nil, err
	}

	Logger().Debug("resolved toolchain",
		zap.Stringer("family", cfg.Family),
		zap.String("cc", cfg.Program),
		zap.String("cxx", cfg.CxxProgram),
		zap.String("ar", cfg.Archiver),
		zap.String("target", tgt.Triple),
		zap.String("host", host.Triple),
		zap.String("sdk", cfg.SDKPath),
		zap.Bool("cross", cfg.CrossCompiling))
	return cfg, nil
}

func (r *Resolver) resolveCompiler(ctx context.Context, cfg *Config, req Request) error {
	cc, cxx := req.Compiler, req.CxxCompiler
	if cc == "" {
		cc, _ = r.targetEnv(cfg, "CC")
	}
	if cxx == "" {
		cxx, _ = r.targetEnv(cfg, "CXX")
	}

	if cc != "" || cxx != "" {
		if cc == "" {
			cc = cxx
		}
		if cxx == "" {
			cxx = cxxName(cc)
		}
		primary := pick(req.Cpp, cc, cxx)
		if _, err := r.lookPath(primary); err != nil {
			return ccerrors.ToolchainNotFound([]string{primary})
		}
		family, known := ClassifyName(primary)
		if !known {
			family = r.bannerFamily(ctx, primary)
		}
		cfg.Family, cfg.Program, cfg.CxxProgram = family, cc, cxx
		cfg.TargetArgInternal = cfg.Target.IsAndroid() && isNDKShim(primary)
		return nil
	}

	cands := defaultCandidates(cfg.Target, cfg.Host)
	tried := make([]string, 0, len(cands))
	for _, c := range cands {
		primary := pick(req.Cpp, c.cc, c.cxx)
		tried = append(tried, primary)
		if _, err := r.lookPath(primary); err != nil {
			Logger().Debug("compiler candidate not found", zap.String("program", primary), zap.Error(err))
			continue
		}
		family := c.family
		if !c.known {
			family = r.bannerFamily(ctx, primary)
		}
		cfg.Family, cfg.Program, cfg.CxxProgram = family, c.cc, c.cxx
		cfg.TargetArgInternal = c.internal
		return nil
	}
	return ccerrors.ToolchainNotFound(tried)
}

func defaultCandidates(t, h target.Descriptor) []candidate {
	clang := candidate{cc: "clang", cxx: "clang++", family: Clang, known: true}
	switch {
	case t.IsWindowsMSVC():
		return []candidate{{cc: "cl.exe", cxx: "cl.exe", family: Msvc, known: true}}
	case t.IsAndroid():
		// NDK shims are batch files on Windows and cannot be spawned directly
		if h.IsWindows() {
			return []candidate{clang}
		}
		shim := candidate{cc: t.Triple + "-clang", cxx: t.Triple + "-clang++", family: Clang, known: true, internal: true}
		return []candidate{shim, clang}
	case t.IsWasm(), t.IsUEFIOrNone():
		return []candidate{clang}
	case t.IsApple():
		if h.IsMacOS() {
			return []candidate{{cc: "cc", cxx: "c++"}}
		}
		return []candidate{clang}
	case !t.Equal(h):
		if prefix, ok := CrossPrefix(t); ok {
			return []candidate{{cc: prefix + "-gcc", cxx: prefix + "-g++", family: Gnu, known: true}}
		}
		return []candidate{clang}
	case t.IsWindows():
		return []candidate{{cc: "gcc", cxx: "g++", family: Gnu, known: true}}
	}
	return []candidate{{cc: "cc", cxx: "c++"}}
}

func (r *Resolver) bannerFamily(ctx context.Context, program string) Family {
	res, err := r.runner().Run(ctx, &process.Command{Program: program, Args: []string{"--version"}})
	if err != nil {
		Logger().Debug("compiler banner unavailable, assuming gnu", zap.String("program", program), zap.Error(err))
		return Gnu
	}
	return ClassifyBanner(string(res.Diagnostics()))
}

func (r *Resolver) resolveArchiver(cfg *Config, req Request) string {
	if req.Archiver != "" {
		return req.Archiver
	}
	if ar, ok := r.targetEnv(cfg, "AR"); ok {
		return ar
	}
	t := cfg.Target
	switch {
	case cfg.IsMsvc():
		return "lib.exe"
	case t.IsAndroid():
		for _, ar := range []string{"llvm-ar", t.Triple + "-ar"} {
			if _, err := r.lookPath(ar); err == nil {
				return ar
			}
		}
		return "llvm-ar"
	case cfg.CrossCompiling && cfg.IsClang():
		return "llvm-ar"
	case cfg.CrossCompiling:
		if prefix, ok := CrossPrefix(t); ok {
			return prefix + "-ar"
		}
	}
	return "ar"
}

// targetEnv reads NAME_<triple>, NAME_<triple_with_underscores>,
// TARGET_NAME or HOST_NAME, then NAME. Empty values are skipped.
func (r *Resolver) targetEnv(cfg *Config, name string) (string, bool) {
	scope := "HOST_"
	if cfg.CrossCompiling {
		scope = "TARGET_"
	}
	triple := cfg.Target.Triple
	keys := []string{
		name + "_" + triple,
		name + "_" + strings.ReplaceAll(triple, "-", "_"),
		scope + name,
		name,
	}
	for _, k := range keys {
		if v, ok := r.lookupEnv(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func (r *Resolver) envFlags(cfg *Config, name string) ([]string, error) {
	v, ok := r.targetEnv(cfg, name)
	if !ok {
		return nil, nil
	}
	words, err := shellquote.Split(v)
	if err != nil {
		return nil, ccerrors.New(ccerrors.PhaseConfig, ccerrors.KindInvalidInput).
			Cause(err).
			Detail("cannot split %s=%q", name, v).
			Build()
	}
	return words, nil
}

func (r *Resolver) lookupEnv(key string) (string, bool) {
	if r.Env == nil {
		return os.LookupEnv(key)
	}
	return r.Env(key)
}

func (r *Resolver) lookPath(file string) (string, error) {
	if r.LookPath == nil {
		return exec.LookPath(file)
	}
	return r.LookPath(file)
}

func (r *Resolver) runner() process.Runner {
	if r.Runner == nil {
		return process.NewExecRunner()
	}
	return r.Runner
}

func pick(cpp bool, cc, cxx string) string {
	if cpp {
		return cxx
	}
	return cc
}

// isNDKShim reports whether program is an NDK wrapper such as
// aarch64-linux-android21-clang, which passes its own --target.
func isNDKShim(program string) bool {
	base := strings.TrimSuffix(ProgramBase(program), ".cmd")
	if !strings.HasSuffix(base, "-clang") && !strings.HasSuffix(base, "-clang++") {
		return false
	}
	return strings.Contains(base, "-linux-android")
}
