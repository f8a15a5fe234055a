package toolchain

import (
	"strings"

	"github.com/wippyai/ccbuild/target"
)

// Config is a resolved toolchain. It is built once per build
// configuration and shared read-only by every worker.
type Config struct {
	Family     Family
	Program    string
	CxxProgram string
	Archiver   string

	Target target.Descriptor
	Host   target.Descriptor

	// Sysroot is passed as --sysroot= on non-Apple targets.
	Sysroot string
	// SDKPath is the Apple SDK root, set only when the target needs one.
	SDKPath string

	DeploymentTarget    string
	CxxDeploymentTarget string

	CrossCompiling bool
	// TargetArgInternal is set when the program already selects the target,
	// as the Android NDK's "<triple>-clang" shims do.
	TargetArgInternal bool

	// Flags taken from CFLAGS, CXXFLAGS and ASMFLAGS.
	EnvCFlags   []string
	EnvCxxFlags []string
	EnvAsmFlags []string
}

// ProgramFor returns the driver for C or C++ sources.
func (c *Config) ProgramFor(cpp bool) string {
	if cpp && c.CxxProgram != "" {
		return c.CxxProgram
	}
	return c.Program
}

// Deployment returns the deployment target for the language in use.
func (c *Config) Deployment(cpp bool) string {
	if cpp {
		return c.CxxDeploymentTarget
	}
	return c.DeploymentTarget
}

// Identity names the toolchain for cache keys and fingerprint salts.
// Two configs with equal identities produce interchangeable objects.
func (c *Config) Identity() string {
	return strings.Join([]string{c.Family.String(), c.Program, c.CxxProgram, c.Target.Triple}, "|")
}

func (c *Config) IsMsvc() bool  { return c.Family == Msvc }
func (c *Config) IsClang() bool { return c.Family == Clang }
func (c *Config) IsGnu() bool   { return c.Family == Gnu }
