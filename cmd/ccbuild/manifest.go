package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/ccbuild"
)

// Manifest is the build.toml a CLI build is described by.
type Manifest struct {
	Name               string            `toml:"name"`
	Target             string            `toml:"target"`
	Host               string            `toml:"host"`
	Compiler           string            `toml:"compiler"`
	CxxCompiler        string            `toml:"cxx_compiler"`
	Archiver           string            `toml:"archiver"`
	Sysroot            string            `toml:"sysroot"`
	OutDir             string            `toml:"out_dir"`
	OptLevel           OptLevel          `toml:"opt_level"`
	Debug              bool              `toml:"debug"`
	Warnings           *bool             `toml:"warnings"`
	ExtraWarnings      *bool             `toml:"extra_warnings"`
	WarningsIntoErrors bool              `toml:"warnings_into_errors"`
	PIC                *bool             `toml:"pic"`
	UsePLT             *bool             `toml:"use_plt"`
	Static             *bool             `toml:"static"`
	Shared             *bool             `toml:"shared"`
	StaticCRT          *bool             `toml:"static_crt"`
	ForceFramePointer  *bool             `toml:"force_frame_pointer"`
	KeepGoing          *bool             `toml:"keep_going"`
	Std                string            `toml:"std"`
	Cpp                bool              `toml:"cpp"`
	Stdlib             string            `toml:"stdlib"`
	Jobs               int               `toml:"jobs"`
	Includes           []string          `toml:"includes"`
	Defines            map[string]string `toml:"defines"`
	Flags              []string          `toml:"flags"`
	FlagsIfSupported   []string          `toml:"flags_if_supported"`
	AsmFlags           []string          `toml:"asm_flags"`
	Files              []File            `toml:"file"`
}

// File is one [[file]] table.
type File struct {
	Path  string   `toml:"path"`
	Flags []string `toml:"flags"`
}

// OptLevel accepts both opt_level = 2 and opt_level = "s".
type OptLevel string

func (o *OptLevel) UnmarshalTOML(v any) error {
	switch v := v.(type) {
	case int64:
		*o = OptLevel(strconv.FormatInt(v, 10))
	case string:
		*o = OptLevel(v)
	default:
		return fmt.Errorf("opt_level: expected a number or a string, got %T", v)
	}
	return nil
}

// LoadManifest reads path and resolves its relative paths against the
// manifest's directory. Unknown keys are rejected.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	md, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if m.Name == "" {
		return nil, fmt.Errorf("%s: name is required", path)
	}
	if len(m.Files) == 0 {
		return nil, fmt.Errorf("%s: at least one [[file]] is required", path)
	}

	dir := filepath.Dir(path)
	for i := range m.Includes {
		m.Includes[i] = resolve(dir, m.Includes[i])
	}
	for i := range m.Files {
		if m.Files[i].Path == "" {
			return nil, fmt.Errorf("%s: file %d has no path", path, i+1)
		}
		m.Files[i].Path = resolve(dir, m.Files[i].Path)
	}
	if m.OutDir != "" {
		m.OutDir = resolve(dir, m.OutDir)
	}
	if m.Sysroot != "" {
		m.Sysroot = resolve(dir, m.Sysroot)
	}
	return &m, nil
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Apply copies the manifest's settings onto b.
func (m *Manifest) Apply(b *ccbuild.Builder) *ccbuild.Builder {
	b.Target(m.Target).
		Host(m.Host).
		Compiler(m.Compiler).
		CxxCompiler(m.CxxCompiler).
		Archiver(m.Archiver).
		Sysroot(m.Sysroot).
		OptLevelStr(string(m.OptLevel)).
		Debug(m.Debug).
		WarningsIntoErrors(m.WarningsIntoErrors).
		Std(m.Std).
		Cpp(m.Cpp).
		CppSetStdlib(m.Stdlib).
		Jobs(m.Jobs)

	if m.OutDir != "" {
		b.OutDir(m.OutDir)
	}
	if m.Warnings != nil {
		b.Warnings(*m.Warnings)
	}
	if m.ExtraWarnings != nil {
		b.ExtraWarnings(*m.ExtraWarnings)
	}
	if m.PIC != nil {
		b.PIC(*m.PIC)
	}
	if m.UsePLT != nil {
		b.UsePLT(*m.UsePLT)
	}
	if m.Static != nil {
		b.StaticFlag(*m.Static)
	}
	if m.Shared != nil {
		b.SharedFlag(*m.Shared)
	}
	if m.StaticCRT != nil {
		b.StaticCRT(*m.StaticCRT)
	}
	if m.ForceFramePointer != nil {
		b.ForceFramePointer(*m.ForceFramePointer)
	}
	if m.KeepGoing != nil {
		b.KeepGoing(*m.KeepGoing)
	}
	for _, inc := range m.Includes {
		b.Include(inc)
	}
	names := make([]string, 0, len(m.Defines))
	for name := range m.Defines {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		b.Define(name, m.Defines[name])
	}
	for _, f := range m.Flags {
		b.Flag(f)
	}
	for _, f := range m.FlagsIfSupported {
		b.FlagIfSupported(f)
	}
	for _, f := range m.AsmFlags {
		b.AsmFlag(f)
	}
	for _, f := range m.Files {
		b.FileWithFlags(f.Path, f.Flags...)
	}
	return b
}
