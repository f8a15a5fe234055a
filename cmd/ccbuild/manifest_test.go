package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/wippyai/ccbuild"
	"github.com/wippyai/ccbuild/internal/fakecc"
)

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "build.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
name = "foo"
target = "aarch64-unknown-linux-gnu"
opt_level = 3
debug = true
warnings = false
std = "c11"
includes = ["include", "/abs/include"]
flags_if_supported = ["-Wshadow"]
asm_flags = ["--noexecstack"]
out_dir = "out"

[defines]
FOO = "bar"
BAZ = ""

[[file]]
path = "src/a.c"

[[file]]
path = "src/b.S"
flags = ["-DB=1"]
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	dir := filepath.Dir(path)

	if m.Name != "foo" || m.Target != "aarch64-unknown-linux-gnu" || m.OptLevel != "3" || !m.Debug {
		t.Errorf("scalars = %+v", m)
	}
	if m.Warnings == nil || *m.Warnings {
		t.Error("warnings = false must be kept as an explicit false")
	}
	if m.ExtraWarnings != nil {
		t.Error("unset extra_warnings must stay nil")
	}
	wantIncludes := []string{filepath.Join(dir, "include"), "/abs/include"}
	if !slices.Equal(m.Includes, wantIncludes) {
		t.Errorf("includes = %q, want %q", m.Includes, wantIncludes)
	}
	if m.OutDir != filepath.Join(dir, "out") {
		t.Errorf("out_dir = %q", m.OutDir)
	}
	if len(m.Files) != 2 || m.Files[0].Path != filepath.Join(dir, "src", "a.c") {
		t.Fatalf("files = %+v", m.Files)
	}
	if !slices.Equal(m.Files[1].Flags, []string{"-DB=1"}) {
		t.Errorf("per-file flags = %q", m.Files[1].Flags)
	}
	if m.Defines["FOO"] != "bar" {
		t.Errorf("defines = %v", m.Defines)
	}
}

func TestLoadManifest_OptLevelString(t *testing.T) {
	path := writeManifest(t, "name = \"foo\"\nopt_level = \"s\"\n[[file]]\npath = \"a.c\"\n")
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.OptLevel != "s" {
		t.Errorf("opt_level = %q", m.OptLevel)
	}
}

func TestLoadManifest_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing name", "[[file]]\npath = \"a.c\"\n", "name is required"},
		{"no files", "name = \"foo\"\n", "[[file]]"},
		{"file without path", "name = \"foo\"\n[[file]]\nflags = [\"-O0\"]\n", "no path"},
		{"unknown key", "name = \"foo\"\noptimize = true\n[[file]]\npath = \"a.c\"\n", "unknown keys: optimize"},
		{"bad opt level type", "name = \"foo\"\nopt_level = true\n[[file]]\npath = \"a.c\"\n", "opt_level"},
		{"syntax", "name = \n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadManifest(writeManifest(t, tt.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestManifest_Apply(t *testing.T) {
	path := writeManifest(t, `
name = "foo"
host = "x86_64-unknown-linux-gnu"
target = "x86_64-unknown-linux-gnu"
compiler = "gcc"
opt_level = "z"
includes = ["include"]
asm_flags = ["--noexecstack"]

[defines]
ZED = "1"
ALPHA = ""

[[file]]
path = "a.c"

[[file]]
path = "b.S"
flags = ["-DB=1"]
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}

	runner := fakecc.New()
	b := ccbuild.New().Runner(runner).LookPath(fakecc.AnyPath).Env(fakecc.Env(nil))
	objs, err := m.Apply(b).OutDir(t.TempDir()).CompileIntermediates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 2 {
		t.Fatalf("got %d objects", len(objs))
	}

	a, s := runner.CompileOf("a.c"), runner.CompileOf("b.S")
	fakecc.MustHave(t, a, "-Oz", "-I", filepath.Join(filepath.Dir(path), "include"))
	fakecc.MustHaveInOrder(t, a, "-DALPHA", "-DZED=1")
	fakecc.MustNotHave(t, a, "--noexecstack", "-DB=1")
	fakecc.MustHave(t, s, "--noexecstack", "-DB=1")
}

func TestManifest_ApplyCodegenKeys(t *testing.T) {
	tests := []struct {
		name    string
		keys    string
		want    []string
		notWant []string
	}{
		{"use_plt off", "use_plt = false", []string{"-fPIC", "-fno-plt"}, nil},
		{"use_plt default", "", []string{"-fPIC"}, []string{"-fno-plt", "-shared", "-static", "-fno-omit-frame-pointer"}},
		{"shared", "shared = true", []string{"-shared"}, []string{"-static"}},
		{"static", "static = true", []string{"-static"}, []string{"-shared"}},
		{"frame pointer", "force_frame_pointer = true", []string{"-fno-omit-frame-pointer"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, "name = \"foo\"\nhost = \"x86_64-unknown-linux-gnu\"\ntarget = \"x86_64-unknown-linux-gnu\"\ncompiler = \"gcc\"\n"+
				tt.keys+"\n[[file]]\npath = \"a.c\"\n")
			m, err := LoadManifest(path)
			if err != nil {
				t.Fatal(err)
			}
			runner := fakecc.New()
			b := ccbuild.New().Runner(runner).LookPath(fakecc.AnyPath).Env(fakecc.Env(nil))
			if _, err := m.Apply(b).OutDir(t.TempDir()).CompileIntermediates(context.Background()); err != nil {
				t.Fatal(err)
			}
			cmd := runner.CompileOf("a.c")
			fakecc.MustHave(t, cmd, tt.want...)
			if len(tt.notWant) > 0 {
				fakecc.MustNotHave(t, cmd, tt.notWant...)
			}
		})
	}
}

func TestManifest_ApplyStaticCRT(t *testing.T) {
	path := writeManifest(t, "name = \"foo\"\nhost = \"x86_64-pc-windows-msvc\"\ntarget = \"x86_64-pc-windows-msvc\"\ncompiler = \"cl.exe\"\nstatic_crt = true\n[[file]]\npath = \"a.c\"\n")
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	runner := fakecc.New()
	b := ccbuild.New().Runner(runner).LookPath(fakecc.AnyPath).Env(fakecc.Env(nil))
	if _, err := m.Apply(b).OutDir(t.TempDir()).CompileIntermediates(context.Background()); err != nil {
		t.Fatal(err)
	}
	cmd := runner.CompileOf("a.c")
	fakecc.MustHave(t, cmd, "-MT")
	fakecc.MustNotHave(t, cmd, "-MD")
}

func TestManifest_ApplyKeepGoing(t *testing.T) {
	path := writeManifest(t, "name = \"foo\"\nhost = \"x86_64-unknown-linux-gnu\"\ntarget = \"x86_64-unknown-linux-gnu\"\ncompiler = \"gcc\"\njobs = 1\nkeep_going = true\n"+
		"[[file]]\npath = \"a.c\"\n[[file]]\npath = \"b.c\"\n")
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	runner := fakecc.New()
	runner.Fail = map[string]int{"a.c": 1}
	b := ccbuild.New().Runner(runner).LookPath(fakecc.AnyPath).Env(fakecc.Env(nil))
	if _, err := m.Apply(b).OutDir(t.TempDir()).CompileIntermediates(context.Background()); err == nil {
		t.Fatal("expected a compile failure")
	}
	if n := len(runner.Compiles()); n != 2 {
		t.Errorf("compiled %d units, want 2", n)
	}
}
