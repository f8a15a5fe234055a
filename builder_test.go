package ccbuild

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/wippyai/ccbuild/build"
	ccerrors "github.com/wippyai/ccbuild/errors"
	"github.com/wippyai/ccbuild/internal/fakecc"
	"github.com/wippyai/ccbuild/process"
)

const linux = "x86_64-unknown-linux-gnu"

// gnu returns a builder wired to a fake gcc on a native Linux host.
func gnu(t *testing.T) (*Builder, *fakecc.Runner) {
	t.Helper()
	runner := fakecc.New()
	b := New().
		Runner(runner).
		LookPath(fakecc.AnyPath).
		Env(fakecc.Env(nil)).
		Host(linux).
		Target(linux).
		Compiler("gcc").
		OutDir(t.TempDir())
	return b, runner
}

func TestCompile_Smoke(t *testing.T) {
	b, runner := gnu(t)
	archive, err := b.File("foo.c").Compile(context.Background(), "foo")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	cmds := runner.Commands()
	if len(cmds) != 2 {
		t.Fatalf("ran %d commands, want compile + archive", len(cmds))
	}
	fakecc.MustHave(t, cmds[0], "-O2", "foo.c", "-c", "-ffunction-sections", "-fdata-sections")
	fakecc.MustNotHave(t, cmds[0], "-gdwarf-4")

	if len(archive.Objects) != 1 || !strings.HasSuffix(archive.Objects[0], "-foo.o") {
		t.Errorf("objects = %q", archive.Objects)
	}
	if filepath.Base(archive.Library) != "libfoo.a" {
		t.Errorf("library = %q", archive.Library)
	}
	fakecc.MustHave(t, cmds[1], "crs", archive.Library, archive.Objects[0])
}

func TestCompileIntermediates(t *testing.T) {
	b, runner := gnu(t)
	objs, err := b.
		File("foo.c").
		File("x86_64.asm").
		File("x86_64.S").
		AsmFlag("--abc").
		CompileIntermediates(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(objs) != 3 {
		t.Fatalf("got %d objects, want 3", len(objs))
	}
	for i, want := range []string{"foo", "x86_64", "x86_64"} {
		if !strings.Contains(objs[i], want) {
			t.Errorf("object %d = %q, want it to contain %q", i, objs[i], want)
		}
	}
	if len(runner.Archives()) != 0 {
		t.Error("intermediates must not be archived")
	}
}

func TestCompile_FlagIfSupported(t *testing.T) {
	t.Run("c", func(t *testing.T) {
		b, runner := gnu(t)
		runner.Reject = []string{"-Wflag-does-not-exist"}
		_, err := b.File("foo.c").
			Flag("-v").
			FlagIfSupported("-Wall").
			FlagIfSupported("-Wflag-does-not-exist").
			FlagIfSupported("-std=c++11").
			Compile(context.Background(), "foo")
		if err != nil {
			t.Fatal(err)
		}
		cmd := runner.CompileOf("foo.c")
		fakecc.MustHave(t, cmd, "-v", "-Wall")
		fakecc.MustNotHave(t, cmd, "-Wflag-does-not-exist", "-std=c++11")
	})

	t.Run("cpp", func(t *testing.T) {
		b, runner := gnu(t)
		_, err := b.Cpp(true).File("foo.cpp").FlagIfSupported("-std=c++11").Compile(context.Background(), "foo")
		if err != nil {
			t.Fatal(err)
		}
		cmd := runner.CompileOf("foo.cpp")
		if cmd.Program != "g++" {
			t.Errorf("program = %q, want g++", cmd.Program)
		}
		fakecc.MustHave(t, cmd, "-std=c++11")
	})
}

func TestIsFlagSupported(t *testing.T) {
	b, runner := gnu(t)
	runner.Reject = []string{"-fbogus"}
	ctx := context.Background()

	tests := []struct {
		flag string
		want bool
	}{
		{"-fstack-protector-strong", true},
		{"-fbogus", false},
		{"-fstack-protector-strong", true},
	}
	for _, tt := range tests {
		got, err := b.IsFlagSupported(ctx, tt.flag)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("IsFlagSupported(%q) = %v, want %v", tt.flag, got, tt.want)
		}
	}
	if n := len(runner.Probes()); n != 2 {
		t.Errorf("ran %d probes, want 2", n)
	}
}

func TestResolvedOnce(t *testing.T) {
	runner := fakecc.New()
	b := New().
		Runner(runner).
		LookPath(fakecc.AnyPath).
		Env(fakecc.Env(nil)).
		Host(linux).
		Compiler("cc").
		OutDir(t.TempDir()).
		File("foo.c").
		FlagIfSupported("-Wshadow")
	ctx := context.Background()

	for range 2 {
		if _, err := b.Compile(ctx, "foo"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := b.IsFlagSupported(ctx, "-Wshadow"); err != nil {
		t.Fatal(err)
	}

	banners := 0
	for _, c := range runner.Commands() {
		if c.Has("--version") {
			banners++
		}
	}
	if banners != 1 {
		t.Errorf("compiler banner read %d times, want 1", banners)
	}
	if n := len(runner.Probes()); n != 1 {
		t.Errorf("ran %d probes, want 1", n)
	}

	// a new target is a new configuration
	b.Target("aarch64-unknown-linux-gnu")
	if _, err := b.CompileIntermediates(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(runner.Probes()); n != 2 {
		t.Errorf("ran %d probes after retargeting, want 2", n)
	}
}

func TestCompile_Android(t *testing.T) {
	const triple = "arm-linux-androideabi"

	t.Run("ndk shim", func(t *testing.T) {
		runner := fakecc.New()
		_, err := New().
			Runner(runner).
			LookPath(fakecc.OnlyPath(triple+"-clang", triple+"-ar", "llvm-ar")).
			Env(fakecc.Env(nil)).
			Host(linux).
			Target(triple).
			OutDir(t.TempDir()).
			File("foo.c").
			Compile(context.Background(), "foo")
		if err != nil {
			t.Fatal(err)
		}
		cmd := runner.CompileOf("foo.c")
		if cmd.Program != triple+"-clang" {
			t.Errorf("program = %q", cmd.Program)
		}
		fakecc.MustNotHave(t, cmd, "--target="+triple)
	})

	t.Run("explicit ndk shim", func(t *testing.T) {
		const shim = "aarch64-linux-android21-clang"
		runner := fakecc.New()
		_, err := New().
			Runner(runner).
			LookPath(fakecc.AnyPath).
			Env(fakecc.Env(nil)).
			Host(linux).
			Target("aarch64-linux-android").
			Compiler(shim).
			OutDir(t.TempDir()).
			File("foo.c").
			Compile(context.Background(), "foo")
		if err != nil {
			t.Fatal(err)
		}
		cmd := runner.CompileOf("foo.c")
		if cmd.Program != shim {
			t.Errorf("program = %q", cmd.Program)
		}
		fakecc.MustNotHavePrefix(t, cmd, "--target=")
	})

	t.Run("windows host", func(t *testing.T) {
		runner := fakecc.New()
		_, err := New().
			Runner(runner).
			LookPath(fakecc.OnlyPath("clang", "llvm-ar")).
			Env(fakecc.Env(nil)).
			Host("x86_64-pc-windows-msvc").
			Target(triple).
			OutDir(t.TempDir()).
			File("foo.c").
			Compile(context.Background(), "foo")
		if err != nil {
			t.Fatal(err)
		}
		fakecc.MustHave(t, runner.CompileOf("foo.c"), "--target="+triple)
	})
}

func apple(t *testing.T, tgt string) (*Builder, *fakecc.Runner) {
	t.Helper()
	runner := fakecc.New()
	runner.SDKs = map[string]string{
		"iphoneos": "/sdk/iPhoneOS.sdk",
		"macosx":   "/sdk/MacOSX.sdk",
	}
	b := New().
		Runner(runner).
		LookPath(fakecc.AnyPath).
		Env(fakecc.Env(nil)).
		Host("aarch64-apple-darwin").
		Target(tgt).
		OutDir(t.TempDir()).
		File("foo.c")
	return b, runner
}

func TestCompile_AppleSDKRootWrong(t *testing.T) {
	const wrong = "/Library/Developer/CommandLineTools/SDKs/MacOSX.sdk"
	b, runner := apple(t, "aarch64-apple-ios")
	if _, err := b.Compiler("clang").SetEnv("SDKROOT", wrong).Compile(context.Background(), "foo"); err != nil {
		t.Fatal(err)
	}
	cmd := runner.CompileOf("foo.c")
	fakecc.MustHave(t, cmd, "/sdk/iPhoneOS.sdk")
	fakecc.MustNotHave(t, cmd, wrong)
}

func TestCompile_AppleExplicitSysroot(t *testing.T) {
	const sdk = "/sdk/MacOSX13.3.sdk"
	b, runner := apple(t, "aarch64-apple-darwin")
	if _, err := b.Compiler("clang").Sysroot(sdk).Compile(context.Background(), "foo"); err != nil {
		t.Fatal(err)
	}
	cmd := runner.CompileOf("foo.c")
	fakecc.MustHaveInOrder(t, cmd, "-isysroot", sdk)
	fakecc.MustNotHavePrefix(t, cmd, "--sysroot=")
}

func TestCompile_MacOSDefaultSDK(t *testing.T) {
	b, runner := apple(t, "aarch64-apple-darwin")
	if _, err := b.Compiler("clang").Compile(context.Background(), "foo"); err != nil {
		t.Fatal(err)
	}
	fakecc.MustNotHave(t, runner.CompileOf("foo.c"), "-isysroot")
}

func TestCompile_AppleSDKUnavailable(t *testing.T) {
	b, runner := apple(t, "aarch64-apple-ios")
	runner.SDKs = nil
	_, err := b.Compiler("clang").SetEnv("SDKROOT", "/sdk/MacOSX.sdk").Compile(context.Background(), "foo")
	if !errors.Is(err, ccerrors.ErrSdkMismatch) {
		t.Fatalf("err = %v, want sdk mismatch", err)
	}
	if len(runner.Compiles()) != 0 {
		t.Error("nothing may compile without an SDK")
	}
}

func TestCompile_MacCatalyst(t *testing.T) {
	b, runner := apple(t, "aarch64-apple-ios-macabi")
	if _, err := b.Compiler("clang").Compile(context.Background(), "foo"); err != nil {
		t.Fatal(err)
	}
	cmd := runner.CompileOf("foo.c")
	sdk := "/sdk/MacOSX.sdk"
	fakecc.MustHave(t, cmd, "--target=arm64-apple-ios14.0-macabi")
	fakecc.MustHaveInOrder(t, cmd, "-isysroot", sdk)
	fakecc.MustHaveInOrder(t, cmd, "-isystem", filepath.Join(sdk, "System/iOSSupport/usr/include"))
	fakecc.MustHaveInOrder(t, cmd, "-iframework", filepath.Join(sdk, "System/iOSSupport/System/Library/Frameworks"))
	fakecc.MustHave(t, cmd,
		"-L"+filepath.Join(sdk, "System/iOSSupport/usr/lib"),
		"-F"+filepath.Join(sdk, "System/iOSSupport/System/Library/Frameworks"))
}

func TestCompile_MacOSCppMinimums(t *testing.T) {
	const mac = "x86_64-apple-darwin"
	tests := []struct {
		env  string
		cpp  bool
		want string
	}{
		{"10.7", true, "-mmacosx-version-min=10.9"},
		{"10.9", true, "-mmacosx-version-min=10.9"},
		{"11.0", true, "-mmacosx-version-min=11.0"},
		{"10.7", false, "-mmacosx-version-min=10.7"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			runner := fakecc.New()
			_, err := New().
				Runner(runner).
				LookPath(fakecc.AnyPath).
				Env(fakecc.Env(nil)).
				Host(mac).
				Target(mac).
				Compiler("gcc").
				Cpp(tt.cpp).
				SetEnv("MACOSX_DEPLOYMENT_TARGET", tt.env).
				OutDir(t.TempDir()).
				File("foo.c").
				Compile(context.Background(), "foo")
			if err != nil {
				t.Fatal(err)
			}
			fakecc.MustHave(t, runner.CompileOf("foo.c"), tt.want)
		})
	}
}

func TestCompile_EnvFlags(t *testing.T) {
	b, runner := gnu(t)
	b.SetEnv("CFLAGS", `-DGREETING="hello world" -march=native`).Flag("-fno-common")
	if _, err := b.File("foo.c").CompileIntermediates(context.Background()); err != nil {
		t.Fatal(err)
	}
	cmd := runner.CompileOf("foo.c")
	fakecc.MustHave(t, cmd, "-DGREETING=hello world", "-march=native")
	fakecc.MustHaveInOrder(t, cmd, "-march=native", "-fno-common")
}

func TestCompile_Failure(t *testing.T) {
	b, runner := gnu(t)
	runner.Fail = map[string]int{"bad.c": 1}
	_, err := b.File("good.c").File("bad.c").Jobs(1).Compile(context.Background(), "foo")

	var e *ccerrors.Error
	if !errors.As(err, &e) || e.Kind != ccerrors.KindCompilationFailed {
		t.Fatalf("err = %v, want compilation failure", err)
	}
	if e.Source != "bad.c" || !strings.Contains(string(e.Output), "error:") {
		t.Errorf("error lost context: %+v", e)
	}
	if len(runner.Archives()) != 0 {
		t.Error("a failed build must not be archived")
	}
}

func TestCompile_OutDir(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		b, _ := gnu(t)
		_, err := b.OutDir("").File("foo.c").Compile(context.Background(), "foo")
		if !errors.Is(err, ccerrors.ErrInvalidInput) {
			t.Fatalf("err = %v, want invalid input", err)
		}
	})

	t.Run("from OUT_DIR", func(t *testing.T) {
		b, _ := gnu(t)
		dir := t.TempDir()
		archive, err := b.OutDir("").SetEnv("OUT_DIR", dir).File("foo.c").Compile(context.Background(), "foo")
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Dir(archive.Library) != dir {
			t.Errorf("library = %q, want it in %q", archive.Library, dir)
		}
	})
}

func TestCompile_ToolchainNotFound(t *testing.T) {
	_, err := New().
		Runner(fakecc.New()).
		LookPath(fakecc.OnlyPath()).
		Env(fakecc.Env(nil)).
		Host(linux).
		Target("aarch64-unknown-linux-gnu").
		OutDir(t.TempDir()).
		File("foo.c").
		Compile(context.Background(), "foo")
	if !errors.Is(err, ccerrors.ErrToolchainNotFound) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "aarch64-linux-gnu-gcc") {
		t.Errorf("error should list the tried candidates: %v", err)
	}
}

func TestObserve(t *testing.T) {
	b, _ := gnu(t)
	var (
		mu    sync.Mutex
		types []build.EventType
	)
	b.Observe(build.ObserverFunc(func(e build.Event) {
		mu.Lock()
		defer mu.Unlock()
		types = append(types, e.Type)
	}))
	if _, err := b.File("a.c").Jobs(1).Compile(context.Background(), "foo"); err != nil {
		t.Fatal(err)
	}
	want := []build.EventType{build.UnitStarted, build.UnitFinished, build.ArchiveStarted, build.ArchiveFinished}
	if !slices.Equal(types, want) {
		t.Errorf("events = %v, want %v", types, want)
	}
}

func TestExpand(t *testing.T) {
	b, runner := gnu(t)
	out, err := b.File("foo.c").Define("FOO", "bar").Expand(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte("int x;")) {
		t.Errorf("output = %q", out)
	}

	var cmd *process.Command
	for _, c := range runner.Commands() {
		if c.Has("-E") {
			cmd = c
		}
	}
	if cmd == nil {
		t.Fatal("preprocessor never ran")
	}
	fakecc.MustHave(t, cmd, "-DFOO=bar", "foo.c")
	fakecc.MustNotHave(t, cmd, "-c", "-o")
}

func TestExpand_NoFiles(t *testing.T) {
	b, _ := gnu(t)
	if _, err := b.Expand(context.Background()); !errors.Is(err, ccerrors.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}
