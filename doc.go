// Package ccbuild drives native C, C++ and assembly compilers on behalf of
// higher-level build tools.
//
// A Builder collects sources and settings, resolves the toolchain for the
// requested host and target once, and then compiles every source with a
// bounded pool of compiler processes before bundling the objects into a
// static library. Callers never write per-platform command lines: the
// argument order, dialect (GCC, Clang or MSVC), Apple SDK and deployment
// target handling are derived from the target triple.
//
// # Architecture Overview
//
//	ccbuild/            Fluent Builder, the entry point for callers
//	├── target/         Triple parsing into platform facets
//	├── toolchain/      Compiler, archiver and SDK resolution
//	├── flags/          Deterministic argument composition per unit
//	├── probe/          Memoised "does the compiler accept this flag?" trials
//	├── naming/         Fingerprinted, collision-free object names
//	├── build/          Parallel compilation and the archive step
//	├── process/        Command values and the subprocess port
//	└── errors/         Structured error types for debugging
//
// # Quick Start
//
// Compile two sources into libfoo.a:
//
//	archive, err := ccbuild.New().
//	    Target("aarch64-unknown-linux-gnu").
//	    OptLevel(2).
//	    Include("include").
//	    Define("FOO", "bar").
//	    FlagIfSupported("-Wshadow").
//	    File("src/a.c").
//	    File("src/b.c").
//	    OutDir("out").
//	    Compile(ctx, "foo")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(archive.Library) // out/libfoo.a
//
// CompileIntermediates stops before the archive step and returns the
// object paths in the order the files were added.
//
// # Environment
//
// The usual variables are honoured, each optionally suffixed with the
// target triple (CC_aarch64-unknown-linux-gnu or
// CC_aarch64_unknown_linux_gnu):
//
//   - CC, CXX, AR: compiler and archiver overrides
//   - CFLAGS, CXXFLAGS, ASMFLAGS: extra flags, split with shell quoting
//   - SDKROOT: Apple SDK root, checked against the target
//   - MACOSX_DEPLOYMENT_TARGET and friends: Apple deployment targets
//   - NUM_JOBS: default parallelism
//   - TARGET, HOST, OUT_DIR: defaults for the matching setters
//
// Tests inject the environment with Builder.Env and Builder.SetEnv so the
// process environment is never read.
//
// # Error Handling
//
// Failures are *errors.Error values carrying the phase, the failing
// source, the full command line and the compiler's diagnostics:
//
//	var e *ccerrors.Error
//	if errors.As(err, &e) {
//	    fmt.Println(e.Source, e.CommandLine())
//	}
//	if errors.Is(err, ccerrors.ErrCompilationFailed) { ... }
//
// # Thread Safety
//
// A Builder is not safe for concurrent mutation. Once configured, Compile,
// CompileIntermediates, IsFlagSupported and Expand may be called from
// several goroutines; the resolved toolchain and the probe cache are shared.
package ccbuild
