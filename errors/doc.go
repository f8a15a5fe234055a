// Package errors provides structured error types for the ccbuild driver.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the context needed to diagnose a failed build without
// re-running it: the source file, the full command line, and the captured
// compiler output.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCompile, errors.KindCompilationFailed).
//		Source("src/foo.c").
//		Command("cc", "-O2", "-c", "src/foo.c").
//		Output(stderr).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ToolchainNotFound([]string{"aarch64-linux-gnu-gcc"})
//	err := errors.ArchiveFailed("libfoo.a", argv, output, cause)
//
// Kind-only sentinels match regardless of phase:
//
//	if errors.Is(err, ccerrors.ErrCompilationFailed) { ... }
package errors
