package errors

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConfig  Phase = "config"  // builder/options validation
	PhaseResolve Phase = "resolve" // toolchain and SDK resolution
	PhaseCompose Phase = "compose" // argument composition
	PhaseProbe   Phase = "probe"   // flag support trials
	PhaseCompile Phase = "compile" // per-unit compiler invocation
	PhaseArchive Phase = "archive" // archiver invocation
)

// Kind categorizes the error
type Kind string

const (
	KindToolchainNotFound Kind = "toolchain_not_found"
	KindSdkMismatch       Kind = "sdk_mismatch"
	KindCompilationFailed Kind = "compilation_failed"
	KindProbeFailed       Kind = "probe_failed"
	KindArchiveFailed     Kind = "archive_failed"
	KindInvalidInput      Kind = "invalid_input"
	KindSpawnFailed       Kind = "spawn_failed"
)

// Kind-only sentinels for errors.Is checks that ignore the phase.
var (
	ErrToolchainNotFound = &Error{Kind: KindToolchainNotFound}
	ErrSdkMismatch       = &Error{Kind: KindSdkMismatch}
	ErrCompilationFailed = &Error{Kind: KindCompilationFailed}
	ErrArchiveFailed     = &Error{Kind: KindArchiveFailed}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
)

// Error is the structured error type used throughout the driver
type Error struct {
	Cause   error
	Phase   Phase
	Kind    Kind
	Source  string
	Detail  string
	Command []string
	Output  []byte
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Source != "" {
		b.WriteString(" at ")
		b.WriteString(e.Source)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	if len(e.Command) > 0 {
		b.WriteString("\n  command: ")
		b.WriteString(shellquote.Join(e.Command...))
	}

	if out := strings.TrimRight(string(e.Output), "\n"); out != "" {
		b.WriteString("\n  output:\n")
		b.WriteString(out)
	}

	return b.String()
}

// CommandLine renders the failing command as a single shell-quoted line.
func (e *Error) CommandLine() string {
	return shellquote.Join(e.Command...)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && e.Phase != t.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Source sets the source file the error relates to
func (b *Builder) Source(path string) *Builder {
	b.err.Source = path
	return b
}

// Command sets the full command line that failed
func (b *Builder) Command(argv ...string) *Builder {
	b.err.Command = append([]string(nil), argv...)
	return b
}

// Output sets the captured diagnostics, kept verbatim
func (b *Builder) Output(out []byte) *Builder {
	b.err.Output = append([]byte(nil), out...)
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// ToolchainNotFound reports that none of the candidate programs exist on the search path
func ToolchainNotFound(candidates []string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindToolchainNotFound,
		Detail: fmt.Sprintf("no compiler found on the search path (tried %s)", strings.Join(candidates, ", ")),
	}
}

// SdkMismatch reports an explicit SDK that contradicts the requested target
func SdkMismatch(sdkPath, wantSDK string, cause error) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindSdkMismatch,
		Detail: fmt.Sprintf("SDK %q does not match required SDK %q", sdkPath, wantSDK),
		Cause:  cause,
	}
}

// CompilationFailed reports a unit whose compiler exited with a non-zero status
func CompilationFailed(source string, argv []string, exitCode int, output []byte) *Error {
	return &Error{
		Phase:   PhaseCompile,
		Kind:    KindCompilationFailed,
		Source:  source,
		Detail:  fmt.Sprintf("compiler exited with status %d", exitCode),
		Command: append([]string(nil), argv...),
		Output:  append([]byte(nil), output...),
	}
}

// SpawnFailed reports a process that could not be started at all
func SpawnFailed(phase Phase, source string, argv []string, cause error) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindSpawnFailed,
		Source:  source,
		Detail:  "failed to start process",
		Command: append([]string(nil), argv...),
		Cause:   cause,
	}
}

// ProbeFailed records a trial compilation that could not run; callers downgrade it to "unsupported"
func ProbeFailed(flag string, cause error) *Error {
	return &Error{
		Phase:  PhaseProbe,
		Kind:   KindProbeFailed,
		Detail: fmt.Sprintf("probe %q", flag),
		Cause:  cause,
	}
}

// ArchiveFailed reports an archiver failure, propagating its diagnostics
func ArchiveFailed(library string, argv []string, output []byte, cause error) *Error {
	return &Error{
		Phase:   PhaseArchive,
		Kind:    KindArchiveFailed,
		Source:  library,
		Detail:  "archiver failed",
		Command: append([]string(nil), argv...),
		Output:  append([]byte(nil), output...),
		Cause:   cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
