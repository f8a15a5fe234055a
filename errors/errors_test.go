package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:   PhaseCompile,
				Kind:    KindCompilationFailed,
				Source:  "src/foo.c",
				Detail:  "compiler exited with status 1",
				Command: []string{"cc", "-DMSG=hello world", "-c", "src/foo.c"},
				Output:  []byte("foo.c:1:1: error: expected ';'\n"),
			},
			contains: []string{"[compile]", "compilation_failed", "src/foo.c", "status 1", "'-DMSG=hello world'", "expected ';'"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseResolve,
				Kind:  KindToolchainNotFound,
			},
			contains: []string{"[resolve]", "toolchain_not_found"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseArchive,
				Kind:   KindArchiveFailed,
				Detail: "archiver failed",
				Cause:  errors.New("exit status 2"),
			},
			contains: []string{"[archive]", "archive_failed", "caused by", "exit status 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseCompile,
		Kind:  KindSpawnFailed,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseCompile,
		Kind:   KindCompilationFailed,
		Source: "foo.c",
	}

	if !err.Is(&Error{Phase: PhaseCompile, Kind: KindCompilationFailed}) {
		t.Error("Is should match same phase and kind")
	}

	if err.Is(&Error{Phase: PhaseArchive, Kind: KindCompilationFailed}) {
		t.Error("Is should not match different phase")
	}

	if err.Is(&Error{Phase: PhaseCompile, Kind: KindArchiveFailed}) {
		t.Error("Is should not match different kind")
	}

	if !errors.Is(err, ErrCompilationFailed) {
		t.Error("errors.Is should match the kind-only sentinel")
	}
	if errors.Is(err, ErrToolchainNotFound) {
		t.Error("errors.Is should not match an unrelated sentinel")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	argv := []string{"cc", "-c", "foo.c"}
	out := []byte("boom")
	err := New(PhaseCompile, KindCompilationFailed).
		Source("foo.c").
		Command(argv...).
		Output(out).
		Cause(cause).
		Detail("exit %d", 3).
		Build()

	if err.Phase != PhaseCompile {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseCompile)
	}
	if err.Kind != KindCompilationFailed {
		t.Errorf("Kind = %v, want %v", err.Kind, KindCompilationFailed)
	}
	if err.Source != "foo.c" {
		t.Errorf("Source = %v, want foo.c", err.Source)
	}
	if err.CommandLine() != "cc -c foo.c" {
		t.Errorf("CommandLine = %q", err.CommandLine())
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "exit 3" {
		t.Errorf("Detail = %v, want 'exit 3'", err.Detail)
	}

	// builder copies its inputs
	argv[0] = "gcc"
	out[0] = 'B'
	if err.Command[0] != "cc" || string(err.Output) != "boom" {
		t.Error("builder must not alias caller slices")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("ToolchainNotFound", func(t *testing.T) {
		err := ToolchainNotFound([]string{"aarch64-linux-gnu-gcc", "clang"})
		if err.Kind != KindToolchainNotFound || err.Phase != PhaseResolve {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Detail, "aarch64-linux-gnu-gcc") {
			t.Errorf("Detail = %v, should list candidates", err.Detail)
		}
	})

	t.Run("SdkMismatch", func(t *testing.T) {
		err := SdkMismatch("/sdk/MacOSX.sdk", "iphoneos", nil)
		if !errors.Is(err, ErrSdkMismatch) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindSdkMismatch)
		}
	})

	t.Run("CompilationFailed", func(t *testing.T) {
		err := CompilationFailed("a.c", []string{"cc", "a.c"}, 1, []byte("diag"))
		if err.Source != "a.c" || string(err.Output) != "diag" {
			t.Errorf("unexpected %+v", err)
		}
	})

	t.Run("ProbeFailed", func(t *testing.T) {
		err := ProbeFailed("-Wfoo", errors.New("exec: not found"))
		if err.Kind != KindProbeFailed || err.Phase != PhaseProbe {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("ArchiveFailed", func(t *testing.T) {
		err := ArchiveFailed("libfoo.a", []string{"ar", "crs"}, []byte("ar: bad"), nil)
		if !errors.Is(err, ErrArchiveFailed) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindArchiveFailed)
		}
	})

	t.Run("InvalidInput", func(t *testing.T) {
		err := InvalidInput(PhaseConfig, "bad opt level")
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidInput)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("inner")
		err := Wrap(PhaseResolve, KindToolchainNotFound, cause, "xcrun")
		if !errors.Is(err, cause) {
			t.Error("Wrap should keep the cause reachable")
		}
	})
}
