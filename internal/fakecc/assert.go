package fakecc

import (
	"slices"
	"strings"
	"testing"

	"github.com/wippyai/ccbuild/process"
)

// MustHave fails the test unless every arg appears verbatim in cmd.
func MustHave(t testing.TB, cmd *process.Command, args ...string) {
	t.Helper()
	if cmd == nil {
		t.Fatalf("no command recorded")
	}
	for _, a := range args {
		if !slices.Contains(cmd.Args, a) {
			t.Errorf("%q does not have %q", cmd.Argv(), a)
		}
	}
}

// MustNotHave fails the test if any arg appears verbatim in cmd.
func MustNotHave(t testing.TB, cmd *process.Command, args ...string) {
	t.Helper()
	if cmd == nil {
		t.Fatalf("no command recorded")
	}
	for _, a := range args {
		if slices.Contains(cmd.Args, a) {
			t.Errorf("%q should not have %q", cmd.Argv(), a)
		}
	}
}

// MustNotHavePrefix fails the test if any argument starts with prefix.
func MustNotHavePrefix(t testing.TB, cmd *process.Command, prefix string) {
	t.Helper()
	for _, a := range cmd.Args {
		if strings.HasPrefix(a, prefix) {
			t.Errorf("%q should not have an argument starting with %q", cmd.Argv(), prefix)
		}
	}
}

// MustHaveInOrder fails the test unless before appears ahead of after.
func MustHaveInOrder(t testing.TB, cmd *process.Command, before, after string) {
	t.Helper()
	if cmd == nil {
		t.Fatalf("no command recorded")
	}
	i := slices.Index(cmd.Args, before)
	j := slices.Index(cmd.Args, after)
	switch {
	case i < 0:
		t.Errorf("%q does not have %q", cmd.Argv(), before)
	case j < 0:
		t.Errorf("%q does not have %q", cmd.Argv(), after)
	case i > j:
		t.Errorf("%q: expected %q before %q", cmd.Argv(), before, after)
	}
}
