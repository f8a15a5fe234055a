package flags

import (
	"slices"
	"strconv"
	"strings"

	ccerrors "github.com/wippyai/ccbuild/errors"
)

// Define is a preprocessor definition. An empty Value emits -DNAME.
type Define struct {
	Name  string
	Value string
}

// Options are the caller's per-build compiler settings. Pointer fields are
// tri-state: nil leaves the choice to the target's default.
type Options struct {
	// OptLevel is one of 0, 1, 2, 3, s, z. Empty means 2.
	OptLevel           string
	Debug              bool
	ForceFramePointer  *bool
	Warnings           *bool
	ExtraWarnings      *bool
	WarningsIntoErrors bool
	PIC                *bool
	UsePLT             *bool
	Static             *bool
	Shared             *bool
	StaticCRT          *bool
	Std                string
	Cpp                bool
	// Stdlib names the C++ standard library without its "lib" prefix.
	Stdlib string

	Includes         []string
	Defines          []Define
	Flags            []string
	FlagsIfSupported []string
	AsmFlags         []string
}

var optLevels = []string{"0", "1", "2", "3", "s", "z"}

// Opt returns the effective optimisation level.
func (o *Options) Opt() string {
	if o.OptLevel == "" {
		return "2"
	}
	return o.OptLevel
}

// Validate rejects settings no compiler would accept.
func (o *Options) Validate() error {
	if !slices.Contains(optLevels, o.Opt()) {
		return ccerrors.InvalidInput(ccerrors.PhaseConfig, "unknown optimization level "+strconv.Quote(o.OptLevel))
	}
	for _, d := range o.Defines {
		if d.Name == "" || strings.ContainsAny(d.Name, " \t\n=") {
			return ccerrors.InvalidInput(ccerrors.PhaseConfig, "invalid define name "+strconv.Quote(d.Name))
		}
	}
	for _, inc := range o.Includes {
		if inc == "" {
			return ccerrors.InvalidInput(ccerrors.PhaseConfig, "empty include directory")
		}
	}
	if strings.ContainsAny(o.Std, " \t") {
		return ccerrors.InvalidInput(ccerrors.PhaseConfig, "invalid language standard "+strconv.Quote(o.Std))
	}
	for _, f := range append(append([]string(nil), o.Flags...), o.FlagsIfSupported...) {
		if f == "" || f == "--" {
			return ccerrors.InvalidInput(ccerrors.PhaseConfig, "invalid flag "+strconv.Quote(f))
		}
	}
	return nil
}

func isTrue(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func (o *Options) warnings() bool {
	return isTrue(o.Warnings, true)
}

func (o *Options) extraWarnings() bool {
	return isTrue(o.ExtraWarnings, o.warnings())
}
