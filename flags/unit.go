package flags

import (
	"path/filepath"
	"strings"
)

// Kind is the language of a translation unit.
type Kind int

const (
	C Kind = iota
	Cpp
	Assembler
	MASM
)

func (k Kind) String() string {
	switch k {
	case C:
		return "c"
	case Cpp:
		return "c++"
	case Assembler:
		return "asm"
	case MASM:
		return "masm"
	default:
		return "unknown"
	}
}

// IsAsm reports the two assembly kinds.
func (k Kind) IsAsm() bool {
	return k == Assembler || k == MASM
}

// KindOf infers the language from a file extension. Unknown extensions
// are compiled as C.
func KindOf(path string) Kind {
	ext := filepath.Ext(path)
	if ext == ".C" {
		return Cpp
	}
	switch strings.ToLower(ext) {
	case ".cc", ".cpp", ".cxx", ".c++":
		return Cpp
	case ".s", ".sx":
		return Assembler
	case ".asm":
		return MASM
	default:
		return C
	}
}

// Unit is one source file together with the flags that apply only to it.
type Unit struct {
	Source string
	Kind   Kind
	Flags  []string
}

// NewUnit creates a unit whose kind is inferred from the extension.
func NewUnit(source string, flags ...string) Unit {
	return Unit{Source: source, Kind: KindOf(source), Flags: flags}
}
