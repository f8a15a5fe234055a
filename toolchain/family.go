package toolchain

import (
	"path/filepath"
	"strings"
)

// Family selects the argument dialect of a compiler.
type Family int

const (
	Gnu Family = iota
	Clang
	Msvc
)

func (f Family) String() string {
	switch f {
	case Gnu:
		return "gnu"
	case Clang:
		return "clang"
	case Msvc:
		return "msvc"
	default:
		return "unknown"
	}
}

// ProgramBase strips directories, an .exe suffix and case from a program
// name: "/usr/bin/Clang.EXE" -> "clang".
func ProgramBase(program string) string {
	base := filepath.Base(strings.ReplaceAll(program, `\`, "/"))
	base = strings.ToLower(base)
	return strings.TrimSuffix(base, ".exe")
}

// ClassifyName guesses the family from the program name alone. The second
// result is false for names that say nothing about the family, such as
// "cc" or "c++".
func ClassifyName(program string) (Family, bool) {
	base := ProgramBase(program)
	switch {
	case base == "cl" || base == "clang-cl":
		return Msvc, true
	case strings.Contains(base, "clang"):
		return Clang, true
	case base == "gcc" || base == "g++",
		strings.HasSuffix(base, "-gcc"), strings.HasSuffix(base, "-g++"),
		strings.HasPrefix(base, "gcc-"), strings.HasPrefix(base, "g++-"):
		return Gnu, true
	}
	return Gnu, false
}

// ClassifyBanner classifies a compiler from its --version output.
func ClassifyBanner(banner string) Family {
	switch {
	case strings.Contains(banner, "clang"):
		return Clang
	case strings.Contains(banner, "Microsoft"):
		return Msvc
	default:
		return Gnu
	}
}

// cxxName derives the C++ driver from a C driver name, keeping any
// directory and cross prefix.
func cxxName(program string) string {
	dir, file := filepath.Split(program)
	ext := ""
	if strings.HasSuffix(strings.ToLower(file), ".exe") {
		ext = file[len(file)-4:]
		file = file[:len(file)-4]
	}
	switch {
	case file == "cl" || file == "clang-cl":
	case file == "cc":
		file = "c++"
	case file == "gcc":
		file = "g++"
	case strings.HasSuffix(file, "-gcc"):
		file = strings.TrimSuffix(file, "-gcc") + "-g++"
	case strings.HasSuffix(file, "-cc"):
		file = strings.TrimSuffix(file, "-cc") + "-c++"
	case strings.HasSuffix(file, "clang"):
		file += "++"
	}
	return dir + file + ext
}
