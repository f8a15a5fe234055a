package toolchain

import (
	"strings"

	"github.com/wippyai/ccbuild/target"
)

// crossPrefixes maps triples to the prefix of their GNU cross tools as
// shipped by common distributions.
var crossPrefixes = map[string]string{
	"aarch64-unknown-linux-gnu":       "aarch64-linux-gnu",
	"aarch64-unknown-linux-musl":      "aarch64-linux-musl",
	"aarch64-unknown-none":            "aarch64-none-elf",
	"aarch64-unknown-none-softfloat":  "aarch64-none-elf",
	"arm-unknown-linux-gnueabi":       "arm-linux-gnueabi",
	"arm-unknown-linux-gnueabihf":     "arm-linux-gnueabihf",
	"armv7-unknown-linux-gnueabihf":   "arm-linux-gnueabihf",
	"armv7-unknown-linux-musleabihf":  "arm-linux-musleabihf",
	"i586-unknown-linux-gnu":          "i686-linux-gnu",
	"i686-unknown-linux-gnu":          "i686-linux-gnu",
	"i686-unknown-linux-musl":         "i686-linux-musl",
	"i686-pc-windows-gnu":             "i686-w64-mingw32",
	"x86_64-pc-windows-gnu":           "x86_64-w64-mingw32",
	"x86_64-unknown-linux-gnu":        "x86_64-linux-gnu",
	"x86_64-unknown-linux-musl":       "x86_64-linux-musl",
	"x86_64-unknown-freebsd":          "x86_64-unknown-freebsd",
	"x86_64-unknown-netbsd":           "x86_64-unknown-netbsd",
	"mips-unknown-linux-gnu":          "mips-linux-gnu",
	"mipsel-unknown-linux-gnu":        "mipsel-linux-gnu",
	"mips64-unknown-linux-gnuabi64":   "mips64-linux-gnuabi64",
	"mips64el-unknown-linux-gnuabi64": "mips64el-linux-gnuabi64",
	"powerpc-unknown-linux-gnu":       "powerpc-linux-gnu",
	"powerpc64-unknown-linux-gnu":     "powerpc64-linux-gnu",
	"powerpc64le-unknown-linux-gnu":   "powerpc64le-linux-gnu",
	"riscv64gc-unknown-linux-gnu":     "riscv64-linux-gnu",
	"riscv64gc-unknown-linux-musl":    "riscv64-linux-musl",
	"riscv32imac-unknown-none-elf":    "riscv32-unknown-elf",
	"riscv64gc-unknown-none-elf":      "riscv64-unknown-elf",
	"s390x-unknown-linux-gnu":         "s390x-linux-gnu",
	"sparc64-unknown-linux-gnu":       "sparc64-linux-gnu",
	"loongarch64-unknown-linux-gnu":   "loongarch64-linux-gnu",
	"thumbv6m-none-eabi":              "arm-none-eabi",
	"thumbv7em-none-eabi":             "arm-none-eabi",
	"thumbv7em-none-eabihf":           "arm-none-eabi",
	"thumbv7m-none-eabi":              "arm-none-eabi",
	"thumbv8m.main-none-eabihf":       "arm-none-eabi",
	"armv7a-none-eabi":                "arm-none-eabi",
	"armebv7r-none-eabihf":            "arm-none-eabi",
}

// CrossPrefix returns the GNU tool prefix for d, if one is known. Linux
// triples missing from the table fall back to "<arch>-linux-<env>".
func CrossPrefix(d target.Descriptor) (string, bool) {
	if p, ok := crossPrefixes[d.Triple]; ok {
		return p, true
	}
	if d.OS == target.Linux && d.IsKnownArch() && d.Env != target.Unspecified {
		return llvmArch(d.Arch) + "-linux-" + d.Env, true
	}
	return "", false
}

// LLVMTriple rewrites a triple into the spelling clang's --target accepts.
func LLVMTriple(d target.Descriptor) string {
	parts := strings.Split(d.Triple, "-")
	if len(parts) == 0 || d.Triple == "" {
		return d.Triple
	}
	parts[0] = llvmArch(parts[0])
	if d.IsAndroid() && parts[0] == "armv7" {
		parts[0] = "armv7a"
	}
	triple := strings.Join(parts, "-")
	return strings.TrimSuffix(triple, "-softfloat")
}

func llvmArch(arch string) string {
	switch {
	case strings.HasPrefix(arch, "riscv64"):
		return "riscv64"
	case strings.HasPrefix(arch, "riscv32"):
		return "riscv32"
	}
	return arch
}
