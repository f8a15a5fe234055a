package flags

import (
	"path/filepath"

	"github.com/wippyai/ccbuild/target"
	"github.com/wippyai/ccbuild/toolchain"
)

// versionMinFlag returns the -m<os>-version-min= spelling for d, or "" for
// the platforms that only accept -mtargetos= (Mac Catalyst, visionOS).
func versionMinFlag(d target.Descriptor) string {
	switch d.OS {
	case target.MacOS:
		return "-mmacosx-version-min="
	case target.IOS:
		if d.Catalyst {
			return ""
		}
		if d.Simulator {
			return "-mios-simulator-version-min="
		}
		return "-miphoneos-version-min="
	case target.TvOS:
		if d.Simulator {
			return "-mappletvsimulator-version-min="
		}
		return "-mappletvos-version-min="
	case target.WatchOS:
		if d.Simulator {
			return "-mwatchsimulator-version-min="
		}
		return "-mwatchos-version-min="
	}
	return ""
}

// llvmOS is the OS component of an Apple LLVM triple.
func llvmOS(d target.Descriptor) string {
	switch d.OS {
	case target.MacOS:
		return "macosx"
	case target.VisionOS:
		return "xros"
	}
	return string(d.OS)
}

func appleEnvSuffix(d target.Descriptor) string {
	switch {
	case d.Catalyst:
		return "-macabi"
	case d.Simulator:
		return "-simulator"
	}
	return ""
}

// appleTargetArgs selects an Apple platform. GCC-style drivers take
// -arch plus a deployment flag; clang takes --target, and for Mac Catalyst
// and visionOS the version goes into the triple instead of -mtargetos=.
func appleTargetArgs(cfg *toolchain.Config, cpp bool) []string {
	d := cfg.Target
	version := cfg.Deployment(cpp)
	arch := toolchain.AppleArch(d)
	minFlag := versionMinFlag(d)

	if cfg.IsClang() {
		if minFlag == "" {
			return []string{"--target=" + arch + "-apple-" + llvmOS(d) + version + appleEnvSuffix(d)}
		}
		return []string{
			"--target=" + arch + "-apple-" + llvmOS(d) + appleEnvSuffix(d),
			minFlag + version,
		}
	}

	args := []string{"-arch", arch}
	if minFlag != "" {
		return append(args, minFlag+version)
	}
	return append(args, "-mtargetos="+llvmOS(d)+version+appleEnvSuffix(d))
}

// catalystArgs exposes the iOS support layer of the macOS SDK.
func catalystArgs(sdk string) []string {
	support := filepath.Join(sdk, "System", "iOSSupport")
	return []string{
		"-isystem", filepath.Join(support, "usr", "include"),
		"-iframework", filepath.Join(support, "System", "Library", "Frameworks"),
		"-L" + filepath.Join(support, "usr", "lib"),
		"-F" + filepath.Join(support, "System", "Library", "Frameworks"),
	}
}
