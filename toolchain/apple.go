package toolchain

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/coreos/go-semver/semver"
	"go.uber.org/zap"

	ccerrors "github.com/wippyai/ccbuild/errors"
	"github.com/wippyai/ccbuild/process"
	"github.com/wippyai/ccbuild/target"
)

// SDKName returns the xcrun SDK name for an Apple target, or "" for
// anything else.
func SDKName(d target.Descriptor) string {
	if !d.IsApple() {
		return ""
	}
	switch d.OS {
	case target.IOS:
		if d.Catalyst {
			return "macosx"
		}
		if d.Simulator {
			return "iphonesimulator"
		}
		return "iphoneos"
	case target.TvOS:
		if d.Simulator {
			return "appletvsimulator"
		}
		return "appletvos"
	case target.WatchOS:
		if d.Simulator {
			return "watchsimulator"
		}
		return "watchos"
	case target.VisionOS:
		if d.Simulator {
			return "xrsimulator"
		}
		return "xros"
	default:
		return "macosx"
	}
}

// AppleArch returns the -arch spelling of the target architecture.
func AppleArch(d target.Descriptor) string {
	switch d.Arch {
	case "aarch64":
		return "arm64"
	case "i386", "i586", "i686":
		return "i386"
	}
	return d.Arch
}

// needsSDK reports whether compiling for t from h needs an explicit SDK
// root. A macOS target built on a macOS host uses the default SDK.
func needsSDK(t, h target.Descriptor) bool {
	if !t.IsApple() {
		return false
	}
	return !t.IsMacOS() || !h.IsMacOS()
}

// sdkPlatform extracts the SDK name advertised by a path such as
// ".../SDKs/iPhoneOS17.2.sdk". The second result is false when the path
// does not follow the Xcode naming convention.
func sdkPlatform(path string) (string, bool) {
	base := strings.ToLower(filepath.Base(filepath.Clean(path)))
	if !strings.HasSuffix(base, ".sdk") {
		return "", false
	}
	base = strings.TrimSuffix(base, ".sdk")
	base = strings.TrimRight(base, "0123456789.")
	return base, base != ""
}

// resolveSDK picks the SDK root for t. An explicit path that advertises a
// different platform is replaced by the locator's answer.
func (r *Resolver) resolveSDK(ctx context.Context, t target.Descriptor, explicit string) (string, error) {
	want := SDKName(t)
	if explicit != "" {
		got, known := sdkPlatform(explicit)
		if !known || got == want {
			return explicit, nil
		}
		path, err := r.locateSDK(ctx, want)
		if err != nil {
			return "", ccerrors.SdkMismatch(explicit, want, err)
		}
		Logger().Warn("ignoring SDK root for a different platform",
			zap.String("sdk", explicit),
			zap.String("want", want),
			zap.String("using", path))
		return path, nil
	}

	path, err := r.locateSDK(ctx, want)
	if err != nil {
		return "", ccerrors.Wrap(ccerrors.PhaseResolve, ccerrors.KindToolchainNotFound, err,
			"cannot locate the "+want+" SDK")
	}
	return path, nil
}

func (r *Resolver) locateSDK(ctx context.Context, sdk string) (string, error) {
	cmd := &process.Command{Program: "xcrun", Args: []string{"--show-sdk-path", "--sdk", sdk}}
	res, err := r.runner().Run(ctx, cmd)
	if err != nil {
		return "", ccerrors.SpawnFailed(ccerrors.PhaseResolve, "", cmd.Argv(), err)
	}
	path := strings.TrimSpace(string(res.Stdout))
	if !res.Success() || path == "" {
		return "", ccerrors.New(ccerrors.PhaseResolve, ccerrors.KindToolchainNotFound).
			Command(cmd.Argv()...).
			Output(res.Diagnostics()).
			Detail("xcrun exited with status %d", res.ExitCode).
			Build()
	}
	Logger().Debug("located SDK", zap.String("sdk", sdk), zap.String("path", path))
	return path, nil
}

// DeploymentEnv returns the environment variable that overrides the
// deployment target of an Apple OS. Mac Catalyst follows iOS.
func DeploymentEnv(d target.Descriptor) string {
	switch d.OS {
	case target.MacOS:
		return "MACOSX_DEPLOYMENT_TARGET"
	case target.IOS:
		return "IPHONEOS_DEPLOYMENT_TARGET"
	case target.TvOS:
		return "TVOS_DEPLOYMENT_TARGET"
	case target.WatchOS:
		return "WATCHOS_DEPLOYMENT_TARGET"
	case target.VisionOS:
		return "XROS_DEPLOYMENT_TARGET"
	}
	return ""
}

// DefaultDeployment is the minimum OS version used when none is configured.
func DefaultDeployment(d target.Descriptor) string {
	switch d.OS {
	case target.MacOS:
		if d.ArchFamily == target.AArch64 {
			return "11.0"
		}
		return "10.12"
	case target.IOS:
		if d.Catalyst {
			return "14.0"
		}
		return "10.0"
	case target.TvOS:
		return "10.0"
	case target.WatchOS:
		return "5.0"
	case target.VisionOS:
		return "1.0"
	}
	return ""
}

// cxxFloor is the lowest version whose system C++ library supports the
// language features the driver assumes.
func cxxFloor(d target.Descriptor) string {
	switch {
	case d.OS == target.MacOS:
		return "10.9"
	case d.OS == target.IOS && !d.Catalyst:
		return "7.0"
	}
	return ""
}

// parseVersion accepts "10", "10.9" and "10.9.1".
func parseVersion(v string) (*semver.Version, error) {
	parts := strings.Split(strings.TrimSpace(v), ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return semver.NewVersion(strings.Join(parts, "."))
}

// deploymentTargets returns the C and C++ deployment targets for d.
func (r *Resolver) deploymentTargets(d target.Descriptor) (c, cxx string) {
	if !d.IsApple() {
		return "", ""
	}
	c = DefaultDeployment(d)
	if name := DeploymentEnv(d); name != "" {
		if v, ok := r.lookupEnv(name); ok && v != "" {
			if _, err := parseVersion(v); err != nil {
				Logger().Warn("ignoring unparsable deployment target",
					zap.String("var", name), zap.String("value", v), zap.Error(err))
			} else {
				c = strings.TrimSpace(v)
			}
		}
	}
	return c, clampVersion(c, cxxFloor(d))
}

// clampVersion raises v to floor. It never lowers a version, and keeps the
// original spelling when no clamp happens.
func clampVersion(v, floor string) string {
	if floor == "" {
		return v
	}
	have, err := parseVersion(v)
	if err != nil {
		return floor
	}
	low, err := parseVersion(floor)
	if err != nil {
		return v
	}
	if have.LessThan(*low) {
		return floor
	}
	return v
}
