package build

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	ccerrors "github.com/wippyai/ccbuild/errors"
	"github.com/wippyai/ccbuild/process"
	"github.com/wippyai/ccbuild/toolchain"
)

// Archive is a static library produced from compiled objects.
type Archive struct {
	Library string
	// Objects are in input order.
	Objects []string
}

// Archiver bundles objects into a static library at lib.
type Archiver interface {
	Archive(ctx context.Context, lib string, objects []string) error
}

// LibraryPath returns where the library called name goes: lib<name>.a, or
// <name>.lib for MSVC. A name already spelled as "libfoo.a" is accepted.
func LibraryPath(cfg *toolchain.Config, dir, name string) (string, error) {
	if strings.HasPrefix(name, "lib") && strings.HasSuffix(name, ".a") {
		name = strings.TrimSuffix(strings.TrimPrefix(name, "lib"), ".a")
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", ccerrors.InvalidInput(ccerrors.PhaseArchive, "invalid library name "+name)
	}
	if cfg.IsMsvc() {
		return filepath.Join(dir, name+".lib"), nil
	}
	return filepath.Join(dir, "lib"+name+".a"), nil
}

// ToolArchiver runs the toolchain's archiver: "ar crs" for GNU-style tools,
// "lib.exe -out:" for MSVC.
type ToolArchiver struct {
	Config *toolchain.Config
	Runner process.Runner
}

func (a *ToolArchiver) Archive(ctx context.Context, lib string, objects []string) error {
	cmd := &process.Command{Program: a.Config.Archiver}
	if a.Config.IsMsvc() {
		cmd.Args = append([]string{"-nologo", "-out:" + lib}, objects...)
	} else {
		// ar appends to an existing archive, so stale members would survive
		if err := os.Remove(lib); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return ccerrors.ArchiveFailed(lib, nil, nil, err)
		}
		cmd.Args = append([]string{"crs", lib}, objects...)
	}

	Logger().Debug("archiving", zap.Strings("argv", cmd.Argv()))
	res, err := a.Runner.Run(ctx, cmd)
	if err != nil {
		return ccerrors.ArchiveFailed(lib, cmd.Argv(), nil, err)
	}
	if !res.Success() {
		return ccerrors.ArchiveFailed(lib, cmd.Argv(), res.Diagnostics(), nil)
	}
	return nil
}
