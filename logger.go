package ccbuild

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/ccbuild/build"
	"github.com/wippyai/ccbuild/probe"
	"github.com/wippyai/ccbuild/toolchain"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the root package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the logger of this package and of every package
// that logs during a build. Call it before the first build.
func SetLogger(l *zap.Logger) {
	logger = l
	toolchain.SetLogger(l.Named("toolchain"))
	probe.SetLogger(l.Named("probe"))
	build.SetLogger(l.Named("build"))
}
