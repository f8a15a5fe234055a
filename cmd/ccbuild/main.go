package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/wippyai/ccbuild"
	ccerrors "github.com/wippyai/ccbuild/errors"
	"github.com/wippyai/ccbuild/target"
)

func main() {
	var (
		manifestPath = flag.String("manifest", "", "Path to the build.toml manifest")
		outDir       = flag.String("out", "", "Output directory (overrides out_dir)")
		jobs         = flag.Int("j", 0, "Concurrent compiler processes (default NUM_JOBS or CPU count)")
		objectsOnly  = flag.Bool("objects", false, "Compile objects only, skip the archive step")
		keepGoing    = flag.Bool("k", false, "Keep compiling after a failure")
		verbose      = flag.Bool("v", false, "Verbose logging")
		interactive  = flag.Bool("i", false, "Interactive progress view")
		probeFlags   = flag.Bool("probe", false, "Report whether the compiler accepts the flags given as arguments")
		triple       = flag.String("triple", "", "Print the parsed facets of a target triple and exit")
	)
	flag.Parse()

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	ccbuild.SetLogger(log)

	if *triple != "" {
		printTriple(*triple)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *probeFlags {
		if err := probe(ctx, *manifestPath, flag.Args()); err != nil {
			fail(err)
		}
		return
	}

	if *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: ccbuild -manifest build.toml [-out dir] [-j N] [-objects] [-k] [-v] [-i]")
		fmt.Fprintln(os.Stderr, "       ccbuild -probe [-manifest build.toml] -- -Wshadow -fno-plt")
		fmt.Fprintln(os.Stderr, "       ccbuild -triple aarch64-apple-ios-sim")
		os.Exit(2)
	}

	m, err := LoadManifest(*manifestPath)
	if err != nil {
		fail(err)
	}
	b := m.Apply(ccbuild.New()).Logger(log)
	if *keepGoing {
		b.KeepGoing(true)
	}
	if *outDir != "" {
		b.OutDir(*outDir)
	}
	if *jobs > 0 {
		b.Jobs(*jobs)
	}

	req := buildRequest{name: m.Name, objectsOnly: *objectsOnly}
	if *interactive && interactiveCapable() {
		err = runInteractive(ctx, b, req)
	} else {
		err = runPlain(ctx, b, req)
	}
	if err != nil {
		fail(err)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func probe(ctx context.Context, manifestPath string, candidates []string) error {
	if len(candidates) == 0 {
		return errors.New("no flags to probe")
	}
	b := ccbuild.New()
	if manifestPath != "" {
		m, err := LoadManifest(manifestPath)
		if err != nil {
			return err
		}
		b = m.Apply(b)
	}
	for _, f := range candidates {
		ok, err := b.IsFlagSupported(ctx, f)
		if err != nil {
			return err
		}
		verdict := "unsupported"
		if ok {
			verdict = "supported"
		}
		fmt.Printf("%-32s %s\n", f, verdict)
	}
	return nil
}

func printTriple(triple string) {
	d := target.Parse(triple)
	fmt.Printf("triple:        %s\n", d.Triple)
	fmt.Printf("arch:          %s (%s, %d-bit)\n", d.Arch, d.ArchFamily, d.PointerWidth)
	fmt.Printf("vendor:        %s\n", d.Vendor)
	fmt.Printf("os:            %s\n", d.OS)
	if d.OSVersion != "" {
		fmt.Printf("os version:    %s\n", d.OSVersion)
	}
	fmt.Printf("env:           %s\n", d.Env)
	fmt.Printf("apple:         %t\n", d.IsApple())
	fmt.Printf("simulator:     %t\n", d.Simulator)
	fmt.Printf("catalyst:      %t\n", d.Catalyst)
}

func fail(err error) {
	var e *ccerrors.Error
	if errors.As(err, &e) && e.Source != "" {
		fmt.Fprintf(os.Stderr, "Error compiling %s:\n%v\n", e.Source, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
