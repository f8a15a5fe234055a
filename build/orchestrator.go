// Package build compiles translation units with a bounded pool of compiler
// processes and bundles the results into a static library.
//
// A single coordinator goroutine dispatches units to a fixed set of
// workers and collects their results. Objects are returned, and archived,
// in input order regardless of the order in which compilations finish.
package build

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	ccerrors "github.com/wippyai/ccbuild/errors"
	"github.com/wippyai/ccbuild/flags"
	"github.com/wippyai/ccbuild/naming"
	"github.com/wippyai/ccbuild/probe"
	"github.com/wippyai/ccbuild/process"
	"github.com/wippyai/ccbuild/toolchain"
)

// Orchestrator runs the compile and archive steps of one build
// configuration. Config, Options and Namer are shared read-only by every
// worker.
type Orchestrator struct {
	Config   *toolchain.Config
	Options  *flags.Options
	Runner   process.Runner
	Prober   flags.Prober
	Namer    *naming.Namer
	Archiver Archiver

	// Jobs bounds concurrent compiler processes. Zero or less reads
	// NUM_JOBS, then falls back to the number of CPUs.
	Jobs int
	// KeepGoing keeps dispatching after a failure.
	KeepGoing bool
	// Env looks up NUM_JOBS; nil means os.LookupEnv.
	Env func(string) (string, bool)

	observers []Observer
	obsMu     sync.RWMutex
}

// New creates an orchestrator that writes objects to outDir. The prober,
// namer and archiver default to the probe cache, a namer salted with the
// toolchain identity, and the toolchain's archiver.
func New(cfg *toolchain.Config, opts *flags.Options, runner process.Runner, outDir string) *Orchestrator {
	return &Orchestrator{
		Config:   cfg,
		Options:  opts,
		Runner:   runner,
		Prober:   probe.New(runner),
		Namer:    naming.New(outDir, cfg.Identity()),
		Archiver: &ToolArchiver{Config: cfg, Runner: runner},
	}
}

// Subscribe adds an observer for build events.
func (o *Orchestrator) Subscribe(obs Observer) {
	o.obsMu.Lock()
	defer o.obsMu.Unlock()
	o.observers = append(o.observers, obs)
}

func (o *Orchestrator) notify(e Event) {
	o.obsMu.RLock()
	defer o.obsMu.RUnlock()
	for _, obs := range o.observers {
		obs.OnBuildEvent(e)
	}
}

type job struct {
	unit   flags.Unit
	object string
	cmd    *process.Command
}

type result struct {
	err   error
	index int
}

// Objects compiles every unit and returns the object paths in input order.
// Without KeepGoing no unit is dispatched after the first failure; units
// already running are allowed to finish. The first failure is returned and
// later ones are logged. With KeepGoing every failure is returned, combined.
func (o *Orchestrator) Objects(ctx context.Context, units []flags.Unit) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	jobs, err := o.plan(ctx, units)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return []string{}, nil
	}
	if err := os.MkdirAll(o.Namer.Dir, 0o755); err != nil {
		return nil, ccerrors.New(ccerrors.PhaseCompile, ccerrors.KindInvalidInput).
			Cause(err).
			Detail("cannot create output directory %s", o.Namer.Dir).
			Build()
	}

	workers := min(o.jobs(), len(jobs))
	work := make(chan int)
	done := make(chan result, len(jobs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				done <- result{index: i, err: o.compile(ctx, jobs[i])}
			}
		}()
	}

	var (
		first    error
		failures error
		next     int
		inFlight int
		stopped  bool
		ctxDone  = ctx.Done()
	)
	for next < len(jobs) || inFlight > 0 {
		for !stopped && inFlight < workers && next < len(jobs) {
			o.notify(Event{Type: UnitStarted, Index: next, Total: len(jobs), Source: jobs[next].unit.Source, Object: jobs[next].object, Command: jobs[next].cmd})
			work <- next
			next++
			inFlight++
		}
		if inFlight == 0 {
			break
		}

		select {
		case <-ctxDone:
			stopped = true
			ctxDone = nil
			continue
		case r := <-done:
			inFlight--
			j := jobs[r.index]
			ev := Event{Index: r.index, Total: len(jobs), Source: j.unit.Source, Object: j.object, Command: j.cmd}
			if r.err == nil {
				ev.Type = UnitFinished
				o.notify(ev)
				continue
			}

			ev.Type, ev.Err = UnitFailed, r.err
			o.notify(ev)
			failures = multierr.Append(failures, r.err)
			if first == nil {
				first = r.err
			} else {
				Logger().Warn("additional compile failure", zap.String("source", j.unit.Source), zap.Error(r.err))
			}
			if !o.KeepGoing {
				stopped = true
			}
		}
	}
	close(work)
	wg.Wait()

	switch {
	case first != nil && o.KeepGoing:
		return nil, failures
	case first != nil:
		return nil, first
	case next < len(jobs):
		return nil, ctx.Err()
	}

	objects := make([]string, len(jobs))
	for i, j := range jobs {
		objects[i] = j.object
	}
	return objects, nil
}

// Build compiles units and, only when every unit succeeded, archives the
// objects into the library called name.
func (o *Orchestrator) Build(ctx context.Context, units []flags.Unit, name string) (*Archive, error) {
	lib, err := LibraryPath(o.Config, o.Namer.Dir, name)
	if err != nil {
		return nil, err
	}
	objects, err := o.Objects(ctx, units)
	if err != nil {
		return nil, err
	}

	o.notify(Event{Type: ArchiveStarted, Object: lib, Total: len(objects)})
	if err := o.Archiver.Archive(ctx, lib, objects); err != nil {
		o.notify(Event{Type: ArchiveFinished, Object: lib, Total: len(objects), Err: err})
		return nil, err
	}
	o.notify(Event{Type: ArchiveFinished, Object: lib, Total: len(objects)})
	return &Archive{Library: lib, Objects: objects}, nil
}

// plan validates the units, names their objects and composes every
// command before anything runs.
func (o *Orchestrator) plan(ctx context.Context, units []flags.Unit) ([]job, error) {
	if o.Config == nil || o.Namer == nil || o.Runner == nil {
		return nil, ccerrors.InvalidInput(ccerrors.PhaseConfig, "orchestrator needs a config, a namer and a runner")
	}
	opts := o.Options
	if opts == nil {
		opts = &flags.Options{}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(units))
	jobs := make([]job, 0, len(units))
	for _, u := range units {
		obj, err := o.Namer.ObjectPath(u.Source)
		if err != nil {
			return nil, ccerrors.New(ccerrors.PhaseConfig, ccerrors.KindInvalidInput).
				Source(u.Source).
				Cause(err).
				Build()
		}
		if prev, dup := seen[obj]; dup {
			return nil, ccerrors.New(ccerrors.PhaseConfig, ccerrors.KindInvalidInput).
				Source(u.Source).
				Detail("source added twice (as %s)", prev).
				Build()
		}
		seen[obj] = u.Source
		jobs = append(jobs, job{
			unit:   u,
			object: obj,
			cmd:    flags.Compose(ctx, o.Config, opts, u, obj, o.Prober),
		})
	}
	return jobs, nil
}

func (o *Orchestrator) compile(ctx context.Context, j job) error {
	argv := j.cmd.Argv()
	Logger().Debug("compiling", zap.String("source", j.unit.Source), zap.Strings("argv", argv))

	res, err := o.Runner.Run(ctx, j.cmd)
	if err != nil {
		return ccerrors.SpawnFailed(ccerrors.PhaseCompile, j.unit.Source, argv, err)
	}
	if !res.Success() {
		return ccerrors.CompilationFailed(j.unit.Source, argv, res.ExitCode, res.Diagnostics())
	}
	return nil
}

func (o *Orchestrator) jobs() int {
	if o.Jobs > 0 {
		return o.Jobs
	}
	lookup := o.Env
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup("NUM_JOBS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n > 0 {
			return n
		}
		Logger().Warn("ignoring invalid NUM_JOBS", zap.String("value", v))
	}
	return runtime.NumCPU()
}
