// Package profiling writes CPU, heap and execution trace profiles around a
// single command run, for diagnosing slow searches and index loads.
package profiling

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options names the output file of each profile. Empty paths are skipped.
type Options struct {
	CPU   string
	Heap  string
	Trace string
}

// Enabled reports whether any profile was requested.
func (o Options) Enabled() bool {
	return o.CPU != "" || o.Heap != "" || o.Trace != ""
}

// Profiler owns the profile files of one run.
type Profiler struct {
	opts      Options
	cpuFile   *os.File
	traceFile *os.File
}

// Start begins CPU profiling and tracing as requested. The heap profile is
// written by Stop.
func Start(opts Options) (*Profiler, error) {
	p := &Profiler{opts: opts}
	if opts.CPU != "" {
		if err := p.startCPU(opts.CPU); err != nil {
			return nil, err
		}
	}
	if opts.Trace != "" {
		if err := p.startTrace(opts.Trace); err != nil {
			p.stopCPU()
			return nil, err
		}
	}
	return p, nil
}

// Stop flushes every running profile and writes the heap profile.
// Safe on a nil receiver.
func (p *Profiler) Stop() error {
	if p == nil {
		return nil
	}
	p.stopCPU()
	if p.traceFile != nil {
		trace.Stop()
		_ = p.traceFile.Close()
		p.traceFile = nil
	}
	if p.opts.Heap != "" {
		if err := WriteHeap(p.opts.Heap); err != nil {
			return err
		}
		slog.Debug("heap_profile_written", slog.String("path", p.opts.Heap))
	}
	return nil
}

func (p *Profiler) startCPU(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CPU profile file: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to start CPU profile: %w", err)
	}
	p.cpuFile = f
	return nil
}

func (p *Profiler) stopCPU() {
	if p.cpuFile == nil {
		return
	}
	pprof.StopCPUProfile()
	_ = p.cpuFile.Close()
	p.cpuFile = nil
}

func (p *Profiler) startTrace(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	if err := trace.Start(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to start trace: %w", err)
	}
	p.traceFile = f
	return nil
}

// WriteHeap writes a heap profile to path after forcing a collection.
func WriteHeap(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create heap profile file: %w", err)
	}
	defer func() { err = errors.Join(err, f.Close()) }()

	runtime.GC()

	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write heap profile: %w", err)
	}
	return nil
}
