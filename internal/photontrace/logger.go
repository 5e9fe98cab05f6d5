package photontrace

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// sink is an append-only, mutex-guarded writer over a single *os.File,
// mirroring the teacher's bufio.NewWriter/os.Create file-writing shape
// (raw_scene.go's SaveRawRGB64) generalized to a long-lived append sink
// instead of a one-shot dump. Each sink owns its own mutex; sinks never
// share mutexes (spec Section 9: "Singleton logger").
type sink struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func newSink(path string) (*sink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &sink{f: f, w: bufio.NewWriter(f)}, nil
}

func (s *sink) writeLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, line)
}

func (s *sink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// Logger owns the three append-only sinks of spec Section 4.9/9: exit
// records, (debug) photon-path traces, and (debug) absorber snapshots. An
// explicit value passed down to walkers rather than a process-wide
// singleton, per spec Section 9's "Singleton logger" redesign. NewExitLogger
// never opens the absorber sink; per-time-index absorber snapshots are written
// by WriteAbsorberSnapshot instead.
type Logger struct {
	exit   *sink
	paths  *sink
	absorb *sink

	tracePaths bool
}

// ExitRecord is one line of an exit-aperture file (spec Section 6): weight,
// direction cosines, accumulated path length, exit position, and the
// supplemental tagged flag (0 or 1) this expansion adds (spec.md §3's "Tagged
// flag").
type ExitRecord struct {
	Weight     Real
	Dx, Dy, Dz Real
	PathLength Real
	X, Y, Z    Real
	Tagged     bool
}

// NewExitLogger opens exit-aperture-<t>.txt for a single acoustic time index
// (spec Section 4.10: the Driver opens one exit-aperture sink per time
// index). tracePaths enables the debug photon-path sink alongside it.
func NewExitLogger(dir string, timeIndex int, tracePaths bool) (*Logger, error) {
	exitPath := filepath.Join(dir, fmt.Sprintf("exit-aperture-%d.txt", timeIndex))
	exit, err := newSink(exitPath)
	if err != nil {
		return nil, fmt.Errorf("opening exit sink: %w", err)
	}

	l := &Logger{exit: exit, tracePaths: tracePaths}

	if tracePaths {
		pathsSink, err := newSink(filepath.Join(dir, fmt.Sprintf("photon-paths-%d.txt", timeIndex)))
		if err != nil {
			exit.close()
			return nil, fmt.Errorf("opening photon-paths sink: %w", err)
		}
		l.paths = pathsSink
	}
	return l, nil
}

// WriteExit appends one exit record, fixed at 9 decimal digits (spec Section
// 6), with the tagged flag trailing as a 9th field.
func (l *Logger) WriteExit(r ExitRecord) {
	tagged := 0
	if r.Tagged {
		tagged = 1
	}
	l.exit.writeLine(fmt.Sprintf("%.9f %.9f %.9f %.9f %.9f %.9f %.9f %.9f %d",
		r.Weight, r.Dx, r.Dy, r.Dz, r.PathLength, r.X, r.Y, r.Z, tagged))
}

// TracePaths reports whether the debug photon-path sink is active; a walker
// should skip accumulating per-step coordinates entirely when false, rather
// than accumulate-then-discard (the debug sink would otherwise dominate I/O,
// per SPEC_FULL.md §4.9).
func (l *Logger) TracePaths() bool { return l.tracePaths }

// WritePath appends one photon's full trajectory as space-separated (x y z)
// triples on a single line, matching original_source/medium.cpp's
// writePhotonCoords.
func (l *Logger) WritePath(coords []Point3) {
	if l.paths == nil {
		return
	}
	buf := make([]byte, 0, len(coords)*24)
	for _, p := range coords {
		buf = fmt.Appendf(buf, "%.9f %.9f %.9f ", p.X, p.Y, p.Z)
	}
	l.paths.writeLine(string(buf))
}

// Close flushes and closes every open sink belonging to this time index.
func (l *Logger) Close() error {
	var firstErr error
	if err := l.exit.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if l.paths != nil {
		if err := l.paths.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if l.absorb != nil {
		if err := l.absorb.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WriteAbsorberSnapshot opens (or reopens) a one-shot absorbers-<t>.txt
// listing every absorber's accumulated deposited energy, matching
// original_source's Layer::writeAbsorberData, called once per time index
// after all walkers join.
func WriteAbsorberSnapshot(dir string, timeIndex int, absorbers []*Absorber) error {
	path := filepath.Join(dir, fmt.Sprintf("absorbers-%d.txt", timeIndex))
	s, err := newSink(path)
	if err != nil {
		return fmt.Errorf("opening absorber snapshot: %w", err)
	}
	for i, a := range absorbers {
		s.writeLine(fmt.Sprintf("%d %.9f", i, a.DepositedEnergy()))
	}
	return s.close()
}
