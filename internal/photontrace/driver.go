package photontrace

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// Driver owns a Medium and runs it through an acoustic time-index range,
// launching a goroutine-per-walker pool for each index (spec Section 4.10),
// mirroring the teacher's castRays/estimateHitProb worker-pool shape:
// per-worker independent RNG, wg.Add(workers)/wg.Wait(), and a ~1%-cadence
// atomic progress counter.
type Driver struct {
	medium *Medium
	cfg    *Config

	// Progress, if non-nil, receives a frame after each ~1% of a time
	// index's photon budget completes (spec Section 4.15).
	Progress ProgressBroadcaster
}

// ProgressBroadcaster receives progress frames; satisfied by *ProgressServer.
type ProgressBroadcaster interface {
	Broadcast(frame ProgressFrame)
}

// NewDriver constructs a Driver bound to an already-built Medium and a
// validated Config (the Config's own medium/layer/detector fields are
// ignored here; BuildMedium already consumed them).
func NewDriver(medium *Medium, cfg *Config) *Driver {
	return &Driver{medium: medium, cfg: cfg}
}

// RunTimeIndex launches cfg.NumThreads walkers, splitting cfg.MaxPhotons
// cycles evenly across them, binds the given logger to every walker, and
// joins before returning. Per spec Section 4.10 this is the only place the
// Medium's field bindings change; no walker is alive while BindPressure/
// BindDisplacement are called.
func (d *Driver) RunTimeIndex(t int, logger *Logger) (photonsDetected int64, err error) {
	cfg := d.cfg

	if cfg.PressurePrefix != "" {
		pm := NewPressureMap(defaultFieldResolution, defaultFieldResolution, defaultFieldResolution, d.medium.XBound, d.medium.YBound, d.medium.ZBound)
		if err := pm.LoadFrame(cfg.PressurePrefix, t); err != nil {
			return 0, fmt.Errorf("photontrace: time index %d: loading pressure frame: %w", t, err)
		}
		d.medium.BindPressure(pm)
	}
	if cfg.DisplacementPrefix != "" {
		dm := NewDisplacementMap(defaultFieldResolution, defaultFieldResolution, defaultFieldResolution, d.medium.XBound, d.medium.YBound, d.medium.ZBound)
		if err := dm.LoadFrame(cfg.DisplacementPrefix, t); err != nil {
			return 0, fmt.Errorf("photontrace: time index %d: loading displacement frame: %w", t, err)
		}
		d.medium.BindDisplacement(dm)
	}

	workers := cfg.NumThreads
	if workers < 1 {
		workers = 1
	}
	per, rem := cfg.MaxPhotons/workers, cfg.MaxPhotons%workers

	var wg sync.WaitGroup
	var launched, detected int64
	total := int64(cfg.MaxPhotons)
	nextPrint := total / 100
	if nextPrint < 1 {
		nextPrint = 1
	}

	injection := cfg.Injection.point()
	start := time.Now()

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		n := per
		if w < rem {
			n++
		}
		wid := w
		go func(n int) {
			defer wg.Done()
			s1, s2, s3, s4 := deriveSeeds(wid, t)
			walker := NewWalker(d.medium, logger, injection, s1, s2, s3, s4)

			for i := 0; i < n; i++ {
				res := walker.Walk()
				if res.Detected {
					atomic.AddInt64(&detected, 1)
				}
				fired := atomic.AddInt64(&launched, 1)
				if d.Progress != nil && fired%nextPrint == 0 {
					d.Progress.Broadcast(ProgressFrame{
						T:               t,
						PhotonsLaunched: fired,
						PhotonsDetected: atomic.LoadInt64(&detected),
						ElapsedMs:       time.Since(start).Milliseconds(),
					})
				}
			}
			walker.Flush()
		}(n)
	}
	wg.Wait()

	return atomic.LoadInt64(&detected), nil
}

// deriveSeeds produces four Tausworthe-quality seeds (each >= 128, per spec
// Section 4.1) for worker wid at time index t, following
// original_source/main.cpp's `s1 = rand() + 128` pattern, salted per-worker
// and per-time-index so no two walkers across the whole run ever share a
// seed tuple.
func deriveSeeds(wid, t int) (s1, s2, s3, s4 uint32) {
	src := rand.New(rand.NewSource(int64(wid)*1_000_003 + int64(t)*97 + 1))
	return uint32(src.Int31())%1_000_000 + 128,
		uint32(src.Int31())%1_000_000 + 128,
		uint32(src.Int31())%1_000_000 + 128,
		uint32(src.Int31())%1_000_000 + 128
}

const defaultFieldResolution = 32
