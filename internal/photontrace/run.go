package photontrace

import (
	"fmt"
	"path/filepath"
	"time"
)

// Run loads a Config from cfgPath, builds the Medium, and drives every
// acoustic time index in [TimeStart,TimeEnd], writing exit records, an
// absorber snapshot, and a final fluence report. Mirrors the teacher's
// Run(cfgPath) error top-level shape (run.go), generalized from a single
// ray-cast pass to a per-time-index walker sweep.
func Run(cfgPath string) error {
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	medium, err := cfg.BuildMedium()
	if err != nil {
		return err
	}

	driver := NewDriver(medium, cfg)

	var runDB *RunDB
	if cfg.RunDBPath != "" {
		runDB, err = OpenRunDB(cfg.RunDBPath)
		if err != nil {
			return err
		}
		defer runDB.Close()
	}

	var progress *ProgressServer
	if cfg.Progress.Enabled {
		progress = NewProgressServer()
		driver.Progress = progress
		addr := cfg.Progress.Addr
		if addr == "" {
			addr = ":8089"
		}
		go func() {
			if err := progress.ListenAndServe(addr); err != nil {
				DebugLog("progress server exited: %v", err)
			}
		}()
	}

	var runID string
	if runDB != nil {
		numAbsorbers := 0
		for _, lc := range cfg.Layers {
			numAbsorbers += len(lc.Spheres) + len(lc.Cylinders)
		}
		runID, err = runDB.StartRun(cfg.MaxPhotons, cfg.NumThreads, len(cfg.Layers), numAbsorbers, cfg.TimeStart, cfg.TimeEnd)
		if err != nil {
			return err
		}
	}

	outDir := filepath.Dir(cfgPath)

	for t := cfg.TimeStart; t <= cfg.TimeEnd; t++ {
		logger, err := NewExitLogger(outDir, t, cfg.TracePaths)
		if err != nil {
			return fmt.Errorf("photontrace: time index %d: %w", t, err)
		}

		start := time.Now()
		detected, err := driver.RunTimeIndex(t, logger)
		elapsed := time.Since(start)

		closeErr := logger.Close()
		if err != nil {
			if closeErr != nil {
				DebugLog("time index %d: closing logger: %v", t, closeErr)
			}
			return err
		}
		if closeErr != nil {
			return fmt.Errorf("photontrace: time index %d: closing logger: %w", t, closeErr)
		}

		if runDB != nil {
			if err := runDB.RecordTimeIndex(runID, t, int(detected), elapsed.Milliseconds()); err != nil {
				return err
			}
		}
		if err := WriteAbsorberSnapshot(outDir, t, medium.Absorbers()); err != nil {
			return fmt.Errorf("photontrace: time index %d: %w", t, err)
		}
		DebugLog("time index %d: %d photons detected in %s", t, detected, elapsed)
	}

	if runDB != nil {
		if err := runDB.FinishRun(runID); err != nil {
			return err
		}
	}

	textPath := filepath.Join(outDir, "fluences.txt")
	chartPath := ""
	if cfg.ReportPath != "" {
		chartPath = cfg.ReportPath
	}
	if err := WriteFluenceReport(medium, textPath, chartPath, cfg.MaxPhotons*(cfg.TimeEnd-cfg.TimeStart+1)); err != nil {
		return err
	}

	return nil
}
