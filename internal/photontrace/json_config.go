package photontrace

import (
	"encoding/json"
	"fmt"
	"os"
)

// Point3Cfg is the JSON-friendly mirror of Point3.
type Point3Cfg struct {
	X Real `json:"x"`
	Y Real `json:"y"`
	Z Real `json:"z"`
}

func (c Point3Cfg) point() Point3 { return Point3{X: c.X, Y: c.Y, Z: c.Z} }

// LayerCfg is the JSON-friendly mirror of a Layer and its embedded absorbers.
type LayerCfg struct {
	DepthStart Real          `json:"depthStart"`
	DepthEnd   Real          `json:"depthEnd"`
	MuA        Real          `json:"muA"`
	MuS        Real          `json:"muS"`
	G          Real          `json:"g"`
	N          Real          `json:"n"`
	Spheres    []SphereCfg   `json:"spheres,omitempty"`
	Cylinders  []CylinderCfg `json:"cylinders,omitempty"`
}

type SphereCfg struct {
	Center Point3Cfg `json:"center"`
	Radius Real      `json:"radius"`
	MuA    Real      `json:"muA"`
	MuS    Real      `json:"muS"`
}

type CylinderCfg struct {
	Center     Point3Cfg `json:"center"`
	Radius     Real      `json:"radius"`
	HalfHeight Real      `json:"halfHeight"`
	MuA        Real      `json:"muA"`
	MuS        Real      `json:"muS"`
}

// DetectorCfg is the JSON-friendly mirror of a Detector.
type DetectorCfg struct {
	Plane  string    `json:"plane"` // "xy", "xz", or "yz"
	Center Point3Cfg `json:"center"`
	Radius Real      `json:"radius"`
}

func (c DetectorCfg) plane() (Plane, error) {
	switch c.Plane {
	case "xy", "":
		return PlaneXY, nil
	case "xz":
		return PlaneXZ, nil
	case "yz":
		return PlaneYZ, nil
	default:
		return 0, fmt.Errorf("photontrace: unknown detector plane %q", c.Plane)
	}
}

// ProgressCfg configures the optional C15 websocket progress feed.
type ProgressCfg struct {
	Enabled bool   `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"`
}

// Config is the JSON schema for a full simulation run (spec Section 4.11).
type Config struct {
	MediumX Real `json:"mediumX"`
	MediumY Real `json:"mediumY"`
	MediumZ Real `json:"mediumZ"`

	Layers    []LayerCfg    `json:"layers"`
	Detectors []DetectorCfg `json:"detectors"`
	Injection Point3Cfg     `json:"injection"`

	MaxPhotons int `json:"maxPhotons,omitempty"`
	NumThreads int `json:"numThreads,omitempty"`

	TimeStart int `json:"timeStart"`
	TimeEnd   int `json:"timeEnd"`

	PressurePrefix     string `json:"pressurePrefix,omitempty"`
	DisplacementPrefix string `json:"displacementPrefix,omitempty"`

	RadialSize Real `json:"radialSize,omitempty"`

	ReportPath string `json:"reportPath,omitempty"`
	RunDBPath  string `json:"runDbPath,omitempty"`

	TracePaths bool `json:"tracePaths,omitempty"`

	Progress ProgressCfg `json:"progress,omitempty"`
}

// LoadConfig reads and validates a Config from path, defaulting zero-valued
// optional fields the way the teacher's loadConfig does (json_config.go),
// generalized to every Configuration-category invariant named in spec Section 7:
// a missing layer stack, non-contiguous layers, or an unrecognized detector
// plane is returned as a wrapped error rather than panicking.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("photontrace: reading config %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("photontrace: parsing config %s: %w", path, err)
	}

	if cfg.MaxPhotons <= 0 {
		cfg.MaxPhotons = DefaultMaxPhotons
	}
	if cfg.NumThreads <= 0 {
		cfg.NumThreads = DefaultNumThreads
	}
	if cfg.RadialSize <= 0 {
		cfg.RadialSize = DefaultRadialSize
	}
	if cfg.TimeEnd < cfg.TimeStart {
		return nil, fmt.Errorf("photontrace: config %s: timeEnd (%d) < timeStart (%d)", path, cfg.TimeEnd, cfg.TimeStart)
	}

	if len(cfg.Layers) == 0 {
		return nil, fmt.Errorf("photontrace: config %s has no layers", path)
	}
	for i := 1; i < len(cfg.Layers); i++ {
		if cfg.Layers[i].DepthStart != cfg.Layers[i-1].DepthEnd {
			return nil, fmt.Errorf("photontrace: config %s: layer %d is not contiguous with layer %d (%.9f != %.9f)",
				path, i, i-1, cfg.Layers[i].DepthStart, cfg.Layers[i-1].DepthEnd)
		}
	}
	for _, d := range cfg.Detectors {
		if _, err := d.plane(); err != nil {
			return nil, fmt.Errorf("photontrace: config %s: %w", path, err)
		}
	}

	return &cfg, nil
}

// BuildMedium constructs a Medium from the validated Config (layers,
// absorbers, and detectors wired in), ready for the Driver to bind acoustic
// fields and launch walkers against.
func (cfg *Config) BuildMedium() (*Medium, error) {
	m := NewMedium(cfg.MediumX, cfg.MediumY, cfg.MediumZ, cfg.RadialSize)

	for _, lc := range cfg.Layers {
		layer := NewLayer(lc.DepthStart, lc.DepthEnd, lc.MuA, lc.MuS, lc.G, lc.N)
		for _, sc := range lc.Spheres {
			layer.AddAbsorber(NewSphereAbsorber(sc.Center.point(), sc.Radius, sc.MuA, sc.MuS))
		}
		for _, cc := range lc.Cylinders {
			layer.AddAbsorber(NewCylinderAbsorber(cc.Center.point(), cc.Radius, cc.HalfHeight, cc.MuA, cc.MuS))
		}
		m.AddLayer(layer)
	}

	for _, dc := range cfg.Detectors {
		plane, err := dc.plane()
		if err != nil {
			return nil, err
		}
		m.AddDetector(NewDetector(plane, dc.Center.point(), dc.Radius))
	}

	return m, nil
}
