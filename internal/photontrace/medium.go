package photontrace

import (
	"fmt"
	"sync"
)

// Medium owns an ordered stack of Layers, the optional Pressure/Displacement
// fields, the Detectors, and the shared planar fluence bins. Layers are kept
// sorted by DepthStart and navigated by index, never raw pointers (spec
// Section 9: "Cyclic layer navigation"), the way the teacher's Scene holds
// slices of owned objects (Cells8, Hyperspheres, ...) rather than
// pointers-into-pointers (scene.go).
type Medium struct {
	XBound, YBound, ZBound Real

	layers    []*Layer
	detectors []*Detector

	pressure     *PressureMap
	displacement *DisplacementMap

	radialSize    Real
	radialBinSize Real

	cplanar []Real
	mu      sync.Mutex
}

// NewMedium builds an empty Medium with the given box extents and radial
// fluence-bin extent. Layers must be added in depth_start order; NewMedium
// does not sort them (the Config loader is responsible for ordering and
// contiguity validation, spec Section 7 "Configuration" errors).
func NewMedium(xBound, yBound, zBound, radialSize Real) *Medium {
	if radialSize <= 0 {
		panic("photontrace: medium radial_size must be positive")
	}
	return &Medium{
		XBound: xBound, YBound: yBound, ZBound: zBound,
		radialSize:    radialSize,
		radialBinSize: radialBinSize(radialSize),
		cplanar:       make([]Real, MaxBins+1),
	}
}

// AddLayer registers a Layer. Layers must be contiguous and sorted by
// DepthStart; callers that violate this invariant produce undefined
// layer_of/layer_above/layer_below results (validated by the Config loader).
func (m *Medium) AddLayer(l *Layer) {
	m.layers = append(m.layers, l)
}

// AddDetector registers a Detector owned by this Medium.
func (m *Medium) AddDetector(d *Detector) {
	m.detectors = append(m.detectors, d)
}

// BindPressure attaches a PressureMap. Only the Driver calls this, and only
// between acoustic time indices (spec Section 5).
func (m *Medium) BindPressure(p *PressureMap) { m.pressure = p }

// BindDisplacement attaches a DisplacementMap.
func (m *Medium) BindDisplacement(d *DisplacementMap) { m.displacement = d }

// HasPressure reports whether a PressureMap is currently bound.
func (m *Medium) HasPressure() bool { return m.pressure != nil }

// HasDisplacement reports whether a DisplacementMap is currently bound.
func (m *Medium) HasDisplacement() bool { return m.displacement != nil }

// PressureAt samples the bound pressure field at p. Panics if none is bound;
// callers must check HasPressure first (spec Section 7: a lookup against an
// unbound collaborator is a state invariant violation, not recoverable).
func (m *Medium) PressureAt(p Point3) Real {
	if m.pressure == nil {
		panic("photontrace: PressureAt called with no pressure map bound")
	}
	return m.pressure.SampleCart(p.X, p.Y, p.Z)
}

// DisplacementAt samples the bound displacement field at p.
func (m *Medium) DisplacementAt(p Point3) Vector3 {
	if m.displacement == nil {
		panic("photontrace: DisplacementAt called with no displacement map bound")
	}
	return m.displacement.SampleCart(p.X, p.Y, p.Z)
}

// LayerOf returns the index of the layer containing depth z, or -1 if z falls
// outside every layer's range. Ties at a shared boundary resolve to the upper
// (earlier, lower DepthStart) layer per spec Section 4.5 — since layers are
// stored in increasing DepthStart order, the first match scanning from index 0
// already gives the upper layer priority.
func (m *Medium) LayerOf(z Real) int {
	for i, l := range m.layers {
		if l.ContainsDepth(z) {
			return i
		}
	}
	return -1
}

// Layer returns the layer at index i. Panics on an invalid index: callers are
// expected to have validated the index via LayerOf/LayerAbove/LayerBelow first
// (spec Section 7, "no layer found for a valid z" is a state invariant
// violation).
func (m *Medium) Layer(i int) *Layer {
	if i < 0 || i >= len(m.layers) {
		panic(fmt.Sprintf("photontrace: layer index %d out of range [0,%d)", i, len(m.layers)))
	}
	return m.layers[i]
}

// LayerAbove returns the index of the layer immediately above current
// (current-1), or -1 if current is already the topmost layer.
func (m *Medium) LayerAbove(current int) int {
	if current <= 0 {
		return -1
	}
	return current - 1
}

// LayerBelow returns the index of the layer immediately below the layer
// containing z, or -1 if z is at or past the bottom of the medium.
func (m *Medium) LayerBelow(z Real) int {
	cur := m.LayerOf(z)
	if cur < 0 || cur+1 >= len(m.layers) {
		return -1
	}
	return cur + 1
}

// PlanarAccumulate adds energy into fluence bin ir under the Medium's mutex
// (spec Section 4.6/5: many-writer, merged under a single mutex).
func (m *Medium) PlanarAccumulate(ir int, energy Real) {
	m.mu.Lock()
	m.cplanar[ir] += energy
	m.mu.Unlock()
}

// MergePlanarShadow adds every bin of a per-walker shadow accumulator into the
// shared Cplanar array under a single mutex acquisition (spec Section 9's
// preferred contention-free strategy: per-walker shadow array, merged once at
// the end of K cycles, mirroring the teacher's shardLocks-guarded Scene.Buf
// merge idiom in cast_rays.go, here collapsed to the Medium's own mutex since
// bulk merges are infrequent relative to per-step hot-loop work).
func (m *Medium) MergePlanarShadow(shadow []Real) {
	if len(shadow) != len(m.cplanar) {
		panic("photontrace: planar shadow accumulator size mismatch")
	}
	m.mu.Lock()
	for i, v := range shadow {
		m.cplanar[i] += v
	}
	m.mu.Unlock()
}

// NewPlanarShadow allocates a per-walker accumulator matching the shared
// Cplanar array's shape.
func (m *Medium) NewPlanarShadow() []Real {
	return make([]Real, len(m.cplanar))
}

// PlanarBinOf returns the clamped radial bin index for depth z (spec Section
// 4.8 step 4: ir = floor(|z|/dr), clamped to MAX_BINS).
func (m *Medium) PlanarBinOf(z Real) int {
	r := z
	if r < 0 {
		r = -r
	}
	ir := int(r / m.radialBinSize)
	if ir > MaxBins {
		ir = MaxBins
	}
	return ir
}

// Cplanar returns a snapshot copy of the shared planar fluence bins.
func (m *Medium) Cplanar() []Real {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Real, len(m.cplanar))
	copy(out, m.cplanar)
	return out
}

// RadialBinSize returns dr = radial_size/MAX_BINS.
func (m *Medium) RadialBinSize() Real { return m.radialBinSize }

// RadialSize returns the configured radial extent.
func (m *Medium) RadialSize() Real { return m.radialSize }

// TopLayerAbsorption returns mu_a of the first (shallowest) layer, used by the
// fluence report's normalization (spec Section 6, original_source/medium.cpp's
// printGrid: "double mu_a = p_layers[0]->getAbsorpCoeff()").
func (m *Medium) TopLayerAbsorption() Real {
	if len(m.layers) == 0 {
		panic("photontrace: medium has no layers")
	}
	return m.layers[0].MuA
}

// DetectorsCrossed returns the number of registered Detectors whose aperture
// the segment (pPrev, pCurr) crosses (spec Section 4.6).
func (m *Medium) DetectorsCrossed(pPrev, pCurr Point3) int {
	n := 0
	for _, d := range m.detectors {
		if d.CrossedBy(pPrev, pCurr) {
			n++
		}
	}
	return n
}

// InBounds reports whether p lies within the closed medium box
// [0,X]x[0,Y]x[0,Z] (spec Section 3).
func (m *Medium) InBounds(p Point3) bool {
	return p.X >= 0 && p.X <= m.XBound &&
		p.Y >= 0 && p.Y <= m.YBound &&
		p.Z >= 0 && p.Z <= m.ZBound
}

// Absorbers returns every Absorber embedded across every layer, in
// layer-then-insertion order, for the Logger's per-time-index snapshot.
func (m *Medium) Absorbers() []*Absorber {
	var out []*Absorber
	for _, l := range m.layers {
		out = append(out, l.absorbers...)
	}
	return out
}

// NumLayers reports how many layers are registered.
func (m *Medium) NumLayers() int { return len(m.layers) }

// NumDetectors reports how many detectors are registered.
func (m *Medium) NumDetectors() int { return len(m.detectors) }
