package photontrace

import "math"

// CycleResult summarizes the outcome of one hop/drop/spin/roulette cycle,
// returned by Walker.Walk for diagnostics and tests (spec Section 8's
// per-cycle property tests inspect final weight, exit status, tagged flag).
type CycleResult struct {
	FinalWeight Real
	Steps       int
	Tagged      bool
	Exited      bool
	Detected    bool
	PathLength  Real
}

// Walker runs one photon's full lifetime of hop/drop/spin/roulette cycles
// through a shared, read-only Medium (spec Section 4.8 — THE CORE ALGORITHM).
// Implemented as a single Walk method that runs one cycle to completion in a
// bounded loop, the way the teacher's castSingleRay (cast_rays.go) runs one
// ray to completion rather than as a suspended coroutine (spec Section 5: "no
// cooperative suspension within a walker").
type Walker struct {
	medium *Medium
	logger *Logger
	rng    RNG

	illumination Point3
	shadow       []Real

	tracePath []Point3
}

// NewWalker constructs a Walker bound to medium, logging exit records (and
// optionally photon paths) through logger, injecting every cycle at
// illumination, seeded with four independent state words (spec Section 4.1:
// each seed must be >= 128).
func NewWalker(medium *Medium, logger *Logger, illumination Point3, s1, s2, s3, s4 uint32) *Walker {
	return &Walker{
		medium:       medium,
		logger:       logger,
		rng:          NewRNG(s1, s2, s3, s4),
		illumination: illumination,
		shadow:       medium.NewPlanarShadow(),
	}
}

// RunCycles runs n independent injection cycles, merging the walker's
// planar-bin shadow accumulator into the shared Medium exactly once at the
// end (spec Section 9's preferred contention-free strategy).
func (w *Walker) RunCycles(n int) {
	for i := 0; i < n; i++ {
		w.Walk()
	}
	w.Flush()
}

// Flush merges this walker's planar-bin shadow accumulator into the shared
// Medium and resets it, without running any further cycles. Callers driving
// Walker.Walk directly (e.g. to interleave per-cycle progress reporting)
// must call Flush once before discarding the walker.
func (w *Walker) Flush() {
	w.medium.MergePlanarShadow(w.shadow)
	w.shadow = w.medium.NewPlanarShadow()
}

// cycleState is the live, mutable state of one INITIAL->PROPAGATING->{DEAD}
// cycle (spec Section 3's Photon state).
type cycleState struct {
	p          Point3
	prevP      Point3
	d          Vector3
	weight     Real
	alive      bool
	tagged     bool
	steps      int
	stepRemain Real
	layerIdx   int
	pathLength Real
	detected   bool

	tracingPaths bool
}

// Walk runs exactly one hop/drop/spin/roulette cycle from the illumination
// point to death or exit, and returns a summary (spec Section 4.8).
func (w *Walker) Walk() CycleResult {
	c := &cycleState{
		p:      w.illumination,
		prevP:  w.illumination,
		weight: 1.0,
		alive:  true,
	}
	c.d = w.initialTrajectory()
	c.layerIdx = w.medium.LayerOf(c.p.Z)
	if c.layerIdx < 0 {
		panic("photontrace: illumination point is outside every layer")
	}

	if w.logger != nil && w.logger.TracePaths() {
		c.tracingPaths = true
		w.tracePath = w.tracePath[:0]
		w.tracePath = append(w.tracePath, c.p)
	}

	for c.steps < MaxStepsPerCycle && c.alive {
		w.stepOnce(c)
	}

	if c.tracingPaths {
		w.logger.WritePath(w.tracePath)
	}

	return CycleResult{FinalWeight: c.weight, Steps: c.steps, Tagged: c.tagged, Exited: !c.alive, Detected: c.detected, PathLength: c.pathLength}
}

// initialTrajectory samples the source's initial direction. Per spec Section
// 4.8 this is intentionally not unit-length (dz is pinned to 1.0 as a source
// convention); the first spin() renormalizes the trajectory implicitly via
// the HG rotation formula.
func (w *Walker) initialTrajectory() Vector3 {
	cosTheta := 2.0*w.rng.Next() - 1
	sinTheta := math.Sqrt(1.0 - cosTheta*cosTheta)
	psi := 2.0 * math.Pi * w.rng.Next()
	return Vector3{X: sinTheta * math.Cos(psi), Y: sinTheta * math.Sin(psi), Z: 1.0}
}

// stepOnce runs steps 1-7 of spec Section 4.8 once.
func (w *Walker) stepOnce(c *cycleState) {
	layer := w.medium.Layer(c.layerIdx)
	step := w.setStepSize(c, layer)
	if step <= 0 {
		// On-boundary redraw (spec Section 4.8 tie-breaks: "If step = 0
		// exactly, treat as no-op and redraw").
		c.stepRemain = 0
		return
	}

	if hit, dist, axis := w.nearestBoundary(c, layer, step); hit {
		// mu_t is sampled at the pre-hop point, matching
		// original_source/photon.cpp's hit*Boundary() functions which
		// compute it before moving the photon to the boundary.
		muT := layer.TotalAttenuation(c.p)
		w.hop(c, dist)
		remainder := (step - dist) * muT
		w.resolveBoundary(c, layer, axis, remainder)
		return
	}

	w.hop(c, step)
	w.drop(c, layer)
	if !c.alive {
		return
	}
	w.spin(c, layer)
	w.roulette(c)
}

// setStepSize implements spec Section 4.8 step 1.
func (w *Walker) setStepSize(c *cycleState, layer *Layer) Real {
	muA, muS := layer.Coefficients(c.p)
	muT := muA + muS
	if c.stepRemain == 0 {
		u := w.rng.Next()
		return -math.Log(u) / muT
	}
	s := c.stepRemain / muT
	c.stepRemain = 0
	return s
}

type boundaryAxis int

const (
	axisX boundaryAxis = iota
	axisY
	axisLayerZ
)

// nearestBoundary implements spec Section 4.8 step 2, generalized per
// SPEC_FULL.md Section 4.8/Section 9 to also resolve layer (not just medium)
// boundaries: distances are computed to the medium's X/Y walls and to the
// current layer's z-extent (which itself degenerates to the medium's Z wall
// at the top/bottom layer). Ties prefer X over Y over Z (spec tie-break).
func (w *Walker) nearestBoundary(c *cycleState, layer *Layer, step Real) (hit bool, dist Real, axis boundaryAxis) {
	dx := axisBoundaryDistance(c.p.X, c.d.X, w.medium.XBound)
	dy := axisBoundaryDistance(c.p.Y, c.d.Y, w.medium.YBound)
	dz := layerBoundaryDistance(c.p.Z, c.d.Z, layer)

	best := dx
	bestAxis := axisX
	if dy < best {
		best, bestAxis = dy, axisY
	}
	if dz < best {
		best, bestAxis = dz, axisLayerZ
	}

	if best >= step || math.IsInf(best, 1) {
		return false, 0, 0
	}
	return true, best, bestAxis
}

func axisBoundaryDistance(p, d, bound Real) Real {
	if d == 0 {
		return math.Inf(1)
	}
	if d > 0 {
		return (bound - p) / d
	}
	return -p / d
}

func layerBoundaryDistance(z, dz Real, layer *Layer) Real {
	if dz == 0 {
		return math.Inf(1)
	}
	if dz > 0 {
		return (layer.DepthEnd - z) / dz
	}
	return (layer.DepthStart - z) / dz
}

// resolveBoundary implements spec Section 4.8 steps 3-5 for the axis that was
// hit: the photon has already been hopped to the boundary; remainder is the
// pre-computed step_remainder to use if this resolves as an internal
// reflection that does not change the photon's layer.
func (w *Walker) resolveBoundary(c *cycleState, layer *Layer, axis boundaryAxis, remainder Real) {
	switch axis {
	case axisLayerZ:
		w.resolveLayerCrossing(c, layer, remainder)
	default:
		w.resolveMediumWall(c, layer, axis, remainder)
	}
}

// resolveLayerCrossing handles a z-axis layer-boundary hit: specular
// reflectance loss on entering a denser layer (always transmits, per
// original_source/photon.cpp's Photon::getLayerReflectance), or a stochastic
// Fresnel reflect/transmit otherwise. A missing neighbor (top/bottom layer)
// degenerates into a medium-boundary exit, matching getLayerReflectance's own
// n2=1.0 fallback when tempLayer is NULL.
func (w *Walker) resolveLayerCrossing(c *cycleState, layer *Layer, remainder Real) {
	n1 := layer.N
	var neighborIdx int
	if c.d.Z > 0 {
		neighborIdx = w.medium.LayerBelow(layer.DepthEnd)
	} else {
		neighborIdx = w.medium.LayerAbove(c.layerIdx)
	}

	n2 := 1.0
	if neighborIdx >= 0 {
		n2 = w.medium.Layer(neighborIdx).N
	}

	if n2 > n1 {
		// Entering a denser layer: deterministic specular loss, always
		// transmits (original_source never computes a stochastic Fresnel
		// term in this branch).
		c.weight -= specularReflectanceLoss(n1, n2) * c.weight
		_, transmissionAngle := fresnelReflectance(c.d.Z, n1, n2)
		w.transmitLayer(c, transmissionAngle, neighborIdx)
		return
	}

	r, transmissionAngle := fresnelReflectance(c.d.Z, n1, n2)
	u := w.rng.Next()
	if r > u {
		c.d.Z = -c.d.Z
		c.stepRemain = remainder
		w.drop(c, layer)
		if c.alive {
			w.roulette(c)
		}
		return
	}
	w.transmitLayer(c, transmissionAngle, neighborIdx)
}

// transmitLayer updates layerIdx on a successful transmission, or exits the
// medium when no neighboring layer exists. The z-direction magnitude is
// reset to the computed transmission angle, preserving the sign of travel
// (a deliberate fix of a bug in original_source/photon.cpp, which reassigns
// dirZ unconditionally positive on every layer transmission regardless of
// travel direction — flagged there by its own FIXME comments describing
// upward-moving photons getting stuck at the bottom layer).
func (w *Walker) transmitLayer(c *cycleState, transmissionAngle Real, neighborIdx int) {
	if c.d.Z >= 0 {
		c.d.Z = math.Abs(math.Cos(transmissionAngle))
	} else {
		c.d.Z = -math.Abs(math.Cos(transmissionAngle))
	}

	if neighborIdx < 0 {
		w.exitMedium(c)
		return
	}
	c.layerIdx = neighborIdx
	c.stepRemain = 0 // redraw in the new layer (DESIGN.md open-question decision)
}

// resolveMediumWall handles an X or Y medium-wall hit: the photon's layer
// never changes, so mu_t is unchanged and step_remainder carries forward on
// reflect (spec Section 4.8 step 5 / DESIGN.md open-question decision).
func (w *Walker) resolveMediumWall(c *cycleState, layer *Layer, axis boundaryAxis, remainder Real) {
	n1 := layer.N
	n2 := 1.0

	var cosIncident Real
	if axis == axisX {
		cosIncident = c.d.X
	} else {
		cosIncident = c.d.Y
	}

	r, _ := fresnelReflectance(cosIncident, n1, n2)
	u := w.rng.Next()
	if r > u {
		if axis == axisX {
			c.d.X = -c.d.X
		} else {
			c.d.Y = -c.d.Y
		}
		c.stepRemain = remainder
		w.drop(c, layer)
		if c.alive {
			w.roulette(c)
		}
		return
	}
	w.exitMedium(c)
}

// exitMedium checks every Detector against the segment from the photon's
// pre-hop position to its current (boundary) position, emits an exit record
// if any detector is crossed, and kills the photon (spec Section 4.8 step 5).
// Only an actual aperture crossing counts as "detected" (spec Section 8 S2) —
// a photon that simply leaves through a wall with no detector there still
// ends its cycle but is not detected.
func (w *Walker) exitMedium(c *cycleState) {
	n := w.medium.DetectorsCrossed(c.prevP, c.p)
	if n > 0 {
		c.detected = true
		if w.logger != nil {
			w.logger.WriteExit(ExitRecord{
				Weight: c.weight, Dx: c.d.X, Dy: c.d.Y, Dz: c.d.Z,
				PathLength: c.pathLength, X: c.p.X, Y: c.p.Y, Z: c.p.Z, Tagged: c.tagged,
			})
		}
	}
	c.alive = false
}

// hop implements spec Section 4.8 step 3: move, accumulate path length, and
// (when a displacement field is bound) adjust the accumulated path by the
// scalar projection of the local displacement delta onto the direction of
// travel (SPEC_FULL.md Section 4.8 "Path length accounting").
func (w *Walker) hop(c *cycleState, step Real) {
	prev := c.p
	c.p = c.p.Add(c.d.Scale(step))
	c.steps++
	c.prevP = prev

	c.pathLength += step
	if w.medium.HasDisplacement() {
		uPrev := w.medium.DisplacementAt(prev)
		uCurr := w.medium.DisplacementAt(c.p)
		c.pathLength += uCurr.Sub(uPrev).Dot(c.d)
	}

	if c.tracingPaths {
		w.tracePath = append(w.tracePath, c.p)
	}
}

// drop implements spec Section 4.8 step 4.
func (w *Walker) drop(c *cycleState, layer *Layer) {
	absorber := layer.LookupAbsorber(c.p)
	var muA, muS Real
	if absorber != nil {
		muA, muS = absorber.Coefficients()
	} else {
		muA, muS = layer.MuA, layer.MuS
	}
	albedo := muS / (muA + muS)
	absorbed := c.weight * (1 - albedo)
	c.weight -= absorbed

	if absorber != nil {
		absorber.Deposit(absorbed)
		c.tagged = true
	} else {
		ir := w.medium.PlanarBinOf(c.p.Z)
		w.shadow[ir] += absorbed
	}
}

// spin implements spec Section 4.8 step 6: Henyey-Greenstein scattering.
func (w *Walker) spin(c *cycleState, layer *Layer) {
	g := layer.G
	u := w.rng.Next()

	var cosTheta Real
	if g == 0 {
		cosTheta = 2.0*u - 1
	} else {
		temp := (1 - g*g) / (1 - g + 2*g*u)
		cosTheta = (1 + g*g - temp*temp) / (2 * g)
	}
	sinTheta := math.Sqrt(1.0 - cosTheta*cosTheta)

	psi := 2.0 * math.Pi * w.rng.Next()
	sinPsi, cosPsi := math.Sincos(psi)

	d := c.d
	var uxx, uyy, uzz Real
	if 1-math.Abs(d.Z) <= oneMinusCosZero {
		sign := 1.0
		if d.Z < 0 {
			sign = -1.0
		}
		uxx = sinTheta * cosPsi
		uyy = sinTheta * sinPsi
		uzz = cosTheta * sign
	} else {
		temp := math.Sqrt(1.0 - d.Z*d.Z)
		uxx = sinTheta*(d.X*d.Z*cosPsi-d.Y*sinPsi)/temp + d.X*cosTheta
		uyy = sinTheta*(d.Y*d.Z*cosPsi+d.X*sinPsi)/temp + d.Y*cosTheta
		uzz = -sinTheta*cosPsi*temp + d.Z*cosTheta
	}
	c.d = Vector3{X: uxx, Y: uyy, Z: uzz}
}

// roulette implements spec Section 4.8 step 7.
func (w *Walker) roulette(c *cycleState) {
	if c.weight >= RouletteThreshold {
		return
	}
	if w.rng.Next() <= RouletteChance {
		c.weight /= RouletteChance
	} else {
		c.alive = false
	}
}
