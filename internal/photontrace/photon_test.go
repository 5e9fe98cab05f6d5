package photontrace

import (
	"math"
	"testing"
)

func newSingleLayerMedium(muA, muS, g, n Real) *Medium {
	m := NewMedium(10, 10, 10, DefaultRadialSize)
	m.AddLayer(NewLayer(0, 10, muA, muS, g, n))
	return m
}

func TestWalkerWeightConservationPerStep(t *testing.T) {
	// Isotropically scattering, non-absorbing layer (muA=0, g=0): the photon
	// should never lose weight.
	m := newSingleLayerMedium(0, 1.0, 0.0, 1.0)
	w := NewWalker(m, nil, Point3{5, 5, 0}, 128, 129, 130, 131)

	res := w.Walk()
	if res.FinalWeight < 0 || res.FinalWeight > 1.0001 {
		t.Fatalf("weight left [0,1]: %v", res.FinalWeight)
	}
}

func TestWalkerDirectionStaysUnitAfterSpin(t *testing.T) {
	m := newSingleLayerMedium(0.01, 10.0, 0.8, 1.0)
	w := NewWalker(m, nil, Point3{5, 5, 5}, 140, 141, 142, 143)
	c := &cycleState{p: w.illumination, weight: 1.0, alive: true}
	c.d = Vector3{X: 0, Y: 0, Z: 1}

	for i := 0; i < 1000; i++ {
		w.spin(c, m.Layer(0))
		if !c.d.IsUnit(1e-9) {
			t.Fatalf("direction not unit length after spin %d: %+v (|d|^2=%v)", i, c.d, c.d.Dot(c.d))
		}
	}
}

func TestWalkerSpinFromZAxisStaysUnit(t *testing.T) {
	// g=0 and u=0.5 draws cosTheta = 2*0.5-1 = 0, not an identity case;
	// instead verify the degenerate near-axial branch reproduces a pure
	// azimuthal rotation about Z when d is exactly +Z.
	m := newSingleLayerMedium(0.01, 10.0, 0.0, 1.0)
	w := NewWalker(m, nil, Point3{0, 0, 0}, 150, 151, 152, 153)
	c := &cycleState{d: Vector3{X: 0, Y: 0, Z: 1}}
	w.spin(c, m.Layer(0))
	if !c.d.IsUnit(1e-9) {
		t.Fatalf("direction not unit after spin from +Z axis: %+v", c.d)
	}
}

func TestWalkerBoundingBoxContainment(t *testing.T) {
	m := newSingleLayerMedium(0.1, 50.0, 0.9, 1.0)
	w := NewWalker(m, nil, Point3{5, 5, 0}, 160, 161, 162, 163)

	for cyc := 0; cyc < 50; cyc++ {
		c := &cycleState{p: w.illumination, prevP: w.illumination, weight: 1.0, alive: true}
		c.d = w.initialTrajectory()
		c.layerIdx = m.LayerOf(c.p.Z)
		for c.steps < MaxStepsPerCycle && c.alive {
			w.stepOnce(c)
			if c.alive && !m.InBounds(c.p) {
				// Allowed to be transiently outside only at the instant of
				// the boundary-crossing hop itself (resolveBoundary handles
				// reflect/transmit/exit immediately after); a live photon
				// should never remain outside across steps.
				t.Fatalf("live photon strayed outside medium bounds: %+v", c.p)
			}
		}
	}
}

func TestWalkerMonotoneWeightUnderRoulette(t *testing.T) {
	m := newSingleLayerMedium(0.5, 5.0, 0.5, 1.0)
	w := NewWalker(m, nil, Point3{5, 5, 0}, 170, 171, 172, 173)

	c := &cycleState{p: w.illumination, prevP: w.illumination, weight: 1.0, alive: true}
	c.d = Vector3{X: 0, Y: 0, Z: 1}
	c.layerIdx = m.LayerOf(c.p.Z)

	prevWeight := c.weight
	for c.steps < MaxStepsPerCycle && c.alive {
		w.stepOnce(c)
		if c.weight > prevWeight+1e-12 {
			t.Fatalf("weight increased from %v to %v at step %d", prevWeight, c.weight, c.steps)
		}
		prevWeight = c.weight
	}
}

func TestWalkerNoReflectionWhenIndexMatched(t *testing.T) {
	// n == 1 everywhere (layer and exterior): Fresnel reflectance must be
	// zero, so every medium-wall hit transmits (exits) deterministically.
	m := NewMedium(2, 2, 100, DefaultRadialSize)
	m.AddLayer(NewLayer(0, 100, 0, 0, 0, 1.0)) // no absorption/scattering
	w := NewWalker(m, nil, Point3{1, 1, 0}, 180, 181, 182, 183)

	c := &cycleState{p: w.illumination, prevP: w.illumination, weight: 1.0, alive: true}
	c.d = Vector3{X: 1, Y: 0, Z: 0} // aimed straight at the +X wall
	c.layerIdx = m.LayerOf(c.p.Z)

	for c.steps < MaxStepsPerCycle && c.alive {
		w.stepOnce(c)
	}
	if c.alive {
		t.Fatalf("photon should have exited through the index-matched wall")
	}
	if c.weight != 1.0 {
		t.Fatalf("no-scattering no-absorption photon should exit at full weight, got %v", c.weight)
	}
}

func TestResolveLayerCrossingAlwaysTransmitsIntoDenserLayer(t *testing.T) {
	m := NewMedium(10, 10, 10, DefaultRadialSize)
	m.AddLayer(NewLayer(0, 5, 0, 0, 0, 1.0))
	m.AddLayer(NewLayer(5, 10, 0, 0, 0, 1.5)) // denser
	w := NewWalker(m, nil, Point3{5, 5, 0}, 190, 191, 192, 193)

	layer := m.Layer(0)
	c := &cycleState{p: Point3{5, 5, 5}, prevP: Point3{5, 5, 4}, d: Vector3{X: 0, Y: 0, Z: 1}, weight: 1.0, alive: true, layerIdx: 0}
	w.resolveLayerCrossing(c, layer, 0)

	if c.layerIdx != 1 {
		t.Fatalf("expected transmission into layer 1, got layerIdx=%d alive=%v", c.layerIdx, c.alive)
	}
	if c.weight >= 1.0 {
		t.Fatalf("expected specular reflectance loss on entering denser layer, weight=%v", c.weight)
	}
}

func TestTransmitLayerPreservesDirectionSign(t *testing.T) {
	m := NewMedium(10, 10, 10, DefaultRadialSize)
	m.AddLayer(NewLayer(0, 5, 0, 0, 0, 1.0))
	m.AddLayer(NewLayer(5, 10, 0, 0, 0, 1.0))
	w := NewWalker(m, nil, Point3{5, 5, 5}, 200, 201, 202, 203)

	// Upward-moving photon transmitting back across a boundary must keep a
	// negative dz (the original simulator's bug, which this implementation
	// deliberately avoids, forced dz positive unconditionally here).
	c := &cycleState{d: Vector3{X: 0, Y: 0, Z: -0.5}}
	w.transmitLayer(c, math.Acos(0.5), 0)
	if c.d.Z >= 0 {
		t.Fatalf("expected negative dz preserved on upward transmission, got %v", c.d.Z)
	}

	c2 := &cycleState{d: Vector3{X: 0, Y: 0, Z: 0.5}}
	w.transmitLayer(c2, math.Acos(0.5), 1)
	if c2.d.Z <= 0 {
		t.Fatalf("expected positive dz preserved on downward transmission, got %v", c2.d.Z)
	}
}

func TestResolveLayerCrossingExitsMediumWhenNoNeighbor(t *testing.T) {
	m := NewMedium(10, 10, 10, DefaultRadialSize)
	m.AddLayer(NewLayer(0, 5, 0, 0, 0, 1.0))
	m.AddDetector(NewDetector(PlaneXY, Point3{5, 5, 0}, 10))

	logger, err := NewExitLogger(t.TempDir(), 0, false)
	if err != nil {
		t.Fatalf("NewExitLogger: %v", err)
	}
	defer logger.Close()

	w := NewWalker(m, logger, Point3{5, 5, 1}, 210, 211, 212, 213)
	layer := m.Layer(0)
	c := &cycleState{p: Point3{5, 5, 0}, prevP: Point3{5, 5, 1}, d: Vector3{X: 0, Y: 0, Z: -1}, weight: 1.0, alive: true, layerIdx: 0}
	w.resolveLayerCrossing(c, layer, 0)

	if c.alive {
		t.Fatalf("expected the photon to exit the medium through the topmost layer's boundary")
	}
}

func TestStepRemainderCarriesForwardOnMediumWallReflect(t *testing.T) {
	// A medium with n=1.5 everywhere and an exterior of n=1 guarantees some
	// reflectance at the X wall (R = 0.04 at normal incidence); the seeds are
	// chosen so the walker's first draw (~0.0067) falls below R, which forces
	// a reflect, and step_remain must then be the pre-computed remainder.
	m := newSingleLayerMedium(0, 1.0, 0.0, 1.5)
	w := NewWalker(m, nil, Point3{0, 5, 5}, 220, 221, 222, 1972)

	layer := m.Layer(0)
	c := &cycleState{d: Vector3{X: 1, Y: 0, Z: 0}, p: Point3{10, 5, 5}, weight: 1.0, alive: true}
	remainder := 3.5
	r, _ := fresnelReflectance(c.d.X, layer.N, 1.0)
	if r <= 0 {
		t.Fatalf("expected nonzero Fresnel reflectance at this interface, got %v", r)
	}
	w.resolveMediumWall(c, layer, axisX, remainder)
	if !c.alive {
		t.Fatalf("expected the forced reflect to keep the photon alive")
	}
	if c.stepRemain != remainder {
		t.Fatalf("expected stepRemain=%v carried into reflect branch, got %v", remainder, c.stepRemain)
	}
}
