package photontrace

import (
	"math"
	"sync/atomic"
)

// absorberShape is the tagged-sum contract implemented by sphereAbsorber and
// cylinderAbsorber (spec Section 9: "Duck-typed absorber polymorphism").
type absorberShape interface {
	contains(p Point3) bool
}

// Absorber is an embedded shape (sphere or cylinder) with its own local optical
// properties and an atomically-updated deposited-energy counter. Per spec Section 3,
// an Absorber's point-set must lie entirely inside exactly one Layer; neither
// Absorber, Layer.AddAbsorber nor LoadConfig checks that invariant.
type Absorber struct {
	shape absorberShape
	muA   Real
	muS   Real

	// depositedBits holds the IEEE-754 bit pattern of the accumulated deposited
	// energy; updated via a compare-and-swap retry loop (spec Section 4.4/9).
	depositedBits uint64
}

// NewSphereAbsorber builds a spherical Absorber centered at c with the given radius.
func NewSphereAbsorber(center Point3, radius, muA, muS Real) *Absorber {
	return &Absorber{shape: &sphereAbsorber{center: center, radius: radius}, muA: muA, muS: muS}
}

// NewCylinderAbsorber builds a cylindrical Absorber whose axis runs parallel to Z,
// centered at c (in X,Y) with the given radius and half-height along Z.
func NewCylinderAbsorber(center Point3, radius, halfHeight, muA, muS Real) *Absorber {
	return &Absorber{shape: &cylinderAbsorber{center: center, radius: radius, halfHeight: halfHeight}, muA: muA, muS: muS}
}

// Contains reports whether p lies within the absorber's closed point-set.
func (a *Absorber) Contains(p Point3) bool { return a.shape.contains(p) }

// Coefficients returns the absorber-local (mu_a, mu_s).
func (a *Absorber) Coefficients() (muA, muS Real) { return a.muA, a.muS }

// Deposit adds energy to the absorber's accumulator. Linearizable across concurrent
// walkers via a CAS retry loop on the float64 bit pattern (spec Section 4.4/9).
func (a *Absorber) Deposit(energy Real) {
	for {
		old := atomic.LoadUint64(&a.depositedBits)
		sum := math.Float64frombits(old) + energy
		next := math.Float64bits(sum)
		if atomic.CompareAndSwapUint64(&a.depositedBits, old, next) {
			return
		}
	}
}

// DepositedEnergy returns the current accumulated deposited energy.
func (a *Absorber) DepositedEnergy() Real {
	return math.Float64frombits(atomic.LoadUint64(&a.depositedBits))
}

type sphereAbsorber struct {
	center Point3
	radius Real
}

func (s *sphereAbsorber) contains(p Point3) bool {
	d := p.Sub(s.center)
	return d.Dot(d) <= s.radius*s.radius
}

// cylinderAbsorber is a right circular cylinder with its axis parallel to Z,
// spanning [center.Z-halfHeight, center.Z+halfHeight].
type cylinderAbsorber struct {
	center     Point3
	radius     Real
	halfHeight Real
}

func (c *cylinderAbsorber) contains(p Point3) bool {
	dz := p.Z - c.center.Z
	if dz < -c.halfHeight || dz > c.halfHeight {
		return false
	}
	dx := p.X - c.center.X
	dy := p.Y - c.center.Y
	return dx*dx+dy*dy <= c.radius*c.radius
}
