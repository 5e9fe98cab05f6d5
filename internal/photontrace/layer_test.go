package photontrace

import "testing"

func TestLayerContainsDepth(t *testing.T) {
	l := NewLayer(0.1, 2.0, 0.1, 7.3, 0.9, 1.33)
	if !l.ContainsDepth(0.1) || !l.ContainsDepth(2.0) {
		t.Fatalf("boundary depths should be contained (closed interval)")
	}
	if l.ContainsDepth(0.099) || l.ContainsDepth(2.001) {
		t.Fatalf("depths outside the layer should not be contained")
	}
}

func TestLayerAbsorberLookupInsertionOrder(t *testing.T) {
	l := NewLayer(0, 2, 0.1, 7.3, 0.9, 1.33)
	a1 := NewSphereAbsorber(Point3{1, 1, 1}, 0.5, 2.0, 7.3)
	a2 := NewSphereAbsorber(Point3{1, 1, 1}, 0.5, 9.0, 1.0)
	l.AddAbsorber(a1)
	l.AddAbsorber(a2)
	got := l.LookupAbsorber(Point3{1, 1, 1})
	if got != a1 {
		t.Fatalf("expected first-inserted overlapping absorber to win")
	}
}

func TestLayerTotalAttenuationAbsorberAware(t *testing.T) {
	l := NewLayer(0, 2, 0.1, 7.3, 0.9, 1.33)
	a := NewSphereAbsorber(Point3{1, 1, 1}, 0.5, 2.0, 1.0)
	l.AddAbsorber(a)

	inside := l.TotalAttenuation(Point3{1, 1, 1})
	if !nearly(inside, 3.0, 1e-12) {
		t.Fatalf("inside absorber: total attenuation = %v, want 3.0", inside)
	}
	outside := l.TotalAttenuation(Point3{1.9, 1, 1})
	if !nearly(outside, 7.4, 1e-12) {
		t.Fatalf("outside absorber: total attenuation = %v, want 7.4 (background)", outside)
	}
}
