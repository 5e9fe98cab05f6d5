package photontrace

import "testing"

func TestDetectorCrossedByWithinAperture(t *testing.T) {
	d := NewDetector(PlaneXY, Point3{1, 1, 2}, 1.0)
	hit := d.CrossedBy(Point3{1, 1, 1.9}, Point3{1, 1, 2.1})
	if !hit {
		t.Fatalf("expected segment crossing the plane inside the aperture to register a hit")
	}
}

func TestDetectorCrossedByOutsideAperture(t *testing.T) {
	d := NewDetector(PlaneXY, Point3{1, 1, 2}, 1.0)
	hit := d.CrossedBy(Point3{5, 5, 1.9}, Point3{5, 5, 2.1})
	if hit {
		t.Fatalf("expected segment outside the radius to miss")
	}
}

func TestDetectorCrossedByParallelSegment(t *testing.T) {
	d := NewDetector(PlaneXY, Point3{1, 1, 2}, 1.0)
	hit := d.CrossedBy(Point3{1, 1, 1.9}, Point3{1.5, 1, 1.9})
	if hit {
		t.Fatalf("segment parallel to plane should never cross")
	}
}

func TestDetectorCrossedByWrongDirection(t *testing.T) {
	d := NewDetector(PlaneXY, Point3{1, 1, 2}, 1.0)
	// Segment entirely on one side never reaching the plane (u > 1).
	hit := d.CrossedBy(Point3{1, 1, 0}, Point3{1, 1, 1})
	if hit {
		t.Fatalf("segment that doesn't reach the plane should miss")
	}
}
