package types

import (
	"math"
	"testing"
)

func TestCrossAndNormalize(t *testing.T) {
	n := XYZ(1, 0, 0).Cross(XYZ(0, 1, 0))
	if n != XYZ(0, 0, 1) {
		t.Fatalf("expected cross product to be (0, 0, 1); got %v", n)
	}

	v := XYZ(3, 0, 4).Normalize()
	if math.Abs(v.Len()-1) > 1e-12 {
		t.Fatalf("expected normalized vector length to be 1; got %f", v.Len())
	}

	if z := (Vec3{}).Normalize(); z != (Vec3{}) {
		t.Fatalf("expected zero vector to stay zero; got %v", z)
	}
}

func TestMaxAxis(t *testing.T) {
	specs := []struct {
		v   Vec3
		exp int
	}{
		{XYZ(3, 1, 2), X},
		{XYZ(1, 3, 2), Y},
		{XYZ(1, 2, 3), Z},
		{XYZ(1, 1, 1), X},
	}

	for index, s := range specs {
		if got := s.v.MaxAxis(); got != s.exp {
			t.Fatalf("[spec %d] expected max axis of %v to be %d; got %d", index, s.v, s.exp, got)
		}
	}
}

func TestBBoxGrow(t *testing.T) {
	bbox := EmptyBBox()
	for _, p := range []Vec3{XYZ(1, -2, 3), XYZ(-1, 2, 0)} {
		bbox[0] = MinVec3(bbox[0], p)
		bbox[1] = MaxVec3(bbox[1], p)
	}

	if bbox[0] != XYZ(-1, -2, 0) || bbox[1] != XYZ(1, 2, 3) {
		t.Fatalf("unexpected bbox %v", bbox)
	}
}
