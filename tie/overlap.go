package tie

import (
	"math"

	"github.com/BRL-CAD/brlcad-sub112/types"
)

var unitAxes = [3]types.Vec3{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
}

// Check whether a triangle overlaps the box [min, max]. A vertex strictly
// inside the box is accepted right away; otherwise the full separating axis
// test is performed.
func triInBox(tri *Triangle, min, max types.Vec3) bool {
	for _, v := range tri.Vertices {
		if v[0] > min[0] && v[0] < max[0] &&
			v[1] > min[1] && v[1] < max[1] &&
			v[2] > min[2] && v[2] < max[2] {
			return true
		}
	}

	center := min.Add(max).Mul(0.5)
	return triBoxOverlap(center, max.Sub(center), &tri.Vertices)
}

// Separating axis triangle/box overlap test. Checks the three box face
// normals, the nine edge/axis cross products and finally the triangle plane.
// Touching counts as overlapping.
func triBoxOverlap(center, halfSize types.Vec3, verts *[3]types.Vec3) bool {
	v := [3]types.Vec3{
		verts[0].Sub(center),
		verts[1].Sub(center),
		verts[2].Sub(center),
	}

	// Box face normals
	for axis := 0; axis < 3; axis++ {
		lo, hi := minMax3(v[0][axis], v[1][axis], v[2][axis])
		if lo > halfSize[axis] || hi < -halfSize[axis] {
			return false
		}
	}

	// Edge cross products
	edges := [3]types.Vec3{
		v[1].Sub(v[0]),
		v[2].Sub(v[1]),
		v[0].Sub(v[2]),
	}
	for _, edge := range edges {
		for axis := 0; axis < 3; axis++ {
			a := unitAxes[axis].Cross(edge)
			lo, hi := minMax3(a.Dot(v[0]), a.Dot(v[1]), a.Dot(v[2]))
			rad := halfSize[0]*math.Abs(a[0]) + halfSize[1]*math.Abs(a[1]) + halfSize[2]*math.Abs(a[2])
			if lo > rad || hi < -rad {
				return false
			}
		}
	}

	// Triangle plane
	return planeBoxOverlap(edges[0].Cross(edges[1]), v[0], halfSize)
}

func planeBoxOverlap(normal, vert, halfSize types.Vec3) bool {
	var vmin, vmax types.Vec3
	for axis := 0; axis < 3; axis++ {
		if normal[axis] > 0 {
			vmin[axis] = -halfSize[axis] - vert[axis]
			vmax[axis] = halfSize[axis] - vert[axis]
		} else {
			vmin[axis] = halfSize[axis] - vert[axis]
			vmax[axis] = -halfSize[axis] - vert[axis]
		}
	}

	if normal.Dot(vmin) > 0 {
		return false
	}
	return normal.Dot(vmax) >= 0
}

func minMax3(a, b, c float64) (float64, float64) {
	lo, hi := a, a
	if b < lo {
		lo = b
	} else if b > hi {
		hi = b
	}
	if c < lo {
		lo = c
	} else if c > hi {
		hi = c
	}
	return lo, hi
}
