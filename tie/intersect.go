package tie

import "github.com/BRL-CAD/brlcad-sub112/types"

// An intersection between a ray and a triangle.
type Hit struct {
	// The hit triangle.
	ID TriangleID

	// Intersection point.
	Pos types.Vec3

	// Unit normal of the hit triangle.
	Normal types.Vec3

	// Signed distance along the ray.
	Dist float64

	// Barycentric coordinates of the hit point. Pos = v0 + Alpha*(v1-v0) + Beta*(v2-v0).
	Alpha, Beta float64
}

// Calculate the unit normal, the projection plane and the projected edge
// deltas for the triangle.
func (tri *Triangle) prep() {
	u := tri.Vertices[1].Sub(tri.Vertices[0])
	v := tri.Vertices[2].Sub(tri.Vertices[0])
	tri.Normal = u.Cross(v).Normalize()

	// Project on the plane that maximizes the projected area; that is the
	// plane perpendicular to the dominant normal axis.
	switch tri.Normal.Abs().MaxAxis() {
	case types.X:
		tri.i1, tri.i2 = types.Y, types.Z
	case types.Y:
		tri.i1, tri.i2 = types.X, types.Z
	default:
		tri.i1, tri.i2 = types.X, types.Y
	}

	tri.proj = [4]float64{u[tri.i1], u[tri.i2], v[tri.i1], v[tri.i2]}
	tri.planeD = -tri.Normal.Dot(tri.Vertices[0])
}

// Intersect ray with the triangle. The hit is only accepted if its distance
// lies within [near-eps, far+eps] and inside the triangle. On success the
// hit record is populated and true is returned.
func (tri *Triangle) intersect(ray *Ray, near, far, eps float64, hit *Hit) bool {
	nd := tri.Normal.Dot(ray.Dir)
	if nd == 0 {
		return false
	}

	dist := -(tri.planeD + tri.Normal.Dot(ray.Origin)) / nd
	if !(dist >= near-eps && dist <= far+eps) {
		return false
	}

	pos := ray.Origin.Add(ray.Dir.Mul(dist))
	u0 := pos[tri.i1] - tri.Vertices[0][tri.i1]
	v0 := pos[tri.i2] - tri.Vertices[0][tri.i2]

	p := &tri.proj
	var alpha, beta float64
	if p[0] < eps && p[0] > -eps {
		if isZero(p[2], eps) || isZero(p[1], eps) {
			return false
		}
		beta = u0 / p[2]
		if beta < 0 || beta > 1 {
			return false
		}
		alpha = (v0 - beta*p[3]) / p[1]
	} else {
		det := p[3]*p[0] - p[2]*p[1]
		if isZero(det, eps) {
			return false
		}
		beta = (v0*p[0] - u0*p[1]) / det
		if beta < 0 || beta > 1 {
			return false
		}
		alpha = (u0 - beta*p[2]) / p[0]
	}

	if alpha < 0 || alpha+beta > 1 {
		return false
	}

	hit.Pos = pos
	hit.Normal = tri.Normal
	hit.Dist = dist
	hit.Alpha = alpha
	hit.Beta = beta
	return true
}

func isZero(v, eps float64) bool {
	return v < eps && v > -eps
}
