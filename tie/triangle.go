package tie

import "github.com/BRL-CAD/brlcad-sub112/types"

// A stable handle to a triangle. It is the index of the triangle in the
// engine's triangle store and is what the tree cache persists.
type TriangleID uint32

// A triangle primitive.
type Triangle struct {
	Vertices [3]types.Vec3

	// Unit face normal. Calculated by Prep; zero for degenerate triangles.
	Normal types.Vec3

	// Opaque user data attached when the triangle was pushed.
	Payload any

	// Indices of the two axes the triangle is projected on for the
	// barycentric solve.
	i1, i2 uint8

	// Projected edge deltas: u[i1], u[i2], v[i1], v[i2] where u = v1 - v0 and
	// v = v2 - v0.
	proj [4]float64

	// Plane offset: dot(normal, -v0).
	planeD float64
}

// Get the triangle axis aligned bounding box.
func (tri *Triangle) BBox() [2]types.Vec3 {
	return [2]types.Vec3{
		types.MinVec3(tri.Vertices[0], types.MinVec3(tri.Vertices[1], tri.Vertices[2])),
		types.MaxVec3(tri.Vertices[0], types.MaxVec3(tri.Vertices[1], tri.Vertices[2])),
	}
}

// The triangle store is an append-only triangle list that also tracks the
// bounding box of all triangles pushed so far.
type triangleStore struct {
	tris []Triangle
	bbox [2]types.Vec3

	// Number of triangles whose intersection constants have been set up.
	prepped int
}

func newTriangleStore(capacityHint int) triangleStore {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return triangleStore{
		tris: make([]Triangle, 0, capacityHint),
		bbox: types.EmptyBBox(),
	}
}

func (s *triangleStore) push(tris [][3]types.Vec3, payloads []any) error {
	if len(payloads) > 1 && len(payloads) != len(tris) {
		return ErrPayloadStride
	}

	for index, verts := range tris {
		tri := Triangle{Vertices: verts}
		switch len(payloads) {
		case 0:
		case 1:
			tri.Payload = payloads[0]
		default:
			tri.Payload = payloads[index]
		}
		s.tris = append(s.tris, tri)

		for _, v := range verts {
			s.bbox[0] = types.MinVec3(s.bbox[0], v)
			s.bbox[1] = types.MaxVec3(s.bbox[1], v)
		}
	}

	return nil
}

func (s *triangleStore) count() int {
	return len(s.tris)
}

func (s *triangleStore) get(id TriangleID) *Triangle {
	return &s.tris[id]
}

// Set up the intersection constants of all triangles pushed since the last call.
func (s *triangleStore) prep() {
	for index := s.prepped; index < len(s.tris); index++ {
		s.tris[index].prep()
	}
	s.prepped = len(s.tris)
}

// Recalculate the bbox from the stored triangles.
func (s *triangleStore) recomputeBBox() {
	s.bbox = types.EmptyBBox()
	for index := range s.tris {
		triBBox := s.tris[index].BBox()
		s.bbox[0] = types.MinVec3(s.bbox[0], triBBox[0])
		s.bbox[1] = types.MaxVec3(s.bbox[1], triBBox[1])
	}
}

func (s *triangleStore) free() {
	s.tris = nil
	s.bbox = types.EmptyBBox()
	s.prepped = 0
}
