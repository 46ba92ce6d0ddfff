// Package mesh loads triangle meshes from mesh description files.
package mesh

import (
	"fmt"
	"strings"

	"github.com/BRL-CAD/brlcad-sub112/asset"
	"github.com/BRL-CAD/brlcad-sub112/types"
)

// Payload is attached to every triangle loaded from a mesh file and
// identifies where the triangle came from.
type Payload struct {
	// Index of the mesh in Model.Meshes.
	Mesh int

	// Index of the source face within the mesh. Quads are split into two
	// triangles that share the same face index.
	Face int
}

// A named group of consecutive triangles.
type Mesh struct {
	Name string

	// Range of the mesh triangles in Model.Triangles.
	FirstTriangle int
	TriangleCount int
}

// Camera settings embedded in a mesh file.
type Camera struct {
	Eye  types.Vec3
	Look types.Vec3
	Up   types.Vec3

	// Vertical field of view in degrees.
	FOV float64
}

// Get the default camera settings.
func DefaultCamera() Camera {
	return Camera{
		Eye:  types.XYZ(0, 0, 0),
		Look: types.XYZ(0, 0, -1),
		Up:   types.XYZ(0, 1, 0),
		FOV:  45,
	}
}

// A Model is a triangle soup partitioned into meshes.
type Model struct {
	Meshes    []Mesh
	Triangles [][3]types.Vec3
	Payloads  []Payload

	// Nil unless the mesh file defines camera settings.
	Camera *Camera
}

// Get the bounding box of all model triangles.
func (m *Model) BBox() [2]types.Vec3 {
	bbox := types.EmptyBBox()
	for _, tri := range m.Triangles {
		for _, v := range tri {
			bbox[0] = types.MinVec3(bbox[0], v)
			bbox[1] = types.MaxVec3(bbox[1], v)
		}
	}
	return bbox
}

// The Reader interface is implemented by all mesh readers.
type Reader interface {
	// Read a model from a resource.
	Read(*asset.Resource) (*Model, error)
}

// Read model from a file or URL. The reader is selected by file extension.
func ReadFile(filename string) (*Model, error) {
	var reader Reader
	switch {
	case strings.HasSuffix(filename, ".obj"):
		reader = newWavefrontReader()
	default:
		return nil, fmt.Errorf("mesh: unsupported file format for %q", filename)
	}

	res, err := asset.Open(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return reader.Read(res)
}
