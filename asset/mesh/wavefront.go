package mesh

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BRL-CAD/brlcad-sub112/asset"
	"github.com/BRL-CAD/brlcad-sub112/log"
	"github.com/BRL-CAD/brlcad-sub112/types"
)

type wavefrontReader struct {
	logger log.Logger

	model *Model

	// Face counter for the current mesh.
	faceCount int

	// Parsed vertices. Only the number of uv and normal coords is tracked so
	// face indices referring to them can be validated.
	vertexList  []types.Vec3
	uvCount     int
	normalCount int

	// An error stack that provides additional error information when
	// mesh files include other files.
	errStack []string
}

func newWavefrontReader() *wavefrontReader {
	return &wavefrontReader{
		logger: log.New("wavefront reader"),
		model:  &Model{},
	}
}

// Read a wavefront obj model.
func (r *wavefrontReader) Read(res *asset.Resource) (*Model, error) {
	r.logger.Noticef(`parsing mesh from "%s"`, res.Path())
	start := time.Now()

	if err := r.parse(res); err != nil {
		return nil, err
	}
	r.closeMesh()

	r.logger.Noticef(
		"parsed %d meshes with %d triangles in %d ms",
		len(r.model.Meshes), len(r.model.Triangles), time.Since(start).Nanoseconds()/1e6,
	)
	return r.model, nil
}

// Generate an error message that includes the include stack.
func (r *wavefrontReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)
	return fmt.Errorf("%s", strings.Trim(
		fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n")),
		"\n",
	))
}

func (r *wavefrontReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

func (r *wavefrontReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Start a new mesh, dropping the current one if it has no triangles.
func (r *wavefrontReader) openMesh(name string) {
	r.closeMesh()
	r.model.Meshes = append(r.model.Meshes, Mesh{
		Name:          name,
		FirstTriangle: len(r.model.Triangles),
	})
	r.faceCount = 0
}

func (r *wavefrontReader) closeMesh() {
	last := len(r.model.Meshes) - 1
	if last >= 0 && r.model.Meshes[last].TriangleCount == 0 {
		r.logger.Warningf(`dropping mesh "%s" as it contains no polygons`, r.model.Meshes[last].Name)
		r.model.Meshes = r.model.Meshes[:last]
	}
}

func (r *wavefrontReader) camera() *Camera {
	if r.model.Camera == nil {
		cam := DefaultCamera()
		r.model.Camera = &cam
	}
	return r.model.Camera
}

func (r *wavefrontReader) parse(res *asset.Resource) error {
	var (
		lineNum int
		err     error
	)

	// Included files use indices relative to their own vertex list.
	relVertexOffset := len(r.vertexList)
	relUvOffset := r.uvCount
	relNormalOffset := r.normalCount

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "call"; expected 1 argument; got %d`, len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))
			incRes, err := asset.Open(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
			err = r.parse(incRes)
			incRes.Close()
			if err != nil {
				return err
			}
			r.popFrame()
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "vt":
			r.uvCount++
		case "vn":
			r.normalCount++
		case "g", "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument for object name; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			r.openMesh(lineTokens[1])
		case "f":
			tris, err := r.parseFace(lineTokens, relVertexOffset, relUvOffset, relNormalOffset)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}

			// If no object has been defined create a default one
			if len(r.model.Meshes) == 0 {
				r.openMesh("default")
			}
			meshIndex := len(r.model.Meshes) - 1
			for _, tri := range tris {
				r.model.Triangles = append(r.model.Triangles, tri)
				r.model.Payloads = append(r.model.Payloads, Payload{Mesh: meshIndex, Face: r.faceCount})
			}
			r.model.Meshes[meshIndex].TriangleCount += len(tris)
			r.faceCount++
		case "camera_fov":
			r.camera().FOV, err = parseFloat(lineTokens)
		case "camera_eye":
			r.camera().Eye, err = parseVec3(lineTokens)
		case "camera_look":
			r.camera().Look, err = parseVec3(lineTokens)
		case "camera_up":
			r.camera().Up, err = parseVec3(lineTokens)
		default:
			r.logger.Debugf("[%s: %d] ignoring unsupported directive %q", res.Path(), lineNum, lineTokens[0])
		}

		if err != nil {
			return r.emitError(res.Path(), lineNum, err.Error())
		}
	}

	return scanner.Err()
}

// Parse a face definition. Each face argument references a vertex and may
// also reference a uv and normal coord using one of the formats: v, v/vt,
// v//vn or v/vt/vn. Indices start from 1 and may be negative to indicate an
// offset from the end of the list.
//
// Only triangle and quad faces are supported. Quads are split along the
// 0-2 diagonal.
func (r *wavefrontReader) parseFace(lineTokens []string, relVertexOffset, relUvOffset, relNormalOffset int) ([][3]types.Vec3, error) {
	if len(lineTokens) < 4 || len(lineTokens) > 5 {
		return nil, fmt.Errorf(`unsupported syntax for "f"; expected 3 arguments for triangular face or 4 arguments for a quad face; got %d. Select the triangulation option in your exporter`, len(lineTokens)-1)
	}

	var (
		vertices   [4]types.Vec3
		expIndices int
	)
	for arg := 0; arg < len(lineTokens)-1; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return nil, fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		if vTokens[0] == "" {
			return nil, fmt.Errorf("face argument %d does not include a vertex index", arg)
		}
		offset, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList), relVertexOffset)
		if err != nil {
			return nil, fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}
		vertices[arg] = r.vertexList[offset]

		if expIndices > 1 && vTokens[1] != "" {
			if _, err = selectFaceCoordIndex(vTokens[1], r.uvCount, relUvOffset); err != nil {
				return nil, fmt.Errorf("could not parse tex coord for face argument %d: %s", arg, err.Error())
			}
		}
		if expIndices > 2 && vTokens[2] != "" {
			if _, err = selectFaceCoordIndex(vTokens[2], r.normalCount, relNormalOffset); err != nil {
				return nil, fmt.Errorf("could not parse normal coord for face argument %d: %s", arg, err.Error())
			}
		}
	}

	tris := [][3]types.Vec3{{vertices[0], vertices[1], vertices[2]}}
	if len(lineTokens) == 5 {
		tris = append(tris, [3]types.Vec3{vertices[0], vertices[2], vertices[3]})
	}
	return tris, nil
}

// Map a face coord index token to an offset in a coord list of length
// coordListLen. Positive indices are relative to relOffset, the list length
// when the current file started; negative ones count back from the end.
func selectFaceCoordIndex(indexToken string, coordListLen, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var offset int
	if index < 0 {
		offset = coordListLen + int(index)
	} else {
		offset = relOffset + int(index-1)
	}

	if offset < 0 || offset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return offset, nil
}

func parseFloat(lineTokens []string) (float64, error) {
	if len(lineTokens) != 2 {
		return 0, fmt.Errorf("unsupported syntax for '%s'; expected 1 argument; got %d", lineTokens[0], len(lineTokens)-1)
	}
	return strconv.ParseFloat(lineTokens[1], 64)
}

func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf("unsupported syntax for '%s'; expected 3 arguments; got %d", lineTokens[0], len(lineTokens)-1)
	}

	var v types.Vec3
	for index := 0; index < 3; index++ {
		f, err := strconv.ParseFloat(lineTokens[index+1], 64)
		if err != nil {
			return v, err
		}
		v[index] = f
	}
	return v, nil
}
