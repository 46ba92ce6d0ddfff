package scene

import (
	"archive/zip"
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BRL-CAD/brlcad-sub112/asset"
	"github.com/BRL-CAD/brlcad-sub112/asset/mesh"
	"github.com/BRL-CAD/brlcad-sub112/types"
)

const (
	geometryFile = "triangles.bin"
	kdTreeFile   = "kdtree.bin"
)

// The gob encoded part of a compiled scene.
type geometry struct {
	Meshes    []mesh.Mesh
	Triangles [][3]types.Vec3
	Payloads  []mesh.Payload
	Camera    mesh.Camera
}

// Write scene to a zip archive. The kd-tree is stored as-is next to the gob
// encoded geometry.
func Write(sc *Scene, filename string) error {
	logger.Noticef("writing compiled scene to %s", filename)
	start := time.Now()

	zipFile, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer zipFile.Close()

	if err = writeZip(zipFile, sc); err != nil {
		return fmt.Errorf("scene: could not write %s: %w", filename, err)
	}
	if err = zipFile.Close(); err != nil {
		return err
	}

	logger.Noticef("wrote compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}

func writeZip(w io.Writer, sc *Scene) error {
	zw := zip.NewWriter(w)

	cw, err := zw.Create(geometryFile)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(cw).Encode(&geometry{
		Meshes:    sc.Meshes,
		Triangles: sc.Triangles,
		Payloads:  sc.Payloads,
		Camera:    sc.Camera,
	})
	if err != nil {
		return err
	}

	if sc.Compiled() {
		if cw, err = zw.Create(kdTreeFile); err != nil {
			return err
		}
		if _, err = cw.Write(sc.KDCache); err != nil {
			return err
		}
	}

	return zw.Close()
}

// Read a compiled scene from a zip archive stored in a file or served over
// http(s).
func Read(filename string) (*Scene, error) {
	res, err := asset.Open(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return ReadResource(res)
}

// Read a compiled scene from a resource.
func ReadResource(res *asset.Resource) (*Scene, error) {
	logger.Noticef(`loading compiled scene from "%s"`, res.Path())
	start := time.Now()

	// zip.NewReader requires an io.ReaderAt so the archive is buffered in memory.
	data, err := io.ReadAll(res)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("scene: could not open %s: %w", res.Path(), err)
	}

	var (
		sc       = &Scene{}
		foundGeo bool
	)
	for _, f := range zr.File {
		switch f.Name {
		case geometryFile, kdTreeFile:
		default:
			logger.Warningf("unknown file %s in scene zip file; skipping", f.Name)
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		if f.Name == geometryFile {
			var geo geometry
			err = gob.NewDecoder(rc).Decode(&geo)
			sc.Meshes, sc.Triangles, sc.Payloads, sc.Camera = geo.Meshes, geo.Triangles, geo.Payloads, geo.Camera
			foundGeo = true
		} else {
			sc.KDCache, err = io.ReadAll(rc)
		}
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("scene: failed to load %s: %w", f.Name, err)
		}
	}

	if !foundGeo {
		return nil, fmt.Errorf("scene: %s does not contain %s", res.Path(), geometryFile)
	}

	logger.Noticef("loaded scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return sc, nil
}
