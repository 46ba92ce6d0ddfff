// Package scene compiles mesh models into scenes whose kd-tree has already
// been built and serialized, so they can be loaded and traced without
// paying for the tree build again.
package scene

import (
	"bytes"
	"fmt"
	"time"

	"github.com/BRL-CAD/brlcad-sub112/asset/mesh"
	"github.com/BRL-CAD/brlcad-sub112/log"
	"github.com/BRL-CAD/brlcad-sub112/store"
	"github.com/BRL-CAD/brlcad-sub112/tie"
	"github.com/BRL-CAD/brlcad-sub112/types"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/xerrors"
)

var logger = log.New("scene")

// A Scene bundles a triangle soup with its serialized kd-tree.
type Scene struct {
	Meshes    []mesh.Mesh
	Triangles [][3]types.Vec3
	Payloads  []mesh.Payload
	Camera    mesh.Camera

	// Serialized kd-tree as produced by tie.Engine.CacheFree. Empty until
	// the scene is compiled.
	KDCache []byte
}

// Create an uncompiled scene from a mesh model.
func New(model *mesh.Model) *Scene {
	sc := &Scene{
		Meshes:    model.Meshes,
		Triangles: model.Triangles,
		Payloads:  model.Payloads,
		Camera:    mesh.DefaultCamera(),
	}
	if model.Camera != nil {
		sc.Camera = *model.Camera
	}
	return sc
}

// Get the digest of the scene triangles for a tree built with opts.
func (sc *Scene) Digest(opts tie.Options) store.Digest {
	return store.DigestTriangles(sc.Triangles, opts.LeafTriangles)
}

// Returns true if the scene kd-tree has been built.
func (sc *Scene) Compiled() bool {
	return len(sc.KDCache) != 0
}

// Build the scene kd-tree and serialize it into KDCache. If cache is not nil
// it is consulted first and receives any newly built tree.
func (sc *Scene) Compile(opts tie.Options, cache *store.Store) error {
	var digest store.Digest
	if cache != nil {
		digest = sc.Digest(opts)
		blob, err := cache.Get(digest)
		switch {
		case err == nil:
			logger.Noticef("using cached kd-tree %s", digest)
			sc.KDCache = blob
			return nil
		case !xerrors.Is(err, store.ErrNotFound):
			return err
		}
	}

	start := time.Now()
	e, err := sc.newEngine(opts)
	if err != nil {
		return err
	}
	e.Prep()
	logger.Infof("kd-tree statistics\n%s", e.Stats())

	blob, err := e.CacheFree()
	e.Free()
	if err != nil {
		return fmt.Errorf("scene: could not serialize kd-tree: %w", err)
	}
	sc.KDCache = blob
	logger.Noticef("compiled scene with %d triangles in %d ms", len(sc.Triangles), time.Since(start).Nanoseconds()/1e6)

	if cache != nil {
		return cache.Put(digest, len(sc.Triangles), blob)
	}
	return nil
}

// Create an engine for tracing the scene. Uncompiled scenes are compiled
// first. The returned engine is prepped.
func (sc *Scene) Engine(opts tie.Options, cache *store.Store) (*tie.Engine, error) {
	if !sc.Compiled() {
		if err := sc.Compile(opts, cache); err != nil {
			return nil, err
		}
	}

	e, err := sc.newEngine(opts)
	if err != nil {
		return nil, err
	}
	if err = e.CacheLoad(sc.KDCache); err != nil {
		return nil, fmt.Errorf("scene: could not load kd-tree: %w", err)
	}
	e.Prep()
	return e, nil
}

func (sc *Scene) newEngine(opts tie.Options) (*tie.Engine, error) {
	payloads := make([]any, len(sc.Payloads))
	for index, payload := range sc.Payloads {
		payloads[index] = payload
	}

	e := tie.New(len(sc.Triangles), opts)
	if err := e.Push(sc.Triangles, payloads); err != nil {
		return nil, fmt.Errorf("scene: could not push %d triangles: %w", len(sc.Triangles), err)
	}
	return e, nil
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Size"})
	for _, m := range sc.Meshes {
		table.Append([]string{"Mesh", m.Name, humanize.Comma(int64(m.TriangleCount)) + " triangles"})
	}
	table.Append([]string{" ", " ", " "})

	geomBytes := uint64(len(sc.Triangles)) * 9 * 8
	table.Append([]string{"Geometry", "Triangles", humanize.Comma(int64(len(sc.Triangles)))})
	table.Append([]string{"", "Vertex data", humanize.Bytes(geomBytes)})
	table.Append([]string{"", "KD-tree", humanize.Bytes(uint64(len(sc.KDCache)))})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Camera", "Eye / look", fmt.Sprintf("%v / %v", sc.Camera.Eye, sc.Camera.Look)})
	table.Append([]string{"", "FOV", fmt.Sprintf("%g", sc.Camera.FOV)})
	table.SetFooter([]string{"Total", " ", humanize.Bytes(geomBytes + uint64(len(sc.KDCache)))})

	table.Render()
	return buf.String()
}
