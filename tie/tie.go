// Package tie implements a triangle intersection engine.
//
// Triangles are pushed into an Engine which, once prepped, indexes them with
// a KD-tree built by an adaptive slicing heuristic. Rays are then resolved
// against the tree and every intersection along the ray is handed, in
// distance order, to a caller supplied HitFunc.
//
// Push and Prep must run to completion on a single goroutine. After Prep the
// engine is read-only and Work may be called concurrently for distinct rays.
// Free and CacheFree must not overlap with any Work call.
package tie

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/BRL-CAD/brlcad-sub112/log"
	"github.com/BRL-CAD/brlcad-sub112/types"
)

const (
	// The default max number of triangles that may reside in a leaf before
	// the builder attempts to split it.
	DefaultLeafTriangles = 4

	// Tree depth limit coefficients: ceil(k1 * log2(triangles) + k2).
	depthCoefK1 = 1.6
	depthCoefK2 = 1.0

	// The scene bbox is grown on each side by this fraction of its diagonal.
	bboxFuzz = 1e-4

	// Scales the largest bbox dimension into the engine epsilon.
	precisionScale = 1e-12
)

var (
	ErrTreeBuilt     = errors.New("tie: kd-tree already built")
	ErrNoTree        = errors.New("tie: no kd-tree available")
	ErrPayloadStride = errors.New("tie: payload count must be 0, 1 or equal to the triangle count")
	ErrCorruptCache  = errors.New("tie: corrupt kd-tree cache")
)

// Engine options.
type Options struct {
	// Nodes with this many triangles or less become leaves.
	LeafTriangles int
}

// Get the default engine options.
func DefaultOptions() Options {
	return Options{
		LeafTriangles: DefaultLeafTriangles,
	}
}

// An Engine owns a triangle store and the KD-tree built over it.
type Engine struct {
	logger log.Logger
	opts   Options

	tris triangleStore
	tree *kdTree

	// Fattened scene bbox and the precision derived from it. Both are
	// recalculated by every Prep call.
	bbox    [2]types.Vec3
	epsilon float64

	// Set once the triangles are prepped and a tree is available.
	prepped bool

	// Stats from the last tree build.
	buildStats buildStats
}

// Create a new engine with room for capacityHint triangles.
func New(capacityHint int, opts Options) *Engine {
	if opts.LeafTriangles <= 0 {
		opts.LeafTriangles = DefaultLeafTriangles
	}

	return &Engine{
		logger: log.New("tie"),
		opts:   opts,
		tris:   newTriangleStore(capacityHint),
	}
}

// Append triangles to the engine. Each entry of tris holds the three vertices
// of a triangle. The payloads slice may be nil, contain a single payload that
// is shared by all pushed triangles or contain one payload per triangle.
//
// Triangles cannot be added once a tree has been built or loaded.
func (e *Engine) Push(tris [][3]types.Vec3, payloads []any) error {
	if e.tree != nil {
		return ErrTreeBuilt
	}
	return e.tris.push(tris, payloads)
}

// Get the number of triangles in the engine.
func (e *Engine) TriangleCount() int {
	return e.tris.count()
}

// Get a triangle by its id.
func (e *Engine) Triangle(id TriangleID) *Triangle {
	return e.tris.get(id)
}

// Get the fattened scene bbox. Only valid after Prep.
func (e *Engine) BBox() [2]types.Vec3 {
	return e.bbox
}

// Get the engine precision. Only valid after Prep.
func (e *Engine) Epsilon() float64 {
	return e.epsilon
}

// Returns true if Work can be used.
func (e *Engine) Prepped() bool {
	return e.prepped
}

// Prepare the engine for ray queries. Prep precomputes the per-triangle
// intersection constants and then builds a KD-tree unless one already exists
// (e.g. it was loaded via CacheLoad). Calling Prep more than once is safe and
// does not rebuild the tree.
func (e *Engine) Prep() {
	e.setupBounds()
	e.tris.prep()

	if e.tree == nil {
		e.build()
	}
	e.prepped = true
}

// Release the tree and all triangles.
func (e *Engine) Free() {
	if e.tree != nil {
		e.tree.free()
		e.tree = nil
	}
	e.tris.free()
	e.prepped = false
}

// Fatten the running triangle bbox and derive the engine precision from it.
func (e *Engine) setupBounds() {
	if e.tris.count() == 0 {
		e.bbox = [2]types.Vec3{}
		e.epsilon = precisionScale
		return
	}

	bbox := e.tris.bbox
	fuzz := bbox[1].Sub(bbox[0]).Len() * bboxFuzz
	if fuzz == 0 {
		// A single point; use a unit fuzz so the box has volume.
		fuzz = bboxFuzz
	}
	delta := types.XYZ(fuzz, fuzz, fuzz)
	e.bbox = [2]types.Vec3{bbox[0].Sub(delta), bbox[1].Add(delta)}
	e.epsilon = e.bbox[1].Sub(e.bbox[0]).MaxComponent() * precisionScale
}

// Nodes deeper than this limit become leaves.
func (e *Engine) depthLimit() int {
	n := e.tris.count()
	if n < 2 {
		return 1
	}
	return int(math.Ceil(depthCoefK1*math.Log2(float64(n)) + depthCoefK2))
}

// Build the tree over all triangles.
func (e *Engine) build() {
	start := time.Now()

	b := &builder{
		store:     &e.tris,
		tree:      &kdTree{nodes: make([]kdNode, 0, 2*e.tris.count()/e.opts.LeafTriangles+1)},
		leafTris:  e.opts.LeafTriangles,
		maxDepth:  e.depthLimit(),
		totalTris: e.tris.count(),
	}
	b.buildRoot(e.bbox)

	e.tree = b.tree
	e.buildStats = b.stats
	e.buildStats.buildTime = time.Since(start)

	e.logger.Debugf(
		"kd-tree build time: %d ms, depth: %d/%d, nodes: %d, leafs: %d, unsplit triangles: %d",
		e.buildStats.buildTime.Nanoseconds()/1e6,
		b.stats.maxDepth, b.maxDepth, len(b.tree.nodes), b.stats.leaves, b.stats.unsplit,
	)
}

func (e *Engine) String() string {
	return fmt.Sprintf("tie.Engine{triangles: %d, prepped: %t}", e.tris.count(), e.prepped)
}
