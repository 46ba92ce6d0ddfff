package tie

import (
	"math"

	"github.com/BRL-CAD/brlcad-sub112/types"
)

const (
	// Capacity of the traversal stack. Trees are never deeper than this.
	stackSize = 64

	// Max number of hits collected from a single leaf. Any further
	// triangles in the leaf are not tested.
	MaxLeafHits = 256
)

// A ray to be traced through the engine.
type Ray struct {
	Origin types.Vec3
	Dir    types.Vec3

	// Incremented for every split node visited while tracing.
	Depth int
}

// A HitFunc is invoked by Work for every intersection along a ray, nearest
// first within each visited leaf. Returning a non-nil value stops the
// traversal and makes Work return that value.
type HitFunc func(ray *Ray, hit *Hit, tri *Triangle) any

type stackEntry struct {
	node      nodeRef
	near, far float64
}

// Trace ray through the engine calling hitFn for each intersection until it
// returns a non-nil value which is then returned by Work. Work returns nil if
// the engine is not prepped, the ray misses the scene or hitFn never returns
// a non-nil value.
//
// Zero direction components are replaced by the engine epsilon and the ray
// depth counter is updated, so ray must not be shared between goroutines.
func (e *Engine) Work(ray *Ray, hitFn HitFunc) any {
	if !e.prepped || e.tree == nil || len(e.tree.nodes) == 0 {
		return nil
	}
	eps := e.epsilon

	var (
		invDir     types.Vec3
		nearFirst  [3]bool
		sceneFar   = math.MaxFloat64
		sceneBound float64
	)
	for axis := 0; axis < 3; axis++ {
		if ray.Dir[axis] == 0 {
			if math.Signbit(ray.Dir[axis]) {
				ray.Dir[axis] = -eps
			} else {
				ray.Dir[axis] = eps
			}
		}
		invDir[axis] = 1.0 / ray.Dir[axis]

		// For rays travelling towards +inf the left child is the near one.
		nearFirst[axis] = ray.Dir[axis] > 0
		if nearFirst[axis] {
			sceneBound = e.bbox[1][axis]
		} else {
			sceneBound = e.bbox[0][axis]
		}
		if t := (sceneBound - ray.Origin[axis]) * invDir[axis]; t < sceneFar {
			sceneFar = t
		}
	}

	// The scene is behind the ray.
	if sceneFar < 0 {
		return nil
	}

	var (
		stack [stackSize]stackEntry
		hits  [MaxLeafHits]Hit
	)
	stack[0] = stackEntry{node: rootNode, near: 0, far: sceneFar}
	stackLen := 1

	nodes := e.tree.nodes
	for stackLen > 0 {
		stackLen--
		entry := stack[stackLen]
		node := &nodes[entry.node]
		near, far := entry.near, entry.far

		for node.kind == splitNode {
			ray.Depth++

			t := (node.split - ray.Origin[node.axis]) * invDir[node.axis]
			nearChild, farChild := node.left, node.right
			if !nearFirst[node.axis] {
				nearChild, farChild = farChild, nearChild
			}

			switch {
			case t < near:
				node = &nodes[farChild]
			case t > far:
				node = &nodes[nearChild]
			default:
				stack[stackLen] = stackEntry{node: farChild, near: t, far: far}
				stackLen++
				node = &nodes[nearChild]
				far = t
			}
		}

		hitCount := 0
		for _, id := range node.tris {
			if hitCount == MaxLeafHits {
				break
			}
			if e.tris.get(id).intersect(ray, near, far, eps, &hits[hitCount]) {
				hits[hitCount].ID = id
				hitCount++
			}
		}
		sortHits(hits[:hitCount])

		for index := 0; index < hitCount; index++ {
			hit := hits[index]
			if res := hitFn(ray, &hit, e.tris.get(hit.ID)); res != nil {
				return res
			}
		}
	}

	return nil
}

// Stable insertion sort by distance.
func sortHits(hits []Hit) {
	for i := 1; i < len(hits); i++ {
		hit := hits[i]
		j := i - 1
		for ; j >= 0 && hits[j].Dist > hit.Dist; j-- {
			hits[j+1] = hits[j]
		}
		hits[j+1] = hit
	}
}
