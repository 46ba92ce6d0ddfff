package tie

import (
	"math"
	"time"

	"github.com/BRL-CAD/brlcad-sub112/types"
)

const (
	// Bounds for the number of candidate split planes evaluated per axis.
	// Nodes holding a larger share of the scene get more candidates.
	minSlices = 35
	maxSlices = 100

	// A run of near-empty slices counts as a gap if it spans more than this
	// fraction of the node extent.
	minGapSpan = 0.15

	// A slice is near-empty if its count is below this fraction of the peak
	// count along the same axis.
	minGapDensity = 0.01

	// Gap splits are only considered for nodes with more triangles than this.
	minGapTriangles = 500

	// Penalty applied to candidate planes away from the node center.
	centerBiasCoef = 1.8
)

// The number of triangles on each side of a candidate split plane.
type sliceCount struct {
	left, right int
}

// Per-axis split candidate counts.
type axisCounts struct {
	axis   int
	counts []sliceCount
}

type buildStats struct {
	leaves    int
	maxDepth  int
	unsplit   int
	gapSplits int
	buildTime time.Duration
}

type builder struct {
	store *triangleStore
	tree  *kdTree

	// Nodes with this many triangles or less become leaves.
	leafTris int

	// Depth limit.
	maxDepth int

	// Total triangles in the scene; used to scale the slice count.
	totalTris int

	stats buildStats
}

func (b *builder) buildRoot(bbox [2]types.Vec3) {
	ids := make([]TriangleID, b.store.count())
	for index := range ids {
		ids[index] = TriangleID(index)
	}
	b.build(ids, 0, bbox[0], bbox[1])
}

// Build the subtree for the given triangles and node bounds and return its
// root. The node is allocated as a leaf and turned into a split node once its
// children are built.
func (b *builder) build(ids []TriangleID, depth int, min, max types.Vec3) nodeRef {
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	ref := nodeRef(len(b.tree.nodes))
	b.tree.nodes = append(b.tree.nodes, kdNode{kind: leafNode, tris: ids})

	if len(ids) <= b.leafTris {
		b.stats.leaves++
		return ref
	}
	if depth > b.maxDepth {
		return b.forceLeaf(ids)
	}

	axis, split := b.chooseSplit(ids, min, max)

	leftMax := max
	leftMax[axis] = split
	rightMin := min
	rightMin[axis] = split

	leftIDs := make([]TriangleID, 0, len(ids)/2)
	rightIDs := make([]TriangleID, 0, len(ids)/2)
	for _, id := range ids {
		tri := b.store.get(id)
		if triInBox(tri, min, leftMax) {
			leftIDs = append(leftIDs, id)
		}
		if triInBox(tri, rightMin, max) {
			rightIDs = append(rightIDs, id)
		}
	}

	// Splitting would not separate anything.
	if len(leftIDs) == len(ids) && len(rightIDs) == len(ids) {
		return b.forceLeaf(ids)
	}

	left := b.build(leftIDs, depth+1, min, leftMax)
	right := b.build(rightIDs, depth+1, rightMin, max)
	b.tree.nodes[ref] = kdNode{
		kind:  splitNode,
		axis:  uint8(axis),
		split: split,
		left:  left,
		right: right,
	}
	return ref
}

func (b *builder) forceLeaf(ids []TriangleID) nodeRef {
	b.stats.leaves++
	b.stats.unsplit += len(ids)
	return nodeRef(len(b.tree.nodes) - 1)
}

// Select a split axis and position for a node. Candidate planes are placed
// at regular intervals along each axis. If a large near-empty region exists
// at either end of an axis the node is split at its edge; otherwise the
// candidate minimizing a weighted balance cost is used.
func (b *builder) chooseSplit(ids []TriangleID, min, max types.Vec3) (int, float64) {
	slices := minSlices + int(float64(maxSlices)*float64(len(ids))/float64(b.totalTris))
	if slices > maxSlices {
		slices = maxSlices
	}

	extent := max.Sub(min)
	plane := func(axis, slice int) float64 {
		return min[axis] + extent[axis]*float64(slice+1)/float64(slices+1)
	}

	counts := b.countAxes(ids, slices, min, max, plane, len(ids) > minGapTriangles)

	if len(ids) > minGapTriangles {
		if axis, slice, ok := b.findGap(counts, slices, extent); ok {
			b.stats.gapSplits++
			return axis, plane(axis, slice)
		}
	}

	bestAxis, bestSlice := -1, 0
	bestCost := math.MaxFloat64
	for axis := 0; axis < 3; axis++ {
		for slice, c := range counts[axis] {
			if c.left == 0 && c.right == 0 {
				continue
			}
			f := 2*float64(slice+1)/float64(slices+1) - 1
			cost := float64(c.left+c.right)*(1+centerBiasCoef*f*f) + math.Abs(float64(c.left-c.right))
			if cost < bestCost {
				bestAxis, bestSlice, bestCost = axis, slice, cost
			}
		}
	}

	// No candidate saw any triangle; fall back to the longest axis midpoint.
	if bestAxis == -1 {
		axis := extent.MaxAxis()
		return axis, min[axis] + 0.5*extent[axis]
	}
	return bestAxis, plane(bestAxis, bestSlice)
}

// Count the split candidates of all three axes. Large nodes count each axis
// in its own goroutine.
func (b *builder) countAxes(ids []TriangleID, slices int, min, max types.Vec3, plane func(int, int) float64, parallel bool) [3][]sliceCount {
	var counts [3][]sliceCount
	if !parallel {
		for axis := 0; axis < 3; axis++ {
			counts[axis] = b.countSlices(ids, axis, slices, min, max, plane)
		}
		return counts
	}

	resChan := make(chan axisCounts, 3)
	for axis := 0; axis < 3; axis++ {
		go func(axis int) {
			resChan <- axisCounts{axis: axis, counts: b.countSlices(ids, axis, slices, min, max, plane)}
		}(axis)
	}
	for pending := 3; pending > 0; pending-- {
		res := <-resChan
		counts[res.axis] = res.counts
	}
	return counts
}

// Count the triangles on each side of every candidate plane along axis.
// Axes with no extent yield zero counts.
func (b *builder) countSlices(ids []TriangleID, axis, slices int, min, max types.Vec3, plane func(int, int) float64) []sliceCount {
	counts := make([]sliceCount, slices)
	if max[axis] <= min[axis] {
		return counts
	}

	for slice := range counts {
		leftMax := max
		leftMax[axis] = plane(axis, slice)
		rightMin := min
		rightMin[axis] = leftMax[axis]

		for _, id := range ids {
			tri := b.store.get(id)
			if triInBox(tri, min, leftMax) {
				counts[slice].left++
			}
			if triInBox(tri, rightMin, max) {
				counts[slice].right++
			}
		}
	}
	return counts
}

// Look for the widest run of near-empty slices anchored at either end of an
// axis. Returns the slice at the run edge closest to the node center.
func (b *builder) findGap(counts [3][]sliceCount, slices int, extent types.Vec3) (int, int, bool) {
	var (
		bestAxis, bestSlice int
		bestSpan            float64
	)
	mid := float64(slices-1) / 2

	for axis := 0; axis < 3; axis++ {
		if extent[axis] <= 0 {
			continue
		}
		var peakLeft, peakRight int
		for _, c := range counts[axis] {
			if c.left > peakLeft {
				peakLeft = c.left
			}
			if c.right > peakRight {
				peakRight = c.right
			}
		}

		// Run starting at the min side.
		end := 0
		for end < slices && float64(counts[axis][end].left) < minGapDensity*float64(peakLeft) {
			end++
		}
		if end > 0 {
			span := float64(end) / float64(slices+1)
			if span > bestSpan {
				bestAxis, bestSpan = axis, span
				bestSlice = nearestEdge(0, end-1, mid)
			}
		}

		// Run ending at the max side.
		start := slices
		for start > 0 && float64(counts[axis][start-1].right) < minGapDensity*float64(peakRight) {
			start--
		}
		if start < slices {
			span := float64(slices-start) / float64(slices+1)
			if span > bestSpan {
				bestAxis, bestSpan = axis, span
				bestSlice = nearestEdge(start, slices-1, mid)
			}
		}
	}

	if bestSpan <= minGapSpan {
		return 0, 0, false
	}
	return bestAxis, bestSlice, true
}

func nearestEdge(first, last int, mid float64) int {
	if math.Abs(float64(first)-mid) < math.Abs(float64(last)-mid) {
		return first
	}
	return last
}
