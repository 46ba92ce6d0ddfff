package tie

// Node kinds. The values double as the record tags of the tree cache.
type nodeKind uint8

const (
	splitNode nodeKind = iota
	leafNode
)

// An index into the node arena.
type nodeRef uint32

// The root node is always stored at the start of the arena.
const rootNode nodeRef = 0

// A KD-tree node. Split nodes partition space along axis at split; left
// holds the region below the plane. Leaf nodes list the overlapping triangles.
type kdNode struct {
	kind nodeKind
	axis uint8

	split       float64
	left, right nodeRef

	tris []TriangleID
}

// A KD-tree stored as a flat node arena.
type kdTree struct {
	nodes []kdNode
}

func (t *kdTree) free() {
	for index := range t.nodes {
		t.nodes[index].tris = nil
	}
	t.nodes = nil
}

// Tree shape statistics.
type treeStats struct {
	nodes        int
	leaves       int
	emptyLeaves  int
	depth        int
	triangleRefs int
	maxLeafTris  int
	leafDepthSum int
}

// Walk the tree collecting shape statistics.
func (t *kdTree) stats() treeStats {
	var st treeStats
	if len(t.nodes) == 0 {
		return st
	}

	type entry struct {
		ref   nodeRef
		depth int
	}
	stack := []entry{{rootNode, 0}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &t.nodes[top.ref]
		st.nodes++
		if top.depth > st.depth {
			st.depth = top.depth
		}

		if node.kind == splitNode {
			stack = append(stack, entry{node.right, top.depth + 1}, entry{node.left, top.depth + 1})
			continue
		}

		st.leaves++
		st.leafDepthSum += top.depth
		st.triangleRefs += len(node.tris)
		if len(node.tris) == 0 {
			st.emptyLeaves++
		}
		if len(node.tris) > st.maxLeafTris {
			st.maxLeafTris = len(node.tris)
		}
	}
	return st
}
