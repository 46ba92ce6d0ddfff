package tie

import (
	"encoding/binary"
	"math"
)

// Tree cache layout (little endian):
//
//	header: u32 bytes used, u32 bytes allocated
//	split:  u8 tag (0), f64 split position, u8 axis
//	leaf:   u8 tag (1), u32 triangle count, u32 triangle id * count
//
// Nodes are written in pre-order: a split node is followed by its complete
// left subtree and then its right subtree.
const (
	cacheHeaderSize = 8
	splitRecordSize = 1 + 8 + 1
	leafHeaderSize  = 1 + 4

	// The cache buffer grows in increments of this many bytes.
	CacheGrowStep = 256 << 10
)

type cacheWriter struct {
	buf  []byte
	used int
}

func (w *cacheWriter) reserve(n int) {
	if w.used+n <= len(w.buf) {
		return
	}
	grow := CacheGrowStep
	if n > grow {
		grow = n
	}
	buf := make([]byte, len(w.buf)+grow)
	copy(buf, w.buf[:w.used])
	w.buf = buf
}

func (w *cacheWriter) putUint8(v uint8) {
	w.buf[w.used] = v
	w.used++
}

func (w *cacheWriter) putUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.used:], v)
	w.used += 4
}

func (w *cacheWriter) putFloat64(v float64) {
	binary.LittleEndian.PutUint64(w.buf[w.used:], math.Float64bits(v))
	w.used += 8
}

func (w *cacheWriter) writeHeader() {
	binary.LittleEndian.PutUint32(w.buf[0:], uint32(w.used))
	binary.LittleEndian.PutUint32(w.buf[4:], uint32(len(w.buf)))
}

// Serialize the tree into a byte buffer while releasing it. Once CacheFree
// returns the engine has no tree and Work returns nil until a tree is
// loaded back with CacheLoad and the engine is prepped again. Triangles are
// not released.
func (e *Engine) CacheFree() ([]byte, error) {
	if e.tree == nil {
		return nil, ErrNoTree
	}

	w := &cacheWriter{
		buf:  make([]byte, CacheGrowStep),
		used: cacheHeaderSize,
	}
	e.encodeNode(w, rootNode)
	e.tree.free()
	e.tree = nil
	e.prepped = false

	// Shrink to the used size so the grown buffer can be collected.
	out := make([]byte, w.used)
	copy(out, w.buf[:w.used])
	w.buf = out
	w.writeHeader()

	e.logger.Debugf("kd-tree cache size: %d bytes", w.used)
	return w.buf, nil
}

func (e *Engine) encodeNode(w *cacheWriter, ref nodeRef) {
	node := &e.tree.nodes[ref]
	switch node.kind {
	case splitNode:
		w.reserve(splitRecordSize)
		w.putUint8(uint8(splitNode))
		w.putFloat64(node.split)
		w.putUint8(node.axis)
		w.writeHeader()

		e.encodeNode(w, node.left)
		e.encodeNode(w, node.right)
	case leafNode:
		w.reserve(leafHeaderSize + 4*len(node.tris))
		w.putUint8(uint8(leafNode))
		w.putUint32(uint32(len(node.tris)))
		for _, id := range node.tris {
			w.putUint32(uint32(id))
		}
		w.writeHeader()

		node.tris = nil
	}
}

type cacheReader struct {
	buf []byte
	off int
	err error
}

func (r *cacheReader) remaining() int {
	return len(r.buf) - r.off
}

func (r *cacheReader) uint8() uint8 {
	if r.err != nil || r.remaining() < 1 {
		r.err = ErrCorruptCache
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *cacheReader) uint32() uint32 {
	if r.err != nil || r.remaining() < 4 {
		r.err = ErrCorruptCache
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *cacheReader) float64() float64 {
	if r.err != nil || r.remaining() < 8 {
		r.err = ErrCorruptCache
		return 0
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(r.buf[r.off:]))
	r.off += 8
	return v
}

// Rebuild the tree from a buffer produced by CacheFree. The engine must
// already hold the triangles the cache was built for and must not have a
// tree. The scene bbox is recalculated from the triangles; Prep must still
// be called before tracing rays.
//
// Buffers that are truncated, reference unknown triangles or do not describe
// exactly one complete tree are rejected with ErrCorruptCache.
func (e *Engine) CacheLoad(buf []byte) error {
	if e.tree != nil {
		return ErrTreeBuilt
	}
	if len(buf) < cacheHeaderSize {
		return ErrCorruptCache
	}

	used := int(binary.LittleEndian.Uint32(buf))
	if used < cacheHeaderSize || used > len(buf) {
		return ErrCorruptCache
	}

	var (
		r        = &cacheReader{buf: buf[:used], off: cacheHeaderSize}
		tree     = &kdTree{}
		triCount = uint32(e.tris.count())

		// Split nodes still waiting for a child. A split node gets its left
		// child first, then its right child, after which it is popped.
		pending    [stackSize]nodeRef
		pendingLen int
	)

	for r.remaining() > 0 {
		ref := nodeRef(len(tree.nodes))

		// Only the root may appear without a pending parent.
		if ref != rootNode && pendingLen == 0 {
			return ErrCorruptCache
		}

		var node kdNode
		switch nodeKind(r.uint8()) {
		case splitNode:
			node.kind = splitNode
			node.split = r.float64()
			node.axis = r.uint8()
			if node.axis > 2 {
				return ErrCorruptCache
			}
		case leafNode:
			node.kind = leafNode
			count := r.uint32()
			if r.err != nil || uint64(count)*4 > uint64(r.remaining()) {
				return ErrCorruptCache
			}
			node.tris = make([]TriangleID, count)
			for index := range node.tris {
				id := r.uint32()
				if id >= triCount {
					return ErrCorruptCache
				}
				node.tris[index] = TriangleID(id)
			}
		default:
			return ErrCorruptCache
		}
		if r.err != nil {
			return r.err
		}
		tree.nodes = append(tree.nodes, node)

		if pendingLen > 0 {
			parent := &tree.nodes[pending[pendingLen-1]]
			if parent.left == rootNode {
				parent.left = ref
			} else {
				parent.right = ref
				pendingLen--
			}
		}

		if node.kind == splitNode {
			if pendingLen == stackSize {
				return ErrCorruptCache
			}
			pending[pendingLen] = ref
			pendingLen++
		}
	}

	if len(tree.nodes) == 0 || pendingLen != 0 {
		return ErrCorruptCache
	}

	e.tree = tree
	e.tris.recomputeBBox()

	e.logger.Debugf("loaded kd-tree with %d nodes from a %d byte cache", len(tree.nodes), used)
	return nil
}
