package tie

import (
	"bytes"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// Engine statistics.
type Stats struct {
	Triangles int

	Nodes       int
	Leaves      int
	EmptyLeaves int

	// Actual tree depth and the depth past which nodes become leaves.
	Depth      int
	DepthLimit int

	// Sum of leaf triangle list lengths. Triangles spanning several leaves
	// are counted once per leaf.
	TriangleRefs     int
	MaxLeafTriangles int
	AvgLeafTriangles float64
	AvgLeafDepth     float64

	// Triangles left in leaves that could not be split further. Only
	// tracked for trees built by Prep.
	UnsplitTriangles int
	GapSplits        int
	BuildTime        time.Duration
}

// Collect engine statistics.
func (e *Engine) Stats() Stats {
	st := Stats{
		Triangles:        e.tris.count(),
		DepthLimit:       e.depthLimit(),
		UnsplitTriangles: e.buildStats.unsplit,
		GapSplits:        e.buildStats.gapSplits,
		BuildTime:        e.buildStats.buildTime,
	}
	if e.tree == nil {
		return st
	}

	ts := e.tree.stats()
	st.Nodes = ts.nodes
	st.Leaves = ts.leaves
	st.EmptyLeaves = ts.emptyLeaves
	st.Depth = ts.depth
	st.TriangleRefs = ts.triangleRefs
	st.MaxLeafTriangles = ts.maxLeafTris
	if ts.leaves > 0 {
		st.AvgLeafTriangles = float64(ts.triangleRefs) / float64(ts.leaves)
		st.AvgLeafDepth = float64(ts.leafDepthSum) / float64(ts.leaves)
	}
	return st
}

// Render stats as a table.
func (st Stats) String() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"KD-tree", "Value"})
	table.Append([]string{"Triangles", humanize.Comma(int64(st.Triangles))})
	table.Append([]string{"Nodes", humanize.Comma(int64(st.Nodes))})
	table.Append([]string{"Leaves (empty)", fmt.Sprintf("%s (%s)", humanize.Comma(int64(st.Leaves)), humanize.Comma(int64(st.EmptyLeaves)))})
	table.Append([]string{"Depth (limit)", fmt.Sprintf("%d (%d)", st.Depth, st.DepthLimit)})
	table.Append([]string{"Triangle refs", humanize.Comma(int64(st.TriangleRefs))})
	table.Append([]string{"Max leaf triangles", fmt.Sprintf("%d", st.MaxLeafTriangles)})
	table.Append([]string{"Avg leaf triangles", fmt.Sprintf("%.2f", st.AvgLeafTriangles)})
	table.Append([]string{"Avg leaf depth", fmt.Sprintf("%.2f", st.AvgLeafDepth)})
	table.Append([]string{"Unsplit triangles", humanize.Comma(int64(st.UnsplitTriangles))})
	table.Append([]string{"Gap splits", humanize.Comma(int64(st.GapSplits))})
	table.SetFooter([]string{"Build time", st.BuildTime.String()})
	table.Render()

	return buf.String()
}
