package renderer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

type WorkerStat struct {
	Id int

	// The block assigned to this worker and the percentage of total frame
	// area it represents.
	BlockY       uint32
	BlockH       uint32
	FramePercent float32

	// Traced rays, rays that hit something and split nodes visited.
	Rays       uint64
	Hits       uint64
	SplitNodes uint64

	// Render time for assigned block
	RenderTime time.Duration
}

type FrameStats struct {
	// Individual worker stats.
	Workers []WorkerStat

	// Total render time for entire frame.
	RenderTime time.Duration
}

// Render frame stats as a table.
func (fs FrameStats) String() string {
	var (
		buf              bytes.Buffer
		rays, hits, trav uint64
	)
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Worker", "Block", "% of frame", "Rays", "Hit %", "Nodes/ray", "Render time"})
	for _, stat := range fs.Workers {
		rays += stat.Rays
		hits += stat.Hits
		trav += stat.SplitNodes
		table.Append([]string{
			fmt.Sprintf("%d", stat.Id),
			fmt.Sprintf("%d-%d", stat.BlockY, stat.BlockY+stat.BlockH),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			humanize.Comma(int64(stat.Rays)),
			percent(stat.Hits, stat.Rays),
			ratio(stat.SplitNodes, stat.Rays),
			stat.RenderTime.String(),
		})
	}
	table.SetFooter([]string{"", "", "TOTAL", humanize.Comma(int64(rays)), percent(hits, rays), ratio(trav, rays), fs.RenderTime.String()})

	table.Render()
	return buf.String()
}

func percent(n, total uint64) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%02.1f %%", 100*float64(n)/float64(total))
}

func ratio(n, total uint64) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", float64(n)/float64(total))
}
