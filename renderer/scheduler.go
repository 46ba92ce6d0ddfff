package renderer

import (
	"math"
	"time"
)

// The BlockScheduler interface is implemented by all block scheduling algorithms.
type BlockScheduler interface {
	// Split the frame rows into one block per worker using the stats
	// collected while rendering the previous frame. Returns the block
	// height for each worker; heights add up to frameH.
	Schedule(lastFrame []WorkerStat, workers int, frameH uint32) []uint32
}

// The perfect scheduler assumes that the volume of tracing work between two
// subsequent frames is approximately the same.
type perfectScheduler struct {
	blockAssignment []uint32
}

// Create a new perfect scheduler instance.
func NewPerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

// When previous frame stats are available the scheduler estimates the rows
// assigned to worker w for frame i+1 as:
// rows_w,i+1 = frameH * (blockH_w,i / time_w,i) / Σ(blockH_i / time_i)
//
// Otherwise rows are split evenly.
func (sch *perfectScheduler) Schedule(lastFrame []WorkerStat, workers int, frameH uint32) []uint32 {
	if len(sch.blockAssignment) != workers || len(lastFrame) != workers {
		sch.blockAssignment = make([]uint32, workers)
		for idx := range sch.blockAssignment {
			sch.blockAssignment[idx] = frameH / uint32(workers)
		}
		sch.blockAssignment[0] += frameH % uint32(workers)
		return sch.blockAssignment
	}

	var total float64
	speed := make([]float64, workers)
	for idx, stat := range lastFrame {
		renderTime := stat.RenderTime
		if renderTime <= 0 {
			renderTime = time.Nanosecond
		}
		speed[idx] = float64(stat.BlockH) / float64(renderTime)
		total += speed[idx]
	}

	scaler := float64(frameH) / total
	var scheduledRows uint32
	for idx := range sch.blockAssignment {
		sch.blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(speed[idx]*scaler)))
		scheduledRows += sch.blockAssignment[idx]
	}

	// Rows that don't add up to the frame height are given to the first
	// worker; rows over it are taken from the largest blocks.
	for scheduledRows < frameH {
		sch.blockAssignment[0]++
		scheduledRows++
	}
	for scheduledRows > frameH {
		largest := 0
		for idx, rows := range sch.blockAssignment {
			if rows > sch.blockAssignment[largest] {
				largest = idx
			}
		}
		sch.blockAssignment[largest]--
		scheduledRows--
	}

	return sch.blockAssignment
}
