// Package renderer draws diagnostic views of a scene by tracing one primary
// ray per pixel through a tie.Engine. Pixels are shaded by how directly the
// ray faces the surface it hits.
package renderer

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"time"

	"github.com/BRL-CAD/brlcad-sub112/log"
	"github.com/BRL-CAD/brlcad-sub112/tie"
	"golang.org/x/sync/errgroup"
)

// A Renderer traces frames using a pool of workers.
type Renderer struct {
	logger log.Logger

	engine    *tie.Engine
	camera    *Camera
	scheduler BlockScheduler
	opts      Options

	frame *image.Gray
	stats FrameStats
}

// Create a new renderer for a prepped engine.
func New(engine *tie.Engine, camera *Camera, scheduler BlockScheduler, opts Options) (*Renderer, error) {
	if engine == nil || !engine.Prepped() {
		return nil, ErrNoEngine
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := camera.SetupProjection(opts.FrameW, opts.FrameH); err != nil {
		return nil, err
	}
	if scheduler == nil {
		scheduler = NewPerfectScheduler()
	}

	return &Renderer{
		logger:    log.New("renderer"),
		engine:    engine,
		camera:    camera,
		scheduler: scheduler,
		opts:      opts,
		frame:     image.NewGray(image.Rect(0, 0, int(opts.FrameW), int(opts.FrameH))),
	}, nil
}

// Render a frame. Rows are split into one block per worker based on the
// timings of the previous frame. Cancelling ctx aborts the frame with
// ErrInterrupted.
func (r *Renderer) Render(ctx context.Context) error {
	start := time.Now()
	blocks := r.scheduler.Schedule(r.stats.Workers, r.opts.Workers, r.opts.FrameH)

	workerStats := make([]WorkerStat, len(blocks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	var blockY uint32
	for idx, blockH := range blocks {
		stat := &workerStats[idx]
		stat.Id = idx
		stat.BlockY = blockY
		stat.BlockH = blockH
		stat.FramePercent = 100 * float32(blockH) / float32(r.opts.FrameH)
		blockY += blockH

		g.Go(func() error {
			return r.renderBlock(ctx, stat)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	r.stats = FrameStats{
		Workers:    workerStats,
		RenderTime: time.Since(start),
	}
	r.logger.Debugf("rendered %dx%d frame in %s", r.opts.FrameW, r.opts.FrameH, r.stats.RenderTime)
	return nil
}

func (r *Renderer) renderBlock(ctx context.Context, stat *WorkerStat) error {
	start := time.Now()
	background := grayLevel(r.opts.Background)

	for y := int(stat.BlockY); y < int(stat.BlockY+stat.BlockH); y++ {
		select {
		case <-ctx.Done():
			return ErrInterrupted
		default:
		}

		for x := 0; x < int(r.opts.FrameW); x++ {
			ray, err := r.camera.Ray(x, y)
			if err != nil {
				return err
			}

			res := r.engine.Work(&ray, shadeHit)
			stat.Rays++
			stat.SplitNodes += uint64(ray.Depth)

			level := background
			if res != nil {
				stat.Hits++
				level = grayLevel(res.(float64))
			}
			r.frame.SetGray(x, y, color.Gray{Y: level})
		}
	}

	stat.RenderTime = time.Since(start)
	return nil
}

// Shade the nearest hit by the cosine between the ray and the surface normal.
func shadeHit(ray *tie.Ray, hit *tie.Hit, _ *tie.Triangle) any {
	return math.Abs(hit.Normal.Dot(ray.Dir.Normalize()))
}

func grayLevel(v float64) uint8 {
	return uint8(math.Round(255 * math.Max(0, math.Min(1, v))))
}

// Get the last rendered frame.
func (r *Renderer) Frame() *image.Gray {
	return r.frame
}

// Get render statistics for the last frame.
func (r *Renderer) Stats() FrameStats {
	return r.stats
}

// Save the last rendered frame as a png image.
func (r *Renderer) SavePNG(filename string) error {
	if r.stats.RenderTime == 0 {
		return ErrNothingToWrite
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	if err = png.Encode(f, r.frame); err != nil {
		return err
	}
	r.logger.Noticef("wrote frame to %s", filename)
	return f.Close()
}
