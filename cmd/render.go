package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/BRL-CAD/brlcad-sub112/renderer"
	"github.com/urfave/cli"
)

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	opts := renderer.Options{
		FrameW:     uint32(ctx.Int("width")),
		FrameH:     uint32(ctx.Int("height")),
		Workers:    ctx.Int("workers"),
		Background: ctx.Float64("background"),
	}

	sc, e, err := loadEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Free()

	r, err := renderer.New(e, renderer.NewCamera(sc.Camera), renderer.NewPerfectScheduler(), opts)
	if err != nil {
		return err
	}

	// Abort on interrupt
	renderCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	frames := ctx.Int("frames")
	if frames < 1 {
		frames = 1
	}
	for frame := 0; frame < frames; frame++ {
		if err = r.Render(renderCtx); err != nil {
			return err
		}
		logger.Noticef("frame %d statistics\n%s", frame, r.Stats())
	}

	return r.SavePNG(ctx.String("out"))
}
