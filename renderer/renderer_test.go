package renderer

import (
	"context"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BRL-CAD/brlcad-sub112/asset/mesh"
	"github.com/BRL-CAD/brlcad-sub112/tie"
	"github.com/BRL-CAD/brlcad-sub112/types"
)

// A unit quad at z=0 and a camera looking at it from +z.
func testSetup(t *testing.T) (*tie.Engine, *Camera) {
	t.Helper()
	e := tie.New(2, tie.DefaultOptions())
	err := e.Push([][3]types.Vec3{
		{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
		{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	e.Prep()

	cam := NewCamera(mesh.Camera{
		Eye:  types.XYZ(0.5, 0.5, 3),
		Look: types.XYZ(0.5, 0.5, 0),
		Up:   types.XYZ(0, 1, 0),
		FOV:  45,
	})
	return e, cam
}

func TestCameraRay(t *testing.T) {
	_, cam := testSetup(t)
	if err := cam.SetupProjection(101, 101); err != nil {
		t.Fatal(err)
	}

	ray, err := cam.Ray(50, 50)
	if err != nil {
		t.Fatal(err)
	}
	if ray.Origin != cam.Eye {
		t.Fatalf("expected ray to start at the eye %v; got %v", cam.Eye, ray.Origin)
	}
	if exp := types.XYZ(0, 0, -1); ray.Dir.Sub(exp).Len() > 1e-9 {
		t.Fatalf("expected center ray direction %v; got %v", exp, ray.Dir)
	}

	// Row 0 is the top of the frame.
	top, _ := cam.Ray(50, 0)
	left, _ := cam.Ray(0, 50)
	if top.Dir[1] <= 0 || left.Dir[0] >= 0 {
		t.Fatalf("expected top ray to point up and left ray to point left; got %v and %v", top.Dir, left.Dir)
	}

	// The top edge ray is tilted by half the fov.
	if angle := math.Acos(-top.Dir[2]) * 180 / math.Pi; math.Abs(angle-22.5) > 0.5 {
		t.Fatalf("expected top ray to be tilted by ~22.5 degrees; got %f", angle)
	}
}

func TestCameraErrors(t *testing.T) {
	cam := NewCamera(mesh.DefaultCamera())
	if err := cam.SetupProjection(0, 10); err != ErrInvalidFrame {
		t.Fatalf("expected ErrInvalidFrame; got %v", err)
	}

	cam.Look = cam.Eye
	if err := cam.SetupProjection(10, 10); err != ErrInvalidCamera {
		t.Fatalf("expected ErrInvalidCamera; got %v", err)
	}
}

func TestRenderFrame(t *testing.T) {
	e, cam := testSetup(t)
	r, err := New(e, cam, nil, Options{FrameW: 16, FrameH: 16, Workers: 3, Background: 0})
	if err != nil {
		t.Fatal(err)
	}

	if err = r.SavePNG(filepath.Join(t.TempDir(), "empty.png")); err != ErrNothingToWrite {
		t.Fatalf("expected ErrNothingToWrite; got %v", err)
	}

	for frame := 0; frame < 2; frame++ {
		if err = r.Render(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	frame := r.Frame()
	if center := frame.GrayAt(8, 8).Y; center < 240 {
		t.Fatalf("expected center pixel to be bright; got %d", center)
	}
	if corner := frame.GrayAt(0, 0).Y; corner != 0 {
		t.Fatalf("expected corner pixel to show the background; got %d", corner)
	}

	stats := r.Stats()
	if len(stats.Workers) != 3 {
		t.Fatalf("expected stats for 3 workers; got %d", len(stats.Workers))
	}
	var rows uint32
	var rays, hits uint64
	for _, stat := range stats.Workers {
		if stat.BlockY != rows {
			t.Fatalf("expected worker %d block to start at row %d; got %d", stat.Id, rows, stat.BlockY)
		}
		rows += stat.BlockH
		rays += stat.Rays
		hits += stat.Hits
	}
	if rows != 16 || rays != 256 {
		t.Fatalf("expected 16 rows and 256 rays; got %d and %d", rows, rays)
	}
	if hits == 0 || hits == rays {
		t.Fatalf("expected some rays to miss the quad; got %d hits for %d rays", hits, rays)
	}
	if stats.String() == "" {
		t.Fatal("expected a stats table")
	}

	out := filepath.Join(t.TempDir(), "frame.png")
	if err = r.SavePNG(out); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
		t.Fatalf("expected a 16x16 image; got %dx%d", b.Dx(), b.Dy())
	}
}

func TestRenderInterrupted(t *testing.T) {
	e, cam := testSetup(t)
	r, err := New(e, cam, nil, Options{FrameW: 8, FrameH: 8, Workers: 2})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err = r.Render(ctx); err != ErrInterrupted {
		t.Fatalf("expected ErrInterrupted; got %v", err)
	}
}

func TestNewRendererErrors(t *testing.T) {
	_, cam := testSetup(t)
	if _, err := New(nil, cam, nil, Options{FrameW: 8, FrameH: 8}); err != ErrNoEngine {
		t.Fatalf("expected ErrNoEngine; got %v", err)
	}

	unprepped := tie.New(0, tie.DefaultOptions())
	if _, err := New(unprepped, cam, nil, Options{FrameW: 8, FrameH: 8}); err != ErrNoEngine {
		t.Fatalf("expected ErrNoEngine for an unprepped engine; got %v", err)
	}

	e, _ := testSetup(t)
	if _, err := New(e, cam, nil, Options{FrameW: 8}); err != ErrInvalidFrame {
		t.Fatalf("expected ErrInvalidFrame; got %v", err)
	}
}

func TestOptionsClampWorkers(t *testing.T) {
	opts := Options{FrameW: 4, FrameH: 2, Workers: 8}
	if err := opts.validate(); err != nil {
		t.Fatal(err)
	}
	if opts.Workers != 2 {
		t.Fatalf("expected workers to be clamped to the frame height; got %d", opts.Workers)
	}

	opts = Options{FrameW: 4, FrameH: 64}
	if err := opts.validate(); err != nil {
		t.Fatal(err)
	}
	if opts.Workers <= 0 {
		t.Fatalf("expected a default worker count; got %d", opts.Workers)
	}
}

func TestPerfectScheduler(t *testing.T) {
	type spec struct {
		frameH   uint32
		rTime1   time.Duration
		rTime2   time.Duration
		expRows1 uint32
		expRows2 uint32
	}
	specs := []spec{
		// First call splits rows evenly
		{10, 1, 5, 5, 5},
		// Second call should use the render times to assign rows
		{10, 1, 5, 9, 1},
		// This time worker 2 performed much better
		{10, 5, 1, 7, 3},
	}

	sch := NewPerfectScheduler()
	var lastFrame []WorkerStat
	for index, s := range specs {
		// Workers report the render times for the blocks they were last assigned
		if lastFrame != nil {
			lastFrame[0].RenderTime = s.rTime1
			lastFrame[1].RenderTime = s.rTime2
		}
		blockAssignment := sch.Schedule(lastFrame, 2, s.frameH)

		if blockAssignment[0] != s.expRows1 {
			t.Fatalf("[spec %d] expected worker 0 to be assigned %d rows; got %d", index, s.expRows1, blockAssignment[0])
		}
		if blockAssignment[1] != s.expRows2 {
			t.Fatalf("[spec %d] expected worker 1 to be assigned %d rows; got %d", index, s.expRows2, blockAssignment[1])
		}

		lastFrame = []WorkerStat{
			{Id: 0, BlockH: blockAssignment[0]},
			{Id: 1, BlockH: blockAssignment[1]},
		}
	}
}

func TestPerfectSchedulerOddRows(t *testing.T) {
	sch := NewPerfectScheduler()
	blocks := sch.Schedule(nil, 3, 10)
	if blocks[0] != 4 || blocks[1] != 3 || blocks[2] != 3 {
		t.Fatalf("expected blocks [4 3 3]; got %v", blocks)
	}
}
