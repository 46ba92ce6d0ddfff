package renderer

import (
	"github.com/BRL-CAD/brlcad-sub112/asset/mesh"
	"github.com/BRL-CAD/brlcad-sub112/tie"
	"github.com/BRL-CAD/brlcad-sub112/types"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	nearPlane = 0.01
	farPlane  = 1000.0
)

// The Camera generates primary rays through pixel centers.
type Camera struct {
	Eye  types.Vec3
	Look types.Vec3
	Up   types.Vec3

	// Vertical field of view in degrees.
	FOV float64

	viewMat mgl64.Mat4
	projMat mgl64.Mat4

	frameW, frameH int
}

// Create a camera from mesh camera settings.
func NewCamera(settings mesh.Camera) *Camera {
	return &Camera{
		Eye:  settings.Eye,
		Look: settings.Look,
		Up:   settings.Up,
		FOV:  settings.FOV,
	}
}

// Setup the view and projection matrices for a frame.
func (c *Camera) SetupProjection(frameW, frameH uint32) error {
	if frameW == 0 || frameH == 0 {
		return ErrInvalidFrame
	}
	if c.Eye == c.Look {
		return ErrInvalidCamera
	}

	c.frameW, c.frameH = int(frameW), int(frameH)
	c.viewMat = mgl64.LookAtV(mgl64.Vec3(c.Eye), mgl64.Vec3(c.Look), mgl64.Vec3(c.Up))
	c.projMat = mgl64.Perspective(mgl64.DegToRad(c.FOV), float64(frameW)/float64(frameH), nearPlane, farPlane)
	return nil
}

// Get the primary ray through the center of pixel (x, y). Row 0 is the top
// of the frame.
func (c *Camera) Ray(x, y int) (tie.Ray, error) {
	win := mgl64.Vec3{float64(x) + 0.5, float64(c.frameH-y) - 0.5, 0}
	onNear, err := mgl64.UnProject(win, c.viewMat, c.projMat, 0, 0, c.frameW, c.frameH)
	if err != nil {
		return tie.Ray{}, err
	}

	return tie.Ray{
		Origin: c.Eye,
		Dir:    types.Vec3(onNear).Sub(c.Eye).Normalize(),
	}, nil
}
