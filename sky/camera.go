package sky

import (
	"envlight/libutil"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a regular perspective view the sky can be rendered for.
type Camera struct {
	Position mgl32.Vec3
	// pitch, yaw, roll in degrees
	Orientation mgl32.Vec3
	// in degrees
	VerticalFov       float32
	ViewportDimension mgl32.Vec2
	ClippingPlanes    mgl32.Vec2
	ViewMatrix        mgl32.Mat4
	ProjectionMatrix  mgl32.Mat4
}

func (cam *Camera) UpdateViewMatrix() {
	r := cam.Quaternion()
	t := mgl32.Translate3D(-cam.Position[0], -cam.Position[1], -cam.Position[2])
	cam.ViewMatrix = r.Mat4().Mul4(t)
}

func (cam *Camera) UpdateProjectionMatrix() {
	w, h := cam.ViewportDimension[0], cam.ViewportDimension[1]
	n, f := cam.ClippingPlanes[0], cam.ClippingPlanes[1]
	cam.ProjectionMatrix = mgl32.Perspective(cam.VerticalFov*libutil.Deg2Rad, w/h, n, f)
}

func (cam *Camera) Quaternion() mgl32.Quat {
	return mgl32.AnglesToQuat(cam.Orientation[0]*libutil.Deg2Rad, cam.Orientation[1]*libutil.Deg2Rad, cam.Orientation[2]*libutil.Deg2Rad, mgl32.XYZ)
}

// skyParameters derives the inputs of a sky stage for this camera rendering into a
// target of the given size. The view matrix looks along -Z, the sky stages expect +Z.
func (cam *Camera) skyParameters(width, height int) SkyParameters {
	w, h := float32(width), float32(height)
	worldToView := mgl32.Scale3D(1, 1, -1).Mul4(cam.ViewMatrix)
	return SkyParameters{
		PixelCoordToViewDir: PixelCoordToViewDirWS(cam.VerticalFov*libutil.Deg2Rad, w, h, worldToView, false),
		InvViewProj:         cam.ProjectionMatrix.Mul4(cam.ViewMatrix).Inv(),
		CameraPosition:      cam.Position,
		ScreenSize:          screenSize(width, height),
	}
}
