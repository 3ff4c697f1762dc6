package sky

import (
	"envlight/libgpu"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// FaceTransform holds the matrices used to render one cube map face.
type FaceTransform struct {
	// WorldToView looks along the face direction. View space Z points forward.
	WorldToView mgl32.Mat4
	// PixelCoordToViewDir maps (x+0.5, y+0.5, 1, 0) in face pixels to a world space direction.
	PixelCoordToViewDir mgl32.Mat4
	InvViewProj         mgl32.Mat4
}

// FaceTransforms is indexed by libgpu.CubeFace.
type FaceTransforms [6]FaceTransform

var (
	faceLookAt = [6]mgl32.Vec3{
		{1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0},
		{0, 0, 1}, {0, 0, -1},
	}
	faceUp = [6]mgl32.Vec3{
		{0, 1, 0}, {0, 1, 0},
		{0, 0, -1}, {0, 0, 1},
		{0, 1, 0}, {0, 1, 0},
	}
)

const cubeFov = math32.Pi / 2

// BuildFaceTransforms computes the transforms of the six faces of a cube map with the
// given edge length, in libgpu.CubeFaces order.
func BuildFaceTransforms(resolution int, near, far float32) FaceTransforms {
	var result FaceTransforms
	proj := mgl32.Perspective(cubeFov, 1, near, far)
	flipZ := mgl32.Scale3D(1, 1, -1)
	size := float32(resolution)

	for i := range libgpu.CubeFaces {
		lookAt := mgl32.LookAtV(mgl32.Vec3{}, faceLookAt[i], faceUp[i])
		worldToView := flipZ.Mul4(lookAt)
		result[i] = FaceTransform{
			WorldToView:         worldToView,
			PixelCoordToViewDir: PixelCoordToViewDirWS(cubeFov, size, size, worldToView, true),
			InvViewProj:         proj.Mul4(lookAt).Inv(),
		}
	}
	return result
}

// PixelCoordToViewDirWS derives the matrix that turns a pixel coordinate into a world space
// view direction for a view with the given vertical field of view (radians) and viewport size.
// worldToView must have its Z axis pointing forward.
//
// Cube map faces are stored with both axes running against the view's right and up vectors,
// so renderToCubemap mirrors the pixel coordinates.
func PixelCoordToViewDirWS(fovY, width, height float32, worldToView mgl32.Mat4, renderToCubemap bool) mgl32.Mat4 {
	tanHalf := math32.Tan(fovY * 0.5)
	aspect := width / height
	sx, sy := float32(1), float32(1)
	if renderToCubemap {
		sx, sy = -1, -1
	}

	// view = (sx * (2x/w - 1) * tanHalf * aspect, sy * (2y/h - 1) * tanHalf, 1)
	a := 2 * tanHalf * aspect / width
	c := 2 * tanHalf / height
	screenToView := mgl32.Mat3{
		sx * a, 0, 0,
		0, sy * c, 0,
		-sx * tanHalf * aspect, -sy * tanHalf, 1,
	}

	viewToWorld := worldToView.Mat3().Transpose()
	return viewToWorld.Mul3(screenToView).Mat4()
}
