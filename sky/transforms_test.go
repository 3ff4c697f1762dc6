package sky_test

import (
	"envlight/ibl"
	"envlight/libgpu"
	"envlight/sky"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

var faceDirections = [6]mgl32.Vec3{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

func TestFaceTransformsDeterministic(t *testing.T) {
	a := sky.BuildFaceTransforms(256, 0.1, 1000)
	b := sky.BuildFaceTransforms(256, 0.1, 1000)
	if a != b {
		t.Fatal("face transforms differ between calls")
	}
	c := sky.BuildFaceTransforms(128, 0.1, 1000)
	if a == c {
		t.Fatal("face transforms ignore the resolution")
	}
}

func TestFaceTransformsCenter(t *testing.T) {
	const size = 64
	transforms := sky.BuildFaceTransforms(size, 0.1, 100)
	for i, face := range libgpu.CubeFaces {
		dir := transforms[i].PixelCoordToViewDir.Mul4x1(mgl32.Vec4{size / 2, size / 2, 1, 0}).Vec3().Normalize()
		if !dir.ApproxEqualThreshold(faceDirections[i], 1e-5) {
			t.Errorf("face %v: center maps to %v", face, dir)
		}

		view := transforms[i].WorldToView.Mul4x1(faceDirections[i].Vec4(0)).Vec3()
		if !view.ApproxEqualThreshold(mgl32.Vec3{0, 0, 1}, 1e-5) {
			t.Errorf("face %v: face direction is %v in view space, expected +Z", face, view)
		}

		p := transforms[i].InvViewProj.Mul4x1(mgl32.Vec4{0, 0, 0.5, 1})
		point := p.Vec3().Mul(1 / p[3]).Normalize()
		if !point.ApproxEqualThreshold(faceDirections[i], 1e-4) {
			t.Errorf("face %v: clip space center unprojects to %v", face, point)
		}
	}
}

// Every texel direction has to agree with the cube map lookup the convolution stages use.
func TestFaceTransformsMatchCubeLayout(t *testing.T) {
	const size = 16
	transforms := sky.BuildFaceTransforms(size, 0.1, 100)
	for i, face := range libgpu.CubeFaces {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				coord := mgl32.Vec4{float32(x) + 0.5, float32(y) + 0.5, 1, 0}
				got := transforms[i].PixelCoordToViewDir.Mul4x1(coord).Vec3().Normalize()
				wx, wy, wz := ibl.TexelDirection(face, x, y, size)
				if !got.ApproxEqualThreshold(mgl32.Vec3{wx, wy, wz}, 1e-5) {
					t.Fatalf("face %v texel %d,%d: expected %v, got %v", face, x, y, mgl32.Vec3{wx, wy, wz}, got)
				}
			}
		}
	}
}

func TestPixelCoordToViewDirWS(t *testing.T) {
	// a camera at the origin looking along -Z
	worldToView := mgl32.Scale3D(1, 1, -1).Mul4(mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}))
	fov := float32(math.Pi / 2)

	m := sky.PixelCoordToViewDirWS(fov, 100, 50, worldToView, false)
	tests := []struct {
		coord mgl32.Vec4
		want  mgl32.Vec3
	}{
		{mgl32.Vec4{50, 25, 1, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec4{100, 50, 1, 0}, mgl32.Vec3{2, 1, -1}},
		{mgl32.Vec4{0, 0, 1, 0}, mgl32.Vec3{-2, -1, -1}},
	}
	for _, test := range tests {
		if got := m.Mul4x1(test.coord).Vec3(); !got.ApproxEqualThreshold(test.want, 1e-5) {
			t.Errorf("%v: expected %v, got %v", test.coord, test.want, got)
		}
	}

	flipped := sky.PixelCoordToViewDirWS(fov, 100, 50, worldToView, true)
	if got := flipped.Mul4x1(mgl32.Vec4{100, 50, 1, 0}).Vec3(); !got.ApproxEqualThreshold(mgl32.Vec3{-2, -1, -1}, 1e-5) {
		t.Errorf("cube map variant: expected the mirrored direction, got %v", got)
	}
}
