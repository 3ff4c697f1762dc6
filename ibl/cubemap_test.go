package ibl_test

import (
	"envlight/ibl"
	"envlight/libgpu"
	"math"
	"testing"
)

func TestCubeMapRoundTrip(t *testing.T) {
	values := randomFloats(3*500, -1, 1)
	for i := 0; i < 500; i++ {
		x, y, z := values[i*3], values[i*3+1], values[i*3+2]
		l := float32(math.Sqrt(float64(x*x + y*y + z*z)))
		if l < 0.01 {
			continue
		}
		x, y, z = x/l, y/l, z/l

		face, u, v := ibl.CubeMapUV(x, y, z)
		dx, dy, dz := ibl.CubeMapDirection(face, u, v)
		dl := float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
		dx, dy, dz = dx/dl, dy/dl, dz/dl

		if math.Abs(float64(dx-x)) > 1e-5 || math.Abs(float64(dy-y)) > 1e-5 || math.Abs(float64(dz-z)) > 1e-5 {
			t.Fatalf("direction (%v, %v, %v) came back as (%v, %v, %v) via face %v", x, y, z, dx, dy, dz, face)
		}
	}
}

func TestCubeMapFaceCenters(t *testing.T) {
	expected := [6][3]float32{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	for _, face := range libgpu.CubeFaces {
		x, y, z := ibl.CubeMapDirection(face, 0.5, 0.5)
		e := expected[face]
		if x != e[0] || y != e[1] || z != e[2] {
			t.Errorf("face %v center points to (%v, %v, %v), expected %v", face, x, y, z, e)
		}
	}

	// the first row of a side face is its top
	_, y, _ := ibl.CubeMapDirection(libgpu.FacePositiveX, 0.5, 0)
	if y != 1 {
		t.Errorf("top of +X should point up, got y=%v", y)
	}
}

func TestLatLongRoundTrip(t *testing.T) {
	for _, uv := range [][2]float32{{0.1, 0.2}, {0.5, 0.5}, {0.75, 0.9}, {0.3, 0.05}} {
		x, y, z := ibl.LatLongDirection(uv[0], uv[1])
		u, v := ibl.LatLongUV(x, y, z)
		if math.Abs(float64(u-uv[0])) > 1e-5 || math.Abs(float64(v-uv[1])) > 1e-5 {
			t.Errorf("uv %v came back as (%v, %v)", uv, u, v)
		}
	}

	_, y, _ := ibl.LatLongDirection(0.5, 1)
	if math.Abs(float64(y-1)) > 1e-6 {
		t.Errorf("v=1 should be +Y, got y=%v", y)
	}
}
