package sky_test

import (
	"envlight/ibl"
	"envlight/libgpu"
	"envlight/sky"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func newDevice(t *testing.T) *libgpu.SwDevice {
	t.Helper()
	dev := libgpu.NewSwDevice(4)
	sky.RegisterSoftwareStages(dev, ibl.SwOptions{Samples: 4, LightSamples: 4})
	t.Cleanup(dev.Release)
	return dev
}

type recordingGI struct {
	calls int
	last  libgpu.Texture
}

func (gi *recordingGI) NotifyEnvironmentChanged(filtered libgpu.Texture) {
	gi.calls++
	gi.last = filtered
}

// runFrame records and submits one frame the way a render loop does.
func runFrame(t *testing.T, dev libgpu.Device, m *sky.Manager, dt float32) *sky.Effects {
	t.Helper()
	cmd := dev.NewCommandBuffer()
	fx, err := m.UpdateEnvironment(sky.Frame{Cmd: cmd, DeltaTime: dt})
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.Submit(cmd); err != nil {
		t.Fatal(err)
	}
	return fx
}

func submit(t *testing.T, dev libgpu.Device, record func(cmd libgpu.CommandBuffer)) {
	t.Helper()
	cmd := dev.NewCommandBuffer()
	record(cmd)
	if err := dev.Submit(cmd); err != nil {
		t.Fatal(err)
	}
}

func newCube(t *testing.T, dev libgpu.Device, size int, levels int) libgpu.Texture {
	t.Helper()
	tex, err := dev.CreateTexture(libgpu.TextureDesc{
		Label:     "test cube",
		Dimension: libgpu.DimensionCube,
		Format:    libgpu.FormatRGBA16F,
		Width:     size,
		Height:    size,
		MipLevels: levels,
	})
	if err != nil {
		t.Fatal(err)
	}
	return tex
}

func solid(count int, c mgl32.Vec4) []float32 {
	pix := make([]float32, count*4)
	for i := 0; i < count; i++ {
		copy(pix[i*4:], c[:])
	}
	return pix
}

func fillCube(t *testing.T, dev libgpu.Device, tex libgpu.Texture, c mgl32.Vec4) {
	t.Helper()
	desc := tex.Desc()
	for mip := 0; mip < desc.Levels(); mip++ {
		s := libgpu.MipSize(desc.Width, mip)
		for _, face := range libgpu.CubeFaces {
			if err := dev.Upload(tex, face, mip, solid(s*s, c)); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func readLevel(t *testing.T, dev libgpu.Device, tex libgpu.Texture, face libgpu.CubeFace, mip int) []float32 {
	t.Helper()
	pix, err := dev.ReadPixels(tex, face, mip)
	if err != nil {
		t.Fatal(err)
	}
	return pix
}

// uniformSky has the same color in every direction.
func uniformSky(c mgl32.Vec3) *sky.GradientSky {
	return &sky.GradientSky{Top: c, Middle: c, Bottom: c, Diffusion: 1}
}

// splitSky is red above the horizon, green on it and blue below.
func splitSky() *sky.GradientSky {
	return &sky.GradientSky{
		Top:       mgl32.Vec3{1, 0, 0},
		Middle:    mgl32.Vec3{0, 1, 0},
		Bottom:    mgl32.Vec3{0, 0, 1},
		Diffusion: 1e6,
	}
}

func near(a, b, tol float32) bool {
	return math.Abs(float64(a-b)) <= float64(tol)
}

func expectColor(t *testing.T, what string, pix []float32, i int, want mgl32.Vec3, tol float32) {
	t.Helper()
	for c := 0; c < 3; c++ {
		if !near(pix[i*4+c], want[c], tol) {
			t.Fatalf("%s: expected %v, got %v", what, want, pix[i*4:i*4+3])
		}
	}
}
