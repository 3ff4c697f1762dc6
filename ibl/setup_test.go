package ibl_test

import (
	"envlight/ibl"
	"envlight/libgpu"
	"math/rand"
	"testing"
)

func randomFloats(count int, min, max float32) []float32 {
	rnd := rand.New(rand.NewSource(0))
	result := make([]float32, count)
	for i := range result {
		result[i] = min + rnd.Float32()*(max-min)
	}
	return result
}

func newSwDevice() *libgpu.SwDevice {
	dev := libgpu.NewSwDevice(4)
	ibl.RegisterSoftwareStages(dev, ibl.SwOptions{Samples: 16})
	return dev
}

func newCube(t *testing.T, dev libgpu.Device, label string, size int) libgpu.Texture {
	t.Helper()
	tex, err := dev.CreateTexture(libgpu.TextureDesc{
		Label:     label,
		Dimension: libgpu.DimensionCube,
		Format:    libgpu.FormatRGBA16F,
		Width:     size,
		Height:    size,
	})
	if err != nil {
		t.Fatal(err)
	}
	return tex
}

// fillCube sets every texel of every level to the given color.
func fillCube(t *testing.T, dev libgpu.Device, tex libgpu.Texture, r, g, b float32) {
	t.Helper()
	desc := tex.Desc()
	for mip := 0; mip < desc.Levels(); mip++ {
		s := libgpu.MipSize(desc.Width, mip)
		pix := make([]float32, s*s*4)
		for i := 0; i < s*s; i++ {
			pix[i*4+0], pix[i*4+1], pix[i*4+2], pix[i*4+3] = r, g, b, 1
		}
		for _, face := range libgpu.CubeFaces {
			if err := dev.Upload(tex, face, mip, pix); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func submit(t *testing.T, dev libgpu.Device, record func(cmd libgpu.CommandBuffer)) {
	t.Helper()
	cmd := dev.NewCommandBuffer()
	record(cmd)
	if err := dev.Submit(cmd); err != nil {
		t.Fatal(err)
	}
}
