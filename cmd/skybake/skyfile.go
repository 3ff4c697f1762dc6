package main

import (
	"encoding/json"
	"envlight/libgpu"
	"envlight/libio"
	"envlight/sky"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
)

// skyFile is the JSON description of an environment:
//
//	{
//	  "environment": {"resolution": 256, "updateMode": "OnChanged", "useMIS": true},
//	  "source": {"type": "hdri", "path": "studio.f32", "exposure": 0.5}
//	}
//
// Relative paths are resolved against the directory of the file.
type skyFile struct {
	Environment sky.EnvironmentConfig `json:"environment"`
	Source      sourceFile            `json:"source"`
}

type sourceFile struct {
	// hdri, gradient or cubemap
	Type string `json:"type"`
	// .f32 lat-long image for hdri, .iblenv for cubemap
	Path       string  `json:"path"`
	Exposure   float32 `json:"exposure"`
	Multiplier float32 `json:"multiplier"`
	Rotation   float32 `json:"rotation"`

	Top       *[3]float32 `json:"top"`
	Middle    *[3]float32 `json:"middle"`
	Bottom    *[3]float32 `json:"bottom"`
	Diffusion *float32    `json:"diffusion"`
}

func readSkyFile(p string) (*skyFile, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	file := &skyFile{Environment: *sky.DefaultConfig()}
	if err := json.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	if file.Source.Path != "" && !filepath.IsAbs(file.Source.Path) {
		file.Source.Path = filepath.Join(filepath.Dir(p), file.Source.Path)
	}
	return file, nil
}

// load creates the environment source on dev. The returned func frees what it uploaded.
func (src *sourceFile) load(dev libgpu.Device) (sky.EnvironmentSource, func(), error) {
	switch src.Type {
	case "hdri":
		tex, err := uploadLatLong(dev, src.Path)
		if err != nil {
			return nil, nil, err
		}
		hdri := sky.NewHDRISky(tex)
		hdri.Exposure = src.Exposure
		if src.Multiplier != 0 {
			hdri.Multiplier = src.Multiplier
		}
		hdri.Rotation = src.Rotation
		return hdri, tex.Release, nil
	case "gradient", "":
		gradient := sky.NewGradientSky()
		if src.Top != nil {
			gradient.Top = mgl32.Vec3(*src.Top)
		}
		if src.Middle != nil {
			gradient.Middle = mgl32.Vec3(*src.Middle)
		}
		if src.Bottom != nil {
			gradient.Bottom = mgl32.Vec3(*src.Bottom)
		}
		if src.Diffusion != nil {
			gradient.Diffusion = *src.Diffusion
		}
		return gradient, func() {}, nil
	case "cubemap":
		f, err := os.Open(src.Path)
		if err != nil {
			return nil, nil, err
		}
		defer close(f)
		cube, err := sky.LoadCubemapSky(dev, f)
		if err != nil {
			return nil, nil, err
		}
		return cube, cube.Release, nil
	}
	return nil, nil, fmt.Errorf("unknown source type %q", src.Type)
}

func uploadLatLong(dev libgpu.Device, p string) (libgpu.Texture, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer close(f)

	img, err := libio.DecodeFloatImage(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	if img.Width != 2*img.Height {
		return nil, fmt.Errorf("%s: expected a 2:1 lat-long image, got %dx%d", p, img.Width, img.Height)
	}
	img = img.ToChannels(4, 0, 0, 0, 1)

	tex, err := dev.CreateTexture(libgpu.TextureDesc{
		Label:     filepath.Base(p),
		Dimension: libgpu.Dimension2D,
		Format:    libgpu.FormatRGBA32F,
		Width:     img.Width,
		Height:    img.Height,
		MipLevels: 1,
	})
	if err != nil {
		return nil, err
	}
	// rows start at the bottom like v
	if err := dev.Upload(tex, 0, 0, img.Pix); err != nil {
		tex.Release()
		return nil, err
	}
	return tex, nil
}
