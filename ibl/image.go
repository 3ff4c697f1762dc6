package ibl

import (
	"envlight/libgpu"
	"fmt"
)

const MagicNumberIBLENV = 0x78b85411

type IblEnvVersion uint32

const (
	IblEnvVersion1_001_000 = IblEnvVersion(1_001_000)
	// adds mip levels
	IblEnvVersion1_002_000 = IblEnvVersion(1_002_000)
)

type IblEnvCompression uint32

const (
	IblEnvCompressionNone = IblEnvCompression(iota)
	IblEnvCompressionLZ4Fast
	IblEnvCompressionLZ4
)

type iblEnvHeader1_001_000 struct {
	Check       uint32
	Version     IblEnvVersion
	Compression IblEnvCompression
	Size        uint32
}

type iblEnvHeader1_002_000 struct {
	iblEnvHeader1_001_000
	Levels uint32
}

type IblEnvHeader = iblEnvHeader1_002_000

// IblEnv is a cube map with mip levels held in memory as RGB floats.
// Levels are stored one after another, each holding six faces in +X, -X, +Y, -Y, +Z, -Z order.
type IblEnv struct {
	BaseSize int
	Levels   int
	data     []float32
}

// NewIblEnv wraps data as an environment. A nil slice allocates zeroed storage.
func NewIblEnv(data []float32, size int, levels int) *IblEnv {
	if data == nil {
		data = make([]float32, calcCubeMapPixels(size, levels)*3)
	}
	return &IblEnv{
		BaseSize: size,
		Levels:   levels,
		data:     data,
	}
}

func calcCubeMapPixels(size int, levels int) int {
	pixels := 0
	for lvl := 0; lvl < levels; lvl++ {
		s := libgpu.MipSize(size, lvl)
		pixels += 6 * s * s
	}
	return pixels
}

// calcCubeMapOffset returns the pixel range of a level.
func calcCubeMapOffset(size int, level int) (start, end int) {
	start = calcCubeMapPixels(size, level)
	s := libgpu.MipSize(size, level)
	return start, start + 6*s*s
}

func (env *IblEnv) Size(level int) int {
	return libgpu.MipSize(env.BaseSize, level)
}

func (env *IblEnv) Level(level int) []float32 {
	start, end := calcCubeMapOffset(env.BaseSize, level)
	return env.data[start*3 : end*3 : end*3]
}

func (env *IblEnv) Face(level int, face libgpu.CubeFace) []float32 {
	lvl := env.Level(level)
	s := env.Size(level)
	o := s * s * 3
	return lvl[int(face)*o : (int(face)+1)*o : (int(face)+1)*o]
}

func (env *IblEnv) All() []float32 {
	return env.data
}

func (env *IblEnv) validate() error {
	if env.BaseSize <= 0 || env.Levels <= 0 {
		return fmt.Errorf("invalid environment %dx%d with %d levels", env.BaseSize, env.BaseSize, env.Levels)
	}
	if want := calcCubeMapPixels(env.BaseSize, env.Levels) * 3; len(env.data) != want {
		return fmt.Errorf("environment holds %d values, expected %d", len(env.data), want)
	}
	return nil
}

// ToRGBA expands a face to RGBA for upload.
func (env *IblEnv) ToRGBA(level int, face libgpu.CubeFace) []float32 {
	rgb := env.Face(level, face)
	rgba := make([]float32, len(rgb)/3*4)
	for i := 0; i < len(rgb)/3; i++ {
		rgba[i*4+0] = rgb[i*3+0]
		rgba[i*4+1] = rgb[i*3+1]
		rgba[i*4+2] = rgb[i*3+2]
		rgba[i*4+3] = 1
	}
	return rgba
}

// SetRGBA stores RGBA data read back from a device into a face.
func (env *IblEnv) SetRGBA(level int, face libgpu.CubeFace, rgba []float32) {
	rgb := env.Face(level, face)
	for i := 0; i < len(rgb)/3; i++ {
		rgb[i*3+0] = rgba[i*4+0]
		rgb[i*3+1] = rgba[i*4+1]
		rgb[i*3+2] = rgba[i*4+2]
	}
}

// Upload creates a cube texture on dev holding all levels of the environment.
func (env *IblEnv) Upload(dev libgpu.Device, label string) (libgpu.Texture, error) {
	tex, err := dev.CreateTexture(libgpu.TextureDesc{
		Label:     label,
		Dimension: libgpu.DimensionCube,
		Format:    libgpu.FormatRGBA16F,
		Width:     env.BaseSize,
		Height:    env.BaseSize,
		MipLevels: env.Levels,
	})
	if err != nil {
		return nil, err
	}
	for lvl := 0; lvl < env.Levels; lvl++ {
		for _, face := range libgpu.CubeFaces {
			if err := dev.Upload(tex, face, lvl, env.ToRGBA(lvl, face)); err != nil {
				tex.Release()
				return nil, fmt.Errorf("could not upload level %d face %v: %w", lvl, face, err)
			}
		}
	}
	return tex, nil
}

// Download reads levels of a cube texture into a new environment.
func Download(dev libgpu.Device, tex libgpu.Texture, levels int) (*IblEnv, error) {
	desc := tex.Desc()
	if desc.Dimension != libgpu.DimensionCube {
		return nil, fmt.Errorf("%q is not a cube map", desc.Label)
	}
	levels = min(levels, desc.Levels())
	env := NewIblEnv(nil, desc.Width, levels)
	for lvl := 0; lvl < levels; lvl++ {
		for _, face := range libgpu.CubeFaces {
			pix, err := dev.ReadPixels(tex, face, lvl)
			if err != nil {
				return nil, fmt.Errorf("could not read level %d face %v: %w", lvl, face, err)
			}
			env.SetRGBA(lvl, face, pix)
		}
	}
	return env, nil
}
