// Package libgpu describes the small slice of a GPU backend the environment
// lighting pipeline needs: textures, deferred command buffers and parameter blocks.
// SwDevice implements it on the CPU, libgl on top of OpenGL 4.5.
package libgpu

import (
	"envlight/libutil"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUnknownStage    = errors.New("unknown stage")
	ErrTextureReleased = errors.New("texture is not live")
	ErrDeviceLost      = errors.New("device lost")
	ErrNoRenderTarget  = errors.New("no render target bound")
)

type Format int

const (
	FormatRGBA16F = Format(iota)
	FormatRGBA32F
	FormatR32F
)

func (f Format) Channels() int {
	if f == FormatR32F {
		return 1
	}
	return 4
}

func (f Format) String() string {
	switch f {
	case FormatRGBA16F:
		return "RGBA16F"
	case FormatRGBA32F:
		return "RGBA32F"
	case FormatR32F:
		return "R32F"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

type Dimension int

const (
	Dimension2D = Dimension(iota)
	DimensionCube
)

// CubeFace indexes the faces of a cube texture in the usual +X, -X, +Y, -Y, +Z, -Z order.
// It is ignored for 2D textures.
type CubeFace int

const (
	FacePositiveX = CubeFace(iota)
	FaceNegativeX
	FacePositiveY
	FaceNegativeY
	FacePositiveZ
	FaceNegativeZ
)

var CubeFaces = [6]CubeFace{FacePositiveX, FaceNegativeX, FacePositiveY, FaceNegativeY, FacePositiveZ, FaceNegativeZ}

func (f CubeFace) String() string {
	switch f {
	case FacePositiveX:
		return "+X"
	case FaceNegativeX:
		return "-X"
	case FacePositiveY:
		return "+Y"
	case FaceNegativeY:
		return "-Y"
	case FacePositiveZ:
		return "+Z"
	case FaceNegativeZ:
		return "-Z"
	}
	return fmt.Sprintf("CubeFace(%d)", int(f))
}

type TextureDesc struct {
	Label         string
	Dimension     Dimension
	Format        Format
	Width, Height int
	// 0 allocates the full chain
	MipLevels        int
	AutoGenerateMips bool
	RandomWrite      bool
}

// Levels resolves the number of mip levels the texture has.
func (d TextureDesc) Levels() int {
	if d.MipLevels > 0 {
		return d.MipLevels
	}
	return MipCount(max(d.Width, d.Height))
}

func (d TextureDesc) Faces() int {
	if d.Dimension == DimensionCube {
		return 6
	}
	return 1
}

func (d TextureDesc) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%q: invalid size %dx%d", d.Label, d.Width, d.Height)
	}
	if d.Dimension == DimensionCube && d.Width != d.Height {
		return fmt.Errorf("%q: cube faces must be square, got %dx%d", d.Label, d.Width, d.Height)
	}
	if d.MipLevels > MipCount(max(d.Width, d.Height)) {
		return fmt.Errorf("%q: %d mip levels requested, at most %d possible", d.Label, d.MipLevels, MipCount(max(d.Width, d.Height)))
	}
	return nil
}

// MipCount is the length of a full mip chain for the given base size.
func MipCount(size int) int {
	return 1 + libutil.Log2Floor(size)
}

func MipSize(size, mip int) int {
	return max(size>>mip, 1)
}

// Texture is a device resource. Its pixels are owned by the device; a texture stops
// being live when it is released or when the device loses its resources.
type Texture interface {
	libutil.Releaser
	ID() uuid.UUID
	Desc() TextureDesc
	Live() bool
}

type StageID string

// StageSource is the shader code of a stage, for devices that compile stages at runtime.
// Defines are injected right after the #version line.
type StageSource struct {
	Compute bool
	Code    string
	Defines map[string]string
}
