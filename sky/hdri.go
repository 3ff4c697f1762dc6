package sky

import (
	"envlight/libgpu"
	"envlight/libutil"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	StageHDRISky     = libgpu.StageID("sky.hdri")
	StageGradientSky = libgpu.StageID("sky.gradient")
)

const (
	ParamHDRI      = "_Cubemap"
	ParamSkyParam  = "_SkyParam"
	ParamTop       = "_GradientTop"
	ParamMiddle    = "_GradientMiddle"
	ParamBottom    = "_GradientBottom"
	ParamDiffusion = "_GradientDiffusion"
)

// source kinds, mixed into the hashes so different sources never share one
const (
	kindHDRI = uint64(iota + 1)
	kindGradient
	kindCubemap
)

// HDRISky shades the environment from an equirectangular HDR image.
type HDRISky struct {
	// 2D lat-long texture, v = 1 is +Y
	Texture libgpu.Texture
	// in EV
	Exposure   float32
	Multiplier float32
	// around +Y, degrees
	Rotation float32
}

func NewHDRISky(tex libgpu.Texture) *HDRISky {
	return &HDRISky{Texture: tex, Multiplier: 1}
}

func (s *HDRISky) Valid() bool {
	return s.Texture != nil && s.Texture.Live() && s.Texture.Desc().Dimension == libgpu.Dimension2D
}

func (s *HDRISky) Hash() uint64 {
	h := newHasher()
	h.u64(kindHDRI)
	if s.Texture != nil {
		h.id(s.Texture.ID())
	}
	h.f32(s.Exposure)
	h.f32(s.Multiplier)
	h.f32(s.Rotation)
	return h.sum()
}

func (s *HDRISky) RenderFace(cmd libgpu.CommandBuffer, params *SkyParameters, block *libgpu.ParamBlock) {
	block.SetTexture(ParamHDRI, s.Texture)
	block.SetVector(ParamSkyParam, mgl32.Vec4{math32.Exp2(s.Exposure), s.Multiplier, s.Rotation * libutil.Deg2Rad, 0})
	cmd.DrawFullscreen(StageHDRISky, block)
}

// GradientSky blends three colors by the elevation of the view direction.
type GradientSky struct {
	Top, Middle, Bottom mgl32.Vec3
	// how fast the colors change away from the horizon
	Diffusion float32
}

func NewGradientSky() *GradientSky {
	return &GradientSky{
		Top:       mgl32.Vec3{0, 0, 1},
		Middle:    mgl32.Vec3{0.3, 0.7, 1},
		Bottom:    mgl32.Vec3{1, 1, 1},
		Diffusion: 1,
	}
}

func (s *GradientSky) Valid() bool {
	return true
}

func (s *GradientSky) Hash() uint64 {
	h := newHasher()
	h.u64(kindGradient)
	for _, c := range [3]mgl32.Vec3{s.Top, s.Middle, s.Bottom} {
		h.f32(c[0])
		h.f32(c[1])
		h.f32(c[2])
	}
	h.f32(s.Diffusion)
	return h.sum()
}

func (s *GradientSky) RenderFace(cmd libgpu.CommandBuffer, params *SkyParameters, block *libgpu.ParamBlock) {
	block.SetVector(ParamTop, s.Top.Vec4(1))
	block.SetVector(ParamMiddle, s.Middle.Vec4(1))
	block.SetVector(ParamBottom, s.Bottom.Vec4(1))
	block.SetFloat(ParamDiffusion, s.Diffusion)
	cmd.DrawFullscreen(StageGradientSky, block)
}
