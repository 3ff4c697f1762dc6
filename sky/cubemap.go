package sky

import (
	"envlight/ibl"
	"envlight/libgpu"
	"fmt"
	"io"
)

// CubemapSky is a pre-baked environment. It is copied face by face instead of being shaded.
type CubemapSky struct {
	Texture libgpu.Texture
	owned   bool
}

// LoadCubemapSky uploads an .iblenv cube map. Release frees the texture again.
func LoadCubemapSky(dev libgpu.Device, r io.Reader) (*CubemapSky, error) {
	env, err := ibl.DecodeIblEnv(r)
	if err != nil {
		return nil, fmt.Errorf("could not decode cube map: %w", err)
	}
	tex, err := env.Upload(dev, "CubemapSky")
	if err != nil {
		return nil, err
	}
	return &CubemapSky{Texture: tex, owned: true}, nil
}

func (s *CubemapSky) Valid() bool {
	return s.Texture != nil && s.Texture.Live() && s.Texture.Desc().Dimension == libgpu.DimensionCube
}

func (s *CubemapSky) Hash() uint64 {
	h := newHasher()
	h.u64(kindCubemap)
	if s.Texture != nil {
		h.id(s.Texture.ID())
	}
	return h.sum()
}

func (s *CubemapSky) RenderFace(cmd libgpu.CommandBuffer, params *SkyParameters, block *libgpu.ParamBlock) {
	block.SetTexture(ibl.ParamMainTex, s.Texture)
	cmd.DrawFullscreen(ibl.StageBlitCube, block)
}

// Release frees the texture if it was loaded by LoadCubemapSky.
func (s *CubemapSky) Release() {
	if s.owned && s.Texture != nil {
		s.Texture.Release()
		s.Texture = nil
	}
}
