package sky

import (
	"envlight/ibl"
	"envlight/libgpu"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// EnvironmentRenderer fills the six faces of a cube map, either by shading an
// EnvironmentSource or by copying a pre-baked cube map, and then builds its mip chain.
type EnvironmentRenderer struct {
	params *libgpu.ParamPool
}

func NewEnvironmentRenderer(params *libgpu.ParamPool) *EnvironmentRenderer {
	return &EnvironmentRenderer{params: params}
}

func checkTarget(target libgpu.Texture) error {
	desc := target.Desc()
	if desc.AutoGenerateMips {
		return fmt.Errorf("%q: %w", desc.Label, ErrAutoMipTarget)
	}
	if desc.Dimension != libgpu.DimensionCube {
		return fmt.Errorf("%q is not a cube map", desc.Label)
	}
	return nil
}

// RenderToCubemap shades every face of target with source as seen from cameraPos.
func (r *EnvironmentRenderer) RenderToCubemap(cmd libgpu.CommandBuffer, source EnvironmentSource, transforms *FaceTransforms, cameraPos mgl32.Vec3, target libgpu.Texture) error {
	if err := checkTarget(target); err != nil {
		return err
	}
	block, release := r.params.Acquire()
	defer release()

	size := target.Desc().Width
	cmd.BeginSample("Update Env: Render Sky")
	for _, face := range libgpu.CubeFaces {
		params := SkyParameters{
			PixelCoordToViewDir: transforms[face].PixelCoordToViewDir,
			InvViewProj:         transforms[face].InvViewProj,
			CameraPosition:      cameraPos,
			ScreenSize:          screenSize(size, size),
			Face:                face,
			RenderToCubemap:     true,
		}
		block.Reset()
		params.Apply(block)

		cmd.SetRenderTarget(target, 0, face)
		source.RenderFace(cmd, &params, block)
	}
	cmd.EndSample("Update Env: Render Sky")

	cmd.GenerateMips(target)
	return nil
}

// BlitCubemap copies mip 0 of src into every face of target, resampling when the sizes differ.
func (r *EnvironmentRenderer) BlitCubemap(cmd libgpu.CommandBuffer, src libgpu.Texture, transforms *FaceTransforms, target libgpu.Texture) error {
	if err := checkTarget(target); err != nil {
		return err
	}
	block, release := r.params.Acquire()
	defer release()

	cmd.BeginSample("Update Env: Blit Cubemap")
	for _, face := range libgpu.CubeFaces {
		block.Reset()
		block.SetTexture(ibl.ParamMainTex, src)
		block.SetFloat(ibl.ParamFaceIndex, float32(face))
		block.SetMatrix(ParamPixelCoordToViewDir, transforms[face].PixelCoordToViewDir)

		cmd.SetRenderTarget(target, 0, face)
		cmd.DrawFullscreen(ibl.StageBlitCube, block)
	}
	cmd.EndSample("Update Env: Blit Cubemap")

	cmd.GenerateMips(target)
	return nil
}

// ClearCubemap sets every level of every face of target to color.
func (r *EnvironmentRenderer) ClearCubemap(cmd libgpu.CommandBuffer, target libgpu.Texture, color mgl32.Vec4) {
	for mip := 0; mip < target.Desc().Levels(); mip++ {
		for _, face := range libgpu.CubeFaces {
			cmd.SetRenderTarget(target, mip, face)
			cmd.ClearRenderTarget(color)
		}
	}
}
