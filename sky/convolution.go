package sky

import (
	"envlight/ibl"
	"envlight/libgpu"
	"fmt"

	"github.com/chewxy/math32"
)

// LightDistribution holds the luminance CDF textures used for multiple importance sampling.
type LightDistribution struct {
	Marginal    libgpu.Texture
	Conditional libgpu.Texture
}

// Distribution returns the CDF textures, nil when MIS is not allocated.
func (res *CubemapResources) Distribution() *LightDistribution {
	if !res.MIS() {
		return nil
	}
	return &LightDistribution{Marginal: res.MarginalCDF, Conditional: res.ConditionalCDF}
}

// ConvolutionEngine prefilters a raw environment cube map into the GGX roughness levels
// of the filtered cube map.
type ConvolutionEngine struct {
	scopedLogger
	params *libgpu.ParamPool
}

func NewConvolutionEngine(params *libgpu.ParamPool) *ConvolutionEngine {
	return &ConvolutionEngine{params: params}
}

// InvOmegaP is the inverse of the solid angle covered by one texel of a cube map with the given edge length.
func InvOmegaP(width int) float32 {
	return float32(6*width*width) / (4 * math32.Pi)
}

// Convolve copies mip 0 of raw into filtered and convolves mips 1 to ibl.SpecCubeLodSteps.
// With a light distribution the distribution is rebuilt from raw and the MIS kernel is used.
// Each face level is shaded with the pixel to direction matrix derived from the world to
// view matrix of its face transform. Without transforms the stages fall back to the face index.
//
// When the cube maps have too few levels only mip 0 is copied and ErrInsufficientMips is returned.
func (e *ConvolutionEngine) Convolve(cmd libgpu.CommandBuffer, raw, filtered libgpu.Texture, transforms *FaceTransforms, cdf *LightDistribution) error {
	block, release := e.params.Acquire()
	defer release()

	cmd.BeginSample("Update Env: GGX Convolution")
	defer cmd.EndSample("Update Env: GGX Convolution")

	cmd.BeginSample("Copy Original Mip")
	for _, face := range libgpu.CubeFaces {
		cmd.CopyTexture(raw, face, 0, filtered, face, 0)
	}
	cmd.EndSample("Copy Original Mip")

	width := raw.Desc().Width
	mipCount := min(libgpu.MipCount(width), filtered.Desc().Levels())
	if mipCount < ibl.SpecCubeLodSteps+1 {
		e.logger().Warn("skipping GGX convolution, not enough mip levels", "levels", mipCount, "required", ibl.SpecCubeLodSteps+1)
		return fmt.Errorf("%w: %d levels, need %d", ErrInsufficientMips, mipCount, ibl.SpecCubeLodSteps+1)
	}

	stage := ibl.StageGGX
	if cdf != nil {
		stage = ibl.StageGGXMIS
		cmd.BeginSample("Build Light Distribution")
		block.SetTexture(ibl.ParamMainTex, raw)
		block.SetTexture(ibl.ParamConditionalDensities, cdf.Conditional)
		cmd.DispatchCompute(ibl.StageConditionalCDF, block, 1, ibl.LightSamplingHeight, 1)

		block.Reset()
		block.SetTexture(ibl.ParamConditionalDensities, cdf.Conditional)
		block.SetTexture(ibl.ParamMarginalRowDensities, cdf.Marginal)
		cmd.DispatchCompute(ibl.StageMarginalCDF, block, 1, 1, 1)
		cmd.EndSample("Build Light Distribution")
	}

	invOmegaP := InvOmegaP(width)
	cmd.BeginSample("GGX Convolution")
	for mip := 1; mip <= ibl.SpecCubeLodSteps; mip++ {
		size := float32(libgpu.MipSize(width, mip))
		for _, face := range libgpu.CubeFaces {
			block.Reset()
			block.SetTexture(ibl.ParamMainTex, raw)
			block.SetFloat(ibl.ParamLevel, float32(mip))
			block.SetFloat(ibl.ParamMaxLevel, ibl.SpecCubeLodSteps)
			block.SetFloat(ibl.ParamInvOmegaP, invOmegaP)
			block.SetFloat(ibl.ParamFaceIndex, float32(face))
			if transforms != nil {
				block.SetMatrix(ibl.ParamPixelCoordToViewDir, PixelCoordToViewDirWS(cubeFov, size, size, transforms[face].WorldToView, true))
			}
			if cdf != nil {
				block.SetTexture(ibl.ParamConditionalDensities, cdf.Conditional)
				block.SetTexture(ibl.ParamMarginalRowDensities, cdf.Marginal)
			}

			cmd.SetRenderTarget(filtered, mip, face)
			cmd.DrawFullscreen(stage, block)
		}
	}
	cmd.EndSample("GGX Convolution")
	return nil
}
