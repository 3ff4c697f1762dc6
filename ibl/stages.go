package ibl

import "envlight/libgpu"

// Stage ids of the image based lighting passes.
const (
	StageBlitCube       = libgpu.StageID("ibl.blit_cube")
	StageGGX            = libgpu.StageID("ibl.ggx")
	StageGGXMIS         = libgpu.StageID("ibl.ggx_mis")
	StageConditionalCDF = libgpu.StageID("ibl.conditional_cdf")
	StageMarginalCDF    = libgpu.StageID("ibl.marginal_cdf")
)

// Parameter names shared by the stages.
const (
	ParamMainTex              = "_MainTex"
	ParamFaceIndex            = "_faceIndex"
	// maps (x+0.5, y+0.5, 1, 0) of the bound level to a world space direction
	ParamPixelCoordToViewDir  = "_PixelCoordToViewDirWS"
	ParamLevel                = "_Level"
	ParamMaxLevel             = "_MaxLevel"
	ParamInvOmegaP            = "_InvOmegaP"
	ParamMarginalRowDensities = "_MarginalRowDensities"
	ParamConditionalDensities = "_ConditionalDensities"
)
