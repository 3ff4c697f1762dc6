package sky

import (
	"envlight/ibl"
	"envlight/libgpu"

	"github.com/go-gl/mathgl/mgl32"
)

// Parameter names of the sky stages.
const (
	ParamPixelCoordToViewDir = ibl.ParamPixelCoordToViewDir
	ParamInvViewProj         = "_InvViewProjMatrix"
	ParamCameraPos           = "_CameraPosWS"
	ParamScreenSize          = "_ScreenSize"
)

// SkyParameters is what a source needs to shade one view of the environment,
// either a cube map face or a camera.
type SkyParameters struct {
	PixelCoordToViewDir mgl32.Mat4
	InvViewProj         mgl32.Mat4
	CameraPosition      mgl32.Vec3
	// width, height, 1/width, 1/height
	ScreenSize      mgl32.Vec4
	Face            libgpu.CubeFace
	RenderToCubemap bool
}

// Apply writes the shared inputs into a stage parameter block.
func (p *SkyParameters) Apply(block *libgpu.ParamBlock) {
	block.SetMatrix(ParamPixelCoordToViewDir, p.PixelCoordToViewDir)
	block.SetMatrix(ParamInvViewProj, p.InvViewProj)
	block.SetVector(ParamCameraPos, p.CameraPosition.Vec4(1))
	block.SetVector(ParamScreenSize, p.ScreenSize)
	block.SetFloat(ibl.ParamFaceIndex, float32(p.Face))
}

func screenSize(w, h int) mgl32.Vec4 {
	return mgl32.Vec4{float32(w), float32(h), 1 / float32(w), 1 / float32(h)}
}

// EnvironmentSource produces the radiance of the environment.
// RenderFace records the draw that fills the currently bound render target; the block is
// empty apart from the inputs set by SkyParameters.Apply and is only valid during the call.
type EnvironmentSource interface {
	Valid() bool
	// Hash changes whenever the rendered result would change. Never 0.
	Hash() uint64
	RenderFace(cmd libgpu.CommandBuffer, params *SkyParameters, block *libgpu.ParamBlock)
}
