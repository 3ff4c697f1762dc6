package libgpu

import (
	"envlight/libutil"

	"github.com/go-gl/mathgl/mgl32"
)

// CommandBuffer records GPU work. Execution may happen any time before the owning
// device's Submit returns; recorded commands must not be assumed complete earlier.
type CommandBuffer interface {
	// SetRenderTarget binds one mip level of a 2D texture or of a single cube face.
	SetRenderTarget(target Texture, mip int, face CubeFace)
	ClearRenderTarget(color mgl32.Vec4)
	// DrawFullscreen runs a fragment stage over every pixel of the bound target.
	DrawFullscreen(stage StageID, params *ParamBlock)
	DispatchCompute(stage StageID, params *ParamBlock, groupsX, groupsY, groupsZ int)
	CopyTexture(src Texture, srcFace CubeFace, srcMip int, dst Texture, dstFace CubeFace, dstMip int)
	GenerateMips(tex Texture)
	BeginSample(name string)
	EndSample(name string)
}

// Device owns textures and executes command buffers.
//
// Pixel data passed to Upload and returned by ReadPixels is tightly packed float32 with
// Format.Channels() components. Row 0 is the first row in texture memory; for cube faces
// that is the row sampled at v = 0.
type Device interface {
	libutil.Releaser
	CreateTexture(desc TextureDesc) (Texture, error)
	Upload(tex Texture, face CubeFace, mip int, pix []float32) error
	ReadPixels(tex Texture, face CubeFace, mip int) ([]float32, error)
	NewCommandBuffer() CommandBuffer
	Submit(cmd CommandBuffer) error
	SupportsCompute() bool
}
