// Package libgl implements libgpu.Device on OpenGL 4.5 using direct state access.
// Every call must happen on the goroutine that owns the current context.
package libgl

import (
	"strings"

	"github.com/go-gl/gl/v4.5-core/gl"
)

const (
	VendorIntel   = "intel"
	VendorNvidia  = "nvidia"
	VendorAmd     = "ati"
	VendorUnknown = "unknown"
)

type GlEnvironment struct {
	Vendor   string
	Renderer string
	Version  string
	// https://community.intel.com/t5/Graphics/glNamedFramebufferTextureLayer-rejects-cubemaps-of-any-kind/td-p/1167643
	UseIntelCubemapDsaFix bool
	Features              GlFeatures
}

type GlFeatures struct {
	MaxComputeWorkGroupCount [3]int32
	MaxImageUnits            int32
	MaxTextureUnits          int32
}

// GetGlEnv queries the current context.
func GetGlEnv() *GlEnvironment {
	vendor := strings.ToLower(gl.GoStr(gl.GetString(gl.VENDOR)))
	switch {
	case strings.Contains(vendor, "intel"):
		vendor = VendorIntel
	case strings.Contains(vendor, "nvidia"):
		vendor = VendorNvidia
	case strings.Contains(vendor, "ati ") || strings.Contains(vendor, "amd"):
		vendor = VendorAmd
	default:
		vendor = VendorUnknown
	}

	features := GlFeatures{}
	for i := range features.MaxComputeWorkGroupCount {
		gl.GetIntegeri_v(gl.MAX_COMPUTE_WORK_GROUP_COUNT, uint32(i), &features.MaxComputeWorkGroupCount[i])
	}
	gl.GetIntegerv(gl.MAX_IMAGE_UNITS, &features.MaxImageUnits)
	gl.GetIntegerv(gl.MAX_COMBINED_TEXTURE_IMAGE_UNITS, &features.MaxTextureUnits)

	return &GlEnvironment{
		Vendor:                vendor,
		Renderer:              gl.GoStr(gl.GetString(gl.RENDERER)),
		Version:               gl.GoStr(gl.GetString(gl.VERSION)),
		UseIntelCubemapDsaFix: vendor == VendorIntel,
		Features:              features,
	}
}
