package ibl

import (
	"embed"
	"envlight/libgpu"
	"strconv"
)

//go:embed shaders
var shaderFS embed.FS

const glslVersion = "#version 450 core\n"

// glslSource loads a stage body and prefixes it like GLSLWithCommon.
func glslSource(name string) string {
	body, err := shaderFS.ReadFile("shaders/" + name)
	if err != nil {
		panic(err)
	}
	return GLSLWithCommon(string(body))
}

// GLSLWithCommon prefixes a stage body with the version directive and the shared
// functions (cube and lat-long mapping, GGX sampling, luminance).
func GLSLWithCommon(body string) string {
	common, err := shaderFS.ReadFile("shaders/common.glsl")
	if err != nil {
		panic(err)
	}
	return glslVersion + string(common) + "\n" + body
}

// GLSLStages returns the shader sources of the image based lighting stages for devices
// that compile GLSL. Sample counts default like RegisterSoftwareStages.
func GLSLStages(opts SwOptions) map[libgpu.StageID]libgpu.StageSource {
	if opts.Samples <= 0 {
		opts.Samples = 64
	}
	if opts.LightSamples <= 0 {
		opts.LightSamples = opts.Samples
	}
	defines := map[string]string{
		"SAMPLE_COUNT":       strconv.Itoa(opts.Samples),
		"LIGHT_SAMPLE_COUNT": strconv.Itoa(opts.LightSamples),
	}

	return map[libgpu.StageID]libgpu.StageSource{
		StageBlitCube:       {Code: glslSource("blit_cube.frag")},
		StageGGX:            {Code: glslSource("ggx.frag"), Defines: defines},
		StageGGXMIS:         {Code: glslSource("ggx_mis.frag"), Defines: defines},
		StageConditionalCDF: {Compute: true, Code: glslSource("conditional_cdf.comp")},
		StageMarginalCDF:    {Compute: true, Code: glslSource("marginal_cdf.comp")},
	}
}
