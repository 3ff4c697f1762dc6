package sky

import (
	"embed"
	"envlight/ibl"
	"envlight/libgpu"
)

//go:embed shaders
var shaderFS embed.FS

// GLSLStages returns the shader sources of the sky stages and of the image based lighting
// stages for devices that compile GLSL.
func GLSLStages(opts ibl.SwOptions) map[libgpu.StageID]libgpu.StageSource {
	stages := ibl.GLSLStages(opts)
	for id, name := range map[libgpu.StageID]string{
		StageHDRISky:     "hdri.frag",
		StageGradientSky: "gradient.frag",
	} {
		body, err := shaderFS.ReadFile("shaders/" + name)
		if err != nil {
			panic(err)
		}
		stages[id] = libgpu.StageSource{Code: ibl.GLSLWithCommon(string(body))}
	}
	return stages
}
