package sky

import "envlight/libgpu"

// GlobalSkyTexture is the name the filtered cube map is bound under for shading.
const GlobalSkyTexture = "_SkyTexture"

type AmbientMode int

const (
	AmbientSkybox = AmbientMode(iota)
	AmbientTrilight
	AmbientFlat
)

// EnvironmentLighting is the render-wide lighting state the render loop applies when the
// environment changed.
type EnvironmentLighting struct {
	Skybox              libgpu.Texture
	AmbientMode         AmbientMode
	AmbientIntensity    float32
	ReflectionIntensity float32
	// nil uses the skybox
	CustomReflection libgpu.Texture
}

// Effects collects the global state changes of one UpdateEnvironment call.
// The manager never applies them itself.
type Effects struct {
	GlobalTextures map[string]libgpu.Texture
	// set on frames where the GI refresh fired
	Environment *EnvironmentLighting
	GIRefreshed bool
	Recomputed  bool
	Trigger     Trigger
}

func newEffects() *Effects {
	return &Effects{GlobalTextures: make(map[string]libgpu.Texture, 1)}
}

// GlobalIllumination is the indirect lighting system that has to relight when the environment changed.
// NotifyEnvironmentChanged is only called once the commands producing the cube map were submitted.
type GlobalIllumination interface {
	NotifyEnvironmentChanged(filtered libgpu.Texture)
}
