package sky

import (
	"envlight/libgpu"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
)

var errNoCommandBuffer = errors.New("frame has no command buffer")

// Frame is the per frame input of UpdateEnvironment.
type Frame struct {
	// receives the commands of this frame; the caller submits it
	Cmd libgpu.CommandBuffer
	// seconds since the previous frame
	DeltaTime      float32
	CameraPosition mgl32.Vec3
}

type Option func(m *Manager)

func WithGlobalIllumination(gi GlobalIllumination) Option {
	return func(m *Manager) {
		m.gi = gi
	}
}

// WithLogger makes the manager and its components log to l instead of the package
// logger. The device is given l too if it takes a logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.l = l
		if l != nil {
			propagateLogger(m.dev, l)
		}
	}
}

func WithClipPlanes(near, far float32) Option {
	return func(m *Manager) {
		m.near, m.far = near, far
	}
}

type transformKey struct {
	resolution Resolution
	near, far  float32
}

// Manager keeps the environment cube maps of a renderer up to date.
// UpdateEnvironment is called once per frame from the render loop; nothing here is safe
// for concurrent use.
type Manager struct {
	scopedLogger
	dev        libgpu.Device
	settings   *EnvironmentConfig
	pool       *ResourcePool
	params     *libgpu.ParamPool
	renderer   *EnvironmentRenderer
	convolver  *ConvolutionEngine
	scheduler  *UpdateScheduler
	gi         GlobalIllumination
	transforms FaceTransforms
	built      transformKey
	near, far  float32
}

func NewManager(dev libgpu.Device, opts ...Option) *Manager {
	params := libgpu.NewParamPool(2)
	m := &Manager{
		dev:       dev,
		pool:      NewResourcePool(dev),
		params:    params,
		renderer:  NewEnvironmentRenderer(params),
		convolver: NewConvolutionEngine(params),
		scheduler: NewUpdateScheduler(),
		near:      0.1,
		far:       1000,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.pool.scopedLogger = m.scopedLogger
	m.convolver.scopedLogger = m.scopedLogger
	return m
}

// SetSettings swaps the environment configuration. Setting the current object again does
// nothing; an invalid configuration is rejected and the previous one kept. A nil config
// leaves the environment without a source.
func (m *Manager) SetSettings(cfg *EnvironmentConfig) error {
	if cfg == m.settings {
		return nil
	}
	if cfg != nil {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid environment settings: %w", err)
		}
	}
	m.settings = cfg
	m.scheduler.Invalidate()
	if cfg != nil {
		m.logger().Info("environment settings changed", "resolution", cfg.Resolution, "mode", cfg.UpdateMode, "mis", cfg.UseMIS)
	} else {
		m.logger().Info("environment settings cleared")
	}
	return nil
}

func (m *Manager) Settings() *EnvironmentConfig {
	return m.settings
}

// Resize updates the clip planes used for the face transforms and makes sure the cube maps
// match the settings. The render loop calls it every frame.
func (m *Manager) Resize(near, far float32) error {
	if near != m.near || far != m.far {
		m.logger().Info("environment clip planes changed", "near", near, "far", far)
		m.near, m.far = near, far
	}
	return m.ensure()
}

func (m *Manager) ensure() error {
	res, recreated, err := m.pool.Ensure(m.settings)
	if err != nil {
		return err
	}
	if recreated {
		m.scheduler.ResourcesRecreated()
	}

	key := transformKey{resolution: res.Resolution, near: m.near, far: m.far}
	if key != m.built {
		m.transforms = BuildFaceTransforms(int(res.Resolution), m.near, m.far)
		m.built = key
		m.logger().Debug("rebuilt face transforms", "resolution", key.resolution, "near", key.near, "far", key.far)
	}
	return nil
}

// IsSkyValid reports whether the settings describe something that can be rendered.
func (m *Manager) IsSkyValid() bool {
	cfg := m.settings
	if cfg == nil {
		return false
	}
	if cfg.Override != nil && cfg.Override.Live() {
		return true
	}
	return cfg.Source != nil && cfg.Source.Valid()
}

// UpdateEnvironment records this frame's environment work into frame.Cmd.
//
// The cube maps are recreated first if they were lost, which drops a pending GI refresh.
// Otherwise a GI refresh scheduled by the previous frame fires, since the commands of that
// frame have been submitted by now. Then the environment is recomputed if the scheduler asks
// for it, or cleared to black once when it became invalid.
func (m *Manager) UpdateEnvironment(frame Frame) (*Effects, error) {
	if frame.Cmd == nil {
		return nil, errNoCommandBuffer
	}
	fx := newEffects()

	if err := m.ensure(); err != nil {
		return fx, err
	}
	res := m.pool.Resources()

	if m.scheduler.TakeGIRefresh() {
		fx.Environment = &EnvironmentLighting{
			Skybox:              res.Raw,
			AmbientMode:         AmbientSkybox,
			AmbientIntensity:    1,
			ReflectionIntensity: 1,
		}
		if m.gi != nil {
			m.gi.NotifyEnvironmentChanged(res.Filtered)
		}
		fx.GIRefreshed = true
	}

	if m.IsSkyValid() {
		cfg := m.settings
		hash := cfg.Hash()
		trigger := m.scheduler.Evaluate(cfg.UpdateMode, cfg.UpdatePeriod, hash, frame.DeltaTime)
		if trigger != 0 {
			m.logger().Debug("updating environment", "trigger", trigger, "hash", hash)
			if err := m.renderEnvironment(frame, res); err != nil {
				m.scheduler.Skipped()
				return fx, err
			}
			m.convolve(frame.Cmd, res)
			m.scheduler.Applied(hash)
			fx.Recomputed = true
			fx.Trigger = trigger
		}
	} else if m.scheduler.NeedsClear() {
		m.logger().Debug("environment became invalid, clearing")
		m.renderer.ClearCubemap(frame.Cmd, res.Raw, mgl32.Vec4{0, 0, 0, 1})
		m.convolve(frame.Cmd, res)
		m.scheduler.Cleared()
		fx.Recomputed = true
	}

	m.SetGlobalSkyTexture(fx)
	return fx, nil
}

func (m *Manager) renderEnvironment(frame Frame, res *CubemapResources) error {
	cfg := m.settings
	if cfg.Override != nil && cfg.Override.Live() {
		return m.renderer.BlitCubemap(frame.Cmd, cfg.Override, &m.transforms, res.Raw)
	}
	return m.renderer.RenderToCubemap(frame.Cmd, cfg.Source, &m.transforms, frame.CameraPosition, res.Raw)
}

func (m *Manager) convolve(cmd libgpu.CommandBuffer, res *CubemapResources) {
	// the engine already warned about a shortfall, the filtered map stays stale
	if err := m.convolver.Convolve(cmd, res.Raw, res.Filtered, &m.transforms, res.Distribution()); err != nil {
		m.logger().Debug("environment convolution skipped", "error", err)
	}
}

// RequestEnvironmentUpdate makes the next UpdateEnvironment recompute the environment.
// This is the only trigger in UpdateOnDemand mode.
func (m *Manager) RequestEnvironmentUpdate() {
	m.scheduler.Request()
}

// SkyReflection is the GGX filtered environment, nil before the first update.
func (m *Manager) SkyReflection() libgpu.Texture {
	if res := m.pool.Resources(); res != nil {
		return res.Filtered
	}
	return nil
}

// RawCubemap is the unfiltered environment, nil before the first update.
func (m *Manager) RawCubemap() libgpu.Texture {
	if res := m.pool.Resources(); res != nil {
		return res.Raw
	}
	return nil
}

// SetGlobalSkyTexture binds the filtered environment in fx.
func (m *Manager) SetGlobalSkyTexture(fx *Effects) {
	if tex := m.SkyReflection(); tex != nil {
		fx.GlobalTextures[GlobalSkyTexture] = tex
	}
}

func (m *Manager) Transforms() FaceTransforms {
	return m.transforms
}

func (m *Manager) UpdateState() UpdateState {
	return m.scheduler.State()
}

// RenderSky draws the environment source for cam into mip 0 of a 2D target.
// Nothing is recorded when there is no valid source.
func (m *Manager) RenderSky(cmd libgpu.CommandBuffer, cam *Camera, target libgpu.Texture) error {
	if m.settings == nil || m.settings.Source == nil || !m.settings.Source.Valid() {
		return nil
	}
	desc := target.Desc()
	if desc.Dimension != libgpu.Dimension2D {
		return fmt.Errorf("sky target %q must be a 2D texture", desc.Label)
	}

	block, release := m.params.Acquire()
	defer release()

	params := cam.skyParameters(desc.Width, desc.Height)
	params.Apply(block)
	cmd.BeginSample("Render Sky")
	cmd.SetRenderTarget(target, 0, libgpu.FacePositiveX)
	m.settings.Source.RenderFace(cmd, &params, block)
	cmd.EndSample("Render Sky")
	return nil
}

// Cleanup releases the cube maps. The manager recreates them on the next update.
func (m *Manager) Cleanup() {
	m.pool.Release()
	m.built = transformKey{}
}
