package libgl

import (
	"context"
	"envlight/libgpu"
	"envlight/libutil"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/google/uuid"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

//go:embed fullscreen.vert
var fullscreenVertSrc string

// Device implements libgpu.Device on the current OpenGL context.
// Stages are GLSL programs registered with RegisterStage.
type Device struct {
	env        *GlEnvironment
	stages     map[libgpu.StageID]*pipeline
	textures   map[uuid.UUID]*texture
	vertex     *program
	fbo        *framebuffer
	vao        uint32
	sampler    uint32
	generation int
	logger     *slog.Logger
}

// NewDevice creates the shared objects of a device. A context must be current.
func NewDevice() (dev *Device, err error) {
	cleanup := libutil.Cleanup{}
	defer func() {
		if err != nil {
			cleanup.Release()
		}
	}()

	dev = &Device{
		env:      GetGlEnv(),
		stages:   map[libgpu.StageID]*pipeline{},
		textures: map[uuid.UUID]*texture{},
		logger:   slog.New(discardHandler{}),
	}

	dev.vertex, err = compileProgram("fullscreen", fullscreenVertSrc, gl.VERTEX_SHADER, dev.logger)
	if err != nil {
		return nil, err
	}
	cleanup.Add(releaseFunc(dev.vertex.delete))

	dev.fbo = newFramebuffer(dev.env, "capture")
	cleanup.Add(releaseFunc(dev.fbo.delete))

	gl.CreateVertexArrays(1, &dev.vao)
	cleanup.Add(releaseFunc(func() { gl.DeleteVertexArrays(1, &dev.vao) }))

	gl.CreateSamplers(1, &dev.sampler)
	gl.SamplerParameteri(dev.sampler, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.SamplerParameteri(dev.sampler, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.SamplerParameteri(dev.sampler, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.SamplerParameteri(dev.sampler, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.SamplerParameteri(dev.sampler, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.Enable(gl.TEXTURE_CUBE_MAP_SEAMLESS)

	return dev, nil
}

type releaseFunc func()

func (f releaseFunc) Release() { f() }

func (dev *Device) Env() *GlEnvironment {
	return dev.env
}

func (dev *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(discardHandler{})
	}
	dev.logger = l
	dev.vertex.logger = l
	for _, p := range dev.stages {
		for _, prog := range p.programs {
			prog.logger = l
		}
	}
}

// RegisterStage compiles the stage source. Fragment stages are paired with the
// fullscreen triangle vertex program.
func (dev *Device) RegisterStage(id libgpu.StageID, src libgpu.StageSource) error {
	kind := uint32(gl.FRAGMENT_SHADER)
	if src.Compute {
		kind = gl.COMPUTE_SHADER
	}
	prog, err := compileProgram(string(id), InjectDefines(src.Code, src.Defines), kind, dev.logger)
	if err != nil {
		return err
	}

	if old, ok := dev.stages[id]; ok {
		old.delete(dev.vertex)
	}
	if src.Compute {
		dev.stages[id] = newPipeline(string(id), true, prog)
	} else {
		dev.stages[id] = newPipeline(string(id), false, dev.vertex, prog)
	}
	return nil
}

// RegisterStages compiles all sources in id order and stops at the first failure.
func (dev *Device) RegisterStages(sources map[libgpu.StageID]libgpu.StageSource) error {
	ids := maps.Keys(sources)
	slices.Sort(ids)
	for _, id := range ids {
		if err := dev.RegisterStage(id, sources[id]); err != nil {
			return fmt.Errorf("stage %q: %w", id, err)
		}
	}
	return nil
}

func (dev *Device) SupportsCompute() bool {
	return dev.env.Features.MaxComputeWorkGroupCount[1] > 0
}

// checkReset reports a lost context. Every texture of the old generation stops being live.
func (dev *Device) checkReset() error {
	if status := gl.GetGraphicsResetStatus(); status != gl.NO_ERROR {
		dev.generation++
		clear(dev.textures)
		dev.logger.Warn("graphics reset detected", "status", status, "generation", dev.generation)
		return libgpu.ErrDeviceLost
	}
	return nil
}

func (dev *Device) CreateTexture(desc libgpu.TextureDesc) (libgpu.Texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if err := dev.checkReset(); err != nil {
		return nil, err
	}

	target := uint32(gl.TEXTURE_2D)
	if desc.Dimension == libgpu.DimensionCube {
		target = gl.TEXTURE_CUBE_MAP
	}
	internalFormat, _ := glFormat(desc.Format)

	tex := &texture{
		id:         uuid.New(),
		target:     target,
		desc:       desc,
		dev:        dev,
		generation: dev.generation,
	}
	gl.CreateTextures(target, 1, &tex.glId)
	gl.TextureStorage2D(tex.glId, int32(desc.Levels()), internalFormat, int32(desc.Width), int32(desc.Height))
	setObjectLabel(gl.TEXTURE, tex.glId, fmt.Sprintf("%s (%s)", desc.Label, tex.id))

	dev.textures[tex.id] = tex
	dev.logger.Debug("created texture", "label", desc.Label, "id", tex.id, "size", desc.Width, "levels", desc.Levels(), "format", desc.Format)
	return tex, nil
}

func (dev *Device) lookup(t libgpu.Texture) (*texture, error) {
	tex, ok := t.(*texture)
	if !ok || tex == nil {
		return nil, fmt.Errorf("texture %T does not belong to the gl device", t)
	}
	if !tex.Live() {
		return nil, fmt.Errorf("%q: %w", tex.desc.Label, libgpu.ErrTextureReleased)
	}
	return tex, nil
}

func (dev *Device) levelSize(tex *texture, face libgpu.CubeFace, mip int) (w, h int, err error) {
	if mip < 0 || mip >= tex.desc.Levels() {
		return 0, 0, fmt.Errorf("%q: mip %d out of range [0, %d)", tex.desc.Label, mip, tex.desc.Levels())
	}
	if tex.desc.Dimension == libgpu.DimensionCube && (face < 0 || int(face) >= tex.desc.Faces()) {
		return 0, 0, fmt.Errorf("%q: face %v out of range", tex.desc.Label, face)
	}
	w, h = tex.size(mip)
	return w, h, nil
}

func (dev *Device) Upload(t libgpu.Texture, face libgpu.CubeFace, mip int, pix []float32) error {
	tex, err := dev.lookup(t)
	if err != nil {
		return err
	}
	w, h, err := dev.levelSize(tex, face, mip)
	if err != nil {
		return err
	}
	if len(pix) != w*h*tex.desc.Format.Channels() {
		return fmt.Errorf("%q: upload of %d values into level of %d", tex.desc.Label, len(pix), w*h*tex.desc.Format.Channels())
	}

	_, format := glFormat(tex.desc.Format)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	if tex.target == gl.TEXTURE_CUBE_MAP {
		gl.TextureSubImage3D(tex.glId, int32(mip), 0, 0, int32(face), int32(w), int32(h), 1, format, gl.FLOAT, gl.Ptr(pix))
	} else {
		gl.TextureSubImage2D(tex.glId, int32(mip), 0, 0, int32(w), int32(h), format, gl.FLOAT, gl.Ptr(pix))
	}
	return dev.checkReset()
}

func (dev *Device) ReadPixels(t libgpu.Texture, face libgpu.CubeFace, mip int) ([]float32, error) {
	tex, err := dev.lookup(t)
	if err != nil {
		return nil, err
	}
	w, h, err := dev.levelSize(tex, face, mip)
	if err != nil {
		return nil, err
	}

	_, format := glFormat(tex.desc.Format)
	pix := make([]float32, w*h*tex.desc.Format.Channels())
	zoffset, depth := tex.region(face)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 4)
	gl.GetTextureSubImage(tex.glId, int32(mip), 0, 0, zoffset, int32(w), int32(h), depth, format, gl.FLOAT, int32(len(pix)*4), gl.Ptr(pix))
	if err := dev.checkReset(); err != nil {
		return nil, err
	}
	return pix, nil
}

func (dev *Device) NewCommandBuffer() libgpu.CommandBuffer {
	return &glCommandBuffer{}
}

func (dev *Device) Submit(cmd libgpu.CommandBuffer) error {
	buf, ok := cmd.(*glCommandBuffer)
	if !ok {
		return fmt.Errorf("command buffer %T does not belong to the gl device", cmd)
	}
	if err := dev.checkReset(); err != nil {
		buf.commands = buf.commands[:0]
		return err
	}
	start := time.Now()
	err := dev.execute(buf)
	dev.logger.Debug("submitted command buffer", "duration", time.Since(start))
	return errors.Join(err, dev.checkReset())
}

// Release deletes every object of the device. The context stays current.
func (dev *Device) Release() {
	for _, tex := range maps.Values(dev.textures) {
		tex.Release()
	}
	for id, p := range dev.stages {
		p.delete(dev.vertex)
		delete(dev.stages, id)
	}
	if dev.vertex != nil {
		dev.vertex.delete()
		dev.vertex = nil
	}
	if dev.fbo != nil {
		dev.fbo.delete()
		dev.fbo = nil
	}
	gl.DeleteVertexArrays(1, &dev.vao)
	gl.DeleteSamplers(1, &dev.sampler)
}

func (dev *Device) bindParams(p *pipeline, params *libgpu.ParamBlock) error {
	prog := p.stageProgram()
	for name, v := range params.Floats {
		prog.setFloat(name, v)
	}
	for name, v := range params.Vectors {
		prog.setVec4(name, v)
	}
	for name, v := range params.Matrices {
		prog.setMat4(name, v)
	}
	for name, t := range params.Textures {
		unit, ok := prog.samplers[name]
		if !ok {
			continue
		}
		tex, err := dev.lookup(t)
		if err != nil {
			return err
		}
		if p.compute && tex.desc.RandomWrite {
			internalFormat, _ := glFormat(tex.desc.Format)
			gl.BindImageTexture(uint32(unit), tex.glId, 0, tex.target == gl.TEXTURE_CUBE_MAP, 0, gl.READ_WRITE, internalFormat)
		}
		gl.BindTextureUnit(uint32(unit), tex.glId)
		gl.BindSampler(uint32(unit), dev.sampler)
	}
	return nil
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
