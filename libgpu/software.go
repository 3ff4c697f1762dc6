package libgpu

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

// FragmentFunc shades one pixel of the bound render target.
// x and y are integer pixel indices; the pixel center is at +0.5.
type FragmentFunc func(ctx *FragmentContext, x, y int) mgl32.Vec4

type FragmentContext struct {
	Width, Height int
	Face          CubeFace
	Mip           int
	Params        *ParamBlock
}

// KernelFunc runs one work group of a compute stage.
// Work groups of a dispatch may run concurrently and must write disjoint data.
type KernelFunc func(ctx *KernelContext)

type KernelContext struct {
	Params *ParamBlock
	Group  [3]int
	Groups [3]int
}

// SwDevice is a CPU implementation of Device. Stages are Go functions registered by
// name; command buffers are recorded and executed in order by Submit, with the pixels
// of a draw and the groups of a dispatch spread over a worker pool.
type SwDevice struct {
	mu         sync.Mutex
	fragments  map[StageID]FragmentFunc
	kernels    map[StageID]KernelFunc
	textures   map[uuid.UUID]*SwTexture
	generation int
	workers    int
	pool       worker.DynamicWorkerPool
	taskID     int
	logger     *slog.Logger
}

// NewSwDevice creates a software device. workers <= 1 executes everything on the
// calling goroutine.
func NewSwDevice(workers int) *SwDevice {
	dev := &SwDevice{
		fragments: map[StageID]FragmentFunc{},
		kernels:   map[StageID]KernelFunc{},
		textures:  map[uuid.UUID]*SwTexture{},
		workers:   max(workers, 1),
		logger:    slog.New(discardHandler{}),
	}
	if dev.workers > 1 {
		dev.pool = worker.NewDynamicWorkerPool(dev.workers, 256, 1*time.Second)
	}
	return dev
}

func (dev *SwDevice) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(discardHandler{})
	}
	dev.logger = l
}

func (dev *SwDevice) RegisterFragment(id StageID, fn FragmentFunc) {
	dev.fragments[id] = fn
}

func (dev *SwDevice) RegisterKernel(id StageID, fn KernelFunc) {
	dev.kernels[id] = fn
}

// Stages lists the registered stage ids in sorted order.
func (dev *SwDevice) Stages() []StageID {
	ids := make([]StageID, 0, len(dev.fragments)+len(dev.kernels))
	for id := range dev.fragments {
		ids = append(ids, id)
	}
	for id := range dev.kernels {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (dev *SwDevice) SupportsCompute() bool {
	return true
}

// Lose simulates a device reset: every texture created so far stops being live.
func (dev *SwDevice) Lose() {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.generation++
	clear(dev.textures)
	dev.logger.Debug("software device lost its textures", "generation", dev.generation)
}

// LiveTextures reports the number of textures currently allocated.
func (dev *SwDevice) LiveTextures() int {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return len(dev.textures)
}

func (dev *SwDevice) CreateTexture(desc TextureDesc) (Texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	tex := &SwTexture{
		id:   uuid.New(),
		desc: desc,
		dev:  dev,
	}
	levels := desc.Levels()
	tex.levels = make([][]float32, desc.Faces()*levels)
	for face := 0; face < desc.Faces(); face++ {
		for mip := 0; mip < levels; mip++ {
			w, h := MipSize(desc.Width, mip), MipSize(desc.Height, mip)
			tex.levels[face*levels+mip] = make([]float32, w*h*desc.Format.Channels())
		}
	}

	dev.mu.Lock()
	tex.generation = dev.generation
	dev.textures[tex.id] = tex
	dev.mu.Unlock()

	dev.logger.Debug("created texture", "label", desc.Label, "id", tex.id, "size", desc.Width, "levels", levels, "format", desc.Format)
	return tex, nil
}

func (dev *SwDevice) lookup(t Texture) (*SwTexture, error) {
	tex, ok := t.(*SwTexture)
	if !ok || tex == nil {
		return nil, fmt.Errorf("texture %T does not belong to the software device", t)
	}
	if !tex.Live() {
		return nil, fmt.Errorf("%q: %w", tex.desc.Label, ErrTextureReleased)
	}
	return tex, nil
}

func (dev *SwDevice) Upload(t Texture, face CubeFace, mip int, pix []float32) error {
	tex, err := dev.lookup(t)
	if err != nil {
		return err
	}
	dst, err := tex.level(face, mip)
	if err != nil {
		return err
	}
	if len(pix) != len(dst) {
		return fmt.Errorf("%q: upload of %d values into level of %d", tex.desc.Label, len(pix), len(dst))
	}
	copy(dst, pix)
	return nil
}

func (dev *SwDevice) ReadPixels(t Texture, face CubeFace, mip int) ([]float32, error) {
	tex, err := dev.lookup(t)
	if err != nil {
		return nil, err
	}
	src, err := tex.level(face, mip)
	if err != nil {
		return nil, err
	}
	return slices.Clone(src), nil
}

func (dev *SwDevice) NewCommandBuffer() CommandBuffer {
	return &swCommandBuffer{}
}

func (dev *SwDevice) Submit(cmd CommandBuffer) error {
	buf, ok := cmd.(*swCommandBuffer)
	if !ok {
		return fmt.Errorf("command buffer %T does not belong to the software device", cmd)
	}
	return dev.execute(context.Background(), buf)
}

// Release drops every texture. The device stays usable.
func (dev *SwDevice) Release() {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	for _, tex := range dev.textures {
		tex.released = true
	}
	clear(dev.textures)
}

func (dev *SwDevice) forget(tex *SwTexture) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.textures[tex.id] == tex {
		delete(dev.textures, tex.id)
	}
}

// parallel calls fn for every index in [0, n), spread over the worker pool.
func (dev *SwDevice) parallel(n int, fn func(i int)) {
	if dev.pool == nil || n < 2 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	bands := min(n, dev.workers*4)
	var wg sync.WaitGroup
	for b := 0; b < bands; b++ {
		lo, hi := b*n/bands, (b+1)*n/bands
		wg.Add(1)
		id := dev.taskID
		dev.taskID++
		dev.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				for i := lo; i < hi; i++ {
					fn(i)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// SwTexture is the software device's texture. Kernels registered on the device read
// and write its levels directly.
type SwTexture struct {
	id         uuid.UUID
	desc       TextureDesc
	levels     [][]float32
	dev        *SwDevice
	generation int
	released   bool
}

func (tex *SwTexture) ID() uuid.UUID {
	return tex.id
}

func (tex *SwTexture) Desc() TextureDesc {
	return tex.desc
}

func (tex *SwTexture) Live() bool {
	if tex == nil || tex.released {
		return false
	}
	tex.dev.mu.Lock()
	defer tex.dev.mu.Unlock()
	return tex.generation == tex.dev.generation
}

func (tex *SwTexture) Release() {
	if tex.released {
		return
	}
	tex.released = true
	tex.dev.forget(tex)
}

func (tex *SwTexture) Levels() int {
	return tex.desc.Levels()
}

func (tex *SwTexture) Channels() int {
	return tex.desc.Format.Channels()
}

// Size returns the width and height of a mip level.
func (tex *SwTexture) Size(mip int) (w, h int) {
	return MipSize(tex.desc.Width, mip), MipSize(tex.desc.Height, mip)
}

// Level returns the pixels of one face and mip level, or nil when out of range.
func (tex *SwTexture) Level(face CubeFace, mip int) []float32 {
	pix, err := tex.level(face, mip)
	if err != nil {
		return nil
	}
	return pix
}

func (tex *SwTexture) level(face CubeFace, mip int) ([]float32, error) {
	levels := tex.desc.Levels()
	if tex.desc.Dimension == Dimension2D {
		face = 0
	}
	if int(face) < 0 || int(face) >= tex.desc.Faces() {
		return nil, fmt.Errorf("%q: face %v out of range", tex.desc.Label, face)
	}
	if mip < 0 || mip >= levels {
		return nil, fmt.Errorf("%q: mip %d out of range [0, %d)", tex.desc.Label, mip, levels)
	}
	return tex.levels[int(face)*levels+mip], nil
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
