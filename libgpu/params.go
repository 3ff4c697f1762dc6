package libgpu

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ParamBlock carries the named inputs of a stage invocation.
// Missing entries read as zero values.
type ParamBlock struct {
	Floats   map[string]float32
	Vectors  map[string]mgl32.Vec4
	Matrices map[string]mgl32.Mat4
	Textures map[string]Texture
}

func NewParamBlock() *ParamBlock {
	return &ParamBlock{
		Floats:   make(map[string]float32, 8),
		Vectors:  make(map[string]mgl32.Vec4, 4),
		Matrices: make(map[string]mgl32.Mat4, 4),
		Textures: make(map[string]Texture, 4),
	}
}

func (p *ParamBlock) SetFloat(name string, v float32) {
	p.Floats[name] = v
}

func (p *ParamBlock) SetVector(name string, v mgl32.Vec4) {
	p.Vectors[name] = v
}

func (p *ParamBlock) SetMatrix(name string, m mgl32.Mat4) {
	p.Matrices[name] = m
}

func (p *ParamBlock) SetTexture(name string, t Texture) {
	p.Textures[name] = t
}

func (p *ParamBlock) Float(name string) float32 {
	return p.Floats[name]
}

func (p *ParamBlock) Vector(name string) mgl32.Vec4 {
	return p.Vectors[name]
}

func (p *ParamBlock) Matrix(name string) mgl32.Mat4 {
	return p.Matrices[name]
}

func (p *ParamBlock) Texture(name string) Texture {
	return p.Textures[name]
}

// Reset empties the block while keeping its storage.
func (p *ParamBlock) Reset() {
	clear(p.Floats)
	clear(p.Vectors)
	clear(p.Matrices)
	clear(p.Textures)
}

// Clone returns a deep copy, used by command buffers that execute after recording.
func (p *ParamBlock) Clone() *ParamBlock {
	c := NewParamBlock()
	if p == nil {
		return c
	}
	for k, v := range p.Floats {
		c.Floats[k] = v
	}
	for k, v := range p.Vectors {
		c.Vectors[k] = v
	}
	for k, v := range p.Matrices {
		c.Matrices[k] = v
	}
	for k, v := range p.Textures {
		c.Textures[k] = v
	}
	return c
}

// ParamPool hands out pre-allocated parameter blocks. Blocks are acquired for the
// duration of one pipeline step and handed back through the returned release func.
type ParamPool struct {
	free  []*ParamBlock
	inUse int
}

func NewParamPool(size int) *ParamPool {
	pool := &ParamPool{free: make([]*ParamBlock, 0, size)}
	for i := 0; i < size; i++ {
		pool.free = append(pool.free, NewParamBlock())
	}
	return pool
}

// Acquire returns an empty block. The pool grows when it runs dry.
// Calling release more than once has no effect.
func (pool *ParamPool) Acquire() (block *ParamBlock, release func()) {
	if n := len(pool.free); n > 0 {
		block = pool.free[n-1]
		pool.free = pool.free[:n-1]
	} else {
		block = NewParamBlock()
	}
	pool.inUse++

	released := false
	return block, func() {
		if released {
			return
		}
		released = true
		block.Reset()
		pool.free = append(pool.free, block)
		pool.inUse--
	}
}

// InUse reports the number of blocks currently acquired.
func (pool *ParamPool) InUse() int {
	return pool.inUse
}
