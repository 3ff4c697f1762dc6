package libgl

import (
	"envlight/libgpu"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/google/uuid"
)

type texture struct {
	id         uuid.UUID
	glId       uint32
	target     uint32
	desc       libgpu.TextureDesc
	dev        *Device
	generation int
}

func glFormat(f libgpu.Format) (internalFormat, format uint32) {
	switch f {
	case libgpu.FormatRGBA16F:
		return gl.RGBA16F, gl.RGBA
	case libgpu.FormatRGBA32F:
		return gl.RGBA32F, gl.RGBA
	case libgpu.FormatR32F:
		return gl.R32F, gl.RED
	}
	panic("unsupported format " + f.String())
}

func (tex *texture) ID() uuid.UUID {
	return tex.id
}

func (tex *texture) Desc() libgpu.TextureDesc {
	return tex.desc
}

func (tex *texture) Live() bool {
	return tex != nil && tex.glId != 0 && tex.generation == tex.dev.generation
}

func (tex *texture) Release() {
	if tex.glId == 0 {
		return
	}
	tex.dev.fbo.detach(tex)
	// names of a lost context are gone already
	if tex.generation == tex.dev.generation {
		gl.DeleteTextures(1, &tex.glId)
	}
	tex.glId = 0
	delete(tex.dev.textures, tex.id)
}

func (tex *texture) size(mip int) (w, h int) {
	return libgpu.MipSize(tex.desc.Width, mip), libgpu.MipSize(tex.desc.Height, mip)
}

// region returns the z offset and depth addressing one face for the sub image calls.
func (tex *texture) region(face libgpu.CubeFace) (zoffset, depth int32) {
	if tex.target == gl.TEXTURE_CUBE_MAP {
		return int32(face), 1
	}
	return 0, 1
}
