package libgl

import (
	"fmt"

	"github.com/go-gl/gl/v4.5-core/gl"
)

// framebuffer renders into one level of one texture at a time.
type framebuffer struct {
	glId uint32
	env  *GlEnvironment
	// currently attached, to skip redundant attachment calls
	tex   *texture
	face  int
	level int
}

// FIXME: https://forums.developer.nvidia.com/t/framebuffer-incomplete-when-attaching-color-buffers-of-different-sizes-with-dsa/211550
func newFramebuffer(env *GlEnvironment, label string) *framebuffer {
	var id uint32
	gl.CreateFramebuffers(1, &id)
	setObjectLabel(gl.FRAMEBUFFER, id, label)
	return &framebuffer{glId: id, env: env}
}

func (fb *framebuffer) attach(tex *texture, face, level int) {
	if fb.tex == tex && fb.face == face && fb.level == level {
		return
	}
	fb.tex, fb.face, fb.level = tex, face, level

	if tex.target != gl.TEXTURE_CUBE_MAP {
		gl.NamedFramebufferTexture(fb.glId, gl.COLOR_ATTACHMENT0, tex.glId, int32(level))
	} else if fb.env.UseIntelCubemapDsaFix {
		gl.BindFramebuffer(gl.FRAMEBUFFER, fb.glId)
		gl.BindTexture(gl.TEXTURE_CUBE_MAP, tex.glId)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, uint32(gl.TEXTURE_CUBE_MAP_POSITIVE_X+face), tex.glId, int32(level))
	} else {
		gl.NamedFramebufferTextureLayer(fb.glId, gl.COLOR_ATTACHMENT0, tex.glId, int32(level), int32(face))
	}
	gl.NamedFramebufferDrawBuffer(fb.glId, gl.COLOR_ATTACHMENT0)
}

// detach drops the attachment so a released texture is never referenced.
func (fb *framebuffer) detach(tex *texture) {
	if fb.tex != tex {
		return
	}
	gl.NamedFramebufferTexture(fb.glId, gl.COLOR_ATTACHMENT0, 0, 0)
	fb.tex = nil
}

func (fb *framebuffer) check(target uint32) error {
	status := gl.CheckNamedFramebufferStatus(fb.glId, target)
	switch status {
	case gl.FRAMEBUFFER_COMPLETE:
		return nil
	case gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT:
		return fmt.Errorf("an attachment is framebuffer incomplete (GL_FRAMEBUFFER_INCOMPLETE_ATTACHMENT)")
	case gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT:
		return fmt.Errorf("the framebuffer has no attachments (GL_FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT)")
	case gl.FRAMEBUFFER_INCOMPLETE_DRAW_BUFFER:
		return fmt.Errorf("the object type of a draw attachment is none (GL_FRAMEBUFFER_INCOMPLETE_DRAW_BUFFER)")
	case gl.FRAMEBUFFER_UNSUPPORTED:
		return fmt.Errorf("the combination of internal formats of the attachments is not supported (GL_FRAMEBUFFER_UNSUPPORTED)")
	case gl.FRAMEBUFFER_INCOMPLETE_LAYER_TARGETS:
		return fmt.Errorf("FRAMEBUFFER_INCOMPLETE_LAYER_TARGETS")
	}
	return fmt.Errorf("unknown framebuffer status: %X", status)
}

func (fb *framebuffer) delete() {
	gl.DeleteFramebuffers(1, &fb.glId)
	fb.glId = 0
	fb.tex = nil
}
