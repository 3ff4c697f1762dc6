package libgl

import (
	"envlight/libgpu"
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

type glCommandKind int

const (
	glSetTarget = glCommandKind(iota)
	glClear
	glDraw
	glDispatch
	glCopy
	glGenerateMips
	glBeginSample
	glEndSample
)

type glCommand struct {
	kind    glCommandKind
	stage   libgpu.StageID
	params  *libgpu.ParamBlock
	tex     libgpu.Texture
	face    libgpu.CubeFace
	mip     int
	dst     libgpu.Texture
	dstFace libgpu.CubeFace
	dstMip  int
	groups  [3]int
	color   mgl32.Vec4
	name    string
}

// glCommandBuffer defers all GL calls to Submit, so recording works on any goroutine.
type glCommandBuffer struct {
	commands []glCommand
}

func (cmd *glCommandBuffer) SetRenderTarget(target libgpu.Texture, mip int, face libgpu.CubeFace) {
	cmd.commands = append(cmd.commands, glCommand{kind: glSetTarget, tex: target, mip: mip, face: face})
}

func (cmd *glCommandBuffer) ClearRenderTarget(color mgl32.Vec4) {
	cmd.commands = append(cmd.commands, glCommand{kind: glClear, color: color})
}

func (cmd *glCommandBuffer) DrawFullscreen(stage libgpu.StageID, params *libgpu.ParamBlock) {
	cmd.commands = append(cmd.commands, glCommand{kind: glDraw, stage: stage, params: params.Clone()})
}

func (cmd *glCommandBuffer) DispatchCompute(stage libgpu.StageID, params *libgpu.ParamBlock, groupsX, groupsY, groupsZ int) {
	cmd.commands = append(cmd.commands, glCommand{
		kind:   glDispatch,
		stage:  stage,
		params: params.Clone(),
		groups: [3]int{groupsX, groupsY, groupsZ},
	})
}

func (cmd *glCommandBuffer) CopyTexture(src libgpu.Texture, srcFace libgpu.CubeFace, srcMip int, dst libgpu.Texture, dstFace libgpu.CubeFace, dstMip int) {
	cmd.commands = append(cmd.commands, glCommand{
		kind:    glCopy,
		tex:     src,
		face:    srcFace,
		mip:     srcMip,
		dst:     dst,
		dstFace: dstFace,
		dstMip:  dstMip,
	})
}

func (cmd *glCommandBuffer) GenerateMips(tex libgpu.Texture) {
	cmd.commands = append(cmd.commands, glCommand{kind: glGenerateMips, tex: tex})
}

func (cmd *glCommandBuffer) BeginSample(name string) {
	cmd.commands = append(cmd.commands, glCommand{kind: glBeginSample, name: name})
}

func (cmd *glCommandBuffer) EndSample(name string) {
	cmd.commands = append(cmd.commands, glCommand{kind: glEndSample, name: name})
}

type glTarget struct {
	tex  *texture
	face libgpu.CubeFace
	mip  int
}

func (dev *Device) execute(buf *glCommandBuffer) error {
	var errs []error
	var target *glTarget
	depth := 0

	gl.BindVertexArray(dev.vao)
	gl.UseProgram(0)

	for i := range buf.commands {
		c := &buf.commands[i]
		var err error
		switch c.kind {
		case glSetTarget:
			target, err = dev.bindTarget(c)
		case glClear:
			if target == nil {
				err = libgpu.ErrNoRenderTarget
				break
			}
			gl.ClearNamedFramebufferfv(dev.fbo.glId, gl.COLOR, 0, &c.color[0])
		case glDraw:
			err = dev.draw(target, c.stage, c.params)
		case glDispatch:
			err = dev.dispatch(c.stage, c.params, c.groups)
		case glCopy:
			err = dev.copy(c)
		case glGenerateMips:
			var tex *texture
			if tex, err = dev.lookup(c.tex); err == nil {
				gl.GenerateTextureMipmap(tex.glId)
			}
		case glBeginSample:
			pushDebugGroup(c.name)
			depth++
		case glEndSample:
			if depth > 0 {
				popDebugGroup()
				depth--
			}
		}

		if err != nil {
			errs = append(errs, fmt.Errorf("command %d: %w", i, err))
		}
	}

	for ; depth > 0; depth-- {
		popDebugGroup()
	}
	gl.BindProgramPipeline(0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	buf.commands = buf.commands[:0]
	return errors.Join(errs...)
}

func (dev *Device) bindTarget(c *glCommand) (*glTarget, error) {
	tex, err := dev.lookup(c.tex)
	if err != nil {
		return nil, err
	}
	w, h, err := dev.levelSize(tex, c.face, c.mip)
	if err != nil {
		return nil, err
	}
	dev.fbo.attach(tex, int(c.face), c.mip)
	if err := dev.fbo.check(gl.DRAW_FRAMEBUFFER); err != nil {
		return nil, fmt.Errorf("%q: %w", tex.desc.Label, err)
	}
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, dev.fbo.glId)
	gl.Viewport(0, 0, int32(w), int32(h))
	return &glTarget{tex: tex, face: c.face, mip: c.mip}, nil
}

func (dev *Device) draw(target *glTarget, stage libgpu.StageID, params *libgpu.ParamBlock) error {
	if target == nil {
		return libgpu.ErrNoRenderTarget
	}
	p, ok := dev.stages[stage]
	if !ok || p.compute {
		return fmt.Errorf("fragment stage %q: %w", stage, libgpu.ErrUnknownStage)
	}
	for _, t := range params.Textures {
		if t == libgpu.Texture(target.tex) {
			return fmt.Errorf("stage %q samples its own render target %q", stage, target.tex.desc.Label)
		}
	}
	if err := dev.bindParams(p, params); err != nil {
		return err
	}
	gl.BindProgramPipeline(p.glId)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	return nil
}

func (dev *Device) dispatch(stage libgpu.StageID, params *libgpu.ParamBlock, groups [3]int) error {
	p, ok := dev.stages[stage]
	if !ok || !p.compute {
		return fmt.Errorf("compute stage %q: %w", stage, libgpu.ErrUnknownStage)
	}
	if err := dev.bindParams(p, params); err != nil {
		return err
	}
	gl.BindProgramPipeline(p.glId)
	gl.DispatchCompute(uint32(groups[0]), uint32(groups[1]), uint32(groups[2]))
	gl.MemoryBarrier(gl.SHADER_IMAGE_ACCESS_BARRIER_BIT | gl.TEXTURE_FETCH_BARRIER_BIT | gl.TEXTURE_UPDATE_BARRIER_BIT)
	return nil
}

func (dev *Device) copy(c *glCommand) error {
	src, err := dev.lookup(c.tex)
	if err != nil {
		return err
	}
	dst, err := dev.lookup(c.dst)
	if err != nil {
		return err
	}
	sw, sh, err := dev.levelSize(src, c.face, c.mip)
	if err != nil {
		return err
	}
	dw, dh, err := dev.levelSize(dst, c.dstFace, c.dstMip)
	if err != nil {
		return err
	}
	if sw != dw || sh != dh || src.desc.Format != dst.desc.Format {
		return fmt.Errorf("copy %q -> %q: levels differ (%dx%d %v, %dx%d %v)", src.desc.Label, dst.desc.Label, sw, sh, src.desc.Format, dw, dh, dst.desc.Format)
	}

	sz, _ := src.region(c.face)
	dz, _ := dst.region(c.dstFace)
	gl.CopyImageSubData(
		src.glId, src.target, int32(c.mip), 0, 0, sz,
		dst.glId, dst.target, int32(c.dstMip), 0, 0, dz,
		int32(sw), int32(sh), 1)
	return nil
}
