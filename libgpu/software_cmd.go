package libgpu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

type swCommandKind int

const (
	swSetTarget = swCommandKind(iota)
	swClear
	swDraw
	swDispatch
	swCopy
	swGenerateMips
	swBeginSample
	swEndSample
)

type swCommand struct {
	kind    swCommandKind
	stage   StageID
	params  *ParamBlock
	tex     Texture
	face    CubeFace
	mip     int
	dst     Texture
	dstFace CubeFace
	dstMip  int
	groups  [3]int
	color   mgl32.Vec4
	name    string
}

type swCommandBuffer struct {
	commands []swCommand
}

func (cmd *swCommandBuffer) SetRenderTarget(target Texture, mip int, face CubeFace) {
	cmd.commands = append(cmd.commands, swCommand{kind: swSetTarget, tex: target, mip: mip, face: face})
}

func (cmd *swCommandBuffer) ClearRenderTarget(color mgl32.Vec4) {
	cmd.commands = append(cmd.commands, swCommand{kind: swClear, color: color})
}

func (cmd *swCommandBuffer) DrawFullscreen(stage StageID, params *ParamBlock) {
	cmd.commands = append(cmd.commands, swCommand{kind: swDraw, stage: stage, params: params.Clone()})
}

func (cmd *swCommandBuffer) DispatchCompute(stage StageID, params *ParamBlock, groupsX, groupsY, groupsZ int) {
	cmd.commands = append(cmd.commands, swCommand{
		kind:   swDispatch,
		stage:  stage,
		params: params.Clone(),
		groups: [3]int{groupsX, groupsY, groupsZ},
	})
}

func (cmd *swCommandBuffer) CopyTexture(src Texture, srcFace CubeFace, srcMip int, dst Texture, dstFace CubeFace, dstMip int) {
	cmd.commands = append(cmd.commands, swCommand{
		kind:    swCopy,
		tex:     src,
		face:    srcFace,
		mip:     srcMip,
		dst:     dst,
		dstFace: dstFace,
		dstMip:  dstMip,
	})
}

func (cmd *swCommandBuffer) GenerateMips(tex Texture) {
	cmd.commands = append(cmd.commands, swCommand{kind: swGenerateMips, tex: tex})
}

func (cmd *swCommandBuffer) BeginSample(name string) {
	cmd.commands = append(cmd.commands, swCommand{kind: swBeginSample, name: name})
}

func (cmd *swCommandBuffer) EndSample(name string) {
	cmd.commands = append(cmd.commands, swCommand{kind: swEndSample, name: name})
}

// Len reports the number of recorded commands.
func (cmd *swCommandBuffer) Len() int {
	return len(cmd.commands)
}

type swTarget struct {
	tex  *SwTexture
	face CubeFace
	mip  int
}

func (dev *SwDevice) execute(ctx context.Context, buf *swCommandBuffer) error {
	var errs []error
	var target *swTarget
	samples := map[string]time.Time{}

	for i := range buf.commands {
		if err := ctx.Err(); err != nil {
			return err
		}

		c := &buf.commands[i]
		var err error
		switch c.kind {
		case swSetTarget:
			target = nil
			var tex *SwTexture
			if tex, err = dev.lookup(c.tex); err != nil {
				break
			}
			if _, err = tex.level(c.face, c.mip); err != nil {
				break
			}
			target = &swTarget{tex: tex, face: c.face, mip: c.mip}
		case swClear:
			err = dev.clear(target, c.color)
		case swDraw:
			err = dev.draw(target, c.stage, c.params)
		case swDispatch:
			err = dev.dispatch(c.stage, c.params, c.groups)
		case swCopy:
			err = dev.copy(c)
		case swGenerateMips:
			err = dev.generateMips(c.tex)
		case swBeginSample:
			samples[c.name] = time.Now()
		case swEndSample:
			if start, ok := samples[c.name]; ok {
				dev.logger.Debug("sample", "name", c.name, "duration", time.Since(start))
				delete(samples, c.name)
			}
		}

		if err != nil {
			errs = append(errs, fmt.Errorf("command %d: %w", i, err))
		}
	}

	buf.commands = buf.commands[:0]
	return errors.Join(errs...)
}

func (dev *SwDevice) clear(target *swTarget, color mgl32.Vec4) error {
	if target == nil {
		return ErrNoRenderTarget
	}
	pix := target.tex.Level(target.face, target.mip)
	channels := target.tex.Channels()
	for i := 0; i < len(pix); i += channels {
		for c := 0; c < channels; c++ {
			pix[i+c] = color[c]
		}
	}
	return nil
}

func (dev *SwDevice) draw(target *swTarget, stage StageID, params *ParamBlock) error {
	if target == nil {
		return ErrNoRenderTarget
	}
	fn, ok := dev.fragments[stage]
	if !ok {
		return fmt.Errorf("fragment stage %q: %w", stage, ErrUnknownStage)
	}

	w, h := target.tex.Size(target.mip)
	pix := target.tex.Level(target.face, target.mip)
	channels := target.tex.Channels()
	fctx := &FragmentContext{
		Width:  w,
		Height: h,
		Face:   target.face,
		Mip:    target.mip,
		Params: params,
	}

	dev.parallel(h, func(y int) {
		row := pix[y*w*channels : (y+1)*w*channels]
		for x := 0; x < w; x++ {
			color := fn(fctx, x, y)
			for c := 0; c < channels; c++ {
				row[x*channels+c] = color[c]
			}
		}
	})
	return nil
}

func (dev *SwDevice) dispatch(stage StageID, params *ParamBlock, groups [3]int) error {
	fn, ok := dev.kernels[stage]
	if !ok {
		return fmt.Errorf("compute stage %q: %w", stage, ErrUnknownStage)
	}
	for _, tex := range params.Textures {
		if _, err := dev.lookup(tex); err != nil {
			return err
		}
	}

	total := groups[0] * groups[1] * groups[2]
	dev.parallel(total, func(i int) {
		kctx := &KernelContext{
			Params: params,
			Groups: groups,
			Group: [3]int{
				i % groups[0],
				(i / groups[0]) % groups[1],
				i / (groups[0] * groups[1]),
			},
		}
		fn(kctx)
	})
	return nil
}

func (dev *SwDevice) copy(c *swCommand) error {
	src, err := dev.lookup(c.tex)
	if err != nil {
		return err
	}
	dst, err := dev.lookup(c.dst)
	if err != nil {
		return err
	}
	from, err := src.level(c.face, c.mip)
	if err != nil {
		return err
	}
	to, err := dst.level(c.dstFace, c.dstMip)
	if err != nil {
		return err
	}
	if len(from) != len(to) {
		return fmt.Errorf("copy %q -> %q: level sizes differ (%d, %d)", src.desc.Label, dst.desc.Label, len(from), len(to))
	}
	copy(to, from)
	return nil
}

// generateMips box filters every level from the one above it.
func (dev *SwDevice) generateMips(t Texture) error {
	tex, err := dev.lookup(t)
	if err != nil {
		return err
	}

	channels := tex.Channels()
	for face := 0; face < tex.desc.Faces(); face++ {
		for mip := 1; mip < tex.Levels(); mip++ {
			sw, sh := tex.Size(mip - 1)
			dw, dh := tex.Size(mip)
			src := tex.Level(CubeFace(face), mip-1)
			dst := tex.Level(CubeFace(face), mip)

			dev.parallel(dh, func(y int) {
				y0, y1 := min(2*y, sh-1), min(2*y+1, sh-1)
				for x := 0; x < dw; x++ {
					x0, x1 := min(2*x, sw-1), min(2*x+1, sw-1)
					for c := 0; c < channels; c++ {
						sum := src[(y0*sw+x0)*channels+c] + src[(y0*sw+x1)*channels+c] +
							src[(y1*sw+x0)*channels+c] + src[(y1*sw+x1)*channels+c]
						dst[(y*dw+x)*channels+c] = sum * 0.25
					}
				}
			})
		}
	}
	return nil
}
