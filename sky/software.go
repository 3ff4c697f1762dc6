package sky

import (
	"envlight/ibl"
	"envlight/libgpu"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// RegisterSoftwareStages installs the CPU versions of the sky stages together with the
// image based lighting stages they are filtered by.
func RegisterSoftwareStages(dev *libgpu.SwDevice, opts ibl.SwOptions) {
	ibl.RegisterSoftwareStages(dev, opts)
	dev.RegisterFragment(StageHDRISky, shadeHDRI)
	dev.RegisterFragment(StageGradientSky, shadeGradient)
}

func pixelDirection(p *libgpu.ParamBlock, x, y int) mgl32.Vec3 {
	m := p.Matrix(ParamPixelCoordToViewDir)
	return m.Mul4x1(mgl32.Vec4{float32(x) + 0.5, float32(y) + 0.5, 1, 0}).Vec3().Normalize()
}

func shadeHDRI(ctx *libgpu.FragmentContext, x, y int) mgl32.Vec4 {
	tex, _ := ctx.Params.Texture(ParamHDRI).(*libgpu.SwTexture)
	if tex == nil {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	dir := pixelDirection(ctx.Params, x, y)
	param := ctx.Params.Vector(ParamSkyParam)
	sin, cos := math32.Sin(param[2]), math32.Cos(param[2])
	dx, dz := dir[0]*cos-dir[2]*sin, dir[0]*sin+dir[2]*cos

	u, v := ibl.LatLongUV(dx, dir[1], dz)
	r, g, b := ibl.Sample2D(tex, u, v)
	scale := param[0] * param[1]
	return mgl32.Vec4{r * scale, g * scale, b * scale, 1}
}

func shadeGradient(ctx *libgpu.FragmentContext, x, y int) mgl32.Vec4 {
	dir := pixelDirection(ctx.Params, x, y)
	t := dir[1] * ctx.Params.Float(ParamDiffusion)
	up := mgl32.Clamp(t, 0, 1)
	down := mgl32.Clamp(-t, 0, 1)

	middle := ctx.Params.Vector(ParamMiddle)
	color := lerp(middle, ctx.Params.Vector(ParamBottom), down)
	color = lerp(color, ctx.Params.Vector(ParamTop), up)
	color[3] = 1
	return color
}

func lerp(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	return a.Mul(1 - t).Add(b.Mul(t))
}
