package ibl

import (
	"envlight/libgpu"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type SwOptions struct {
	// GGX samples per texel and level
	Samples int
	// Samples taken from the light distribution per texel when MIS is used.
	// Defaults to Samples.
	LightSamples int
}

type swStages struct {
	samples      [][]sample
	lightSamples [][2]float32
}

// RegisterSoftwareStages installs the CPU implementations of the image based lighting
// stages on a software device.
func RegisterSoftwareStages(dev *libgpu.SwDevice, opts SwOptions) {
	if opts.Samples <= 0 {
		opts.Samples = 64
	}
	if opts.LightSamples <= 0 {
		opts.LightSamples = opts.Samples
	}

	st := &swStages{
		samples:      generateSpecularSamples(opts.Samples, SpecCubeLodSteps),
		lightSamples: generateHammersleySequence(opts.LightSamples),
	}

	dev.RegisterFragment(StageBlitCube, st.blitCube)
	dev.RegisterFragment(StageGGX, st.convolveGGX)
	dev.RegisterFragment(StageGGXMIS, st.convolveGGXMIS)
	dev.RegisterKernel(StageConditionalCDF, st.conditionalCDF)
	dev.RegisterKernel(StageMarginalCDF, st.marginalCDF)
}

func swTexture(p *libgpu.ParamBlock, name string) *libgpu.SwTexture {
	tex, _ := p.Texture(name).(*libgpu.SwTexture)
	return tex
}

// fragmentDirection is the world space direction through texel x, y of a face level
// with the given edge length. A bound pixel to direction matrix takes precedence over
// the face index.
func fragmentDirection(p *libgpu.ParamBlock, x, y, size int) (float32, float32, float32) {
	if m, ok := p.Matrices[ParamPixelCoordToViewDir]; ok {
		d := m.Mul4x1(mgl32.Vec4{float32(x) + 0.5, float32(y) + 0.5, 1, 0}).Vec3().Normalize()
		return d[0], d[1], d[2]
	}
	return TexelDirection(libgpu.CubeFace(p.Float(ParamFaceIndex)), x, y, size)
}

func (st *swStages) blitCube(ctx *libgpu.FragmentContext, x, y int) mgl32.Vec4 {
	src := swTexture(ctx.Params, ParamMainTex)
	if src == nil {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	dx, dy, dz := fragmentDirection(ctx.Params, x, y, ctx.Width)
	r, g, b := SampleCube(src, dx, dy, dz, 0)
	return mgl32.Vec4{r, g, b, 1}
}

func (st *swStages) levelSamples(p *libgpu.ParamBlock) []sample {
	level := int(p.Float(ParamLevel))
	level = min(max(level, 0), len(st.samples)-1)
	return st.samples[level]
}

// sourceLod picks the source mip whose texel solid angle matches the solid angle a sample covers.
func sourceLod(pdf float32, count int, invOmegaP float32) float32 {
	if pdf <= 0 {
		return 0
	}
	omegaS := 1 / (float32(count) * pdf)
	return 0.5*math32.Log2(omegaS*invOmegaP) + 1
}

func (st *swStages) convolveGGX(ctx *libgpu.FragmentContext, x, y int) mgl32.Vec4 {
	src := swTexture(ctx.Params, ParamMainTex)
	if src == nil {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	invOmegaP := ctx.Params.Float(ParamInvOmegaP)
	samples := st.levelSamples(ctx.Params)

	nx, ny, nz := fragmentDirection(ctx.Params, x, y, ctx.Width)
	tx, ty, tz, bx, by, bz := tangentFrame(nx, ny, nz)

	var cr, cg, cb float32
	var totalWeight float32
	for _, s := range samples {
		hx, hy, hz := normalize(transform(s.x, s.y, s.z, tx, ty, tz, bx, by, bz, nx, ny, nz))
		vdoth := 2 * dot(nx, ny, nz, hx, hy, hz)
		lx, ly, lz := normalize(vdoth*hx-nx, vdoth*hy-ny, vdoth*hz-nz)

		ndotl := dot(nx, ny, nz, lx, ly, lz)
		if ndotl <= 0 {
			continue
		}
		lod := sourceLod(s.pdf, len(samples), invOmegaP)
		if len(samples) == 1 {
			lod = 0
		}
		sr, sg, sb := SampleCube(src, lx, ly, lz, lod)

		cr += sr * ndotl
		cg += sg * ndotl
		cb += sb * ndotl
		totalWeight += ndotl
	}

	if totalWeight <= 0 {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	return mgl32.Vec4{cr / totalWeight, cg / totalWeight, cb / totalWeight, 1}
}

// convolveGGXMIS combines GGX samples with samples drawn from the luminance distribution.
// Both strategies estimate the GGX weighted radiance and the GGX weight itself; the ratio
// is the prefiltered value.
func (st *swStages) convolveGGXMIS(ctx *libgpu.FragmentContext, x, y int) mgl32.Vec4 {
	src := swTexture(ctx.Params, ParamMainTex)
	conditional := swTexture(ctx.Params, ParamConditionalDensities)
	marginal := swTexture(ctx.Params, ParamMarginalRowDensities)
	if conditional == nil || marginal == nil {
		return st.convolveGGX(ctx, x, y)
	}
	if src == nil {
		return mgl32.Vec4{0, 0, 0, 1}
	}

	invOmegaP := ctx.Params.Float(ParamInvOmegaP)
	samples := st.levelSamples(ctx.Params)
	if len(samples) == 1 {
		return st.convolveGGX(ctx, x, y)
	}
	level := min(max(int(ctx.Params.Float(ParamLevel)), 0), SpecCubeLodSteps)
	alpha := MipToPerceptualRoughness(float32(level), SpecCubeLodSteps)
	alpha *= alpha

	cdfW, cdfH := conditional.Size(0)
	cdf := conditional.Level(0, 0)
	rows := marginal.Level(0, 0)
	envPdf := func(lx, ly, lz float32) float32 {
		u, v := LatLongUV(lx, ly, lz)
		return LatLongSolidAnglePdf(DistributionPdf(cdf, rows, cdfW, cdfH, u, v), v)
	}

	nx, ny, nz := fragmentDirection(ctx.Params, x, y, ctx.Width)
	tx, ty, tz, bx, by, bz := tangentFrame(nx, ny, nz)
	nb, ne := len(samples), len(st.lightSamples)

	var cr, cg, cb, total float32

	for _, s := range samples {
		hx, hy, hz := normalize(transform(s.x, s.y, s.z, tx, ty, tz, bx, by, bz, nx, ny, nz))
		vdoth := 2 * dot(nx, ny, nz, hx, hy, hz)
		lx, ly, lz := normalize(vdoth*hx-nx, vdoth*hy-ny, vdoth*hz-nz)
		ndotl := dot(nx, ny, nz, lx, ly, lz)
		if ndotl <= 0 || s.pdf <= 0 {
			continue
		}

		// K / pdf with K = D * n.l and pdf = D / 4
		w := PowerHeuristic(nb, s.pdf, ne, envPdf(lx, ly, lz)) * 4 * ndotl / float32(nb)
		sr, sg, sb := SampleCube(src, lx, ly, lz, sourceLod(s.pdf, nb, invOmegaP))
		cr += sr * w
		cg += sg * w
		cb += sb * w
		total += w
	}

	for _, ls := range st.lightSamples {
		u, v, pdfUV := SampleDistribution(cdf, rows, cdfW, cdfH, ls[0], ls[1])
		pdf := LatLongSolidAnglePdf(pdfUV, v)
		if pdf <= 0 {
			continue
		}
		lx, ly, lz := LatLongDirection(u, v)
		ndotl := dot(nx, ny, nz, lx, ly, lz)
		if ndotl <= 0 {
			continue
		}
		hx, hy, hz := normalize(lx+nx, ly+ny, lz+nz)
		d := DistributionGGX(dot(nx, ny, nz, hx, hy, hz), alpha)
		bsdfPdf := d / 4

		w := PowerHeuristic(ne, pdf, nb, bsdfPdf) * d * ndotl / pdf / float32(ne)
		sr, sg, sb := SampleCube(src, lx, ly, lz, sourceLod(pdf, ne, invOmegaP))
		cr += sr * w
		cg += sg * w
		cb += sb * w
		total += w
	}

	if total <= 0 {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	return mgl32.Vec4{cr / total, cg / total, cb / total, 1}
}

// conditionalCDF handles one row of the lat-long grid per work group.
func (st *swStages) conditionalCDF(ctx *libgpu.KernelContext) {
	src := swTexture(ctx.Params, ParamMainTex)
	conditional := swTexture(ctx.Params, ParamConditionalDensities)
	if src == nil || conditional == nil {
		return
	}
	w, h := conditional.Size(0)
	j := ctx.Group[1]
	if j >= h {
		return
	}

	v := (float32(j) + 0.5) / float32(h)
	cosLat := math32.Cos((v - 0.5) * math32.Pi)
	// read the source at roughly the density of the grid
	srcSize, _ := src.Size(0)
	lod := math32.Max(0, math32.Log2(float32(4*srcSize)/float32(w)))

	row := conditional.Level(0, 0)[j*w : (j+1)*w]
	BuildConditionalRow(row, func(i int) float32 {
		u := (float32(i) + 0.5) / float32(w)
		dx, dy, dz := LatLongDirection(u, v)
		return Luminance(SampleCube(src, dx, dy, dz, lod)) * cosLat
	})
}

// marginalCDF runs as a single work group once all rows are summed.
func (st *swStages) marginalCDF(ctx *libgpu.KernelContext) {
	conditional := swTexture(ctx.Params, ParamConditionalDensities)
	marginal := swTexture(ctx.Params, ParamMarginalRowDensities)
	if conditional == nil || marginal == nil {
		return
	}
	w, h := conditional.Size(0)
	NormalizeDistribution(conditional.Level(0, 0), marginal.Level(0, 0), w, h)
}
