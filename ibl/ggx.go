package ibl

import (
	"github.com/chewxy/math32"
)

// SpecCubeLodSteps is the number of roughness levels below mip 0 that receive a GGX convolution.
const SpecCubeLodSteps = 6

type sample struct {
	// z is 'up'
	x, y, z float32
	// pdf of the reflected direction
	pdf float32
}

func radicalInverseVdC(bits uint32) float32 {
	bits = (bits << 16) | (bits >> 16)
	bits = ((bits & 0x55555555) << 1) | ((bits & 0xAAAAAAAA) >> 1)
	bits = ((bits & 0x33333333) << 2) | ((bits & 0xCCCCCCCC) >> 2)
	bits = ((bits & 0x0F0F0F0F) << 4) | ((bits & 0xF0F0F0F0) >> 4)
	bits = ((bits & 0x00FF00FF) << 8) | ((bits & 0xFF00FF00) >> 8)
	return float32(bits) * 2.3283064365386963e-10 // / 0x100000000
}

func hammersley(i, N uint32) (x, y float32) {
	return float32(i) / float32(N), radicalInverseVdC(i)
}

// importanceSampleGGX returns a tangent space half vector distributed by D(h)(n.h)
func importanceSampleGGX(su, sv float32, perceptualRoughness float32) (x, y, z float32) {
	a := perceptualRoughness * perceptualRoughness

	phi := 2.0 * math32.Pi * su
	cosTheta := math32.Sqrt((1.0 - sv) / (1.0 + (a*a-1.0)*sv))
	sinTheta := math32.Sqrt(1.0 - cosTheta*cosTheta)

	// from spherical coordinates to cartesian coordinates
	x = math32.Cos(phi) * sinTheta
	y = math32.Sin(phi) * sinTheta
	z = cosTheta

	return
}

// DistributionGGX is the GGX normal distribution for alpha = perceptualRoughness².
func DistributionGGX(ndoth, alpha float32) float32 {
	a2 := alpha * alpha
	d := ndoth*ndoth*(a2-1) + 1
	return a2 / (math32.Pi * d * d)
}

// MipToPerceptualRoughness inverts mip = r * (1.7 - 0.7 * r) * lodSteps.
func MipToPerceptualRoughness(mip float32, lodSteps int) float32 {
	m := math32.Min(math32.Max(mip/float32(lodSteps), 0), 1)
	return (1.7 - math32.Sqrt(math32.Max(2.89-2.8*m, 0))) / 1.4
}

func PerceptualRoughnessToMip(perceptualRoughness float32, lodSteps int) float32 {
	r := perceptualRoughness
	return r * (1.7 - 0.7*r) * float32(lodSteps)
}

// PowerHeuristic weighs a sample drawn from f against the alternative strategy g.
func PowerHeuristic(nf int, fPdf float32, ng int, gPdf float32) float32 {
	f := float32(nf) * fPdf
	g := float32(ng) * gPdf
	if f == 0 && g == 0 {
		return 0
	}
	return (f * f) / (f*f + g*g)
}

func generateHammersleySequence(count int) [][2]float32 {
	samples := make([][2]float32, count)
	for i := 0; i < count; i++ {
		su, sv := hammersley(uint32(i), uint32(count))
		samples[i][0] = su
		samples[i][1] = sv
	}

	return samples
}

// generateSpecularSamples precomputes GGX half vectors for the roughness of every mip
// in [0, lodSteps]. With n = v the pdf of the reflected direction is D(h) / 4.
func generateSpecularSamples(count int, lodSteps int) [][]sample {
	// store all samples in contiguous memory
	samples := make([]sample, count*lodSteps+1)
	slicedSamples := make([][]sample, lodSteps+1)
	// roughness 0 only requires a single sample
	samples[0] = sample{x: 0, y: 0, z: 1, pdf: 1}
	slicedSamples[0] = samples[0:1:1]
	i := 1

	hammersleySeq := generateHammersleySequence(count)

	for l := 1; l <= lodSteps; l++ {
		start := i
		perceptual := MipToPerceptualRoughness(float32(l), lodSteps)
		alpha := perceptual * perceptual
		for si := 0; si < count; si++ {
			hs := hammersleySeq[si]
			hx, hy, hz := importanceSampleGGX(hs[0], hs[1], perceptual)
			samples[i] = sample{x: hx, y: hy, z: hz, pdf: DistributionGGX(hz, alpha) / 4}
			i++
		}
		slicedSamples[l] = samples[start:i:i]
	}

	return slicedSamples
}
