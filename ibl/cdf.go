package ibl

import (
	"sort"

	"github.com/chewxy/math32"
)

// Dimensions of the lat-long grid the light sampling distribution is built on.
const (
	LightSamplingWidth  = 512
	LightSamplingHeight = 256
)

// The distribution is piecewise constant over a W x H lat-long grid with
// f(i, j) = luminance * cos(latitude). The conditional texture stores one normalized
// CDF per row; the marginal texture stores the normalized CDF over rows followed by
// the integral of the luminance over the sphere in its last texel.

// BuildConditionalRow fills row with the running sum of f over the row and returns the row sum.
// The row is normalized later by NormalizeDistribution.
func BuildConditionalRow(row []float32, f func(i int) float32) float32 {
	var sum float32
	for i := range row {
		sum += math32.Max(f(i), 0)
		row[i] = sum
	}
	return sum
}

// NormalizeDistribution turns the running row sums in conditional into per-row CDFs and
// writes the marginal CDF and the integral into marginal, which must hold height+1 values.
func NormalizeDistribution(conditional, marginal []float32, width, height int) {
	var total float32
	for j := 0; j < height; j++ {
		total += conditional[j*width+width-1]
		marginal[j] = total
	}

	for j := 0; j < height; j++ {
		row := conditional[j*width : (j+1)*width]
		rowSum := row[width-1]
		for i := range row {
			if rowSum > 0 {
				row[i] /= rowSum
			} else {
				row[i] = float32(i+1) / float32(width)
			}
		}
		// guard against rounding at the end of the row
		row[width-1] = 1

		if total > 0 {
			marginal[j] /= total
		} else {
			marginal[j] = float32(j+1) / float32(height)
		}
	}
	marginal[height-1] = 1
	marginal[height] = total * 2 * math32.Pi * math32.Pi / float32(width*height)
}

// SampleDistribution maps two uniform numbers to lat-long coordinates distributed by the
// CDFs and returns the density with respect to the area of the unit uv square.
func SampleDistribution(conditional, marginal []float32, width, height int, u1, u2 float32) (u, v, pdf float32) {
	j := searchCDF(marginal[:height], u1)
	m0 := cdfAt(marginal, j-1)
	mj := marginal[j] - m0

	row := conditional[j*width : (j+1)*width]
	i := searchCDF(row, u2)
	c0 := cdfAt(row, i-1)
	ci := row[i] - c0

	du, dv := float32(0.5), float32(0.5)
	if ci > 0 {
		du = (u2 - c0) / ci
	}
	if mj > 0 {
		dv = (u1 - m0) / mj
	}
	u = (float32(i) + math32.Min(math32.Max(du, 0), 1)) / float32(width)
	v = (float32(j) + math32.Min(math32.Max(dv, 0), 1)) / float32(height)
	pdf = ci * mj * float32(width*height)
	return
}

// DistributionPdf returns the uv density of the distribution at lat-long coordinates u, v.
func DistributionPdf(conditional, marginal []float32, width, height int, u, v float32) float32 {
	i := min(max(int(u*float32(width)), 0), width-1)
	j := min(max(int(v*float32(height)), 0), height-1)
	row := conditional[j*width : (j+1)*width]
	ci := row[i] - cdfAt(row, i-1)
	mj := marginal[j] - cdfAt(marginal, j-1)
	return ci * mj * float32(width*height)
}

// LatLongSolidAnglePdf converts a uv density into a solid angle density.
func LatLongSolidAnglePdf(pdfUV, v float32) float32 {
	cl := math32.Cos((v - 0.5) * math32.Pi)
	if cl <= 0 {
		return 0
	}
	return pdfUV / (2 * math32.Pi * math32.Pi * cl)
}

func cdfAt(cdf []float32, i int) float32 {
	if i < 0 {
		return 0
	}
	return cdf[i]
}

// searchCDF returns the first index with cdf[i] > x.
func searchCDF(cdf []float32, x float32) int {
	i := sort.Search(len(cdf), func(i int) bool { return cdf[i] > x })
	return min(i, len(cdf)-1)
}
