package ibl

// these functions are only exported when running tests

var EncodeRgbeChunk = encodeRgbeChunk
var DecodeRgbeChunk = decodeRgbeChunk

var Hammersley = hammersley
var ImportanceSampleGGX = importanceSampleGGX

// SpecularSampleCounts reports the number of precomputed samples per level.
func SpecularSampleCounts(count int) []int {
	samples := generateSpecularSamples(count, SpecCubeLodSteps)
	counts := make([]int, len(samples))
	for i, s := range samples {
		counts[i] = len(s)
	}
	return counts
}
