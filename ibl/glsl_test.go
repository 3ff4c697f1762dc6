package ibl_test

import (
	"envlight/ibl"
	"envlight/libgpu"
	"strings"
	"testing"
)

func TestGLSLStages(t *testing.T) {
	stages := ibl.GLSLStages(ibl.SwOptions{Samples: 32})
	for _, id := range []string{"ibl.blit_cube", "ibl.ggx", "ibl.ggx_mis", "ibl.conditional_cdf", "ibl.marginal_cdf"} {
		src, ok := stages[libgpu.StageID(id)]
		if !ok {
			t.Fatalf("missing stage %s", id)
		}
		if !strings.HasPrefix(src.Code, "#version 450") {
			t.Errorf("%s: source does not start with a version directive", id)
		}
		if !strings.Contains(src.Code, "void main()") {
			t.Errorf("%s: no entry point", id)
		}
		if src.Compute != strings.HasSuffix(id, "_cdf") {
			t.Errorf("%s: unexpected stage kind", id)
		}
	}

	if got := stages[ibl.StageGGX].Defines["SAMPLE_COUNT"]; got != "32" {
		t.Errorf("expected SAMPLE_COUNT 32, got %q", got)
	}
	if got := stages[ibl.StageGGXMIS].Defines["LIGHT_SAMPLE_COUNT"]; got != "32" {
		t.Errorf("expected LIGHT_SAMPLE_COUNT to default to the sample count, got %q", got)
	}
}
