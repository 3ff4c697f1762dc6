package libgpu_test

import (
	"envlight/libgpu"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestParamPoolReuse(t *testing.T) {
	pool := libgpu.NewParamPool(1)

	a, releaseA := pool.Acquire()
	a.SetFloat("x", 1)
	a.SetMatrix("m", mgl32.Ident4())
	if pool.InUse() != 1 {
		t.Fatalf("expected 1 block in use, got %d", pool.InUse())
	}

	b, releaseB := pool.Acquire()
	if a == b {
		t.Fatal("an acquired block must not be handed out twice")
	}
	releaseB()
	releaseA()
	releaseA()
	if pool.InUse() != 0 {
		t.Fatalf("expected no blocks in use, got %d", pool.InUse())
	}

	c, releaseC := pool.Acquire()
	defer releaseC()
	if len(c.Floats) != 0 || len(c.Matrices) != 0 {
		t.Fatal("reacquired block should be empty")
	}
}

func TestParamBlockClone(t *testing.T) {
	p := libgpu.NewParamBlock()
	p.SetFloat("f", 2)
	p.SetVector("v", mgl32.Vec4{1, 2, 3, 4})

	c := p.Clone()
	p.SetFloat("f", 3)
	if c.Float("f") != 2 || c.Vector("v")[2] != 3 {
		t.Fatalf("clone does not hold the original values: %v", c.Floats)
	}
	if c.Float("missing") != 0 || c.Texture("missing") != nil {
		t.Fatal("missing entries should read as zero")
	}

	var nilBlock *libgpu.ParamBlock
	if nilBlock.Clone() == nil {
		t.Fatal("cloning nil should produce an empty block")
	}
}
