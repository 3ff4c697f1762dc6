package sky_test

import (
	"envlight/ibl"
	"envlight/libgpu"
	"envlight/sky"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func resourceIDs(res *sky.CubemapResources) []uuid.UUID {
	ids := []uuid.UUID{res.Raw.ID(), res.Filtered.ID()}
	if res.MIS() {
		ids = append(ids, res.MarginalCDF.ID(), res.ConditionalCDF.ID())
	}
	return ids
}

func TestEnsureIdempotent(t *testing.T) {
	for _, resolution := range sky.SupportedResolutions {
		t.Run(fmt.Sprint(resolution), func(t *testing.T) {
			if resolution > sky.Resolution512 && testing.Short() {
				t.Skip("large allocation")
			}
			dev := newDevice(t)
			pool := sky.NewResourcePool(dev)
			defer pool.Release()

			cfg := &sky.EnvironmentConfig{Resolution: resolution}
			first, recreated, err := pool.Ensure(cfg)
			if err != nil {
				t.Fatal(err)
			}
			if !recreated {
				t.Fatal("first Ensure did not report a recreation")
			}
			second, recreated, err := pool.Ensure(cfg)
			if err != nil {
				t.Fatal(err)
			}
			if recreated || first != second || first.Raw.ID() != second.Raw.ID() || first.Filtered.ID() != second.Filtered.ID() {
				t.Fatal("second Ensure reallocated the resources")
			}

			desc := first.Raw.Desc()
			if desc.Width != int(resolution) || desc.Levels() != libgpu.MipCount(int(resolution)) || desc.AutoGenerateMips {
				t.Fatalf("unexpected raw cube map %+v", desc)
			}
		})
	}
}

func TestEnsureRecreatesAsUnit(t *testing.T) {
	dev := newDevice(t)
	pool := sky.NewResourcePool(dev)
	defer pool.Release()

	cfg := &sky.EnvironmentConfig{Resolution: sky.Resolution256, UseMIS: true}
	before, _, err := pool.Ensure(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !before.MIS() {
		t.Fatal("MIS textures were not allocated")
	}
	if w, h := before.ConditionalCDF.Desc().Width, before.ConditionalCDF.Desc().Height; w != ibl.LightSamplingWidth || h != ibl.LightSamplingHeight {
		t.Fatalf("conditional distribution is %dx%d", w, h)
	}
	if w := before.MarginalCDF.Desc().Width; w != ibl.LightSamplingHeight+1 {
		t.Fatalf("marginal distribution has %d texels", w)
	}
	if !before.ConditionalCDF.Desc().RandomWrite || !before.MarginalCDF.Desc().RandomWrite {
		t.Fatal("distribution textures are not writable")
	}
	oldIDs := resourceIDs(before)
	old := []libgpu.Texture{before.Raw, before.Filtered, before.MarginalCDF, before.ConditionalCDF}

	cfg.Resolution = sky.Resolution128
	after, recreated, err := pool.Ensure(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !recreated {
		t.Fatal("resolution change did not recreate")
	}
	for i, tex := range old {
		if tex.Live() {
			t.Errorf("old texture %d is still live", i)
		}
	}
	for i, id := range resourceIDs(after) {
		if id == oldIDs[i] {
			t.Errorf("texture %d was kept", i)
		}
	}
	if n := dev.LiveTextures(); n != 4 {
		t.Fatalf("expected 4 live textures, got %d", n)
	}

	cfg.UseMIS = false
	after, recreated, err = pool.Ensure(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !recreated || after.MIS() {
		t.Fatal("disabling MIS did not drop the distribution textures")
	}
	if n := dev.LiveTextures(); n != 2 {
		t.Fatalf("expected 2 live textures, got %d", n)
	}
}

func TestEnsureAfterDeviceLoss(t *testing.T) {
	dev := newDevice(t)
	pool := sky.NewResourcePool(dev)
	defer pool.Release()

	cfg := &sky.EnvironmentConfig{Resolution: sky.Resolution128}
	before, _, err := pool.Ensure(cfg)
	if err != nil {
		t.Fatal(err)
	}
	rawID := before.Raw.ID()

	dev.Lose()
	after, recreated, err := pool.Ensure(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !recreated || after.Raw.ID() == rawID || !after.Live() {
		t.Fatal("lost resources were not recreated")
	}
}

func TestEnsureRejectsResolution(t *testing.T) {
	dev := newDevice(t)
	pool := sky.NewResourcePool(dev)
	defer pool.Release()

	before, _, err := pool.Ensure(nil)
	if err != nil {
		t.Fatal(err)
	}
	if before.Resolution != sky.DefaultResolution {
		t.Fatalf("expected the default resolution, got %d", before.Resolution)
	}

	res, _, err := pool.Ensure(&sky.EnvironmentConfig{Resolution: 4096})
	if !errors.Is(err, sky.ErrUnsupportedResolution) {
		t.Fatalf("expected ErrUnsupportedResolution, got %v", err)
	}
	if res != before || !before.Live() {
		t.Fatal("rejected resolution changed the resources")
	}
}
