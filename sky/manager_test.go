package sky_test

import (
	"bytes"
	"context"
	"envlight/libgpu"
	"envlight/sky"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func newManager(t *testing.T, dev libgpu.Device, cfg *sky.EnvironmentConfig) (*sky.Manager, *recordingGI) {
	t.Helper()
	gi := &recordingGI{}
	m := sky.NewManager(dev, sky.WithGlobalIllumination(gi), sky.WithClipPlanes(0.1, 100))
	t.Cleanup(m.Cleanup)
	if err := m.SetSettings(cfg); err != nil {
		t.Fatal(err)
	}
	return m, gi
}

func TestManagerWarmup(t *testing.T) {
	dev := newDevice(t)
	cfg := &sky.EnvironmentConfig{Resolution: sky.Resolution256, UpdateMode: sky.UpdateOnChanged, Source: splitSky()}
	m, gi := newManager(t, dev, cfg)

	fx := runFrame(t, dev, m, 1.0/60)
	if !fx.Recomputed || fx.GIRefreshed || gi.calls != 0 {
		t.Fatalf("frame 1: unexpected effects %+v, %d GI calls", fx, gi.calls)
	}
	if n := m.UpdateState().FramesRequired; n != 1 {
		t.Fatalf("frame 1: expected 1 required frame, got %d", n)
	}
	if m.UpdateState().LastAppliedHash != cfg.Hash() {
		t.Fatal("frame 1: hash was not applied")
	}

	fx = runFrame(t, dev, m, 1.0/60)
	if !fx.Recomputed || !fx.GIRefreshed || gi.calls != 1 {
		t.Fatalf("frame 2: unexpected effects %+v, %d GI calls", fx, gi.calls)
	}
	if n := m.UpdateState().FramesRequired; n != 0 {
		t.Fatalf("frame 2: expected no required frames, got %d", n)
	}
	if gi.last != m.SkyReflection() {
		t.Fatal("frame 2: GI was not given the filtered cube map")
	}
	env := fx.Environment
	if env == nil || env.Skybox != m.RawCubemap() || env.AmbientMode != sky.AmbientSkybox ||
		env.AmbientIntensity != 1 || env.ReflectionIntensity != 1 || env.CustomReflection != nil {
		t.Fatalf("frame 2: unexpected environment lighting %+v", env)
	}

	fx = runFrame(t, dev, m, 1.0/60)
	if fx.Recomputed || fx.GIRefreshed || gi.calls != 1 {
		t.Fatalf("frame 3: unexpected effects %+v, %d GI calls", fx, gi.calls)
	}
	if fx.GlobalTextures[sky.GlobalSkyTexture] != m.SkyReflection() {
		t.Fatal("frame 3: sky texture is not bound")
	}
}

func TestManagerInvalidEnvironment(t *testing.T) {
	dev := newDevice(t)
	cfg := &sky.EnvironmentConfig{Resolution: sky.Resolution128, Source: uniformSky(mgl32.Vec3{1, 1, 1})}
	m, gi := newManager(t, dev, cfg)
	runFrame(t, dev, m, 0)
	runFrame(t, dev, m, 0)
	runFrame(t, dev, m, 0)
	calls := gi.calls

	cfg.Source = nil
	if m.IsSkyValid() {
		t.Fatal("sky without a source is valid")
	}
	fx := runFrame(t, dev, m, 0)
	if !fx.Recomputed || fx.GIRefreshed {
		t.Fatalf("unexpected effects %+v", fx)
	}
	if h := m.UpdateState().LastAppliedHash; h != sky.HashNone {
		t.Fatalf("expected the empty hash, got %x", h)
	}
	for _, face := range libgpu.CubeFaces {
		expectColor(t, "raw", readLevel(t, dev, m.RawCubemap(), face, 0), 0, mgl32.Vec3{}, 0)
		expectColor(t, "filtered", readLevel(t, dev, m.SkyReflection(), face, 3), 0, mgl32.Vec3{}, 0)
	}

	fx = runFrame(t, dev, m, 0)
	if fx.Recomputed || !fx.GIRefreshed || gi.calls != calls+1 {
		t.Fatalf("expected only the GI refresh, got %+v", fx)
	}
	fx = runFrame(t, dev, m, 0)
	if fx.Recomputed || fx.GIRefreshed || gi.calls != calls+1 {
		t.Fatalf("expected nothing, got %+v", fx)
	}
}

func TestManagerDeviceLoss(t *testing.T) {
	dev := newDevice(t)
	cfg := &sky.EnvironmentConfig{Resolution: sky.Resolution128, Source: uniformSky(mgl32.Vec3{0.5, 0.5, 0.5})}
	m, _ := newManager(t, dev, cfg)
	for i := 0; i < 3; i++ {
		runFrame(t, dev, m, 0)
	}
	raw := m.RawCubemap()

	dev.Lose()
	fx := runFrame(t, dev, m, 0)
	if !fx.Recomputed || fx.Trigger&sky.TriggerWarmup == 0 {
		t.Fatalf("lost cube maps were not recomputed, %+v", fx)
	}
	if m.RawCubemap() == raw || !m.RawCubemap().Live() {
		t.Fatal("cube maps were not recreated")
	}
	if n := m.UpdateState().FramesRequired; n != 1 {
		t.Fatalf("expected one more warm-up frame, got %d", n)
	}
	expectColor(t, "raw", readLevel(t, dev, m.RawCubemap(), libgpu.FaceNegativeZ, 0), 0, mgl32.Vec3{0.5, 0.5, 0.5}, 1e-5)
}

func TestManagerDeviceLossWithPendingRefresh(t *testing.T) {
	dev := newDevice(t)
	source := uniformSky(mgl32.Vec3{0.5, 0.5, 0.5})
	cfg := &sky.EnvironmentConfig{Resolution: sky.Resolution128, Source: source}
	m, gi := newManager(t, dev, cfg)
	for i := 0; i < 3; i++ {
		runFrame(t, dev, m, 0)
	}
	calls := gi.calls

	source.Top = mgl32.Vec3{1, 1, 1}
	if fx := runFrame(t, dev, m, 0); !fx.Recomputed || !m.UpdateState().PendingGI {
		t.Fatalf("changed source did not schedule a GI refresh, %+v", fx)
	}

	dev.Lose()
	fx := runFrame(t, dev, m, 0)
	if fx.GIRefreshed || fx.Environment != nil || gi.calls != calls {
		t.Fatalf("GI was refreshed with lost cube maps, %+v", fx)
	}
	if !fx.Recomputed {
		t.Fatal("lost cube maps were not recomputed")
	}

	fx = runFrame(t, dev, m, 0)
	if !fx.GIRefreshed || gi.calls != calls+1 {
		t.Fatalf("expected one GI refresh after the recompute, %+v, %d calls", fx, gi.calls-calls)
	}
	if gi.last != m.SkyReflection() || !gi.last.Live() {
		t.Fatal("GI was not given the recreated filtered cube map")
	}
	if fx.Environment.Skybox != m.RawCubemap() || !fx.Environment.Skybox.Live() {
		t.Fatal("environment lighting does not use the recreated raw cube map")
	}
}

func TestManagerDeviceLossWhileInvalid(t *testing.T) {
	dev := newDevice(t)
	cfg := &sky.EnvironmentConfig{Resolution: sky.Resolution128, Source: uniformSky(mgl32.Vec3{1, 1, 1})}
	m, gi := newManager(t, dev, cfg)
	for i := 0; i < 3; i++ {
		runFrame(t, dev, m, 0)
	}
	cfg.Source = nil
	runFrame(t, dev, m, 0)
	runFrame(t, dev, m, 0)
	calls := gi.calls

	dev.Lose()
	fx := runFrame(t, dev, m, 0)
	if !fx.Recomputed || fx.GIRefreshed {
		t.Fatalf("recreated cube maps of an invalid environment were not cleared, %+v", fx)
	}
	if h := m.UpdateState().LastAppliedHash; h != sky.HashNone {
		t.Fatalf("expected the empty hash, got %x", h)
	}
	for _, face := range libgpu.CubeFaces {
		pix := readLevel(t, dev, m.RawCubemap(), face, 0)
		if pix[3] != 1 {
			t.Fatalf("face %v was not cleared: %v", face, pix[:4])
		}
	}

	fx = runFrame(t, dev, m, 0)
	if !fx.GIRefreshed || gi.calls != calls+1 || gi.last != m.SkyReflection() {
		t.Fatalf("expected GI to hear about the cleared cube maps, %+v", fx)
	}
}

func TestManagerSettings(t *testing.T) {
	dev := newDevice(t)
	cfg := &sky.EnvironmentConfig{Resolution: sky.Resolution128, Source: uniformSky(mgl32.Vec3{1, 1, 1})}
	m, _ := newManager(t, dev, cfg)
	for i := 0; i < 3; i++ {
		runFrame(t, dev, m, 0)
	}

	if err := m.SetSettings(cfg); err != nil {
		t.Fatal(err)
	}
	if st := m.UpdateState(); st.FramesRequired != 0 || st.LastAppliedHash != cfg.Hash() {
		t.Fatalf("setting the same settings changed the state %+v", st)
	}

	err := m.SetSettings(&sky.EnvironmentConfig{Resolution: 2048})
	if !errors.Is(err, sky.ErrUnsupportedResolution) {
		t.Fatalf("expected ErrUnsupportedResolution, got %v", err)
	}
	if m.Settings() != cfg {
		t.Fatal("invalid settings replaced the previous ones")
	}

	other := &sky.EnvironmentConfig{Resolution: sky.Resolution128, Source: uniformSky(mgl32.Vec3{1, 1, 1})}
	if err := m.SetSettings(other); err != nil {
		t.Fatal(err)
	}
	if st := m.UpdateState(); st.FramesRequired != 2 || st.LastAppliedHash != sky.HashUnset {
		t.Fatalf("settings swap did not reset the state %+v", st)
	}
}

func TestManagerOnDemand(t *testing.T) {
	dev := newDevice(t)
	source := uniformSky(mgl32.Vec3{1, 1, 1})
	cfg := &sky.EnvironmentConfig{Resolution: sky.Resolution128, UpdateMode: sky.UpdateOnDemand, Source: source}
	m, _ := newManager(t, dev, cfg)
	for i := 0; i < 3; i++ {
		runFrame(t, dev, m, 0)
	}

	source.Top = mgl32.Vec3{2, 2, 2}
	if fx := runFrame(t, dev, m, 0); fx.Recomputed {
		t.Fatal("on demand environment recomputed by itself")
	}
	m.RequestEnvironmentUpdate()
	if fx := runFrame(t, dev, m, 0); !fx.Recomputed || fx.Trigger&sky.TriggerRequested == 0 {
		t.Fatalf("request was ignored, %+v", fx)
	}
	if fx := runFrame(t, dev, m, 0); fx.Recomputed || !fx.GIRefreshed {
		t.Fatalf("expected the GI refresh after the request, %+v", fx)
	}
}

func TestManagerOverride(t *testing.T) {
	dev := newDevice(t)
	override := newCube(t, dev, 64, 0)
	fillCube(t, dev, override, mgl32.Vec4{0.5, 0.25, 0.125, 1})

	cfg := &sky.EnvironmentConfig{Resolution: sky.Resolution128, Override: override, Source: splitSky()}
	m, _ := newManager(t, dev, cfg)
	runFrame(t, dev, m, 0)

	for _, face := range libgpu.CubeFaces {
		pix := readLevel(t, dev, m.RawCubemap(), face, 0)
		expectColor(t, "override", pix, 64*128+64, mgl32.Vec3{0.5, 0.25, 0.125}, 1e-5)
	}

	cfg.Override = nil
	if _, err := m.ExportToFlatTexture(); err != nil {
		t.Fatal(err)
	}
}

func TestManagerExport(t *testing.T) {
	dev := newDevice(t)
	m := sky.NewManager(dev)
	defer m.Cleanup()
	if _, err := m.ExportToFlatTexture(); !errors.Is(err, sky.ErrNoSettings) {
		t.Fatalf("expected ErrNoSettings, got %v", err)
	}
	cfg := &sky.EnvironmentConfig{Resolution: sky.Resolution128}
	if err := m.SetSettings(cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ExportToFlatTexture(); !errors.Is(err, sky.ErrNoRenderer) {
		t.Fatalf("expected ErrNoRenderer, got %v", err)
	}

	cfg.Source = splitSky()
	runFrame(t, dev, m, 0)
	img, err := m.ExportToFlatTexture()
	if err != nil {
		t.Fatal(err)
	}
	const size = 128
	if img.Width != size*6 || img.Height != size || img.Channels != 4 {
		t.Fatalf("unexpected image %dx%dx%d", img.Width, img.Height, img.Channels)
	}

	// face row 0 looks up on the side faces and ends up in the top image row
	red, blue := mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}
	for i, face := range libgpu.CubeFaces {
		top, bottom := red, blue
		switch face {
		case libgpu.FacePositiveY:
			bottom = red
		case libgpu.FaceNegativeY:
			top = blue
		}
		expectColor(t, face.String()+" top", img.Pixel(i*size+size/2, size-1), 0, top, 0)
		expectColor(t, face.String()+" bottom", img.Pixel(i*size+size/2, 0), 0, bottom, 0)
	}
}

func TestManagerRenderSky(t *testing.T) {
	dev := newDevice(t)
	cfg := &sky.EnvironmentConfig{Resolution: sky.Resolution128, Source: splitSky()}
	m, _ := newManager(t, dev, cfg)

	target, err := dev.CreateTexture(libgpu.TextureDesc{
		Label:     "color",
		Format:    libgpu.FormatRGBA32F,
		Width:     32,
		Height:    16,
		MipLevels: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer target.Release()

	cam := &sky.Camera{
		VerticalFov:       90,
		ViewportDimension: mgl32.Vec2{32, 16},
		ClippingPlanes:    mgl32.Vec2{0.1, 100},
	}
	cam.UpdateViewMatrix()
	cam.UpdateProjectionMatrix()

	submit(t, dev, func(cmd libgpu.CommandBuffer) {
		if err := m.RenderSky(cmd, cam, target); err != nil {
			t.Fatal(err)
		}
	})
	pix := readLevel(t, dev, target, 0, 0)
	// looking at the horizon: the bottom rows see the ground, the top rows the sky
	expectColor(t, "bottom row", pix, 16, mgl32.Vec3{0, 0, 1}, 0)
	expectColor(t, "top row", pix, 15*32+16, mgl32.Vec3{1, 0, 0}, 0)
}

func TestManagerCleanup(t *testing.T) {
	dev := newDevice(t)
	m := sky.NewManager(dev)
	if err := m.SetSettings(&sky.EnvironmentConfig{Resolution: sky.Resolution128, UseMIS: true, Source: sky.NewGradientSky()}); err != nil {
		t.Fatal(err)
	}
	if err := m.Resize(0.1, 10); err != nil {
		t.Fatal(err)
	}
	if n := dev.LiveTextures(); n != 4 {
		t.Fatalf("expected 4 textures, got %d", n)
	}
	m.Cleanup()
	if n := dev.LiveTextures(); n != 0 {
		t.Fatalf("expected no textures after cleanup, got %d", n)
	}

	if _, err := m.UpdateEnvironment(sky.Frame{}); err == nil {
		t.Fatal("expected an error for a frame without command buffer")
	}
}

func TestManagerLogger(t *testing.T) {
	dev := newDevice(t)
	var buf bytes.Buffer
	logged := sky.NewManager(dev, sky.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	defer logged.Cleanup()
	other := sky.NewManager(dev)
	defer other.Cleanup()

	if sky.Logger().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("the manager logger replaced the package logger")
	}

	if err := other.SetSettings(&sky.EnvironmentConfig{Resolution: sky.Resolution128}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Fatalf("a manager without a logger wrote to another manager's logger: %s", buf.String())
	}

	if err := logged.SetSettings(&sky.EnvironmentConfig{Resolution: sky.Resolution128}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "environment settings changed") {
		t.Fatalf("expected the settings change to be logged, got %q", buf.String())
	}
}
