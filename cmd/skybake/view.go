package main

import (
	"envlight/libgpu"
	"envlight/libio"
	"envlight/sky"
	"flag"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

type viewArgs struct {
	commonArgs
	yaw    float64
	pitch  float64
	fov    float64
	width  int
	height int
	gamma  float64
}

func createViewCommand() *command {

	args := viewArgs{
		commonArgs: commonArgs{
			impl:    implGl,
			workers: runtime.NumCPU(),
			samples: 64,
		},
		fov:    60,
		width:  640,
		height: 360,
		gamma:  2.2,
	}

	flags := flag.NewFlagSet("view", flag.ExitOnError)

	registerCommonFlags(flags, &args.commonArgs)

	flags.Float64Var(&args.yaw, "yaw", args.yaw, "camera yaw in degrees")
	flags.Float64Var(&args.pitch, "pitch", args.pitch, "camera pitch in degrees")
	flags.Float64Var(&args.fov, "fov", args.fov, "vertical field of view in degrees")
	flags.IntVar(&args.width, "width", args.width, "image width in pixels")
	flags.IntVar(&args.height, "height", args.height, "image height in pixels")
	flags.Float64Var(&args.gamma, "gamma", args.gamma, "gamma of the png")

	return &command{
		Name: "view",
		Help: "render sky description files from a camera to png",
		Run: func(self *command) {
			if self.Flags.NArg() < 1 || args.width < 1 || args.height < 1 || args.fov <= 0 || args.fov >= 180 {
				printCommandUsage(self, " file-glob...")
			}
			setCommonArgs(&args.commonArgs)

			runView(args, gatherInputFiles(self.Flags.Args()))
		},
		Flags: flags,
	}
}

func runView(args viewArgs, inputFiles []string) {
	dev, release, err := openDevice(&args.commonArgs)
	harderr(err)
	defer release()

	cam := &sky.Camera{
		Orientation:       mgl32.Vec3{float32(args.pitch), float32(args.yaw), 0},
		VerticalFov:       float32(args.fov),
		ViewportDimension: mgl32.Vec2{float32(args.width), float32(args.height)},
		ClippingPlanes:    mgl32.Vec2{0.1, 1000},
	}
	cam.UpdateViewMatrix()
	cam.UpdateProjectionMatrix()

	success := 0
	start := time.Now()
	for i, p := range inputFiles {
		info("Processing file %d/%d %q ...", i+1, len(inputFiles), filepath.ToSlash(filepath.Clean(p)))
		err := viewFile(p, args, dev, cam)
		softerr(err)
		if err == nil {
			success++
		}
	}
	took := float32(time.Since(start).Milliseconds()) / 1000
	info("Rendered %d/%d files in %.3f seconds", success, len(inputFiles), took)
}

func viewFile(p string, args viewArgs, dev libgpu.Device, cam *sky.Camera) error {
	file, err := readSkyFile(p)
	if err != nil {
		return err
	}
	source, unload, err := file.Source.load(dev)
	if err != nil {
		return err
	}
	defer unload()

	cfg := file.Environment
	cfg.Source = source
	m := sky.NewManager(dev)
	defer m.Cleanup()
	if err := m.SetSettings(&cfg); err != nil {
		return err
	}

	target, err := dev.CreateTexture(libgpu.TextureDesc{
		Label:     "SkyView",
		Dimension: libgpu.Dimension2D,
		Format:    libgpu.FormatRGBA32F,
		Width:     args.width,
		Height:    args.height,
		MipLevels: 1,
	})
	if err != nil {
		return err
	}
	defer target.Release()

	cmd := dev.NewCommandBuffer()
	if err := m.RenderSky(cmd, cam, target); err != nil {
		return err
	}
	if err := dev.Submit(cmd); err != nil {
		return err
	}
	pix, err := dev.ReadPixels(target, libgpu.FacePositiveX, 0)
	if err != nil {
		return err
	}
	img := libio.NewFloatImage(pix, 4, args.width, args.height)

	name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)) + "_view.png"
	return writeFile(filepath.Join(cargs.out, name), func(f *os.File) error {
		return png.Encode(f, img.ToRGBA(float32(args.gamma), 1))
	})
}
