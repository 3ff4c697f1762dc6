package main

import (
	"envlight/ibl"
	"envlight/libgpu"
	"envlight/libio"
	"envlight/sky"
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

type bakeArgs struct {
	commonArgs
	frames   int
	compress int
	flat     bool
	png      bool
}

func createBakeCommand() *command {

	args := bakeArgs{
		commonArgs: commonArgs{
			impl:    implGl,
			workers: runtime.NumCPU(),
			samples: 64,
		},
		frames:   2,
		compress: 6,
	}

	flags := flag.NewFlagSet("bake", flag.ExitOnError)

	registerCommonFlags(flags, &args.commonArgs)

	flags.IntVar(&args.frames, "frames", args.frames, "number of frames to update the environment for")
	flags.IntVar(&args.compress, "compress", args.compress, "the compression level from 0 to 10")
	flags.BoolVar(&args.flat, "flat", args.flat, "also export the raw environment as a flat .f32 image")
	flags.BoolVar(&args.png, "png", args.png, "also export the raw environment as a flat png preview")

	return &command{
		Name: "bake",
		Help: "bake sky description files into filtered ibl environments",
		Run: func(self *command) {
			if self.Flags.NArg() < 1 || args.compress < 0 || args.compress > 10 || args.frames < 1 {
				printCommandUsage(self, " file-glob...")
			}
			setCommonArgs(&args.commonArgs)

			runBake(args, gatherInputFiles(self.Flags.Args()))
		},
		Flags: flags,
	}
}

func runBake(args bakeArgs, inputFiles []string) {
	dev, release, err := openDevice(&args.commonArgs)
	harderr(err)
	defer release()

	success := 0
	start := time.Now()
	for i, p := range inputFiles {
		info("Processing file %d/%d %q ...", i+1, len(inputFiles), filepath.ToSlash(filepath.Clean(p)))
		err := bakeFile(p, args, dev)
		softerr(err)
		if err == nil {
			success++
		}
	}
	took := float32(time.Since(start).Milliseconds()) / 1000
	info("Baked %d/%d files in %.3f seconds", success, len(inputFiles), took)
}

func bakeFile(p string, args bakeArgs, dev libgpu.Device) error {
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

	for frame := 0; frame < args.frames; frame++ {
		cmd := dev.NewCommandBuffer()
		fx, err := m.UpdateEnvironment(sky.Frame{Cmd: cmd, DeltaTime: 1.0 / 60})
		if err != nil {
			return err
		}
		if err := dev.Submit(cmd); err != nil {
			return err
		}
		if fx.Recomputed {
			info("Frame %d: environment recomputed (%v)", frame, fx.Trigger)
		}
	}

	filtered := m.SkyReflection()
	if filtered == nil {
		return fmt.Errorf("%s: environment was never rendered", p)
	}
	env, err := ibl.Download(dev, filtered, ibl.SpecCubeLodSteps+1)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	if err := writeFile(filepath.Join(cargs.out, name+".iblenv"), func(f *os.File) error {
		return ibl.EncodeIblEnv(f, env, ibl.OptCompress(args.compress-1))
	}); err != nil {
		return err
	}

	if !args.flat && !args.png {
		return nil
	}
	img, err := m.ExportToFlatTexture()
	if err != nil {
		return err
	}
	if args.flat {
		if err := writeFile(filepath.Join(cargs.out, name+".f32"), func(f *os.File) error {
			return libio.EncodeFloatImage(f, img, libio.FloatImageCompressionFixedPoint16Lz4)
		}); err != nil {
			return err
		}
	}
	if args.png {
		if err := writeFile(filepath.Join(cargs.out, name+".png"), func(f *os.File) error {
			return png.Encode(f, img.ToRGBA(2.2, 1))
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(name string, write func(f *os.File) error) error {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer close(f)
	return write(f)
}
