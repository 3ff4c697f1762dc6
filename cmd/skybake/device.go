package main

import (
	"envlight/ibl"
	"envlight/libgl"
	"envlight/libgpu"
	"envlight/sky"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// openDevice creates the device of the chosen implementation with every stage registered.
// OpenGL falls back to the software device when no context can be created.
func openDevice(args *commonArgs) (dev libgpu.Device, release func(), err error) {
	opts := ibl.SwOptions{Samples: args.samples}

	if args.impl == implGl {
		dev, release, err = openGlDevice(args, opts)
		if err == nil {
			info("Using OpenGL implementation")
			return dev, release, nil
		}
		softerr(err)
		info("Falling back to software implementation")
	}

	sw := libgpu.NewSwDevice(args.workers)
	sw.SetLogger(sky.Logger())
	sky.RegisterSoftwareStages(sw, opts)
	info("Using software implementation with %d workers", args.workers)
	return sw, sw.Release, nil
}

func openGlDevice(args *commonArgs, opts ibl.SwOptions) (libgpu.Device, func(), error) {
	// the context belongs to this thread from now on
	runtime.LockOSThread()

	ctx, err := libgl.NewHiddenContext(args.verbose)
	if err != nil {
		return nil, nil, err
	}
	if args.verbose {
		libgl.EnableDebugOutput(sky.Logger())
	}

	dev, err := libgl.NewDevice()
	if err != nil {
		ctx.Release()
		return nil, nil, err
	}
	dev.SetLogger(sky.Logger())

	stages := sky.GLSLStages(opts)
	if args.shaders != "" {
		if err := loadShaderOverrides(args.shaders, stages); err != nil {
			dev.Release()
			ctx.Release()
			return nil, nil, err
		}
	}
	if err := dev.RegisterStages(stages); err != nil {
		dev.Release()
		ctx.Release()
		return nil, nil, err
	}

	env := dev.Env()
	info("OpenGL %s on %s", env.Version, env.Renderer)
	return dev, func() {
		dev.Release()
		ctx.Release()
	}, nil
}

// loadShaderOverrides replaces the code of every stage that has a file <dir>/<stage id>.glsl.
func loadShaderOverrides(dir string, stages map[libgpu.StageID]libgpu.StageSource) error {
	for id, src := range stages {
		code, err := os.ReadFile(filepath.Join(dir, string(id)+".glsl"))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("shader %q: %w", id, err)
		}
		src.Code = string(code)
		stages[id] = src
		info("Using shader %q from %s", id, dir)
	}
	return nil
}
