package sky

import (
	"envlight/ibl"
	"envlight/libgpu"
	"envlight/libutil"
	"fmt"
)

// CubemapResources are the textures the environment is rendered and filtered into.
// They are created and released together.
type CubemapResources struct {
	Raw      libgpu.Texture
	Filtered libgpu.Texture
	// nil unless MIS is enabled
	MarginalCDF    libgpu.Texture
	ConditionalCDF libgpu.Texture
	Resolution     Resolution
}

// MIS reports whether the light sampling distribution textures are allocated.
func (res *CubemapResources) MIS() bool {
	return res.MarginalCDF != nil && res.ConditionalCDF != nil
}

func (res *CubemapResources) all() []libgpu.Texture {
	list := []libgpu.Texture{res.Raw, res.Filtered}
	if res.MIS() {
		list = append(list, res.MarginalCDF, res.ConditionalCDF)
	}
	return list
}

// Live is false as soon as any of the textures was lost.
func (res *CubemapResources) Live() bool {
	for _, tex := range res.all() {
		if tex == nil || !tex.Live() {
			return false
		}
	}
	return true
}

func (res *CubemapResources) Release() {
	for _, tex := range res.all() {
		if tex != nil {
			tex.Release()
		}
	}
	res.Raw, res.Filtered, res.MarginalCDF, res.ConditionalCDF = nil, nil, nil, nil
}

// ResourcePool owns the cube map resources of one manager.
type ResourcePool struct {
	scopedLogger
	dev libgpu.Device
	res *CubemapResources
}

func NewResourcePool(dev libgpu.Device) *ResourcePool {
	return &ResourcePool{dev: dev}
}

// Resources returns the current set, nil before the first Ensure.
func (pool *ResourcePool) Resources() *CubemapResources {
	return pool.res
}

// Ensure returns resources matching cfg, recreating the whole set when the resolution or the MIS
// setting changed or when any texture was lost. recreated reports that all previous content is gone.
// A nil cfg uses the default resolution without MIS.
func (pool *ResourcePool) Ensure(cfg *EnvironmentConfig) (res *CubemapResources, recreated bool, err error) {
	resolution := DefaultResolution
	mis := false
	if cfg != nil {
		resolution = cfg.Resolution
		mis = cfg.UseMIS
	}
	if !resolution.Valid() {
		return pool.res, false, fmt.Errorf("%w: %d", ErrUnsupportedResolution, resolution)
	}
	if mis && !pool.dev.SupportsCompute() {
		pool.logger().Warn("device has no compute support, falling back to GGX convolution without MIS")
		mis = false
	}

	if pool.res != nil && pool.res.Resolution == resolution && pool.res.MIS() == mis && pool.res.Live() {
		return pool.res, false, nil
	}

	if pool.res != nil {
		pool.logger().Debug("releasing environment cube maps", "resolution", pool.res.Resolution, "live", pool.res.Live())
		pool.res.Release()
		pool.res = nil
	}

	res, err = pool.create(resolution, mis)
	if err != nil {
		pool.logger().Error("could not create environment cube maps", "resolution", resolution, "error", err)
		return nil, false, err
	}
	pool.logger().Debug("created environment cube maps", "resolution", resolution, "mis", mis)
	pool.res = res
	return res, true, nil
}

func (pool *ResourcePool) create(resolution Resolution, mis bool) (res *CubemapResources, err error) {
	var cleanup libutil.Cleanup
	defer func() {
		if err != nil {
			cleanup.Release()
		}
	}()

	res = &CubemapResources{Resolution: resolution}
	size := int(resolution)

	res.Raw, err = pool.dev.CreateTexture(libgpu.TextureDesc{
		Label:     "SkyboxCubemap",
		Dimension: libgpu.DimensionCube,
		Format:    libgpu.FormatRGBA16F,
		Width:     size,
		Height:    size,
	})
	if err != nil {
		return nil, fmt.Errorf("raw cube map: %w", err)
	}
	cleanup.Add(res.Raw)

	res.Filtered, err = pool.dev.CreateTexture(libgpu.TextureDesc{
		Label:     "SkyboxGGXCubemap",
		Dimension: libgpu.DimensionCube,
		Format:    libgpu.FormatRGBA16F,
		Width:     size,
		Height:    size,
	})
	if err != nil {
		return nil, fmt.Errorf("filtered cube map: %w", err)
	}
	cleanup.Add(res.Filtered)

	if !mis {
		return res, nil
	}

	res.MarginalCDF, err = pool.dev.CreateTexture(libgpu.TextureDesc{
		Label:       "MarginalRowDensities",
		Format:      libgpu.FormatR32F,
		Width:       ibl.LightSamplingHeight + 1,
		Height:      1,
		MipLevels:   1,
		RandomWrite: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marginal distribution: %w", err)
	}
	cleanup.Add(res.MarginalCDF)

	res.ConditionalCDF, err = pool.dev.CreateTexture(libgpu.TextureDesc{
		Label:       "ConditionalDensities",
		Format:      libgpu.FormatR32F,
		Width:       ibl.LightSamplingWidth,
		Height:      ibl.LightSamplingHeight,
		MipLevels:   1,
		RandomWrite: true,
	})
	if err != nil {
		return nil, fmt.Errorf("conditional distribution: %w", err)
	}
	return res, nil
}

// Release frees the resources. The next Ensure recreates them.
func (pool *ResourcePool) Release() {
	if pool.res != nil {
		pool.res.Release()
		pool.res = nil
	}
}
