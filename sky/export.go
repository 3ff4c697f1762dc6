package sky

import (
	"envlight/libgpu"
	"envlight/libio"
	"fmt"
)

// ExportToFlatTexture reads mip 0 of the raw environment into an image of size
// resolution*6 x resolution with the faces left to right in libgpu.CubeFaces order.
// The image has its origin at the bottom left, so face rows are flipped on the way in.
func (m *Manager) ExportToFlatTexture() (*libio.FloatImage, error) {
	if m.settings == nil {
		return nil, ErrNoSettings
	}
	if m.settings.Source == nil && m.settings.Override == nil {
		return nil, ErrNoRenderer
	}
	res := m.pool.Resources()
	if res == nil || !res.Live() {
		return nil, fmt.Errorf("environment has not been rendered: %w", libgpu.ErrTextureReleased)
	}

	size := int(res.Resolution)
	img := libio.NewFloatImage(nil, 4, size*6, size)
	for i, face := range libgpu.CubeFaces {
		pix, err := m.dev.ReadPixels(res.Raw, face, 0)
		if err != nil {
			return nil, fmt.Errorf("could not read face %v: %w", face, err)
		}
		img.SetRows(i*size, 0, size, size, 4, pix, true)
	}
	return img, nil
}
