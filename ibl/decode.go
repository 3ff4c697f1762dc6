package ibl

import (
	"bytes"
	"envlight/libio"
	"envlight/libutil"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// DecodeIblEnv reads an environment. Files written before mip levels were supported
// decode as a single level.
func DecodeIblEnv(r io.Reader) (env *IblEnv, err error) {
	br, ok := r.(*libio.BinaryReader)
	if !ok {
		br = libio.NewBinaryReader(r)
		defer br.Wrap(&err)
	}

	header := IblEnvHeader{}
	if !br.ReadRef(&header.iblEnvHeader1_001_000) {
		return nil, fmt.Errorf("expected environment header; byte 0x%08x", br.LastIndex)
	}

	if header.Check != MagicNumberIBLENV {
		return nil, fmt.Errorf("environment header is corrupt; byte 0x%08x", br.LastIndex)
	}

	switch header.Version {
	case IblEnvVersion1_001_000:
		header.Levels = 1
	case IblEnvVersion1_002_000:
		var levels uint32
		if !br.ReadUInt32(&levels) {
			return nil, fmt.Errorf("expected environment level count; byte 0x%08x", br.LastIndex)
		}
		header.Levels = levels
	default:
		return nil, fmt.Errorf("environment version %d unsupported; byte 0x%08x", header.Version, br.LastIndex)
	}

	size, levels := int(header.Size), int(header.Levels)
	if size <= 0 || levels <= 0 || levels > 1+libutil.Log2Floor(size) {
		return nil, fmt.Errorf("environment of size %d with %d levels is invalid", size, levels)
	}

	pixr := io.Reader(br)
	switch header.Compression {
	case IblEnvCompressionNone:
	case IblEnvCompressionLZ4, IblEnvCompressionLZ4Fast:
		pixr = lz4.NewReader(br)
	default:
		return nil, fmt.Errorf("environment compression id %d unsupported; byte 0x%08x", header.Compression, br.LastIndex)
	}

	pixels := calcCubeMapPixels(size, levels)
	data := make([]byte, pixels*4)
	if _, err = io.ReadFull(pixr, data); err != nil {
		return nil, fmt.Errorf("expected %d encoded pixels; %w", pixels, err)
	}

	colors, err := DecodeRgbe(bytes.NewReader(data), false)
	if err != nil {
		return nil, fmt.Errorf("decoding error: %w", err)
	}

	return NewIblEnv(colors, size, levels), nil
}
