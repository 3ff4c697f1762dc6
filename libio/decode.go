package libio

import (
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// DecodeFloatImage reads an f32 file.
func DecodeFloatImage(r io.Reader) (img *FloatImage, err error) {
	br, ok := r.(*BinaryReader)
	if !ok {
		br = NewBinaryReader(r)
		defer br.Wrap(&err)
	}

	header := FloatImageHeader{}
	switch {
	case !br.ReadRef(&header):
		return nil, fmt.Errorf("expected f32 header; byte 0x%08x", br.LastIndex)
	case header.Check != MagicNumberF32:
		return nil, fmt.Errorf("f32 header is corrupt; byte 0x%08x", br.LastIndex)
	case header.Version != F32Version1_001_000:
		return nil, fmt.Errorf("f32 version %d unsupported; byte 0x%08x", header.Version, br.LastIndex)
	}

	codec, ok := pixelCodecs[header.Compression]
	if !ok {
		return nil, fmt.Errorf("unknown f32 compression %d; byte 0x%08x", header.Compression, br.LastIndex)
	}

	width, height, channels := int(header.Width), int(header.Height), int(header.Channels)
	pix, err := codec.decode(br, channels, width*height)
	if err != nil {
		return nil, fmt.Errorf("could not read f32 pixels: %w", err)
	}
	return NewFloatImage(pix, channels, width, height), nil
}

func decodeRaw(br *BinaryReader, channels, count int) ([]float32, error) {
	pix := make([]float32, count*channels)
	br.ReadRef(pix)
	return pix, br.Err
}

func decodeFixedPoint16Lz4(br *BinaryReader, channels, count int) ([]float32, error) {
	in := NewBinaryReader(lz4.NewReader(br.Src))
	in.Order = br.Order

	pix := make([]float32, count*channels)
	quantized := make([]uint16, count)
	for ch := 0; ch < channels; ch++ {
		var r channelRange
		in.ReadFloat32(&r.Min)
		in.ReadFloat32(&r.Max)
		in.ReadRef(quantized)
		if in.Err != nil {
			return nil, in.Err
		}
		for i, q := range quantized {
			pix[i*channels+ch] = r.dequantize(q)
		}
	}
	return pix, nil
}
