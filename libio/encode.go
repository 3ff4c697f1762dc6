package libio

import (
	"fmt"
	"io"

	"github.com/chewxy/math32"
	"github.com/pierrec/lz4/v4"
)

// pixelCodec stores the pixels that follow the f32 header.
type pixelCodec struct {
	encode func(bw *BinaryWriter, img *FloatImage) error
	decode func(br *BinaryReader, channels, count int) ([]float32, error)
}

var pixelCodecs = map[FloatImageCompression]pixelCodec{
	FloatImageCompressionNone:            {encode: encodeRaw, decode: decodeRaw},
	FloatImageCompressionFixedPoint16Lz4: {encode: encodeFixedPoint16Lz4, decode: decodeFixedPoint16Lz4},
}

// EncodeFloatImage writes img as an f32 file.
func EncodeFloatImage(w io.Writer, img *FloatImage, compression FloatImageCompression) (err error) {
	codec, ok := pixelCodecs[compression]
	if !ok {
		return fmt.Errorf("unknown f32 compression %d", compression)
	}

	bw, ok := w.(*BinaryWriter)
	if !ok {
		bw = NewBinaryWriter(w)
		defer bw.Wrap(&err)
	}

	if !bw.WriteRef(FloatImageHeader{
		Check:       MagicNumberF32,
		Version:     F32Version1_001_000,
		Width:       uint32(img.Width),
		Height:      uint32(img.Height),
		Channels:    uint8(img.Channels),
		Compression: compression,
	}) {
		return fmt.Errorf("could not write f32 header: %w", bw.Err)
	}

	if err := codec.encode(bw, img); err != nil {
		return fmt.Errorf("could not write f32 pixels: %w", err)
	}
	return nil
}

func encodeRaw(bw *BinaryWriter, img *FloatImage) error {
	bw.WriteRef(img.Pix)
	return bw.Err
}

// channelRange maps one channel linearly onto the 16 bit range.
type channelRange struct {
	Min, Max float32
}

func measureChannel(pix []float32, channels, ch int) channelRange {
	if len(pix) == 0 {
		return channelRange{}
	}
	r := channelRange{Min: math32.Inf(1), Max: math32.Inf(-1)}
	for i := ch; i < len(pix); i += channels {
		r.Min = math32.Min(r.Min, pix[i])
		r.Max = math32.Max(r.Max, pix[i])
	}
	return r
}

func (r channelRange) quantize(v float32) uint16 {
	span := r.Max - r.Min
	if span <= 0 {
		return 0
	}
	return uint16((v-r.Min)/span*0xffff + 0.5)
}

func (r channelRange) dequantize(q uint16) float32 {
	return float32(q)/0xffff*(r.Max-r.Min) + r.Min
}

// The lz4 stream holds, per channel, the range followed by the quantized values.
func encodeFixedPoint16Lz4(bw *BinaryWriter, img *FloatImage) error {
	lzw := lz4.NewWriter(bw.Dst)
	if err := lzw.Apply(lz4.CompressionLevelOption(lz4.Fast)); err != nil {
		return err
	}

	out := NewBinaryWriter(lzw)
	out.Order = bw.Order
	for ch := 0; ch < img.Channels; ch++ {
		r := measureChannel(img.Pix, img.Channels, ch)
		out.WriteFloat32(r.Min)
		out.WriteFloat32(r.Max)
		for i := ch; i < len(img.Pix); i += img.Channels {
			out.WriteUInt16(r.quantize(img.Pix[i]))
		}
	}
	if out.Err != nil {
		return out.Err
	}
	return lzw.Close()
}
