package ibl

import (
	"errors"
	"fmt"
	"io"

	"github.com/chewxy/math32"
)

// encodeRgbeChunk packs groups of components floats into shared exponent RGBE bytes.
// Only the first three components of a group are kept. Returns the number of bytes written.
func encodeRgbeChunk(components int, data []float32, buf []byte) int {
	n := len(data) / components
	if len(buf) < n*4 {
		panic(fmt.Errorf("buffer too small, only %d of %d", len(buf), n*4))
	}

	for i := 0; i < n; i++ {
		r := math32.Max(data[i*components+0], 0)
		g := math32.Max(data[i*components+1], 0)
		b := math32.Max(data[i*components+2], 0)
		o := buf[i*4 : i*4+4 : i*4+4]

		v := math32.Max(r, math32.Max(g, b))
		if v < 1e-32 {
			o[0], o[1], o[2], o[3] = 0, 0, 0, 0
			continue
		}

		m, e := math32.Frexp(v)
		scale := m * 256 / v
		o[0] = byte(math32.Min(r*scale, 255))
		o[1] = byte(math32.Min(g*scale, 255))
		o[2] = byte(math32.Min(b*scale, 255))
		o[3] = byte(e + 128)
	}

	return n * 4
}

// decodeRgbeChunk unpacks RGBE bytes into groups of components floats.
// A fourth component is set to 1. Returns the number of floats written.
func decodeRgbeChunk(components int, data []byte, buf []float32) int {
	n := len(data) / 4
	for i := 0; i < n; i++ {
		p := data[i*4 : i*4+4 : i*4+4]
		o := buf[i*components : (i+1)*components : (i+1)*components]

		if p[3] == 0 {
			o[0], o[1], o[2] = 0, 0, 0
		} else {
			f := math32.Ldexp(1, int(p[3])-(128+8))
			o[0] = (float32(p[0]) + 0.5) * f
			o[1] = (float32(p[1]) + 0.5) * f
			o[2] = (float32(p[2]) + 0.5) * f
		}
		if components == 4 {
			o[3] = 1
		}
	}
	return n * components
}

func rgbeComponents(hasAlpha bool) int {
	if hasAlpha {
		return 4
	}
	return 3
}

func EncodeRgbe(w io.Writer, data []float32, hasAlpha bool) error {
	components := rgbeComponents(hasAlpha)
	// 4096 pixels per chunk
	rsize := 4096 * components
	buf := make([]byte, 4096*4)

	if len(data)%components != 0 {
		return fmt.Errorf("source not a multiple of %d values", components)
	}

	for i := 0; i < len(data); i += rsize {
		j := min(i+rsize, len(data))
		n := encodeRgbeChunk(components, data[i:j], buf)

		if _, err := w.Write(buf[:n]); err != nil {
			return err
		}
	}
	return nil
}

// DecodeRgbe reads RGBE pixels until the reader is exhausted.
func DecodeRgbe(r io.Reader, hasAlpha bool) ([]float32, error) {
	components := rgbeComponents(hasAlpha)
	rbuf := make([]byte, 4096*4)
	var result []float32

	for {
		rn, err := io.ReadFull(r, rbuf)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if rn%4 != 0 {
			return nil, fmt.Errorf("source not a multiple of 4 bytes")
		}

		start := len(result)
		result = append(result, make([]float32, rn/4*components)...)
		decodeRgbeChunk(components, rbuf[:rn], result[start:])

		if err != nil {
			break
		}
	}

	return result, nil
}

func EncodeRgbeBytes(data []float32, hasAlpha bool) ([]byte, error) {
	components := rgbeComponents(hasAlpha)
	if len(data)%components != 0 {
		return nil, fmt.Errorf("source not a multiple of %d values", components)
	}

	result := make([]byte, len(data)/components*4)
	n := encodeRgbeChunk(components, data, result)
	return result[:n], nil
}

func DecodeRgbeBytes(data []byte, hasAlpha bool) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("source not a multiple of 4 bytes")
	}

	components := rgbeComponents(hasAlpha)
	result := make([]float32, components*len(data)/4)
	n := decodeRgbeChunk(components, data, result)
	return result[:n], nil
}
