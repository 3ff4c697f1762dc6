package ibl

import (
	"envlight/libio"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

type encodeSettings struct {
	compression IblEnvCompression
	level       lz4.CompressionLevel
}

type EncodeOption func(s *encodeSettings)

var lz4Levels = [...]lz4.CompressionLevel{lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4, lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9}

// OptCompress enables lz4 compression. Level 0 is the fast mode, 1 to 9 the high compression levels.
// A negative level disables compression.
func OptCompress(level int) EncodeOption {
	return func(s *encodeSettings) {
		switch {
		case level < 0:
			s.compression = IblEnvCompressionNone
		case level == 0:
			s.compression, s.level = IblEnvCompressionLZ4Fast, lz4.Fast
		default:
			s.compression, s.level = IblEnvCompressionLZ4, lz4Levels[min(level, len(lz4Levels)-1)]
		}
	}
}

// EncodeIblEnv writes env as a version 1.002.000 file with RGBE pixels.
func EncodeIblEnv(w io.Writer, env *IblEnv, options ...EncodeOption) (err error) {
	if err := env.validate(); err != nil {
		return err
	}
	settings := encodeSettings{}
	for _, opt := range options {
		opt(&settings)
	}

	bw, ok := w.(*libio.BinaryWriter)
	if !ok {
		bw = libio.NewBinaryWriter(w)
		defer bw.Wrap(&err)
	}

	header := IblEnvHeader{}
	header.Check = MagicNumberIBLENV
	header.Version = IblEnvVersion1_002_000
	header.Compression = settings.compression
	header.Size = uint32(env.BaseSize)
	header.Levels = uint32(env.Levels)
	if !bw.WriteRef(&header) {
		return fmt.Errorf("could not write environment header: %w", bw.Err)
	}

	if settings.compression == IblEnvCompressionNone {
		return writeRgbe(bw.Dst, env)
	}

	// the compressor is closed to flush it, the caller's writer stays open
	lzw := lz4.NewWriter(bw.Dst)
	if err := lzw.Apply(lz4.CompressionLevelOption(settings.level)); err != nil {
		return err
	}
	if err := writeRgbe(lzw, env); err != nil {
		return err
	}
	return lzw.Close()
}

func writeRgbe(w io.Writer, env *IblEnv) error {
	if err := EncodeRgbe(w, env.All(), false); err != nil {
		return fmt.Errorf("could not write environment pixels: %w", err)
	}
	return nil
}
