package ibl_test

import (
	"bytes"
	"encoding/binary"
	"envlight/ibl"
	"envlight/libgpu"
	"math"
	"testing"
)

func TestEncodeRgbeChunk(t *testing.T) {
	data := randomFloats(300, 0, 100)
	buf := make([]byte, 400)
	checkBuf := bytes.NewBuffer(nil)
	if err := ibl.EncodeRgbe(checkBuf, data, false); err != nil {
		t.Fatal(err)
	}
	n := ibl.EncodeRgbeChunk(3, data, buf)
	if n != 400 {
		t.Fatalf("expected 400 bytes, got %d", n)
	}

	check := checkBuf.Bytes()
	for i := 0; i < len(buf); i++ {
		if buf[i] != check[i] {
			t.Errorf("Encoded byte %d should be %02x but was %02x\n", i, check[i], buf[i])
		}
	}
}

func TestRgbeRoundTrip(t *testing.T) {
	data := randomFloats(30000, 0, 100)
	buf := bytes.NewBuffer(nil)
	if err := ibl.EncodeRgbe(buf, data, false); err != nil {
		t.Fatal(err)
	}
	decoded, err := ibl.DecodeRgbe(buf, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != len(data) {
		t.Fatalf("Decoded length should be %d but was %d\n", len(data), len(decoded))
	}

	for i := 0; i < len(data); i += 3 {
		// precision is relative to the largest component of a pixel
		max := math.Max(float64(data[i]), math.Max(float64(data[i+1]), float64(data[i+2])))
		for c := 0; c < 3; c++ {
			if math.Abs(float64(decoded[i+c]-data[i+c])) > max/100 {
				t.Fatalf("value %d should be %v but was %v", i+c, data[i+c], decoded[i+c])
			}
		}
	}
}

func TestRgbeAlphaAndBlack(t *testing.T) {
	data := []float32{0, 0, 0, 0.5, 1, 2, 4, 0.25}
	enc, err := ibl.EncodeRgbeBytes(data, true)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := ibl.DecodeRgbeBytes(enc, true)
	if err != nil {
		t.Fatal(err)
	}
	if dec[0] != 0 || dec[1] != 0 || dec[2] != 0 || dec[3] != 1 {
		t.Errorf("black should stay black with alpha 1, got %v", dec[:4])
	}
	if math.Abs(float64(dec[6]-4)) > 0.04 || dec[7] != 1 {
		t.Errorf("unexpected second pixel %v", dec[4:])
	}

	if _, err := ibl.DecodeRgbeBytes([]byte{1, 2, 3}, false); err == nil {
		t.Error("expected an error for a partial pixel")
	}
}

func newTestEnv(size, levels int) *ibl.IblEnv {
	env := ibl.NewIblEnv(nil, size, levels)
	copy(env.All(), randomFloats(len(env.All()), 0.01, 8))
	return env
}

func assertEnvClose(t *testing.T, expected, actual *ibl.IblEnv) {
	t.Helper()
	if actual.BaseSize != expected.BaseSize || actual.Levels != expected.Levels {
		t.Fatalf("expected %d/%d, got %d/%d", expected.BaseSize, expected.Levels, actual.BaseSize, actual.Levels)
	}
	e, a := expected.All(), actual.All()
	for i := range e {
		if math.Abs(float64(e[i]-a[i])) > 8.0/100 {
			t.Fatalf("value %d should be %v but was %v", i, e[i], a[i])
		}
	}
}

func TestIblEnvRoundTrip(t *testing.T) {
	for _, level := range []int{-1, 0, 9} {
		env := newTestEnv(16, 5)
		buf := bytes.NewBuffer(nil)
		if err := ibl.EncodeIblEnv(buf, env, ibl.OptCompress(level)); err != nil {
			t.Fatal(err)
		}
		decoded, err := ibl.DecodeIblEnv(buf)
		if err != nil {
			t.Fatalf("compression %d: %v", level, err)
		}
		assertEnvClose(t, env, decoded)
	}
}

func TestIblEnvLayout(t *testing.T) {
	env := ibl.NewIblEnv(nil, 8, 4)
	if len(env.All()) != 6*(64+16+4+1)*3 {
		t.Fatalf("unexpected storage size %d", len(env.All()))
	}
	env.Face(2, libgpu.FaceNegativeZ)[0] = 7
	lvl := env.Level(2)
	if lvl[5*2*2*3] != 7 {
		t.Error("face -Z of level 2 is not where it should be")
	}
	if env.Size(3) != 1 {
		t.Errorf("expected level 3 to be 1x1, got %d", env.Size(3))
	}
}

// version 1.001.000 files have no level count and a single level
func TestDecodeIblEnvVersion1(t *testing.T) {
	env := newTestEnv(4, 1)
	buf := bytes.NewBuffer(nil)
	header := struct {
		Check, Version, Compression, Size uint32
	}{ibl.MagicNumberIBLENV, uint32(ibl.IblEnvVersion1_001_000), uint32(ibl.IblEnvCompressionNone), 4}
	binary.Write(buf, binary.LittleEndian, header)
	if err := ibl.EncodeRgbe(buf, env.All(), false); err != nil {
		t.Fatal(err)
	}

	decoded, err := ibl.DecodeIblEnv(buf)
	if err != nil {
		t.Fatal(err)
	}
	assertEnvClose(t, env, decoded)
}

func TestDecodeIblEnvCorrupt(t *testing.T) {
	if _, err := ibl.DecodeIblEnv(bytes.NewReader(make([]byte, 64))); err == nil {
		t.Error("expected an error for a zeroed header")
	}

	env := newTestEnv(4, 2)
	buf := bytes.NewBuffer(nil)
	ibl.EncodeIblEnv(buf, env)
	truncated := buf.Bytes()[:buf.Len()-10]
	if _, err := ibl.DecodeIblEnv(bytes.NewReader(truncated)); err == nil {
		t.Error("expected an error for truncated pixels")
	}
}

func TestIblEnvUploadDownload(t *testing.T) {
	dev := libgpu.NewSwDevice(1)
	env := newTestEnv(8, 4)
	tex, err := env.Upload(dev, "env")
	if err != nil {
		t.Fatal(err)
	}
	back, err := ibl.Download(dev, tex, 4)
	if err != nil {
		t.Fatal(err)
	}
	e, a := env.All(), back.All()
	for i := range e {
		if e[i] != a[i] {
			t.Fatalf("value %d should be %v but was %v", i, e[i], a[i])
		}
	}
}
