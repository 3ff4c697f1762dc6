package libio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

type BinaryReader struct {
	Order     binary.ByteOrder
	Src       io.Reader
	Index     int
	LastIndex int
	Err       error
	buf       [8]byte
}

func NewBinaryReader(r io.Reader) *BinaryReader {
	return &BinaryReader{Src: r, Order: binary.LittleEndian}
}

func (br *BinaryReader) read(n int) (ok bool) {
	if br.Err != nil {
		return false
	}
	nread, err := io.ReadFull(br.Src, br.buf[:n])
	br.LastIndex = br.Index
	br.Index += nread
	if err != nil {
		br.Err = err
		return false
	}
	return true
}

func (br *BinaryReader) Read(p []byte) (n int, err error) {
	n, err = br.Src.Read(p)
	br.LastIndex = br.Index
	br.Index += n
	return n, err
}

func (br *BinaryReader) ReadUInt16(v *uint16) (ok bool) {
	if !br.read(2) {
		return false
	}
	*v = br.Order.Uint16(br.buf[:2])
	return true
}

func (br *BinaryReader) ReadUInt32(v *uint32) (ok bool) {
	if !br.read(4) {
		return false
	}
	*v = br.Order.Uint32(br.buf[:4])
	return true
}

func (br *BinaryReader) ReadFloat32(v *float32) (ok bool) {
	var bits uint32
	if !br.ReadUInt32(&bits) {
		return false
	}
	*v = math.Float32frombits(bits)
	return true
}

// ReadRef reads fixed size data, see binary.Read
func (br *BinaryReader) ReadRef(data any) (ok bool) {
	if br.Err != nil {
		return false
	}
	err := binary.Read(br.Src, br.Order, data)
	br.Err = err
	br.LastIndex = br.Index
	if err == nil {
		br.Index += binary.Size(data)
	}
	return err == nil
}

// Wrap joins the reader's sticky error into err.
// Meant to be deferred by decoders that own the reader.
func (br *BinaryReader) Wrap(err *error) {
	if br.Err == nil {
		return
	}
	if *err == nil {
		*err = br.Err
	} else if *err != br.Err {
		*err = fmt.Errorf("%v: %w", *err, br.Err)
	}
}

type BinaryWriter struct {
	Order binary.ByteOrder
	Dst   io.Writer
	Err   error
	buf   [8]byte
}

func NewBinaryWriter(w io.Writer) *BinaryWriter {
	return &BinaryWriter{Dst: w, Order: binary.LittleEndian}
}

func (bw *BinaryWriter) WriteBytes(p []byte) (ok bool) {
	if bw.Err != nil {
		return false
	}
	_, err := bw.Dst.Write(p)
	if err != nil {
		bw.Err = err
		return false
	}
	return true
}

func (bw *BinaryWriter) Write(p []byte) (n int, err error) {
	return bw.Dst.Write(p)
}

func (bw *BinaryWriter) WriteUInt16(v uint16) (ok bool) {
	bw.Order.PutUint16(bw.buf[:2], v)
	return bw.WriteBytes(bw.buf[:2])
}

func (bw *BinaryWriter) WriteUInt32(v uint32) (ok bool) {
	bw.Order.PutUint32(bw.buf[:4], v)
	return bw.WriteBytes(bw.buf[:4])
}

func (bw *BinaryWriter) WriteFloat32(v float32) (ok bool) {
	return bw.WriteUInt32(math.Float32bits(v))
}

// WriteRef writes fixed size data, see binary.Write
func (bw *BinaryWriter) WriteRef(data any) (ok bool) {
	if bw.Err != nil {
		return false
	}
	err := binary.Write(bw.Dst, bw.Order, data)
	bw.Err = err
	return err == nil
}

// Wrap joins the writer's sticky error into err.
func (bw *BinaryWriter) Wrap(err *error) {
	if bw.Err == nil {
		return
	}
	if *err == nil {
		*err = bw.Err
	} else if *err != bw.Err {
		*err = fmt.Errorf("%v: %w", *err, bw.Err)
	}
}
