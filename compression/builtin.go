package compression

import (
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

const (
	IdNone    byte = 0
	IdDeflate byte = 1
	IdZstd    byte = 2
	IdS2      byte = 3
)

var (
	None    Method = &none{}
	Deflate Method = &deflate{level: flate.DefaultCompression}
	Zstd    Method = &zstdMethod{}
	S2      Method = &s2Method{}
)

var builtins = []Method{None, Deflate, Zstd, S2}

type none struct{}

func (*none) ID() byte     { return IdNone }
func (*none) Name() string { return "none" }

func (*none) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (*none) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

type deflate struct {
	level int
}

func (*deflate) ID() byte     { return IdDeflate }
func (*deflate) Name() string { return "deflate" }

func (d *deflate) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return flate.NewWriter(w, d.level)
}

func (*deflate) NewReader(r io.Reader) (io.ReadCloser, error) {
	return flate.NewReader(r), nil
}

type zstdMethod struct{}

func (*zstdMethod) ID() byte     { return IdZstd }
func (*zstdMethod) Name() string { return "zstd" }

func (*zstdMethod) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
}

func (*zstdMethod) NewReader(r io.Reader) (io.ReadCloser, error) {
	d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return d.IOReadCloser(), nil
}

type s2Method struct{}

func (*s2Method) ID() byte     { return IdS2 }
func (*s2Method) Name() string { return "s2" }

func (*s2Method) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return s2.NewWriter(w, s2.WriterConcurrency(1)), nil
}

func (*s2Method) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(s2.NewReader(r)), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
