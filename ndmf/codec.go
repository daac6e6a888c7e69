package ndmf

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/go-json-experiment/json"
)

// NameCodec serializes names into at most Size() bytes. The engine pads names
// with zeros up to Size() and compares them by their padded bytes.
type NameCodec[K any] interface {
	Size() int
	MarshalName(name K) ([]byte, error)
	UnmarshalName(b []byte) (K, error)
}

// DataCodec serializes values, the engine compresses its output.
type DataCodec[V any] interface {
	Encode(w io.Writer, value V) error
	Decode(r io.Reader) (V, error)
}

// ValueCloner is implemented by codecs whose decoded values can be kept in
// memory. Clone must return a value sharing no memory with v. Values of codecs
// without it are decoded from disk on every read.
type ValueCloner[V any] interface {
	Clone(v V) V
}

type stringNames struct {
	size int
}

// StringNames stores names as raw strings of up to size bytes. Names can not
// contain zero bytes.
func StringNames(size int) NameCodec[string] {
	return stringNames{size: size}
}

func (c stringNames) Size() int {
	return c.size
}

func (c stringNames) MarshalName(name string) ([]byte, error) {
	if len(name) > c.size {
		return nil, fmt.Errorf("%w: '%s' is %d bytes, max %d", ErrNameTooLong, name, len(name), c.size)
	}
	if bytes.IndexByte([]byte(name), 0) >= 0 {
		return nil, fmt.Errorf("name '%s' contains zero bytes", name)
	}
	return []byte(name), nil
}

func (c stringNames) UnmarshalName(b []byte) (string, error) {
	return string(bytes.TrimRight(b, "\x00")), nil
}

type bytesCodec struct{}

// Bytes stores values as they are
var Bytes DataCodec[[]byte] = bytesCodec{}

func (bytesCodec) Encode(w io.Writer, value []byte) error {
	_, err := w.Write(value)
	return err
}

func (bytesCodec) Decode(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

func (bytesCodec) Clone(v []byte) []byte {
	return bytes.Clone(v)
}

type stringsCodec struct{}

var Strings DataCodec[string] = stringsCodec{}

func (stringsCodec) Encode(w io.Writer, value string) error {
	_, err := io.WriteString(w, value)
	return err
}

func (stringsCodec) Decode(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	return string(b), err
}

// strings are immutable
func (stringsCodec) Clone(v string) string {
	return v
}

type jsonCodec[V any] struct{}

func JSON[V any]() DataCodec[V] {
	return jsonCodec[V]{}
}

func (jsonCodec[V]) Encode(w io.Writer, value V) error {
	return json.MarshalWrite(w, value)
}

func (jsonCodec[V]) Decode(r io.Reader) (V, error) {
	var value V
	err := json.UnmarshalRead(r, &value)
	return value, err
}

type gobCodec[V any] struct{}

func Gob[V any]() DataCodec[V] {
	return gobCodec[V]{}
}

func (gobCodec[V]) Encode(w io.Writer, value V) error {
	return gob.NewEncoder(w).Encode(value)
}

func (gobCodec[V]) Decode(r io.Reader) (V, error) {
	var value V
	err := gob.NewDecoder(r).Decode(&value)
	return value, err
}
