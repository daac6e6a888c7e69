package ndmf

import (
	"bytes"
	"errors"
	"testing"

	. "github.com/fulldump/biff"
)

func TestStringNames(t *testing.T) {

	names := StringNames(8)
	AssertEqual(names.Size(), 8)

	Alternative("Short name", func(a *A) {
		b, err := names.MarshalName("abc")
		a.AssertNil(err)
		a.AssertEqual(b, []byte("abc"))

		name, err := names.UnmarshalName([]byte("abc\x00\x00\x00\x00\x00"))
		a.AssertNil(err)
		a.AssertEqual(name, "abc")
	})

	Alternative("Too long", func(a *A) {
		_, err := names.MarshalName("123456789")
		a.AssertTrue(errors.Is(err, ErrNameTooLong))
	})

	Alternative("Zero bytes", func(a *A) {
		_, err := names.MarshalName("a\x00b")
		a.AssertNotNil(err)
	})
}

func TestDataCodecs(t *testing.T) {

	type Point struct {
		X, Y int
		Name string
	}

	Alternative("JSON", func(a *A) {
		codec := JSON[Point]()
		buf := &bytes.Buffer{}
		a.AssertNil(codec.Encode(buf, Point{X: 1, Y: 2, Name: "p"}))
		a.AssertTrue(bytes.Contains(buf.Bytes(), []byte(`"Name":"p"`)))

		p, err := codec.Decode(buf)
		a.AssertNil(err)
		a.AssertEqual(p, Point{X: 1, Y: 2, Name: "p"})
	})

	Alternative("Gob", func(a *A) {
		codec := Gob[Point]()
		buf := &bytes.Buffer{}
		a.AssertNil(codec.Encode(buf, Point{X: 3, Y: 4, Name: "q"}))

		p, err := codec.Decode(buf)
		a.AssertNil(err)
		a.AssertEqual(p, Point{X: 3, Y: 4, Name: "q"})
	})

	Alternative("Strings", func(a *A) {
		buf := &bytes.Buffer{}
		a.AssertNil(Strings.Encode(buf, "hello"))

		s, err := Strings.Decode(buf)
		a.AssertNil(err)
		a.AssertEqual(s, "hello")
	})

	Alternative("Invalid JSON", func(a *A) {
		_, err := JSON[Point]().Decode(bytes.NewBufferString("{"))
		a.AssertNotNil(err)
	})
}
