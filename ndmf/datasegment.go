package ndmf

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/fulldump/ndmf/compression"
)

// dataSegment body: [compression id][compressed payload]
type dataSegment[V any] struct {
	segment
	value V
	// loaded is set when value holds a private copy of the record
	loaded bool
}

func newDataSegment[V any](store *blockStore, value V) *dataSegment[V] {
	return &dataSegment[V]{
		segment: segment{
			store:        store,
			copyOnResize: false,
		},
		value: value,
	}
}

// openDataSegment binds a data segment already on disk, the pointer is
// checked against the free set before reading anything.
func openDataSegment[V any](store *blockStore, start int32) (*dataSegment[V], error) {

	if start <= 0 || start >= store.blocks() {
		return nil, fmt.Errorf("%w: data pointer %d out of file (%d blocks)", ErrCorrupt, start, store.blocks())
	}
	if store.isFree(start) {
		return nil, fmt.Errorf("%w: data pointer %d references a free block", ErrCorrupt, start)
	}

	size, err := store.readHeader(start)
	if err != nil {
		return nil, err
	}
	if size < headerSize+1 {
		return nil, fmt.Errorf("%w: data segment %d has size %d", ErrCorrupt, start, size)
	}
	if start+store.layout.blocksFor(size) > store.blocks() {
		return nil, fmt.Errorf("%w: data segment %d ends after end of file", ErrCorrupt, start)
	}

	return &dataSegment[V]{
		segment: segment{
			store:        store,
			start:        start,
			size:         size,
			allocated:    true,
			copyOnResize: false,
		},
	}, nil
}

func (d *dataSegment[V]) writeData(codec DataCodec[V], method compression.Method) error {

	buf := &bytes.Buffer{}
	buf.Write(make([]byte, headerSize+1))

	w, err := method.NewWriter(buf)
	if err != nil {
		return fmt.Errorf("compression %s: %w", method.Name(), err)
	}
	if err := codec.Encode(w, d.value); err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("compression %s: %w", method.Name(), err)
	}

	body := buf.Bytes()
	size := int32(len(body))

	ok, err := d.resize(size, true)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("resize data segment to %d bytes rejected", size)
	}

	binary.BigEndian.PutUint32(body, uint32(size))
	body[headerSize] = method.ID()

	return d.store.writeAt(body, d.start, 0)
}

func (d *dataSegment[V]) readData(codec DataCodec[V], registry *compression.Registry) (V, error) {

	var value V

	content := make([]byte, d.size-headerSize)
	if err := d.store.readAt(content, d.start, headerSize); err != nil {
		return value, err
	}

	method, err := registry.Lookup(content[0])
	if err != nil {
		return value, fmt.Errorf("%w: data segment %d: %w", ErrCorrupt, d.start, err)
	}

	r, err := method.NewReader(bytes.NewReader(content[1:]))
	if err != nil {
		return value, fmt.Errorf("%w: data segment %d: %w", ErrCorrupt, d.start, err)
	}
	defer r.Close()

	value, err = codec.Decode(r)
	if err != nil {
		return value, fmt.Errorf("%w: data segment %d: decode: %w", ErrCorrupt, d.start, err)
	}

	d.value = value
	return value, nil
}
