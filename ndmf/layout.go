package ndmf

import (
	"fmt"
)

const headerSize = 4
const pointerSize = 4

// Layout holds the geometry of a file. It is not persisted, every process
// opening the same file must use the same values.
type Layout struct {
	BlockSize        int `json:"block_size"`
	NameSize         int `json:"name_size"`
	IndexSegmentSize int `json:"index_segment_size"`
}

func DefaultLayout() Layout {
	return Layout{
		BlockSize:        512,
		NameSize:         32,
		IndexSegmentSize: 8192,
	}
}

func (l Layout) slotSize() int {
	return pointerSize + l.NameSize
}

// slotsFor returns the number of slots an index segment of `size` bytes holds
func (l Layout) slotsFor(size int32) int {
	return (int(size) - headerSize) / l.slotSize()
}

func (l Layout) indexSizeFor(slots int) int32 {
	return int32(headerSize + slots*l.slotSize())
}

func (l Layout) maxSlots() int {
	return (l.IndexSegmentSize - headerSize) / l.slotSize()
}

// initialSlots is the capacity of a freshly linked index segment: what fits in
// one block, at least one usable slot plus the link.
func (l Layout) initialSlots() int {
	n := (l.BlockSize - headerSize) / l.slotSize()
	if n < 2 {
		n = 2
	}
	if max := l.maxSlots(); n > max {
		n = max
	}
	return n
}

func (l Layout) blocksFor(size int32) int32 {
	bs := int32(l.BlockSize)
	return (size + bs - 1) / bs
}

func (l Layout) offset(block int32) int64 {
	return int64(block) * int64(l.BlockSize)
}

func (l Layout) Validate() error {
	if l.NameSize <= 0 {
		return fmt.Errorf("%w: name size must be positive", ErrInvalidLayout)
	}
	if l.BlockSize < headerSize+2*l.slotSize() {
		return fmt.Errorf("%w: block size %d cannot hold two slots of %d bytes", ErrInvalidLayout, l.BlockSize, l.slotSize())
	}
	if l.IndexSegmentSize < l.BlockSize {
		return fmt.Errorf("%w: index segment size %d smaller than block size %d", ErrInvalidLayout, l.IndexSegmentSize, l.BlockSize)
	}
	return nil
}
