package ndmf

import (
	"encoding/binary"
	"fmt"
)

type slot struct {
	pointer int32
	name    string
}

// indexSegment is a fixed capacity array of slots. The last slot is never
// used for an entry, it links to the next segment of the chain when its
// pointer is negative.
type indexSegment struct {
	segment
	slots []slot
	used  map[string]int
	empty []int
}

func loadIndexSegment(store *blockStore, start int32) (*indexSegment, error) {

	layout := store.layout

	if start < 0 || start >= store.blocks() || store.isFree(start) {
		return nil, fmt.Errorf("%w: index segment %d is not allocated", ErrCorrupt, start)
	}

	size, err := store.readHeader(start)
	if err != nil {
		return nil, err
	}
	n := layout.slotsFor(size)
	if size <= 0 || n < 2 {
		return nil, fmt.Errorf("%w: index segment %d has size %d", ErrCorrupt, start, size)
	}
	if start+layout.blocksFor(size) > store.blocks() {
		return nil, fmt.Errorf("%w: index segment %d ends after end of file", ErrCorrupt, start)
	}

	content := make([]byte, n*layout.slotSize())
	if err := store.readAt(content, start, headerSize); err != nil {
		return nil, err
	}

	s := &indexSegment{
		segment: segment{
			store:        store,
			start:        start,
			size:         size,
			allocated:    true,
			copyOnResize: true,
		},
		slots: make([]slot, n),
		used:  map[string]int{},
	}

	for i := range s.slots {
		b := content[i*layout.slotSize() : (i+1)*layout.slotSize()]
		pointer := int32(binary.BigEndian.Uint32(b))
		name := string(b[pointerSize:])
		s.slots[i] = slot{pointer: pointer, name: name}

		last := i == n-1
		switch {
		case pointer < 0 && !last:
			return nil, fmt.Errorf("%w: index segment %d slot %d has link pointer %d", ErrCorrupt, start, i, pointer)
		case pointer > 0 && last:
			return nil, fmt.Errorf("%w: index segment %d last slot has data pointer %d", ErrCorrupt, start, pointer)
		case pointer > 0:
			if _, exists := s.used[name]; exists {
				return nil, fmt.Errorf("%w: index segment %d has duplicated name at slot %d", ErrCorrupt, start, i)
			}
			s.used[name] = i
		case pointer == 0 && !last:
			s.empty = append(s.empty, i)
		}
	}

	return s, nil
}

func createIndexSegment(store *blockStore, slots int) (*indexSegment, error) {

	s := &indexSegment{
		segment: segment{
			store:        store,
			copyOnResize: true,
		},
		slots: make([]slot, slots),
		used:  map[string]int{},
	}

	size := store.layout.indexSizeFor(slots)
	ok, err := s.resize(size, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("allocate index segment of %d bytes rejected", size)
	}

	if err := store.writeAt(make([]byte, size-headerSize), s.start, headerSize); err != nil {
		return nil, err
	}

	blank := s.blankName()
	for i := range s.slots {
		s.slots[i].name = blank
		if i < slots-1 {
			s.empty = append(s.empty, i)
		}
	}

	return s, nil
}

func (s *indexSegment) blankName() string {
	return string(make([]byte, s.store.layout.NameSize))
}

func (s *indexSegment) last() int {
	return len(s.slots) - 1
}

// next returns the block of the following segment, 0 for the chain tail
func (s *indexSegment) next() int32 {
	pointer := s.slots[s.last()].pointer
	if pointer < 0 {
		return -pointer
	}
	return 0
}

func (s *indexSegment) hasEmpty() bool {
	return len(s.empty) > 0
}

func (s *indexSegment) popEmpty() int {
	i := s.empty[0]
	s.empty = s.empty[1:]
	return i
}

func (s *indexSegment) writeSlot(i int, pointer int32, name string) error {
	b := make([]byte, s.store.layout.slotSize())
	binary.BigEndian.PutUint32(b, uint32(pointer))
	copy(b[pointerSize:], name)

	err := s.store.writeAt(b, s.start, headerSize+i*s.store.layout.slotSize())
	if err != nil {
		return err
	}
	s.slots[i] = slot{pointer: pointer, name: name}
	return nil
}

// occupy stores an entry into slot i, already taken from the empty queue
func (s *indexSegment) occupy(i int, pointer int32, name string) error {
	if s.slots[i].pointer != 0 || i == s.last() {
		panic(fmt.Sprintf("index segment %d: slot %d is not empty", s.start, i))
	}
	if err := s.writeSlot(i, pointer, name); err != nil {
		return err
	}
	s.used[name] = i
	return nil
}

func (s *indexSegment) update(i int, pointer int32) error {
	return s.writeSlot(i, pointer, s.slots[i].name)
}

func (s *indexSegment) clear(i int) error {
	name := s.slots[i].name
	if err := s.writeSlot(i, 0, s.blankName()); err != nil {
		return err
	}
	delete(s.used, name)
	s.empty = append(s.empty, i)
	return nil
}

func (s *indexSegment) link(next int32) error {
	return s.writeSlot(s.last(), -next, s.blankName())
}

// grow adds one slot to a chain tail. The former link slot becomes a regular
// empty slot.
func (s *indexSegment) grow(allowReallocate bool) (bool, error) {

	if s.next() != 0 {
		panic(fmt.Sprintf("index segment %d: grow on a linked segment", s.start))
	}

	n := len(s.slots)
	if n >= s.store.layout.maxSlots() {
		return false, nil
	}

	ok, err := s.resize(s.store.layout.indexSizeFor(n+1), allowReallocate)
	if err != nil || !ok {
		return false, err
	}

	s.slots = append(s.slots, slot{})
	if err := s.writeSlot(n, 0, s.blankName()); err != nil {
		return false, err
	}
	s.empty = append(s.empty, n-1)

	return true, nil
}
