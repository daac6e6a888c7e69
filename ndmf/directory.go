package ndmf

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// directory is the chain of index segments rooted at block 0. Segments are
// kept in an arena addressed by their start block.
type directory struct {
	store    *blockStore
	segments map[int32]*indexSegment
	logger   logrus.FieldLogger
}

func loadDirectory(store *blockStore, logger logrus.FieldLogger) (*directory, error) {

	d := &directory{
		store:    store,
		segments: map[int32]*indexSegment{},
		logger:   logger,
	}

	names := map[string]int32{}
	for block := int32(0); ; {
		if _, visited := d.segments[block]; visited {
			return nil, fmt.Errorf("%w: index chain loops back to segment %d", ErrCorrupt, block)
		}
		s, err := loadIndexSegment(store, block)
		if err != nil {
			return nil, err
		}
		for name := range s.used {
			if other, exists := names[name]; exists {
				return nil, fmt.Errorf("%w: name stored in index segments %d and %d", ErrCorrupt, other, block)
			}
			names[name] = block
		}
		d.segments[block] = s

		block = s.next()
		if block == 0 {
			break
		}
	}

	return d, nil
}

func (d *directory) root() *indexSegment {
	return d.segments[0]
}

func (d *directory) following(s *indexSegment) *indexSegment {
	next := s.next()
	if next == 0 {
		return nil
	}
	return d.segments[next]
}

// getSlot walks the chain looking for name. An entry found after a segment
// with room is migrated there. With canCreate a missing name gets the first
// empty slot of the chain, growing the tail or linking a new segment when
// there is none. The returned slot is reserved but not written for new
// entries.
func (d *directory) getSlot(name string, canCreate bool) (s *indexSegment, i int, found bool, err error) {

	var firstEmpty, previous *indexSegment

	s = d.root()
	for {
		if i, exists := s.used[name]; exists {
			if firstEmpty == nil {
				return s, i, true, nil
			}
			j := firstEmpty.popEmpty()
			if err := firstEmpty.occupy(j, s.slots[i].pointer, name); err != nil {
				return nil, -1, false, err
			}
			if err := s.clear(i); err != nil {
				return nil, -1, false, err
			}
			d.logger.WithField("from", s.start).WithField("to", firstEmpty.start).Debug("index entry migrated")
			return firstEmpty, j, true, nil
		}

		if firstEmpty == nil && s.hasEmpty() {
			firstEmpty = s
		}

		next := d.following(s)
		if next == nil {
			break
		}
		previous, s = s, next
	}

	if !canCreate {
		return nil, -1, false, nil
	}

	if firstEmpty != nil {
		return firstEmpty, firstEmpty.popEmpty(), false, nil
	}

	tail := s
	oldStart := tail.start
	ok, err := tail.grow(tail.start != 0)
	if err != nil {
		return nil, -1, false, err
	}
	if ok {
		if tail.start != oldStart {
			delete(d.segments, oldStart)
			d.segments[tail.start] = tail
			if err := previous.link(tail.start); err != nil {
				return nil, -1, false, err
			}
			d.logger.WithField("from", oldStart).WithField("to", tail.start).Debug("index segment relocated")
		}
		return tail, tail.popEmpty(), false, nil
	}

	created, err := createIndexSegment(d.store, d.store.layout.initialSlots())
	if err != nil {
		return nil, -1, false, err
	}
	d.segments[created.start] = created
	if err := tail.link(created.start); err != nil {
		return nil, -1, false, err
	}
	d.logger.WithField("tail", tail.start).WithField("segment", created.start).Debug("index segment linked")

	return created, created.popEmpty(), false, nil
}

func (d *directory) Len() int {
	n := 0
	for s := d.root(); s != nil; s = d.following(s) {
		n += len(s.used)
	}
	return n
}

func (d *directory) Contains(name string) (bool, error) {
	_, _, found, err := d.getSlot(name, false)
	return found, err
}

func (d *directory) Lookup(name string) (int32, bool, error) {
	s, i, found, err := d.getSlot(name, false)
	if err != nil || !found {
		return 0, false, err
	}
	return s.slots[i].pointer, true, nil
}

// Insert stores or replaces the pointer of name
func (d *directory) Insert(name string, pointer int32) (previous int32, existed bool, err error) {

	if pointer <= 0 {
		panic(fmt.Sprintf("insert of data pointer %d", pointer))
	}

	s, i, found, err := d.getSlot(name, true)
	if err != nil {
		return 0, false, err
	}

	if found {
		previous = s.slots[i].pointer
		if previous == pointer {
			return previous, true, nil
		}
		return previous, true, s.update(i, pointer)
	}

	return 0, false, s.occupy(i, pointer, name)
}

func (d *directory) Remove(name string) (previous int32, existed bool, err error) {

	s, i, found, err := d.getSlot(name, false)
	if err != nil || !found {
		return 0, false, err
	}

	previous = s.slots[i].pointer
	return previous, true, s.clear(i)
}

// Range follows the chain order, then the slot order inside every segment
func (d *directory) Range(f func(name string, pointer int32) bool) {
	for s := d.root(); s != nil; s = d.following(s) {
		for i, sl := range s.slots {
			if i == s.last() || sl.pointer <= 0 {
				continue
			}
			if !f(sl.name, sl.pointer) {
				return
			}
		}
	}
}

func (d *directory) segmentCount() int {
	return len(d.segments)
}
