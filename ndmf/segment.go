package ndmf

import (
	"fmt"
)

// segment is a block aligned run of bytes whose first 4 bytes hold its total
// length. Data and index segments share this resize protocol, they only
// differ on copyOnResize.
type segment struct {
	store        *blockStore
	start        int32
	size         int32
	allocated    bool
	copyOnResize bool
}

func (s *segment) blocks() int32 {
	if !s.allocated {
		return 0
	}
	return s.store.layout.blocksFor(s.size)
}

func (s *segment) end() int32 {
	return s.start + s.blocks() - 1
}

// resize changes the segment length to newSize bytes. It returns false when
// more room is needed and allowReallocate forbids moving the segment.
func (s *segment) resize(newSize int32, allowReallocate bool) (bool, error) {

	if newSize <= headerSize {
		return false, fmt.Errorf("segment size %d too small", newSize)
	}

	if !s.allocated {
		if !allowReallocate {
			return false, nil
		}
		start, err := s.store.getClaim(s.store.layout.blocksFor(newSize))
		if err != nil {
			return false, err
		}
		s.start = start
		s.size = newSize
		s.allocated = true
		return true, s.store.writeHeader(s.start, s.size)
	}

	if newSize == s.size {
		return true, nil
	}

	oldBlocks := s.blocks()
	newBlocks := s.store.layout.blocksFor(newSize)

	if !s.copyOnResize {
		// the body is going to be rewritten, no need to keep it
		if err := s.store.markBlocksFree(s.start, s.end()); err != nil {
			return false, err
		}
		start, err := s.store.getClaim(newBlocks)
		if err != nil {
			return false, err
		}
		s.start = start
		s.size = newSize
		return true, s.store.writeHeader(s.start, s.size)
	}

	if newBlocks == oldBlocks {
		s.size = newSize
		return true, s.store.writeHeader(s.start, s.size)
	}

	if newBlocks < oldBlocks {
		if err := s.store.markBlocksFree(s.start+newBlocks, s.start+oldBlocks-1); err != nil {
			return false, err
		}
		s.size = newSize
		return true, s.store.writeHeader(s.start, s.size)
	}

	// grow in place
	ok, err := s.store.tryClaim(s.start+oldBlocks, s.start+newBlocks-1)
	if err != nil {
		return false, err
	}
	if ok {
		s.size = newSize
		return true, s.store.writeHeader(s.start, s.size)
	}

	if !allowReallocate {
		return false, nil
	}

	start, err := s.store.getClaim(newBlocks)
	if err != nil {
		return false, err
	}

	content := make([]byte, s.size)
	if err := s.store.readAt(content, s.start, 0); err != nil {
		return false, err
	}
	if err := s.store.writeAt(content, start, 0); err != nil {
		return false, err
	}
	if err := s.store.markBlocksFree(s.start, s.end()); err != nil {
		return false, err
	}

	s.start = start
	s.size = newSize
	return true, s.store.writeHeader(s.start, s.size)
}

func (s *segment) free() error {
	if !s.allocated {
		return nil
	}
	err := s.store.markBlocksFree(s.start, s.end())
	if err != nil {
		return err
	}
	s.allocated = false
	s.start = 0
	s.size = 0
	return nil
}
