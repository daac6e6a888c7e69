package ndmf

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/btree"
)

// backend is the random access file the blocks live in, usually an *os.File
type backend interface {
	io.ReaderAt
	io.WriterAt
	Truncate(size int64) error
}

// blockStore views a file as a sequence of fixed size blocks and keeps the set
// of free ones. A block is in the set iff its header is not positive.
type blockStore struct {
	file   backend
	layout Layout
	count  int32
	free   *btree.BTreeG[int32]
}

func newBlockStore(file backend, layout Layout) *blockStore {
	return &blockStore{
		file:   file,
		layout: layout,
		free:   btree.NewOrderedG[int32](32),
	}
}

// load scans every block once and rebuilds the free set. An allocated
// segment is skipped as a unit. A partial trailing block is dropped, the
// engine only ever grows the file by whole blocks.
func (s *blockStore) load(fileSize int64) error {

	bs := int64(s.layout.BlockSize)
	s.count = int32(fileSize / bs)
	if int64(s.count)*bs != fileSize {
		if err := s.file.Truncate(int64(s.count) * bs); err != nil {
			return fmt.Errorf("align file size: %w", err)
		}
	}

	s.free.Clear(false)

	for block := int32(0); block < s.count; {
		size, err := s.readHeader(block)
		if err != nil {
			return err
		}
		if size <= 0 {
			s.free.ReplaceOrInsert(block)
			block++
			continue
		}
		block += s.layout.blocksFor(size)
	}

	return nil
}

func (s *blockStore) readHeader(block int32) (int32, error) {
	b := make([]byte, headerSize)
	_, err := s.file.ReadAt(b, s.layout.offset(block))
	if err != nil {
		return 0, fmt.Errorf("read header of block %d: %w", block, err)
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (s *blockStore) writeHeader(block int32, size int32) error {
	b := make([]byte, headerSize)
	binary.BigEndian.PutUint32(b, uint32(size))
	_, err := s.file.WriteAt(b, s.layout.offset(block))
	if err != nil {
		return fmt.Errorf("write header of block %d: %w", block, err)
	}
	return nil
}

func (s *blockStore) readAt(p []byte, block int32, skip int) error {
	_, err := s.file.ReadAt(p, s.layout.offset(block)+int64(skip))
	if err != nil {
		return fmt.Errorf("read block %d+%d: %w", block, skip, err)
	}
	return nil
}

func (s *blockStore) writeAt(p []byte, block int32, skip int) error {
	_, err := s.file.WriteAt(p, s.layout.offset(block)+int64(skip))
	if err != nil {
		return fmt.Errorf("write block %d+%d: %w", block, skip, err)
	}
	return nil
}

func (s *blockStore) isFree(block int32) bool {
	return s.free.Has(block)
}

// grow extends the file up to `count` blocks. Blocks appended before the
// requested range are free.
func (s *blockStore) grow(count int32, claimFrom int32) error {
	if count <= s.count {
		return nil
	}
	err := s.file.Truncate(int64(count) * int64(s.layout.BlockSize))
	if err != nil {
		return fmt.Errorf("grow file to %d blocks: %w", count, err)
	}
	for b := s.count; b < claimFrom; b++ {
		s.free.ReplaceOrInsert(b)
	}
	s.count = count
	return nil
}

// tryClaim reserves blocks [start, end]. It fails without side effects if any
// block inside the file is in use.
func (s *blockStore) tryClaim(start, end int32) (bool, error) {

	if start < 0 || end < start {
		return false, nil
	}

	for b := start; b <= end && b < s.count; b++ {
		if !s.free.Has(b) {
			return false, nil
		}
	}

	if end >= s.count {
		if err := s.grow(end+1, start); err != nil {
			return false, err
		}
	}

	for b := start; b <= end; b++ {
		s.free.Delete(b)
	}

	return true, nil
}

// getClaim reserves the lowest run of `count` contiguous free blocks, or the
// blocks right after the end of file.
func (s *blockStore) getClaim(count int32) (int32, error) {

	runStart := int32(-1)
	runLength := int32(0)
	previous := int32(-2)
	found := false

	s.free.Ascend(func(block int32) bool {
		if block == previous+1 {
			runLength++
		} else {
			runStart = block
			runLength = 1
		}
		previous = block
		if runLength >= count {
			found = true
			return false
		}
		return true
	})

	if !found {
		runStart = s.count
	}

	ok, err := s.tryClaim(runStart, runStart+count-1)
	if err != nil {
		return 0, err
	}
	if !ok {
		panic(fmt.Sprintf("claim of %d free blocks at %d rejected", count, runStart))
	}

	return runStart, nil
}

func (s *blockStore) markBlocksFree(start, end int32) error {
	for b := start; b <= end; b++ {
		if err := s.writeHeader(b, 0); err != nil {
			return err
		}
		s.free.ReplaceOrInsert(b)
	}
	return nil
}

func (s *blockStore) blocks() int32 {
	return s.count
}

func (s *blockStore) freeBlocks() int {
	return s.free.Len()
}
