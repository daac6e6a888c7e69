package ndmf

import (
	"math/rand"
	"path/filepath"
	"testing"

	. "github.com/fulldump/biff"
	"github.com/google/uuid"

	"github.com/fulldump/ndmf/compression"
)

// testLayout: 8 byte names, 256 byte blocks, index segments of one block
var testLayout = Layout{
	BlockSize:        256,
	NameSize:         8,
	IndexSegmentSize: 256,
}

func testOptions() Options[string, []byte] {
	return Options[string, []byte]{
		Layout:      testLayout,
		Names:       StringNames(testLayout.NameSize),
		Values:      Bytes,
		Compression: compression.IdNone,
	}
}

func newFilename(t *testing.T) string {
	return filepath.Join(t.TempDir(), uuid.New().String()+".ndmf")
}

func openTestFile(t *testing.T, filename string) *File[string, []byte] {
	m, err := Open(filename, testOptions())
	if err != nil {
		t.Fatalf("open %s: %v", filename, err)
	}
	return m
}

func randomBytes(seed int64, n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

// assertBlockInvariant checks that a block is free iff its header is not
// positive, skipping allocated segments as a unit
func assertBlockInvariant(t *testing.T, s *blockStore) {
	t.Helper()

	for b := int32(0); b < s.blocks(); {
		size, err := s.readHeader(b)
		if err != nil {
			t.Fatalf("read header %d: %v", b, err)
		}
		if size <= 0 {
			if !s.isFree(b) {
				t.Fatalf("block %d has header %d but it is not free", b, size)
			}
			b++
			continue
		}
		n := s.layout.blocksFor(size)
		for j := b; j < b+n; j++ {
			if s.isFree(j) {
				t.Fatalf("block %d belongs to segment %d but it is free", j, b)
			}
		}
		b += n
	}

	s.free.Ascend(func(b int32) bool {
		if b >= s.blocks() {
			t.Fatalf("free block %d after end of file", b)
		}
		return true
	})
}

// assertUniqueNames checks that no name is stored twice along the chain
func assertUniqueNames(t *testing.T, d *directory) {
	t.Helper()

	seen := map[string]int32{}
	for s := d.root(); s != nil; s = d.following(s) {
		for i, sl := range s.slots {
			if i == s.last() || sl.pointer <= 0 {
				continue
			}
			if other, exists := seen[sl.name]; exists {
				t.Fatalf("name %q stored in segments %d and %d", sl.name, other, s.start)
			}
			seen[sl.name] = s.start
		}
	}
	AssertEqual(len(seen), d.Len())
}
