package ndmf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	. "github.com/fulldump/biff"
)

// patch writes p at the given block and skip, bypassing the engine
func patch(t *testing.T, filename string, block int32, skip int, p []byte) {
	f, err := os.OpenFile(filename, os.O_RDWR, 0666)
	if err != nil {
		t.Fatalf("open %s: %v", filename, err)
	}
	defer f.Close()
	if _, err := f.WriteAt(p, testLayout.offset(block)+int64(skip)); err != nil {
		t.Fatalf("patch %s: %v", filename, err)
	}
}

func patchPointer(t *testing.T, filename string, segment int32, slot int, pointer int32) {
	b := make([]byte, pointerSize)
	binary.BigEndian.PutUint32(b, uint32(pointer))
	patch(t, filename, segment, headerSize+slot*testLayout.slotSize(), b)
}

// twoEntries creates a file with "a" at block 1 and "b" at block 2
func twoEntries(t *testing.T) string {
	filename := newFilename(t)
	m := openTestFile(t, filename)
	AssertNil(m.Set("a", []byte("first")))
	AssertNil(m.Set("b", []byte("second")))
	AssertNil(m.Close())
	return filename
}

func TestVerify_Clean(t *testing.T) {

	filename := newFilename(t)
	m := openTestFile(t, filename)
	AssertNil(m.Set("alpha", randomBytes(1, 300)))
	AssertNil(m.Set("beta", randomBytes(2, 10)))
	_, err := m.Delete("alpha")
	AssertNil(err)
	AssertNil(m.Close())

	report, err := Verify(filename, testLayout, nil)
	AssertNil(err)
	AssertTrue(report.OK())
	AssertEqual(report.BlockMap, "I..D")
	AssertEqual(report.Blocks, 4)
	AssertEqual(report.IndexBlocks, 1)
	AssertEqual(report.DataBlocks, 1)
	AssertEqual(report.FreeBlocks, 2)
	AssertEqual(report.IndexSegments, 1)
	AssertEqual(report.Entries, 1)
	AssertEqual(len(report.Runs), 4)
	AssertEqual(report.Runs[0].Kind, "index")
	AssertEqual(report.Runs[3].Kind, "data")
}

func TestVerify_Continuation(t *testing.T) {

	filename := newFilename(t)
	m := openTestFile(t, filename)
	AssertNil(m.Set("alpha", randomBytes(1, 300)))
	AssertNil(m.Close())

	report, err := Verify(filename, testLayout, nil)
	AssertNil(err)
	AssertTrue(report.OK())
	AssertEqual(report.BlockMap, "ID-")
	AssertEqual(report.DataBlocks, 2)
}

func TestVerify_MissingPointer(t *testing.T) {

	filename := twoEntries(t)
	patchPointer(t, filename, 0, 0, 7)

	report, err := Verify(filename, testLayout, nil)
	AssertNil(err)
	AssertFalse(report.OK())
	AssertEqual(report.BlockMap, "IOD")
	AssertEqual(report.Errors(), 2)
	AssertEqual(report.Count(IssueMissing), 1)
	AssertEqual(report.Count(IssueOrphan), 1)

	for _, issue := range report.Issues {
		if issue.Kind != IssueMissing {
			continue
		}
		AssertEqual(issue.Block, int32(7))
		AssertEqual(issue.Segment, int32(0))
		AssertEqual(issue.Slot, 0)
		AssertTrue(strings.Contains(issue.Message, "beyond end of file"))
	}

	// the engine refuses to follow it
	m := openTestFile(t, filename)
	defer m.Close()
	_, _, err = m.Get("a")
	AssertTrue(errors.Is(err, ErrCorrupt))
}

func TestVerify_PointerToFreeBlock(t *testing.T) {

	filename := newFilename(t)
	m := openTestFile(t, filename)
	AssertNil(m.Set("a", []byte("first")))
	AssertNil(m.Set("b", []byte("second")))
	_, err := m.Delete("a")
	AssertNil(err)
	AssertNil(m.Close())

	// b now claims the block released by a
	patchPointer(t, filename, 0, 1, 1)

	report, err := Verify(filename, testLayout, nil)
	AssertNil(err)
	AssertEqual(report.BlockMap, "I.O")
	AssertEqual(report.Count(IssueMissing), 1)
	AssertEqual(report.Count(IssueOrphan), 1)

	missing := report.Issues[len(report.Issues)-1]
	AssertEqual(missing.Kind, IssueMissing)
	AssertTrue(strings.Contains(missing.Message, "free block"))
}

func TestVerify_Orphan(t *testing.T) {

	filename := twoEntries(t)
	patch(t, filename, 0, headerSize+testLayout.slotSize(), make([]byte, testLayout.slotSize()))

	report, err := Verify(filename, testLayout, nil)
	AssertNil(err)
	AssertEqual(report.BlockMap, "IDO")
	AssertEqual(report.Errors(), 1)
	AssertEqual(report.Issues[0].Kind, IssueOrphan)
	AssertEqual(report.Issues[0].Block, int32(2))
	AssertEqual(report.OrphanBlocks, 1)
	AssertEqual(report.Entries, 1)
}

func TestVerify_UnknownCompression(t *testing.T) {

	filename := twoEntries(t)
	patch(t, filename, 1, headerSize, []byte{99})

	report, err := Verify(filename, testLayout, nil)
	AssertNil(err)
	AssertEqual(report.Errors(), 1)
	AssertEqual(report.Issues[0].Kind, IssueStructure)
	AssertEqual(report.Issues[0].Block, int32(1))

	m := openTestFile(t, filename)
	defer m.Close()
	_, _, err = m.Get("a")
	AssertTrue(errors.Is(err, ErrCorrupt))

	value, found, err := m.Get("b")
	AssertNil(err)
	AssertTrue(found)
	AssertEqual(string(value), "second")
}

func TestVerify_ChainLoop(t *testing.T) {

	filename := newFilename(t)
	m := openTestFile(t, filename)
	for i := 0; i < 21; i++ {
		AssertNil(m.Set(fmt.Sprintf("e%02d", i), []byte("x")))
	}
	tail := m.dir.root().next()
	last := m.dir.segments[tail].last()
	AssertNil(m.Close())

	patchPointer(t, filename, tail, last, -tail)

	report, err := Verify(filename, testLayout, nil)
	AssertNil(err)
	AssertEqual(report.Count(IssueStructure), 1)
	AssertEqual(report.IndexSegments, 2)

	_, err = Open(filename, testOptions())
	AssertTrue(errors.Is(err, ErrCorrupt))
}

func TestVerify_TrailingBytes(t *testing.T) {

	filename := twoEntries(t)

	f, err := os.OpenFile(filename, os.O_RDWR|os.O_APPEND, 0666)
	AssertNil(err)
	// partial trailing block
	f.Write(make([]byte, 7))
	f.Close()

	report, err := Verify(filename, testLayout, nil)
	AssertNil(err)
	AssertEqual(report.Count(IssueEOF), 1)
	AssertEqual(report.Blocks, 3)

	// opening drops the partial block, like the verifier does
	m := openTestFile(t, filename)
	stats, err := m.Stats()
	AssertNil(err)
	AssertEqual(stats.Blocks, report.Blocks)
	AssertNil(m.Close())
	AssertEqual(fileSize(t, filename), int64(3*testLayout.BlockSize))

	report, err = Verify(filename, testLayout, nil)
	AssertNil(err)
	AssertEqual(report.BlockMap, "IDD")
	AssertTrue(report.OK())
}

func TestVerifyFormat(t *testing.T) {

	filename := twoEntries(t)

	Alternative("Clean file", func(a *A) {
		output := &bytes.Buffer{}
		ok := VerifyFormat(filename, testLayout, output, true)
		a.AssertTrue(ok)
		a.AssertTrue(strings.Contains(output.String(), "00000000 IDD\n"))
		a.AssertTrue(strings.Contains(output.String(), "index"))
		a.AssertTrue(strings.Contains(output.String(), "errors: 0\n"))
	})

	Alternative("Corrupt file", func(a *A) {
		patchPointer(t, filename, 0, 1, 9)
		defer patchPointer(t, filename, 0, 1, 2)

		output := &bytes.Buffer{}
		ok := VerifyFormat(filename, testLayout, output, false)
		a.AssertFalse(ok)
		a.AssertTrue(strings.Contains(output.String(), "ERROR missing at block 9"))
		a.AssertTrue(strings.Contains(output.String(), "errors: 2\n"))
	})

	Alternative("Missing file", func(a *A) {
		output := &bytes.Buffer{}
		ok := VerifyFormat(filename+".missing", testLayout, output, false)
		a.AssertFalse(ok)
		a.AssertTrue(strings.HasPrefix(output.String(), "ERROR: "))
	})
}
