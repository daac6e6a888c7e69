package ndmf

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fulldump/ndmf/compression"
)

type IssueKind string

const (
	IssueStructure IssueKind = "structure"
	IssueOrphan    IssueKind = "orphan"
	IssueMissing   IssueKind = "missing"
	IssueEOF       IssueKind = "eof"
)

type Issue struct {
	Kind    IssueKind `json:"kind"`
	Block   int32     `json:"block"`
	Segment int32     `json:"segment"`
	Slot    int       `json:"slot"`
	Message string    `json:"message"`
}

type Run struct {
	Start  int32  `json:"start"`
	Blocks int32  `json:"blocks"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

type Report struct {
	Blocks        int     `json:"blocks"`
	IndexBlocks   int     `json:"index_blocks"`
	DataBlocks    int     `json:"data_blocks"`
	FreeBlocks    int     `json:"free_blocks"`
	OrphanBlocks  int     `json:"orphan_blocks"`
	IndexSegments int     `json:"index_segments"`
	Entries       int     `json:"entries"`
	BlockMap      string  `json:"block_map"`
	Runs          []Run   `json:"runs"`
	Issues        []Issue `json:"issues"`
}

func (r *Report) OK() bool {
	return len(r.Issues) == 0
}

func (r *Report) Errors() int {
	return len(r.Issues)
}

func (r *Report) Count(kind IssueKind) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Report) addIssue(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

type slotReference struct {
	segment int32
	slot    int
}

type verifier struct {
	file     *os.File
	layout   Layout
	registry *compression.Registry
	count    int32
	report   *Report
}

// Verify walks the index chain and the physical blocks of the file at path
// and reports every inconsistency found. It never writes.
func Verify(path string, layout Layout, registry *compression.Registry) (*Report, error) {

	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		registry = compression.NewRegistry()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	bs := int64(layout.BlockSize)
	v := &verifier{
		file:     f,
		layout:   layout,
		registry: registry,
		count:    int32(info.Size() / bs),
		report:   &Report{Runs: []Run{}, Issues: []Issue{}},
	}
	if info.Size()%bs != 0 {
		v.report.addIssue(Issue{
			Kind:    IssueEOF,
			Block:   v.count,
			Message: fmt.Sprintf("file size %d is not a multiple of block size %d", info.Size(), bs),
		})
	}
	v.report.Blocks = int(v.count)

	indexes, expected, err := v.walkChain()
	if err != nil {
		return nil, err
	}
	if err := v.scan(indexes, expected); err != nil {
		return nil, err
	}

	return v.report, nil
}

func (v *verifier) header(block int32) (int32, error) {
	b := make([]byte, headerSize)
	_, err := v.file.ReadAt(b, v.layout.offset(block))
	if err != nil {
		return 0, fmt.Errorf("read header of block %d: %w", block, err)
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// walkChain returns the index segments found (start -> blocks) and the data
// blocks referenced by their slots
func (v *verifier) walkChain() (map[int32]int32, map[int32]slotReference, error) {

	indexes := map[int32]int32{}
	expected := map[int32]slotReference{}
	names := map[string]slotReference{}
	report := v.report

	for block := int32(0); ; {

		if _, visited := indexes[block]; visited {
			report.addIssue(Issue{Kind: IssueStructure, Block: block, Message: "index chain loops back"})
			break
		}
		if block >= v.count {
			report.addIssue(Issue{Kind: IssueEOF, Block: block, Message: "index segment after end of file"})
			break
		}

		size, err := v.header(block)
		if err != nil {
			return nil, nil, err
		}
		n := v.layout.slotsFor(size)
		if size <= 0 || n < 2 {
			report.addIssue(Issue{Kind: IssueStructure, Block: block, Message: fmt.Sprintf("index segment with size %d", size)})
			break
		}
		blocks := v.layout.blocksFor(size)
		if block+blocks > v.count {
			report.addIssue(Issue{Kind: IssueEOF, Block: block, Message: "index segment ends after end of file"})
			break
		}
		indexes[block] = blocks
		report.IndexSegments++

		content := make([]byte, n*v.layout.slotSize())
		if _, err := v.file.ReadAt(content, v.layout.offset(block)+headerSize); err != nil {
			return nil, nil, fmt.Errorf("read index segment %d: %w", block, err)
		}

		next := int32(0)
		for i := 0; i < n; i++ {
			b := content[i*v.layout.slotSize() : (i+1)*v.layout.slotSize()]
			pointer := int32(binary.BigEndian.Uint32(b))
			name := string(b[pointerSize:])
			ref := slotReference{segment: block, slot: i}
			last := i == n-1

			switch {
			case pointer < 0 && last:
				next = -pointer
			case pointer < 0:
				report.addIssue(Issue{Kind: IssueStructure, Block: -pointer, Segment: block, Slot: i, Message: "link pointer outside the last slot"})
			case pointer > 0 && last:
				report.addIssue(Issue{Kind: IssueStructure, Block: pointer, Segment: block, Slot: i, Message: "data pointer in the link slot"})
			case pointer > 0:
				if other, exists := names[name]; exists {
					report.addIssue(Issue{Kind: IssueStructure, Block: pointer, Segment: block, Slot: i,
						Message: fmt.Sprintf("name already stored in segment %d slot %d", other.segment, other.slot)})
				}
				names[name] = ref
				if other, exists := expected[pointer]; exists {
					report.addIssue(Issue{Kind: IssueStructure, Block: pointer, Segment: block, Slot: i,
						Message: fmt.Sprintf("block already referenced by segment %d slot %d", other.segment, other.slot)})
					continue
				}
				expected[pointer] = ref
				report.Entries++
			}
		}

		if next == 0 {
			break
		}
		block = next
	}

	return indexes, expected, nil
}

func (v *verifier) scan(indexes map[int32]int32, expected map[int32]slotReference) error {

	report := v.report
	blockMap := []byte(strings.Repeat("?", int(v.count)))
	foundIndexes := map[int32]bool{}

	for block := int32(0); block < v.count; {

		size, err := v.header(block)
		if err != nil {
			return err
		}

		if size <= 0 {
			blockMap[block] = '.'
			report.FreeBlocks++
			report.Runs = append(report.Runs, Run{Start: block, Blocks: 1, Kind: "free"})
			block++
			continue
		}

		blocks := v.layout.blocksFor(size)
		end := block + blocks
		if end > v.count {
			report.addIssue(Issue{Kind: IssueEOF, Block: block, Message: fmt.Sprintf("segment of %d bytes runs past end of file", size)})
			end = v.count
			blocks = end - block
		}
		for b := block + 1; b < end; b++ {
			blockMap[b] = '-'
		}

		run := Run{Start: block, Blocks: blocks}
		if indexBlocks, isIndex := indexes[block]; isIndex {
			foundIndexes[block] = true
			blockMap[block] = 'I'
			run.Kind = "index"
			run.Detail = fmt.Sprintf("%d slots", v.layout.slotsFor(size))
			report.IndexBlocks += int(blocks)
			if indexBlocks != blocks {
				report.addIssue(Issue{Kind: IssueStructure, Block: block, Message: "index segment size changed during verification"})
			}
		} else if ref, isData := expected[block]; isData {
			delete(expected, block)
			blockMap[block] = 'D'
			run.Kind = "data"
			run.Detail = fmt.Sprintf("%d bytes, segment %d slot %d", size, ref.segment, ref.slot)
			report.DataBlocks += int(blocks)
			if err := v.checkData(block, size, ref); err != nil {
				return err
			}
		} else {
			blockMap[block] = 'O'
			run.Kind = "orphan"
			run.Detail = fmt.Sprintf("%d bytes", size)
			report.OrphanBlocks += int(blocks)
			report.addIssue(Issue{Kind: IssueOrphan, Block: block, Message: fmt.Sprintf("allocated segment of %d bytes not referenced by any slot", size)})
		}
		report.Runs = append(report.Runs, run)

		block = end
	}

	for block := range indexes {
		if !foundIndexes[block] {
			report.addIssue(Issue{Kind: IssueStructure, Block: block, Message: "index segment is not a segment start"})
		}
	}

	missing := make([]int32, 0, len(expected))
	for block := range expected {
		missing = append(missing, block)
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })

	for _, block := range missing {
		ref := expected[block]
		reason := "not a segment start"
		if block >= v.count {
			reason = "beyond end of file"
		} else if blockMap[block] == '.' {
			reason = "free block"
		}
		report.addIssue(Issue{Kind: IssueMissing, Block: block, Segment: ref.segment, Slot: ref.slot,
			Message: fmt.Sprintf("segment %d slot %d references block %d: %s", ref.segment, ref.slot, block, reason)})
	}

	report.BlockMap = string(blockMap)
	return nil
}

func (v *verifier) checkData(block, size int32, ref slotReference) error {

	if size < headerSize+1 {
		v.report.addIssue(Issue{Kind: IssueStructure, Block: block, Segment: ref.segment, Slot: ref.slot,
			Message: fmt.Sprintf("data segment of %d bytes", size)})
		return nil
	}

	id := make([]byte, 1)
	if _, err := v.file.ReadAt(id, v.layout.offset(block)+headerSize); err != nil {
		return fmt.Errorf("read data segment %d: %w", block, err)
	}
	if _, err := v.registry.Lookup(id[0]); err != nil {
		v.report.addIssue(Issue{Kind: IssueStructure, Block: block, Segment: ref.segment, Slot: ref.slot,
			Message: err.Error()})
	}

	return nil
}

// Write renders a human readable block map and the issues found
func (r *Report) Write(w io.Writer, verbose bool) error {

	b := &strings.Builder{}

	fmt.Fprintf(b, "blocks: %d (index %d, data %d, free %d, orphan %d)\n",
		r.Blocks, r.IndexBlocks, r.DataBlocks, r.FreeBlocks, r.OrphanBlocks)
	fmt.Fprintf(b, "index segments: %d, entries: %d\n", r.IndexSegments, r.Entries)

	const width = 64
	for i := 0; i < len(r.BlockMap); i += width {
		end := i + width
		if end > len(r.BlockMap) {
			end = len(r.BlockMap)
		}
		fmt.Fprintf(b, "%08d %s\n", i, r.BlockMap[i:end])
	}

	if verbose {
		for _, run := range r.Runs {
			fmt.Fprintf(b, "  %8d +%-4d %-6s %s\n", run.Start, run.Blocks, run.Kind, run.Detail)
		}
	}

	for _, issue := range r.Issues {
		fmt.Fprintf(b, "ERROR %s at block %d: %s\n", issue.Kind, issue.Block, issue.Message)
	}
	fmt.Fprintf(b, "errors: %d\n", len(r.Issues))

	_, err := io.WriteString(w, b.String())
	return err
}

// VerifyFormat checks the file at path and writes the report to w. It returns
// true when no error has been found.
func VerifyFormat(path string, layout Layout, w io.Writer, verbose bool) bool {

	report, err := Verify(path, layout, nil)
	if err != nil {
		fmt.Fprintf(w, "ERROR: %s\n", err.Error())
		return false
	}

	if err := report.Write(w, verbose); err != nil {
		return false
	}

	return report.OK()
}
