package ndmf

import "time"

// Metrics receives engine events, nil disables it.
type Metrics interface {
	ObserveOperation(path, operation string, duration time.Duration, err error)
	RecordBlocks(path string, total, free int)
}

type Stats struct {
	BlockSize     int   `json:"block_size"`
	Blocks        int   `json:"blocks"`
	FreeBlocks    int   `json:"free_blocks"`
	FileSize      int64 `json:"file_size"`
	Entries       int   `json:"entries"`
	IndexSegments int   `json:"index_segments"`
	Cached        int   `json:"cached"`
}
