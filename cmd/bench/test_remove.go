package main

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fulldump/ndmf/database"
	"github.com/fulldump/ndmf/ndmf"
)

func TestRemove(c Config) {

	createServer := c.Base == ""

	var start, stop func()
	var dataDir string
	if createServer {
		start, stop, dataDir = CreateServer(&c)
		go start()
	}

	mapName := CreateMap(c.Base)
	client := NewClient()

	fmt.Println("Preload entries...")
	payload := strings.Repeat("x", c.ValueSize)
	preload := c.N
	Parallel(c.Workers, func() {
		for {
			n := atomic.AddInt64(&preload, -1)
			if n < 0 {
				break
			}
			Do(client, http.MethodPut, EntryURL(c.Base, mapName, n), strings.NewReader(payload))
		}
	})

	// Remove every other entry so the file ends up fragmented
	items := c.N
	t0 := time.Now()
	Parallel(c.Workers, func() {
		for {
			n := atomic.AddInt64(&items, -2)
			if n < 0 {
				break
			}
			if status := Do(client, http.MethodDelete, EntryURL(c.Base, mapName, n), nil); status != http.StatusOK {
				fmt.Println("ERROR: bad status:", status)
			}
		}
	})

	removed := c.N / 2
	took := time.Since(t0)
	fmt.Println("removed:", removed)
	fmt.Println("took:", took)
	fmt.Printf("Throughput: %.2f removes/sec\n", float64(removed)/took.Seconds())

	if !createServer {
		return
	}

	stop() // Stop the server

	filename := filepath.Join(dataDir, mapName+database.Extension)

	t1 := time.Now()
	m, err := ndmf.Open(filename, ndmf.Options[string, []byte]{
		Names:  ndmf.StringNames(ndmf.DefaultLayout().NameSize),
		Values: ndmf.Bytes,
		Layout: ndmf.DefaultLayout(),
	})
	if err != nil {
		fmt.Println("ERROR: open:", err.Error())
		return
	}
	defer m.Close()
	tookOpen := time.Since(t1)

	stats, _ := m.Stats()
	fmt.Println("open took:", tookOpen)
	fmt.Printf("blocks: %d free: %d entries: %d\n", stats.Blocks, stats.FreeBlocks, stats.Entries)
	fmt.Printf("Throughput Open: %.2f entries/sec\n", float64(stats.Entries)/tookOpen.Seconds())
}
