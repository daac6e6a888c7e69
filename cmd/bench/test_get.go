package main

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

func TestGet(c Config) {

	if c.Base == "" {
		start, stop, _ := CreateServer(&c)
		defer stop()
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

	items := c.N
	misses := int64(0)

	t0 := time.Now()
	Parallel(c.Workers, func() {
		for {
			n := atomic.AddInt64(&items, -1)
			if n < 0 {
				break
			}
			if Do(client, http.MethodGet, EntryURL(c.Base, mapName, n), nil) != http.StatusOK {
				atomic.AddInt64(&misses, 1)
			}
		}
	})

	took := time.Since(t0)
	fmt.Println("read:", c.N, "misses:", misses)
	fmt.Println("took:", took)
	fmt.Printf("Throughput: %.2f gets/sec\n", float64(c.N)/took.Seconds())
}
