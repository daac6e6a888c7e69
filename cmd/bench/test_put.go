package main

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

func TestPut(c Config) {

	if c.Base == "" {
		start, stop, _ := CreateServer(&c)
		defer stop()
		go start()
	}

	mapName := CreateMap(c.Base)
	client := NewClient()

	payload := strings.Repeat("x", c.ValueSize)

	items := c.N

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(1 * time.Second):
				fmt.Println("items:", atomic.LoadInt64(&items))
			}
		}
	}()

	t0 := time.Now()
	Parallel(c.Workers, func() {
		for {
			n := atomic.AddInt64(&items, -1)
			if n < 0 {
				break
			}
			status := Do(client, http.MethodPut, EntryURL(c.Base, mapName, n), strings.NewReader(payload))
			if status != http.StatusCreated {
				fmt.Println("ERROR: bad status:", status)
			}
		}
	})

	took := time.Since(t0)
	fmt.Println("sent:", c.N)
	fmt.Println("took:", took)
	fmt.Printf("Throughput: %.2f puts/sec\n", float64(c.N)/took.Seconds())
}
