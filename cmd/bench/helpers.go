package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/fulldump/ndmf/bootstrap"
	"github.com/fulldump/ndmf/configuration"
)

type JSON = map[string]any

func Parallel(workers int, f func()) {
	wg := &sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}
	wg.Wait()
}

func TempDir() (string, func()) {
	dir, err := os.MkdirTemp("", "ndmf_bench_*")
	if err != nil {
		panic("Could not create temp directory: " + err.Error())
	}

	cleanup := func() {
		os.RemoveAll(dir)
	}

	return dir, cleanup
}

func NewClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     1024,
			MaxIdleConnsPerHost: 1024,
			MaxIdleConns:        1024,
		},
		Timeout: 10 * time.Second,
	}
}

func CreateMap(base string) string {

	name := "map-" + strconv.FormatInt(time.Now().UnixNano(), 10)

	payload, _ := json.Marshal(JSON{"name": name})

	// the server may still be loading
	for i := 0; i < 100; i++ {
		req, _ := http.NewRequest("POST", base+"/v1/maps", bytes.NewReader(payload))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusCreated {
			return name
		}
		time.Sleep(100 * time.Millisecond)
	}

	panic("could not create map " + name)
}

func EntryURL(base, mapName string, n int64) string {
	return fmt.Sprintf("%s/v1/maps/%s/entries/key-%d", base, mapName, n)
}

// Do sends a request and discards the response body
func Do(client *http.Client, method, url string, body io.Reader) int {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		fmt.Println("ERROR: new request:", err.Error())
		os.Exit(3)
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Println("ERROR: do request:", err.Error())
		os.Exit(4)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return resp.StatusCode
}

func CreateServer(c *Config) (start, stop func(), dir string) {
	dir, cleanup := TempDir()
	cleanups = append(cleanups, cleanup)

	conf := configuration.Default()
	conf.Dir = dir
	conf.ShowBanner = false
	conf.LogLevel = "warn"
	c.Base = "http://" + conf.HttpAddr

	start, stop = bootstrap.Bootstrap(&conf)
	return start, stop, dir
}
