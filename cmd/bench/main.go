package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/fulldump/goconfig"
)

type Config struct {
	Test      string `usage:"name of the test: ALL | PUT | GET | REMOVE"`
	Base      string `usage:"base URL"`
	N         int64  `usage:"number of entries"`
	Workers   int    `usage:"number of workers"`
	ValueSize int    `usage:"size of every value in bytes"`
}

var cleanups []func()

func main() {

	defer func() {
		fmt.Println("Cleaning up...")
		for _, cleanup := range cleanups {
			cleanup()
		}
	}()

	c := Config{
		Test:      "put",
		Base:      "",
		N:         100_000,
		Workers:   16,
		ValueSize: 100,
	}
	goconfig.Read(&c)

	switch strings.ToUpper(c.Test) {
	case "ALL":
		TestPut(c)
		TestGet(c)
		TestRemove(c)
	case "PUT":
		TestPut(c)
	case "GET":
		TestGet(c)
	case "REMOVE":
		TestRemove(c)
	default:
		log.Fatalf("Unknown test %s", c.Test)
	}

}
