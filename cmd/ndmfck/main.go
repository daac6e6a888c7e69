package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fulldump/goconfig"

	"github.com/fulldump/ndmf/ndmf"
)

type Config struct {
	File             string `usage:"path of the map file to check"`
	BlockSize        int    `usage:"block size in bytes"`
	NameSize         int    `usage:"max entry name length in bytes"`
	IndexSegmentSize int    `usage:"max index segment size in bytes"`
	Verbose          bool   `usage:"print every run of blocks"`
	Json             bool   `usage:"print the report as JSON"`
}

func main() {

	layout := ndmf.DefaultLayout()
	c := Config{
		BlockSize:        layout.BlockSize,
		NameSize:         layout.NameSize,
		IndexSegmentSize: layout.IndexSegmentSize,
	}
	goconfig.Read(&c)

	if c.File == "" {
		fmt.Fprintln(os.Stderr, "ERROR: missing -file")
		os.Exit(2)
	}

	layout = ndmf.Layout{
		BlockSize:        c.BlockSize,
		NameSize:         c.NameSize,
		IndexSegmentSize: c.IndexSegmentSize,
	}

	if !c.Json {
		if !ndmf.VerifyFormat(c.File, layout, os.Stdout, c.Verbose) {
			os.Exit(1)
		}
		return
	}

	report, err := ndmf.Verify(c.File, layout, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err.Error())
		os.Exit(1)
	}

	e := json.NewEncoder(os.Stdout)
	e.SetIndent("", "    ")
	e.Encode(report)

	if !report.OK() {
		os.Exit(1)
	}
}
