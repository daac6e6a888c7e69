package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fulldump/goconfig"

	"github.com/fulldump/ndmf/bootstrap"
	"github.com/fulldump/ndmf/configuration"
)

var VERSION = "dev"

var banner = `
 _   _ ____  __  __ _____ 
| \ | |  _ \|  \/  |  ___|
|  \| | | | | |\/| | |_   
| |\  | |_| | |  | |  _|  
|_| \_|____/|_|  |_|_|    
          version ` + VERSION + `
`

func main() {

	c := configuration.Default()
	goconfig.Read(&c)

	if c.Version {
		fmt.Println("Version:", VERSION)
		return
	}

	if c.ShowBanner {
		fmt.Println(banner)
	}

	if c.ShowConfig {
		e := json.NewEncoder(os.Stdout)
		e.SetIndent("", "    ")
		e.Encode(c)
	}

	bootstrap.VERSION = VERSION
	start, _ := bootstrap.Bootstrap(&c)
	start()
}
