// The main package for the crawldex executable.
package main

import (
	"github.com/crawldex/crawldex/cmd"
)

func main() {
	cmd.Execute()
}
