package main

import (
	"os"

	"github.com/gregLibert/emvtap/cmd/emvtap/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
