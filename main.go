package main

import (
	"os"

	"github.com/conneroisu/assetmin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
