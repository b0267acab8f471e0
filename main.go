package main

import (
	"os"

	"github.com/FreemapSlovakia/freemap-outdoor-map/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
