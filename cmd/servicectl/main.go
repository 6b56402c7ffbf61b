package main

import (
	"os"
)

func main() {
	if err := newRootCmd(containerFactory).Execute(); err != nil {
		os.Exit(1)
	}
}
