package main

import (
	"fmt"
	"os"

	"github.com/ubc-iui/emdat-sweep/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "emdat-sweep:", err)
		os.Exit(1)
	}
}
