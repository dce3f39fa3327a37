package main

import (
	"os"

	"github.com/coreybb/storybook/cmd"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
