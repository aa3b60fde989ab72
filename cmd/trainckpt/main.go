// Command trainckpt inspects and maintains a directory of training
// checkpoints.
package main

import (
	"os"

	"trainckpt/pkg/ui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		ui.NewPrinter(os.Stderr).Error("Error", err)
		os.Exit(1)
	}
}
