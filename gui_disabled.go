//go:build !gui

package main

import (
	"fmt"
	"os"

	"voxpaste/popup"
)

func initGUI() int {
	fmt.Fprintln(os.Stderr, "voxpaste: built without GUI support (rebuild with -tags gui)")
	return 1
}

func guiRenderer() (popup.Renderer, <-chan struct{}) { return nil, nil }
