// Command triangle renders a colored triangle through the frameloop
// renderer.
//
//	triangle run --driver wgpu --frames 60 --output frames
//	triangle adapters --driver wgpu
//	triangle config -c triangle.toml
package main

//go:generate go run ../shaderc -out shaders

import (
	"fmt"
	"os"

	"github.com/gogpu/frameloop/cmd/triangle/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "triangle: %v\n", err)
		os.Exit(1)
	}
}
