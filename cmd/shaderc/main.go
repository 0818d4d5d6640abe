// Command shaderc compiles the demo's WGSL shaders to the vertex.spv and
// pixel.spv binaries read by frameloop.ReadShaders.
package main

import (
	"flag"
	"log"

	"github.com/gogpu/frameloop/internal/shader"
)

func main() {
	var (
		in  = flag.String("in", "", "directory holding vertex.wgsl and pixel.wgsl (default: built-in sources)")
		out = flag.String("out", "shaders", "output directory")
	)
	flag.Parse()

	if err := shader.CompileDir(*in, *out); err != nil {
		log.Fatalf("shaderc: %v", err)
	}
	log.Printf("shaders written to %s\n", *out)
}
