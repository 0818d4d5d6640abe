package window

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// PNGSink writes every frame it receives to Dir as numbered PNG files.
type PNGSink struct {
	Dir    string
	Prefix string

	n int
}

// Frame writes img to <Dir>/<Prefix><n>.png, n counting from 0.
func (s *PNGSink) Frame(_ int, img *image.RGBA) error {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "frame-"
	}
	name := filepath.Join(s.Dir, fmt.Sprintf("%s%04d.png", prefix, s.n))
	s.n++
	f, err := os.Create(filepath.Clean(name))
	if err != nil {
		return fmt.Errorf("window: create frame file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("window: encode frame: %w", err)
	}
	return f.Close()
}
