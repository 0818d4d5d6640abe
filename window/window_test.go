package window

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadlessFrameBudget(t *testing.T) {
	hw := NewHeadless(WithFrames(3))
	for i := 0; i < 3; i++ {
		require.True(t, hw.PollEvents(), "poll %d", i+1)
	}
	assert.False(t, hw.PollEvents())
	assert.False(t, hw.PollEvents())
	assert.Equal(t, 3, hw.Polls())
}

func TestHeadlessScriptedKeys(t *testing.T) {
	hw := NewHeadless(WithKeyPress(2, KeyPause), WithKeyPress(2, KeyEscape))

	require.True(t, hw.PollEvents())
	assert.False(t, hw.KeyPress(KeyPause))

	require.True(t, hw.PollEvents())
	assert.True(t, hw.KeyDown(KeyPause))
	assert.True(t, hw.KeyPress(KeyPause))
	assert.False(t, hw.KeyPress(KeyPause), "KeyPress must report a press once")
	assert.True(t, hw.KeyPress(KeyEscape))

	require.True(t, hw.PollEvents())
	assert.False(t, hw.KeyDown(KeyPause))
}

func TestHeadlessClose(t *testing.T) {
	hw := NewHeadless()
	require.True(t, hw.PollEvents())
	hw.Close()
	assert.False(t, hw.PollEvents())
}

func TestHeadlessTitle(t *testing.T) {
	hw := NewHeadless(WithTitle("Triangle"))
	hw.SetTitle("Triangle    FPS: 60")
	assert.Equal(t, "Triangle", hw.Title())
	assert.Equal(t, "Triangle    FPS: 60", hw.Caption())
}

func TestHeadlessHandlesAreUnique(t *testing.T) {
	a, b := NewHeadless(), NewHeadless()
	assert.NotZero(t, a.Handle())
	assert.NotEqual(t, a.Handle(), b.Handle())
}

func TestParseKey(t *testing.T) {
	assert.Equal(t, KeyEscape, ParseKey("esc"))
	assert.Equal(t, KeyPause, ParseKey("pause"))
	assert.Equal(t, KeyUnknown, ParseKey("nope"))
}

func TestPNGSink(t *testing.T) {
	dir := t.TempDir()
	hw := NewHeadless(WithSink(&PNGSink{Dir: dir}))

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(1, 2, color.RGBA{R: 255, A: 255})
	hw.Deliver(0, img)
	hw.Deliver(1, img)
	require.NoError(t, hw.Err())
	assert.Equal(t, 2, hw.Delivered())

	f, err := os.Open(filepath.Join(dir, "frame-0001.png"))
	require.NoError(t, err)
	defer f.Close()
	got, err := png.Decode(f)
	require.NoError(t, err)
	r, _, _, a := got.At(1, 2).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), a)
}

func TestPNGSinkError(t *testing.T) {
	hw := NewHeadless(WithSink(&PNGSink{Dir: filepath.Join(t.TempDir(), "missing")}))
	hw.Deliver(0, image.NewRGBA(image.Rect(0, 0, 1, 1)))
	assert.Error(t, hw.Err())
}
