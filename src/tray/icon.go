package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

var (
	iconOnce sync.Once
	iconPNG  []byte
)

// Icon returns the tray icon: a 16x16 clipboard drawn at first use.
func Icon() []byte {
	iconOnce.Do(func() {
		iconPNG = drawIcon()
	})
	return iconPNG
}

func drawIcon() []byte {
	const size = 16
	board := color.RGBA{R: 0x8d, G: 0x6e, B: 0x63, A: 0xff}
	paper := color.RGBA{R: 0xfa, G: 0xfa, B: 0xfa, A: 0xff}
	clip := color.RGBA{R: 0x60, G: 0x7d, B: 0x8b, A: 0xff}
	line := color.RGBA{R: 0x90, G: 0xa4, B: 0xae, A: 0xff}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	fill := func(x0, y0, x1, y1 int, c color.RGBA) {
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				img.SetRGBA(x, y, c)
			}
		}
	}
	fill(2, 2, 14, 16, board)
	fill(4, 4, 12, 14, paper)
	fill(5, 1, 11, 4, clip)
	for y := 6; y < 13; y += 2 {
		fill(5, y, 11, y+1, line)
	}

	var buf bytes.Buffer
	// Encoding an in-memory RGBA image cannot fail.
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
