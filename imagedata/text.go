// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package imagedata

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// TextOpts controls Text.
type TextOpts struct {
	// Height of the image, usually the matrix height.
	Height int
	// Size is the font size in points at 72 DPI. Defaults to Height.
	Size float64
	// Color defaults to white.
	Color color.Color
	// Background defaults to black.
	Background color.Color
}

var goRegular = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})

// Text renders msg on a single line, vertically centered, in the Go Regular
// font. The image is as wide as the text.
func Text(msg string, opts *TextOpts) (image.Image, error) {
	if opts.Height <= 0 {
		return nil, fmt.Errorf("imagedata: invalid text height %d", opts.Height)
	}
	if msg == "" {
		return nil, errors.New("imagedata: empty text")
	}
	f, err := goRegular()
	if err != nil {
		return nil, fmt.Errorf("imagedata: %w", err)
	}
	size := opts.Size
	if size <= 0 {
		size = float64(opts.Height)
	}
	face := truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	defer face.Close()

	m := gg.NewContext(1, 1)
	m.SetFontFace(face)
	w, _ := m.MeasureString(msg)
	width := max(1, int(math.Ceil(w)))

	fg, bg := opts.Color, opts.Background
	if fg == nil {
		fg = color.White
	}
	if bg == nil {
		bg = color.Black
	}
	dc := gg.NewContext(width, opts.Height)
	dc.SetColor(bg)
	dc.Clear()
	dc.SetFontFace(face)
	dc.SetColor(fg)
	dc.DrawStringAnchored(msg, 0, float64(opts.Height)/2, 0, 0.5)
	return dc.Image(), nil
}

// Scroll returns the width wide window of img starting at column offset. The
// window wraps around with width blank columns between the end of img and its
// start, so offsets 0 to ScrollLen-1 produce a full marquee cycle.
func Scroll(img image.Image, width, offset int) image.Image {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, width, b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	total := ScrollLen(img, width)
	if total <= 0 {
		return out
	}
	for x := 0; x < width; x++ {
		sx := ((offset+x)%total + total) % total
		if sx >= b.Dx() {
			continue
		}
		draw.Copy(out, image.Pt(x, 0), img, image.Rect(b.Min.X+sx, b.Min.Y, b.Min.X+sx+1, b.Max.Y), draw.Src, nil)
	}
	return out
}

// ScrollLen returns the number of distinct Scroll offsets of img.
func ScrollLen(img image.Image, width int) int {
	return img.Bounds().Dx() + width
}
