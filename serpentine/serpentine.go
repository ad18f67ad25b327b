// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package serpentine maps images onto LED matrices built from a single
// chained strip wired in columns: the first column runs top to bottom, the
// second bottom to top, and so on.
//
// Images are read row by row, so the pixels have to be reordered before they
// are sent to the strip.
package serpentine

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"periph.io/x/conn/v3/display"
)

// ErrGeometry is returned when a buffer does not match the matrix size.
var ErrGeometry = errors.New("serpentine: buffer length does not match geometry")

// Layout is the size of a matrix in pixels.
type Layout struct {
	Width, Height int
}

// Index returns the position along the strip of the pixel at column x,
// row y.
func (l Layout) Index(x, y int) int {
	if x%2 == 0 {
		return x*l.Height + y
	}
	return x*l.Height + l.Height - 1 - y
}

// Point is the reverse of Index.
func (l Layout) Point(i int) (x, y int) {
	x, y = i/l.Height, i%l.Height
	if x%2 != 0 {
		y = l.Height - 1 - y
	}
	return x, y
}

// Len returns the number of pixels.
func (l Layout) Len() int {
	return l.Width * l.Height
}

func (l Layout) check(buf []byte, bpp int) error {
	if l.Width <= 0 || l.Height <= 0 || bpp <= 0 {
		return fmt.Errorf("serpentine: invalid geometry %dx%d with %d bytes per pixel", l.Width, l.Height, bpp)
	}
	if len(buf) != l.Len()*bpp {
		return fmt.Errorf("%w: %d bytes for %dx%dx%d", ErrGeometry, len(buf), l.Width, l.Height, bpp)
	}
	return nil
}

// ImageToMatrix converts a row-major image of width x height pixels into
// strip order. bpp is the number of bytes per pixel.
func ImageToMatrix(img []byte, bpp, width, height int) ([]byte, error) {
	l := Layout{Width: width, Height: height}
	if err := l.check(img, bpp); err != nil {
		return nil, err
	}
	out := make([]byte, len(img))
	src := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dst := l.Index(x, y) * bpp
			copy(out[dst:dst+bpp], img[src:src+bpp])
			src += bpp
		}
	}
	return out, nil
}

// MatrixToImage is the reverse of ImageToMatrix.
func MatrixToImage(matrix []byte, bpp, width, height int) ([]byte, error) {
	l := Layout{Width: width, Height: height}
	if err := l.check(matrix, bpp); err != nil {
		return nil, err
	}
	out := make([]byte, len(matrix))
	dst := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			src := l.Index(x, y) * bpp
			copy(out[dst:dst+bpp], matrix[src:src+bpp])
			dst += bpp
		}
	}
	return out, nil
}

// Matrix is a serpentine LED matrix fed through an RGB pixel stream, usually
// an expander.Channel. It implements display.Drawer.
type Matrix struct {
	w      io.Writer
	layout Layout
	// img is row-major RGB.
	img []byte
}

// NewMatrix returns a width x height matrix writing RGB strip data to w.
func NewMatrix(w io.Writer, width, height int) (*Matrix, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("serpentine: invalid geometry %dx%d", width, height)
	}
	l := Layout{Width: width, Height: height}
	return &Matrix{w: w, layout: l, img: make([]byte, l.Len()*3)}, nil
}

func (m *Matrix) String() string {
	return fmt.Sprintf("SerpentineMatrix{%dx%d}", m.layout.Width, m.layout.Height)
}

// Halt implements conn.Resource. It blanks the matrix.
func (m *Matrix) Halt() error {
	clear(m.img)
	return m.refresh()
}

// ColorModel implements display.Drawer.
func (m *Matrix) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (m *Matrix) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.layout.Width, m.layout.Height)
}

// Draw implements display.Drawer.
func (m *Matrix) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(m.Bounds())
	srcR := src.Bounds()
	srcR.Min = srcR.Min.Add(sp)
	if dX := r.Dx(); dX < srcR.Dx() {
		srcR.Max.X = srcR.Min.X + dX
	}
	if dY := r.Dy(); dY < srcR.Dy() {
		srcR.Max.Y = srcR.Min.Y + dY
	}
	delta := r.Min.Sub(srcR.Min)
	for sY := srcR.Min.Y; sY < srcR.Max.Y; sY++ {
		for sX := srcR.Min.X; sX < srcR.Max.X; sX++ {
			c := color.NRGBAModel.Convert(src.At(sX, sY)).(color.NRGBA)
			i := 3 * ((sY+delta.Y)*m.layout.Width + sX + delta.X)
			m.img[i] = c.R
			m.img[i+1] = c.G
			m.img[i+2] = c.B
		}
	}
	return m.refresh()
}

// Write accepts a row-major RGB image covering the whole matrix.
func (m *Matrix) Write(rgb []byte) (int, error) {
	if err := m.layout.check(rgb, 3); err != nil {
		return 0, err
	}
	copy(m.img, rgb)
	if err := m.refresh(); err != nil {
		return 0, err
	}
	return len(rgb), nil
}

func (m *Matrix) refresh() error {
	strip, err := ImageToMatrix(m.img, 3, m.layout.Width, m.layout.Height)
	if err != nil {
		return err
	}
	_, err = m.w.Write(strip)
	return err
}

var _ display.Drawer = &Matrix{}
