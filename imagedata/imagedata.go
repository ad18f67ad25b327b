// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package imagedata turns image files and rendered text into flat pixel
// buffers for LED strips and matrices.
//
// Buffers are row-major, top to bottom, with red, green and blue in the
// first three bytes of each pixel. Use the serpentine package to reorder them
// for a matrix wired in columns.
package imagedata

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"math"

	"github.com/fogleman/gg"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Opts describes the buffer to produce.
type Opts struct {
	// Width and Height of the LED matrix.
	Width, Height int
	// BytesPerPixel is 3 or 4. The fourth byte is left at 0. Defaults to 3.
	BytesPerPixel int
	// Rotation in degrees, clockwise, applied around the image center.
	Rotation float64
	// Darken lowers the brightness by this many steps of 30%.
	Darken int
	// Scale shrinks images larger than Width x Height instead of rejecting
	// them.
	Scale bool
}

func (o *Opts) check() (Opts, error) {
	c := *o
	if c.BytesPerPixel == 0 {
		c.BytesPerPixel = 3
	}
	if c.BytesPerPixel != 3 && c.BytesPerPixel != 4 {
		return c, fmt.Errorf("imagedata: bytes per pixel must be 3 or 4, got %d", c.BytesPerPixel)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return c, fmt.Errorf("imagedata: invalid size %dx%d", c.Width, c.Height)
	}
	if c.Darken < 0 {
		return c, errors.New("imagedata: Darken can not be negative")
	}
	return c, nil
}

// Load reads the image at path and returns its pixels. PNG, JPEG, GIF, BMP
// and WebP files are supported.
func Load(path string, opts *Opts) ([]byte, error) {
	o, err := opts.check()
	if err != nil {
		return nil, err
	}
	img, err := gg.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("imagedata: %w", err)
	}
	return fromImage(img, &o)
}

// FromImage returns the pixels of img. Pixels outside of img are black.
func FromImage(img image.Image, opts *Opts) ([]byte, error) {
	o, err := opts.check()
	if err != nil {
		return nil, err
	}
	return fromImage(img, &o)
}

func fromImage(img image.Image, o *Opts) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() > o.Width || b.Dy() > o.Height {
		if !o.Scale {
			return nil, fmt.Errorf("imagedata: image (%dx%d) is larger than %dx%d", b.Dx(), b.Dy(), o.Width, o.Height)
		}
		img = fit(img, o.Width, o.Height)
		b = img.Bounds()
	}
	if o.Rotation != 0 {
		img = Rotate(img, o.Rotation)
		b = img.Bounds()
	}
	bpp := o.BytesPerPixel
	out := make([]byte, o.Width*o.Height*bpp)
	for y := 0; y < o.Height; y++ {
		for x := 0; x < o.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			c = Darker(c, o.Darken)
			i := (y*o.Width + x) * bpp
			out[i] = c.R
			out[i+1] = c.G
			out[i+2] = c.B
		}
	}
	return out, nil
}

// fit scales img down to fit in width x height, keeping its aspect ratio.
func fit(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	ratio := math.Min(float64(width)/float64(b.Dx()), float64(height)/float64(b.Dy()))
	w := max(1, int(float64(b.Dx())*ratio))
	h := max(1, int(float64(b.Dy())*ratio))
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Rotate returns img rotated clockwise by degrees around its center. The
// result is large enough to hold the whole rotated image; uncovered pixels
// are transparent.
func Rotate(img image.Image, degrees float64) image.Image {
	rad := gg.Radians(degrees)
	sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	nw := int(math.Floor(float64(w)*cos + float64(h)*sin))
	nh := int(math.Floor(float64(h)*cos + float64(w)*sin))
	dc := gg.NewContext(nw, nh)
	dc.Translate(float64((nw-w)/2), float64((nh-h)/2))
	dc.RotateAbout(rad, float64(w/2), float64(h/2))
	dc.DrawImage(img, 0, 0)
	return dc.Image()
}

// Darker returns c darkened steps times by 30%, rounding down.
func Darker(c color.NRGBA, steps int) color.NRGBA {
	for i := 0; i < steps; i++ {
		c.R = byte(float64(c.R) * 0.7)
		c.G = byte(float64(c.G) * 0.7)
		c.B = byte(float64(c.B) * 0.7)
	}
	return c
}
