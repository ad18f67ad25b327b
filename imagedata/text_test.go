// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package imagedata

import (
	"image"
	"image/color"
	"testing"
)

func TestText(t *testing.T) {
	img, err := Text("Hi", &TextOpts{Height: 8})
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	if b.Dy() != 8 || b.Dx() < 4 {
		t.Fatalf("unexpected bounds %v", b)
	}
	lit := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r != 0 {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Fatal("nothing was drawn")
	}
	wide, err := Text("Hi there", &TextOpts{Height: 8})
	if err != nil {
		t.Fatal(err)
	}
	if wide.Bounds().Dx() <= b.Dx() {
		t.Errorf("longer text is not wider: %d <= %d", wide.Bounds().Dx(), b.Dx())
	}
}

func TestTextErrors(t *testing.T) {
	if _, err := Text("", &TextOpts{Height: 8}); err == nil {
		t.Error("expected error for empty text")
	}
	if _, err := Text("a", &TextOpts{}); err == nil {
		t.Error("expected error for zero height")
	}
}

func TestScroll(t *testing.T) {
	// 2 columns: red then green.
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	red := color.NRGBA{R: 255, A: 255}
	green := color.NRGBA{G: 255, A: 255}
	black := color.NRGBA{A: 255}
	img.SetNRGBA(0, 0, red)
	img.SetNRGBA(1, 0, green)

	if n := ScrollLen(img, 3); n != 5 {
		t.Fatalf("ScrollLen()=%d", n)
	}
	var tests = []struct {
		offset int
		want   []color.NRGBA
	}{
		{0, []color.NRGBA{red, green, black}},
		{1, []color.NRGBA{green, black, black}},
		{3, []color.NRGBA{black, black, red}},
		{5, []color.NRGBA{red, green, black}},
		{-1, []color.NRGBA{black, red, green}},
	}
	for _, test := range tests {
		w := Scroll(img, 3, test.offset)
		for x, want := range test.want {
			if got := color.NRGBAModel.Convert(w.At(x, 0)); got != want {
				t.Errorf("offset %d column %d: %v expected %v", test.offset, x, got, want)
			}
		}
	}
}
