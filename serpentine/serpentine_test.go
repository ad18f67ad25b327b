// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package serpentine

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// markers returns a row-major buffer where every pixel holds its own index.
func markers(width, height, bpp int) []byte {
	b := make([]byte, width*height*bpp)
	for i := 0; i < width*height; i++ {
		for j := 0; j < bpp; j++ {
			b[i*bpp+j] = byte(i + j*64)
		}
	}
	return b
}

func TestIndex(t *testing.T) {
	l := Layout{Width: 3, Height: 4}
	// Column 0 down, column 1 up, column 2 down.
	want := [][]int{
		{0, 7, 8},
		{1, 6, 9},
		{2, 5, 10},
		{3, 4, 11},
	}
	for y, row := range want {
		for x, i := range row {
			if got := l.Index(x, y); got != i {
				t.Errorf("Index(%d, %d)=%d expected %d", x, y, got, i)
			}
			if gx, gy := l.Point(i); gx != x || gy != y {
				t.Errorf("Point(%d)=(%d, %d) expected (%d, %d)", i, gx, gy, x, y)
			}
		}
	}
}

func TestImageToMatrix(t *testing.T) {
	// 2x3 image, 1 byte per pixel: rows are [a b] [c d] [e f].
	img := []byte{'a', 'b', 'c', 'd', 'e', 'f'}
	got, err := ImageToMatrix(img, 1, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte("acefdb"), got); diff != "" {
		t.Errorf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestImageToMatrixNot8Rows(t *testing.T) {
	// A hard-coded row count of 8 would put pixels out of range here.
	img := markers(5, 3, 3)
	got, err := ImageToMatrix(img, 3, 5, 3)
	if err != nil {
		t.Fatal(err)
	}
	l := Layout{Width: 5, Height: 3}
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			src := (y*5 + x) * 3
			dst := l.Index(x, y) * 3
			if diff := cmp.Diff(img[src:src+3], got[dst:dst+3]); diff != "" {
				t.Errorf("pixel (%d, %d) (-want +got):\n%s", x, y, diff)
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	var tests = []struct {
		width, height, bpp int
	}{
		{32, 8, 3},
		{8, 8, 3},
		{16, 16, 4},
		{1, 1, 3},
		{7, 5, 3},
		{1, 9, 4},
	}
	for _, test := range tests {
		img := markers(test.width, test.height, test.bpp)
		m, err := ImageToMatrix(img, test.bpp, test.width, test.height)
		if err != nil {
			t.Fatal(err)
		}
		if len(m) != len(img) {
			t.Fatalf("length %d, expected %d", len(m), len(img))
		}
		// Every source pixel appears exactly once.
		seen := map[string]int{}
		for i := 0; i < len(m); i += test.bpp {
			seen[string(m[i:i+test.bpp])]++
		}
		if len(seen) != test.width*test.height {
			t.Errorf("%dx%d: %d distinct pixels, expected %d", test.width, test.height, len(seen), test.width*test.height)
		}
		back, err := MatrixToImage(m, test.bpp, test.width, test.height)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(img, back); diff != "" {
			t.Errorf("%dx%d round trip (-want +got):\n%s", test.width, test.height, diff)
		}
	}
}

func TestGeometryError(t *testing.T) {
	if _, err := ImageToMatrix(make([]byte, 10), 3, 2, 2); !errors.Is(err, ErrGeometry) {
		t.Errorf("expected ErrGeometry, got %v", err)
	}
	if _, err := MatrixToImage(make([]byte, 13), 3, 2, 2); !errors.Is(err, ErrGeometry) {
		t.Errorf("expected ErrGeometry, got %v", err)
	}
	if _, err := ImageToMatrix(nil, 3, 0, 2); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestMatrixDraw(t *testing.T) {
	var buf bytes.Buffer
	m, err := NewMatrix(&buf, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 1, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 2, A: 255})
	img.SetNRGBA(0, 1, color.NRGBA{R: 3, A: 255})
	img.SetNRGBA(1, 1, color.NRGBA{R: 4, A: 255})
	if err := m.Draw(m.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	// Strip order: (0,0) (0,1) (1,1) (1,0).
	want := []byte{1, 0, 0, 3, 0, 0, 4, 0, 0, 2, 0, 0}
	if diff := cmp.Diff(want, buf.Bytes()); diff != "" {
		t.Errorf("unexpected strip (-want +got):\n%s", diff)
	}

	buf.Reset()
	if err := m.Halt(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(make([]byte, 12), buf.Bytes()); diff != "" {
		t.Errorf("unexpected strip after Halt (-want +got):\n%s", diff)
	}
}

func TestMatrixWrite(t *testing.T) {
	var buf bytes.Buffer
	m, err := NewMatrix(&buf, 32, 8)
	if err != nil {
		t.Fatal(err)
	}
	img := markers(32, 8, 3)
	if _, err := m.Write(img); err != nil {
		t.Fatal(err)
	}
	want, _ := ImageToMatrix(img, 3, 32, 8)
	if diff := cmp.Diff(want, buf.Bytes()); diff != "" {
		t.Errorf("unexpected strip (-want +got):\n%s", diff)
	}
	if _, err := m.Write(img[:3]); !errors.Is(err, ErrGeometry) {
		t.Errorf("expected ErrGeometry, got %v", err)
	}
	if _, err := NewMatrix(&buf, 0, 8); err == nil {
		t.Error("expected error for zero width")
	}
}
