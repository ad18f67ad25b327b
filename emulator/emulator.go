// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package emulator implements a Pixelblaze Output Expander that outputs to
// the terminal using ANSI color codes.
//
// Hand it to expander.New in place of a serial port to try animations
// without hardware.
package emulator

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"sort"
	"sync"

	"github.com/GermanBionicSystems/pixelblaze/expander"
	"github.com/GermanBionicSystems/pixelblaze/serpentine"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// Opts represents the options available for the emulator.
type Opts struct {
	// W defaults to stdout.
	W       io.Writer
	Palette *ansi256.Palette
	// Height, when set, shows each channel as a serpentine matrix with this
	// many rows instead of a single line.
	Height int

	_ struct{}
}

// Dev decodes the expander wire protocol written to it and prints every
// channel when a draw command is received.
//
// Frames with a bad checksum are dropped, as the hardware does.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette
	height  int

	mu       sync.Mutex
	pending  []byte
	channels map[uint8][]byte
	draws    int
	errs     int
	lines    int
	buf      bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Dev{
		w:        w,
		palette:  *p,
		height:   opts.Height,
		channels: map[uint8][]byte{},
	}
}

func (d *Dev) String() string {
	return "Emulator"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Write implements io.Writer. Complete frames are processed immediately;
// a partial frame is kept until the rest arrives.
func (d *Dev) Write(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, b...)
	r := bytes.NewReader(d.pending)
	dec := expander.NewDecoder(r)
	consumed := 0
	var err error
	for {
		f, derr := dec.Decode()
		if errors.Is(derr, io.EOF) {
			consumed = len(d.pending)
			break
		}
		if errors.Is(derr, io.ErrUnexpectedEOF) {
			break
		}
		consumed = len(d.pending) - r.Len()
		if derr != nil {
			d.errs++
			continue
		}
		if perr := d.process(f); perr != nil && err == nil {
			err = perr
		}
	}
	d.pending = append(d.pending[:0], d.pending[consumed:]...)
	return len(b), err
}

// Pixels returns the RGB pixels last received on channel.
func (d *Dev) Pixels(channel uint8) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.channels[channel]...)
}

// Draws returns the number of draw commands received.
func (d *Dev) Draws() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draws
}

// Errors returns the number of frames dropped.
func (d *Dev) Errors() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errs
}

func (d *Dev) process(f *expander.Frame) error {
	switch f.Command {
	case expander.WS2812Data:
		o, bpp := f.Order, uint8(f.BytesPerPixel)
		if o.R >= bpp || o.G >= bpp || o.B >= bpp {
			d.errs++
			return nil
		}
		d.channels[f.Channel] = toRGB(f)
		return nil
	case expander.DrawAll:
		d.draws++
		return d.refresh()
	default:
		return nil
	}
}

// toRGB reorders the frame pixels to RGB. White is added to each component.
func toRGB(f *expander.Frame) []byte {
	n := f.NumPixels()
	out := make([]byte, 3*n)
	bpp := f.BytesPerPixel
	for i := 0; i < n; i++ {
		px := f.Pixels[i*bpp : (i+1)*bpp]
		var w byte
		if bpp == 4 {
			w = px[f.Order.W]
		}
		out[3*i] = addSat(px[f.Order.R], w)
		out[3*i+1] = addSat(px[f.Order.G], w)
		out[3*i+2] = addSat(px[f.Order.B], w)
	}
	return out
}

func addSat(a, b byte) byte {
	if s := int(a) + int(b); s < 256 {
		return byte(s)
	}
	return 255
}

func (d *Dev) refresh() error {
	ids := make([]int, 0, len(d.channels))
	for ch := range d.channels {
		ids = append(ids, int(ch))
	}
	sort.Ints(ids)

	d.buf.Reset()
	if d.lines != 0 {
		fmt.Fprintf(&d.buf, "\033[%dA", d.lines)
	}
	d.lines = 0
	for _, ch := range ids {
		px := d.channels[uint8(ch)]
		if d.height > 0 && len(px)%(3*d.height) == 0 && len(px) != 0 {
			d.matrix(px)
			continue
		}
		d.row(px)
	}
	_, err := d.buf.WriteTo(d.w)
	return err
}

func (d *Dev) row(rgb []byte) {
	_, _ = d.buf.WriteString("\r\033[0m")
	for i := 0; i+2 < len(rgb); i += 3 {
		c := color.NRGBA{rgb[i], rgb[i+1], rgb[i+2], 255}
		_, _ = io.WriteString(&d.buf, d.palette.Block(c))
	}
	_, _ = d.buf.WriteString("\033[0m\n")
	d.lines++
}

func (d *Dev) matrix(strip []byte) {
	w := len(strip) / 3 / d.height
	img, err := serpentine.MatrixToImage(strip, 3, w, d.height)
	if err != nil {
		d.row(strip)
		return
	}
	for y := 0; y < d.height; y++ {
		d.row(img[3*w*y : 3*w*(y+1)])
	}
}
