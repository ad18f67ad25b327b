// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package expander

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"periph.io/x/conn/v3/display"
)

// ChannelOpts describes the LED string connected to one output.
type ChannelOpts struct {
	// Channel is the expander output, 0 to 7 on a single board.
	Channel uint8
	// NumPixels is the number of LEDs in the string.
	NumPixels int
	// BytesPerPixel is 3 for RGB strings and 4 for RGBW strings. Defaults to
	// 3.
	BytesPerPixel int
	// Order is the byte layout of a pixel. The zero value selects GRB, or
	// GRBW for 4 bytes per pixel.
	Order ColorOrder
	// AutoDraw sends a draw command after every update. Leave it off when
	// several channels must change together and call Dev.Draw instead.
	AutoDraw bool
}

// Channel is a LED string attached to one output of the expander. It keeps
// a frame buffer so partial updates are possible.
//
// Channel implements display.Drawer as a NumPixels x 1 display.
type Channel struct {
	dev    *Dev
	opts   ChannelOpts
	pixels []byte
}

// Channel returns a handle to the LED string described by opts.
func (d *Dev) Channel(opts *ChannelOpts) (*Channel, error) {
	o := *opts
	if o.BytesPerPixel == 0 {
		o.BytesPerPixel = 3
	}
	if o.BytesPerPixel != 3 && o.BytesPerPixel != 4 {
		return nil, fmt.Errorf("%w: %d", ErrBytesPerPixel, o.BytesPerPixel)
	}
	if o.Order == (ColorOrder{}) {
		o.Order = GRB
		if o.BytesPerPixel == 4 {
			o.Order = GRBW
		}
	}
	if _, err := o.Order.Pack(); err != nil {
		return nil, err
	}
	if o.BytesPerPixel == 3 && (o.Order.R > 2 || o.Order.G > 2 || o.Order.B > 2) {
		return nil, fmt.Errorf("%w: %s with 3 bytes per pixel", ErrColorIndex, o.Order)
	}
	if o.NumPixels <= 0 || o.NumPixels > MaxPixels {
		return nil, fmt.Errorf("expander: invalid number of pixels %d", o.NumPixels)
	}
	if o.Channel == BroadcastChannel {
		return nil, errors.New("expander: the broadcast channel can not hold pixels")
	}
	return &Channel{dev: d, opts: o, pixels: make([]byte, o.NumPixels*o.BytesPerPixel)}, nil
}

func (c *Channel) String() string {
	return fmt.Sprintf("%s channel %d (%d pixels)", c.dev, c.opts.Channel, c.opts.NumPixels)
}

// Halt implements conn.Resource. It turns all the LEDs of the string off.
func (c *Channel) Halt() error {
	return c.Off()
}

// ColorModel implements display.Drawer.
func (c *Channel) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (c *Channel) Bounds() image.Rectangle {
	return image.Rectangle{Max: image.Point{X: c.opts.NumPixels, Y: 1}}
}

// Draw implements display.Drawer.
//
// Only the first row of src is used.
func (c *Channel) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(c.Bounds())
	srcR := src.Bounds()
	srcR.Min = srcR.Min.Add(sp)
	if dX := r.Dx(); dX < srcR.Dx() {
		srcR.Max.X = srcR.Min.X + dX
	}
	deltaX := r.Min.X - srcR.Min.X
	for sX := srcR.Min.X; sX < srcR.Max.X; sX++ {
		c.set(sX+deltaX, src.At(sX, srcR.Min.Y))
	}
	return c.flush()
}

// Fill sets every pixel to col.
func (c *Channel) Fill(col color.Color) error {
	for i := 0; i < c.opts.NumPixels; i++ {
		c.set(i, col)
	}
	return c.flush()
}

// Off sets every pixel to black and draws.
func (c *Channel) Off() error {
	clear(c.pixels)
	if err := c.dev.SendPixels(c.opts.Channel, c.opts.BytesPerPixel, c.opts.Order, c.pixels); err != nil {
		return err
	}
	return c.dev.Draw()
}

// Write accepts a stream of raw RGB pixels, 3 bytes per pixel, starting at
// the first LED. It reorders them to the wire layout and sends the whole
// frame buffer. On 4 bytes per pixel strings the white LED is left off.
func (c *Channel) Write(rgb []byte) (int, error) {
	if len(rgb)%3 != 0 {
		return 0, errors.New("expander: invalid RGB stream length")
	}
	if n := len(rgb) / 3; n > c.opts.NumPixels {
		return 0, fmt.Errorf("expander: %d pixels written to a string of %d", n, c.opts.NumPixels)
	}
	bpp := c.opts.BytesPerPixel
	o := c.opts.Order
	for i := 0; i < len(rgb)/3; i++ {
		p := c.pixels[i*bpp : (i+1)*bpp]
		if bpp == 4 {
			p[o.W] = 0
		}
		p[o.R] = rgb[3*i]
		p[o.G] = rgb[3*i+1]
		p[o.B] = rgb[3*i+2]
	}
	if err := c.flush(); err != nil {
		return 0, err
	}
	return len(rgb), nil
}

// WriteRaw sends pixels already in the wire layout of the channel.
func (c *Channel) WriteRaw(pixels []byte) (int, error) {
	if len(pixels) > len(c.pixels) {
		return 0, fmt.Errorf("expander: %d bytes written to a buffer of %d", len(pixels), len(c.pixels))
	}
	copy(c.pixels, pixels)
	if err := c.flush(); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// set stores col at LED i in the wire layout.
func (c *Channel) set(i int, col color.Color) {
	n := color.NRGBAModel.Convert(col).(color.NRGBA)
	bpp := c.opts.BytesPerPixel
	o := c.opts.Order
	p := c.pixels[i*bpp : (i+1)*bpp]
	if bpp == 4 {
		p[o.W] = 0
	}
	p[o.R] = n.R
	p[o.G] = n.G
	p[o.B] = n.B
}

func (c *Channel) flush() error {
	if err := c.dev.SendPixels(c.opts.Channel, c.opts.BytesPerPixel, c.opts.Order, c.pixels); err != nil {
		return err
	}
	if c.opts.AutoDraw {
		return c.dev.Draw()
	}
	return nil
}

var _ display.Drawer = &Channel{}
