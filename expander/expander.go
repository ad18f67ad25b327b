// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package expander drives a Pixelblaze Output Expander, a serial to 8x
// WS2812/APA102 LED driver board.
//
// The host pushes pixel data for one or more channels, then sends a single
// draw command so all channels update at the same time:
//
//	dev.SendPixels(0, 3, expander.GRB, strip)
//	dev.SendPixels(1, 3, expander.GRB, matrix)
//	dev.Draw()
//
// Every frame starts with the ASCII magic "UPXL", a channel and a command
// byte, and ends with the little-endian CRC-32 of all bytes preceding it.
//
// # Protocol
//
// https://github.com/simap/pixelblaze_output_expander/tree/v3.x
package expander

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/GermanBionicSystems/pixelblaze/common"
	"go.uber.org/zap"
	"periph.io/x/conn/v3"
)

// Command is the frame type sent in byte 5 of the header.
type Command byte

const (
	// WS2812Data pushes pixel data for one channel.
	WS2812Data Command = 1
	// DrawAll latches the pixel data of every channel to the LEDs.
	DrawAll Command = 2
	// APA102Data is reserved by the firmware. No frame layout is defined here.
	APA102Data Command = 3
	// APA102Clock is reserved by the firmware. No frame layout is defined here.
	APA102Clock Command = 4
)

func (c Command) String() string {
	switch c {
	case WS2812Data:
		return "WS2812Data"
	case DrawAll:
		return "DrawAll"
	case APA102Data:
		return "APA102Data"
	case APA102Clock:
		return "APA102Clock"
	default:
		return fmt.Sprintf("Command(%d)", byte(c))
	}
}

const (
	// Magic starts every frame.
	Magic = "UPXL"
	// BroadcastChannel addresses all channels. It is used by DrawAll.
	BroadcastChannel uint8 = 0xff
	// MaxPixels is the largest pixel count the 16 bit count field can carry.
	MaxPixels = 0xffff

	headerSize      = 6
	pixelHeaderSize = headerSize + 4
	checksumSize    = 4
)

var (
	ErrBytesPerPixel      = errors.New("expander: bytes per pixel must be 3 or 4")
	ErrColorIndex         = errors.New("expander: color index must be between 0 and 3")
	ErrNilPixels          = errors.New("expander: pixel data can not be nil")
	ErrTooManyPixels      = errors.New("expander: pixel count exceeds 65535")
	ErrChecksum           = errors.New("expander: checksum mismatch")
	ErrUnknownCommand     = errors.New("expander: unknown command")
	ErrUnsupportedCommand = errors.New("expander: unsupported command")
)

// ColorOrder declares which byte of a pixel holds each color. Each index
// is 0 to 3. W is only meaningful for 4 bytes per pixel.
type ColorOrder struct {
	R, G, B, W uint8
}

// Orders used by common LED strips.
var (
	// GRB is the WS2812B order.
	GRB = ColorOrder{R: 1, G: 0, B: 2, W: 0}
	RGB = ColorOrder{R: 0, G: 1, B: 2, W: 0}
	// GRBW is the SK6812 RGBW order.
	GRBW = ColorOrder{R: 1, G: 0, B: 2, W: 3}
	RGBW = ColorOrder{R: 0, G: 1, B: 2, W: 3}
)

// Pack returns the configuration byte sent in the pixel data header.
func (o ColorOrder) Pack() (byte, error) {
	if o.R > 3 || o.G > 3 || o.B > 3 || o.W > 3 {
		return 0, fmt.Errorf("%w: r=%d g=%d b=%d w=%d", ErrColorIndex, o.R, o.G, o.B, o.W)
	}
	return o.R | o.G<<2 | o.B<<4 | o.W<<6, nil
}

func (o ColorOrder) String() string {
	return fmt.Sprintf("ColorOrder{R:%d G:%d B:%d W:%d}", o.R, o.G, o.B, o.W)
}

// UnpackColorOrder is the reverse of ColorOrder.Pack.
func UnpackColorOrder(b byte) ColorOrder {
	return ColorOrder{R: b & 3, G: (b >> 2) & 3, B: (b >> 4) & 3, W: (b >> 6) & 3}
}

// Opts holds optional settings for a Dev.
type Opts struct {
	// Logger receives a hex dump of each pixel frame at debug level. Nil
	// disables logging.
	Logger *zap.Logger
}

// Dev is a handle to a Pixelblaze Output Expander.
//
// Frames are written whole; concurrent callers never interleave.
type Dev struct {
	mu  sync.Mutex
	c   conn.Conn
	w   io.Writer
	log *zap.Logger
}

// New returns a Dev writing to w. periph.io has no UART driver, so w is
// usually a serialport.Port, but any io.Writer works.
func New(w io.Writer, opts *Opts) *Dev {
	d := &Dev{w: w}
	d.setOpts(opts)
	return d
}

// NewConn returns a Dev writing to a periph.io connection.
func NewConn(c conn.Conn, opts *Opts) *Dev {
	d := &Dev{c: c}
	d.setOpts(opts)
	return d
}

func (d *Dev) setOpts(opts *Opts) {
	d.log = zap.NewNop()
	if opts != nil && opts.Logger != nil {
		d.log = opts.Logger
	}
}

func (d *Dev) String() string {
	if d.c != nil {
		return fmt.Sprintf("PixelblazeOutputExpander{%s}", d.c)
	}
	return fmt.Sprintf("PixelblazeOutputExpander{%T}", d.w)
}

// Halt implements conn.Resource.
//
// The expander keeps showing the last drawn frame; use AllOff to blank a
// channel.
func (d *Dev) Halt() error {
	return nil
}

// SendPixels pushes pixel data for channel. It does not draw it, call Draw
// once all channels are loaded.
//
// bpp is 3 or 4. pixels holds len(pixels)/bpp pixels laid out as described
// by order. Invalid arguments are rejected before anything is written.
func (d *Dev) SendPixels(channel uint8, bpp int, order ColorOrder, pixels []byte) error {
	hdr, err := pixelHeader(channel, bpp, order, pixels)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if ce := d.log.Check(zap.DebugLevel, "pixel data"); ce != nil {
		ce.Write(zap.Uint8("channel", channel), zap.Int("pixels", len(pixels)/bpp), zap.String("data", hex.Dump(pixels)))
	}
	crc := common.NewCRC32()
	crc.Update(hdr)
	if err := d.write(hdr); err != nil {
		return wrapErr(err)
	}
	if len(pixels) != 0 {
		crc.Update(pixels)
		if err := d.write(pixels); err != nil {
			return wrapErr(err)
		}
	}
	return wrapErr(d.writeChecksum(crc))
}

// Draw tells every channel to render the pixel data it received.
func (d *Dev) Draw() error {
	return d.DrawChannel(BroadcastChannel)
}

// DrawChannel sends a draw command addressed to channel. The firmware
// expects BroadcastChannel; Draw is the usual entry point.
func (d *Dev) DrawChannel(channel uint8) error {
	hdr := appendHeader(make([]byte, 0, headerSize), channel, DrawAll)
	d.mu.Lock()
	defer d.mu.Unlock()
	crc := common.NewCRC32()
	crc.Update(hdr)
	if err := d.write(hdr); err != nil {
		return wrapErr(err)
	}
	return wrapErr(d.writeChecksum(crc))
}

// AllOff turns off numLEDs pixels on channel and draws. A bpp of 0 selects
// 3 bytes per pixel.
func (d *Dev) AllOff(channel uint8, numLEDs, bpp int) error {
	if bpp == 0 {
		bpp = 3
	}
	if numLEDs < 0 {
		return fmt.Errorf("expander: invalid LED count %d", numLEDs)
	}
	if bpp != 3 && bpp != 4 {
		return fmt.Errorf("%w: %d", ErrBytesPerPixel, bpp)
	}
	if err := d.SendPixels(channel, bpp, GRB, make([]byte, numLEDs*bpp)); err != nil {
		return err
	}
	return d.Draw()
}

// write must be called with mu held.
func (d *Dev) write(p []byte) error {
	if d.c != nil {
		return d.c.Tx(p, nil)
	}
	n, err := d.w.Write(p)
	if err == nil && n != len(p) {
		err = io.ErrShortWrite
	}
	return err
}

type flusher interface {
	Flush() error
}

// writeChecksum terminates the frame and flushes buffered transports.
func (d *Dev) writeChecksum(crc *common.CRC32) error {
	sum := crc.SumLE()
	if err := d.write(sum[:]); err != nil {
		return err
	}
	if f, ok := d.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

func pixelHeader(channel uint8, bpp int, order ColorOrder, pixels []byte) ([]byte, error) {
	if bpp != 3 && bpp != 4 {
		return nil, fmt.Errorf("%w: %d", ErrBytesPerPixel, bpp)
	}
	packed, err := order.Pack()
	if err != nil {
		return nil, err
	}
	if pixels == nil {
		return nil, ErrNilPixels
	}
	count := len(pixels) / bpp
	if count > MaxPixels {
		return nil, fmt.Errorf("%w: %d", ErrTooManyPixels, count)
	}
	b := appendHeader(make([]byte, 0, pixelHeaderSize), channel, WS2812Data)
	b = append(b, byte(bpp), packed)
	return binary.LittleEndian.AppendUint16(b, uint16(count)), nil
}

func appendHeader(b []byte, channel uint8, cmd Command) []byte {
	b = append(b, Magic...)
	return append(b, channel, byte(cmd))
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("expander: %w", err)
}

var _ conn.Resource = &Dev{}
