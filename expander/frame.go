// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package expander

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/GermanBionicSystems/pixelblaze/common"
)

// Frame is one decoded protocol message.
type Frame struct {
	Channel uint8
	Command Command
	// BytesPerPixel, Order and Pixels are only set for WS2812Data.
	BytesPerPixel int
	Order         ColorOrder
	Pixels        []byte
}

// NumPixels returns the number of pixels carried by the frame.
func (f *Frame) NumPixels() int {
	if f.BytesPerPixel == 0 {
		return 0
	}
	return len(f.Pixels) / f.BytesPerPixel
}

// MarshalBinary implements encoding.BinaryMarshaler. It returns the frame
// as one contiguous buffer including the trailing checksum.
func (f *Frame) MarshalBinary() ([]byte, error) {
	var b []byte
	switch f.Command {
	case WS2812Data:
		hdr, err := pixelHeader(f.Channel, f.BytesPerPixel, f.Order, f.Pixels)
		if err != nil {
			return nil, err
		}
		b = make([]byte, 0, len(hdr)+len(f.Pixels)+checksumSize)
		b = append(append(b, hdr...), f.Pixels...)
	case DrawAll:
		b = appendHeader(make([]byte, 0, headerSize+checksumSize), f.Channel, DrawAll)
	case APA102Data, APA102Clock:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCommand, f.Command)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, f.Command)
	}
	crc := common.NewCRC32()
	crc.Update(b)
	sum := crc.SumLE()
	return append(b, sum[:]...), nil
}

// Decoder reads frames from a byte stream, the way the expander firmware
// does.
type Decoder struct {
	r byteReader
}

type byteReader interface {
	io.Reader
	io.ByteReader
}

// NewDecoder returns a Decoder reading from r.
//
// If r implements io.ByteReader it is read directly and never past the end of
// the frame being decoded. Otherwise r is buffered.
func NewDecoder(r io.Reader) *Decoder {
	if br, ok := r.(byteReader); ok {
		return &Decoder{r: br}
	}
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode returns the next frame.
//
// Bytes before the magic are skipped. It returns io.EOF when the stream ends
// outside of a frame and io.ErrUnexpectedEOF when it ends inside one. A
// frame with a bad checksum returns ErrChecksum; the next call resumes with
// the byte following it.
func (d *Decoder) Decode() (*Frame, error) {
	if err := d.sync(); err != nil {
		return nil, err
	}
	var hdr [headerSize]byte
	copy(hdr[:], Magic)
	if err := d.read(hdr[len(Magic):]); err != nil {
		return nil, err
	}
	crc := common.NewCRC32()
	crc.Update(hdr[:])
	f := &Frame{Channel: hdr[4], Command: Command(hdr[5])}
	switch f.Command {
	case WS2812Data:
		var p [pixelHeaderSize - headerSize]byte
		if err := d.read(p[:]); err != nil {
			return nil, err
		}
		crc.Update(p[:])
		f.BytesPerPixel = int(p[0])
		if f.BytesPerPixel != 3 && f.BytesPerPixel != 4 {
			return nil, fmt.Errorf("%w: %d", ErrBytesPerPixel, f.BytesPerPixel)
		}
		f.Order = UnpackColorOrder(p[1])
		f.Pixels = make([]byte, int(binary.LittleEndian.Uint16(p[2:]))*f.BytesPerPixel)
		if err := d.read(f.Pixels); err != nil {
			return nil, err
		}
		crc.Update(f.Pixels)
	case DrawAll:
	case APA102Data, APA102Clock:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCommand, f.Command)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, f.Command)
	}
	var sum [checksumSize]byte
	if err := d.read(sum[:]); err != nil {
		return nil, err
	}
	if got, want := binary.LittleEndian.Uint32(sum[:]), crc.Sum32(); got != want {
		return nil, fmt.Errorf("%w: got 0x%08x, expected 0x%08x", ErrChecksum, got, want)
	}
	return f, nil
}

// sync consumes bytes up to and including the next magic.
func (d *Decoder) sync() error {
	matched := 0
	for matched < len(Magic) {
		c, err := d.r.ReadByte()
		if err != nil {
			if err == io.EOF && matched != 0 {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		switch {
		case c == Magic[matched]:
			matched++
		case c == Magic[0]:
			matched = 1
		default:
			matched = 0
		}
	}
	return nil
}

func (d *Decoder) read(b []byte) error {
	if _, err := io.ReadFull(d.r, b); err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}
