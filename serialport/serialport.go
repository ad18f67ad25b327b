// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package serialport provides a write-only UART transport that reopens the
// device on the next write after a failure.
//
// periph.io has no UART driver on Linux, so the port is opened with
// go.bug.st/serial. The Pixelblaze Output Expander runs at 2 Mbaud, 8N1.
//
// # Enabling the UART on a Raspberry Pi
//
// Run sudo raspi-config, go to "Interface Options", "Serial Port", answer
// "No" to the login shell and "Yes" to the hardware.
package serialport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.bug.st/serial"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3/distro"
)

// State is the connection state of a Port.
type State int

const (
	// StateClosed means no device handle is held. The next write opens it.
	StateClosed State = iota
	// StateOpen means the last open or write succeeded.
	StateOpen
	// StateErrored means the last write or flush failed. The next write
	// closes the handle and opens it again.
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateErrored:
		return "Errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	// DefaultBaud is the speed of the Pixelblaze Output Expander.
	DefaultBaud = 2 * physic.MegaHertz
	// DefaultBufferSize is the size of the write buffer.
	DefaultBufferSize = 8192
)

// Opener opens the underlying device.
type Opener func() (io.WriteCloser, error)

// Opts holds the settings of a Port.
type Opts struct {
	// Name is the device path, e.g. /dev/ttyS0.
	Name string
	// Baud defaults to DefaultBaud.
	Baud physic.Frequency
	// BufferSize defaults to DefaultBufferSize.
	BufferSize int
	// Logger receives open, close and failure events. Nil disables logging.
	Logger *zap.Logger
	// Open replaces the serial device, mostly for tests. Defaults to opening
	// Name with go.bug.st/serial.
	Open Opener
}

// Port is an io.Writer over a serial device.
//
// Writes are buffered; Flush sends them. The expander package flushes at the
// end of every frame.
type Port struct {
	mu       sync.Mutex
	opts     Opts
	log      *zap.Logger
	state    State
	dev      io.WriteCloser
	buf      *bufio.Writer
	attempts int
}

// New returns a Port. The device is opened on the first write, or by Open.
func New(opts *Opts) (*Port, error) {
	o := *opts
	if o.Baud == 0 {
		o.Baud = DefaultBaud
	}
	if o.Baud < physic.Hertz {
		return nil, fmt.Errorf("serialport: invalid baud rate %s", o.Baud)
	}
	if o.BufferSize == 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.BufferSize < 0 {
		return nil, fmt.Errorf("serialport: invalid buffer size %d", o.BufferSize)
	}
	if o.Open == nil {
		if o.Name == "" {
			return nil, errors.New("serialport: no device name")
		}
		o.Open = serialOpener(o.Name, int(o.Baud/physic.Hertz))
	}
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Port{opts: o, log: log.With(zap.String("port", o.Name))}, nil
}

func (p *Port) String() string {
	return fmt.Sprintf("serialport{%s}", p.opts.Name)
}

// State returns the connection state.
func (p *Port) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// OpenAttempts returns how many times the device was opened, successfully
// or not.
func (p *Port) OpenAttempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

// Open opens the device, closing the current handle first if there is one.
func (p *Port) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reopenLocked()
}

// Write implements io.Writer.
//
// If the port is not open, or the previous operation failed, the device is
// reopened first. A failed write is not retried; the port moves to
// StateErrored and the next call reconnects.
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateOpen {
		if err := p.reopenLocked(); err != nil {
			return 0, err
		}
	}
	n, err := p.buf.Write(b)
	if err != nil {
		p.failLocked(err)
		return n, fmt.Errorf("serialport: write %s: %w", p.opts.Name, err)
	}
	return n, nil
}

// Flush sends buffered bytes to the device.
func (p *Port) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateOpen {
		return nil
	}
	if err := p.buf.Flush(); err != nil {
		p.failLocked(err)
		return fmt.Errorf("serialport: flush %s: %w", p.opts.Name, err)
	}
	return nil
}

type drainer interface {
	Drain() error
}

// Close sends pending bytes, waits for the device to transmit them when
// supported, and closes it.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dev == nil {
		p.state = StateClosed
		return nil
	}
	var err error
	if p.state == StateOpen {
		err = p.buf.Flush()
		if d, ok := p.dev.(drainer); ok && err == nil {
			err = d.Drain()
		}
		if err != nil {
			p.log.Warn("error while flushing", zap.Error(err))
		}
	}
	p.log.Info("closing")
	if cerr := p.dev.Close(); err == nil {
		err = cerr
	}
	p.dev = nil
	p.buf = nil
	p.state = StateClosed
	if err != nil {
		return fmt.Errorf("serialport: close %s: %w", p.opts.Name, err)
	}
	return nil
}

func (p *Port) reopenLocked() error {
	if p.dev != nil {
		p.log.Info("closing", zap.Stringer("state", p.state))
		_ = p.dev.Close()
		p.dev = nil
		p.buf = nil
	}
	p.state = StateClosed
	p.attempts++
	dev, err := p.opts.Open()
	if err != nil {
		p.log.Warn("could not open serial port", zap.Int("attempt", p.attempts), zap.Error(err))
		return fmt.Errorf("serialport: open %s: %w", p.opts.Name, err)
	}
	p.dev = dev
	p.buf = bufio.NewWriterSize(dev, p.opts.BufferSize)
	p.state = StateOpen
	p.log.Info("opened", zap.Stringer("baud", p.opts.Baud))
	return nil
}

func (p *Port) failLocked(err error) {
	p.state = StateErrored
	p.log.Warn("write failed", zap.Error(err))
}

// serialOpener opens name at baud 8N1 with non-blocking reads.
func serialOpener(name string, baud int) Opener {
	return func() (io.WriteCloser, error) {
		mode := &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
		port, err := serial.Open(name, mode)
		if err != nil {
			return nil, err
		}
		if err := port.SetReadTimeout(0); err != nil {
			_ = port.Close()
			return nil, err
		}
		return port, nil
	}
}

// Ports lists the serial devices present on the host.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// DefaultName returns the UART exposed on the GPIO header: /dev/ttyAMA0 on a
// Raspberry Pi 5, /dev/ttyS0 otherwise.
func DefaultName() string {
	if strings.Contains(distro.DTModel(), "Raspberry Pi 5") {
		return "/dev/ttyAMA0"
	}
	return "/dev/ttyS0"
}
