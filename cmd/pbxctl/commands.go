// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/GermanBionicSystems/pixelblaze/emulator"
	"github.com/GermanBionicSystems/pixelblaze/expander"
	"github.com/GermanBionicSystems/pixelblaze/imagedata"
	"github.com/GermanBionicSystems/pixelblaze/serialport"
	"github.com/GermanBionicSystems/pixelblaze/serpentine"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"periph.io/x/host/v3"
)

type app struct {
	cfg   *Config
	log   *zap.Logger
	dev   *expander.Dev
	close func() error
	// frames paces animations to one frame per cfg.Delay.
	frames *rate.Limiter
}

// openApp connects to the expander. matrix selects the matrix layout for the
// terminal emulator.
func openApp(cfg *Config, log *zap.Logger, stdout io.Writer, matrix bool) (*app, error) {
	a := &app{cfg: cfg, log: log, frames: rate.NewLimiter(rate.Inf, 1)}
	if cfg.Delay > 0 {
		a.frames = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}
	var w io.Writer
	if cfg.Port == consolePort {
		o := emulator.Opts{W: stdout}
		if matrix {
			o.Height = cfg.Height
		}
		e := emulator.New(&o)
		w = e
		a.close = e.Halt
	} else {
		if _, err := host.Init(); err != nil {
			return nil, err
		}
		name := cfg.Port
		if name == "" {
			name = serialport.DefaultName()
		}
		p, err := serialport.New(&serialport.Opts{Name: name, Logger: log})
		if err != nil {
			return nil, err
		}
		w = p
		a.close = p.Close
	}
	a.dev = expander.New(w, &expander.Opts{Logger: log})
	return a, nil
}

func listPorts(stdout io.Writer) error {
	ports, err := serialport.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		return errors.New("no serial port found")
	}
	for _, p := range ports {
		fmt.Fprintln(stdout, p)
	}
	return nil
}

func (a *app) strip(numPixels int) (*expander.Channel, error) {
	return a.dev.Channel(&expander.ChannelOpts{
		Channel:       uint8(a.cfg.Channel),
		NumPixels:     numPixels,
		BytesPerPixel: a.cfg.BPP,
		Order:         a.cfg.ColorOrder(),
		AutoDraw:      true,
	})
}

func (a *app) matrix() (*serpentine.Matrix, *expander.Channel, error) {
	ch, err := a.strip(a.cfg.Width * a.cfg.Height)
	if err != nil {
		return nil, nil, err
	}
	m, err := serpentine.NewMatrix(ch, a.cfg.Width, a.cfg.Height)
	return m, ch, err
}

func (a *app) off() error {
	return a.dev.AllOff(uint8(a.cfg.Channel), a.cfg.LEDs, a.cfg.BPP)
}

// test runs the wiring checks: one LED at a time in red, all LEDs in each
// primary, random colors and a blinking red alert.
func (a *app) test(ctx context.Context) error {
	n := a.cfg.LEDs
	ch, err := a.strip(n)
	if err != nil {
		return err
	}
	if err := ch.Off(); err != nil {
		return err
	}
	a.log.Info("one by one red")
	for i := 0; i < n; i++ {
		rgb := make([]byte, 3*n)
		rgb[3*i] = 0xff
		if err := a.show(ctx, ch, rgb); err != nil {
			return err
		}
	}
	for c := 0; c < 3; c++ {
		a.log.Info("all", zap.String("color", []string{"red", "green", "blue"}[c]))
		rgb := make([]byte, 3*n)
		for i := c; i < len(rgb); i += 3 {
			rgb[i] = 0xff
		}
		if err := a.show(ctx, ch, rgb); err != nil {
			return err
		}
	}
	a.log.Info("random")
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < 10; i++ {
		rgb := make([]byte, 3*n)
		_, _ = r.Read(rgb)
		if err := a.show(ctx, ch, rgb); err != nil {
			return err
		}
	}
	a.log.Info("red alert")
	red := make([]byte, 3*n)
	for i := 0; i < len(red); i += 3 {
		red[i] = 0xff
	}
	off := make([]byte, 3*n)
	for i := 0; i < 10; i++ {
		if err := a.show(ctx, ch, red); err != nil {
			return err
		}
		if err := a.show(ctx, ch, off); err != nil {
			return err
		}
	}
	return ch.Off()
}

func (a *app) images(ctx context.Context, files []string) error {
	if len(files) == 0 {
		return errors.New("image: no file given")
	}
	m, _, err := a.matrix()
	if err != nil {
		return err
	}
	opts := a.imageOpts()
	for _, f := range files {
		img, err := imagedata.Load(f, opts)
		if err != nil {
			return err
		}
		a.log.Info("image", zap.String("file", f))
		if err := a.show(ctx, m, img); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) text(ctx context.Context, words []string) error {
	if len(words) == 0 {
		return errors.New("text: no message given")
	}
	msg := words[0]
	for _, w := range words[1:] {
		msg += " " + w
	}
	img, err := imagedata.Text(msg, &imagedata.TextOpts{Height: a.cfg.Height})
	if err != nil {
		return err
	}
	m, ch, err := a.matrix()
	if err != nil {
		return err
	}
	opts := a.imageOpts()
	opts.Scale = false
	opts.Rotation = 0
	steps := imagedata.ScrollLen(img, a.cfg.Width)
	for loop := 0; loop < a.cfg.Loops; loop++ {
		for off := 0; off < steps; off++ {
			buf, err := imagedata.FromImage(imagedata.Scroll(img, a.cfg.Width, off), opts)
			if err != nil {
				return err
			}
			if err := a.show(ctx, m, buf); err != nil {
				return err
			}
		}
	}
	return ch.Off()
}

func (a *app) imageOpts() *imagedata.Opts {
	return &imagedata.Opts{
		Width:    a.cfg.Width,
		Height:   a.cfg.Height,
		Rotation: a.cfg.Rotation,
		Darken:   a.cfg.Darken,
		Scale:    a.cfg.Scale,
	}
}

// show waits for the next frame slot then writes rgb.
func (a *app) show(ctx context.Context, w io.Writer, rgb []byte) error {
	if err := a.frames.Wait(ctx); err != nil {
		return err
	}
	_, err := w.Write(rgb)
	return err
}
