// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package emulator

import (
	"bytes"
	"strings"
	"testing"

	"github.com/GermanBionicSystems/pixelblaze/expander"
	"github.com/GermanBionicSystems/pixelblaze/serpentine"
	"github.com/google/go-cmp/cmp"
)

func TestDraw(t *testing.T) {
	var out bytes.Buffer
	e := New(&Opts{W: &out})
	dev := expander.New(e, nil)
	// GRB wire order.
	if err := dev.SendPixels(1, 3, expander.GRB, []byte{0, 255, 0, 255, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatalf("rendered before draw: %q", out.String())
	}
	if err := dev.Draw(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{255, 0, 0, 0, 255, 0}, e.Pixels(1)); diff != "" {
		t.Errorf("unexpected pixels (-want +got):\n%s", diff)
	}
	if e.Draws() != 1 || e.Errors() != 0 {
		t.Errorf("Draws()=%d Errors()=%d", e.Draws(), e.Errors())
	}
	if !strings.HasPrefix(out.String(), "\r\033[0m") || !strings.HasSuffix(out.String(), "\033[0m\n") {
		t.Errorf("unexpected output %q", out.String())
	}

	// The second draw moves the cursor back up.
	out.Reset()
	if err := dev.Draw(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "\033[1A") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRGBW(t *testing.T) {
	e := New(&Opts{W: &bytes.Buffer{}})
	dev := expander.New(e, nil)
	if err := dev.SendPixels(0, 4, expander.GRBW, []byte{10, 20, 30, 240}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{255, 250, 255}, e.Pixels(0)); diff != "" {
		t.Errorf("unexpected pixels (-want +got):\n%s", diff)
	}
}

func TestSplitWrites(t *testing.T) {
	var out bytes.Buffer
	e := New(&Opts{W: &out})
	f := expander.Frame{Command: expander.WS2812Data, Channel: 2, BytesPerPixel: 3, Order: expander.RGB, Pixels: []byte{1, 2, 3}}
	b, err := f.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	draw := expander.Frame{Command: expander.DrawAll, Channel: expander.BroadcastChannel}
	d, err := draw.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	stream := append(append([]byte("noise"), b...), d...)
	for i := range stream {
		if _, err := e.Write(stream[i : i+1]); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, e.Pixels(2)); diff != "" {
		t.Errorf("unexpected pixels (-want +got):\n%s", diff)
	}
	if e.Draws() != 1 {
		t.Errorf("Draws()=%d", e.Draws())
	}
}

func TestBadChecksum(t *testing.T) {
	e := New(&Opts{W: &bytes.Buffer{}})
	f := expander.Frame{Command: expander.WS2812Data, BytesPerPixel: 3, Order: expander.RGB, Pixels: []byte{9, 9, 9}}
	b, err := f.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	b[len(b)-1] ^= 0xff
	if _, err := e.Write(b); err != nil {
		t.Fatal(err)
	}
	if e.Errors() != 1 {
		t.Errorf("Errors()=%d", e.Errors())
	}
	if len(e.Pixels(0)) != 0 {
		t.Errorf("bad frame was applied: %v", e.Pixels(0))
	}
}

func TestMatrix(t *testing.T) {
	var out bytes.Buffer
	e := New(&Opts{W: &out, Height: 2})
	dev := expander.New(e, nil)
	ch, err := dev.Channel(&expander.ChannelOpts{NumPixels: 6, Order: expander.RGB, AutoDraw: true})
	if err != nil {
		t.Fatal(err)
	}
	m, err := serpentine.NewMatrix(ch, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Halt(); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(out.String(), "\n"); got != 2 {
		t.Errorf("%d lines rendered, expected 2", got)
	}
}

func TestHalt(t *testing.T) {
	var out bytes.Buffer
	e := New(&Opts{W: &out})
	if err := e.Halt(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "\n\033[0m" {
		t.Errorf("unexpected output %q", out.String())
	}
	if e.String() != "Emulator" {
		t.Error(e.String())
	}
}

func TestBadOrder(t *testing.T) {
	e := New(&Opts{W: &bytes.Buffer{}})
	dev := expander.New(e, nil)
	if err := dev.SendPixels(0, 3, expander.ColorOrder{R: 3, G: 1, B: 2}, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if e.Errors() != 1 || len(e.Pixels(0)) != 0 {
		t.Errorf("Errors()=%d Pixels(0)=%v", e.Errors(), e.Pixels(0))
	}
}
