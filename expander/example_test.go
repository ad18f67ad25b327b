// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package expander_test

import (
	"image/color"
	"log"
	"math/rand"
	"time"

	"github.com/GermanBionicSystems/pixelblaze/expander"
	"github.com/GermanBionicSystems/pixelblaze/serialport"
)

func Example() {
	// Depending on the board, the UART is /dev/ttyS0 (Raspberry Pi 4 or
	// earlier) or /dev/ttyAMA0 (Raspberry Pi 5).
	port, err := serialport.New(&serialport.Opts{Name: serialport.DefaultName()})
	if err != nil {
		log.Fatal(err)
	}
	defer port.Close()

	dev := expander.New(port, nil)
	const numLEDs = 11

	// Clear anything left from a previous run.
	if err := dev.AllOff(0, numLEDs, 3); err != nil {
		log.Fatal(err)
	}

	// One by one red.
	for i := 0; i < numLEDs; i++ {
		pixels := make([]byte, numLEDs*3)
		pixels[i*3+1] = 0xff
		if err := dev.SendPixels(0, 3, expander.GRB, pixels); err != nil {
			log.Fatal(err)
		}
		if err := dev.Draw(); err != nil {
			log.Fatal(err)
		}
		time.Sleep(250 * time.Millisecond)
	}

	// Random colors.
	random := make([]byte, numLEDs*3)
	rand.Read(random)
	_ = dev.SendPixels(0, 3, expander.GRB, random)
	_ = dev.Draw()
}

func ExampleDev_Channel() {
	port, err := serialport.New(&serialport.Opts{Name: "/dev/ttyS0"})
	if err != nil {
		log.Fatal(err)
	}
	defer port.Close()
	dev := expander.New(port, nil)

	// Load two strings, then draw them at the same time.
	strip, err := dev.Channel(&expander.ChannelOpts{Channel: 0, NumPixels: 11})
	if err != nil {
		log.Fatal(err)
	}
	long, err := dev.Channel(&expander.ChannelOpts{Channel: 1, NumPixels: 300})
	if err != nil {
		log.Fatal(err)
	}
	_ = strip.Fill(color.NRGBA{R: 0xff, A: 0xff})
	_ = long.Fill(color.NRGBA{B: 0xff, A: 0xff})
	if err := dev.Draw(); err != nil {
		log.Fatal(err)
	}
	time.Sleep(time.Second)
	_ = strip.Halt()
	_ = long.Halt()
}
