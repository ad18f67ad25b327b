// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pixelblaze is a container for the Pixelblaze Output Expander
// driver and its helpers.
//
// The expander package speaks the wire protocol, serialport carries it over
// a UART, serpentine and imagedata turn images into strip data and emulator
// renders it in a terminal. cmd/pbxctl ties them together.
package pixelblaze
