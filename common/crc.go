// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, the CRC-32 accumulator that terminates every Output Expander
// frame.
package common

import (
	"encoding/binary"
	"hash"
	"hash/crc32"
)

// CRC32 accumulates an IEEE 802.3 CRC-32 over several byte spans.
//
// The expander protocol writes the header and the payload as two separate
// transfers, so the running state has to survive between them. Use one
// accumulator per frame.
type CRC32 struct {
	h hash.Hash32
}

// NewCRC32 returns an accumulator with its running state reset.
func NewCRC32() *CRC32 {
	return &CRC32{h: crc32.NewIEEE()}
}

// Update appends b to the running checksum. Calls are order sensitive.
func (c *CRC32) Update(b []byte) {
	// hash.Hash never returns an error on Write.
	_, _ = c.h.Write(b)
}

// Sum32 returns the checksum of everything passed to Update so far.
func (c *CRC32) Sum32() uint32 {
	return c.h.Sum32()
}

// SumLE returns the checksum serialized as 4 little-endian bytes, the way it
// is sent on the wire.
func (c *CRC32) SumLE() [4]byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], c.h.Sum32())
	return b
}
