// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package crc implements the CRC-16 checksum used by Modbus RTU frames
// (polynomial 0xA001, initial value 0xFFFF).
package crc

// CRC is a streaming CRC-16 accumulator. The zero value is not ready for
// use; call Reset first.
type CRC struct {
	value uint16
}

// Reset initializes the accumulator to the Modbus start value 0xFFFF.
func (c *CRC) Reset() *CRC {
	c.value = 0xFFFF
	return c
}

// PushByte folds a single byte into the running checksum.
func (c *CRC) PushByte(b byte) *CRC {
	c.value ^= uint16(b)
	for i := 0; i < 8; i++ {
		if c.value&0x0001 != 0 {
			c.value = (c.value >> 1) ^ 0xA001
		} else {
			c.value >>= 1
		}
	}
	return c
}

// PushBytes folds a byte sequence into the running checksum.
func (c *CRC) PushBytes(bs []byte) *CRC {
	for _, b := range bs {
		c.PushByte(b)
	}
	return c
}

// Value returns the current checksum.
func (c *CRC) Value() uint16 {
	return c.value
}

// Compute returns the checksum of bs in one shot.
func Compute(bs []byte) uint16 {
	var c CRC
	return c.Reset().PushBytes(bs).Value()
}

// Validate reports whether bs checksums to expected.
func Validate(bs []byte, expected uint16) bool {
	return Compute(bs) == expected
}
