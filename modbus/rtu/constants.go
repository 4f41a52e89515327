// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

const (
	// FixedRequestSize is the on-wire size of a Read Holding Registers
	// request: unit id, function, start(2), quantity(2), CRC(2).
	FixedRequestSize = 8

	// WriteHeaderSize is the number of leading bytes of a Write Multiple
	// Registers request needed before its total length is known: unit id,
	// function, start(2), quantity(2), byte count.
	WriteHeaderSize = 7

	// MaxRequestSize is the largest request this device can receive: a
	// Write Multiple Registers frame whose one-byte count declares the
	// full 255 bytes of data.
	MaxRequestSize = WriteHeaderSize + 0xFF + 2
)
