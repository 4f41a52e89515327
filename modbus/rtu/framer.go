// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package rtu reassembles a raw byte stream into discrete request frames.
//
// Stream deliveries do not align with frame boundaries, so the framer
// buffers incrementally: a Read Holding Registers request is always 8
// bytes, while a Write Multiple Registers request is only sizeable after
// its first 7 bytes reveal the trailing byte count.
package rtu

import (
	"errors"
	"fmt"
	"io"

	"github.com/ffutop/modbus-slave/modbus"
)

// UnknownFunctionError reports a function code the framer cannot size.
// The partial header read so far is still delivered to the caller so the
// device can answer IllegalFunction before resetting the stream.
type UnknownFunctionError struct {
	Code byte
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("rtu: unknown function code 0x%02X", e.Code)
}

// RequestLength returns the expected total length of a request frame.
// For Write Multiple Registers the header must contain at least 7 bytes so
// the byte count at offset 6 is visible.
func RequestLength(funcCode byte, header []byte) (int, error) {
	switch funcCode {
	case modbus.FuncCodeReadHoldingRegisters:
		// Fixed: [UnitID, Func, Start(2), Quantity(2), CRC(2)]
		return FixedRequestSize, nil
	case modbus.FuncCodeWriteMultipleRegister:
		// [UnitID, Func, Start(2), Quantity(2), ByteCount(1), Data(N), CRC(2)]
		if len(header) < WriteHeaderSize {
			return 0, fmt.Errorf("rtu: need %d bytes to determine length for 0x%02X, got %d",
				WriteHeaderSize, funcCode, len(header))
		}
		// The one-byte count already bounds the frame at MaxRequestSize;
		// every declarable length is readable.
		byteCount := int(header[6])
		return WriteHeaderSize + byteCount + 2, nil
	default:
		return 0, &UnknownFunctionError{Code: funcCode}
	}
}

// ReadRequest reads exactly one complete request frame from r.
//
// On an unknown function code it returns the two header bytes together
// with an *UnknownFunctionError; the stream position is then undefined and
// the caller should reset the connection after responding.
func ReadRequest(r io.Reader) ([]byte, error) {
	buf := make([]byte, MaxRequestSize)

	// Unit id and function code first; nothing is sizeable before them.
	if _, err := io.ReadFull(r, buf[:2]); err != nil {
		return nil, err
	}
	current := 2

	funcCode := buf[1]
	if funcCode == modbus.FuncCodeWriteMultipleRegister {
		if _, err := io.ReadFull(r, buf[current:WriteHeaderSize]); err != nil {
			return nil, err
		}
		current = WriteHeaderSize
	}

	expected, err := RequestLength(funcCode, buf[:current])
	if err != nil {
		var unknown *UnknownFunctionError
		if errors.As(err, &unknown) {
			return buf[:current], err
		}
		return nil, err
	}

	if _, err := io.ReadFull(r, buf[current:expected]); err != nil {
		return nil, err
	}
	return buf[:expected], nil
}
