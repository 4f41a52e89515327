// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package pdu encodes and decodes checksummed Modbus RTU frames from
// ordered field lists.
//
// A frame is: unit id, function code, the fields in order, then the CRC-16
// of everything before it. Protocol fields are big-endian; the trailing
// checksum is transmitted low byte first. That asymmetry is a Modbus RTU
// convention and is preserved here.
package pdu

import (
	"errors"
	"fmt"

	"github.com/ffutop/modbus-slave/modbus/crc"
)

// FieldKind selects the wire width of a field.
type FieldKind byte

const (
	// Byte is a single byte emitted verbatim.
	Byte FieldKind = iota + 1
	// Word is a 16-bit value emitted big-endian, high byte first.
	Word
)

// Field is one value to encode, tagged with its wire width.
type Field struct {
	Kind  FieldKind
	Value uint16
}

// ByteField builds a 1-byte field.
func ByteField(v byte) Field {
	return Field{Kind: Byte, Value: uint16(v)}
}

// WordField builds a 2-byte big-endian field.
func WordField(v uint16) Field {
	return Field{Kind: Word, Value: v}
}

// Layout describes the field widths expected in a frame body, in order.
// The codec never infers a layout from the function code: for
// variable-length requests only the caller knows how many value words the
// frame carries, derived from its total length.
type Layout []FieldKind

// DecodedPDU is the structured form of a verified frame. Fields holds the
// body values flattened in layout order.
type DecodedPDU struct {
	UnitID       byte
	FunctionCode byte
	Fields       []uint16
}

// ErrChecksum is returned by Decode when the transmitted CRC does not
// match the computed one. No fields are decoded in that case.
var ErrChecksum = errors.New("pdu: checksum mismatch")

const minFrameSize = 4 // unit id + function code + CRC

// Encode builds a complete frame: unitID, functionCode, each field at its
// declared width, then the CRC-16 of the preceding bytes appended low byte
// first.
func Encode(unitID, functionCode byte, fields []Field) []byte {
	size := 2
	for _, f := range fields {
		if f.Kind == Word {
			size += 2
		} else {
			size++
		}
	}

	raw := make([]byte, 0, size+2)
	raw = append(raw, unitID, functionCode)
	for _, f := range fields {
		if f.Kind == Word {
			raw = append(raw, byte(f.Value>>8), byte(f.Value))
		} else {
			raw = append(raw, byte(f.Value))
		}
	}

	checksum := crc.Compute(raw)
	return append(raw, byte(checksum), byte(checksum>>8))
}

// Decode verifies the trailing checksum of frame and unpacks its body
// against layout. The last two bytes are the transmitted CRC (low byte
// first); all preceding bytes are checksum input. On checksum mismatch it
// returns ErrChecksum and no PDU.
func Decode(frame []byte, layout Layout) (*DecodedPDU, error) {
	if len(frame) < minFrameSize {
		return nil, fmt.Errorf("pdu: frame length %d does not meet minimum %d", len(frame), minFrameSize)
	}

	checksum := uint16(frame[len(frame)-1])<<8 | uint16(frame[len(frame)-2])
	if !crc.Validate(frame[:len(frame)-2], checksum) {
		return nil, ErrChecksum
	}

	body := frame[2 : len(frame)-2]
	fields := make([]uint16, 0, len(layout))
	pos := 0
	for _, kind := range layout {
		switch kind {
		case Word:
			if pos+2 > len(body) {
				return nil, fmt.Errorf("pdu: body too short for layout: have %d bytes, want %d more", len(body)-pos, 2)
			}
			fields = append(fields, uint16(body[pos])<<8|uint16(body[pos+1]))
			pos += 2
		case Byte:
			if pos >= len(body) {
				return nil, fmt.Errorf("pdu: body too short for layout: have %d bytes, want %d more", len(body)-pos, 1)
			}
			fields = append(fields, uint16(body[pos]))
			pos++
		default:
			return nil, fmt.Errorf("pdu: unknown field kind %d", kind)
		}
	}
	if pos != len(body) {
		return nil, fmt.Errorf("pdu: layout consumed %d of %d body bytes", pos, len(body))
	}

	return &DecodedPDU{
		UnitID:       frame[0],
		FunctionCode: frame[1],
		Fields:       fields,
	}, nil
}
