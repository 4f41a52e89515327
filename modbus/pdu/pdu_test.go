// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package pdu

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeWireFormat(t *testing.T) {
	// Read 10 holding registers from unit 1. CRC is 0xCDC5, transmitted
	// low byte first.
	raw := Encode(0x01, 0x03, []Field{WordField(0x0000), WordField(0x000A)})

	want := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A, 0xC5, 0xCD}
	if !bytes.Equal(raw, want) {
		t.Fatalf("Encode() = % X, want % X", raw, want)
	}
}

func TestEncodeMixedFields(t *testing.T) {
	// Exception response shape: single byte payload.
	raw := Encode(0x01, 0x86, []Field{ByteField(0x01)})
	if len(raw) != 5 {
		t.Fatalf("exception frame length = %d, want 5", len(raw))
	}
	if raw[0] != 0x01 || raw[1] != 0x86 || raw[2] != 0x01 {
		t.Fatalf("exception frame header = % X", raw[:3])
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		unitID byte
		fc     byte
		fields []Field
		layout Layout
	}{
		{
			"ReadRequest",
			0x01, 0x03,
			[]Field{WordField(0x0010), WordField(0x0003)},
			Layout{Word, Word},
		},
		{
			"ReadResponse",
			0x05, 0x03,
			[]Field{ByteField(4), WordField(0xCAFE), WordField(0xBEEF)},
			Layout{Byte, Word, Word},
		},
		{
			"WriteRequest",
			0x0A, 0x10,
			[]Field{WordField(0), WordField(2), ByteField(4), WordField(10), WordField(20)},
			Layout{Word, Word, Byte, Word, Word},
		},
		{
			"Exception",
			0x01, 0x83,
			[]Field{ByteField(2)},
			Layout{Byte},
		},
		{
			"Empty",
			0xFF, 0x42,
			nil,
			Layout{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := Encode(tt.unitID, tt.fc, tt.fields)

			decoded, err := Decode(raw, tt.layout)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if decoded.UnitID != tt.unitID {
				t.Errorf("UnitID = %d, want %d", decoded.UnitID, tt.unitID)
			}
			if decoded.FunctionCode != tt.fc {
				t.Errorf("FunctionCode = 0x%02X, want 0x%02X", decoded.FunctionCode, tt.fc)
			}
			if len(decoded.Fields) != len(tt.fields) {
				t.Fatalf("decoded %d fields, want %d", len(decoded.Fields), len(tt.fields))
			}
			for i, f := range tt.fields {
				if decoded.Fields[i] != f.Value {
					t.Errorf("field %d = %d, want %d", i, decoded.Fields[i], f.Value)
				}
			}
		})
	}
}

func TestDecodeChecksumMismatch(t *testing.T) {
	raw := Encode(0x01, 0x03, []Field{WordField(0), WordField(1)})
	raw[len(raw)-2] ^= 0xFF // corrupt low checksum byte

	decoded, err := Decode(raw, Layout{Word, Word})
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("Decode() error = %v, want ErrChecksum", err)
	}
	if decoded != nil {
		t.Fatal("expected no decoded PDU on checksum failure")
	}
}

func TestDecodeLayoutMismatch(t *testing.T) {
	raw := Encode(0x01, 0x03, []Field{WordField(0), WordField(1)})

	// Layout longer than body.
	if _, err := Decode(raw, Layout{Word, Word, Word}); err == nil {
		t.Error("expected error for over-long layout")
	}
	// Layout shorter than body.
	if _, err := Decode(raw, Layout{Word}); err == nil {
		t.Error("expected error for under-long layout")
	}
}

func TestDecodeTooShort(t *testing.T) {
	if _, err := Decode([]byte{0x01, 0x03, 0x00}, Layout{}); err == nil {
		t.Error("expected error for frame below minimum size")
	}
}
