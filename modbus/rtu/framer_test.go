// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestRequestLength(t *testing.T) {
	tests := []struct {
		name     string
		funcCode byte
		header   []byte
		want     int
		wantErr  bool
	}{
		{"ReadHoldingRegisters", 0x03, []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01}, 8, false},
		{"WriteMultipleRegisters_ShortHeader", 0x10, []byte{0x01, 0x10, 0x00, 0x01, 0x00, 0x01}, 0, true},
		{"WriteMultipleRegisters_Valid", 0x10, []byte{0x01, 0x10, 0x00, 0x01, 0x00, 0x01, 0x02}, 7 + 2 + 2, false},
		{"WriteMultipleRegisters_125Registers", 0x10, []byte{0x01, 0x10, 0x00, 0x00, 0x00, 0x7D, 0xFA}, 7 + 250 + 2, false},
		{"WriteMultipleRegisters_MaxByteCount", 0x10, []byte{0x01, 0x10, 0x00, 0x01, 0x00, 0x7E, 0xFF}, MaxRequestSize, false},
		{"UnknownFunction", 0x99, []byte{0x01, 0x99}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RequestLength(tt.funcCode, tt.header)
			if (err != nil) != tt.wantErr {
				t.Errorf("RequestLength() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("RequestLength() = %v, want %v", got, tt.want)
			}
		})
	}
}

// chunkReader yields the underlying data in deliberately awkward slices to
// prove framing does not rely on read boundaries.
type chunkReader struct {
	chunks [][]byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	if n == len(c.chunks[0]) {
		c.chunks = c.chunks[1:]
	} else {
		c.chunks[0] = c.chunks[0][n:]
	}
	return n, nil
}

func TestReadRequestFixed(t *testing.T) {
	frame := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A, 0xC5, 0xCD}

	got, err := ReadRequest(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("ReadRequest() error = %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Fatalf("ReadRequest() = % X, want % X", got, frame)
	}
}

func TestReadRequestSplitDeliveries(t *testing.T) {
	// 0x10 request carrying 2 registers, delivered one or two bytes at a
	// time across the length-decision boundary.
	frame := []byte{0x01, 0x10, 0x00, 0x05, 0x00, 0x02, 0x04, 0x00, 0x0A, 0x00, 0x14, 0x12, 0x34}

	r := &chunkReader{chunks: [][]byte{
		frame[:1], frame[1:3], frame[3:6], frame[6:7], frame[7:10], frame[10:],
	}}

	got, err := ReadRequest(r)
	if err != nil {
		t.Fatalf("ReadRequest() error = %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Fatalf("ReadRequest() = % X, want % X", got, frame)
	}
}

func TestReadRequestFullSizedWrite(t *testing.T) {
	// A 125-register write declares 250 data bytes, 259 bytes on the wire.
	// The framer must deliver it whole; the declared count is the only
	// bound on frame length.
	frame := make([]byte, 0, 259)
	frame = append(frame, 0x01, 0x10, 0x00, 0x00, 0x00, 0x7D, 0xFA)
	for i := 0; i < 125; i++ {
		frame = append(frame, byte(i>>8), byte(i))
	}
	frame = append(frame, 0xAA, 0xBB)

	got, err := ReadRequest(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("ReadRequest() error = %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Fatalf("ReadRequest() returned %d bytes, want %d", len(got), len(frame))
	}
}

func TestReadRequestBackToBackFrames(t *testing.T) {
	first := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x0A, 0x0B}
	second := []byte{0x01, 0x10, 0x00, 0x00, 0x00, 0x01, 0x02, 0xBE, 0xEF, 0x0C, 0x0D}

	r := bytes.NewReader(append(append([]byte{}, first...), second...))

	got, err := ReadRequest(r)
	if err != nil {
		t.Fatalf("first ReadRequest() error = %v", err)
	}
	if !bytes.Equal(got, first) {
		t.Fatalf("first frame = % X, want % X", got, first)
	}

	got, err = ReadRequest(r)
	if err != nil {
		t.Fatalf("second ReadRequest() error = %v", err)
	}
	if !bytes.Equal(got, second) {
		t.Fatalf("second frame = % X, want % X", got, second)
	}
}

func TestReadRequestUnknownFunction(t *testing.T) {
	stream := []byte{0x01, 0x06, 0x00, 0x00, 0xAA, 0xBB, 0x00, 0x00}

	got, err := ReadRequest(bytes.NewReader(stream))
	var unknown *UnknownFunctionError
	if !errors.As(err, &unknown) {
		t.Fatalf("ReadRequest() error = %v, want UnknownFunctionError", err)
	}
	if unknown.Code != 0x06 {
		t.Errorf("unknown code = 0x%02X, want 0x06", unknown.Code)
	}
	// Header bytes are still delivered so the caller can answer
	// IllegalFunction.
	if !bytes.Equal(got, stream[:2]) {
		t.Errorf("partial header = % X, want % X", got, stream[:2])
	}
}

func TestReadRequestTruncatedStream(t *testing.T) {
	if _, err := ReadRequest(bytes.NewReader([]byte{0x01, 0x03, 0x00})); err == nil {
		t.Error("expected error for truncated stream")
	}
	if _, err := ReadRequest(bytes.NewReader(nil)); err == nil {
		t.Error("expected error for empty stream")
	}
}
