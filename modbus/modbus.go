// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package modbus holds the protocol constants shared by the codec,
// the framing layer and the slave dispatcher.
package modbus

// Function Codes supported by this device.
const (
	FuncCodeReadHoldingRegisters  = 0x03
	FuncCodeWriteMultipleRegister = 0x10
)

// ExceptionFlag is OR-ed into the function code of an exception response.
const ExceptionFlag = 0x80

// ExceptionCode is the one-byte reason code carried by an exception response.
// The numeric values go on the wire and must not change.
type ExceptionCode byte

const (
	ExceptionCodeIllegalFunction    ExceptionCode = 1
	ExceptionCodeIllegalDataAddress ExceptionCode = 2
	ExceptionCodeIllegalDataValue   ExceptionCode = 3

	// ExceptionCodeChecksumFailure is returned for frames whose function
	// code is recognized but whose CRC does not verify. Many devices drop
	// such frames silently; this one answers explicitly.
	ExceptionCodeChecksumFailure ExceptionCode = 4
)

func (c ExceptionCode) String() string {
	switch c {
	case ExceptionCodeIllegalFunction:
		return "illegal function"
	case ExceptionCodeIllegalDataAddress:
		return "illegal data address"
	case ExceptionCodeIllegalDataValue:
		return "illegal data value"
	case ExceptionCodeChecksumFailure:
		return "checksum failure"
	}
	return "unknown exception"
}
