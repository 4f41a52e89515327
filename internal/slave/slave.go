// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package slave implements the request dispatcher: it turns one complete
// request frame into either a success response, an exception response, or
// nothing at all when the frame is addressed to another unit.
package slave

import (
	"errors"
	"sync"

	"github.com/ffutop/modbus-slave/internal/slave/model"
	"github.com/ffutop/modbus-slave/internal/slave/persistence"
	"github.com/ffutop/modbus-slave/modbus"
	"github.com/ffutop/modbus-slave/modbus/pdu"
)

// Dispatcher validates requests against the protocol rules and the
// register bank bounds, applies reads and writes, and builds response
// frames.
//
// Request handling is non-preemptive: a single mutex serializes every
// request end to end, including the synchronous persistence write that
// follows a successful write command. A crash between mutation and
// persistence loses that write; that risk is accepted rather than masked
// by retries.
type Dispatcher struct {
	unitID  byte
	bank    *model.RegisterBank
	storage persistence.Storage

	mu sync.Mutex
}

// NewDispatcher creates a Dispatcher owning bank and persisting through
// storage.
func NewDispatcher(unitID byte, bank *model.RegisterBank, storage persistence.Storage) *Dispatcher {
	return &Dispatcher{
		unitID:  unitID,
		bank:    bank,
		storage: storage,
	}
}

// Bank returns the register bank for read-only consumers.
func (d *Dispatcher) Bank() *model.RegisterBank {
	return d.bank
}

// Handle processes one complete request frame and returns the response
// frame to write back. A nil return means the request was addressed to a
// different unit and must be silently discarded, with no response at all.
func (d *Dispatcher) Handle(frame []byte) []byte {
	if len(frame) < 2 {
		return nil
	}

	// Address match on the raw byte, before any decoding. Multi-drop
	// convention: frames for other units are not ours to answer.
	if frame[0] != d.unitID {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch frame[1] {
	case modbus.FuncCodeReadHoldingRegisters:
		return d.handleReadHoldingRegisters(frame)
	case modbus.FuncCodeWriteMultipleRegister:
		return d.handleWriteMultipleRegisters(frame)
	default:
		// No layout is known for an unsupported function, so the frame
		// is never decoded: the exception is built from the raw unit id
		// and function code without checksum validation.
		return d.exception(frame[1], modbus.ExceptionCodeIllegalFunction)
	}
}

// handleReadHoldingRegisters services function 0x03.
// Request body: start(2), quantity(2).
func (d *Dispatcher) handleReadHoldingRegisters(frame []byte) []byte {
	decoded, err := pdu.Decode(frame, pdu.Layout{pdu.Word, pdu.Word})
	if err != nil {
		if errors.Is(err, pdu.ErrChecksum) {
			return d.exception(frame[1], modbus.ExceptionCodeChecksumFailure)
		}
		return d.exception(frame[1], modbus.ExceptionCodeIllegalDataValue)
	}

	start := decoded.Fields[0]
	quantity := decoded.Fields[1]

	if int(start)+int(quantity)-1 > model.MaxAddress {
		return d.exception(frame[1], modbus.ExceptionCodeIllegalDataAddress)
	}

	fields := make([]pdu.Field, 0, 1+quantity)
	fields = append(fields, pdu.ByteField(byte(quantity*2)))
	if quantity > 0 {
		values, err := d.bank.ReadRange(start, quantity)
		if err != nil {
			return d.exception(frame[1], modbus.ExceptionCodeIllegalDataAddress)
		}
		for _, v := range values {
			fields = append(fields, pdu.WordField(v))
		}
	}

	return pdu.Encode(d.unitID, frame[1], fields)
}

// handleWriteMultipleRegisters services function 0x10.
// Request body: start(2), quantity(2), byteCount(1), then the value words.
// The number of trailing value fields is not derivable from the function
// code alone; it comes from the total frame length.
func (d *Dispatcher) handleWriteMultipleRegisters(frame []byte) []byte {
	layout := pdu.Layout{pdu.Word, pdu.Word, pdu.Byte}
	valueBytes := len(frame) - 9 // unit id, function, fixed fields, CRC
	if valueBytes < 0 {
		return d.exception(frame[1], modbus.ExceptionCodeIllegalDataValue)
	}
	for i := 0; i < valueBytes/2; i++ {
		layout = append(layout, pdu.Word)
	}

	decoded, err := pdu.Decode(frame, layout)
	if err != nil {
		if errors.Is(err, pdu.ErrChecksum) {
			return d.exception(frame[1], modbus.ExceptionCodeChecksumFailure)
		}
		return d.exception(frame[1], modbus.ExceptionCodeIllegalDataValue)
	}

	start := decoded.Fields[0]
	quantity := decoded.Fields[1]
	byteCount := decoded.Fields[2]
	values := decoded.Fields[3:]

	if int(start)+int(quantity)-1 > model.MaxAddress {
		return d.exception(frame[1], modbus.ExceptionCodeIllegalDataAddress)
	}
	if byteCount != quantity*2 {
		return d.exception(frame[1], modbus.ExceptionCodeIllegalDataValue)
	}
	if len(values) != int(quantity) {
		return d.exception(frame[1], modbus.ExceptionCodeIllegalDataValue)
	}

	if quantity > 0 {
		if err := d.bank.WriteRange(start, values); err != nil {
			return d.exception(frame[1], modbus.ExceptionCodeIllegalDataAddress)
		}
		// Persistence is part of the critical section: the response is
		// not sent until the bank is durable.
		d.storage.OnWrite(start, quantity)
	}

	return pdu.Encode(d.unitID, frame[1], []pdu.Field{
		pdu.WordField(start),
		pdu.WordField(quantity),
	})
}

func (d *Dispatcher) exception(funcCode byte, code modbus.ExceptionCode) []byte {
	return pdu.Encode(d.unitID, funcCode|modbus.ExceptionFlag, []pdu.Field{
		pdu.ByteField(byte(code)),
	})
}
