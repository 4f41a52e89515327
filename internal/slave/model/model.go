// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package model

import (
	"fmt"
	"sync"
)

const (
	// BankSize is the fixed number of holding registers this device
	// exposes. The bank never grows or shrinks.
	BankSize = 1000

	// MaxAddress is the highest addressable register index.
	MaxAddress = BankSize - 1
)

// RegisterBank holds the holding register values in memory.
//
// Registers may be backed by storage-owned memory (e.g. a memory-mapped
// file); the bank itself only guards access, it never reallocates the
// slice.
type RegisterBank struct {
	mu sync.RWMutex

	// 4x Holding Registers (Read/Write).
	Registers []uint16
}

// NewRegisterBank creates a bank initialized to zero.
func NewRegisterBank() *RegisterBank {
	return &RegisterBank{
		Registers: make([]uint16, BankSize),
	}
}

// ReadRange returns a copy of quantity registers starting at address.
func (b *RegisterBank) ReadRange(address, quantity uint16) ([]uint16, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := validateRange(address, quantity); err != nil {
		return nil, err
	}

	result := make([]uint16, quantity)
	copy(result, b.Registers[address:int(address)+int(quantity)])
	return result, nil
}

// WriteRange writes values into consecutive registers starting at address,
// in order.
func (b *RegisterBank) WriteRange(address uint16, values []uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := validateRange(address, uint16(len(values))); err != nil {
		return err
	}

	copy(b.Registers[address:], values)
	return nil
}

// Snapshot returns a copy of the whole bank. Used by the monitoring
// dashboard and by persistence; callers never see live memory.
func (b *RegisterBank) Snapshot() []uint16 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]uint16, len(b.Registers))
	copy(result, b.Registers)
	return result
}

// Restore overwrites the whole bank with values. Short input leaves the
// remaining registers untouched; excess input is ignored.
func (b *RegisterBank) Restore(values []uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()

	copy(b.Registers, values)
}

func validateRange(address, quantity uint16) error {
	if quantity == 0 {
		return fmt.Errorf("quantity must be greater than 0")
	}
	// address is 0-based.
	if int(address)+int(quantity) > BankSize {
		return fmt.Errorf("address range out of bounds")
	}
	return nil
}
