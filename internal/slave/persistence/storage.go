// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"github.com/ffutop/modbus-slave/internal/slave/model"
)

// Storage defines the interface for persisting the register bank.
type Storage interface {
	// Load loads the register bank from storage. If no durable state
	// exists it returns a fresh all-zero bank.
	Load() (*model.RegisterBank, error)

	// Save saves the whole bank to storage. Called on shutdown.
	Save(bank *model.RegisterBank) error

	// OnWrite is a hook called synchronously after registers are
	// modified, inside the request's critical section. It performs the
	// real-time persistence write for the given range.
	OnWrite(address, quantity uint16)

	// Close releases any underlying resources.
	Close() error
}
