// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ffutop/modbus-slave/internal/slave/model"
)

// JSONStorage persists the register bank as a JSON document. Every write
// rewrites the whole document through a temp file and rename, so a crash
// mid-save leaves the previous state intact.
type JSONStorage struct {
	path string
	bank *model.RegisterBank
}

type bankDocument struct {
	Registers []uint16 `json:"registers"`
}

// NewJSONStorage creates a new JSONStorage.
func NewJSONStorage(path string) *JSONStorage {
	return &JSONStorage{
		path: path,
	}
}

// Load reads the JSON document, or returns an all-zero bank when the file
// does not exist yet.
func (js *JSONStorage) Load() (*model.RegisterBank, error) {
	bank := model.NewRegisterBank()
	js.bank = bank

	data, err := os.ReadFile(js.path)
	if err != nil {
		if os.IsNotExist(err) {
			return bank, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", js.path, err)
	}

	var doc bankDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", js.path, err)
	}

	bank.Restore(doc.Registers)
	return bank, nil
}

// Save writes the whole bank atomically.
func (js *JSONStorage) Save(bank *model.RegisterBank) error {
	doc := bankDocument{Registers: bank.Snapshot()}
	data, err := json.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal registers: %w", err)
	}

	if err := ensureDir(js.path); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp := js.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, js.path); err != nil {
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return nil
}

// OnWrite rewrites the whole document. The bank is small enough that a
// full save per write command is acceptable.
func (js *JSONStorage) OnWrite(address, quantity uint16) {
	if js.bank == nil {
		return
	}
	if err := js.Save(js.bank); err != nil {
		slog.Error("Failed to persist registers", "path", js.path, "err", err)
	}
}

// Close is a no-op; every save already leaves a complete document.
func (js *JSONStorage) Close() error {
	return nil
}

// ensureDir creates the parent directory of path if missing.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "/" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
