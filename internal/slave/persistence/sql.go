// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ffutop/modbus-slave/internal/slave/model"
)

// SQLStorage implements persistence using a SQL database.
// It assumes a table `holding_registers` exists (or creates it).
type SQLStorage struct {
	driver string
	dsn    string
	db     *sql.DB
	bank   *model.RegisterBank
}

// NewSQLStorage creates a new SQLStorage.
// Note: The driver (e.g., sqlite3) must be imported in main.go
func NewSQLStorage(driver, dsn string) *SQLStorage {
	return &SQLStorage{
		driver: driver,
		dsn:    dsn,
	}
}

// Load connects to the DB and loads the register values.
func (s *SQLStorage) Load() (*model.RegisterBank, error) {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	s.db = db

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	bank := model.NewRegisterBank()
	s.bank = bank

	rows, err := db.Query("SELECT address, value FROM holding_registers")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to query registers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var addr, val int
		if err := rows.Scan(&addr, &val); err != nil {
			continue
		}
		if addr < 0 || addr > model.MaxAddress {
			continue
		}
		bank.Registers[addr] = uint16(val)
	}

	return bank, rows.Err()
}

func (s *SQLStorage) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS holding_registers (
		address INTEGER PRIMARY KEY,
		value INTEGER
	);
	`
	_, err := s.db.Exec(query)
	return err
}

// Save upserts the whole bank inside one transaction.
func (s *SQLStorage) Save(bank *model.RegisterBank) error {
	if s.db == nil {
		return fmt.Errorf("db not open")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO holding_registers (address, value) VALUES (?, ?) ON CONFLICT(address) DO UPDATE SET value=excluded.value")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for addr, val := range bank.Snapshot() {
		if _, err := stmt.Exec(addr, int64(val)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert register %d: %w", addr, err)
		}
	}

	return tx.Commit()
}

// OnWrite upserts the changed register range to the DB. Called after the
// bank update, so the current values can be read back from it.
func (s *SQLStorage) OnWrite(address, quantity uint16) {
	if s.db == nil || s.bank == nil {
		return
	}

	values, err := s.bank.ReadRange(address, quantity)
	if err != nil {
		slog.Error("Failed to read registers for persistence", "addr", address, "quantity", quantity, "err", err)
		return
	}

	for i, val := range values {
		addr := int(address) + i
		query := "INSERT INTO holding_registers (address, value) VALUES (?, ?) ON CONFLICT(address) DO UPDATE SET value=excluded.value"
		if _, err := s.db.Exec(query, addr, int64(val)); err != nil {
			slog.Error("Failed to persist register", "addr", addr, "err", err)
		}
	}
}

func (s *SQLStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
