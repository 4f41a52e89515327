// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ffutop/modbus-slave/internal/config"
	"github.com/ffutop/modbus-slave/internal/dashboard"
	"github.com/ffutop/modbus-slave/internal/slave"
	"github.com/ffutop/modbus-slave/internal/slave/persistence"
	"github.com/ffutop/modbus-slave/transport"
	"github.com/ffutop/modbus-slave/transport/rtu"
	"github.com/ffutop/modbus-slave/transport/tcp"
)

func main() {
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load Configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	slog.Info("Starting Modbus slave...", "unitID", cfg.UnitID)

	// Select Storage
	storage := newStorage(cfg.Persistence)

	bank, err := storage.Load()
	if err != nil {
		slog.Error("Failed to load persisted registers, falling back to memory storage", "err", err)
		storage = persistence.NewMemoryStorage()
		bank, _ = storage.Load()
	}
	defer storage.Close()

	dispatcher := slave.NewDispatcher(byte(cfg.UnitID), bank, storage)

	// Create Listeners
	var listeners []transport.Listener
	for _, lc := range cfg.Listeners {
		switch lc.Type {
		case "tcp":
			listeners = append(listeners, tcp.NewServer(lc.Tcp.Address))
		case "serial":
			listeners = append(listeners, rtu.NewServer(lc.Serial))
		default:
			slog.Error("Unknown listener type", "type", lc.Type)
		}
	}

	if len(listeners) == 0 {
		slog.Error("No valid listeners configured. Exiting.")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start Listeners
	var wg sync.WaitGroup
	for i, l := range listeners {
		wg.Add(1)
		go func(l transport.Listener, idx int) {
			defer wg.Done()
			if err := l.Start(ctx, dispatcher.Handle); err != nil {
				slog.Error("Listener stopped with error", "index", idx, "err", err)
			}
		}(l, i)
	}

	// Start Dashboard
	if cfg.Dashboard.Enabled {
		ds := dashboard.NewServer(cfg.Dashboard.Address, byte(cfg.UnitID), bank)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ds.Start(ctx); err != nil {
				slog.Error("Dashboard stopped with error", "err", err)
			}
		}()
	}

	// Wait for Signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
	cancel()
	wg.Wait()

	if err := storage.Save(bank); err != nil {
		slog.Error("Final save failed", "err", err)
	}
	slog.Info("Goodbye.")
}

func newStorage(cfg config.PersistenceConfig) persistence.Storage {
	switch cfg.Type {
	case "json":
		slog.Info("Using JSON persistence", "path", cfg.Path)
		return persistence.NewJSONStorage(cfg.Path)
	case "mmap":
		slog.Info("Using MMAP persistence", "path", cfg.Path)
		return persistence.NewMmapStorage(cfg.Path)
	case "sql":
		slog.Info("Using SQL persistence", "driver", "sqlite3", "dsn", cfg.Path)
		return persistence.NewSQLStorage("sqlite3", cfg.Path)
	default:
		slog.Info("Using memory storage (non-persistent)")
		return persistence.NewMemoryStorage()
	}
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stdout: %v\n", err)
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
