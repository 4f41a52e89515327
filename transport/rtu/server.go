// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/grid-x/serial"

	"github.com/ffutop/modbus-slave/internal/config"
	modbusrtu "github.com/ffutop/modbus-slave/modbus/rtu"
	"github.com/ffutop/modbus-slave/transport"
)

// Server listens on a serial port and services Modbus RTU requests from
// an external master on the bus.
type Server struct {
	Config config.SerialConfig

	port io.ReadWriteCloser
}

// NewServer creates a new RTU Server.
func NewServer(cfg config.SerialConfig) *Server {
	return &Server{
		Config: cfg,
	}
}

// Start opens the serial port and scans for request frames.
func (s *Server) Start(ctx context.Context, handler transport.FrameHandler) error {
	spConfig := &serial.Config{
		Address:  s.Config.Device,
		BaudRate: s.Config.BaudRate,
		DataBits: s.Config.DataBits,
		StopBits: s.Config.StopBits,
		Parity:   s.Config.Parity,
		Timeout:  s.Config.Timeout, // Read timeout
	}

	port, err := serial.Open(spConfig)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.Config.Device, err)
	}
	s.port = port
	defer port.Close()
	slog.Info("RTU listener started", "device", s.Config.Device)

	go func() {
		<-ctx.Done()
		port.Close()
	}()

	return s.scanLoop(ctx, port, handler)
}

func (s *Server) scanLoop(ctx context.Context, port io.ReadWriteCloser, handler transport.FrameHandler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := modbusrtu.ReadRequest(port)
		if err != nil {
			var unknown *modbusrtu.UnknownFunctionError
			if errors.As(err, &unknown) {
				// Answer IllegalFunction from the partial header; the
				// inter-frame silence on the serial bus resynchronizes
				// the scan.
				if resp := handler(frame); resp != nil {
					_, _ = port.Write(resp)
				}
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			// Read timeouts while the bus is idle land here; keep
			// scanning.
			continue
		}

		resp := handler(frame)
		if resp == nil {
			// Another unit's request; stay silent.
			continue
		}

		if _, err := port.Write(resp); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("Failed to write response", "device", s.Config.Device, "err", err)
		}
	}
}

// Close closes the serial port.
func (s *Server) Close() error {
	if s.port != nil {
		return s.port.Close()
	}
	return nil
}
