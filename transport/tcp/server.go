// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/ffutop/modbus-slave/modbus/rtu"
	"github.com/ffutop/modbus-slave/transport"
)

// Server accepts TCP connections and treats each as a raw Modbus RTU byte
// stream: no MBAP header, frames delimited by the length-aware framer.
type Server struct {
	Address  string
	listener net.Listener
}

// NewServer creates a new Server.
func NewServer(address string) *Server {
	return &Server{
		Address: address,
	}
}

// Start starts the TCP server.
func (s *Server) Start(ctx context.Context, handler transport.FrameHandler) error {
	listener, err := net.Listen("tcp", s.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Address, err)
	}
	s.listener = listener
	slog.Info("Modbus slave listening", "addr", listener.Addr())

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				slog.Error("Failed to accept connection", "err", err)
				continue
			}
		}
		go s.handleConnection(ctx, conn, handler)
	}
}

// Close closes the server listener.
func (s *Server) Close() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn, handler transport.FrameHandler) {
	defer conn.Close()
	slog.Info("New client connected", "addr", conn.RemoteAddr())

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := rtu.ReadRequest(conn)
		if err != nil {
			var unknown *rtu.UnknownFunctionError
			if errors.As(err, &unknown) {
				// The device still answers IllegalFunction (or stays
				// silent on a unit id mismatch), but the stream position
				// is now undefined, so the connection is closed to reset
				// stream state.
				if resp := handler(frame); resp != nil {
					if _, werr := conn.Write(resp); werr != nil {
						slog.Error("Failed to write response", "addr", conn.RemoteAddr(), "err", werr)
					}
				}
				slog.Warn("Unknown function code, resetting connection", "addr", conn.RemoteAddr(), "func", unknown.Code)
				return
			}
			if err != io.EOF {
				slog.Error("Connection read error", "addr", conn.RemoteAddr(), "err", err)
			}
			return
		}

		resp := handler(frame)
		if resp == nil {
			// Addressed to another unit: silently discarded.
			continue
		}

		if _, err := conn.Write(resp); err != nil {
			slog.Error("Failed to write response", "addr", conn.RemoteAddr(), "err", err)
			return
		}
	}
}
