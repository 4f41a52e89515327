// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package dashboard serves a read-only monitoring view of the register
// bank over HTTP: a JSON snapshot endpoint and a websocket feed pushing
// periodic snapshots. It never mutates the bank.
package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ffutop/modbus-slave/internal/slave/model"
)

const pushInterval = time.Second

// Server is the monitoring HTTP server.
type Server struct {
	Address string

	unitID   byte
	bank     *model.RegisterBank
	srv      *http.Server
	upgrader websocket.Upgrader
}

// NewServer creates a dashboard server reading from bank.
func NewServer(address string, unitID byte, bank *model.RegisterBank) *Server {
	return &Server{
		Address: address,
		unitID:  unitID,
		bank:    bank,
	}
}

type snapshotResponse struct {
	UnitID    byte     `json:"unit_id"`
	Start     int      `json:"start"`
	Count     int      `json:"count"`
	Registers []uint16 `json:"registers"`
}

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/registers", s.handleRegisters)
	mux.HandleFunc("/ws", s.handleWebsocket)

	s.srv = &http.Server{
		Addr:    s.Address,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Dashboard listening", "addr", s.Address)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts the HTTP server down.
func (s *Server) Close() error {
	if s.srv != nil {
		return s.srv.Close()
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

// handleRegisters returns a JSON snapshot. Optional start/count query
// parameters select a window; defaults cover the whole bank.
func (s *Server) handleRegisters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := 0
	count := model.BankSize
	if v := r.URL.Query().Get("start"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > model.MaxAddress {
			http.Error(w, "invalid start", http.StatusBadRequest)
			return
		}
		start = n
	}
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid count", http.StatusBadRequest)
			return
		}
		count = n
	}
	if start+count > model.BankSize {
		count = model.BankSize - start
	}

	snap := s.bank.Snapshot()
	resp := snapshotResponse{
		UnitID:    s.unitID,
		Start:     start,
		Count:     count,
		Registers: snap[start : start+count],
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&resp); err != nil {
		slog.Error("Failed to encode snapshot", "err", err)
	}
}

// handleWebsocket upgrades the connection and pushes a whole-bank
// snapshot every second until the client goes away.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Websocket upgrade failed", "addr", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()
	slog.Info("Dashboard websocket client connected", "addr", r.RemoteAddr)

	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	for {
		resp := snapshotResponse{
			UnitID:    s.unitID,
			Start:     0,
			Count:     model.BankSize,
			Registers: s.bank.Snapshot(),
		}
		if err := conn.WriteJSON(&resp); err != nil {
			slog.Info("Dashboard websocket client disconnected", "addr", r.RemoteAddr)
			return
		}
		<-ticker.C
	}
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>Modbus Slave</title></head>
<body>
<h1>Modbus Slave Registers</h1>
<pre id="out">connecting...</pre>
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (ev) => {
  const s = JSON.parse(ev.data);
  let lines = "unit " + s.unit_id + "\n";
  for (let i = 0; i < s.registers.length; i += 10) {
    lines += String(i).padStart(4) + ": " + s.registers.slice(i, i + 10).join(" ") + "\n";
  }
  document.getElementById("out").textContent = lines;
};
ws.onclose = () => { document.getElementById("out").textContent = "disconnected"; };
</script>
</body>
</html>
`
