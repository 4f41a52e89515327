// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ffutop/modbus-slave/internal/slave/model"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	bank := model.NewRegisterBank()
	bank.WriteRange(0, []uint16{100, 200, 300})

	s := NewServer("", 0x01, bank)
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/registers", s.handleRegisters)
	mux.HandleFunc("/ws", s.handleWebsocket)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestRegistersSnapshot(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/registers")
	if err != nil {
		t.Fatalf("GET /api/registers: %v", err)
	}
	defer resp.Body.Close()

	var snap snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if snap.UnitID != 0x01 {
		t.Errorf("unit id = %d, want 1", snap.UnitID)
	}
	if snap.Count != model.BankSize || len(snap.Registers) != model.BankSize {
		t.Fatalf("count = %d/%d, want full bank", snap.Count, len(snap.Registers))
	}
	if snap.Registers[0] != 100 || snap.Registers[1] != 200 || snap.Registers[2] != 300 {
		t.Errorf("registers = %v", snap.Registers[:3])
	}
}

func TestRegistersWindow(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/registers?start=1&count=2")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var snap snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if snap.Start != 1 || snap.Count != 2 {
		t.Errorf("window = start %d count %d, want 1/2", snap.Start, snap.Count)
	}
	if len(snap.Registers) != 2 || snap.Registers[0] != 200 || snap.Registers[1] != 300 {
		t.Errorf("registers = %v, want [200 300]", snap.Registers)
	}
}

func TestRegistersWindowClamped(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/registers?start=998&count=100")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var snap snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if snap.Count != 2 || len(snap.Registers) != 2 {
		t.Errorf("clamped count = %d, want 2", snap.Count)
	}
}

func TestRegistersBadParams(t *testing.T) {
	ts := newTestServer(t)

	for _, q := range []string{"?start=-1", "?start=5000", "?count=0", "?start=abc"} {
		resp, err := http.Get(ts.URL + "/api/registers" + q)
		if err != nil {
			t.Fatalf("GET %s: %v", q, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestWebsocketFeed(t *testing.T) {
	ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap snapshotResponse
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.Registers[0] != 100 {
		t.Errorf("register 0 = %d, want 100", snap.Registers[0])
	}
}
