// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Rhys Calloway, Stagewire

package cmd

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/stagewire/fermata/pkg/amp"
	"github.com/stagewire/fermata/pkg/pedal"
	"github.com/stagewire/fermata/pkg/pickup"
	"github.com/stagewire/fermata/pkg/roland"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for editing amplifier parameters",
	Long: `Edit amplifier parameters via an interactive terminal UI.

This command provides a TUI for monitoring and editing a Roland amplifier
connected over BLE MIDI (default), serial or WebSocket.

Features:
  - Live parameter list with origin tagging (requested vs external)
  - Direct value entry and arrow-key nudging
  - Expression pedal binding with pickup-mode jump prevention
  - Statistics tracking
  - Event logging
  - Automatic reconnection on connection loss

Tab switches between the parameter list and the value editor. Up/down
navigate the list; 'x' binds the expression pedal to the selected
parameter, 'X' releases it; 'r' re-reads the selected parameter.

Supports BLE, serial and WebSocket connections.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

// sessionTransport adapts a Connection to the session's write interface
type sessionTransport struct {
	conn Connection
}

func (t sessionTransport) Write(data []byte) error {
	_, err := t.conn.Write(data)
	return err
}

func (t sessionTransport) Close() error {
	return t.conn.Close()
}

// outboundOp is one queued device command. Reads and writes go through a
// single worker so the UI never blocks on the session's settle pacing.
type outboundOp struct {
	write bool
	addr  roland.Address
	value byte
}

// sessionManager handles the connection lifecycle, the amplifier session
// bound to it, the expression pedal and reconnection
type sessionManager struct {
	mu       sync.RWMutex
	conn     Connection
	connInfo string
	session  *amp.Session
	bound    roland.Address
	hasBound bool

	pickup *pickup.Controller
	pedal  *pedal.Watcher

	p    *tea.Program
	done chan struct{}

	updates  chan amp.Update
	logs     chan amp.LogEvent
	outbound chan outboundOp
}

func (cm *sessionManager) getConn() Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.conn
}

func (cm *sessionManager) getSession() *amp.Session {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.session
}

func runControl(cmd *cobra.Command, args []string) error {
	// Open initial connection (BLE, serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	cm := &sessionManager{
		pickup:   pickup.NewController(pickup.DefaultThreshold),
		done:     make(chan struct{}),
		updates:  make(chan amp.Update, 100),
		logs:     make(chan amp.LogEvent, 100),
		outbound: make(chan outboundOp, 64),
	}

	// Bring up the session (enables editor mode on the device)
	if err := cm.startSession(conn, connInfo); err != nil {
		conn.Close()
		return fmt.Errorf("session open failed: %v", err)
	}

	// Create TUI model with session manager
	m := initialControlModel(cm, connInfo)

	p := tea.NewProgram(m, tea.WithAltScreen())
	cm.p = p

	// The expression pedal is optional; run without it if MIDI is
	// unavailable
	watcher, err := pedal.NewWatcher(pedalName, uint8(pedalCC), cm.onPedalMove, cm.onPedalLost)
	if err != nil {
		slog.Warn("expression pedal unavailable", "err", err)
	} else {
		cm.pedal = watcher
		defer watcher.Close()
	}

	go cm.readerLoop()
	go cm.batchLoop()
	go cm.outboundLoop()
	go cm.pedalLoop()

	// Populate the parameter panel
	cm.requestInitialValues()

	// Run TUI
	if _, err := p.Run(); err != nil {
		close(cm.done) // Signal goroutines to stop
		cm.closeSession()
		return fmt.Errorf("TUI error: %v", err)
	}

	close(cm.done) // Signal goroutines to stop
	cm.closeSession()
	return nil
}

// startSession wires a fresh session over conn and enables editor mode
func (cm *sessionManager) startSession(conn Connection, connInfo string) error {
	handlers := amp.Handlers{
		Update: func(u amp.Update) {
			select {
			case cm.updates <- u:
			default:
			}
		},
		Log: func(e amp.LogEvent) {
			select {
			case cm.logs <- e:
			default:
			}
		},
	}

	sess := amp.New(sessionTransport{conn: conn}, handlers)
	sess.AttachPickup(cm.pickup)
	if err := sess.Open(); err != nil {
		return err
	}

	cm.mu.Lock()
	cm.conn = conn
	cm.connInfo = connInfo
	cm.session = sess
	cm.mu.Unlock()
	return nil
}

// closeSession tears the session down. Reassembly buffers, pending reads
// and the pickup guard are all reset by Close.
func (cm *sessionManager) closeSession() {
	cm.mu.Lock()
	sess := cm.session
	cm.session = nil
	cm.conn = nil
	cm.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
}

// readerLoop handles reading from the connection with automatic reconnection
func (cm *sessionManager) readerLoop() {
	for {
		select {
		case <-cm.done:
			return
		default:
		}

		// Pump fragments from the current connection
		connLost := cm.readFromConnection()

		if connLost {
			// Notify TUI about connection loss
			cm.p.Send(controlConnLostMsg{})

			// Attempt to reconnect
			if !cm.reconnect() {
				return // Shutdown requested during reconnect
			}
		}
	}
}

// readFromConnection feeds transport fragments into the session until
// the connection fails. Returns true if the connection was lost, false
// if shutdown was requested.
func (cm *sessionManager) readFromConnection() bool {
	buf := make([]byte, 512)
	for {
		select {
		case <-cm.done:
			return false
		default:
		}

		conn := cm.getConn()
		if conn == nil {
			return true
		}

		n, err := conn.Read(buf)
		if err != nil {
			// Check if we're shutting down
			select {
			case <-cm.done:
				return false
			default:
				// BLE and WebSocket read errors mean the connection
				// is permanently gone
				if err == ErrConnectionClosed {
					return true
				}
				// Brief pause before retry on transient errors (e.g., serial)
				time.Sleep(10 * time.Millisecond)
				continue
			}
		}
		if n == 0 {
			continue
		}

		if sess := cm.getSession(); sess != nil {
			sess.HandleFragment(buf[:n])
		}
	}
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (cm *sessionManager) reconnect() bool {
	// Hard-reset the dead session before dialing again
	cm.closeSession()

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		// Attempt to reconnect
		conn, connInfo, err := OpenConnection()
		if err == nil {
			if err := cm.startSession(conn, connInfo); err == nil {
				// Notify TUI about reconnection
				cm.p.Send(controlReconnectedMsg{connInfo: connInfo})

				// Repopulate the parameter panel
				cm.requestInitialValues()

				return true
			}
			conn.Close()
		}

		// Exponential backoff
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// batchLoop forwards session events to the TUI at a fixed rate
func (cm *sessionManager) batchLoop() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-cm.done:
			return
		case <-ticker.C:
			var batch controlBatchMsg

			// Drain all available updates
		drainUpdates:
			for {
				select {
				case u := <-cm.updates:
					batch.updates = append(batch.updates, u)
				default:
					break drainUpdates
				}
			}

			// Drain all available log events
		drainLogs:
			for {
				select {
				case e := <-cm.logs:
					batch.logs = append(batch.logs, e)
				default:
					break drainLogs
				}
			}

			// Send batch if we have anything
			if len(batch.updates) > 0 || len(batch.logs) > 0 {
				cm.p.Send(batch)
			}
		}
	}
}

// outboundLoop executes queued device commands one at a time. The
// session's settle pacing runs here, never on the UI goroutine.
func (cm *sessionManager) outboundLoop() {
	for {
		select {
		case <-cm.done:
			return
		case op := <-cm.outbound:
			sess := cm.getSession()
			if sess == nil {
				continue
			}
			if op.write {
				sess.SetParameter(op.addr, op.value)
			} else {
				sess.ReadParameter(op.addr)
			}
		}
	}
}

// pedalLoop keeps the pedal watcher scanning for hot-plugged devices
func (cm *sessionManager) pedalLoop() {
	if cm.pedal == nil {
		return
	}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-cm.done:
			return
		case <-ticker.C:
			cm.pedal.Tick()
		}
	}
}

// enqueue queues a device command without blocking. A full queue drops
// the command; the settle pacing bounds throughput anyway.
func (cm *sessionManager) enqueue(op outboundOp) {
	select {
	case cm.outbound <- op:
	default:
	}
}

// requestInitialValues reads every known parameter so the panel fills in
func (cm *sessionManager) requestInitialValues() {
	for _, param := range ampParameters {
		cm.enqueue(outboundOp{addr: param.address})
	}
}

// setParameter queues a parameter write
func (cm *sessionManager) setParameter(addr roland.Address, value byte) {
	cm.enqueue(outboundOp{write: true, addr: addr, value: value})
}

// readParameter queues a parameter read
func (cm *sessionManager) readParameter(addr roland.Address) {
	cm.enqueue(outboundOp{addr: addr})
}

// bindPedal points the expression pedal at a parameter. Returns whether
// the pickup guard armed and whether a pedal was available to bind.
func (cm *sessionManager) bindPedal(addr roland.Address, value int) (armed, ok bool) {
	if cm.pedal == nil || !cm.pedal.Connected() {
		return false, false
	}

	cm.mu.Lock()
	cm.bound = addr
	cm.hasBound = true
	cm.mu.Unlock()

	armed = cm.pickup.Bind(addr.String(), value, cm.pedal.Position())
	return armed, true
}

// unbindPedal releases the pedal binding and disarms the guard
func (cm *sessionManager) unbindPedal() {
	cm.mu.Lock()
	cm.hasBound = false
	cm.mu.Unlock()
	cm.pickup.Reset()
}

// onPedalMove runs on the MIDI listener goroutine for every pedal motion
func (cm *sessionManager) onPedalMove(prev, pos int) {
	cm.mu.RLock()
	bound, hasBound := cm.bound, cm.hasBound
	cm.mu.RUnlock()

	if hasBound {
		if value, write := cm.pickup.Move(bound.String(), prev, pos); write {
			cm.enqueue(outboundOp{write: true, addr: bound, value: byte(value)})
		}
	}

	if cm.p != nil {
		cm.p.Send(pedalMovedMsg{position: pos})
	}
}

// onPedalLost runs when the pedal disappears. The guard resets so a
// later reconnect starts clean.
func (cm *sessionManager) onPedalLost() {
	cm.pickup.Reset()
	if cm.p != nil {
		cm.p.Send(pedalLostMsg{})
	}
}

// pedalStatus reports pedal presence, name and last position for display
func (cm *sessionManager) pedalStatus() (connected bool, name string, position int) {
	if cm.pedal == nil {
		return false, "", -1
	}
	return cm.pedal.Connected(), cm.pedal.DeviceName(), cm.pedal.Position()
}

// pickupState returns a snapshot of the pickup guard for display
func (cm *sessionManager) pickupState() pickup.State {
	return cm.pickup.State()
}

// sessionStats returns a snapshot of the session counters
func (cm *sessionManager) sessionStats() amp.Stats {
	sess := cm.getSession()
	if sess == nil {
		return amp.Stats{}
	}
	return sess.Stats()
}
