// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Rhys Calloway, Stagewire

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"
	"tinygo.org/x/bluetooth"
)

// BLE MIDI service and data characteristic (MIDI over Bluetooth LE spec)
const (
	midiServiceUUID = "03b80e5a-ede8-4b33-a751-6ce34ec4c700"
	midiCharUUID    = "7772e5db-3868-4112-a1a9-f2669d106bf3"
)

// scanTimeout bounds device discovery when opening a BLE connection
const scanTimeout = 15 * time.Second

// Connection provides a common interface for reading/writing bytes over
// BLE, serial or WebSocket. Each Read returns at most one transport
// fragment (one BLE notification, one WebSocket message, one serial
// read), so fragment boundaries survive into the reassembler.
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrConnectionClosed is returned when reading from a closed connection
var ErrConnectionClosed = fmt.Errorf("connection closed")

// BLEConnection wraps the MIDI data characteristic of a connected BLE
// device. Notifications are queued so each Read returns exactly one.
type BLEConnection struct {
	DeviceName    string
	DeviceAddress string

	device bluetooth.Device
	data   bluetooth.DeviceCharacteristic

	frames    chan []byte
	done      chan struct{}
	closeOnce sync.Once

	buf       []byte
	bufOffset int
}

func (b *BLEConnection) Read(p []byte) (int, error) {
	// If we have buffered data, return it first
	if b.bufOffset < len(b.buf) {
		n := copy(p, b.buf[b.bufOffset:])
		b.bufOffset += n
		return n, nil
	}

	select {
	case frame := <-b.frames:
		b.buf = frame
		b.bufOffset = 0
		n := copy(p, b.buf)
		b.bufOffset = n
		return n, nil
	case <-b.done:
		return 0, ErrConnectionClosed
	}
}

func (b *BLEConnection) Write(p []byte) (int, error) {
	n, err := b.data.WriteWithoutResponse(p)
	if err != nil {
		return n, err
	}
	return len(p), nil
}

func (b *BLEConnection) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		err = b.device.Disconnect()
	})
	return err
}

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// WebSocketConnection wraps a WebSocket connection for byte-level reading
type WebSocketConnection struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool // Track if connection has failed/closed
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	// Return immediately if connection is known to be closed
	if w.closed {
		return 0, ErrConnectionClosed
	}

	// If we have buffered data, return it first
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	// Read next message from WebSocket (non-recursive loop to avoid stack overflow)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			// Mark connection as closed to prevent further read attempts
			w.closed = true
			return 0, err
		}

		// Notification frames travel as binary messages; skip anything else
		if messageType != websocket.BinaryMessage {
			continue
		}

		// Buffer the message and return what fits
		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	err := w.conn.WriteMessage(websocket.BinaryMessage, p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// scanForDevice finds a BLE device by address, by name, or failing
// those, the first device advertising the MIDI service.
func scanForDevice(name, address string, timeout time.Duration) (bluetooth.ScanResult, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return bluetooth.ScanResult{}, fmt.Errorf("failed to enable bluetooth adapter: %v", err)
	}

	svcUUID, err := bluetooth.ParseUUID(midiServiceUUID)
	if err != nil {
		return bluetooth.ScanResult{}, fmt.Errorf("failed to parse MIDI service UUID: %v", err)
	}

	var found bluetooth.ScanResult
	var ok bool

	timer := time.AfterFunc(timeout, func() { adapter.StopScan() })
	defer timer.Stop()

	err = adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		switch {
		case address != "":
			if !strings.EqualFold(result.Address.String(), address) {
				return
			}
		case name != "":
			if !containsCI(result.LocalName(), name) {
				return
			}
		default:
			// No selector given: take the first device advertising
			// the MIDI service
			if !result.AdvertisementPayload.HasServiceUUID(svcUUID) {
				return
			}
		}
		found = result
		ok = true
		adapter.StopScan()
	})
	if err != nil {
		return bluetooth.ScanResult{}, fmt.Errorf("scan failed: %v", err)
	}
	if !ok {
		return bluetooth.ScanResult{}, fmt.Errorf("no matching BLE MIDI device found within %s", timeout)
	}
	return found, nil
}

// OpenBLEConnection scans for the amplifier, connects, and subscribes to
// the MIDI data characteristic
func OpenBLEConnection(name, address string) (*BLEConnection, error) {
	result, err := scanForDevice(name, address, scanTimeout)
	if err != nil {
		return nil, err
	}

	adapter := bluetooth.DefaultAdapter
	device, err := adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %v", result.Address.String(), err)
	}

	svcUUID, _ := bluetooth.ParseUUID(midiServiceUUID)
	charUUID, _ := bluetooth.ParseUUID(midiCharUUID)

	services, err := device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil || len(services) == 0 {
		device.Disconnect()
		return nil, fmt.Errorf("MIDI service not found: %v", err)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{charUUID})
	if err != nil || len(chars) == 0 {
		device.Disconnect()
		return nil, fmt.Errorf("MIDI data characteristic not found: %v", err)
	}

	conn := &BLEConnection{
		DeviceName:    result.LocalName(),
		DeviceAddress: result.Address.String(),
		device:        device,
		data:          chars[0],
		frames:        make(chan []byte, 64),
		done:          make(chan struct{}),
	}

	err = chars[0].EnableNotifications(func(data []byte) {
		// The stack reuses the notification buffer
		frame := make([]byte, len(data))
		copy(frame, data)
		select {
		case conn.frames <- frame:
		case <-conn.done:
		}
	})
	if err != nil {
		device.Disconnect()
		return nil, fmt.Errorf("failed to enable notifications: %v", err)
	}

	return conn, nil
}

// OpenSerialConnection opens a serial port connection
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	// Parse and validate URL
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	// Validate scheme
	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	// Create dialer with timeout
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	// Configure TLS for wss://
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	// Build HTTP headers with Basic auth
	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	// Connect
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("FERMATA_PASSWORD"); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// OpenConnection opens a connection based on flags. WebSocket and serial
// take precedence when their flags are set; BLE is the default.
func OpenConnection() (Connection, string, error) {
	if wsURL != "" {
		// WebSocket mode
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if portName != "" {
		// Serial mode
		conn, err := OpenSerialConnection(portName, baudRate)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}

	// BLE mode (default)
	conn, err := OpenBLEConnection(bleName, bleAddress)
	if err != nil {
		return nil, "", err
	}

	name := conn.DeviceName
	if name == "" {
		name = "(unnamed)"
	}
	return conn, fmt.Sprintf("BLE: %s (%s)", name, conn.DeviceAddress), nil
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
