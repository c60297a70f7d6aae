// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/Thermoquad/fopm-reader/internal/config"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// Connection provides a common interface for reading/writing bytes from serial or WebSocket
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrReadTimeout is returned when the meter does not answer within the read timeout
var ErrReadTimeout = errors.New("read timed out")

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// SerialConnection wraps a serial port
type SerialConnection struct {
	port    serial.Port
	timeout time.Duration
}

// Read never reports a silent zero-byte read; a timed-out read becomes ErrReadTimeout.
func (s *SerialConnection) Read(p []byte) (int, error) {
	n, err := s.port.Read(p)
	if err != nil {
		return n, err
	}
	if n == 0 && len(p) > 0 {
		return 0, fmt.Errorf("%w after %s", ErrReadTimeout, s.timeout)
	}
	return n, nil
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// WebSocketConnection reads meter bytes from a serial-to-WebSocket bridge.
// The bridge forwards meter bytes in binary messages, split wherever the
// serial side happened to deliver them, and reports its own status in text
// messages. A response frame may therefore span several binary messages.
type WebSocketConnection struct {
	conn    *websocket.Conn
	msg     io.Reader // unread part of the current binary message
	timeout time.Duration
	log     zerolog.Logger
	closed  bool
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	for {
		if w.timeout > 0 {
			if err := w.conn.SetReadDeadline(time.Now().Add(w.timeout)); err != nil {
				return 0, err
			}
		}

		if w.msg != nil {
			n, err := w.msg.Read(p)
			if errors.Is(err, io.EOF) {
				w.msg = nil
				err = nil
			}
			if n > 0 || err != nil {
				return n, w.readError(err)
			}
			continue
		}

		kind, r, err := w.conn.NextReader()
		if err != nil {
			return 0, w.readError(err)
		}

		switch kind {
		case websocket.BinaryMessage:
			w.msg = r
		case websocket.TextMessage:
			status, err := io.ReadAll(io.LimitReader(r, 512))
			if err != nil {
				return 0, w.readError(err)
			}
			w.log.Info().Str("status", strings.TrimSpace(string(status))).Msg("bridge")
		}
	}
}

// readError marks the connection unusable after a failed read. gorilla/websocket
// does not recover from read errors, including deadline expiry.
func (w *WebSocketConnection) readError(err error) error {
	if err == nil {
		return nil
	}
	w.closed = true
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w after %s", ErrReadTimeout, w.timeout)
	}
	return err
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// OpenSerialConnection opens the meter's serial port at 8N1
func OpenSerialConnection(portName string, baudRate int, readTimeout time.Duration) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	if readTimeout > 0 {
		if err := port.SetReadTimeout(readTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
		}
	}

	return &SerialConnection{port: port, timeout: readTimeout}, nil
}

// OpenWebSocketConnection opens a bridge connection with HTTP Basic auth.
// A positive readTimeout bounds every read; bridge status messages go to log.
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool, readTimeout time.Duration, log zerolog.Logger) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return &WebSocketConnection{conn: conn, timeout: readTimeout, log: log}, nil
}

// GetPassword retrieves the bridge password from FOPM_PASSWORD or prompts for it
func GetPassword() (string, error) {
	if pw := os.Getenv("FOPM_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal, read a plain line instead
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens either a serial or WebSocket connection based on cfg.
// The returned string describes the connection for status output.
func OpenConnection(cfg config.Config, log zerolog.Logger) (Connection, string, error) {
	if cfg.Bridge.URL != "" {
		password := ""
		if cfg.Bridge.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(cfg.Bridge.URL, cfg.Bridge.Username, password, cfg.Bridge.NoSSLVerify, cfg.ReadTimeout, log)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("WebSocket: %s", cfg.Bridge.URL), nil
	}

	if cfg.Port != "" {
		conn, err := OpenSerialConnection(cfg.Port, cfg.Baud, cfg.ReadTimeout)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("Serial: %s @ %d baud", cfg.Port, cfg.Baud), nil
	}

	return nil, "", errors.New("either a serial port or --url must be specified")
}
