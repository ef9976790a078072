package sink

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LogFileName is the file written below the configured log directory.
const LogFileName = "trello_watchman.log"

// NewFile appends records to dir/trello_watchman.log. The file is created
// owner-only since detections carry secret material.
func NewFile(dir string, opts ...Option) (*Logger, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	p := filepath.Join(dir, LogFileName)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return New(f, append(opts, WithCloser(f))...), nil
}

// NewStream sends records as JSON lines over a TCP connection to host:port.
func NewStream(ctx context.Context, host string, port int, opts ...Option) (*Logger, error) {
	if host == "" || port <= 0 {
		return nil, fmt.Errorf("stream sink needs host and port, got %q:%d", host, port)
	}
	d := net.Dialer{Timeout: 10 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("connect stream sink: %w", err)
	}
	return New(conn, append(opts, WithCloser(conn))...), nil
}
