// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"fmt"
	"io"
	"net"
	"time"
)

// SyslogConfig configures optional mirroring of the event log to a syslog
// collector, for deployments that already centralize logs that way.
type SyslogConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Protocol string // "udp" or "tcp"
	Tag      string
	Facility int
}

// DefaultSyslogConfig returns the disabled default configuration.
func DefaultSyslogConfig() SyslogConfig {
	return SyslogConfig{
		Enabled:  false,
		Port:     514,
		Protocol: "udp",
		Tag:      "toolsaf",
		Facility: 1,
	}
}

// syslogWriter writes RFC3164-ish lines to a remote syslog collector.
type syslogWriter struct {
	conn     net.Conn
	tag      string
	facility int
}

// NewSyslogWriter dials the configured syslog collector and returns an
// io.WriteCloser that formats each Write as one syslog message.
func NewSyslogWriter(cfg SyslogConfig) (io.WriteCloser, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("logging: syslog host must be set")
	}
	if cfg.Port == 0 {
		cfg.Port = 514
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
	if cfg.Tag == "" {
		cfg.Tag = "toolsaf"
	}
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	conn, err := net.DialTimeout(cfg.Protocol, addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("logging: dial syslog: %w", err)
	}
	return &syslogWriter{conn: conn, tag: cfg.Tag, facility: cfg.Facility}, nil
}

func (w *syslogWriter) Write(p []byte) (int, error) {
	priority := w.facility*8 + 6 // informational severity
	msg := fmt.Sprintf("<%d>%s: %s", priority, w.tag, p)
	if _, err := w.conn.Write([]byte(msg)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *syslogWriter) Close() error {
	return w.conn.Close()
}
