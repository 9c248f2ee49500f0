// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultSyslogConfig(t *testing.T) {
	cfg := DefaultSyslogConfig()

	require.False(t, cfg.Enabled)
	require.Equal(t, 514, cfg.Port)
	require.Equal(t, "udp", cfg.Protocol)
	require.Equal(t, "toolsaf", cfg.Tag)
	require.Equal(t, 1, cfg.Facility)
}

func TestNewSyslogWriter_MissingHost(t *testing.T) {
	_, err := NewSyslogWriter(SyslogConfig{Enabled: true})
	require.Error(t, err)
}

func TestNewSyslogWriter_Defaults(t *testing.T) {
	w, err := NewSyslogWriter(SyslogConfig{Host: "127.0.0.1:0"})
	// 127.0.0.1:0 is not dialable as a host:port pair once JoinHostPort
	// wraps it again; we only care that the zero-value fields were
	// defaulted before the dial was attempted.
	require.Error(t, err)
	require.Nil(t, w)
}

func TestSyslogConfig_Struct(t *testing.T) {
	cfg := SyslogConfig{
		Enabled:  true,
		Host:     "syslog.example.com",
		Port:     1514,
		Protocol: "tcp",
		Tag:      "myapp",
		Facility: 3,
	}

	require.True(t, cfg.Enabled)
	require.Equal(t, "syslog.example.com", cfg.Host)
	require.Equal(t, 1514, cfg.Port)
	require.Equal(t, "tcp", cfg.Protocol)
	require.Equal(t, "myapp", cfg.Tag)
	require.Equal(t, 3, cfg.Facility)
}
