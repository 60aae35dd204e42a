// config.go - SPICE client configuration.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package config implements the file loadable part of the session
// configuration: where the server is, the ticket password, which
// channels to enable, and logging.  The callback groups live on the
// client Config, which holds these settings in its Settings field.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	defaultLogLevel = "NOTICE"

	// maxUnixPathLen bounds a unix socket path (sun_path).
	maxUnixPathLen = 107
)

// ErrNoHost is returned when the host is unset.
var ErrNoHost = errors.New("config: no host specified")

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stdout will be used.
	File string

	// Level specifies the log level.
	Level string
}

func (lCfg *Logging) validate() error {
	lvl := strings.ToUpper(lCfg.Level)
	switch lvl {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	lCfg.Level = lvl // Force uppercase.
	return nil
}

// ChannelOptions controls one optional channel.
type ChannelOptions struct {
	// Enable opts in to the channel when the server advertises it.
	Enable bool

	// AutoConnect brings the channel up as soon as it is advertised
	// instead of waiting for an explicit ConnectChannel.
	AutoConnect bool
}

// ClipboardOptions controls the clipboard over the guest agent.  The
// agent rides the main channel, so there is nothing to auto connect.
type ClipboardOptions struct {
	Enable bool
}

// Settings is the file loadable session configuration.
type Settings struct {
	// Host is the server address: an IPv4 literal when Port is set, a
	// filesystem path of a unix domain socket when Port is zero.
	Host string

	// Port is the SPICE TCP port, or zero for a unix socket.
	Port uint16

	// Password is the ticket password.
	Password string

	Logging *Logging

	Inputs    ChannelOptions
	Clipboard ClipboardOptions
	Playback  ChannelOptions
	Record    ChannelOptions
	Display   ChannelOptions
	Cursor    ChannelOptions
}

// UnixSocket returns true when Host names a unix domain socket.
func (s *Settings) UnixSocket() bool { return s.Port == 0 }

// FixupAndValidate applies defaults and validates the settings.
func (s *Settings) FixupAndValidate() error {
	if s.Logging == nil {
		s.Logging = &Logging{Level: defaultLogLevel}
	}
	if err := s.Logging.validate(); err != nil {
		return err
	}

	if s.Host == "" {
		return ErrNoHost
	}
	if s.UnixSocket() {
		if len(s.Host) > maxUnixPathLen {
			return fmt.Errorf("config: unix socket path exceeds %d bytes", maxUnixPathLen)
		}
		return nil
	}
	ip := net.ParseIP(s.Host)
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("config: Host '%v' is not an IPv4 literal", s.Host)
	}
	return nil
}

// Load parses and validates settings from TOML bytes.
func Load(b []byte) (*Settings, error) {
	s := new(Settings)
	if err := toml.Unmarshal(b, s); err != nil {
		return nil, err
	}
	if err := s.FixupAndValidate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile parses and validates settings from a TOML file.
func LoadFile(path string) (*Settings, error) {
	s := new(Settings)
	if _, err := toml.DecodeFile(path, s); err != nil {
		return nil, err
	}
	if err := s.FixupAndValidate(); err != nil {
		return nil, err
	}
	return s, nil
}
