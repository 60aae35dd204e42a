// client.go - SPICE client public types and configuration.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package client implements the SPICE client protocol engine: the
// per-channel link handshake and message loop, the guest agent
// sub-protocol, and the session that multiplexes all channels through a
// single Process loop.
//
// The package is an embeddable library for an application that owns its
// own window, audio and input machinery; everything the engine decodes
// is surfaced through the callback groups on Config, and every callback
// runs synchronously on the goroutine that calls Session.Process.
package client

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/purelink/spice/client/config"
	"github.com/purelink/spice/core/log"
	"github.com/purelink/spice/wire/commands"
)

// Status is the result of one Process call.
type Status int

const (
	// StatusRun means the session is live; keep calling Process.
	StatusRun Status = iota

	// StatusShutdown means every channel has closed and the session is
	// finished.
	StatusShutdown

	// StatusErrPoll means the event loop failed.
	StatusErrPoll

	// StatusErrRead means a channel read or message handler failed.
	StatusErrRead

	// StatusErrAck means an ack packet could not be sent.
	StatusErrAck
)

// String returns a printable status name.
func (s Status) String() string {
	switch s {
	case StatusRun:
		return "run"
	case StatusShutdown:
		return "shutdown"
	case StatusErrPoll:
		return "err-poll"
	case StatusErrRead:
		return "err-read"
	case StatusErrAck:
		return "err-ack"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ChannelKind identifies one logical channel.
type ChannelKind int

const (
	ChannelMain ChannelKind = iota
	ChannelInputs
	ChannelPlayback
	ChannelRecord
	ChannelDisplay
	ChannelCursor

	channelMax
)

// String returns the channel name.
func (k ChannelKind) String() string {
	switch k {
	case ChannelMain:
		return "main"
	case ChannelInputs:
		return "inputs"
	case ChannelPlayback:
		return "playback"
	case ChannelRecord:
		return "record"
	case ChannelDisplay:
		return "display"
	case ChannelCursor:
		return "cursor"
	default:
		return fmt.Sprintf("channel(%d)", int(k))
	}
}

func (k ChannelKind) spiceType() uint8 {
	switch k {
	case ChannelMain:
		return commands.ChannelMain
	case ChannelInputs:
		return commands.ChannelInputs
	case ChannelPlayback:
		return commands.ChannelPlayback
	case ChannelRecord:
		return commands.ChannelRecord
	case ChannelDisplay:
		return commands.ChannelDisplay
	case ChannelCursor:
		return commands.ChannelCursor
	default:
		return 0
	}
}

// DataType enumerates clipboard data types.
type DataType int

const (
	DataText DataType = iota
	DataPNG
	DataBMP
	DataTIFF
	DataJPEG

	DataNone
)

// AudioFormat enumerates audio sample formats; only signed 16 bit is
// translated, everything else maps to invalid.
type AudioFormat int

const (
	AudioFormatInvalid AudioFormat = iota
	AudioFormatS16
)

// SurfaceFormat enumerates the supported surface formats.
type SurfaceFormat int

const (
	SurfaceFormat1A SurfaceFormat = iota
	SurfaceFormat8A
	SurfaceFormat16_555
	SurfaceFormat32xRGB
	SurfaceFormat16_565
	SurfaceFormat32ARGB
)

// BitmapFormat enumerates bitmap formats delivered to the draw callback.
// Only RGBA is produced by this engine; the top-down flag is the only
// variability.
type BitmapFormat int

const (
	BitmapFormatRGBA BitmapFormat = iota
)

// MouseButton enumerates pointer buttons.
type MouseButton int

const (
	MouseButtonLeft   = MouseButton(commands.MouseButtonLeft)
	MouseButtonMiddle = MouseButton(commands.MouseButtonMiddle)
	MouseButtonRight  = MouseButton(commands.MouseButtonRight)
	MouseButtonUp     = MouseButton(commands.MouseButtonUp)
	MouseButtonDown   = MouseButton(commands.MouseButtonDown)
	MouseButtonSide   = MouseButton(commands.MouseButtonSide)
	MouseButtonExtra  = MouseButton(commands.MouseButtonExtra)
)

// ServerInfo is the guest identity reported on the main channel.
type ServerInfo struct {
	Name string
	UUID uuid.UUID
}

// ClipboardHandlers is the callback group for the clipboard.  All four
// are mandatory when the clipboard is enabled.
type ClipboardHandlers struct {
	// Notice reports the data type the agent has grabbed.
	Notice func(t DataType)

	// Data delivers a completed inbound clipboard transfer.
	Data func(t DataType, data []byte)

	// Release reports that the agent side clipboard is gone.
	Release func()

	// Request asks the application to provide clipboard data.
	Request func(t DataType)
}

// PlaybackHandlers is the callback group for audio playback.  Start,
// Stop and Data are mandatory when playback is enabled; Volume and Mute
// are optional and gate the volume capability.
type PlaybackHandlers struct {
	Start  func(channels int, sampleRate int, format AudioFormat, time uint32)
	Volume func(volume []uint16)
	Mute   func(mute bool)
	Stop   func()
	Data   func(data []byte)
}

// RecordHandlers is the callback group for audio capture.  Start and
// Stop are mandatory when record is enabled.
type RecordHandlers struct {
	Start  func(channels int, sampleRate int, format AudioFormat)
	Volume func(volume []uint16)
	Mute   func(mute bool)
	Stop   func()
}

// DisplayHandlers is the callback group for the display channel.  All
// four are mandatory when display is enabled.
type DisplayHandlers struct {
	SurfaceCreate  func(surfaceID uint32, format SurfaceFormat, width, height int)
	SurfaceDestroy func(surfaceID uint32)
	DrawBitmap     func(surfaceID uint32, format BitmapFormat, topDown bool, x, y, width, height, stride int, data []byte)
	DrawFill       func(surfaceID uint32, x, y, width, height int, color uint32)
}

// CursorHandlers is the callback group for the cursor channel.
type CursorHandlers struct {
	// SetRGBAImage reports a new RGBA cursor shape.
	SetRGBAImage func(width, height, hotX, hotY int, data []byte)

	// SetMonoImage reports a new monochrome cursor shape as xor and
	// and masks.
	SetMonoImage func(width, height, hotX, hotY int, xorMask, andMask []byte)

	// SetState reports cursor visibility and position.
	SetState func(visible bool, x, y int)

	// SetTrail reports the cursor trail settings.
	SetTrail func(length, frequency int)
}

// Config is the complete session configuration: the file loadable
// settings plus the runtime callback groups.
type Config struct {
	// Settings is the file loadable part (address, password, channel
	// enables, logging).
	Settings *config.Settings

	// LogBackend overrides the backend built from Settings.Logging.
	LogBackend *log.Backend

	// MetricsAddress optionally exposes prometheus metrics over HTTP.
	MetricsAddress string

	// Ready is called exactly once, when the channel list is known and
	// the server identity (when advertised) is in.
	Ready func()

	Clipboard ClipboardHandlers
	Playback  PlaybackHandlers
	Record    RecordHandlers
	Display   DisplayHandlers
	Cursor    CursorHandlers
}

func (cfg *Config) validate() error {
	if cfg.Settings == nil {
		return newConfigError("no settings provided")
	}
	if err := cfg.Settings.FixupAndValidate(); err != nil {
		return &ConfigError{Err: err}
	}

	s := cfg.Settings
	if s.Clipboard.Enable {
		if cfg.Clipboard.Notice == nil || cfg.Clipboard.Data == nil ||
			cfg.Clipboard.Release == nil || cfg.Clipboard.Request == nil {
			return newConfigError("clipboard enabled without notice/data/release/request handlers")
		}
	}
	if s.Playback.Enable {
		if cfg.Playback.Start == nil || cfg.Playback.Stop == nil || cfg.Playback.Data == nil {
			return newConfigError("playback enabled without start/stop/data handlers")
		}
	}
	if s.Record.Enable {
		if cfg.Record.Start == nil || cfg.Record.Stop == nil {
			return newConfigError("record enabled without start/stop handlers")
		}
	}
	if s.Display.Enable {
		if cfg.Display.SurfaceCreate == nil || cfg.Display.SurfaceDestroy == nil ||
			cfg.Display.DrawBitmap == nil || cfg.Display.DrawFill == nil {
			return newConfigError("display enabled without surface/draw handlers")
		}
	}
	return nil
}

func agentTypeToDataType(t uint32) DataType {
	switch t {
	case commands.AgentClipboardUTF8Text:
		return DataText
	case commands.AgentClipboardImagePNG:
		return DataPNG
	case commands.AgentClipboardImageBMP:
		return DataBMP
	case commands.AgentClipboardImageTIFF:
		return DataTIFF
	case commands.AgentClipboardImageJPG:
		return DataJPEG
	default:
		return DataNone
	}
}

func dataTypeToAgentType(t DataType) uint32 {
	switch t {
	case DataText:
		return commands.AgentClipboardUTF8Text
	case DataPNG:
		return commands.AgentClipboardImagePNG
	case DataBMP:
		return commands.AgentClipboardImageBMP
	case DataTIFF:
		return commands.AgentClipboardImageTIFF
	case DataJPEG:
		return commands.AgentClipboardImageJPG
	default:
		return commands.AgentClipboardNone
	}
}
