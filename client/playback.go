// playback.go - Playback channel.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"github.com/purelink/spice/wire"
	"github.com/purelink/spice/wire/commands"
)

// playbackEndpoint receives the guest's audio output stream.
type playbackEndpoint struct{}

func (e *playbackEndpoint) channelCaps(c *channel) wire.Caps {
	caps := wire.NewCaps(commands.CapPlaybackOpus)
	// The volume capability is only announced when the caller can do
	// something with it.
	h := &c.s.cfg.Playback
	if h.Volume != nil || h.Mute != nil {
		caps.Set(commands.CapPlaybackVolume)
	}
	return caps
}

func (e *playbackEndpoint) discardable(msgType uint16) bool {
	return msgType == commands.MsgPlaybackMode || msgType == commands.MsgPlaybackLatency
}

func (e *playbackEndpoint) onConnect(c *channel) error { return nil }

func (e *playbackEndpoint) handle(c *channel, h *wire.MiniHeader, payload []byte) error {
	c.initDone = true
	cb := &c.s.cfg.Playback

	switch h.Type {
	case commands.MsgPlaybackStart:
		m, err := commands.DecodePlaybackStart(payload)
		if err != nil {
			return err
		}
		cb.Start(int(m.Channels), int(m.Frequency), audioFormat(m.Format), m.Time)
		return nil

	case commands.MsgPlaybackData:
		m, err := commands.DecodePlaybackData(payload)
		if err != nil {
			return err
		}
		cb.Data(m.Data)
		return nil

	case commands.MsgPlaybackStop:
		cb.Stop()
		return nil

	case commands.MsgPlaybackVolume:
		vol, err := commands.DecodeAudioVolume(payload)
		if err != nil {
			return err
		}
		if cb.Volume != nil {
			cb.Volume(vol)
		}
		return nil

	case commands.MsgPlaybackMute:
		mute, err := commands.DecodeAudioMute(payload)
		if err != nil {
			return err
		}
		if cb.Mute != nil {
			cb.Mute(mute)
		}
		return nil
	}

	// Unknown playback message; dropped.
	return nil
}

func audioFormat(f uint16) AudioFormat {
	if f == commands.AudioFmtS16 {
		return AudioFormatS16
	}
	return AudioFormatInvalid
}
