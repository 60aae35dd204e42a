// record.go - Record channel and the audio write API.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"github.com/purelink/spice/wire"
	"github.com/purelink/spice/wire/commands"
)

// recordEndpoint receives the guest's capture control messages; the
// samples themselves flow outbound through WriteAudio.
type recordEndpoint struct{}

func (e *recordEndpoint) channelCaps(c *channel) wire.Caps {
	caps := wire.NewCaps(commands.CapRecordOpus)
	h := &c.s.cfg.Record
	if h.Volume != nil || h.Mute != nil {
		caps.Set(commands.CapRecordVolume)
	}
	return caps
}

func (e *recordEndpoint) discardable(msgType uint16) bool { return false }

func (e *recordEndpoint) onConnect(c *channel) error { return nil }

func (e *recordEndpoint) handle(c *channel, h *wire.MiniHeader, payload []byte) error {
	c.initDone = true
	cb := &c.s.cfg.Record

	switch h.Type {
	case commands.MsgRecordStart:
		m, err := commands.DecodeRecordStart(payload)
		if err != nil {
			return err
		}
		cb.Start(int(m.Channels), int(m.Frequency), audioFormat(m.Format))
		return nil

	case commands.MsgRecordStop:
		cb.Stop()
		return nil

	case commands.MsgRecordVolume:
		vol, err := commands.DecodeAudioVolume(payload)
		if err != nil {
			return err
		}
		if cb.Volume != nil {
			cb.Volume(vol)
		}
		return nil

	case commands.MsgRecordMute:
		mute, err := commands.DecodeAudioMute(payload)
		if err != nil {
			return err
		}
		if cb.Mute != nil {
			cb.Mute(mute)
		}
		return nil
	}

	// Unknown record message; dropped.
	return nil
}

// WriteAudio submits captured audio samples to the guest.  The header
// and the sample bytes go out back to back under the channel send lock
// so concurrent writers cannot interleave.
func (s *Session) WriteAudio(data []byte, time uint32) error {
	c := s.channels[ChannelRecord]
	if !c.ready.Load() {
		return ErrNotConnected
	}

	hdr := commands.RecordDataPacket(time, len(data))

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.sendLocked(hdr); err != nil {
		return err
	}
	if !c.connected.Load() {
		return ErrNotConnected
	}
	if _, err := c.conn.Write(data); err != nil {
		return err
	}
	return nil
}
