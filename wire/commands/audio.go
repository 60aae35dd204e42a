// audio.go - Playback and record channel messages.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package commands

import "github.com/purelink/spice/wire"

// PlaybackStart announces an audio stream from the guest.
type PlaybackStart struct {
	Channels  uint32
	Format    uint16
	Frequency uint32
	Time      uint32
}

// DecodePlaybackStart parses a PLAYBACK_START payload.
func DecodePlaybackStart(b []byte) (*PlaybackStart, error) {
	r := reader{b: b}
	m := &PlaybackStart{
		Channels:  r.u32(),
		Format:    r.u16(),
		Frequency: r.u32(),
		Time:      r.u32(),
	}
	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}

// RecordStart announces that the guest wants audio input.
type RecordStart struct {
	Channels  uint32
	Format    uint16
	Frequency uint32
}

// DecodeRecordStart parses a RECORD_START payload.
func DecodeRecordStart(b []byte) (*RecordStart, error) {
	r := reader{b: b}
	m := &RecordStart{
		Channels:  r.u32(),
		Format:    r.u16(),
		Frequency: r.u32(),
	}
	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}

// PlaybackData is one burst of audio samples.  Data aliases the payload
// buffer.
type PlaybackData struct {
	Time uint32
	Data []byte
}

// DecodePlaybackData parses a PLAYBACK_DATA payload.
func DecodePlaybackData(b []byte) (*PlaybackData, error) {
	r := reader{b: b}
	m := &PlaybackData{Time: r.u32()}
	if r.err != nil {
		return nil, r.err
	}
	m.Data = r.remaining()
	return m, nil
}

// DecodeAudioVolume parses a per-channel 16 bit volume vector.
func DecodeAudioVolume(b []byte) ([]uint16, error) {
	r := reader{b: b}
	n := int(r.u8())
	out := make([]uint16, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.u16())
	}
	if r.err != nil {
		return nil, r.err
	}
	return out, nil
}

// DecodeAudioMute parses a mute flag.
func DecodeAudioMute(b []byte) (bool, error) {
	r := reader{b: b}
	m := r.u8()
	if r.err != nil {
		return false, r.err
	}
	return m != 0, nil
}

// RecordDataPacket builds the header part of a RECORD_DATA message.  The
// audio bytes follow on the wire under the same channel lock; size is
// accounted in the header via the extra mechanism.
func RecordDataPacket(time uint32, dataSize int) []byte {
	b := wire.NewBuilder(MsgcRecordData, 4)
	b.SetExtra(uint32(dataSize))
	return b.U32(time).Packet()
}
