// main_test.go - Main channel codec tests.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package commands

import (
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDecodeMainInit(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	fields := []uint32{0xbeef, 1, 3, MouseModeServer, 1, 10, 0, 0}
	var b []byte
	for _, v := range fields {
		b = binary.LittleEndian.AppendUint32(b, v)
	}

	m, err := DecodeMainInit(b)
	require.NoError(err)
	require.Equal(uint32(0xbeef), m.SessionID)
	require.Equal(uint32(MouseModeServer), m.CurrentMouseMode)
	require.Equal(uint32(1), m.AgentConnected)
	require.Equal(uint32(10), m.AgentTokens)

	_, err = DecodeMainInit(b[:31])
	require.Error(err)
}

func TestDecodeChannelsList(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	var b []byte
	b = binary.LittleEndian.AppendUint32(b, 3)
	b = append(b, ChannelInputs, 0)
	b = append(b, ChannelDisplay, 0)
	b = append(b, ChannelPlayback, 0)

	list, err := DecodeChannelsList(b)
	require.NoError(err)
	require.Equal([]ChannelID{
		{Type: ChannelInputs},
		{Type: ChannelDisplay},
		{Type: ChannelPlayback},
	}, list)

	_, err = DecodeChannelsList(b[:7])
	require.Error(err)
}

func TestDecodeMainName(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	var b []byte
	b = binary.LittleEndian.AppendUint32(b, 6)
	b = append(b, 'g', 'u', 'e', 's', 't', 0)

	name, err := DecodeMainName(b)
	require.NoError(err)
	require.Equal("guest", name)
}

func TestDecodeMainUUID(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	want := uuid.MustParse("12345678-9abc-def0-1234-56789abcdef0")
	got, err := DecodeMainUUID(want[:])
	require.NoError(err)
	require.Equal(want, got)

	_, err = DecodeMainUUID(want[:15])
	require.Error(err)
}

func TestMainClientPackets(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	pkt := AttachChannelsPacket()
	h := header(t, pkt)
	require.Equal(uint16(MsgcMainAttachChannels), h.Type)
	require.Equal(uint32(0), h.Size)

	pkt = MouseModeRequestPacket(MouseModeClient)
	h = header(t, pkt)
	require.Equal(uint16(MsgcMainMouseModeRequest), h.Type)
	require.Equal(uint16(MouseModeClient), binary.LittleEndian.Uint16(pkt[6:8]))
}
