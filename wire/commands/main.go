// main.go - Main channel messages.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package commands

import (
	"github.com/google/uuid"

	"github.com/purelink/spice/wire"
)

// MainInit is the first message on the main channel after the link
// handshake.
type MainInit struct {
	SessionID           uint32
	DisplayChannelsHint uint32
	SupportedMouseModes uint32
	CurrentMouseMode    uint32
	AgentConnected      uint32
	AgentTokens         uint32
	MultiMediaTime      uint32
	RAMHint             uint32
}

// DecodeMainInit parses a MAIN_INIT payload.
func DecodeMainInit(b []byte) (*MainInit, error) {
	r := reader{b: b}
	m := &MainInit{
		SessionID:           r.u32(),
		DisplayChannelsHint: r.u32(),
		SupportedMouseModes: r.u32(),
		CurrentMouseMode:    r.u32(),
		AgentConnected:      r.u32(),
		AgentTokens:         r.u32(),
		MultiMediaTime:      r.u32(),
		RAMHint:             r.u32(),
	}
	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}

// ChannelID identifies one advertised channel.
type ChannelID struct {
	Type uint8
	ID   uint8
}

// DecodeChannelsList parses a MAIN_CHANNELS_LIST payload.
func DecodeChannelsList(b []byte) ([]ChannelID, error) {
	r := reader{b: b}
	n := int(r.u32())
	if r.err != nil || n < 0 {
		return nil, errTruncated
	}
	out := make([]ChannelID, 0, n)
	for i := 0; i < n; i++ {
		c := ChannelID{Type: r.u8(), ID: r.u8()}
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, c)
	}
	return out, nil
}

// DecodeMainName parses a MAIN_NAME payload.
func DecodeMainName(b []byte) (string, error) {
	r := reader{b: b}
	n := int(r.u32())
	raw := r.bytes(n)
	if r.err != nil {
		return "", r.err
	}
	// The name is NUL terminated on the wire.
	for i, c := range raw {
		if c == 0 {
			raw = raw[:i]
			break
		}
	}
	return string(raw), nil
}

// DecodeMainUUID parses a MAIN_UUID payload.
func DecodeMainUUID(b []byte) (uuid.UUID, error) {
	if len(b) < 16 {
		return uuid.Nil, errTruncated
	}
	return uuid.FromBytes(b[:16])
}

// DecodeTokens parses the u32 token count carried by AGENT_TOKEN and
// AGENT_CONNECTED_TOKENS.
func DecodeTokens(b []byte) (uint32, error) {
	r := reader{b: b}
	n := r.u32()
	if r.err != nil {
		return 0, r.err
	}
	return n, nil
}

// DecodeAgentDisconnected parses the error code carried by
// AGENT_DISCONNECTED.
func DecodeAgentDisconnected(b []byte) (uint32, error) {
	return DecodeTokens(b)
}

// AttachChannelsPacket builds the empty ATTACH_CHANNELS request.
func AttachChannelsPacket() []byte {
	return wire.NewBuilder(MsgcMainAttachChannels, 0).Packet()
}

// MouseModeRequestPacket builds a MOUSE_MODE_REQUEST.
func MouseModeRequestPacket(mode uint16) []byte {
	return wire.NewBuilder(MsgcMainMouseModeRequest, 2).U16(mode).Packet()
}

// AgentStartPacket builds the AGENT_START message carrying the number of
// tokens granted to the agent for client bound data.
func AgentStartPacket(tokens uint32) []byte {
	return wire.NewBuilder(MsgcMainAgentStart, 4).U32(tokens).Packet()
}

// AgentDataPacket builds one MAIN_AGENT_DATA carrier around the given
// bytes.
func AgentDataPacket(data []byte) []byte {
	return wire.NewBuilder(MsgcMainAgentData, len(data)).Raw(data).Packet()
}
