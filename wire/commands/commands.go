// commands.go - Common channel messages.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package commands implements the typed SPICE messages: the common
// messages every channel speaks, the per-channel messages of the six
// supported channel kinds, and the VD agent sub-protocol tunneled over
// the main channel.
//
// Inbound messages decode from an owned payload buffer into plain
// structs; structures that reference pixel or mask data hold sub-slices
// of the payload rather than copies.  Outbound messages encode to a
// complete packet, mini-header included.
package commands

import (
	"encoding/binary"
	"errors"

	"github.com/purelink/spice/wire"
)

var errTruncated = errors.New("commands: truncated message")

// reader walks a payload buffer field by field.  Reads past the end set
// the sticky error instead of panicking, so codecs check once at the
// end.
type reader struct {
	b   []byte
	err error
}

func (r *reader) u8() uint8 {
	if r.err != nil || len(r.b) < 1 {
		r.err = errTruncated
		return 0
	}
	v := r.b[0]
	r.b = r.b[1:]
	return v
}

func (r *reader) u16() uint16 {
	if r.err != nil || len(r.b) < 2 {
		r.err = errTruncated
		return 0
	}
	v := binary.LittleEndian.Uint16(r.b)
	r.b = r.b[2:]
	return v
}

func (r *reader) u32() uint32 {
	if r.err != nil || len(r.b) < 4 {
		r.err = errTruncated
		return 0
	}
	v := binary.LittleEndian.Uint32(r.b)
	r.b = r.b[4:]
	return v
}

func (r *reader) u64() uint64 {
	if r.err != nil || len(r.b) < 8 {
		r.err = errTruncated
		return 0
	}
	v := binary.LittleEndian.Uint64(r.b)
	r.b = r.b[8:]
	return v
}

func (r *reader) i16() int16 { return int16(r.u16()) }
func (r *reader) i32() int32 { return int32(r.u32()) }

func (r *reader) bytes(n int) []byte {
	if r.err != nil || len(r.b) < n {
		r.err = errTruncated
		return nil
	}
	v := r.b[:n]
	r.b = r.b[n:]
	return v
}

func (r *reader) remaining() []byte { return r.b }

// SetAck is the server's request to ack every Window messages.
type SetAck struct {
	Generation uint32
	Window     uint32
}

// DecodeSetAck parses a SET_ACK payload.
func DecodeSetAck(b []byte) (*SetAck, error) {
	r := reader{b: b}
	m := &SetAck{Generation: r.u32(), Window: r.u32()}
	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}

// AckSyncPacket builds the ACK_SYNC reply for a SET_ACK generation.
func AckSyncPacket(generation uint32) []byte {
	return wire.NewBuilder(MsgcAckSync, 4).U32(generation).Packet()
}

// AckPacket builds the single byte window ack.
func AckPacket() []byte {
	return wire.NewBuilder(MsgcAck, 1).U8(0).Packet()
}

// Ping is the server's keepalive probe.  Anything past the fixed fields
// is filler the client must consume.
type Ping struct {
	ID        uint32
	Timestamp uint64
}

// DecodePing parses the fixed part of a PING payload; the filler bytes
// are dropped with the rest of the payload buffer.
func DecodePing(b []byte) (*Ping, error) {
	r := reader{b: b}
	m := &Ping{ID: r.u32(), Timestamp: r.u64()}
	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}

// PongPacket builds the PONG reply echoing the ping's id and timestamp.
func PongPacket(p *Ping) []byte {
	return wire.NewBuilder(MsgcPong, 12).U32(p.ID).U64(p.Timestamp).Packet()
}

// Notify is an informational message from the server.
type Notify struct {
	TimeStamp  uint64
	Severity   uint32
	Visibility uint32
	What       uint32
	Message    string
}

// DecodeNotify parses a NOTIFY payload.
func DecodeNotify(b []byte) (*Notify, error) {
	r := reader{b: b}
	m := &Notify{
		TimeStamp:  r.u64(),
		Severity:   r.u32(),
		Visibility: r.u32(),
		What:       r.u32(),
	}
	msgLen := int(r.u32())
	raw := r.bytes(msgLen)
	if r.err != nil {
		return nil, r.err
	}
	m.Message = string(raw)
	return m, nil
}

// DisconnectingPacket builds the client's graceful disconnect notice.
func DisconnectingPacket(timestampMS uint64, reason uint32) []byte {
	return wire.NewBuilder(MsgcDisconnecting, 12).U64(timestampMS).U32(reason).Packet()
}
