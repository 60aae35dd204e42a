// inputs.go - Inputs channel messages.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package commands

import (
	"encoding/binary"

	"github.com/purelink/spice/wire"
)

// DecodeKeyModifiers parses the u16 modifier mask carried by INPUTS_INIT
// and INPUTS_KEY_MODIFIERS.
func DecodeKeyModifiers(b []byte) (uint16, error) {
	r := reader{b: b}
	m := r.u16()
	if r.err != nil {
		return 0, r.err
	}
	return m, nil
}

// EncodeScancodeDown maps a PS/2 set-1 scancode to its wire encoding for
// a key press.  Codes above 0x100 are extended and gain the 0xe0 prefix.
func EncodeScancodeDown(code uint32) uint32 {
	if code > 0x100 {
		return 0xe0 | ((code - 0x100) << 8)
	}
	return code
}

// EncodeScancodeUp maps a PS/2 set-1 scancode to its wire encoding for a
// key release.
func EncodeScancodeUp(code uint32) uint32 {
	if code < 0x100 {
		return code | 0x80
	}
	return 0x80e0 | ((code - 0x100) << 8)
}

// KeyDownPacket builds an INPUTS_KEY_DOWN message.  code is the raw
// scancode; the extended-code mapping is applied here.
func KeyDownPacket(code uint32) []byte {
	return wire.NewBuilder(MsgcInputsKeyDown, 4).U32(EncodeScancodeDown(code)).Packet()
}

// KeyUpPacket builds an INPUTS_KEY_UP message.
func KeyUpPacket(code uint32) []byte {
	return wire.NewBuilder(MsgcInputsKeyUp, 4).U32(EncodeScancodeUp(code)).Packet()
}

// KeyModifiersPacket builds an INPUTS_KEY_MODIFIERS message.
func KeyModifiersPacket(modifiers uint16) []byte {
	return wire.NewBuilder(MsgcInputsKeyModifiers, 2).U16(modifiers).Packet()
}

// MousePositionPacket builds an absolute INPUTS_MOUSE_POSITION message.
func MousePositionPacket(x, y uint32, buttonState uint16, displayID uint8) []byte {
	return wire.NewBuilder(MsgcInputsMousePosition, 11).
		U32(x).U32(y).U16(buttonState).U8(displayID).Packet()
}

// AppendMouseMotion appends one relative INPUTS_MOUSE_MOTION packet to
// buf.  Motion bursts pack several of these into a single buffer so the
// whole burst goes out in one write.
func AppendMouseMotion(buf []byte, dx, dy int32, buttonState uint16) []byte {
	h := wire.MiniHeader{Type: MsgcInputsMouseMotion, Size: 10}
	buf = h.Encode(buf)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dx))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dy))
	buf = binary.LittleEndian.AppendUint16(buf, buttonState)
	return buf
}

// MousePressPacket builds an INPUTS_MOUSE_PRESS message carrying the
// post-update button mask.
func MousePressPacket(button uint8, buttonState uint16) []byte {
	return wire.NewBuilder(MsgcInputsMousePress, 3).U8(button).U16(buttonState).Packet()
}

// MouseReleasePacket builds an INPUTS_MOUSE_RELEASE message.
func MouseReleasePacket(button uint8, buttonState uint16) []byte {
	return wire.NewBuilder(MsgcInputsMouseRelease, 3).U8(button).U16(buttonState).Packet()
}
