// inputs.go - Inputs channel and the input submission API.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"github.com/purelink/spice/wire"
	"github.com/purelink/spice/wire/commands"
)

// inputsEndpoint handles the inputs channel.  Inbound traffic is tiny:
// the init message, modifier updates, and motion acks.
type inputsEndpoint struct{}

func (e *inputsEndpoint) channelCaps(c *channel) wire.Caps {
	return wire.NewCaps(commands.CapInputsKeyScancode)
}

func (e *inputsEndpoint) discardable(msgType uint16) bool { return false }

func (e *inputsEndpoint) onConnect(c *channel) error { return nil }

func (e *inputsEndpoint) handle(c *channel, h *wire.MiniHeader, payload []byte) error {
	s := c.s
	switch h.Type {
	case commands.MsgInputsInit:
		if c.initDone {
			return newProtocolError("duplicate INPUTS_INIT")
		}
		c.initDone = true
		mods, err := commands.DecodeKeyModifiers(payload)
		if err != nil {
			return err
		}
		s.kbModifiers = mods
		return nil

	case commands.MsgInputsKeyModifiers:
		mods, err := commands.DecodeKeyModifiers(payload)
		if err != nil {
			return err
		}
		s.kbModifiers = mods
		return nil

	case commands.MsgInputsMouseMotionAck:
		// The server acks motion in fixed bunches; the outstanding
		// counter must never underflow.
		if s.mouse.sentCount.Add(-commands.MotionAckBunch) < 0 {
			return newProtocolError("mouse motion ack underflow")
		}
		return nil
	}

	// Unknown inputs message; dropped.
	return nil
}

func (s *Session) inputs() *channel { return s.channels[ChannelInputs] }

// KeyDown submits a key press.  code is a PS/2 set-1 scancode; extended
// codes (> 0x100) are translated to their 0xe0 prefixed form.
func (s *Session) KeyDown(code uint32) error {
	return s.inputs().sendReady(commands.KeyDownPacket(code))
}

// KeyUp submits a key release.
func (s *Session) KeyUp(code uint32) error {
	return s.inputs().sendReady(commands.KeyUpPacket(code))
}

// KeyModifiers submits the keyboard modifier state.
func (s *Session) KeyModifiers(modifiers uint16) error {
	return s.inputs().sendReady(commands.KeyModifiersPacket(modifiers))
}

// MousePosition submits an absolute pointer position.  Only valid when
// the server is in client pointer mode.
func (s *Session) MousePosition(x, y uint32) error {
	c := s.inputs()
	if !c.ready.Load() {
		return ErrNotConnected
	}

	s.mouse.Lock()
	pkt := commands.MousePositionPacket(x, y, s.mouse.buttonState, 0)
	s.mouse.Unlock()

	s.mouse.sentCount.Add(1)
	return c.send(pkt)
}

// MouseMotion submits a relative pointer motion.  The QEMU virtio mouse
// clamps deltas to ±127 per message, so larger motions split into a
// burst of sub-messages packed into one buffer and emitted in a single
// write.
func (s *Session) MouseMotion(dx, dy int32) error {
	c := s.inputs()
	if !c.ready.Load() {
		return ErrNotConnected
	}

	delta := abs32(dx)
	if d := abs32(dy); d > delta {
		delta = d
	}
	if delta == 0 {
		return nil
	}
	msgs := (delta + 126) / 127

	s.mouse.Lock()
	state := s.mouse.buttonState

	if msgs == 1 {
		pkt := commands.AppendMouseMotion(nil, dx, dy, state)
		s.mouse.Unlock()
		s.mouse.sentCount.Add(1)
		return c.send(pkt)
	}

	// The whole burst goes out atomically, under both the mouse lock
	// (consistent button mask, exclusive scratch buffer) and the
	// channel send lock.
	defer s.mouse.Unlock()

	need := int(msgs) * (wire.MiniHeaderLen + 10)
	if cap(s.mouse.motionBuf) < need {
		s.mouse.motionBuf = make([]byte, 0, need)
	}
	buf := s.mouse.motionBuf[:0]
	for dx != 0 || dy != 0 {
		sx := clamp127(dx)
		sy := clamp127(dy)
		buf = commands.AppendMouseMotion(buf, sx, sy, state)
		dx -= sx
		dy -= sy
	}
	s.mouse.motionBuf = buf

	s.mouse.sentCount.Add(int32(msgs))
	return c.send(buf)
}

// MousePress submits a button press.  The shared button mask is updated
// first and the packet carries the post-update mask.
func (s *Session) MousePress(button MouseButton) error {
	c := s.inputs()
	if !c.ready.Load() {
		return ErrNotConnected
	}

	s.mouse.Lock()
	s.mouse.buttonState |= buttonMask(button)
	pkt := commands.MousePressPacket(uint8(button), s.mouse.buttonState)
	s.mouse.Unlock()

	return c.send(pkt)
}

// MouseRelease submits a button release.
func (s *Session) MouseRelease(button MouseButton) error {
	c := s.inputs()
	if !c.ready.Load() {
		return ErrNotConnected
	}

	s.mouse.Lock()
	s.mouse.buttonState &^= buttonMask(button)
	pkt := commands.MouseReleasePacket(uint8(button), s.mouse.buttonState)
	s.mouse.Unlock()

	return c.send(pkt)
}

func buttonMask(button MouseButton) uint16 {
	switch button {
	case MouseButtonLeft:
		return commands.MouseButtonMaskLeft
	case MouseButtonMiddle:
		return commands.MouseButtonMaskMiddle
	case MouseButtonRight:
		return commands.MouseButtonMaskRight
	case MouseButtonSide:
		return commands.MouseButtonMaskSide
	case MouseButtonExtra:
		return commands.MouseButtonMaskExtra
	default:
		return 0
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp127(v int32) int32 {
	if v > 127 {
		return 127
	}
	if v < -127 {
		return -127
	}
	return v
}
