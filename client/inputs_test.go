// inputs_test.go - Input submission tests.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/purelink/spice/wire/commands"
)

// motion is one decoded MOUSE_MOTION sub-message.
type motion struct {
	dx, dy int32
	state  uint16
}

func decodeMotionBurst(t *testing.T, sc *serverChannel, count int) []motion {
	out := make([]motion, 0, count)
	for i := 0; i < count; i++ {
		h, payload := sc.readPacket()
		require.Equal(t, uint16(commands.MsgcInputsMouseMotion), h.Type)
		require.Len(t, payload, 10)
		out = append(out, motion{
			dx:    int32(binary.LittleEndian.Uint32(payload[0:4])),
			dy:    int32(binary.LittleEndian.Uint32(payload[4:8])),
			state: binary.LittleEndian.Uint16(payload[8:10]),
		})
	}
	return out
}

// bootInputs brings up the inputs channel via the channel list.
func bootInputs(t *testing.T, ts *testServer, s *Session, sc *serverChannel) *serverChannel {
	inputsCh := make(chan *serverChannel, 1)
	go func() { inputsCh <- ts.acceptChannel(commands.ChannelInputs, nil) }()
	sc.writeMsg(commands.MsgMainChannelsList, channelsListPayload(commands.ChannelInputs))
	pumpUntil(t, s, func() bool { return s.ChannelConnected(ChannelInputs) })
	return <-inputsCh
}

func TestMouseMotionPacketisation(t *testing.T) {
	ts := newTestServer(t)
	s := newSession(t, ts, nil)
	sc := ts.bootMain(s, false, 0)
	inputs := bootInputs(t, ts, s, sc)

	require.NoError(t, s.MouseMotion(300, -5))
	require.Equal(t, int32(3), s.mouse.sentCount.Load())

	burst := decodeMotionBurst(t, inputs, 3)
	require.Equal(t, []motion{{127, -5, 0}, {127, 0, 0}, {46, 0, 0}}, burst)

	// The deltas always sum to the requested motion.
	require.NoError(t, s.MouseMotion(-300, 254))
	burst = decodeMotionBurst(t, inputs, 3)
	var sx, sy int32
	for _, m := range burst {
		require.LessOrEqual(t, abs32(m.dx), int32(127))
		require.LessOrEqual(t, abs32(m.dy), int32(127))
		sx += m.dx
		sy += m.dy
	}
	require.Equal(t, int32(-300), sx)
	require.Equal(t, int32(254), sy)

	// A small motion is one plain packet.
	require.NoError(t, s.MouseMotion(5, 7))
	burst = decodeMotionBurst(t, inputs, 1)
	require.Equal(t, []motion{{5, 7, 0}}, burst)

	// No motion, no packets.
	require.NoError(t, s.MouseMotion(0, 0))
	require.Equal(t, int32(7), s.mouse.sentCount.Load())
}

func TestMotionAckBalance(t *testing.T) {
	ts := newTestServer(t)
	s := newSession(t, ts, nil)
	sc := ts.bootMain(s, false, 0)
	inputs := bootInputs(t, ts, s, sc)

	// 20 motion packets, one server ack bunch: 20 - 16 = 4.
	for i := 0; i < 20; i++ {
		require.NoError(t, s.MouseMotion(1, 0))
	}
	decodeMotionBurst(t, inputs, 20)
	require.Equal(t, int32(20), s.mouse.sentCount.Load())

	inputs.writeMsg(commands.MsgInputsMouseMotionAck, nil)
	pumpUntil(t, s, func() bool { return s.mouse.sentCount.Load() == 4 })

	// A second bunch ack with only four motions outstanding would take
	// the counter below zero: a protocol error.
	inputs.writeMsg(commands.MsgInputsMouseMotionAck, nil)
	require.Equal(t, StatusErrRead, pumpStatus(t, s))
}

func TestMousePressReleaseMask(t *testing.T) {
	ts := newTestServer(t)
	s := newSession(t, ts, nil)
	sc := ts.bootMain(s, false, 0)
	inputs := bootInputs(t, ts, s, sc)

	expectButton := func(msgType uint16, button MouseButton, state uint16) {
		h, payload := inputs.readPacket()
		require.Equal(t, msgType, h.Type)
		require.Equal(t, uint8(button), payload[0])
		require.Equal(t, state, binary.LittleEndian.Uint16(payload[1:3]))
	}

	require.NoError(t, s.MousePress(MouseButtonLeft))
	expectButton(commands.MsgcInputsMousePress, MouseButtonLeft, commands.MouseButtonMaskLeft)

	require.NoError(t, s.MousePress(MouseButtonSide))
	expectButton(commands.MsgcInputsMousePress, MouseButtonSide,
		commands.MouseButtonMaskLeft|commands.MouseButtonMaskSide)

	require.NoError(t, s.MouseRelease(MouseButtonLeft))
	expectButton(commands.MsgcInputsMouseRelease, MouseButtonLeft, commands.MouseButtonMaskSide)

	require.NoError(t, s.MouseRelease(MouseButtonSide))
	expectButton(commands.MsgcInputsMouseRelease, MouseButtonSide, 0)

	// Releasing an unpressed button leaves the mask at zero.
	require.NoError(t, s.MouseRelease(MouseButtonRight))
	expectButton(commands.MsgcInputsMouseRelease, MouseButtonRight, 0)
}

func TestKeyAndPositionPackets(t *testing.T) {
	ts := newTestServer(t)
	s := newSession(t, ts, nil)
	sc := ts.bootMain(s, false, 0)
	inputs := bootInputs(t, ts, s, sc)

	require.NoError(t, s.KeyDown(0x1c))
	h, payload := inputs.readPacket()
	require.Equal(t, uint16(commands.MsgcInputsKeyDown), h.Type)
	require.Equal(t, uint32(0x1c), binary.LittleEndian.Uint32(payload))

	require.NoError(t, s.KeyUp(0x1c))
	h, payload = inputs.readPacket()
	require.Equal(t, uint16(commands.MsgcInputsKeyUp), h.Type)
	require.Equal(t, uint32(0x9c), binary.LittleEndian.Uint32(payload))

	require.NoError(t, s.KeyModifiers(0x2))
	h, payload = inputs.readPacket()
	require.Equal(t, uint16(commands.MsgcInputsKeyModifiers), h.Type)
	require.Equal(t, uint16(0x2), binary.LittleEndian.Uint16(payload))

	require.NoError(t, s.MousePosition(640, 480))
	h, payload = inputs.readPacket()
	require.Equal(t, uint16(commands.MsgcInputsMousePosition), h.Type)
	require.Equal(t, uint32(640), binary.LittleEndian.Uint32(payload[0:4]))
	require.Equal(t, uint32(480), binary.LittleEndian.Uint32(payload[4:8]))
}

func TestInputsStateTracking(t *testing.T) {
	ts := newTestServer(t)
	s := newSession(t, ts, nil)
	sc := ts.bootMain(s, false, 0)
	inputs := bootInputs(t, ts, s, sc)

	// INPUTS_INIT seeds the modifier cache.
	var b []byte
	b = binary.LittleEndian.AppendUint16(b, 0x4)
	inputs.writeMsg(commands.MsgInputsInit, b)
	pumpUntil(t, s, func() bool { return s.kbModifiers == 0x4 })

	b = nil
	b = binary.LittleEndian.AppendUint16(b, 0x3)
	inputs.writeMsg(commands.MsgInputsKeyModifiers, b)
	pumpUntil(t, s, func() bool { return s.kbModifiers == 0x3 })

	// A duplicate init is a protocol error.
	b = nil
	b = binary.LittleEndian.AppendUint16(b, 0)
	inputs.writeMsg(commands.MsgInputsInit, b)
	require.Equal(t, StatusErrRead, pumpStatus(t, s))
}

func TestInputAPIsRequireChannel(t *testing.T) {
	ts := newTestServer(t)
	s := newSession(t, ts, nil)
	ts.bootMain(s, false, 0)

	require.ErrorIs(t, s.KeyDown(1), ErrNotConnected)
	require.ErrorIs(t, s.MouseMotion(5, 5), ErrNotConnected)
	require.ErrorIs(t, s.MousePress(MouseButtonLeft), ErrNotConnected)
}
