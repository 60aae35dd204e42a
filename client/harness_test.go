// harness_test.go - Scripted in-process SPICE peer for tests.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/purelink/spice/client/config"
	"github.com/purelink/spice/wire"
	"github.com/purelink/spice/wire/commands"
)

const testPassword = "hunter2"

// testServer is a scripted SPICE server on a loopback listener.
type testServer struct {
	t   *testing.T
	ln  net.Listener
	key *rsa.PrivateKey
}

func newTestServer(t *testing.T) *testServer {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	return &testServer{t: t, ln: ln, key: key}
}

func (ts *testServer) port() uint16 {
	return uint16(ts.ln.Addr().(*net.TCPAddr).Port)
}

func (ts *testServer) settings() *config.Settings {
	return &config.Settings{
		Host:     "127.0.0.1",
		Port:     ts.port(),
		Password: testPassword,
		Logging:  &config.Logging{Disable: true},
	}
}

// serverChannel is the server end of one channel socket.
type serverChannel struct {
	t    *testing.T
	conn net.Conn
	mess *wire.LinkMess
}

// acceptChannel accepts one channel socket and walks the server side of
// the link handshake.  channelCaps are the channel capability words
// advertised back to the client.
func (ts *testServer) acceptChannel(expectType uint8, channelCaps wire.Caps) *serverChannel {
	t := ts.t
	conn, err := ts.ln.Accept()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	hdr, err := wire.ReadLinkHeader(conn)
	require.NoError(t, err)
	raw := make([]byte, hdr.Size)
	_, err = io.ReadFull(conn, raw)
	require.NoError(t, err)
	mess, err := wire.DecodeLinkMess(raw)
	require.NoError(t, err)
	require.Equal(t, expectType, mess.ChannelType)
	require.True(t, mess.CommonCaps.Has(commands.CapCommonAuthSelection))
	require.True(t, mess.CommonCaps.Has(commands.CapCommonAuthSpice))
	require.True(t, mess.CommonCaps.Has(commands.CapCommonMiniHeader))

	common := wire.NewCaps(commands.CapCommonMiniHeader)
	common.Set(commands.CapCommonAuthSelection)
	common.Set(commands.CapCommonAuthSpice)
	common.Set(commands.CapCommonMiniHeader)
	if channelCaps == nil {
		channelCaps = wire.Caps{}
	}

	reply := &wire.LinkReply{Error: wire.LinkErrOK, CommonCaps: common, ChannelCaps: channelCaps}
	der, err := x509.MarshalPKIXPublicKey(&ts.key.PublicKey)
	require.NoError(t, err)
	require.Len(t, der, wire.TicketPubkeyBytes)
	copy(reply.PubKey[:], der)
	_, err = conn.Write(reply.Encode())
	require.NoError(t, err)

	// Auth mechanism selector.
	var mech [4]byte
	_, err = io.ReadFull(conn, mech[:])
	require.NoError(t, err)
	require.Equal(t, uint32(commands.CapCommonAuthSpice), binary.LittleEndian.Uint32(mech[:]))

	// The encrypted ticket.
	ct := make([]byte, ts.key.PublicKey.Size())
	_, err = io.ReadFull(conn, ct)
	require.NoError(t, err)
	pt, err := rsa.DecryptOAEP(sha1.New(), nil, ts.key, ct, nil)
	require.NoError(t, err)
	require.Equal(t, []byte(testPassword+"\x00"), pt)

	var result [4]byte
	binary.LittleEndian.PutUint32(result[:], wire.LinkErrOK)
	_, err = conn.Write(result[:])
	require.NoError(t, err)

	return &serverChannel{t: t, conn: conn, mess: mess}
}

// writeMsg frames and sends one server message.
func (sc *serverChannel) writeMsg(msgType uint16, payload []byte) {
	h := wire.MiniHeader{Type: msgType, Size: uint32(len(payload))}
	pkt := h.Encode(nil)
	pkt = append(pkt, payload...)
	_, err := sc.conn.Write(pkt)
	require.NoError(sc.t, err)
}

// readPacket reads one client packet.
func (sc *serverChannel) readPacket() (*wire.MiniHeader, []byte) {
	h, payload, err := sc.tryReadPacket()
	require.NoError(sc.t, err)
	return h, payload
}

// tryReadPacket reads one client packet without failing the test, for
// use off the test goroutine.
func (sc *serverChannel) tryReadPacket() (*wire.MiniHeader, []byte, error) {
	sc.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer sc.conn.SetReadDeadline(time.Time{})

	h, err := wire.ReadMiniHeader(sc.conn)
	if err != nil {
		return nil, nil, err
	}
	payload, err := wire.ReadPayload(sc.conn, h)
	if err != nil {
		return nil, nil, err
	}
	return h, payload, nil
}

// expectPacket reads one client packet and asserts its type.
func (sc *serverChannel) expectPacket(msgType uint16) []byte {
	h, payload := sc.readPacket()
	require.Equal(sc.t, msgType, h.Type, "unexpected client message")
	return payload
}

// mainInitPayload builds a MAIN_INIT payload.
func mainInitPayload(sessionID uint32, agentConnected bool, agentTokens uint32) []byte {
	agent := uint32(0)
	if agentConnected {
		agent = 1
	}
	var b []byte
	for _, v := range []uint32{sessionID, 1, 3, commands.MouseModeClient, agent, agentTokens, 0, 0} {
		b = binary.LittleEndian.AppendUint32(b, v)
	}
	return b
}

// bootMain accepts the main channel and walks the MAIN_INIT bootstrap.
func (ts *testServer) bootMain(s *Session, agentConnected bool, agentTokens uint32) *serverChannel {
	mainCh := make(chan *serverChannel, 1)
	go func() { mainCh <- ts.acceptChannel(commands.ChannelMain, nil) }()

	require.NoError(ts.t, s.Connect())
	sc := <-mainCh

	sc.writeMsg(commands.MsgMainInit, mainInitPayload(0x1234, agentConnected, agentTokens))
	pumpUntil(ts.t, s, func() bool { return s.sessionID == 0x1234 })

	if agentConnected {
		sc.expectPacket(commands.MsgcMainAgentStart)
		// The capability announcement: header carrier plus one body
		// carrier, emitted while tokens last.
		for i := uint32(0); i < 2 && i < agentTokens; i++ {
			sc.expectPacket(commands.MsgcMainAgentData)
		}
	}
	sc.expectPacket(commands.MsgcMainAttachChannels)
	return sc
}

// expectPump drives Process while waiting for one client packet of the
// given type; handlers only emit replies from inside Process.
func expectPump(t *testing.T, s *Session, sc *serverChannel, msgType uint16) []byte {
	type result struct {
		h       *wire.MiniHeader
		payload []byte
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		h, payload, err := sc.tryReadPacket()
		ch <- result{h, payload, err}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		select {
		case r := <-ch:
			require.NoError(t, r.err)
			require.Equal(t, msgType, r.h.Type, "unexpected client message")
			return r.payload
		default:
		}
		require.True(t, time.Now().Before(deadline), "packet never arrived")
		require.Equal(t, StatusRun, s.Process(10*time.Millisecond))
	}
}

// pumpUntil drives Process until cond holds.
func pumpUntil(t *testing.T, s *Session, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		require.True(t, time.Now().Before(deadline), "condition never held")
		st := s.Process(10 * time.Millisecond)
		require.Equal(t, StatusRun, st)
	}
}

// pumpStatus drives Process until it returns something other than RUN.
func pumpStatus(t *testing.T, s *Session) Status {
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.True(t, time.Now().Before(deadline), "status never changed")
		if st := s.Process(10 * time.Millisecond); st != StatusRun {
			return st
		}
	}
}

// newSession builds a Session against the test server with every
// channel enabled and recording stub callbacks.
func newSession(t *testing.T, ts *testServer, mut func(*Config)) *Session {
	st := ts.settings()
	st.Inputs = config.ChannelOptions{Enable: true, AutoConnect: true}
	st.Clipboard.Enable = true
	st.Playback = config.ChannelOptions{Enable: true}
	st.Record = config.ChannelOptions{Enable: true}
	st.Display = config.ChannelOptions{Enable: true}
	st.Cursor = config.ChannelOptions{Enable: true}

	cfg := &Config{
		Settings: st,
		Clipboard: ClipboardHandlers{
			Notice:  func(DataType) {},
			Data:    func(DataType, []byte) {},
			Release: func() {},
			Request: func(DataType) {},
		},
		Playback: PlaybackHandlers{
			Start: func(int, int, AudioFormat, uint32) {},
			Stop:  func() {},
			Data:  func([]byte) {},
		},
		Record: RecordHandlers{
			Start: func(int, int, AudioFormat) {},
			Stop:  func() {},
		},
		Display: DisplayHandlers{
			SurfaceCreate:  func(uint32, SurfaceFormat, int, int) {},
			SurfaceDestroy: func(uint32) {},
			DrawBitmap:     func(uint32, BitmapFormat, bool, int, int, int, int, int, []byte) {},
			DrawFill:       func(uint32, int, int, int, int, uint32) {},
		},
	}
	if mut != nil {
		mut(cfg)
	}

	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(s.Disconnect)
	return s
}

// channelsListPayload builds a MAIN_CHANNELS_LIST payload.
func channelsListPayload(types ...uint8) []byte {
	var b []byte
	b = binary.LittleEndian.AppendUint32(b, uint32(len(types)))
	for _, v := range types {
		b = append(b, v, 0)
	}
	return b
}

// agentCarrier builds one MAIN_AGENT_DATA payload starting a new agent
// message.
func agentCarrier(msgType uint32, totalSize int, body []byte) []byte {
	m := &commands.AgentMessage{
		Protocol: commands.AgentProtocol,
		Type:     msgType,
		Size:     uint32(totalSize),
	}
	return append(m.Encode(nil), body...)
}
