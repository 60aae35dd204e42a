// channel.go - Per-channel runtime.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
	"gopkg.in/op/go-logging.v1"

	"github.com/purelink/spice/client/internal/instrument"
	"github.com/purelink/spice/core/crypto/ticket"
	"github.com/purelink/spice/wire"
	"github.com/purelink/spice/wire/commands"
)

// endpoint is the kind specific behaviour of a channel: the capability
// words for the link message, the optional post-handshake setup, and
// the message handler.
type endpoint interface {
	// channelCaps returns the channel capability bitset for the link
	// message.
	channelCaps(c *channel) wire.Caps

	// discardable reports whether a message type can be thrown away
	// without materialising the payload, independent of channel state.
	discardable(msgType uint16) bool

	// onConnect runs after the link handshake, before the first
	// message.
	onConnect(c *channel) error

	// handle processes one message on the Process goroutine.
	handle(c *channel, h *wire.MiniHeader, payload []byte) error
}

// event is one inbound message (or a terminal read error) handed from a
// channel reader to the Process loop.
type event struct {
	ch        *channel
	hdr       *wire.MiniHeader
	payload   []byte
	discarded bool
	err       error
}

// channel is one logical SPICE channel over its own socket.
type channel struct {
	kind ChannelKind
	s    *Session
	log  *logging.Logger
	ep   endpoint

	conn net.Conn
	tcp  *net.TCPConn

	sendMu sync.Mutex

	connected         atomic.Bool
	ready             atomic.Bool
	pendingDisconnect atomic.Bool

	// Process goroutine state.
	available bool
	initDone  bool
	ackWindow uint32
	ackCount  uint32

	serverCommonCaps  wire.Caps
	serverChannelCaps wire.Caps
}

func newChannel(s *Session, kind ChannelKind, ep endpoint) *channel {
	return &channel{
		kind: kind,
		s:    s,
		log:  s.logBackend.GetLogger("client/" + kind.String()),
		ep:   ep,
	}
}

func (c *channel) enabled() bool {
	st := c.s.cfg.Settings
	switch c.kind {
	case ChannelMain:
		return true
	case ChannelInputs:
		return st.Inputs.Enable
	case ChannelPlayback:
		return st.Playback.Enable
	case ChannelRecord:
		return st.Record.Enable
	case ChannelDisplay:
		return st.Display.Enable
	case ChannelCursor:
		return st.Cursor.Enable
	default:
		return false
	}
}

func (c *channel) autoConnect() bool {
	st := c.s.cfg.Settings
	switch c.kind {
	case ChannelInputs:
		return st.Inputs.AutoConnect
	case ChannelPlayback:
		return st.Playback.AutoConnect
	case ChannelRecord:
		return st.Record.AutoConnect
	case ChannelDisplay:
		return st.Display.AutoConnect
	case ChannelCursor:
		return st.Cursor.AutoConnect
	default:
		return false
	}
}

// commonCaps returns the common capability bitset every channel
// announces.
func commonCaps() wire.Caps {
	caps := wire.NewCaps(commands.CapCommonMiniHeader)
	caps.Set(commands.CapCommonAuthSelection)
	caps.Set(commands.CapCommonAuthSpice)
	caps.Set(commands.CapCommonMiniHeader)
	return caps
}

// connect dials the server and runs the link handshake.  On success the
// channel is ready and its reader goroutine is running.
func (c *channel) connect() error {
	c.initDone = false
	c.ackWindow = 0
	c.ackCount = 0

	if err := c.dial(); err != nil {
		return &HandshakeError{Channel: c.kind.String(), Err: err}
	}
	c.connected.Store(true)

	if err := c.handshake(); err != nil {
		c.teardown()
		return &HandshakeError{Channel: c.kind.String(), Err: err}
	}

	c.ready.Store(true)
	c.s.Go(c.readLoop)

	if err := c.ep.onConnect(c); err != nil {
		c.disconnect()
		return err
	}
	c.log.Debugf("Channel connected")
	return nil
}

func (c *channel) dial() error {
	st := c.s.cfg.Settings
	if st.UnixSocket() {
		conn, err := net.Dial("unix", st.Host)
		if err != nil {
			return err
		}
		c.conn = conn
		return nil
	}

	conn, err := net.Dial("tcp4", fmt.Sprintf("%s:%d", st.Host, st.Port))
	if err != nil {
		return err
	}
	c.conn = conn
	c.tcp = conn.(*net.TCPConn)
	c.tcp.SetNoDelay(true)
	c.setQuickAck()
	return nil
}

// setQuickAck enables TCP_QUICKACK; this is a latency tweak, failures
// are ignored.
func (c *channel) setQuickAck() {
	raw, err := c.tcp.SyscallConn()
	if err != nil {
		return
	}
	raw.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_QUICKACK, 1)
	})
}

func (c *channel) handshake() error {
	connectionID := uint32(0)
	if c.kind != ChannelMain {
		connectionID = c.s.sessionID
	}
	mess := &wire.LinkMess{
		ConnectionID: connectionID,
		ChannelType:  c.kind.spiceType(),
		ChannelID:    0,
		CommonCaps:   commonCaps(),
		ChannelCaps:  c.ep.channelCaps(c),
	}
	if _, err := c.conn.Write(mess.Encode()); err != nil {
		return fmt.Errorf("failed to write link message: %w", err)
	}

	hdr, err := wire.ReadLinkHeader(c.conn)
	if err != nil {
		return fmt.Errorf("failed to read link header: %w", err)
	}
	if hdr.Size < wire.LinkReplyLen {
		return errors.New("link reply undersized")
	}
	raw := make([]byte, hdr.Size)
	if _, err = io.ReadFull(c.conn, raw); err != nil {
		return fmt.Errorf("failed to read link reply: %w", err)
	}
	reply, err := wire.DecodeLinkReply(raw)
	if err != nil {
		return err
	}
	if reply.Error != wire.LinkErrOK {
		return fmt.Errorf("server reported link error: %s", wire.LinkErrString(reply.Error))
	}
	c.serverCommonCaps = reply.CommonCaps
	c.serverChannelCaps = reply.ChannelCaps

	if _, err = c.conn.Write(wire.EncodeAuthMechanism(commands.CapCommonAuthSpice)); err != nil {
		return fmt.Errorf("failed to write auth mechanism: %w", err)
	}

	pub, err := ticket.ParsePublicKey(reply.PubKey[:])
	if err != nil {
		return err
	}
	ct, err := ticket.EncryptPassword(pub, c.s.cfg.Settings.Password)
	if err != nil {
		return err
	}
	if _, err = c.conn.Write(ct); err != nil {
		return fmt.Errorf("failed to write ticket: %w", err)
	}

	result, err := wire.ReadLinkResult(c.conn)
	if err != nil {
		return fmt.Errorf("failed to read link result: %w", err)
	}
	if result != wire.LinkErrOK {
		return fmt.Errorf("authentication failed: %s", wire.LinkErrString(result))
	}
	return nil
}

// commonDiscardable covers the common message types that are dropped
// unread regardless of channel state.
func commonDiscardable(msgType uint16) bool {
	switch msgType {
	case commands.MsgMigrate, commands.MsgMigrateData, commands.MsgWaitForChannels, commands.MsgList:
		return true
	default:
		return false
	}
}

// readLoop reads one message at a time and hands each to the Process
// loop.  It exits on a read error (EOF included) or session halt.
func (c *channel) readLoop() {
	name := c.kind.String()
	for {
		hdr, err := wire.ReadMiniHeader(c.conn)
		if err != nil {
			c.post(event{ch: c, err: err})
			return
		}

		var payload []byte
		discarded := false
		if hdr.Type < commands.MsgBaseLast && commonDiscardable(hdr.Type) ||
			hdr.Type >= commands.MsgBaseLast && c.ep.discardable(hdr.Type) {
			err = wire.DiscardPayload(c.conn, hdr)
			discarded = true
		} else {
			payload, err = wire.ReadPayload(c.conn, hdr)
		}
		if err != nil {
			c.post(event{ch: c, err: err})
			return
		}

		instrument.MessagesReceived.WithLabelValues(name).Inc()
		instrument.BytesReceived.WithLabelValues(name).Add(float64(hdr.Size))
		if discarded {
			instrument.MessagesDiscarded.WithLabelValues(name).Inc()
		}
		if !c.post(event{ch: c, hdr: hdr, payload: payload, discarded: discarded}) {
			return
		}
	}
}

func (c *channel) post(ev event) bool {
	select {
	case c.s.evCh <- ev:
		return true
	case <-c.s.HaltCh():
		return false
	}
}

// handleCommon services the messages shared by every channel.
func (c *channel) handleCommon(h *wire.MiniHeader, payload []byte) error {
	switch h.Type {
	case commands.MsgSetAck:
		m, err := commands.DecodeSetAck(payload)
		if err != nil {
			return err
		}
		c.ackWindow = m.Window
		return c.send(commands.AckSyncPacket(m.Generation))

	case commands.MsgPing:
		m, err := commands.DecodePing(payload)
		if err != nil {
			return err
		}
		return c.send(commands.PongPacket(m))

	case commands.MsgDisconnecting:
		c.log.Noticef("Server sent disconnect message")
		c.closeWrite()
		return nil

	case commands.MsgNotify:
		m, err := commands.DecodeNotify(payload)
		if err != nil {
			return err
		}
		c.log.Infof("[notify] %s", m.Message)
		return nil
	}

	// MIGRATE, MIGRATE_DATA, WAIT_FOR_CHANNELS and anything else in the
	// common range is dropped.
	return nil
}

// processAck runs the ack-window accounting for one received message.
func (c *channel) processAck() error {
	if c.ackWindow == 0 {
		return nil
	}
	count := c.ackCount
	c.ackCount++
	if count != c.ackWindow {
		return nil
	}
	c.ackCount = 0
	return c.send(commands.AckPacket())
}

// send emits one complete packet under the channel send lock.
func (c *channel) send(pkt []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.sendLocked(pkt)
}

// sendLocked emits one complete packet; the caller holds sendMu.
func (c *channel) sendLocked(pkt []byte) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}
	if _, err := c.conn.Write(pkt); err != nil {
		return err
	}
	instrument.PacketsSent.WithLabelValues(c.kind.String()).Inc()
	return nil
}

// sendReady emits one packet, requiring the channel to be fully up.
func (c *channel) sendReady(pkt []byte) error {
	if !c.ready.Load() {
		return ErrNotConnected
	}
	return c.send(pkt)
}

// disconnect gracefully shuts the channel down: the DISCONNECTING
// packet is flushed via the Nagle toggle trick, then the write side is
// closed.  The read side stays open so the reader drains the server's
// goodbye and observes EOF.
func (c *channel) disconnect() {
	if !c.connected.Load() {
		return
	}

	if c.ready.Swap(false) {
		if c.tcp != nil {
			c.tcp.SetNoDelay(false)
		}
		pkt := commands.DisconnectingPacket(c.s.timestampMS(), wire.LinkErrOK)
		if err := c.send(pkt); err != nil {
			c.log.Debugf("Failed to send disconnecting packet: %v", err)
		}
		if c.tcp != nil {
			// Re-enabling nodelay forces a flush.
			c.tcp.SetNoDelay(true)
		}
	}

	c.closeWrite()
}

func (c *channel) closeWrite() {
	type writeCloser interface{ CloseWrite() error }
	if wc, ok := c.conn.(writeCloser); ok {
		wc.CloseWrite()
	}
}

// teardown force closes the socket.  The conn reference stays in place
// so a reader blocked on it observes the close instead of a nil.
func (c *channel) teardown() {
	c.ready.Store(false)
	if c.connected.Swap(false) {
		if c.conn != nil {
			c.conn.Close()
		}
	}
}
