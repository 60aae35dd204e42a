// session.go - Top-level session.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gopkg.in/op/go-logging.v1"

	"github.com/purelink/spice/client/internal/instrument"
	"github.com/purelink/spice/core/log"
	"github.com/purelink/spice/core/worker"
	"github.com/purelink/spice/wire/commands"
)

// Session is one client session: up to six channels multiplexed through
// a single Process loop.
//
// Process, Connect and Disconnect must not be called concurrently with
// each other.  The outbound APIs (input, clipboard, audio write) are
// safe to call from other goroutines.
type Session struct {
	worker.Worker

	cfg        *Config
	logBackend *log.Backend
	log        *logging.Logger

	channels [channelMax]*channel
	evCh     chan event

	connected atomic.Bool
	haltOnce  sync.Once
	epoch     time.Time

	// Guest identity, owned by the Process goroutine.
	sessionID uint32
	guestName string
	guestUUID uuid.UUID
	haveName  bool
	haveUUID  bool

	nameAndUUIDCap   bool
	channelsListSeen bool
	readyFired       bool

	infoMu sync.Mutex
	info   *ServerInfo

	kbModifiers uint16

	mouse struct {
		sync.Mutex
		buttonState uint16
		sentCount   atomic.Int32
		motionBuf   []byte
	}

	agent       *agent
	agentTokens atomic.Uint32
}

// New creates a Session from the configuration.  The configuration is
// validated; no socket is opened.
func New(cfg *Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Session{cfg: cfg}
	if cfg.LogBackend != nil {
		s.logBackend = cfg.LogBackend
	} else {
		l := cfg.Settings.Logging
		var err error
		if s.logBackend, err = log.New(l.File, l.Level, l.Disable); err != nil {
			return nil, err
		}
	}
	s.log = s.logBackend.GetLogger("client/session")

	s.channels[ChannelMain] = newChannel(s, ChannelMain, &mainEndpoint{})
	s.channels[ChannelInputs] = newChannel(s, ChannelInputs, &inputsEndpoint{})
	s.channels[ChannelPlayback] = newChannel(s, ChannelPlayback, &playbackEndpoint{})
	s.channels[ChannelRecord] = newChannel(s, ChannelRecord, &recordEndpoint{})
	s.channels[ChannelDisplay] = newChannel(s, ChannelDisplay, &displayEndpoint{})
	s.channels[ChannelCursor] = newChannel(s, ChannelCursor, &cursorEndpoint{cache: make(map[uint64]*cursorShape)})

	s.evCh = make(chan event)

	if cfg.MetricsAddress != "" {
		instrument.Init(cfg.MetricsAddress)
	}
	return s, nil
}

// Connect brings up the main channel.  The remaining channels come up
// from the server's channel list, or on explicit ConnectChannel calls.
func (s *Session) Connect() error {
	if s.connected.Load() {
		return ErrAlreadyConnected
	}
	s.epoch = time.Now()

	st := s.cfg.Settings
	if st.UnixSocket() {
		s.log.Noticef("Connecting to unix socket %s", st.Host)
	} else {
		s.log.Noticef("Connecting to socket %s:%d", st.Host, st.Port)
	}

	if err := s.channels[ChannelMain].connect(); err != nil {
		return err
	}
	s.channels[ChannelMain].available = true
	s.connected.Store(true)
	s.log.Noticef("Connected")
	return nil
}

// timestampMS is the monotonic millisecond timestamp used in
// DISCONNECTING packets.
func (s *Session) timestampMS() uint64 {
	return uint64(time.Since(s.epoch).Milliseconds())
}

func (s *Session) anyConnected() bool {
	for _, c := range s.channels {
		if c != nil && c.connected.Load() {
			return true
		}
	}
	return false
}

// Process services the channels: it waits up to timeout for inbound
// traffic, dispatches whatever arrives, then drains anything else that
// is immediately ready.  All callbacks run on the calling goroutine.
func (s *Session) Process(timeout time.Duration) Status {
	// Deferred channel disconnects happen here, never inside a
	// handler.
	for _, c := range s.channels {
		if c != nil && c.pendingDisconnect.Swap(false) {
			c.disconnect()
		}
	}

	if !s.anyConnected() {
		return s.finishShutdown()
	}

	var ev event
	if timeout <= 0 {
		select {
		case ev = <-s.evCh:
		default:
			return StatusRun
		}
	} else {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case ev = <-s.evCh:
		case <-timer.C:
			return StatusRun
		}
	}

	for {
		if st := s.dispatch(ev); st != StatusRun {
			return st
		}
		if !s.anyConnected() {
			return s.finishShutdown()
		}
		select {
		case ev = <-s.evCh:
		default:
			return StatusRun
		}
	}
}

// dispatch handles one event from a channel reader.
func (s *Session) dispatch(ev event) Status {
	c := ev.ch

	if ev.err != nil {
		if errors.Is(ev.err, io.EOF) || errors.Is(ev.err, io.ErrUnexpectedEOF) ||
			errors.Is(ev.err, net.ErrClosed) {
			// A clean close takes down the channel, not the session.
			c.log.Debugf("Channel closed by peer")
			c.teardown()
			return StatusRun
		}
		c.log.Errorf("Channel read failed: %v", ev.err)
		c.teardown()
		return StatusErrRead
	}

	if !c.connected.Load() {
		// The channel went away between read and dispatch.
		return StatusRun
	}

	if !ev.discarded {
		var err error
		if ev.hdr.Type < commands.MsgBaseLast {
			err = c.handleCommon(ev.hdr, ev.payload)
		} else {
			err = c.ep.handle(c, ev.hdr, ev.payload)
		}
		if err != nil {
			c.log.Errorf("Handler for message %d failed: %v", ev.hdr.Type, err)
			s.teardownAll()
			return StatusErrRead
		}
	}

	if c.connected.Load() {
		if err := c.processAck(); err != nil {
			c.log.Errorf("Failed to send message ack: %v", err)
			return StatusErrAck
		}
	}
	return StatusRun
}

// finishShutdown releases the per-session state once the last channel
// has gone away.
func (s *Session) finishShutdown() Status {
	if s.connected.Swap(false) {
		s.log.Noticef("Shutdown")
	}
	s.sessionID = 0
	s.agentTeardown()
	return StatusShutdown
}

func (s *Session) teardownAll() {
	for i := len(s.channels) - 1; i >= 0; i-- {
		if c := s.channels[i]; c != nil {
			c.teardown()
		}
	}
}

// Disconnect tears the session down: every channel is disconnected in
// reverse order, the readers are halted, and the agent state is freed.
func (s *Session) Disconnect() {
	s.connected.Store(false)

	for i := len(s.channels) - 1; i >= 0; i-- {
		c := s.channels[i]
		if c == nil {
			continue
		}
		c.disconnect()
		c.teardown()
	}
	s.haltOnce.Do(s.Halt)

	s.agentTeardown()
	s.mouse.Lock()
	s.mouse.motionBuf = nil
	s.mouse.Unlock()
	s.log.Noticef("Disconnected")
}

// HasChannel reports whether the channel is available: advertised by
// the server, or the main channel itself once connected.
func (s *Session) HasChannel(kind ChannelKind) bool {
	if kind < 0 || kind >= channelMax {
		return false
	}
	return s.channels[kind].available
}

// ChannelConnected reports whether the channel is currently up.
func (s *Session) ChannelConnected(kind ChannelKind) bool {
	if kind < 0 || kind >= channelMax {
		return false
	}
	return s.channels[kind].connected.Load()
}

// ConnectChannel brings up an advertised channel on demand.
func (s *Session) ConnectChannel(kind ChannelKind) error {
	if kind <= ChannelMain || kind >= channelMax {
		return ErrChannelUnavailable
	}
	c := s.channels[kind]
	if !c.available || !c.enabled() {
		return ErrChannelUnavailable
	}
	if c.connected.Load() {
		return ErrAlreadyConnected
	}
	return c.connect()
}

// DisconnectChannel marks a channel for teardown on the next Process
// tick.  Deferring avoids re-entering a handler that is executing.
func (s *Session) DisconnectChannel(kind ChannelKind) error {
	if kind <= ChannelMain || kind >= channelMax {
		return ErrChannelUnavailable
	}
	c := s.channels[kind]
	if !c.connected.Load() {
		return ErrNotConnected
	}
	c.pendingDisconnect.Store(true)
	return nil
}

// ServerInfo returns the guest name and UUID once both are known.
func (s *Session) ServerInfo() (*ServerInfo, error) {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	if s.info == nil {
		return nil, ErrNotConnected
	}
	out := *s.info
	return &out, nil
}

func (s *Session) setServerInfo(info *ServerInfo) {
	s.infoMu.Lock()
	s.info = info
	s.infoMu.Unlock()
}

// maybeFireReady fires the ready callback exactly once, when the
// channel list is known and, if the server advertises the name and UUID
// capability, both have arrived.
func (s *Session) maybeFireReady() {
	if s.readyFired || !s.channelsListSeen {
		return
	}
	if s.nameAndUUIDCap && (!s.haveName || !s.haveUUID) {
		return
	}
	s.readyFired = true
	if s.cfg.Ready != nil {
		s.cfg.Ready()
	}
}
