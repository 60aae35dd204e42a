// agent.go - Guest agent sub-protocol.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"encoding/binary"
	"sync"

	"gopkg.in/op/go-logging.v1"

	"github.com/purelink/spice/client/internal/instrument"
	"github.com/purelink/spice/wire/commands"
)

// agentTokensMax is what AGENT_START grants the guest for client bound
// data.  Flow control matters little on a local link, so do what
// spice-gtk does and hand out the largest possible number.
const agentTokensMax = ^uint32(0)

// agent is the guest agent state: the token gated outbound queue and
// the clipboard sub-state.  It exists only between the server's
// agent-connected signal and the matching disconnect.
type agent struct {
	s   *Session
	log *logging.Logger

	mu      sync.Mutex
	queue   [][]byte
	msgSize int

	cbSupported bool
	cbSelection bool

	agentGrabbed  bool
	clientGrabbed bool
	cbType        DataType

	cbBuf    []byte
	cbSize   int
	cbRemain int
}

func (s *Session) agentSetTokens(tokens uint32) {
	s.agentTokens.Store(tokens)
}

func (s *Session) agentReturnTokens(tokens uint32) {
	s.agentTokens.Add(tokens)
}

// agentStart runs the agent connect procedure: reset the queue, grant
// the guest tokens, and announce our capabilities.
func (s *Session) agentStart() error {
	if s.agent == nil {
		s.agent = &agent{
			s:   s,
			log: s.logBackend.GetLogger("client/agent"),
		}
	} else {
		s.agent.mu.Lock()
		s.agent.queue = nil
		s.agent.msgSize = 0
		s.agent.mu.Unlock()
	}

	main := s.channels[ChannelMain]
	if err := main.send(commands.AgentStartPacket(agentTokensMax)); err != nil {
		return err
	}

	if err := s.agent.sendCaps(true); err != nil {
		s.agent = nil
		return err
	}
	s.log.Noticef("Connected to the guest agent")
	return nil
}

// agentTeardown drops the agent state, including any partially
// reassembled clipboard transfer.
func (s *Session) agentTeardown() {
	s.agent = nil
}

func (a *agent) sendCaps(request bool) error {
	var caps commands.AgentCaps
	if a.s.cfg.Settings.Clipboard.Enable {
		caps.Set(commands.AgentCapClipboardByDemand)
		caps.Set(commands.AgentCapClipboardSelection)
	}
	m := &commands.AnnounceCapabilities{Request: request, Caps: caps}
	body := m.EncodeBody()

	if err := a.startMsg(commands.AgentAnnounceCapabilities, len(body)); err != nil {
		return err
	}
	return a.writeMsg(body)
}

// process consumes one MAIN_AGENT_DATA carrier payload.
func (a *agent) process(payload []byte) error {
	if a.cbRemain > 0 {
		n := copy(a.cbBuf[a.cbSize:], payload)
		if n < len(payload) {
			return newProtocolError("clipboard transfer overruns its announced size")
		}
		a.cbSize += n
		a.cbRemain -= n
		if a.cbRemain == 0 {
			a.deliverClipboard()
		}
		return nil
	}

	m, body, err := commands.DecodeAgentMessage(payload)
	if err != nil {
		return err
	}
	if m.Protocol != commands.AgentProtocol {
		return newProtocolError("agent protocol %d expected, got %d",
			commands.AgentProtocol, m.Protocol)
	}

	switch m.Type {
	case commands.AgentAnnounceCapabilities:
		caps, err := commands.DecodeAnnounceCapabilities(body)
		if err != nil {
			return err
		}
		a.mu.Lock()
		a.cbSupported = caps.Caps.Has(commands.AgentCapClipboardByDemand) ||
			caps.Caps.Has(commands.AgentCapClipboardSelection)
		a.cbSelection = caps.Caps.Has(commands.AgentCapClipboardSelection)
		a.mu.Unlock()
		if caps.Request {
			return a.sendCaps(false)
		}
		return nil

	case commands.AgentClipboard, commands.AgentClipboardGrab,
		commands.AgentClipboardRequest, commands.AgentClipboardRelease:
		return a.processClipboard(m, body)
	}

	// Unknown agent message; the carrier has already been consumed.
	return nil
}

func (a *agent) processClipboard(m *commands.AgentMessage, body []byte) error {
	consumed := 0

	// All clipboard bodies start with the selection header when the
	// selection capability is negotiated.
	a.mu.Lock()
	selection := a.cbSelection
	a.mu.Unlock()
	if selection {
		if len(body) < commands.AgentSelectionHeaderLen {
			return newProtocolError("clipboard body shorter than the selection header")
		}
		body = body[commands.AgentSelectionHeaderLen:]
		consumed += commands.AgentSelectionHeaderLen
	}

	cb := &a.s.cfg.Clipboard

	switch m.Type {
	case commands.AgentClipboardRelease:
		a.mu.Lock()
		a.agentGrabbed = false
		a.mu.Unlock()
		if cb.Release != nil {
			cb.Release()
		}
		return nil

	case commands.AgentClipboardRequest:
		if len(body) < 4 {
			return newProtocolError("clipboard request truncated")
		}
		t := agentTypeToDataType(le32(body))
		if cb.Request != nil {
			cb.Request(t)
		}
		return nil

	case commands.AgentClipboardGrab:
		if len(body) < 4 {
			// An empty grab carries no types; nothing to do.
			return nil
		}
		// Only the first advertised type is retained.
		t := agentTypeToDataType(le32(body))
		a.mu.Lock()
		a.cbType = t
		a.agentGrabbed = true
		a.clientGrabbed = false
		a.mu.Unlock()
		if selection {
			// Windows servers have no selection support; the grab
			// notification is skipped on this path.
			return nil
		}
		if cb.Notice != nil {
			cb.Notice(t)
		}
		return nil

	case commands.AgentClipboard:
		if len(body) < 4 {
			return newProtocolError("clipboard data truncated")
		}
		if a.cbBuf != nil {
			return newProtocolError("agent sent a new clipboard before finishing the last")
		}
		a.cbType = agentTypeToDataType(le32(body))
		body = body[4:]
		consumed += 4

		total := int(m.Size) - consumed
		if total < 0 || len(body) > total {
			return newProtocolError("clipboard size accounting broken")
		}
		a.cbBuf = make([]byte, total)
		a.cbSize = copy(a.cbBuf, body)
		a.cbRemain = total - a.cbSize
		if a.cbRemain == 0 {
			a.deliverClipboard()
		}
		return nil
	}
	return nil
}

// deliverClipboard hands the fully reassembled transfer to the
// application, exactly once.
func (a *agent) deliverClipboard() {
	cb := &a.s.cfg.Clipboard
	if cb.Data != nil {
		cb.Data(a.cbType, a.cbBuf[:a.cbSize])
	}
	instrument.ClipboardTransfers.Inc()
	a.cbBuf = nil
	a.cbSize = 0
	a.cbRemain = 0
}

// takeToken consumes one server token, or reports that none are
// available.  The counter only moves down through here.
func (a *agent) takeToken() bool {
	main := a.s.channels[ChannelMain]
	for {
		if !main.connected.Load() {
			return false
		}
		tokens := a.s.agentTokens.Load()
		if tokens == 0 {
			return false
		}
		if a.s.agentTokens.CompareAndSwap(tokens, tokens-1) {
			instrument.AgentTokensConsumed.Inc()
			return true
		}
	}
}

// startMsg queues the header carrier of a new agent message and kicks
// the queue.
func (a *agent) startMsg(msgType uint32, size int) error {
	hdr := &commands.AgentMessage{
		Protocol: commands.AgentProtocol,
		Type:     msgType,
		Size:     uint32(size),
	}

	a.mu.Lock()
	a.msgSize = size
	a.queue = append(a.queue, commands.AgentDataPacket(hdr.Encode(nil)))
	a.mu.Unlock()

	return a.drainQueue()
}

// writeMsg queues body bytes for the message opened by startMsg,
// fragmenting into carriers, and kicks the queue.
func (a *agent) writeMsg(data []byte) error {
	a.mu.Lock()
	if len(data) > a.msgSize {
		a.mu.Unlock()
		return newProtocolError("agent write overruns the declared message size")
	}
	for len(data) > 0 {
		n := len(data)
		if n > commands.AgentMaxDataSize {
			n = commands.AgentMaxDataSize
		}
		chunk := make([]byte, n)
		copy(chunk, data[:n])
		a.queue = append(a.queue, commands.AgentDataPacket(chunk))
		a.msgSize -= n
		data = data[n:]
	}
	a.mu.Unlock()

	return a.drainQueue()
}

// drainQueue emits queued carriers while tokens last.  The whole drain
// holds the main channel send lock so a burst stays contiguous.
func (a *agent) drainQueue() error {
	main := a.s.channels[ChannelMain]

	main.sendMu.Lock()
	defer main.sendMu.Unlock()
	a.mu.Lock()
	defer a.mu.Unlock()

	for len(a.queue) > 0 && a.takeToken() {
		pkt := a.queue[0]
		a.queue = a.queue[1:]
		if err := main.sendLocked(pkt); err != nil {
			a.log.Errorf("Failed to send a queued agent packet: %v", err)
			return err
		}
	}
	return nil
}

func le32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}
