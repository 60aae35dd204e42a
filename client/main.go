// main.go - Main channel.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"github.com/purelink/spice/wire"
	"github.com/purelink/spice/wire/commands"
)

// mainEndpoint drives the bootstrap channel: session establishment, the
// channel list, and the guest agent plumbing.
type mainEndpoint struct{}

func (e *mainEndpoint) channelCaps(c *channel) wire.Caps {
	caps := wire.NewCaps(commands.CapMainSeamlessMigrate)
	caps.Set(commands.CapMainAgentConnectedTokens)
	caps.Set(commands.CapMainNameAndUUID)
	return caps
}

func (e *mainEndpoint) discardable(msgType uint16) bool {
	switch msgType {
	case commands.MsgMainMigrateBegin, commands.MsgMainMigrateCancel,
		commands.MsgMainMigrateSwitchHost, commands.MsgMainMigrateEnd,
		commands.MsgMainMouseMode, commands.MsgMainMultiMediaTime:
		return true
	default:
		return false
	}
}

func (e *mainEndpoint) onConnect(c *channel) error {
	c.s.nameAndUUIDCap = c.serverChannelCaps.Has(commands.CapMainNameAndUUID)
	return nil
}

func (e *mainEndpoint) handle(c *channel, h *wire.MiniHeader, payload []byte) error {
	s := c.s

	if !c.initDone {
		if h.Type != commands.MsgMainInit {
			return newProtocolError("expected MAIN_INIT, got message %d", h.Type)
		}
		c.initDone = true

		m, err := commands.DecodeMainInit(payload)
		if err != nil {
			return err
		}
		s.sessionID = m.SessionID
		s.agentSetTokens(m.AgentTokens)

		if m.AgentConnected != 0 {
			if err = s.agentStart(); err != nil {
				return err
			}
		}

		if m.CurrentMouseMode != commands.MouseModeClient {
			if err = c.send(commands.MouseModeRequestPacket(commands.MouseModeClient)); err != nil {
				return err
			}
		}

		return c.send(commands.AttachChannelsPacket())
	}

	switch h.Type {
	case commands.MsgMainChannelsList:
		list, err := commands.DecodeChannelsList(payload)
		if err != nil {
			return err
		}
		for _, id := range list {
			ch := s.channelBySpiceType(id.Type)
			if ch == nil {
				continue
			}
			ch.available = true
			if !ch.enabled() || !ch.autoConnect() || ch.connected.Load() {
				continue
			}
			if err = ch.connect(); err != nil {
				return err
			}
		}
		s.channelsListSeen = true
		s.maybeFireReady()
		return nil

	case commands.MsgMainName:
		name, err := commands.DecodeMainName(payload)
		if err != nil {
			return err
		}
		s.guestName = name
		s.haveName = true
		s.updateServerInfo()
		s.maybeFireReady()
		return nil

	case commands.MsgMainUUID:
		id, err := commands.DecodeMainUUID(payload)
		if err != nil {
			return err
		}
		s.guestUUID = id
		s.haveUUID = true
		s.updateServerInfo()
		s.maybeFireReady()
		return nil

	case commands.MsgMainAgentConnected:
		return s.agentStart()

	case commands.MsgMainAgentConnectedTokens:
		tokens, err := commands.DecodeTokens(payload)
		if err != nil {
			return err
		}
		s.agentSetTokens(tokens)
		return s.agentStart()

	case commands.MsgMainAgentDisconnected:
		reason, err := commands.DecodeAgentDisconnected(payload)
		if err != nil {
			return err
		}
		c.log.Warningf("Agent disconnected: %d", reason)
		s.agentTeardown()
		return nil

	case commands.MsgMainAgentData:
		if s.agent == nil {
			// No agent; the payload is dropped.
			return nil
		}
		return s.agent.process(payload)

	case commands.MsgMainAgentToken:
		tokens, err := commands.DecodeTokens(payload)
		if err != nil {
			return err
		}
		s.agentReturnTokens(tokens)
		if s.agent != nil {
			return s.agent.drainQueue()
		}
		return nil
	}

	// Unknown main channel message; dropped.
	return nil
}

func (s *Session) channelBySpiceType(t uint8) *channel {
	for _, c := range s.channels {
		if c != nil && c.kind.spiceType() == t {
			return c
		}
	}
	return nil
}

func (s *Session) updateServerInfo() {
	if !s.haveName || !s.haveUUID {
		return
	}
	s.setServerInfo(&ServerInfo{Name: s.guestName, UUID: s.guestUUID})
}

// MouseMode requests server or client pointer mode.  The request rides
// the main channel.
func (s *Session) MouseMode(server bool) error {
	mode := uint16(commands.MouseModeClient)
	if server {
		mode = commands.MouseModeServer
	}
	return s.channels[ChannelMain].sendReady(commands.MouseModeRequestPacket(mode))
}
