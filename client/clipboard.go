// clipboard.go - Public clipboard operations.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"encoding/binary"

	"github.com/purelink/spice/wire/commands"
)

// clipboardAgent returns the live agent, or ErrNotConnected when the
// guest agent is not up.
func (s *Session) clipboardAgent() (*agent, error) {
	a := s.agent
	if a == nil {
		return nil, ErrNotConnected
	}
	return a, nil
}

// selectionHeader is the 4 byte selection prefix: the selection code
// followed by three reserved bytes.
func selectionHeader() []byte {
	return []byte{commands.AgentSelectionClipboard, 0, 0, 0}
}

// ClipboardRequest asks the agent for its grabbed clipboard data.  The
// type must match the type the agent advertised.
func (s *Session) ClipboardRequest(t DataType) error {
	a, err := s.clipboardAgent()
	if err != nil {
		return err
	}

	a.mu.Lock()
	grabbed, grabbedType := a.agentGrabbed, a.cbType
	a.mu.Unlock()
	if !grabbed {
		return newProtocolError("clipboard request without an agent grab")
	}
	if t != grabbedType {
		return newProtocolError("clipboard request type does not match the grab")
	}

	var body [4]byte
	binary.LittleEndian.PutUint32(body[:], dataTypeToAgentType(t))
	if err := a.startMsg(commands.AgentClipboardRequest, len(body)); err != nil {
		return err
	}
	return a.writeMsg(body[:])
}

// ClipboardGrab claims the clipboard for the local side, advertising
// the data types the application can provide.
func (s *Session) ClipboardGrab(types []DataType) error {
	a, err := s.clipboardAgent()
	if err != nil {
		return err
	}
	if len(types) == 0 {
		return newProtocolError("clipboard grab without types")
	}

	a.mu.Lock()
	selection := a.cbSelection
	a.mu.Unlock()

	var body []byte
	if selection {
		body = selectionHeader()
	}
	for _, t := range types {
		body = binary.LittleEndian.AppendUint32(body, dataTypeToAgentType(t))
	}

	if err := a.startMsg(commands.AgentClipboardGrab, len(body)); err != nil {
		return err
	}
	if err := a.writeMsg(body); err != nil {
		return err
	}

	a.mu.Lock()
	a.clientGrabbed = true
	a.mu.Unlock()
	return nil
}

// ClipboardRelease gives the clipboard back.  A release without a prior
// grab is a no-op.
func (s *Session) ClipboardRelease() error {
	a, err := s.clipboardAgent()
	if err != nil {
		return err
	}

	a.mu.Lock()
	grabbed := a.clientGrabbed
	selection := a.cbSelection
	a.mu.Unlock()
	if !grabbed {
		return nil
	}

	var body []byte
	if selection {
		body = selectionHeader()
	}
	if err := a.startMsg(commands.AgentClipboardRelease, len(body)); err != nil {
		return err
	}
	if len(body) > 0 {
		if err := a.writeMsg(body); err != nil {
			return err
		}
	}

	a.mu.Lock()
	a.clientGrabbed = false
	a.mu.Unlock()
	return nil
}

// ClipboardDataStart opens an outbound clipboard transfer of size data
// bytes; the data follows through ClipboardData calls.
func (s *Session) ClipboardDataStart(t DataType, size int) error {
	a, err := s.clipboardAgent()
	if err != nil {
		return err
	}

	a.mu.Lock()
	selection := a.cbSelection
	a.mu.Unlock()

	var hdr []byte
	if selection {
		hdr = selectionHeader()
	}
	hdr = binary.LittleEndian.AppendUint32(hdr, dataTypeToAgentType(t))

	if err := a.startMsg(commands.AgentClipboard, len(hdr)+size); err != nil {
		return err
	}
	return a.writeMsg(hdr)
}

// ClipboardData appends data to the transfer opened by
// ClipboardDataStart.  Writing past the declared total is an error.
func (s *Session) ClipboardData(data []byte) error {
	a, err := s.clipboardAgent()
	if err != nil {
		return err
	}
	return a.writeMsg(data)
}
