// agent.go - VD agent sub-protocol messages.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package commands

import "encoding/binary"

// The guest agent speaks its own framed protocol tunneled inside
// MAIN_AGENT_DATA carriers.
const (
	// AgentProtocol is the only protocol revision.
	AgentProtocol = 1

	// AgentHeaderLen is the wire size of the agent message header.
	AgentHeaderLen = 20

	// AgentMaxDataSize caps the payload of a single carrier packet.
	AgentMaxDataSize = 2048
)

// Agent message types.
const (
	AgentMouseState           = 1
	AgentMonitorsConfig       = 2
	AgentReply                = 3
	AgentClipboard            = 4
	AgentDisplayConfig        = 5
	AgentAnnounceCapabilities = 6
	AgentClipboardGrab        = 7
	AgentClipboardRequest     = 8
	AgentClipboardRelease     = 9
)

// Agent capability bits.
const (
	AgentCapMouseState           = 0
	AgentCapMonitorsConfig       = 1
	AgentCapReply                = 2
	AgentCapClipboard            = 3
	AgentCapDisplayConfig        = 4
	AgentCapClipboardByDemand    = 5
	AgentCapClipboardSelection   = 6
	AgentCapSparseMonitorsConfig = 7
	AgentCapGuestLineendLF       = 8
	AgentCapGuestLineendCRLF     = 9
	AgentCapMaxClipboard         = 10
)

// Agent clipboard data types.
const (
	AgentClipboardNone      = 0
	AgentClipboardUTF8Text  = 1
	AgentClipboardImagePNG  = 2
	AgentClipboardImageBMP  = 3
	AgentClipboardImageTIFF = 4
	AgentClipboardImageJPG  = 5
)

// Clipboard selections.  Only the common clipboard is used; primary and
// secondary are X11 specific.
const (
	AgentSelectionClipboard = 0
	AgentSelectionPrimary   = 1
	AgentSelectionSecondary = 2

	// AgentSelectionHeaderLen is the selection code plus three
	// reserved bytes prepended to clipboard bodies when the selection
	// capability is negotiated.
	AgentSelectionHeaderLen = 4
)

// AgentMessage is the header of one agent protocol message.  Size counts
// the body bytes, which may span several carriers.
type AgentMessage struct {
	Protocol uint32
	Type     uint32
	Opaque   uint64
	Size     uint32
}

// Encode appends the wire encoding of the header to b.
func (m *AgentMessage) Encode(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, m.Protocol)
	b = binary.LittleEndian.AppendUint32(b, m.Type)
	b = binary.LittleEndian.AppendUint64(b, m.Opaque)
	b = binary.LittleEndian.AppendUint32(b, m.Size)
	return b
}

// DecodeAgentMessage parses an agent message header, returning the
// header and the body bytes present in this carrier.
func DecodeAgentMessage(b []byte) (*AgentMessage, []byte, error) {
	r := reader{b: b}
	m := &AgentMessage{
		Protocol: r.u32(),
		Type:     r.u32(),
		Opaque:   r.u64(),
		Size:     r.u32(),
	}
	if r.err != nil {
		return nil, nil, r.err
	}
	return m, r.remaining(), nil
}

// AgentCaps is the agent capability bitset, a single 32 bit word for
// every capability this client understands.
type AgentCaps uint32

// Set sets the capability bit at index.
func (c *AgentCaps) Set(index int) { *c |= 1 << index }

// Has returns true if the capability bit at index is set.
func (c AgentCaps) Has(index int) bool { return c&(1<<index) != 0 }

// AnnounceCapabilities is the agent capability exchange body.
type AnnounceCapabilities struct {
	Request bool
	Caps    AgentCaps
}

// EncodeBody returns the body bytes.
func (m *AnnounceCapabilities) EncodeBody() []byte {
	b := make([]byte, 0, 8)
	req := uint32(0)
	if m.Request {
		req = 1
	}
	b = binary.LittleEndian.AppendUint32(b, req)
	b = binary.LittleEndian.AppendUint32(b, uint32(m.Caps))
	return b
}

// DecodeAnnounceCapabilities parses a capability exchange body.  Agents
// may send more capability words than we know; extra words are ignored.
func DecodeAnnounceCapabilities(b []byte) (*AnnounceCapabilities, error) {
	r := reader{b: b}
	m := &AnnounceCapabilities{}
	m.Request = r.u32() != 0
	m.Caps = AgentCaps(r.u32())
	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}
