// header.go - SPICE mini-header framing.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package wire implements the SPICE wire framing: the 6 byte mini-header,
// capability bitsets, the link layer packets, and the outbound packet
// builder.  Both endpoints negotiate the mini-header capability, so the
// original 48 byte data header never appears on the wire.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// MiniHeaderLen is the wire size of the mini-header.
	MiniHeaderLen = 6

	// MaxMessageSize bounds the payload size of a single inbound
	// message.  Anything larger is a protocol violation.
	MaxMessageSize = 64 * 1024 * 1024
)

var errMsgSize = errors.New("wire: invalid message size")

// MiniHeader is the 6 byte framing header used on every established
// channel: a 16 bit message type followed by a 32 bit payload size, both
// little-endian.
type MiniHeader struct {
	Type uint16
	Size uint32
}

// Encode appends the wire encoding of the header to b and returns the
// extended slice.
func (h *MiniHeader) Encode(b []byte) []byte {
	var tmp [MiniHeaderLen]byte
	binary.LittleEndian.PutUint16(tmp[0:2], h.Type)
	binary.LittleEndian.PutUint32(tmp[2:6], h.Size)
	return append(b, tmp[:]...)
}

// ReadMiniHeader reads and decodes one mini-header from r.
func ReadMiniHeader(r io.Reader) (*MiniHeader, error) {
	var tmp [MiniHeaderLen]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return nil, err
	}
	h := &MiniHeader{
		Type: binary.LittleEndian.Uint16(tmp[0:2]),
		Size: binary.LittleEndian.Uint32(tmp[2:6]),
	}
	if h.Size > MaxMessageSize {
		return nil, fmt.Errorf("wire: message size %d exceeds limit: %w", h.Size, errMsgSize)
	}
	return h, nil
}

// ReadPayload reads exactly h.Size bytes of message payload from r.
func ReadPayload(r io.Reader, h *MiniHeader) ([]byte, error) {
	if h.Size == 0 {
		return nil, nil
	}
	b := make([]byte, h.Size)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// DiscardPayload consumes exactly h.Size bytes from r without
// materialising them.
func DiscardPayload(r io.Reader, h *MiniHeader) error {
	_, err := io.CopyN(io.Discard, r, int64(h.Size))
	return err
}
