// builder.go - Outbound packet builder.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package wire

import "encoding/binary"

// Builder assembles one outbound packet: the mini-header is reserved up
// front and the payload is appended field by field.  Bytes returns the
// finished packet with the header size patched to the payload length, so
// the whole packet can go out in a single write.
type Builder struct {
	buf []byte

	// extra is added to the header size without being part of the
	// built buffer.  It is used for trailing data that is written
	// separately under the same channel lock (audio samples).
	extra uint32
}

// NewBuilder starts a packet of the given message type.  sizeHint is the
// expected payload length; it only affects allocation.
func NewBuilder(msgType uint16, sizeHint int) *Builder {
	b := &Builder{buf: make([]byte, MiniHeaderLen, MiniHeaderLen+sizeHint)}
	binary.LittleEndian.PutUint16(b.buf[0:2], msgType)
	return b
}

// SetExtra declares size bytes of payload that will follow the built
// packet on the wire.
func (b *Builder) SetExtra(size uint32) { b.extra = size }

// U8 appends an 8 bit value.
func (b *Builder) U8(v uint8) *Builder {
	b.buf = append(b.buf, v)
	return b
}

// U16 appends a little-endian 16 bit value.
func (b *Builder) U16(v uint16) *Builder {
	b.buf = binary.LittleEndian.AppendUint16(b.buf, v)
	return b
}

// U32 appends a little-endian 32 bit value.
func (b *Builder) U32(v uint32) *Builder {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, v)
	return b
}

// U64 appends a little-endian 64 bit value.
func (b *Builder) U64(v uint64) *Builder {
	b.buf = binary.LittleEndian.AppendUint64(b.buf, v)
	return b
}

// I32 appends a little-endian 32 bit signed value.
func (b *Builder) I32(v int32) *Builder {
	return b.U32(uint32(v))
}

// Raw appends raw bytes.
func (b *Builder) Raw(p []byte) *Builder {
	b.buf = append(b.buf, p...)
	return b
}

// Packet patches the header size and returns the finished packet.
func (b *Builder) Packet() []byte {
	binary.LittleEndian.PutUint32(b.buf[2:6], uint32(len(b.buf)-MiniHeaderLen)+b.extra)
	return b.buf
}
