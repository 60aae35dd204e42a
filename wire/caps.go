// caps.go - Capability bitsets.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package wire

import "encoding/binary"

// Caps is a SPICE capability bitset: an array of 32 bit little-endian
// words.  The word count for a given maximum capability index follows
// the reference layout of ((index + 32) / 8) & ^3 bytes.
type Caps []uint32

// NewCaps returns an empty bitset sized to hold maxIndex.
func NewCaps(maxIndex int) Caps {
	nbytes := ((maxIndex + 32) / 8) &^ 3
	return make(Caps, nbytes/4)
}

// Set sets the capability at index.
func (c Caps) Set(index int) {
	c[index/32] |= 1 << (index % 32)
}

// Has returns true if the capability at index is present.  Indexes past
// the end of the bitset report false.
func (c Caps) Has(index int) bool {
	if index >= len(c)*32 {
		return false
	}
	return c[index/32]&(1<<(index%32)) != 0
}

// Words returns the number of 32 bit words in the bitset.
func (c Caps) Words() int { return len(c) }

// Encode appends the wire encoding of the bitset to b.
func (c Caps) Encode(b []byte) []byte {
	for _, w := range c {
		b = binary.LittleEndian.AppendUint32(b, w)
	}
	return b
}

// DecodeCaps parses words 32 bit words from b, returning the bitset and
// the remainder of b.
func DecodeCaps(b []byte, words int) (Caps, []byte, error) {
	if len(b) < words*4 {
		return nil, nil, errTruncated
	}
	c := make(Caps, words)
	for i := range c {
		c[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return c, b[words*4:], nil
}
