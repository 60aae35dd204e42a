// cursor_test.go - Cursor message codec tests.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package commands

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorDataSize(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	h := &CursorHeader{Width: 32, Height: 32}

	h.Type = CursorTypeAlpha
	require.Equal(4*32*32, CursorDataSize(h))

	h.Type = CursorTypeMono
	require.Equal(2*4*32, CursorDataSize(h))

	h.Type = CursorTypeColor8
	require.Equal(32*32+256*4+4*32, CursorDataSize(h))

	h.Type = CursorTypeColor32
	require.Equal(4*32*32+4*32, CursorDataSize(h))

	// Widths that are not byte multiples round the mask rows up.
	h = &CursorHeader{Type: CursorTypeMono, Width: 9, Height: 3}
	require.Equal(2*2*3, CursorDataSize(h))
}

func appendCursor(b []byte, flags uint16, h *CursorHeader, data []byte) []byte {
	b = binary.LittleEndian.AppendUint16(b, flags)
	b = binary.LittleEndian.AppendUint64(b, h.Unique)
	b = append(b, h.Type)
	b = binary.LittleEndian.AppendUint16(b, h.Width)
	b = binary.LittleEndian.AppendUint16(b, h.Height)
	b = binary.LittleEndian.AppendUint16(b, h.HotSpotX)
	b = binary.LittleEndian.AppendUint16(b, h.HotSpotY)
	return append(b, data...)
}

func TestDecodeCursorSet(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	hdr := &CursorHeader{Unique: 0x1234, Type: CursorTypeAlpha, Width: 2, Height: 2, HotSpotX: 1, HotSpotY: 1}
	data := make([]byte, CursorDataSize(hdr))
	for i := range data {
		data[i] = byte(i)
	}

	var b []byte
	b = binary.LittleEndian.AppendUint16(b, uint16(100)) // x
	b = binary.LittleEndian.AppendUint16(b, uint16(200)) // y
	b = append(b, 1)                                     // visible
	b = appendCursor(b, CursorFlagCacheMe, hdr, data)

	m, err := DecodeCursorSet(b)
	require.NoError(err)
	require.Equal(int16(100), m.X)
	require.Equal(int16(200), m.Y)
	require.True(m.Visible)
	require.Equal(uint16(CursorFlagCacheMe), m.Cursor.Flags)
	require.Equal(*hdr, m.Cursor.Header)
	require.Equal(data, m.Cursor.Data)
}

func TestDecodeCursorSetFromCache(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	hdr := &CursorHeader{Unique: 0x99, Type: CursorTypeAlpha, Width: 64, Height: 64}

	var b []byte
	b = binary.LittleEndian.AppendUint16(b, 0)
	b = binary.LittleEndian.AppendUint16(b, 0)
	b = append(b, 1)
	// No pixel data follows a FROM_CACHE shape.
	b = appendCursor(b, CursorFlagFromCache, hdr, nil)

	m, err := DecodeCursorSet(b)
	require.NoError(err)
	require.Nil(m.Cursor.Data)
	require.Equal(uint64(0x99), m.Cursor.Header.Unique)
}

func TestDecodeCursorInit(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	hdr := &CursorHeader{Type: CursorTypeMono, Width: 8, Height: 8}
	data := make([]byte, CursorDataSize(hdr))

	var b []byte
	b = binary.LittleEndian.AppendUint16(b, 5)  // x
	b = binary.LittleEndian.AppendUint16(b, 6)  // y
	b = binary.LittleEndian.AppendUint16(b, 0)  // trail length
	b = binary.LittleEndian.AppendUint16(b, 0)  // trail frequency
	b = append(b, 0)                            // visible
	b = appendCursor(b, 0, hdr, data)

	m, err := DecodeCursorInit(b)
	require.NoError(err)
	require.False(m.Visible)
	require.Equal(data, m.Cursor.Data)
}

func TestDecodeCursorSmall(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	x, y, err := DecodeCursorMove([]byte{0x10, 0x00, 0x20, 0x00})
	require.NoError(err)
	require.Equal(int16(0x10), x)
	require.Equal(int16(0x20), y)

	id, err := DecodeCursorInvalOne([]byte{1, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(err)
	require.Equal(uint64(1), id)
}
