// cursor.go - Cursor channel messages.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package commands

// CursorHeader describes a cursor shape.
type CursorHeader struct {
	Unique   uint64
	Type     uint8
	Width    uint16
	Height   uint16
	HotSpotX uint16
	HotSpotY uint16
}

// Cursor is the inline cursor of a CURSOR_INIT or CURSOR_SET message.
// Data aliases the message payload and is only populated when the shape
// is carried inline (no FROM_CACHE, no NONE flag).
type Cursor struct {
	Flags  uint16
	Header CursorHeader
	Data   []byte
}

func (c *Cursor) decode(rd *reader) {
	c.Flags = rd.u16()
	c.Header.Unique = rd.u64()
	c.Header.Type = rd.u8()
	c.Header.Width = rd.u16()
	c.Header.Height = rd.u16()
	c.Header.HotSpotX = rd.u16()
	c.Header.HotSpotY = rd.u16()
	if rd.err != nil {
		return
	}
	if c.Flags&(CursorFlagNone|CursorFlagFromCache) != 0 {
		return
	}
	c.Data = rd.bytes(CursorDataSize(&c.Header))
}

// CursorDataSize returns the pixel data size for a cursor shape.
func CursorDataSize(h *CursorHeader) int {
	w, ht := int(h.Width), int(h.Height)
	maskSize := ((w + 7) / 8) * ht
	switch h.Type {
	case CursorTypeAlpha:
		return 4 * w * ht
	case CursorTypeMono:
		return 2 * maskSize
	case CursorTypeColor4:
		return ((w+1)/2)*ht + 16*4 + maskSize
	case CursorTypeColor8:
		return w*ht + 256*4 + maskSize
	case CursorTypeColor16:
		return 2*w*ht + maskSize
	case CursorTypeColor24:
		return 3*w*ht + maskSize
	case CursorTypeColor32:
		return 4*w*ht + maskSize
	default:
		return 0
	}
}

// CursorInit carries the initial cursor state.
type CursorInit struct {
	X, Y           int16
	TrailLength    uint16
	TrailFrequency uint16
	Visible        bool
	Cursor         Cursor
}

// DecodeCursorInit parses a CURSOR_INIT payload.
func DecodeCursorInit(b []byte) (*CursorInit, error) {
	rd := reader{b: b}
	m := new(CursorInit)
	m.X = rd.i16()
	m.Y = rd.i16()
	m.TrailLength = rd.u16()
	m.TrailFrequency = rd.u16()
	m.Visible = rd.u8() != 0
	m.Cursor.decode(&rd)
	if rd.err != nil {
		return nil, rd.err
	}
	return m, nil
}

// CursorSet replaces the cursor shape.
type CursorSet struct {
	X, Y    int16
	Visible bool
	Cursor  Cursor
}

// DecodeCursorSet parses a CURSOR_SET payload.
func DecodeCursorSet(b []byte) (*CursorSet, error) {
	rd := reader{b: b}
	m := new(CursorSet)
	m.X = rd.i16()
	m.Y = rd.i16()
	m.Visible = rd.u8() != 0
	m.Cursor.decode(&rd)
	if rd.err != nil {
		return nil, rd.err
	}
	return m, nil
}

// DecodeCursorMove parses a CURSOR_MOVE payload.
func DecodeCursorMove(b []byte) (x, y int16, err error) {
	rd := reader{b: b}
	x = rd.i16()
	y = rd.i16()
	return x, y, rd.err
}

// DecodeCursorTrail parses a CURSOR_TRAIL payload.
func DecodeCursorTrail(b []byte) (length, frequency uint16, err error) {
	rd := reader{b: b}
	length = rd.u16()
	frequency = rd.u16()
	return length, frequency, rd.err
}

// DecodeCursorInvalOne parses a CURSOR_INVAL_ONE payload.
func DecodeCursorInvalOne(b []byte) (uint64, error) {
	rd := reader{b: b}
	id := rd.u64()
	if rd.err != nil {
		return 0, rd.err
	}
	return id, nil
}
