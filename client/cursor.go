// cursor.go - Cursor channel.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"github.com/purelink/spice/wire"
	"github.com/purelink/spice/wire/commands"
)

// cursorShape is one cached cursor image.
type cursorShape struct {
	header commands.CursorHeader
	data   []byte
}

// cursorEndpoint tracks cursor state and the server assigned shape
// cache, keyed by the 64 bit unique id.
type cursorEndpoint struct {
	cache map[uint64]*cursorShape

	x, y      int16
	trailLen  uint16
	trailFreq uint16
	visible   bool
}

func (e *cursorEndpoint) channelCaps(c *channel) wire.Caps {
	// The cursor channel has no capabilities.
	return wire.Caps{}
}

func (e *cursorEndpoint) discardable(msgType uint16) bool { return false }

func (e *cursorEndpoint) onConnect(c *channel) error { return nil }

func (e *cursorEndpoint) handle(c *channel, h *wire.MiniHeader, payload []byte) error {
	c.initDone = true
	cb := &c.s.cfg.Cursor

	switch h.Type {
	case commands.MsgCursorInit:
		m, err := commands.DecodeCursorInit(payload)
		if err != nil {
			return err
		}
		e.x, e.y = m.X, m.Y
		e.trailLen, e.trailFreq = m.TrailLength, m.TrailFrequency
		e.visible = m.Visible
		e.applyCursor(c, &m.Cursor)
		e.emitState(cb)
		return nil

	case commands.MsgCursorSet:
		m, err := commands.DecodeCursorSet(payload)
		if err != nil {
			return err
		}
		e.x, e.y = m.X, m.Y
		e.visible = m.Visible
		e.applyCursor(c, &m.Cursor)
		e.emitState(cb)
		return nil

	case commands.MsgCursorReset:
		e.cache = make(map[uint64]*cursorShape)
		e.visible = false
		e.emitState(cb)
		return nil

	case commands.MsgCursorInvalAll:
		e.cache = make(map[uint64]*cursorShape)
		return nil

	case commands.MsgCursorInvalOne:
		id, err := commands.DecodeCursorInvalOne(payload)
		if err != nil {
			return err
		}
		delete(e.cache, id)
		return nil

	case commands.MsgCursorMove:
		x, y, err := commands.DecodeCursorMove(payload)
		if err != nil {
			return err
		}
		e.x, e.y = x, y
		e.emitState(cb)
		return nil

	case commands.MsgCursorHide:
		e.visible = false
		e.emitState(cb)
		return nil

	case commands.MsgCursorTrail:
		length, freq, err := commands.DecodeCursorTrail(payload)
		if err != nil {
			return err
		}
		e.trailLen, e.trailFreq = length, freq
		if cb.SetTrail != nil {
			cb.SetTrail(int(length), int(freq))
		}
		return nil
	}

	// Unknown cursor message; dropped.
	return nil
}

// applyCursor resolves the inline cursor of an INIT or SET: from the
// cache, from the payload, or nothing at all.  A missing shape hides
// the cursor.
func (e *cursorEndpoint) applyCursor(c *channel, cur *commands.Cursor) {
	var shape *cursorShape

	switch {
	case cur.Flags&commands.CursorFlagNone != 0:
		shape = nil

	case cur.Flags&commands.CursorFlagFromCache != 0:
		shape = e.cache[cur.Header.Unique]
		if shape == nil {
			c.log.Warningf("Cursor %d not in cache", cur.Header.Unique)
		}

	default:
		shape = &cursorShape{header: cur.Header, data: cur.Data}
		if cur.Flags&commands.CursorFlagCacheMe != 0 {
			e.cache[cur.Header.Unique] = shape
		}
	}

	if shape == nil {
		e.visible = false
		return
	}
	e.emitShape(c, shape)
}

func (e *cursorEndpoint) emitShape(c *channel, shape *cursorShape) {
	cb := &c.s.cfg.Cursor
	h := &shape.header
	w, ht := int(h.Width), int(h.Height)

	switch h.Type {
	case commands.CursorTypeAlpha:
		if cb.SetRGBAImage != nil {
			cb.SetRGBAImage(w, ht, int(h.HotSpotX), int(h.HotSpotY), shape.data)
		}
	case commands.CursorTypeMono:
		if cb.SetMonoImage != nil {
			half := len(shape.data) / 2
			cb.SetMonoImage(w, ht, int(h.HotSpotX), int(h.HotSpotY),
				shape.data[:half], shape.data[half:])
		}
	default:
		c.log.Warningf("Paletted cursor type %d is not supported", h.Type)
	}
}

func (e *cursorEndpoint) emitState(cb *CursorHandlers) {
	if cb.SetState != nil {
		cb.SetState(e.visible, int(e.x), int(e.y))
	}
}
