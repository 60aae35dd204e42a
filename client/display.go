// display.go - Display channel.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"github.com/purelink/spice/wire"
	"github.com/purelink/spice/wire/commands"
)

// displayEndpoint receives surface management and the two draw
// operations this engine renders: solid fills and uncompressed bitmap
// copies.  Everything else is logged and dropped.
type displayEndpoint struct{}

func (e *displayEndpoint) channelCaps(c *channel) wire.Caps {
	caps := wire.NewCaps(commands.CapDisplayCodecH265)
	caps.Set(commands.CapDisplayPrefCompression)
	return caps
}

func (e *displayEndpoint) discardable(msgType uint16) bool {
	switch msgType {
	case commands.MsgDisplaySurfaceCreate, commands.MsgDisplaySurfaceDestroy,
		commands.MsgDisplayDrawFill, commands.MsgDisplayDrawCopy:
		return false
	default:
		// Streams, compressed draws, palette management: not
		// rendered by this engine.
		return true
	}
}

func (e *displayEndpoint) onConnect(c *channel) error {
	if err := c.send(commands.DisplayInitPacket()); err != nil {
		return err
	}
	// Compressed images are not decoded here, tell the server not to
	// bother.
	if c.serverChannelCaps.Has(commands.CapDisplayPrefCompression) {
		return c.send(commands.PreferredCompressionPacket(commands.ImageCompressionOff))
	}
	return nil
}

func (e *displayEndpoint) handle(c *channel, h *wire.MiniHeader, payload []byte) error {
	c.initDone = true
	cb := &c.s.cfg.Display

	switch h.Type {
	case commands.MsgDisplaySurfaceCreate:
		m, err := commands.DecodeSurfaceCreate(payload)
		if err != nil {
			return err
		}
		format, ok := surfaceFormat(m.Format)
		if !ok {
			return newProtocolError("unknown surface format: %d", m.Format)
		}
		cb.SurfaceCreate(m.SurfaceID, format, int(m.Width), int(m.Height))
		return nil

	case commands.MsgDisplaySurfaceDestroy:
		id, err := commands.DecodeSurfaceDestroy(payload)
		if err != nil {
			return err
		}
		cb.SurfaceDestroy(id)
		return nil

	case commands.MsgDisplayDrawFill:
		m, err := commands.DecodeDrawFill(payload)
		if err != nil {
			return err
		}
		if m.Brush.Type != commands.BrushTypeSolid {
			c.log.Warningf("Only solid brushes are supported")
			return nil
		}
		box := &m.Base.Box
		cb.DrawFill(m.Base.SurfaceID,
			int(box.Left), int(box.Top),
			int(box.Right-box.Left), int(box.Bottom-box.Top),
			m.Brush.Color)
		return nil

	case commands.MsgDisplayDrawCopy:
		m, err := commands.DecodeDrawCopy(payload)
		if err != nil {
			return err
		}
		if m.SrcBitmap == 0 {
			c.log.Warningf("Draw copy without a source bitmap")
			return nil
		}
		desc, err := commands.DecodeImageDescriptor(payload, m.SrcBitmap)
		if err != nil {
			return err
		}
		if desc.Type != commands.ImageTypeBitmap {
			c.log.Warningf("Compressed image formats are not supported")
			return nil
		}
		bmp, err := commands.DecodeBitmap(payload, m.SrcBitmap)
		if err != nil {
			return err
		}
		cb.DrawBitmap(m.Base.SurfaceID, BitmapFormatRGBA, bmp.TopDown(),
			int(m.Base.Box.Left), int(m.Base.Box.Top),
			int(bmp.Width), int(bmp.Height), int(bmp.Stride), bmp.Data)
		return nil
	}

	// Unknown display message; dropped.
	return nil
}

func surfaceFormat(f uint32) (SurfaceFormat, bool) {
	switch f {
	case commands.SurfaceFmt1A:
		return SurfaceFormat1A, true
	case commands.SurfaceFmt8A:
		return SurfaceFormat8A, true
	case commands.SurfaceFmt16_555:
		return SurfaceFormat16_555, true
	case commands.SurfaceFmt32xRGB:
		return SurfaceFormat32xRGB, true
	case commands.SurfaceFmt16_565:
		return SurfaceFormat16_565, true
	case commands.SurfaceFmt32ARGB:
		return SurfaceFormat32ARGB, true
	default:
		return 0, false
	}
}
