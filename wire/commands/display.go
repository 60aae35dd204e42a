// display.go - Display channel messages.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package commands

import "github.com/purelink/spice/wire"

// SurfaceCreate announces a new server side drawable.
type SurfaceCreate struct {
	SurfaceID uint32
	Width     uint32
	Height    uint32
	Format    uint32
	Flags     uint32
}

// DecodeSurfaceCreate parses a SURFACE_CREATE payload.
func DecodeSurfaceCreate(b []byte) (*SurfaceCreate, error) {
	r := reader{b: b}
	m := &SurfaceCreate{
		SurfaceID: r.u32(),
		Width:     r.u32(),
		Height:    r.u32(),
		Format:    r.u32(),
		Flags:     r.u32(),
	}
	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}

// DecodeSurfaceDestroy parses a SURFACE_DESTROY payload.
func DecodeSurfaceDestroy(b []byte) (uint32, error) {
	r := reader{b: b}
	id := r.u32()
	if r.err != nil {
		return 0, r.err
	}
	return id, nil
}

// Rect is a box in surface coordinates.
type Rect struct {
	Top    int32
	Left   int32
	Bottom int32
	Right  int32
}

func (r *Rect) decode(rd *reader) {
	r.Top = rd.i32()
	r.Left = rd.i32()
	r.Bottom = rd.i32()
	r.Right = rd.i32()
}

// Point is a position in surface coordinates.
type Point struct {
	X int32
	Y int32
}

func (p *Point) decode(rd *reader) {
	p.X = rd.i32()
	p.Y = rd.i32()
}

// Clip is the clip selector of a draw operation.
type Clip struct {
	Type  uint8
	Rects []Rect
}

func (c *Clip) decode(rd *reader) {
	c.Type = rd.u8()
	if c.Type != ClipTypeRects {
		return
	}
	n := int(rd.u32())
	if rd.err != nil {
		return
	}
	c.Rects = make([]Rect, n)
	for i := range c.Rects {
		c.Rects[i].decode(rd)
	}
}

// DisplayBase prefixes every draw operation: the target surface, the
// destination box, and the clip.
type DisplayBase struct {
	SurfaceID uint32
	Box       Rect
	Clip      Clip
}

func (d *DisplayBase) decode(rd *reader) {
	d.SurfaceID = rd.u32()
	d.Box.decode(rd)
	d.Clip.decode(rd)
}

// Brush is the paint source of a fill.  Only solid brushes carry a
// colour this client honours.
type Brush struct {
	Type  uint32
	Color uint32

	// Pattern fields, parsed for framing correctness only.
	PatternImage uint32
	PatternPos   Point
}

func (b *Brush) decode(rd *reader) {
	b.Type = rd.u32()
	switch b.Type {
	case BrushTypeNone:
	case BrushTypeSolid:
		b.Color = rd.u32()
	case BrushTypePattern:
		b.PatternImage = rd.u32()
		b.PatternPos.decode(rd)
	}
}

// QMask is the optional mask of a draw operation; the bitmap is an
// offset into the payload, zero meaning absent.
type QMask struct {
	Flags  uint8
	Pos    Point
	Bitmap uint32
}

func (m *QMask) decode(rd *reader) {
	m.Flags = rd.u8()
	m.Pos.decode(rd)
	m.Bitmap = rd.u32()
}

// DrawFill is a DRAW_FILL operation.
type DrawFill struct {
	Base  DisplayBase
	Brush Brush
	Rop   uint16
	Mask  QMask
}

// DecodeDrawFill parses a DRAW_FILL payload.
func DecodeDrawFill(b []byte) (*DrawFill, error) {
	rd := reader{b: b}
	m := new(DrawFill)
	m.Base.decode(&rd)
	m.Brush.decode(&rd)
	m.Rop = rd.u16()
	m.Mask.decode(&rd)
	if rd.err != nil {
		return nil, rd.err
	}
	return m, nil
}

// DrawCopy is a DRAW_COPY operation; SrcBitmap is an offset into the
// payload, zero meaning absent.
type DrawCopy struct {
	Base      DisplayBase
	SrcBitmap uint32
	SrcArea   Rect
	Rop       uint16
	ScaleMode uint8
	Mask      QMask
}

// DecodeDrawCopy parses a DRAW_COPY payload.
func DecodeDrawCopy(b []byte) (*DrawCopy, error) {
	rd := reader{b: b}
	m := new(DrawCopy)
	m.Base.decode(&rd)
	m.SrcBitmap = rd.u32()
	m.SrcArea.decode(&rd)
	m.Rop = rd.u16()
	m.ScaleMode = rd.u8()
	m.Mask.decode(&rd)
	if rd.err != nil {
		return nil, rd.err
	}
	return m, nil
}

// ImageDescriptor heads every image referenced by a draw operation.
type ImageDescriptor struct {
	ID     uint64
	Type   uint8
	Flags  uint8
	Width  uint32
	Height uint32
}

// Bitmap is an uncompressed bitmap image.  Data aliases the message
// payload.
type Bitmap struct {
	Descriptor ImageDescriptor
	Format     uint8
	Flags      uint8
	Width      uint32
	Height     uint32
	Stride     uint32
	Palette    uint32
	PaletteID  uint64
	Data       []byte
}

// TopDown reports whether the first row of Data is the top row.
func (b *Bitmap) TopDown() bool {
	return b.Flags&BitmapFlagTopDown != 0
}

// DecodeImageDescriptor parses the image descriptor at offset in the
// payload.
func DecodeImageDescriptor(payload []byte, offset uint32) (*ImageDescriptor, error) {
	if int(offset) > len(payload) {
		return nil, errTruncated
	}
	rd := reader{b: payload[offset:]}
	d := &ImageDescriptor{
		ID:     rd.u64(),
		Type:   rd.u8(),
		Flags:  rd.u8(),
		Width:  rd.u32(),
		Height: rd.u32(),
	}
	if rd.err != nil {
		return nil, rd.err
	}
	return d, nil
}

// DecodeBitmap parses an ImageTypeBitmap image at offset in the payload.
// The pixel data runs from the end of the bitmap header (past the
// palette when one is present) to the end of the payload.
func DecodeBitmap(payload []byte, offset uint32) (*Bitmap, error) {
	if int(offset) > len(payload) {
		return nil, errTruncated
	}
	rd := reader{b: payload[offset:]}
	m := new(Bitmap)
	m.Descriptor.ID = rd.u64()
	m.Descriptor.Type = rd.u8()
	m.Descriptor.Flags = rd.u8()
	m.Descriptor.Width = rd.u32()
	m.Descriptor.Height = rd.u32()

	m.Format = rd.u8()
	m.Flags = rd.u8()
	m.Width = rd.u32()
	m.Height = rd.u32()
	m.Stride = rd.u32()
	m.Palette = rd.u32()
	if m.Palette != 0 {
		m.PaletteID = rd.u64()
	}
	if rd.err != nil {
		return nil, rd.err
	}
	m.Data = rd.remaining()
	return m, nil
}

// DisplayInitPacket builds the MSGC_DISPLAY_INIT message.  This client
// runs with an empty pixmap cache and no GLZ dictionary.
func DisplayInitPacket() []byte {
	return wire.NewBuilder(MsgcDisplayInit, 14).
		U8(0).   // pixmap_cache_id
		U64(0).  // pixmap_cache_size
		U8(0).   // glz_dictionary_id
		U32(0).  // glz_dictionary_window_size
		Packet()
}

// PreferredCompressionPacket builds the preferred-compression request.
func PreferredCompressionPacket(compression uint8) []byte {
	return wire.NewBuilder(MsgcDisplayPreferredCompression, 1).U8(compression).Packet()
}
