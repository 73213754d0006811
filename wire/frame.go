// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wire implements the framed message protocol that connects the
// debugger core to the host IDE: a u32 id, an 8-byte ASCII tag, and a
// length-bounded payload of appended typed fields.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// TagLength is the fixed width of a frame's ASCII command tag.
const TagLength = 8

// EndToken marks the natural end of a streamed response (§4.3).
const EndToken = "<end>"

// EndTokenSize is len(EndToken)+1, the size of the token once
// zero-terminated on the wire.
const EndTokenSize = len(EndToken) + 1

// ErrBufferFull is returned by an Append* method when the payload
// would exceed the frame's configured maximum size. Callers of the
// inspection services treat it as "stop streaming, send what we have".
var ErrBufferFull = errors.New("wire: payload buffer full")

// Tag is an 8-byte ASCII command/event identifier, e.g. "DBG_STRT".
type Tag [TagLength]byte

// NewTag pads or truncates s to TagLength bytes.
func NewTag(s string) Tag {
	var t Tag
	n := copy(t[:], s)
	for ; n < TagLength; n++ {
		t[n] = ' '
	}
	return t
}

func (t Tag) String() string { return string(t[:]) }

// Frame is one message exchanged over the link: a request/response/
// event id, an 8-byte tag, and a payload bounded by the frame's max
// size (see New/NewResponse).
type Frame struct {
	ID      uint32
	Tag     Tag
	Payload []byte

	max int // configured max payload size; 0 means "unbounded" (inbound frames)
}

// nextEventID hands out fresh ids for unsolicited event frames.
// Responses instead reuse their request's id (see NewResponse).
var nextEventID uint32

// New constructs an outbound event frame with the given tag, able to
// grow to at most maxPayload bytes.
func New(tag string, maxPayload int) *Frame {
	nextEventID++
	return &Frame{
		ID:      nextEventID,
		Tag:     NewTag(tag),
		Payload: make([]byte, 0, maxPayload),
		max:     maxPayload,
	}
}

// NewResponse constructs a response frame correlated to requestID,
// able to grow to at most maxPayload bytes.
func NewResponse(tag string, requestID uint32, maxPayload int) *Frame {
	return &Frame{
		ID:      requestID,
		Tag:     NewTag(tag),
		Payload: make([]byte, 0, maxPayload),
		max:     maxPayload,
	}
}

// Decode parses a frame read off the link: 4-byte id, 8-byte tag, then
// the remaining bytes as payload. It performs no length bound (inbound
// frames are already bounded by the transport's P_max).
func Decode(raw []byte) (*Frame, error) {
	if len(raw) < 4+TagLength {
		return nil, fmt.Errorf("wire: frame too short: %d bytes", len(raw))
	}
	f := &Frame{
		ID:      binary.LittleEndian.Uint32(raw[0:4]),
		Payload: append([]byte(nil), raw[4+TagLength:]...),
	}
	copy(f.Tag[:], raw[4:4+TagLength])
	return f, nil
}

// Encode serializes the frame as it goes out on the link.
func (f *Frame) Encode() []byte {
	buf := make([]byte, 4+TagLength+len(f.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], f.ID)
	copy(buf[4:4+TagLength], f.Tag[:])
	copy(buf[4+TagLength:], f.Payload)
	return buf
}

// HasTag reports whether the frame's tag, as a string, equals s
// (compared byte-for-byte against the padded tag).
func (f *Frame) HasTag(s string) bool {
	return f.Tag == NewTag(s)
}

func (f *Frame) fits(n int) bool {
	return f.max == 0 || len(f.Payload)+n <= f.max
}

// AppendBytes appends raw bytes, failing with ErrBufferFull if the
// frame's max payload size would be exceeded.
func (f *Frame) AppendBytes(b []byte) error {
	if !f.fits(len(b)) {
		return ErrBufferFull
	}
	f.Payload = append(f.Payload, b...)
	return nil
}

// AppendUint32 appends a little-endian u32.
func (f *Frame) AppendUint32(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return f.AppendBytes(b[:])
}

// AppendByte appends a single byte.
func (f *Frame) AppendByte(v byte) error {
	return f.AppendBytes([]byte{v})
}

// AppendZString appends s followed by a NUL terminator.
func (f *Frame) AppendZString(s string) error {
	if !f.fits(len(s) + 1) {
		return ErrBufferFull
	}
	f.Payload = append(f.Payload, s...)
	f.Payload = append(f.Payload, 0)
	return nil
}

// AppendRawString appends s with no terminator.
func (f *Frame) AppendRawString(s string) error {
	return f.AppendBytes([]byte(s))
}

// AppendEndToken appends the zero-terminated end-of-stream marker,
// if there is room; it reports whether it fit.
func (f *Frame) AppendEndToken() bool {
	if !f.fits(EndTokenSize) {
		return false
	}
	_ = f.AppendZString(EndToken)
	return true
}

// Remaining reports how many more bytes can be appended before
// ErrBufferFull, or -1 if the frame has no configured bound.
func (f *Frame) Remaining() int {
	if f.max == 0 {
		return -1
	}
	return f.max - len(f.Payload)
}

// ReadUint8 reads a single byte at offset.
func (f *Frame) ReadUint8(offset int) (byte, error) {
	if offset < 0 || offset >= len(f.Payload) {
		return 0, fmt.Errorf("wire: ReadUint8: offset %d out of range (len %d)", offset, len(f.Payload))
	}
	return f.Payload[offset], nil
}

// ReadUint32 reads a little-endian u32 at offset.
func (f *Frame) ReadUint32(offset int) (uint32, error) {
	if offset < 0 || offset+4 > len(f.Payload) {
		return 0, fmt.Errorf("wire: ReadUint32: offset %d out of range (len %d)", offset, len(f.Payload))
	}
	return binary.LittleEndian.Uint32(f.Payload[offset : offset+4]), nil
}

// FindByte returns the offset of the first occurrence of b at or
// after start, or -1 if not found.
func (f *Frame) FindByte(start int, b byte) int {
	for i := start; i < len(f.Payload); i++ {
		if f.Payload[i] == b {
			return i
		}
	}
	return -1
}

// ReadZString reads a NUL-terminated string starting at offset and
// returns it along with the offset just past the terminator.
func (f *Frame) ReadZString(offset int) (s string, next int, err error) {
	end := f.FindByte(offset, 0)
	if end == -1 {
		return "", 0, fmt.Errorf("wire: ReadZString: no NUL terminator from offset %d", offset)
	}
	return string(f.Payload[offset:end]), end + 1, nil
}

// ReadString reads exactly n bytes starting at offset (no
// terminator).
func (f *Frame) ReadString(offset, n int) (string, error) {
	if offset < 0 || offset+n > len(f.Payload) {
		return "", fmt.Errorf("wire: ReadString: range [%d,%d) out of bounds (len %d)", offset, offset+n, len(f.Payload))
	}
	return string(f.Payload[offset : offset+n]), nil
}

// SetPayloadLength truncates (or, if already shorter, leaves alone)
// the payload to exactly n bytes. The inspection services do not
// call it: they size each record before appending it.
func (f *Frame) SetPayloadLength(n int) {
	if n <= len(f.Payload) {
		f.Payload = f.Payload[:n]
	}
}

// HasStringAt reports whether the frame's payload contains s as a
// bare string at offset — used by the client's stack and variables
// decoders to spot the end-token (the general offset form of
// jcomp_msg_has_str in the original).
func (f *Frame) HasStringAt(offset int, s string) bool {
	got, err := f.ReadString(offset, len(s))
	return err == nil && got == s
}
