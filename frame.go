// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package chatter

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// MaxFrameLen is the maximum permitted value of a frame's length field,
// covering the type tag and the payload. A frame declaring a greater length
// is a framing error on both the encoding and the decoding side.
const MaxFrameLen = 8 << 20 // 8 MiB

const (
	lengthLen = 4 // width of the length field
	typeLen   = 4 // width of the type field, counted by the length field
)

// A Frame is the parsed format of one wire frame: a type tag and a UTF-8
// text payload. On the wire a frame is a 4-byte little-endian length field
// followed by that many bytes, of which the first 4 are the little-endian
// type tag and the rest are the payload.
type Frame struct {
	Type    FrameType
	Payload []byte
}

// Encode encodes f in binary format. It reports an error if the payload is
// too large for the maximum frame length.
func (f *Frame) Encode() ([]byte, error) {
	flen := typeLen + len(f.Payload)
	if flen > MaxFrameLen {
		return nil, fmt.Errorf("frame of length %d is too large", flen)
	}
	buf := make([]byte, lengthLen+flen)
	binary.LittleEndian.PutUint32(buf[0:], uint32(flen))
	binary.LittleEndian.PutUint32(buf[lengthLen:], uint32(f.Type))
	copy(buf[lengthLen+typeLen:], f.Payload)
	return buf, nil
}

// WriteTo writes the frame to w in binary format. It satisfies io.WriterTo.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	buf, err := f.Encode()
	if err != nil {
		return 0, err
	}
	nw, err := w.Write(buf)
	return int64(nw), err
}

// ReadFrom reads a frame from r in binary format. It satisfies io.ReaderFrom.
//
// The type tag and payload are decoded only once the full frame declared by
// the length field has been read, so a stream that ends mid-frame reports an
// error rather than yielding a frame parsed from incomplete data. A clean
// end of stream at a frame boundary reports io.EOF.
func (f *Frame) ReadFrom(r io.Reader) (int64, error) {
	var hdr [lengthLen]byte
	nr, err := io.ReadFull(r, hdr[:])
	if err != nil {
		if nr == 0 {
			return 0, err // end of stream at a frame boundary
		}
		return int64(nr), fmt.Errorf("short frame header: %w", err)
	}

	flen := binary.LittleEndian.Uint32(hdr[:])
	if flen > MaxFrameLen {
		return int64(nr), fmt.Errorf("frame of length %d is too large", flen)
	} else if flen < typeLen {
		return int64(nr), fmt.Errorf("invalid frame length %d", flen)
	}

	body := make([]byte, int(flen))
	np, err := io.ReadFull(r, body)
	nr += np
	if err != nil {
		return int64(nr), fmt.Errorf("short frame payload: %w", err)
	}
	payload := body[typeLen:]
	if !utf8.Valid(payload) {
		return int64(nr), fmt.Errorf("frame payload is not valid UTF-8")
	}

	f.Type = FrameType(binary.LittleEndian.Uint32(body))
	if len(payload) > 0 {
		f.Payload = payload
	} else {
		f.Payload = nil
	}
	return int64(nr), nil
}

// Decode decodes one frame from the front of data. If data does not yet hold
// a complete frame, Decode reports (nil, 0, nil) and consumes nothing, so the
// caller may retry once more bytes have arrived. Otherwise it returns the
// decoded frame and the total number of bytes it occupied, or a framing
// error. The payload of a decoded frame aliases data, and the caller must
// not modify data while the frame is in use.
func Decode(data []byte) (*Frame, int, error) {
	if len(data) < lengthLen {
		return nil, 0, nil // need more data
	}
	flen := int(binary.LittleEndian.Uint32(data))
	if flen > MaxFrameLen {
		return nil, 0, fmt.Errorf("frame of length %d is too large", flen)
	} else if flen < typeLen {
		return nil, 0, fmt.Errorf("invalid frame length %d", flen)
	}
	total := lengthLen + flen
	if len(data) < total {
		return nil, 0, nil // need more data
	}
	payload := data[lengthLen+typeLen : total]
	if !utf8.Valid(payload) {
		return nil, 0, fmt.Errorf("frame payload is not valid UTF-8")
	}
	f := &Frame{Type: FrameType(binary.LittleEndian.Uint32(data[lengthLen:]))}
	if len(payload) > 0 {
		f.Payload = payload
	}
	return f, total, nil
}

// String returns a human-friendly rendering of the frame.
func (f *Frame) String() string {
	var pay string
	switch f.Type {
	case TypeLogin:
		var req Login
		if err := req.Decode(f.Payload); err == nil {
			pay = req.String()
		}
	case TypeBroadcast:
		var msg Broadcast
		if err := msg.Decode(f.Payload); err == nil {
			pay = msg.String()
		}
	case TypeDirect:
		var msg Direct
		if err := msg.Decode(f.Payload); err == nil {
			pay = msg.String()
		}
	}
	if pay == "" {
		pay = fmt.Sprintf("%q", f.Payload)
	}
	return fmt.Sprintf("Frame(%v, %s)", f.Type, pay)
}

// FrameType describes the message type of a frame. The four types defined
// here are the complete protocol; all other values are unrecognized and
// protocol fatal to the connection that sends them.
type FrameType uint32

const (
	TypeLogin      FrameType = 0 // Credential check; answered only to the sender
	TypeBroadcast  FrameType = 1 // Fan-out to every registered user
	TypeListOnline FrameType = 2 // Request for the set of registered usernames
	TypeDirect     FrameType = 3 // Unicast to a named registered user
)

func (t FrameType) String() string {
	switch t {
	case TypeLogin:
		return "LOGIN"
	case TypeBroadcast:
		return "BROADCAST"
	case TypeListOnline:
		return "LIST_ONLINE"
	case TypeDirect:
		return "DIRECT"
	default:
		return fmt.Sprintf("TYPE:%d", uint32(t))
	}
}
