// Package control encodes browser-originated input events into the
// device agent's binary control protocol and serializes them onto the
// control socket from a single writer goroutine. Grounded on the
// teacher's service/control.go (SerializeKeycode/SerializeText/
// SerializeClipboard), extended with Scroll in the same idiom and
// retyped to spec.md §4.H's wire layout and type constants, which
// differ slightly from the teacher's (clipboard is type 8, not 9).
package control

import (
	"encoding/binary"
	"math"
)

// Message type tags, spec.md §4.H.
const (
	TypeKey          = 0
	TypeText         = 1
	TypeTouch        = 2
	TypeScroll       = 3
	TypeSetClipboard = 8
)

// Android motion event actions (AMOTION_EVENT_ACTION_*).
const (
	ActionDown = 0
	ActionUp   = 1
	ActionMove = 2
)

// scrollUnit is the logical-to-wire scale factor for scroll deltas,
// per spec.md §4.H: "each logical unit equals 2048".
const scrollUnit = 2048

// Touch describes a single pointer event in normalized device-independent
// coordinates, as received from a browser client.
type Touch struct {
	Action    uint8
	PointerID int64
	NormX     float64
	NormY     float64
	Width     uint16
	Height    uint16
	Pressure  float64
}

// EncodeTouch renders t as the 32-byte wire format from spec.md §4.H.
func EncodeTouch(t Touch) []byte {
	buf := make([]byte, 32)
	buf[0] = TypeTouch
	buf[1] = t.Action

	binary.BigEndian.PutUint64(buf[2:10], uint64(t.PointerID))

	x := uint32(math.Round(t.NormX * float64(t.Width)))
	y := uint32(math.Round(t.NormY * float64(t.Height)))
	binary.BigEndian.PutUint32(buf[10:14], x)
	binary.BigEndian.PutUint32(buf[14:18], y)

	binary.BigEndian.PutUint16(buf[18:20], t.Width)
	binary.BigEndian.PutUint16(buf[20:22], t.Height)

	pressureQ16 := uint16(math.Round(clamp01(t.Pressure) * 0xFFFF))
	binary.BigEndian.PutUint16(buf[22:24], pressureQ16)

	actionButton, buttons := touchButtons(t.PointerID, t.Action)
	binary.BigEndian.PutUint32(buf[24:28], actionButton)
	binary.BigEndian.PutUint32(buf[28:32], buttons)

	return buf
}

// touchButtons implements spec.md §4.H's pointer_id-dependent
// action_button/buttons rule: mouse mode (pointer_id == -1) reports a
// primary-button press; finger mode (pointer_id >= 0) reports none.
func touchButtons(pointerID int64, action uint8) (actionButton, buttons uint32) {
	if pointerID != -1 {
		return 0, 0
	}
	actionButton = 1
	if action == ActionUp {
		buttons = 0
	} else {
		buttons = 1
	}
	return actionButton, buttons
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Key describes a keyboard event.
type Key struct {
	Action    uint8
	Keycode   uint32
	Repeat    uint32
	MetaState uint32
}

// EncodeKey renders k as the 14-byte wire format from spec.md §4.H.
func EncodeKey(k Key) []byte {
	buf := make([]byte, 14)
	buf[0] = TypeKey
	buf[1] = k.Action
	binary.BigEndian.PutUint32(buf[2:6], k.Keycode)
	binary.BigEndian.PutUint32(buf[6:10], k.Repeat)
	binary.BigEndian.PutUint32(buf[10:14], k.MetaState)
	return buf
}

// Scroll describes a wheel/trackpad scroll event in normalized device
// coordinates and logical scroll units.
type Scroll struct {
	NormX   float64
	NormY   float64
	Width   uint16
	Height  uint16
	HScroll float64
	VScroll float64
	Buttons uint32
}

// EncodeScroll renders s as the 21-byte wire format from spec.md §4.H
// (not the 25-byte pixel-float layout the original implementation
// used — spec.md's quantized form is authoritative here).
func EncodeScroll(s Scroll) []byte {
	buf := make([]byte, 21)
	buf[0] = TypeScroll

	x := int32(math.Round(s.NormX * float64(s.Width)))
	y := int32(math.Round(s.NormY * float64(s.Height)))
	binary.BigEndian.PutUint32(buf[1:5], uint32(x))
	binary.BigEndian.PutUint32(buf[5:9], uint32(y))

	binary.BigEndian.PutUint16(buf[9:11], s.Width)
	binary.BigEndian.PutUint16(buf[11:13], s.Height)

	binary.BigEndian.PutUint16(buf[13:15], uint16(quantizeScroll(s.HScroll)))
	binary.BigEndian.PutUint16(buf[15:17], uint16(quantizeScroll(s.VScroll)))

	binary.BigEndian.PutUint32(buf[17:21], s.Buttons)
	return buf
}

// quantizeScroll multiplies a logical scroll delta by scrollUnit and
// clamps the result to the signed-16 range, per spec.md §4.H.
func quantizeScroll(v float64) int16 {
	scaled := math.Round(v * scrollUnit)
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int16(scaled)
}

// EncodeText renders text as the `5+len(text)`-byte wire format from
// spec.md §4.H.
func EncodeText(text string) []byte {
	raw := []byte(text)
	buf := make([]byte, 5+len(raw))
	buf[0] = TypeText
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(raw)))
	copy(buf[5:], raw)
	return buf
}

// EncodeSetClipboard renders text as the `14+len(text)`-byte wire
// format from spec.md §4.H. sequence may be zero when the caller does
// not need an acknowledgement.
func EncodeSetClipboard(text string, paste bool, sequence uint64) []byte {
	raw := []byte(text)
	buf := make([]byte, 14+len(raw))
	buf[0] = TypeSetClipboard
	binary.BigEndian.PutUint64(buf[1:9], sequence)
	if paste {
		buf[9] = 1
	}
	binary.BigEndian.PutUint32(buf[10:14], uint32(len(raw)))
	copy(buf[14:], raw)
	return buf
}
