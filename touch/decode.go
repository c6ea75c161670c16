// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

// Package touch decodes multi-slot touch report frames into per-finger
// points and provides an interrupt-driven reporter that publishes them.
package touch

import (
	"errors"
	"fmt"
	"sort"
)

const (
	// FrameLen is the fixed raw frame length in bytes.
	FrameLen = 62

	// MaxSlots is the number of finger slots a frame can carry.
	MaxSlots = 10

	// MaxPressure is the protocol ceiling for the pressure field.
	MaxPressure = 255

	sentinelLen = 6
	recStride   = 6

	// 2-bit event type codes in the top bits of the record.
	eventDown = 0x0
	eventMove = 0x2
)

// Bounds is the active area of the panel in pixels.
type Bounds struct {
	MaxX int
	MaxY int
}

// Point is one decoded finger contact.
type Point struct {
	// Slot is the contact slot id, unique within a frame.
	Slot int

	X int
	Y int

	// Pressure is clamped into [1, MaxPressure]; a raw zero is remapped
	// to the minimum, not treated as no touch.
	Pressure int

	// Area is the contact area nibble, minimum 1.
	Area int
}

// Points is a lazy, finite, non-restartable sequence of decoded points.
// It scans the frame buffer slot by slot; once exhausted it stays
// exhausted. Frames are decode-and-discard - nothing is buffered across
// frames.
type Points struct {
	buf    []byte
	bounds Bounds
	rec    int
}

// Decode scans a raw frame. A frame whose leading bytes all carry the
// no-touch sentinel decodes to an empty sequence, not an error.
func Decode(buf []byte, bounds Bounds) (*Points, error) {
	if len(buf) < FrameLen {
		return nil, fmt.Errorf("short frame: %d bytes", len(buf))
	}
	p := Points{buf: buf, bounds: bounds}
	if idleFrame(buf) {
		p.rec = MaxSlots
	}
	return &p, nil
}

// idleFrame reports whether the leading bytes all carry a no-touch
// sentinel value.
func idleFrame(buf []byte) bool {
	for i := 0; i < sentinelLen; i++ {
		if buf[i] != 0xEF && buf[i] != 0xFF {
			return false
		}
	}
	return true
}

// Next returns the next reported point. Records with an invalid slot id,
// an unreported event type or out-of-bounds coordinates are skipped, not
// fatal.
func (p *Points) Next() (Point, bool) {
	for p.rec < MaxSlots {
		base := recStride * p.rec
		p.rec++
		rec := p.buf[base : base+recStride+2]
		slot := int(rec[4] >> 4)
		if slot >= MaxSlots {
			continue
		}
		switch rec[2] >> 6 {
		case eventDown, eventMove:
		default:
			// up and reserved codes report nothing this frame
			continue
		}
		x := int(rec[2]&0xF)<<8 | int(rec[3])
		y := int(rec[4]&0xF)<<8 | int(rec[5])
		if x > p.bounds.MaxX || y > p.bounds.MaxY {
			continue
		}
		pressure := int(rec[6])
		if pressure > MaxPressure {
			pressure = MaxPressure
		}
		if pressure == 0 {
			pressure = 1
		}
		area := int(rec[7] >> 4)
		if area == 0 {
			area = 1
		}
		return Point{Slot: slot, X: x, Y: y, Pressure: pressure, Area: area}, true
	}
	return Point{}, false
}

// Encode builds a frame that decodes back to points, with every point
// carried as a "down" event in ascending slot order. Unused records are
// filled with the sentinel so their slot ids decode as invalid. Intended
// for simulators and tests.
func Encode(points []Point, bounds Bounds) ([]byte, error) {
	if len(points) > MaxSlots {
		return nil, fmt.Errorf("too many points: %d", len(points))
	}
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slot < sorted[j].Slot })
	buf := make([]byte, FrameLen)
	for i := range buf {
		buf[i] = 0xFF
	}
	if len(sorted) == 0 {
		return buf, nil
	}
	// scribble over the sentinel so the frame reads as active
	buf[0] = 0
	buf[1] = 0
	for i, pt := range sorted {
		if i > 0 && pt.Slot == sorted[i-1].Slot {
			return nil, fmt.Errorf("duplicate slot %d", pt.Slot)
		}
		if pt.Slot < 0 || pt.Slot >= MaxSlots {
			return nil, fmt.Errorf("invalid slot %d", pt.Slot)
		}
		if pt.X < 0 || pt.X > bounds.MaxX || pt.Y < 0 || pt.Y > bounds.MaxY {
			return nil, errors.New("point out of bounds")
		}
		if pt.Pressure < 1 || pt.Pressure > MaxPressure {
			return nil, fmt.Errorf("invalid pressure %d", pt.Pressure)
		}
		if pt.Area < 1 || pt.Area > 0xF {
			return nil, fmt.Errorf("invalid area %d", pt.Area)
		}
		base := recStride * i
		buf[base+2] = eventDown<<6 | byte(pt.X>>8)&0xF
		buf[base+3] = byte(pt.X)
		buf[base+4] = byte(pt.Slot)<<4 | byte(pt.Y>>8)&0xF
		buf[base+5] = byte(pt.Y)
		buf[base+6] = byte(pt.Pressure)
		buf[base+7] = byte(pt.Area) << 4
	}
	return buf, nil
}
