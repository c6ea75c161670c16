// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

package regseq

// RegisterOp is the atomic unit of a register list: one value of the given
// width in bytes written to one address.
type RegisterOp struct {
	Addr  uint16
	Val   uint32
	Width uint
}

// RegisterList is an ordered sequence of register writes applied as one
// logical unit of device configuration. Ordering is significant - later
// writes may depend on earlier ones, such as page selects - and lists must
// not be modified once handed to a Device or Txn.
type RegisterList []RegisterOp

// Mode is a named operating mode and the register list that programs it: a
// sensor resolution, a panel on-sequence, a controller configuration. A
// device has at most one current mode at a time.
type Mode struct {
	Name string

	// Frame geometry in pixels. Zero for modeless device families.
	Width  int
	Height int

	// FrameLength is the default total lines per frame (frame height plus
	// default vertical blanking).
	FrameLength int

	// VBlankMin and VBlankMax bound the VBlank control in this mode.
	VBlankMin int
	VBlankMax int

	// Regs programs the mode. The full list is always written on apply -
	// switching between modes with overlapping prefixes still rewrites
	// everything, which keeps the result reproducible.
	Regs RegisterList
}

// DefaultVBlank returns the vertical blanking implied by the default frame
// length.
func (m *Mode) DefaultVBlank() int {
	return m.FrameLength - m.Height
}
