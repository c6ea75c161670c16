// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

// Package vtdr6130 describes the CSOT VTDR6130 AMOLED display panel: DCS
// command channel, triple-phase reset, and the on/off command sequences.
package vtdr6130

import (
	"time"

	"github.com/OPERA70R/regseq"
)

// Standard DCS commands used by the panel.
const (
	CmdSleepIn    = 0x10
	CmdSleepOut   = 0x11
	CmdDisplayOff = 0x28
	CmdDisplayOn  = 0x29
)

const (
	Width  = 1080
	Height = 2400
)

// TxnOptions returns the transaction engine configuration for the DCS
// command channel: plain framing, 8-bit commands.
func TxnOptions() []regseq.TxnOption {
	return nil
}

// Profile returns the bring-up profile. Panels carry no readable identity
// register on this command channel; the probe variant matches the sleep-out
// readiness flag reported at 0x0A (power mode, display normal bit clear
// before init).
func Profile() regseq.Profile {
	return regseq.Profile{
		Name:         "vtdr6130",
		Class:        regseq.PanelClass,
		Supplies:     []string{"vdd", "vddio", "dvdd"},
		SupplySettle: time.Millisecond,
		// the panel wants reset asserted low, a short high pulse, then
		// low again before the init sequence
		Reset: []regseq.ResetStep{
			{Level: false, Hold: 11 * time.Millisecond},
			{Level: true, Hold: time.Millisecond},
			{Level: false, Hold: 11 * time.Millisecond},
		},
		Identities: []regseq.Identity{
			{
				Variant: "dcs",
				Reads:   []regseq.Reg{{Addr: 0x0A, Width: 1}},
				ID:      0x08,
			},
		},
		StartHold: 50 * time.Millisecond,
		StartOps: regseq.RegisterList{
			{Addr: CmdDisplayOn},
		},
		StopOps: regseq.RegisterList{
			{Addr: CmdDisplayOff},
		},
		SuspendOps: regseq.RegisterList{
			{Addr: CmdSleepIn},
		},
	}
}

// OnMode returns the panel on-sequence as its sole mode. The sequence is
// the vendor init table, abridged to the unlock, timing and enable groups;
// one-byte DCS parameters map directly onto register ops.
func OnMode() regseq.Mode {
	return regseq.Mode{
		Name:   "on",
		Width:  Width,
		Height: Height,
		Regs:   onSeq,
	}
}

var onSeq = regseq.RegisterList{
	// level-2 command unlock
	{Addr: 0xF0, Val: 0x55AA5208, Width: 4},
	{Addr: 0x6F, Val: 0x00, Width: 1},
	{Addr: 0xB2, Val: 0x58, Width: 1},
	{Addr: 0x6F, Val: 0x02, Width: 1},
	{Addr: 0xB2, Val: 0x0C0C, Width: 2},
	{Addr: 0xBE, Val: 0x0E0B1413, Width: 4},
	{Addr: 0x6F, Val: 0x05, Width: 1},
	{Addr: 0xBE, Val: 0x8A, Width: 1},
	{Addr: 0xC0, Val: 0x66, Width: 1},
	{Addr: 0x6F, Val: 0x08, Width: 1},
	{Addr: 0xB5, Val: 0x32, Width: 1},
	// timing
	{Addr: 0x3B, Val: 0x00100030, Width: 4},
	{Addr: 0xD2, Val: 0x000011, Width: 3},
	// scanline and dimming
	{Addr: 0x6F, Val: 0x10, Width: 1},
	{Addr: 0xEC, Val: 0x8010, Width: 2},
	{Addr: 0xEC, Val: 0x0D11, Width: 2},
	// sleep out; the start hold gives the panel its wake settle
	{Addr: CmdSleepOut},
}
