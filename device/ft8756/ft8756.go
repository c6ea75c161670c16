// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

// Package ft8756 describes the FocalTech FT8756 touch controller: framed
// SPI register protocol with CRC read trailers, ranked identity variants,
// and the 62-byte multi-slot report frame.
package ft8756

import (
	"time"

	"github.com/OPERA70R/regseq"
	"github.com/OPERA70R/regseq/touch"
)

const (
	// RegPointData is the report frame base address.
	RegPointData = 0x01

	// RegPowerMode selects the controller power mode.
	RegPowerMode = 0xA5

	// PowerModeSleep is the deep-sleep power mode.
	PowerModeSleep = 0x03

	// identity registers of the application protocol
	RegIDHigh = 0xA3
	RegIDLow  = 0x9F

	// ChipID is the application protocol identity.
	ChipID = 0x5652

	// romboot fallback protocol
	RegBootStart = 0x55
	BootStartVal = 0xAA
	RegBootID    = 0x90

	// BootChipID is the romboot protocol identity.
	BootChipID = 0x8756

	// MaxWidth and MaxHeight are the default panel bounds.
	MaxWidth  = 1080
	MaxHeight = 2400
)

// Bounds returns the default active area.
func Bounds() touch.Bounds {
	return touch.Bounds{MaxX: MaxWidth - 1, MaxY: MaxHeight - 1}
}

// TxnOptions returns the transaction engine configuration for the
// controller: framed commands with CRC-verified reads and the vendor retry
// policy.
func TxnOptions() []regseq.TxnOption {
	return []regseq.TxnOption{
		regseq.AsFramed,
		regseq.WithCRC,
		regseq.WithRetries(3),
		regseq.WithRetryDelay(150 * time.Microsecond),
	}
}

// Profile returns the bring-up profile. The returned value is fresh on
// every call; callers may attach it to exactly one device context.
func Profile() regseq.Profile {
	return regseq.Profile{
		Name:         "ft8756",
		Class:        regseq.TouchClass,
		Supplies:     []string{"vio", "lab", "ibb"},
		SupplySettle: 10 * time.Millisecond,
		Reset: []regseq.ResetStep{
			{Level: false, Hold: time.Millisecond},
			{Level: true, Hold: 200 * time.Millisecond},
		},
		Identities: []regseq.Identity{
			{
				Variant: "app",
				Reads: []regseq.Reg{
					{Addr: RegIDHigh, Width: 1},
					{Addr: RegIDLow, Width: 1},
				},
				ID: ChipID,
			},
			{
				Variant: "romboot",
				Setup: regseq.RegisterList{
					{Addr: RegBootStart, Val: BootStartVal, Width: 1},
				},
				SetupHold: 15 * time.Millisecond,
				Reads: []regseq.Reg{
					{Addr: RegBootID, Width: 2},
				},
				ID: BootChipID,
			},
		},
		SuspendOps: regseq.RegisterList{
			{Addr: RegPowerMode, Val: PowerModeSleep, Width: 1},
		},
	}
}

// ReportMode returns the single operating mode of the controller. The
// firmware needs no mode registers once identified; the mode records the
// report geometry.
func ReportMode() regseq.Mode {
	return regseq.Mode{
		Name:   "report",
		Width:  MaxWidth,
		Height: MaxHeight,
	}
}
