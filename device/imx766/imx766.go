// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

// Package imx766 describes the Sony IMX766 CSI2 camera sensor: 16-bit
// register map, group-held exposure/gain controls and the 4096x3072
// full-resolution mode.
package imx766

import (
	"time"

	"github.com/OPERA70R/regseq"
)

const (
	// RegModeSelect starts and stops the sensor stream.
	RegModeSelect = 0x0100
	ModeStandby   = 0x00
	ModeStreaming = 0x01

	// RegID holds the chip identity.
	RegID  = 0x0016
	ChipID = 0x0766

	// RegFrameLength is the lines-per-frame register.
	RegFrameLength = 0x0340

	// RegExposure is the coarse integration time.
	RegExposure = 0x0202

	// RegAnalogGain is the analog gain code.
	RegAnalogGain = 0x0204

	// RegHold brackets grouped control writes.
	RegHold = 0x0104

	ExposureMin     = 8
	ExposureDefault = 0x0648

	// ExposureOffset is the margin the frame length keeps above the
	// integration time.
	ExposureOffset = 22

	GainMin = 0
	GainMax = 978

	// InClkRate is the required input clock rate in Hz.
	InClkRate = 19200000
)

// TxnOptions returns the transaction engine configuration for the sensor:
// plain register framing with 16-bit addresses and big-endian values.
func TxnOptions() []regseq.TxnOption {
	return []regseq.TxnOption{
		regseq.WithAddrWidth(2),
	}
}

// Profile returns the bring-up profile.
func Profile() regseq.Profile {
	return regseq.Profile{
		Name:     "imx766",
		Class:    regseq.SensorClass,
		Supplies: []string{"vana", "vif", "vdig"},
		Reset: []regseq.ResetStep{
			{Level: true},
		},
		UseClock:    true,
		ClockSettle: time.Millisecond,
		Identities: []regseq.Identity{
			{
				Variant: "imx766",
				Reads:   []regseq.Reg{{Addr: RegID, Width: 2}},
				ID:      ChipID,
			},
		},
		StartHold: 7400 * time.Microsecond,
		StartOps: regseq.RegisterList{
			{Addr: RegModeSelect, Val: ModeStreaming, Width: 1},
		},
		StopOps: regseq.RegisterList{
			{Addr: RegModeSelect, Val: ModeStandby, Width: 1},
		},
		Controls: &regseq.ControlLayout{
			HoldReg:         RegHold,
			FrameLenReg:     RegFrameLength,
			ExposureReg:     RegExposure,
			GainReg:         RegAnalogGain,
			ExposureMin:     ExposureMin,
			ExposureDefault: ExposureDefault,
			ExposureOffset:  ExposureOffset,
			GainMin:         GainMin,
			GainMax:         GainMax,
			GainDefault:     GainMin,
		},
	}
}

// Mode4096x3072 returns the full-resolution mode. The register list is the
// sensor vendor sequence, abridged to the clock, signaling and geometry
// groups; the full table ships with the board support data.
func Mode4096x3072() regseq.Mode {
	return regseq.Mode{
		Name:        "4096x3072",
		Width:       4096,
		Height:      3072,
		FrameLength: 4098,
		VBlankMin:   1026,
		VBlankMax:   62463,
		Regs:        mode4096x3072Regs,
	}
}

var mode4096x3072Regs = regseq.RegisterList{
	// external clock
	{Addr: 0x0136, Val: 0x18, Width: 1},
	{Addr: 0x0137, Val: 0x00, Width: 1},
	// register version
	{Addr: 0x33F0, Val: 0x03, Width: 1},
	{Addr: 0x33F1, Val: 0x08, Width: 1},
	// signaling mode
	{Addr: 0x0111, Val: 0x03, Width: 1},
	// global settings
	{Addr: 0x33D3, Val: 0x01, Width: 1},
	{Addr: 0x3892, Val: 0x01, Width: 1},
	{Addr: 0x4C14, Val: 0x00, Width: 1},
	{Addr: 0x4C15, Val: 0x07, Width: 1},
	{Addr: 0x4C16, Val: 0x00, Width: 1},
	{Addr: 0x4C17, Val: 0x1B, Width: 1},
	{Addr: 0x4C1A, Val: 0x00, Width: 1},
	{Addr: 0x4C1B, Val: 0x03, Width: 1},
	{Addr: 0x4C1C, Val: 0x00, Width: 1},
	{Addr: 0x4C1D, Val: 0x00, Width: 1},
	{Addr: 0x4C1E, Val: 0x00, Width: 1},
	{Addr: 0x4C1F, Val: 0x02, Width: 1},
	{Addr: 0x4C20, Val: 0x00, Width: 1},
	{Addr: 0x4C21, Val: 0x5F, Width: 1},
	{Addr: 0x4C26, Val: 0x00, Width: 1},
	{Addr: 0x4C27, Val: 0x43, Width: 1},
	{Addr: 0x4C28, Val: 0x00, Width: 1},
	{Addr: 0x4C29, Val: 0x09, Width: 1},
	// geometry
	{Addr: 0x0340, Val: 0x10, Width: 1},
	{Addr: 0x0341, Val: 0x02, Width: 1},
	{Addr: 0x0342, Val: 0x3D, Width: 1},
	{Addr: 0x0343, Val: 0x00, Width: 1},
	{Addr: 0x0344, Val: 0x00, Width: 1},
	{Addr: 0x0345, Val: 0x00, Width: 1},
	{Addr: 0x0346, Val: 0x00, Width: 1},
	{Addr: 0x0347, Val: 0x00, Width: 1},
	{Addr: 0x0348, Val: 0x0F, Width: 1},
	{Addr: 0x0349, Val: 0xFF, Width: 1},
	{Addr: 0x034A, Val: 0x0B, Width: 1},
	{Addr: 0x034B, Val: 0xFF, Width: 1},
	// exposure and gain defaults
	{Addr: 0x0202, Val: 0x06, Width: 1},
	{Addr: 0x0203, Val: 0x48, Width: 1},
	{Addr: 0x0204, Val: 0x00, Width: 1},
	{Addr: 0x0205, Val: 0x00, Width: 1},
}
