// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

package regseq

// ControlKind identifies a logical control parameter.
type ControlKind int

const (
	// Exposure is the integration time in lines.
	Exposure ControlKind = iota

	// AnalogGain is the sensor analog gain code.
	AnalogGain

	// VBlank is the vertical blanking in lines. Changing it republishes
	// the legal exposure range.
	VBlank
)

func (k ControlKind) String() string {
	switch k {
	case Exposure:
		return "exposure"
	case AnalogGain:
		return "analog gain"
	case VBlank:
		return "vblank"
	}
	return "unknown"
}

// ControlLayout describes the registers and constants of the control
// pipeline for one sensor model.
type ControlLayout struct {
	// HoldReg brackets grouped writes; 1 engages the hold, 0 releases it
	// and latches the group atomically at the next frame boundary.
	HoldReg uint16

	// FrameLenReg receives the derived lines-per-frame value
	// (vblank + frame height).
	FrameLenReg uint16

	ExposureReg uint16
	GainReg     uint16

	ExposureMin     int
	ExposureDefault int

	// ExposureOffset is the margin the frame length must keep above the
	// exposure: exposureMax = vblank + height - ExposureOffset.
	ExposureOffset int

	GainMin     int
	GainMax     int
	GainDefault int
}

// SetControl validates value against the range implied by the current mode
// and applies it.
//
// Exposure and gain form a hold group: the update writes hold=1, the
// derived frame length, the exposure, the gain, then hold=0. The hold
// release is always attempted, even after a member write fails, and the
// first error is surfaced. VBlank changes take effect through the next
// group update; their immediate effect is recomputing the exposure range.
//
// Rejected values issue no register write. Control writes are only legal
// while the device is Configured or Streaming.
func (d *Device) SetControl(kind ControlKind, value int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.state != Configured && d.state != Streaming {
		return &InvalidStateError{Op: "set-control", State: d.state}
	}
	if d.prof.Controls == nil {
		return ErrNoControls
	}
	if d.mode == nil {
		return ErrNoMode
	}
	min, max, ok := d.controlRange(kind)
	if !ok {
		return ErrUnknownControl
	}
	if value < min || value > max {
		return &OutOfRangeError{Kind: kind, Value: value, Min: min, Max: max}
	}
	switch kind {
	case VBlank:
		d.vblank = value
		// the exposure ceiling moved; clamp the pending exposure so the
		// next group update stays legal.
		if max := d.exposureMax(); d.exposure > max {
			d.exposure = max
		}
		return nil
	case Exposure:
		d.exposure = value
	case AnalogGain:
		d.gain = value
	}
	return d.updateExposureGain()
}

// ControlRange returns the legal range for kind under the current mode.
func (d *Device) ControlRange(kind ControlKind) (min, max int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, 0, ErrClosed
	}
	if d.prof.Controls == nil {
		return 0, 0, ErrNoControls
	}
	if d.mode == nil {
		return 0, 0, ErrNoMode
	}
	min, max, ok := d.controlRange(kind)
	if !ok {
		return 0, 0, ErrUnknownControl
	}
	return min, max, nil
}

func (d *Device) controlRange(kind ControlKind) (int, int, bool) {
	lay := d.prof.Controls
	switch kind {
	case Exposure:
		return lay.ExposureMin, d.exposureMax(), true
	case AnalogGain:
		return lay.GainMin, lay.GainMax, true
	case VBlank:
		return d.mode.VBlankMin, d.mode.VBlankMax, true
	}
	return 0, 0, false
}

func (d *Device) exposureMax() int {
	return d.vblank + d.mode.Height - d.prof.Controls.ExposureOffset
}

// updateExposureGain writes the hold group: frame length first, then
// exposure, then gain. A member failure aborts the remaining members but
// the release write still runs before the error surfaces.
func (d *Device) updateExposureGain() error {
	lay := d.prof.Controls
	fll := d.vblank + d.mode.Height
	if err := d.x.Write(lay.HoldReg, 1, 1); err != nil {
		return err
	}
	err := d.x.Write(lay.FrameLenReg, uint32(fll), 2)
	if err == nil {
		err = d.x.Write(lay.ExposureReg, uint32(d.exposure), 2)
	}
	if err == nil {
		err = d.x.Write(lay.GainReg, uint32(d.gain), 2)
	}
	rerr := d.x.Write(lay.HoldReg, 0, 1)
	if err != nil {
		return err
	}
	return rerr
}
