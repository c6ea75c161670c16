// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

// Package regseq provides a generic bring-up and register-transaction core
// for register-mapped devices such as camera sensors, display panels and
// touch controllers.
//
// The package models the lifecycle shared by those device families: power
// supplies come up in a declared order, a reset line is pulsed, the chip is
// identified against a ranked list of known protocol variants, an operating
// mode is programmed as an ordered register burst, and finally streaming (or
// reporting) is enabled. Register traffic runs through a transaction engine
// that frames each access for the bus, retries transient faults and
// optionally verifies a CRC trailer.
//
// Example of use:
//
//	x := regseq.NewTxn(tport, regseq.WithAddrWidth(2))
//	d, err := regseq.NewDevice(x, imx766.Profile(),
//		regseq.WithPower(pmic),
//		regseq.WithResetPin(rst),
//	)
//	if err != nil {
//		panic(err)
//	}
//	if err = d.PowerOn(); err != nil {
//		panic(err)
//	}
//	if err = d.Probe(); err != nil {
//		panic(err)
//	}
//	m := imx766.Mode4096x3072()
//	if err = d.ApplyMode(&m); err != nil {
//		panic(err)
//	}
//	err = d.Start()
//
// The bus itself is not implemented here - a Transport is borrowed from the
// platform and is only ever driven while the device lock is held.
package regseq

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Transport is the raw byte-level interface to the bus carrying the device
// registers.
//
// Implementations are not required to be reentrant; the transaction engine
// serializes all access per device.
type Transport interface {
	// Write sends a raw frame to the device.
	Write(tx []byte) error

	// Transfer performs a half-duplex exchange. The reply has the same
	// length as tx; bytes beyond the command portion of tx are clocked as
	// padding and carry the device response on the way back.
	Transfer(tx []byte) ([]byte, error)
}

// Power enables and disables the named supplies powering a device.
type Power interface {
	Enable(name string) error
	Disable(name string) error
}

// Pin drives a single output level, typically the device reset line.
type Pin interface {
	SetLevel(level bool) error
}

// Clock gates the device reference clock.
type Clock interface {
	Enable() error
	Disable() error

	// Rate returns the clock rate in Hz.
	Rate() (uint64, error)
}

// DeviceState is the bring-up state of a device.
type DeviceState int

const (
	// PoweredOff indicates all supplies are down.
	PoweredOff DeviceState = iota

	// Resetting indicates supplies are up and the reset sequence has run,
	// but the chip has not been identified.
	Resetting

	// Detecting indicates an identity probe is in progress.
	Detecting

	// Configured indicates the chip has been identified and accepts mode
	// and control writes.
	Configured

	// Streaming indicates the device is actively producing output.
	Streaming

	// Suspended indicates power has been removed but the last applied
	// mode is retained for re-apply on resume.
	Suspended

	// Faulted indicates an unrecoverable error; only a full power cycle
	// clears it.
	Faulted
)

func (s DeviceState) String() string {
	switch s {
	case PoweredOff:
		return "powered-off"
	case Resetting:
		return "resetting"
	case Detecting:
		return "detecting"
	case Configured:
		return "configured"
	case Streaming:
		return "streaming"
	case Suspended:
		return "suspended"
	case Faulted:
		return "faulted"
	}
	return "unknown"
}

// Class identifies the device family a profile describes. It determines
// nothing by itself - reset and enable behavior is data on the profile -
// but is reported in logs and by the CLI tools.
type Class int

const (
	// SensorClass covers CSI2 camera sensors.
	SensorClass Class = iota

	// PanelClass covers DSI display panels.
	PanelClass

	// TouchClass covers touch controllers.
	TouchClass
)

func (c Class) String() string {
	switch c {
	case SensorClass:
		return "sensor"
	case PanelClass:
		return "panel"
	case TouchClass:
		return "touch"
	}
	return "unknown"
}

// ResetStep is one step of a reset line sequence: the level to drive and
// how long to hold it before the next step.
type ResetStep struct {
	Level bool
	Hold  time.Duration
}

// Reg names a register and the width of its value in bytes.
type Reg struct {
	Addr  uint16
	Width uint
}

// Identity describes one protocol variant of a chip: an optional setup
// burst, the registers whose concatenated contents form the chip id, and
// the id the variant matches. Variants are probed in ranked order; the
// first match wins.
type Identity struct {
	// Variant names the protocol variant, e.g. "app" or "romboot".
	Variant string

	// Setup is written before the identity read. May be nil.
	Setup RegisterList

	// SetupHold is the settle time after Setup.
	SetupHold time.Duration

	// Reads are performed in order; each value is shifted into the id
	// most-significant first.
	Reads []Reg

	// ID is the expected chip id.
	ID uint32
}

// Profile is the static bring-up description of a device model. Profiles
// are plain data; the device packages under device/ construct them.
type Profile struct {
	Name  string
	Class Class

	// Supplies are enabled in order on power-on and disabled in reverse
	// on power-off.
	Supplies []string

	// SupplySettle is the settle time after the last supply comes up.
	SupplySettle time.Duration

	// Reset is the reset line sequence run after the supplies settle.
	Reset []ResetStep

	// UseClock enables the reference clock after the reset sequence.
	UseClock bool

	// ClockSettle is the settle time after the clock comes up.
	ClockSettle time.Duration

	// Identities are the known protocol variants, ranked.
	Identities []Identity

	// StartHold is the settle time before the start burst.
	StartHold time.Duration

	// StartOps enables output (stream on, display on). May be empty for
	// devices that report as soon as they are configured.
	StartOps RegisterList

	// StopOps disables output without removing power.
	StopOps RegisterList

	// SuspendOps are written best-effort before power is removed on
	// suspend (e.g. a controller sleep command).
	SuspendOps RegisterList

	// Controls describes the exposure/gain/vblank pipeline. Nil for
	// devices without controls.
	Controls *ControlLayout
}

// Device is the bring-up context for a single physical device.
//
// All state-mutating operations hold an exclusive per-device lock for their
// duration; the transport is only driven from within that lock.
type Device struct {
	mu    sync.Mutex
	x     *Txn
	prof  Profile
	power Power
	reset Pin
	clock Clock
	log   *zap.Logger

	state   DeviceState
	variant string
	mode    *Mode

	// control values, valid while a mode is applied
	vblank   int
	exposure int
	gain     int

	closed bool
}

// NewDevice creates the bring-up context for one device.
//
// The transaction engine is borrowed, not owned; collaborators for power,
// reset and clock are provided as options and default to no-ops so that
// hosts which manage those rails externally need not wire them.
func NewDevice(x *Txn, prof Profile, options ...DeviceOption) (*Device, error) {
	if x == nil {
		return nil, ErrNoTransport
	}
	d := Device{
		x:     x,
		prof:  prof,
		power: nopPower{},
		reset: nopPin{},
		clock: nopClock{},
		log:   zap.NewNop(),
		state: PoweredOff,
	}
	for _, option := range options {
		option.applyDeviceOption(&d)
	}
	return &d, nil
}

// Close marks the device unusable. It does not alter device power.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	return nil
}

// State returns the current bring-up state.
func (d *Device) State() DeviceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Variant returns the identity variant matched by the last successful
// probe, or the empty string.
func (d *Device) Variant() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.variant
}

// PowerOn drives the power-on sequence: supplies in declared order, settle,
// reset sequence, then the reference clock. The device is left in Resetting,
// ready for Probe.
func (d *Device) PowerOn() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.state != PoweredOff {
		return &InvalidStateError{Op: "power-on", State: d.state}
	}
	return d.powerOn()
}

func (d *Device) powerOn() error {
	for i, s := range d.prof.Supplies {
		if err := d.power.Enable(s); err != nil {
			// back out the supplies already up
			for j := i - 1; j >= 0; j-- {
				d.power.Disable(d.prof.Supplies[j])
			}
			return err
		}
	}
	sleep(d.prof.SupplySettle)
	for _, step := range d.prof.Reset {
		if err := d.reset.SetLevel(step.Level); err != nil {
			return err
		}
		sleep(step.Hold)
	}
	if d.prof.UseClock {
		if err := d.clock.Enable(); err != nil {
			return err
		}
		sleep(d.prof.ClockSettle)
	}
	d.state = Resetting
	d.log.Info("powered on", zap.String("device", d.prof.Name))
	return nil
}

// PowerOff removes power from the device regardless of its current state
// and discards the applied mode. This is the recovery path from Faulted.
func (d *Device) PowerOff() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.powerOff()
	d.state = PoweredOff
	d.mode = nil
	d.variant = ""
	return nil
}

// powerOff tears down the rails in reverse of power-on order. Errors from
// the collaborators are deliberately dropped; teardown always completes.
func (d *Device) powerOff() {
	if d.prof.UseClock {
		d.clock.Disable()
	}
	d.reset.SetLevel(false)
	for i := len(d.prof.Supplies) - 1; i >= 0; i-- {
		d.power.Disable(d.prof.Supplies[i])
	}
	d.log.Info("powered off", zap.String("device", d.prof.Name))
}

// Probe identifies the chip by trying each identity variant in ranked
// order. A read failure on one variant moves to the next; if no variant
// matches the device faults and ErrDeviceNotFound is returned.
func (d *Device) Probe() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.state != Resetting {
		return &InvalidStateError{Op: "probe", State: d.state}
	}
	return d.probe()
}

func (d *Device) probe() error {
	d.state = Detecting
	for _, ident := range d.prof.Identities {
		id, err := d.readIdentity(ident)
		if err != nil {
			d.log.Debug("identity read failed",
				zap.String("variant", ident.Variant),
				zap.Error(err))
			continue
		}
		if id == ident.ID {
			d.variant = ident.Variant
			d.state = Configured
			d.log.Info("device detected",
				zap.String("device", d.prof.Name),
				zap.String("variant", ident.Variant),
				zap.Uint32("id", id))
			return nil
		}
		d.log.Debug("identity mismatch",
			zap.String("variant", ident.Variant),
			zap.Uint32("want", ident.ID),
			zap.Uint32("got", id))
	}
	d.state = Faulted
	return ErrDeviceNotFound
}

func (d *Device) readIdentity(ident Identity) (uint32, error) {
	if len(ident.Setup) != 0 {
		if err := d.x.WriteBurst(ident.Setup); err != nil {
			return 0, err
		}
		sleep(ident.SetupHold)
	}
	var id uint32
	for _, r := range ident.Reads {
		v, err := d.x.Read(r.Addr, r.Width)
		if err != nil {
			return 0, err
		}
		id = id<<(8*r.Width) | v
	}
	return id, nil
}

// ApplyMode programs the mode's full register list and records it as the
// current mode. On any write failure the previous mode remains recorded and
// the device faults; the hardware register state is indeterminate and a
// power cycle is required before retrying.
func (d *Device) ApplyMode(m *Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.state != Configured {
		return &InvalidStateError{Op: "apply-mode", State: d.state}
	}
	return d.applyMode(m)
}

func (d *Device) applyMode(m *Mode) error {
	if err := d.x.WriteBurst(m.Regs); err != nil {
		d.state = Faulted
		return err
	}
	d.mode = m
	if lay := d.prof.Controls; lay != nil {
		d.vblank = m.DefaultVBlank()
		d.exposure = lay.ExposureDefault
		if max := d.exposureMax(); d.exposure > max {
			d.exposure = max
		}
		d.gain = lay.GainDefault
	}
	d.log.Info("mode applied",
		zap.String("device", d.prof.Name),
		zap.String("mode", m.Name))
	return nil
}

// CurrentMode returns the applied mode, or nil.
func (d *Device) CurrentMode() *Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Start enables output. A mode must have been applied. On failure the
// device faults and the power-off sequence is run; the state remains
// Faulted until an explicit power cycle.
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.state != Configured {
		return &InvalidStateError{Op: "start", State: d.state}
	}
	if d.mode == nil {
		return ErrNoMode
	}
	sleep(d.prof.StartHold)
	if err := d.x.WriteBurst(d.prof.StartOps); err != nil {
		d.state = Faulted
		d.powerOff()
		return err
	}
	d.state = Streaming
	d.log.Info("streaming", zap.String("device", d.prof.Name))
	return nil
}

// Stop disables output, leaving the device powered and configured.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.state != Streaming {
		return &InvalidStateError{Op: "stop", State: d.state}
	}
	if err := d.x.WriteBurst(d.prof.StopOps); err != nil {
		d.state = Faulted
		return err
	}
	d.state = Configured
	return nil
}

// Suspend removes power in reverse of the power-on order. The applied mode
// is retained so Resume can restore it; the hardware loses all register
// state across suspend.
func (d *Device) Suspend() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.state != Configured && d.state != Streaming {
		return &InvalidStateError{Op: "suspend", State: d.state}
	}
	// best effort - the controller may honor a sleep command before the
	// rails drop, but suspend proceeds regardless.
	if len(d.prof.SuspendOps) != 0 {
		if err := d.x.WriteBurst(d.prof.SuspendOps); err != nil {
			d.log.Warn("suspend ops failed", zap.Error(err))
		}
	}
	d.powerOff()
	d.state = Suspended
	return nil
}

// Resume re-runs the power-on path, re-probes the chip and re-applies the
// mode retained by Suspend. The device is left Configured; the caller
// restarts streaming.
func (d *Device) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.state != Suspended {
		return &InvalidStateError{Op: "resume", State: d.state}
	}
	if err := d.powerOn(); err != nil {
		return err
	}
	if err := d.probe(); err != nil {
		return err
	}
	if d.mode != nil {
		return d.applyMode(d.mode)
	}
	return nil
}

// sleep models the fixed settle delays of the bring-up sequences. These
// are suspension points, not spin loops; independent devices continue to
// make progress while one sleeps.
func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

type nopPower struct{}

func (nopPower) Enable(string) error  { return nil }
func (nopPower) Disable(string) error { return nil }

type nopPin struct{}

func (nopPin) SetLevel(bool) error { return nil }

type nopClock struct{}

func (nopClock) Enable() error         { return nil }
func (nopClock) Disable() error        { return nil }
func (nopClock) Rate() (uint64, error) { return 0, nil }
