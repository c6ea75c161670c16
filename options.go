// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

package regseq

import (
	"time"

	"go.uber.org/zap"
)

// TxnOption defines the interface required to provide a Txn option.
type TxnOption interface {
	applyTxnOption(*Txn)
}

// DeviceOption defines the interface required to provide a Device option.
type DeviceOption interface {
	applyDeviceOption(*Device)
}

// RetriesOption sets the attempt budget for transient faults.
type RetriesOption int

// WithRetries sets the attempt budget for transient faults.
func WithRetries(n int) RetriesOption {
	return RetriesOption(n)
}

func (o RetriesOption) applyTxnOption(x *Txn) {
	x.attempts = int(o)
}

// RetryDelayOption sets the fixed inter-attempt delay.
type RetryDelayOption time.Duration

// WithRetryDelay sets the fixed inter-attempt delay.
func WithRetryDelay(d time.Duration) RetryDelayOption {
	return RetryDelayOption(d)
}

func (o RetryDelayOption) applyTxnOption(x *Txn) {
	x.delay = time.Duration(o)
}

// AddrWidthOption sets the register address width in bytes.
type AddrWidthOption uint

// WithAddrWidth sets the register address width in bytes (1 or 2).
// Addresses are always packed most-significant byte first.
func WithAddrWidth(w uint) AddrWidthOption {
	return AddrWidthOption(w)
}

func (o AddrWidthOption) applyTxnOption(x *Txn) {
	x.addrWidth = uint(o)
}

// LittleEndianOption selects little-endian register values.
type LittleEndianOption struct{}

// AsLittleEndian selects little-endian register values. The default is
// big-endian, the convention of the sensor and panel families.
var AsLittleEndian = LittleEndianOption{}

func (o LittleEndianOption) applyTxnOption(x *Txn) {
	x.le = true
}

// FramedOption selects the framed command protocol with status replies.
type FramedOption struct{}

// AsFramed selects the framed command protocol: each exchange carries a
// command header and the reply carries a busy/error status byte. This is
// the touch controller convention; the plain default matches the sensor
// and panel register map convention.
var AsFramed = FramedOption{}

func (o FramedOption) applyTxnOption(x *Txn) {
	x.framed = true
}

// CRCOption enables the CRC trailer on framed reads.
type CRCOption struct{}

// WithCRC enables CRC verification of framed read replies. A mismatch is
// transient and consumes the same retry budget as transport faults.
var WithCRC = CRCOption{}

func (o CRCOption) applyTxnOption(x *Txn) {
	x.crc = true
}

// PowerOption provides the supply collaborator for a device.
type PowerOption struct {
	p Power
}

// WithPower provides the supply collaborator for a device.
func WithPower(p Power) PowerOption {
	return PowerOption{p: p}
}

func (o PowerOption) applyDeviceOption(d *Device) {
	d.power = o.p
}

// ResetPinOption provides the reset line collaborator for a device.
type ResetPinOption struct {
	p Pin
}

// WithResetPin provides the reset line collaborator for a device.
func WithResetPin(p Pin) ResetPinOption {
	return ResetPinOption{p: p}
}

func (o ResetPinOption) applyDeviceOption(d *Device) {
	d.reset = o.p
}

// ClockOption provides the reference clock collaborator for a device.
type ClockOption struct {
	c Clock
}

// WithClock provides the reference clock collaborator for a device.
func WithClock(c Clock) ClockOption {
	return ClockOption{c: c}
}

func (o ClockOption) applyDeviceOption(d *Device) {
	d.clock = o.c
}

// LoggerOption provides a logger for bring-up tracing.
type LoggerOption struct {
	l *zap.Logger
}

// WithLogger provides a logger for bring-up tracing. The default is a nop
// logger.
func WithLogger(l *zap.Logger) LoggerOption {
	return LoggerOption{l: l}
}

func (o LoggerOption) applyDeviceOption(d *Device) {
	d.log = o.l
}
