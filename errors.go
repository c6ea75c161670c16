// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

package regseq

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed indicates the device context has already been closed.
	ErrClosed = errors.New("already closed")

	// ErrDeviceNotFound indicates no identity variant matched the chip.
	// The device is Faulted until the next power cycle.
	ErrDeviceNotFound = errors.New("device not present")

	// ErrNoMode indicates the operation requires an applied mode.
	ErrNoMode = errors.New("no mode applied")

	// ErrNoControls indicates the device profile has no control layout.
	ErrNoControls = errors.New("device has no controls")

	// ErrUnknownControl indicates a ControlKind outside the defined set.
	ErrUnknownControl = errors.New("unknown control kind")

	// ErrNoTransport indicates a device was constructed without a
	// transaction engine.
	ErrNoTransport = errors.New("no transaction engine")
)

// TransportError indicates an I/O failure at the byte level. It is
// transient and retried by the transaction engine up to its retry budget.
type TransportError struct {
	// Op is the engine operation that failed, "write" or "transfer".
	Op string

	// Err is the underlying transport error.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ChecksumError indicates the CRC trailer of a reply did not match the
// payload. It is transient and shares the transport retry budget.
type ChecksumError struct {
	Want uint16
	Got  uint16
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("crc mismatch: expected 0x%04x, got 0x%04x", e.Want, e.Got)
}

// StatusError indicates the device reported a busy or error status in a
// reply frame. It is transient and shares the transport retry budget.
type StatusError struct {
	Status byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("device status 0x%02x", e.Status)
}

// InvalidStateError indicates an operation was attempted outside its legal
// device state. The operation is rejected, never queued.
type InvalidStateError struct {
	Op    string
	State DeviceState
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s not allowed while %s", e.Op, e.State)
}

// OutOfRangeError indicates a control value outside the range implied by
// the current mode. No register write is issued.
type OutOfRangeError struct {
	Kind  ControlKind
	Value int
	Min   int
	Max   int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [%d, %d]", e.Kind, e.Value, e.Min, e.Max)
}

// BurstError indicates a register burst failed part way through. Applied
// registers are not rolled back; the device register state is
// indeterminate and the caller must re-run detection or power cycle before
// retrying.
type BurstError struct {
	// Index is the offset of the failed op within the list.
	Index int

	// Applied is the number of ops successfully written before the
	// failure.
	Applied int

	// Err is the error from the failed op.
	Err error
}

func (e *BurstError) Error() string {
	return fmt.Sprintf("burst failed at op %d (%d applied): %s", e.Index, e.Applied, e.Err)
}

func (e *BurstError) Unwrap() error {
	return e.Err
}

// transient reports whether err is a fault class the transaction engine
// retries: transport I/O failures, busy status replies and CRC mismatches.
func transient(err error) bool {
	var te *TransportError
	var se *StatusError
	var ce *ChecksumError
	return errors.As(err, &te) || errors.As(err, &se) || errors.As(err, &ce)
}
