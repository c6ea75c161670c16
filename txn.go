// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

package regseq

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultRetries is the attempt budget shared by all transient fault
	// classes.
	DefaultRetries = 3

	// DefaultRetryDelay is the fixed inter-attempt delay.
	DefaultRetryDelay = 150 * time.Microsecond
)

// Framed command protocol, as used by the touch controllers: a command
// byte, an op byte, a 16-bit payload length, three dummy turnaround bytes,
// the payload, and for reads an optional little-endian CRC trailer. Replies
// carry a status byte at a fixed offset; a nonzero busy/error nibble marks
// the exchange transient.
const (
	frameOpWrite    = 0x00
	frameOpRead     = 0x80
	frameCRCEnable  = 0x20
	frameStatusMask = 0xA0
	frameHdrLen     = 4
	frameDataOff    = frameHdrLen + 3
)

var errShortReply = errors.New("short reply")

// Txn frames register transactions for a borrowed Transport, applying the
// retry policy and optional CRC verification.
//
// A Txn performs no locking of its own; the owning Device serializes all
// access. A Txn shared between a Device and a touch Reporter relies on the
// reporter's interrupt masking for the same guarantee.
type Txn struct {
	t         Transport
	attempts  int
	delay     time.Duration
	addrWidth uint
	le        bool
	framed    bool
	crc       bool
}

// NewTxn creates a transaction engine over t.
//
// The default engine uses plain framing with 8-bit addresses, big-endian
// values and the default retry policy.
func NewTxn(t Transport, options ...TxnOption) *Txn {
	x := Txn{
		t:         t,
		attempts:  DefaultRetries,
		delay:     DefaultRetryDelay,
		addrWidth: 1,
	}
	for _, option := range options {
		option.applyTxnOption(&x)
	}
	return &x
}

// Write writes one register value of the given width in bytes (1-4).
// Width 0 sends the bare command with no payload, the convention for
// parameterless DCS commands.
//
// Exactly one transport exchange is issued per attempt; transient failures
// are retried up to the attempt budget and the last error is surfaced.
func (x *Txn) Write(addr uint16, val uint32, width uint) error {
	if width > 4 {
		return fmt.Errorf("unsupported register width %d", width)
	}
	payload := make([]byte, width)
	x.putVal(payload, val)
	return retry(x.attempts, x.delay, func() error {
		if x.framed {
			return x.framedWrite(addr, payload)
		}
		tx := make([]byte, int(x.addrWidth)+len(payload))
		x.putAddr(tx, addr)
		copy(tx[x.addrWidth:], payload)
		if err := x.t.Write(tx); err != nil {
			return &TransportError{Op: "write", Err: err}
		}
		return nil
	})
}

// Read reads one register value of the given width in bytes (1-4), under
// the same retry policy as Write. With CRC framing enabled a mismatched
// trailer counts as a transient fault and is retried before surfacing as a
// ChecksumError.
func (x *Txn) Read(addr uint16, width uint) (uint32, error) {
	if width < 1 || width > 4 {
		return 0, fmt.Errorf("unsupported register width %d", width)
	}
	b, err := x.ReadBlock(addr, int(width))
	if err != nil {
		return 0, err
	}
	return x.getVal(b), nil
}

// ReadBlock reads n consecutive bytes starting at addr.
func (x *Txn) ReadBlock(addr uint16, n int) ([]byte, error) {
	var out []byte
	err := retry(x.attempts, x.delay, func() error {
		var rerr error
		if x.framed {
			out, rerr = x.framedRead(addr, n)
		} else {
			out, rerr = x.plainRead(addr, n)
		}
		return rerr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WriteBurst applies every op of l in order, failing fast on the first
// error. Applied writes are not rolled back - a failed burst leaves the
// device registers indeterminate and the caller must re-run detection or
// power cycle before retrying.
func (x *Txn) WriteBurst(l RegisterList) error {
	for i, op := range l {
		if err := x.Write(op.Addr, op.Val, op.Width); err != nil {
			return &BurstError{Index: i, Applied: i, Err: err}
		}
	}
	return nil
}

func (x *Txn) framedWrite(addr uint16, payload []byte) error {
	n := len(payload)
	txlen := frameHdrLen
	if n > 0 {
		txlen = frameDataOff + n
	}
	tx := make([]byte, txlen)
	tx[0] = byte(addr)
	tx[1] = frameOpWrite
	tx[2] = byte(n >> 8)
	tx[3] = byte(n)
	if n > 0 {
		copy(tx[frameDataOff:], payload)
	}
	rx, err := x.t.Transfer(tx)
	if err != nil {
		return &TransportError{Op: "transfer", Err: err}
	}
	if len(rx) < frameHdrLen {
		return &TransportError{Op: "transfer", Err: errShortReply}
	}
	if rx[3]&frameStatusMask != 0 {
		return &StatusError{Status: rx[3]}
	}
	return nil
}

func (x *Txn) framedRead(addr uint16, n int) ([]byte, error) {
	txlen := frameDataOff + n
	if x.crc {
		txlen += 2
	}
	tx := make([]byte, txlen)
	tx[0] = byte(addr)
	tx[1] = frameOpRead
	if x.crc {
		tx[1] |= frameCRCEnable
	}
	tx[2] = byte(n >> 8)
	tx[3] = byte(n)
	rx, err := x.t.Transfer(tx)
	if err != nil {
		return nil, &TransportError{Op: "transfer", Err: err}
	}
	if len(rx) < txlen {
		return nil, &TransportError{Op: "transfer", Err: errShortReply}
	}
	if rx[3]&frameStatusMask != 0 {
		return nil, &StatusError{Status: rx[3]}
	}
	payload := make([]byte, n)
	copy(payload, rx[frameDataOff:frameDataOff+n])
	if x.crc {
		want := CRC16(payload)
		got := uint16(rx[txlen-1])<<8 | uint16(rx[txlen-2])
		if want != got {
			return nil, &ChecksumError{Want: want, Got: got}
		}
	}
	return payload, nil
}

func (x *Txn) plainRead(addr uint16, n int) ([]byte, error) {
	tx := make([]byte, int(x.addrWidth)+n)
	x.putAddr(tx, addr)
	rx, err := x.t.Transfer(tx)
	if err != nil {
		return nil, &TransportError{Op: "transfer", Err: err}
	}
	if len(rx) < int(x.addrWidth)+n {
		return nil, &TransportError{Op: "transfer", Err: errShortReply}
	}
	payload := make([]byte, n)
	copy(payload, rx[x.addrWidth:])
	return payload, nil
}

// putAddr packs the register address most-significant byte first.
func (x *Txn) putAddr(b []byte, addr uint16) {
	if x.addrWidth == 2 {
		b[0] = byte(addr >> 8)
		b[1] = byte(addr)
		return
	}
	b[0] = byte(addr)
}

func (x *Txn) putVal(b []byte, v uint32) {
	n := len(b)
	for i := 0; i < n; i++ {
		shift := uint(8 * (n - 1 - i))
		if x.le {
			shift = uint(8 * i)
		}
		b[i] = byte(v >> shift)
	}
}

func (x *Txn) getVal(b []byte) uint32 {
	var v uint32
	n := len(b)
	for i := 0; i < n; i++ {
		shift := uint(8 * (n - 1 - i))
		if x.le {
			shift = uint(8 * i)
		}
		v |= uint32(b[i]) << shift
	}
	return v
}

// retry invokes op up to attempts times, sleeping delay between attempts.
// Only transient fault classes consume further attempts; the last error is
// returned verbatim.
func retry(attempts int, delay time.Duration, op func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			sleep(delay)
		}
		err = op()
		if err == nil || !transient(err) {
			return err
		}
	}
	return err
}
