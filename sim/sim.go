// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

// Package sim provides in-process simulations of the collaborators a
// device context borrows: a register-mapped transport, supplies, a reset
// pin and a reference clock.
//
// This is intended for testing regseq itself, but can also be used by
// users testing their own bring-up sequences without hardware. The
// transport records every decoded register access so tests can assert on
// ordering, and supports fault injection for the transient classes the
// transaction engine retries.
package sim

import (
	"fmt"
	"sync"

	"github.com/OPERA70R/regseq"
)

// Config selects the wire convention the simulated device speaks. It must
// match the Txn options of the engine under test.
type Config struct {
	// Framed selects the framed command protocol with status replies.
	Framed bool

	// CRC appends a CRC trailer to framed read replies.
	CRC bool

	// AddrWidth is the plain-framing address width in bytes. Defaults
	// to 1.
	AddrWidth int
}

// Write is one decoded register write observed by the transport.
type Write struct {
	Addr uint16
	Data []byte
}

// Transport simulates a register-mapped device. The register file is
// byte-addressed; multi-byte accesses run sequentially from the start
// address.
type Transport struct {
	mu  sync.Mutex
	cfg Config
	mem map[uint16]byte

	writes []Write
	reads  []uint16
	ops    int

	failOp      map[int]error
	statusFails int
	corruptCRC  int
}

// New creates a simulated transport speaking the given wire convention.
func New(cfg Config) *Transport {
	if cfg.AddrWidth == 0 {
		cfg.AddrWidth = 1
	}
	return &Transport{
		cfg:    cfg,
		mem:    make(map[uint16]byte),
		failOp: make(map[int]error),
	}
}

// Poke preloads the register file starting at addr.
func (t *Transport) Poke(addr uint16, b ...byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, v := range b {
		t.mem[addr+uint16(i)] = v
	}
}

// Peek reads n bytes of the register file starting at addr.
func (t *Transport) Peek(addr uint16, n int) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := make([]byte, n)
	for i := range b {
		b[i] = t.mem[addr+uint16(i)]
	}
	return b
}

// FailOp injects a transport error on the n-th exchange (0-based, counting
// every attempt including retries).
func (t *Transport) FailOp(n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failOp[n] = err
}

// FailStatus makes the next n framed replies carry a busy status nibble.
func (t *Transport) FailStatus(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statusFails = n
}

// CorruptCRC flips a bit in the CRC trailer of the next n framed read
// replies.
func (t *Transport) CorruptCRC(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.corruptCRC = n
}

// Writes returns every decoded register write in order of arrival.
func (t *Transport) Writes() []Write {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := make([]Write, len(t.writes))
	copy(w, t.writes)
	return w
}

// WritesTo returns the payloads of every write to addr, in order.
func (t *Transport) WritesTo(addr uint16) [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	var w [][]byte
	for _, wr := range t.writes {
		if wr.Addr == addr {
			w = append(w, wr.Data)
		}
	}
	return w
}

// Reads returns the address of every decoded register read, in order.
func (t *Transport) Reads() []uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := make([]uint16, len(t.reads))
	copy(r, t.reads)
	return r
}

// Ops returns the number of exchanges performed, attempts included.
func (t *Transport) Ops() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ops
}

// Write implements regseq.Transport.
func (t *Transport) Write(tx []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.nextOp(); err != nil {
		return err
	}
	if t.cfg.Framed {
		return fmt.Errorf("raw write on framed bus")
	}
	if len(tx) < t.cfg.AddrWidth {
		return fmt.Errorf("short frame: %d bytes", len(tx))
	}
	addr := t.addr(tx)
	t.store(addr, tx[t.cfg.AddrWidth:])
	return nil
}

// Transfer implements regseq.Transport.
func (t *Transport) Transfer(tx []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.nextOp(); err != nil {
		return nil, err
	}
	if t.cfg.Framed {
		return t.framedTransfer(tx)
	}
	if len(tx) < t.cfg.AddrWidth {
		return nil, fmt.Errorf("short frame: %d bytes", len(tx))
	}
	addr := t.addr(tx)
	rx := make([]byte, len(tx))
	for i := t.cfg.AddrWidth; i < len(rx); i++ {
		rx[i] = t.mem[addr+uint16(i-t.cfg.AddrWidth)]
	}
	t.reads = append(t.reads, addr)
	return rx, nil
}

func (t *Transport) framedTransfer(tx []byte) ([]byte, error) {
	if len(tx) < 4 {
		return nil, fmt.Errorf("short frame: %d bytes", len(tx))
	}
	addr := uint16(tx[0])
	op := tx[1]
	n := int(tx[2])<<8 | int(tx[3])
	rx := make([]byte, len(tx))
	if t.statusFails > 0 {
		t.statusFails--
		rx[3] = 0xA0
		return rx, nil
	}
	if op&0x80 != 0 {
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = t.mem[addr+uint16(i)]
		}
		copy(rx[7:], payload)
		if op&0x20 != 0 {
			crc := regseq.CRC16(payload)
			if t.corruptCRC > 0 {
				t.corruptCRC--
				crc ^= 0x0001
			}
			rx[len(rx)-2] = byte(crc)
			rx[len(rx)-1] = byte(crc >> 8)
		}
		t.reads = append(t.reads, addr)
		return rx, nil
	}
	if n > 0 {
		t.store(addr, tx[7:7+n])
	} else {
		t.store(addr, nil)
	}
	return rx, nil
}

func (t *Transport) nextOp() error {
	op := t.ops
	t.ops++
	if err, ok := t.failOp[op]; ok {
		return err
	}
	return nil
}

func (t *Transport) addr(tx []byte) uint16 {
	if t.cfg.AddrWidth == 2 {
		return uint16(tx[0])<<8 | uint16(tx[1])
	}
	return uint16(tx[0])
}

func (t *Transport) store(addr uint16, data []byte) {
	for i, b := range data {
		t.mem[addr+uint16(i)] = b
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	t.writes = append(t.writes, Write{Addr: addr, Data: cp})
}

// Power simulates the supply collaborator, recording the order of enables
// and disables.
type Power struct {
	mu   sync.Mutex
	seq  []string
	fail map[string]error
}

// NewPower creates a simulated supply collaborator.
func NewPower() *Power {
	return &Power{fail: make(map[string]error)}
}

// FailEnable makes enabling the named supply fail.
func (p *Power) FailEnable(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail[name] = err
}

// Enable implements regseq.Power.
func (p *Power) Enable(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail[name]; err != nil {
		return err
	}
	p.seq = append(p.seq, "enable "+name)
	return nil
}

// Disable implements regseq.Power.
func (p *Power) Disable(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq = append(p.seq, "disable "+name)
	return nil
}

// Seq returns the recorded enable/disable sequence.
func (p *Power) Seq() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := make([]string, len(p.seq))
	copy(s, p.seq)
	return s
}

// Pin simulates a GPIO output, recording each level driven.
type Pin struct {
	mu     sync.Mutex
	levels []bool
}

// NewPin creates a simulated output pin.
func NewPin() *Pin {
	return &Pin{}
}

// SetLevel implements regseq.Pin.
func (p *Pin) SetLevel(level bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levels = append(p.levels, level)
	return nil
}

// Levels returns every level driven, in order.
func (p *Pin) Levels() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	l := make([]bool, len(p.levels))
	copy(l, p.levels)
	return l
}

// Clock simulates the reference clock collaborator.
type Clock struct {
	mu      sync.Mutex
	rate    uint64
	seq     []string
	enabled bool
}

// NewClock creates a simulated clock with the given rate in Hz.
func NewClock(rate uint64) *Clock {
	return &Clock{rate: rate}
}

// Enable implements regseq.Clock.
func (c *Clock) Enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = true
	c.seq = append(c.seq, "enable")
	return nil
}

// Disable implements regseq.Clock.
func (c *Clock) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
	c.seq = append(c.seq, "disable")
	return nil
}

// Rate implements regseq.Clock.
func (c *Clock) Rate() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate, nil
}

// Enabled reports whether the clock is currently enabled.
func (c *Clock) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Seq returns the recorded enable/disable sequence.
func (c *Clock) Seq() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := make([]string, len(c.seq))
	copy(s, c.seq)
	return s
}
