// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

//go:build linux
// +build linux

// Package gpiopin provides pin and interrupt collaborators for regseq
// devices backed by Linux GPIO character devices.
package gpiopin

import (
	"sync/atomic"

	"github.com/warthog618/gpiod"
)

// Pin is a reset (or enable) line on a GPIO chip.
type Pin struct {
	l *gpiod.Line
}

// NewPin requests the line at offset on the named chip as an output,
// initially inactive.
func NewPin(chip string, offset int, consumer string) (*Pin, error) {
	l, err := gpiod.RequestLine(chip, offset,
		gpiod.AsOutput(0),
		gpiod.WithConsumer(consumer))
	if err != nil {
		return nil, err
	}
	return &Pin{l: l}, nil
}

// SetLevel implements regseq.Pin. A true level drives the line active.
func (p *Pin) SetLevel(level bool) error {
	v := 0
	if level {
		v = 1
	}
	return p.l.SetValue(v)
}

// Close releases the line.
func (p *Pin) Close() error {
	return p.l.Close()
}

// Interrupt adapts a GPIO edge event line to a touch.IntSource. Masking
// drops events rather than blocking the kernel event path, mirroring the
// disable-during-handling discipline of a threaded interrupt handler.
type Interrupt struct {
	l      *gpiod.Line
	events chan struct{}
	masked int32
}

// NewInterrupt requests the line at offset on the named chip with rising
// edge detection.
func NewInterrupt(chip string, offset int, consumer string) (*Interrupt, error) {
	i := Interrupt{events: make(chan struct{}, 1)}
	l, err := gpiod.RequestLine(chip, offset,
		gpiod.AsInput,
		gpiod.WithRisingEdge,
		gpiod.WithConsumer(consumer),
		gpiod.WithEventHandler(i.handle))
	if err != nil {
		return nil, err
	}
	i.l = l
	return &i, nil
}

func (i *Interrupt) handle(gpiod.LineEvent) {
	if atomic.LoadInt32(&i.masked) != 0 {
		return
	}
	select {
	case i.events <- struct{}{}:
	default:
		// an event is already pending; edges coalesce
	}
}

// Events implements touch.IntSource.
func (i *Interrupt) Events() <-chan struct{} {
	return i.events
}

// Mask implements touch.IntSource.
func (i *Interrupt) Mask() {
	atomic.StoreInt32(&i.masked, 1)
}

// Unmask implements touch.IntSource.
func (i *Interrupt) Unmask() {
	atomic.StoreInt32(&i.masked, 0)
}

// Close masks event delivery, then releases the line. The events channel
// stays open but quiet; a callback already in flight drops its event
// rather than racing the teardown.
func (i *Interrupt) Close() error {
	i.Mask()
	return i.l.Close()
}
