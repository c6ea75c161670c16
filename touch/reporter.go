// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

package touch

import (
	"sync"

	"github.com/OPERA70R/regseq"
)

// IntSource is the interrupt line that announces a ready frame. The
// reporter masks it for the duration of decode-and-publish, making the
// interrupt a strictly sequential producer.
type IntSource interface {
	// Events signals a pending frame. Closing the channel stops the
	// reporter.
	Events() <-chan struct{}

	Mask()
	Unmask()
}

// Handler receives each decoded point of a frame.
type Handler func(Point)

// Reporter reads, decodes and publishes touch frames on interrupt. One
// reporter serves one device; frames are processed one at a time.
type Reporter struct {
	x      *regseq.Txn
	addr   uint16
	bounds Bounds
	src    IntSource
	h      Handler

	done chan struct{}
	wg   sync.WaitGroup
}

// NewReporter starts a reporter reading frames at addr via x whenever src
// fires, publishing each decoded point to h.
func NewReporter(x *regseq.Txn, addr uint16, bounds Bounds, src IntSource, h Handler) *Reporter {
	r := Reporter{
		x:      x,
		addr:   addr,
		bounds: bounds,
		src:    src,
		h:      h,
		done:   make(chan struct{}),
	}
	r.wg.Add(1)
	go r.watch()
	return &r
}

// Close stops the reporter and waits for any in-flight frame to finish.
// Processing cannot be cancelled mid-frame; it is bounded by the frame
// read's retry budget.
func (r *Reporter) Close() {
	close(r.done)
	r.wg.Wait()
}

func (r *Reporter) watch() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		case _, ok := <-r.src.Events():
			if !ok {
				return
			}
			r.src.Mask()
			r.report()
			r.src.Unmask()
		}
	}
}

// report reads and publishes one frame. A failed read drops the frame;
// the next interrupt delivers a fresh one.
func (r *Reporter) report() {
	buf, err := r.x.ReadBlock(r.addr, FrameLen)
	if err != nil {
		return
	}
	pts, err := Decode(buf, r.bounds)
	if err != nil {
		return
	}
	for pt, ok := pts.Next(); ok; pt, ok = pts.Next() {
		r.h(pt)
	}
}
