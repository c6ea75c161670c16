// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

package regseq_test

import (
	"errors"
	"testing"
	"time"

	"github.com/OPERA70R/regseq"
	"github.com/OPERA70R/regseq/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errIO = errors.New("io error")

func fastTxn(t *sim.Transport, options ...regseq.TxnOption) *regseq.Txn {
	opts := append([]regseq.TxnOption{
		regseq.WithRetryDelay(time.Microsecond),
	}, options...)
	return regseq.NewTxn(t, opts...)
}

func TestWrite(t *testing.T) {
	tport := sim.New(sim.Config{AddrWidth: 2})
	x := fastTxn(tport, regseq.WithAddrWidth(2))

	err := x.Write(0x0202, 0x0648, 2)
	assert.Nil(t, err)
	ww := tport.Writes()
	require.Equal(t, 1, len(ww))
	assert.Equal(t, sim.Write{Addr: 0x0202, Data: []byte{0x06, 0x48}}, ww[0])
	assert.Equal(t, 1, tport.Ops())

	// bare command, no payload
	err = x.Write(0x0100, 0, 0)
	assert.Nil(t, err)
	ww = tport.Writes()
	require.Equal(t, 2, len(ww))
	assert.Equal(t, 0, len(ww[1].Data))

	err = x.Write(0x0100, 0, 5)
	assert.NotNil(t, err)
}

func TestWriteLittleEndian(t *testing.T) {
	tport := sim.New(sim.Config{})
	x := fastTxn(tport, regseq.AsLittleEndian)

	err := x.Write(0x40, 0x1234, 2)
	assert.Nil(t, err)
	ww := tport.Writes()
	require.Equal(t, 1, len(ww))
	assert.Equal(t, []byte{0x34, 0x12}, ww[0].Data)
}

func TestWriteRetry(t *testing.T) {
	tport := sim.New(sim.Config{})
	x := fastTxn(tport)

	// two transient faults within budget
	tport.FailOp(0, errIO)
	tport.FailOp(1, errIO)
	err := x.Write(0x10, 0xAB, 1)
	assert.Nil(t, err)
	assert.Equal(t, 3, tport.Ops())

	// budget exhausted
	tport.FailOp(3, errIO)
	tport.FailOp(4, errIO)
	tport.FailOp(5, errIO)
	err = x.Write(0x10, 0xAB, 1)
	require.NotNil(t, err)
	var terr *regseq.TransportError
	assert.True(t, errors.As(err, &terr))
	assert.True(t, errors.Is(err, errIO))
	assert.Equal(t, 6, tport.Ops())
}

func TestRead(t *testing.T) {
	tport := sim.New(sim.Config{AddrWidth: 2})
	x := fastTxn(tport, regseq.WithAddrWidth(2))

	tport.Poke(0x0016, 0x07, 0x66)
	v, err := x.Read(0x0016, 2)
	assert.Nil(t, err)
	assert.Equal(t, uint32(0x0766), v)
	assert.Equal(t, []uint16{0x0016}, tport.Reads())
}

func TestReadFramedStatus(t *testing.T) {
	tport := sim.New(sim.Config{Framed: true})
	x := fastTxn(tport, regseq.AsFramed)

	tport.Poke(0xA3, 0x56)

	// one busy reply consumes one attempt
	tport.FailStatus(1)
	v, err := x.Read(0xA3, 1)
	assert.Nil(t, err)
	assert.Equal(t, uint32(0x56), v)
	assert.Equal(t, 2, tport.Ops())

	// persistent busy exhausts the budget
	tport.FailStatus(3)
	_, err = x.Read(0xA3, 1)
	require.NotNil(t, err)
	var serr *regseq.StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, byte(0xA0), serr.Status)
}

func TestReadCRC(t *testing.T) {
	tport := sim.New(sim.Config{Framed: true, CRC: true})
	x := fastTxn(tport, regseq.AsFramed, regseq.WithCRC)

	tport.Poke(0x01, 0xDE, 0xAD)

	// a single corrupted trailer is retried
	tport.CorruptCRC(1)
	v, err := x.Read(0x01, 2)
	assert.Nil(t, err)
	assert.Equal(t, uint32(0xDEAD), v)
	assert.Equal(t, 2, tport.Ops())

	// persistent corruption surfaces as a checksum error
	tport.CorruptCRC(3)
	_, err = x.Read(0x01, 2)
	require.NotNil(t, err)
	var cerr *regseq.ChecksumError
	require.True(t, errors.As(err, &cerr))
	assert.NotEqual(t, cerr.Want, cerr.Got)
}

func TestReadBlock(t *testing.T) {
	tport := sim.New(sim.Config{Framed: true, CRC: true})
	x := fastTxn(tport, regseq.AsFramed, regseq.WithCRC)

	frame := make([]byte, 62)
	for i := range frame {
		frame[i] = byte(i)
	}
	tport.Poke(0x01, frame...)
	b, err := x.ReadBlock(0x01, 62)
	assert.Nil(t, err)
	assert.Equal(t, frame, b)
}

func TestWriteBurst(t *testing.T) {
	list := regseq.RegisterList{
		{Addr: 0x0136, Val: 0x18, Width: 1},
		{Addr: 0x0137, Val: 0x00, Width: 1},
		{Addr: 0x0340, Val: 0x1002, Width: 2},
		{Addr: 0x0111, Val: 0x03, Width: 1},
	}

	// fault free - one write per op, list order preserved
	tport := sim.New(sim.Config{AddrWidth: 2})
	x := fastTxn(tport, regseq.WithAddrWidth(2))
	err := x.WriteBurst(list)
	assert.Nil(t, err)
	ww := tport.Writes()
	require.Equal(t, len(list), len(ww))
	for i, op := range list {
		assert.Equal(t, op.Addr, ww[i].Addr, "op %d", i)
	}
	assert.Equal(t, []byte{0x10, 0x02}, ww[2].Data)

	// fail fast, no rollback
	tport = sim.New(sim.Config{AddrWidth: 2})
	x = fastTxn(tport, regseq.WithAddrWidth(2), regseq.WithRetries(1))
	tport.FailOp(2, errIO)
	err = x.WriteBurst(list)
	require.NotNil(t, err)
	var berr *regseq.BurstError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, 2, berr.Index)
	assert.Equal(t, 2, berr.Applied)
	assert.Equal(t, 2, len(tport.Writes()))
}
