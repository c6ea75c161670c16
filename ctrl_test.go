// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

package regseq_test

import (
	"errors"
	"testing"

	"github.com/OPERA70R/regseq"
	"github.com/OPERA70R/regseq/device/ft8756"
	"github.com/OPERA70R/regseq/device/imx766"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OPERA70R/regseq/sim"
)

// configuredSensor returns a rig brought all the way to Configured with the
// full-resolution mode applied.
func configuredSensor(t *testing.T, options ...regseq.TxnOption) *sensorRig {
	t.Helper()
	r := newSensorRig(t, options...)
	require.Nil(t, r.dev.PowerOn())
	require.Nil(t, r.dev.Probe())
	m := imx766.Mode4096x3072()
	require.Nil(t, r.dev.ApplyMode(&m))
	return r
}

func TestControlRange(t *testing.T) {
	r := configuredSensor(t)

	// exposure ceiling at the default vblank:
	// 1026 + 3072 - 22
	min, max, err := r.dev.ControlRange(regseq.Exposure)
	assert.Nil(t, err)
	assert.Equal(t, imx766.ExposureMin, min)
	assert.Equal(t, 4076, max)

	min, max, err = r.dev.ControlRange(regseq.AnalogGain)
	assert.Nil(t, err)
	assert.Equal(t, imx766.GainMin, min)
	assert.Equal(t, imx766.GainMax, max)

	min, max, err = r.dev.ControlRange(regseq.VBlank)
	assert.Nil(t, err)
	assert.Equal(t, 1026, min)
	assert.Equal(t, 62463, max)
}

func TestControlRangeNoMode(t *testing.T) {
	r := newSensorRig(t)
	require.Nil(t, r.dev.PowerOn())
	require.Nil(t, r.dev.Probe())

	_, _, err := r.dev.ControlRange(regseq.Exposure)
	assert.Equal(t, regseq.ErrNoMode, err)
}

func TestSetControlExposure(t *testing.T) {
	r := configuredSensor(t)
	base := len(r.tport.Writes())

	err := r.dev.SetControl(regseq.Exposure, 1000)
	assert.Nil(t, err)
	ww := r.tport.Writes()
	require.Equal(t, base+5, len(ww))
	group := ww[base:]
	// hold, frame length, exposure, gain, release
	assert.Equal(t, sim.Write{Addr: imx766.RegHold, Data: []byte{0x01}}, group[0])
	assert.Equal(t, sim.Write{Addr: imx766.RegFrameLength, Data: []byte{0x10, 0x02}}, group[1])
	assert.Equal(t, sim.Write{Addr: imx766.RegExposure, Data: []byte{0x03, 0xE8}}, group[2])
	assert.Equal(t, sim.Write{Addr: imx766.RegAnalogGain, Data: []byte{0x00, 0x00}}, group[3])
	assert.Equal(t, sim.Write{Addr: imx766.RegHold, Data: []byte{0x00}}, group[4])
}

func TestSetControlGain(t *testing.T) {
	r := configuredSensor(t)
	// the mode burst writes the gain registers too; count from here
	base := len(r.tport.WritesTo(imx766.RegAnalogGain))

	err := r.dev.SetControl(regseq.AnalogGain, 512)
	assert.Nil(t, err)
	gw := r.tport.WritesTo(imx766.RegAnalogGain)
	require.Equal(t, base+1, len(gw))
	assert.Equal(t, []byte{0x02, 0x00}, gw[base])
}

func TestSetControlVBlank(t *testing.T) {
	r := configuredSensor(t)
	ops := r.tport.Ops()

	// vblank changes are deferred to the next group update
	err := r.dev.SetControl(regseq.VBlank, 2000)
	assert.Nil(t, err)
	assert.Equal(t, ops, r.tport.Ops())

	// but the exposure ceiling moves immediately
	_, max, err := r.dev.ControlRange(regseq.Exposure)
	assert.Nil(t, err)
	assert.Equal(t, 2000+3072-22, max)

	// the next group update carries the new frame length
	base := len(r.tport.WritesTo(imx766.RegFrameLength))
	err = r.dev.SetControl(regseq.AnalogGain, 100)
	assert.Nil(t, err)
	fw := r.tport.WritesTo(imx766.RegFrameLength)
	require.Equal(t, base+1, len(fw))
	// 2000 + 3072
	assert.Equal(t, []byte{0x13, 0xD0}, fw[base])
}

func TestSetControlVBlankClampsExposure(t *testing.T) {
	r := configuredSensor(t)
	base := len(r.tport.WritesTo(imx766.RegExposure))

	require.Nil(t, r.dev.SetControl(regseq.VBlank, 2000))
	require.Nil(t, r.dev.SetControl(regseq.Exposure, 5000))

	// shrinking vblank pulls the pending exposure down to the new ceiling
	require.Nil(t, r.dev.SetControl(regseq.VBlank, 1026))
	require.Nil(t, r.dev.SetControl(regseq.AnalogGain, 0))
	ew := r.tport.WritesTo(imx766.RegExposure)
	require.Equal(t, base+2, len(ew))
	// 4076
	assert.Equal(t, []byte{0x0F, 0xEC}, ew[base+1])
}

func TestSetControlOutOfRange(t *testing.T) {
	r := configuredSensor(t)
	ops := r.tport.Ops()

	patterns := []struct {
		name  string
		kind  regseq.ControlKind
		value int
		min   int
		max   int
	}{
		{"exposure high", regseq.Exposure, 4077, 8, 4076},
		{"exposure low", regseq.Exposure, 7, 8, 4076},
		{"gain high", regseq.AnalogGain, 979, 0, 978},
		{"vblank low", regseq.VBlank, 1025, 1026, 62463},
		{"vblank high", regseq.VBlank, 62464, 1026, 62463},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			err := r.dev.SetControl(p.kind, p.value)
			require.NotNil(t, err)
			var rerr *regseq.OutOfRangeError
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, p.kind, rerr.Kind)
			assert.Equal(t, p.value, rerr.Value)
			assert.Equal(t, p.min, rerr.Min)
			assert.Equal(t, p.max, rerr.Max)
			// rejected values issue no register write
			assert.Equal(t, ops, r.tport.Ops())
		}
		t.Run(p.name, tf)
	}
}

func TestSetControlHoldRelease(t *testing.T) {
	r := configuredSensor(t, regseq.WithRetries(1))
	ops := r.tport.Ops()
	gains := len(r.tport.WritesTo(imx766.RegAnalogGain))

	// fail the frame length write, the first group member after the hold
	r.tport.FailOp(ops+1, errIO)
	err := r.dev.SetControl(regseq.Exposure, 500)
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, errIO))
	// the release still runs: hold, failed member, release
	assert.Equal(t, ops+3, r.tport.Ops())
	hw := r.tport.WritesTo(imx766.RegHold)
	require.Equal(t, 2, len(hw))
	assert.Equal(t, []byte{0x01}, hw[0])
	assert.Equal(t, []byte{0x00}, hw[1])
	// the remaining members are not attempted
	assert.Equal(t, gains, len(r.tport.WritesTo(imx766.RegAnalogGain)))
}

func TestSetControlUnknownKind(t *testing.T) {
	r := configuredSensor(t)
	ops := r.tport.Ops()

	bogus := regseq.ControlKind(42)
	err := r.dev.SetControl(bogus, 1)
	assert.Equal(t, regseq.ErrUnknownControl, err)
	assert.Equal(t, ops, r.tport.Ops())

	_, _, err = r.dev.ControlRange(bogus)
	assert.Equal(t, regseq.ErrUnknownControl, err)
}

func TestSetControlStates(t *testing.T) {
	r := newSensorRig(t)

	// powered off
	err := r.dev.SetControl(regseq.Exposure, 100)
	var serr *regseq.InvalidStateError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, regseq.PoweredOff, serr.State)

	// configured but no mode applied
	require.Nil(t, r.dev.PowerOn())
	require.Nil(t, r.dev.Probe())
	err = r.dev.SetControl(regseq.Exposure, 100)
	assert.Equal(t, regseq.ErrNoMode, err)

	// controls stay legal while streaming
	m := imx766.Mode4096x3072()
	require.Nil(t, r.dev.ApplyMode(&m))
	require.Nil(t, r.dev.Start())
	err = r.dev.SetControl(regseq.AnalogGain, 10)
	assert.Nil(t, err)
}

func TestSetControlNoControls(t *testing.T) {
	tport := sim.New(sim.Config{Framed: true, CRC: true})
	opts := append(ft8756.TxnOptions(), regseq.WithRetryDelay(0))
	x := regseq.NewTxn(tport, opts...)
	d, err := regseq.NewDevice(x, quicken(ft8756.Profile()))
	require.Nil(t, err)
	tport.Poke(ft8756.RegIDHigh, 0x56)
	tport.Poke(ft8756.RegIDLow, 0x52)
	require.Nil(t, d.PowerOn())
	require.Nil(t, d.Probe())
	m := ft8756.ReportMode()
	require.Nil(t, d.ApplyMode(&m))

	err = d.SetControl(regseq.Exposure, 100)
	assert.Equal(t, regseq.ErrNoControls, err)
	_, _, err = d.ControlRange(regseq.Exposure)
	assert.Equal(t, regseq.ErrNoControls, err)
}
