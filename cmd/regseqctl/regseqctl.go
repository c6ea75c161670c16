// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

// A utility to exercise device bring-up profiles against a simulated bus.
package main

import (
	"fmt"
	"os"

	"github.com/OPERA70R/regseq"
	"github.com/OPERA70R/regseq/device/ft8756"
	"github.com/OPERA70R/regseq/device/imx766"
	"github.com/OPERA70R/regseq/device/vtdr6130"
	"github.com/OPERA70R/regseq/sim"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "regseqctl",
	Short: "regseqctl is a utility to exercise device bring-up profiles",
	Long:  "regseqctl drives the bring-up state machine for known device profiles against a simulated register bus",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func logErr(cmd *cobra.Command, err error) {
	fmt.Fprintf(os.Stderr, "regseqctl %s: %s\n", cmd.Name(), err)
}

// rig is a simulated device: the profile, its transaction engine
// configuration, and the bus preloaded with the chip identity.
type rig struct {
	prof  regseq.Profile
	mode  regseq.Mode
	tport *sim.Transport
	power *sim.Power
	pin   *sim.Pin
	clock *sim.Clock
	opts  []regseq.TxnOption
}

func makeRig(name string) (*rig, error) {
	r := rig{
		power: sim.NewPower(),
		pin:   sim.NewPin(),
	}
	switch name {
	case "ft8756":
		r.prof = ft8756.Profile()
		r.mode = ft8756.ReportMode()
		r.opts = ft8756.TxnOptions()
		r.tport = sim.New(sim.Config{Framed: true, CRC: true})
		r.tport.Poke(ft8756.RegIDHigh, 0x56)
		r.tport.Poke(ft8756.RegIDLow, 0x52)
	case "imx766":
		r.prof = imx766.Profile()
		r.mode = imx766.Mode4096x3072()
		r.opts = imx766.TxnOptions()
		r.clock = sim.NewClock(imx766.InClkRate)
		r.tport = sim.New(sim.Config{AddrWidth: 2})
		r.tport.Poke(imx766.RegID, 0x07, 0x66)
	case "vtdr6130":
		r.prof = vtdr6130.Profile()
		r.mode = vtdr6130.OnMode()
		r.opts = vtdr6130.TxnOptions()
		r.tport = sim.New(sim.Config{})
		r.tport.Poke(0x0A, 0x08)
	default:
		return nil, fmt.Errorf("unknown device %q", name)
	}
	return &r, nil
}

func (r *rig) device(options ...regseq.DeviceOption) (*regseq.Device, error) {
	x := regseq.NewTxn(r.tport, r.opts...)
	opts := []regseq.DeviceOption{
		regseq.WithPower(r.power),
		regseq.WithResetPin(r.pin),
	}
	if r.clock != nil {
		opts = append(opts, regseq.WithClock(r.clock))
	}
	opts = append(opts, options...)
	return regseq.NewDevice(x, r.prof, opts...)
}
