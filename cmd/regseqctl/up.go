// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

package main

import (
	"fmt"

	"github.com/OPERA70R/regseq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	upCmd.Flags().BoolVarP(&upOpts.Suspend, "suspend", "s", false, "suspend and resume after reaching streaming")
	upCmd.Flags().BoolVarP(&upOpts.Quiet, "quiet", "q", false, "don't trace state transitions")
	rootCmd.AddCommand(upCmd)
}

var (
	upCmd = &cobra.Command{
		Use:   "up <device>",
		Short: "Drive a device profile from power-off to streaming",
		Long:  `Run the full bring-up sequence - power on, probe, mode apply, stream on - for a device profile on a simulated bus and report the register traffic.`,
		Args:  cobra.ExactArgs(1),
		RunE:  up,
	}
	upOpts = struct {
		Suspend bool
		Quiet   bool
	}{}
)

func up(cmd *cobra.Command, args []string) error {
	r, err := makeRig(args[0])
	if err != nil {
		return err
	}
	dopts := []regseq.DeviceOption{}
	if !upOpts.Quiet {
		log, lerr := zap.NewDevelopment()
		if lerr != nil {
			return lerr
		}
		defer log.Sync()
		dopts = append(dopts, regseq.WithLogger(log))
	}
	d, err := r.device(dopts...)
	if err != nil {
		return err
	}
	if err = d.PowerOn(); err != nil {
		return err
	}
	if err = d.Probe(); err != nil {
		return err
	}
	mode := r.mode
	if err = d.ApplyMode(&mode); err != nil {
		return err
	}
	if err = d.Start(); err != nil {
		return err
	}
	if upOpts.Suspend {
		if err = d.Stop(); err != nil {
			return err
		}
		if err = d.Suspend(); err != nil {
			return err
		}
		if err = d.Resume(); err != nil {
			return err
		}
	}
	fmt.Printf("%s: state %s, variant %q, %d register writes, %d reads\n",
		args[0], d.State(), d.Variant(),
		len(r.tport.Writes()), len(r.tport.Reads()))
	return nil
}
