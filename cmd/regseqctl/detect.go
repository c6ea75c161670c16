// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	detectCmd.Flags().BoolVarP(&detectOpts.Absent, "absent", "a", false, "simulate an absent or foreign chip")
	rootCmd.AddCommand(detectCmd)
}

var (
	detectCmd = &cobra.Command{
		Use:   "detect <device>",
		Short: "Probe the identity of a device profile",
		Long:  `Power on the device and probe its identity variants in ranked order.`,
		Args:  cobra.ExactArgs(1),
		RunE:  detect,
	}
	detectOpts = struct {
		Absent bool
	}{}
)

func detect(cmd *cobra.Command, args []string) error {
	r, err := makeRig(args[0])
	if err != nil {
		return err
	}
	if detectOpts.Absent {
		// overwrite the identity registers the rig preloaded
		for _, ident := range r.prof.Identities {
			for _, reg := range ident.Reads {
				for i := uint(0); i < reg.Width; i++ {
					r.tport.Poke(reg.Addr+uint16(i), 0xDE)
				}
			}
		}
	}
	d, err := r.device()
	if err != nil {
		return err
	}
	if err = d.PowerOn(); err != nil {
		return err
	}
	if err = d.Probe(); err != nil {
		logErr(cmd, err)
		fmt.Printf("%s: state %s\n", args[0], d.State())
		return nil
	}
	fmt.Printf("%s: detected variant %q, state %s\n", args[0], d.Variant(), d.State())
	return nil
}
