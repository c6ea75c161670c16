// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/OPERA70R/regseq/touch"
	"github.com/spf13/cobra"
)

func init() {
	decodeCmd.Flags().IntVarP(&decodeOpts.Width, "width", "x", 1080, "panel width in pixels")
	decodeCmd.Flags().IntVarP(&decodeOpts.Height, "height", "y", 2400, "panel height in pixels")
	rootCmd.AddCommand(decodeCmd)
}

var (
	decodeCmd = &cobra.Command{
		Use:   "decode <frame>",
		Short: "Decode a raw touch report frame",
		Long:  `Decode a hex-encoded touch report frame into per-finger points.`,
		Args:  cobra.ExactArgs(1),
		RunE:  decode,
	}
	decodeOpts = struct {
		Width  int
		Height int
	}{}
)

func decode(cmd *cobra.Command, args []string) error {
	raw := strings.NewReplacer(" ", "", ":", "").Replace(args[0])
	buf, err := hex.DecodeString(raw)
	if err != nil {
		return err
	}
	bounds := touch.Bounds{MaxX: decodeOpts.Width - 1, MaxY: decodeOpts.Height - 1}
	pts, err := touch.Decode(buf, bounds)
	if err != nil {
		return err
	}
	n := 0
	for pt, ok := pts.Next(); ok; pt, ok = pts.Next() {
		fmt.Printf("slot %d: (%d, %d) pressure %d area %d\n",
			pt.Slot, pt.X, pt.Y, pt.Pressure, pt.Area)
		n++
	}
	if n == 0 {
		fmt.Println("no touch")
	}
	return nil
}
