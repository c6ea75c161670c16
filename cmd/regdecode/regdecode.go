// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

// A single-shot decoder for raw touch report frames.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/OPERA70R/regseq/touch"
	"github.com/warthog618/config"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/keys"
	"github.com/warthog618/config/pflag"
)

var version = "undefined"

func main() {
	cfg, flags := loadConfig()
	raw := strings.NewReplacer(" ", "", ":", "").Replace(flags.Args()[0])
	buf, err := hex.DecodeString(raw)
	if err != nil {
		die("can't parse frame: " + err.Error())
	}
	bounds := touch.Bounds{
		MaxX: int(cfg.MustGet("width").Int()) - 1,
		MaxY: int(cfg.MustGet("height").Int()) - 1,
	}
	pts, err := touch.Decode(buf, bounds)
	if err != nil {
		die(err.Error())
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
}

func loadConfig() (*config.Config, *pflag.Getter) {
	ff := []pflag.Flag{
		{Short: 'h', Name: "help", Options: pflag.IsBool},
		{Short: 'v', Name: "version", Options: pflag.IsBool},
		{Short: 'x', Name: "width"},
		{Short: 'y', Name: "height"},
	}
	defaults := dict.New(dict.WithMap(
		map[string]interface{}{
			"help":    false,
			"version": false,
			"width":   1080,
			"height":  2400,
		}))
	flags := pflag.New(pflag.WithFlags(ff),
		pflag.WithKeyReplacer(keys.NullReplacer()),
	)
	cfg := config.New(flags, config.WithDefault(defaults))
	if cfg.MustGet("help").Bool() {
		printHelp()
		os.Exit(0)
	}
	if cfg.MustGet("version").Bool() {
		printVersion()
		os.Exit(0)
	}
	if flags.NArg() == 0 {
		die("a hex-encoded frame must be specified")
	}
	return cfg, flags
}

func die(reason string) {
	fmt.Fprintln(os.Stderr, "regdecode: "+reason)
	os.Exit(1)
}

func printHelp() {
	fmt.Printf("Usage: %s [OPTIONS] <frame>\n", os.Args[0])
	fmt.Println("Decode a hex-encoded touch report frame.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h, --help:\t\tdisplay this message and exit")
	fmt.Println("  -v, --version:\tdisplay the version and exit")
	fmt.Println("  -x, --width=NUM:\tpanel width in pixels")
	fmt.Println("  -y, --height=NUM:\tpanel height in pixels")
}

func printVersion() {
	fmt.Printf("%s (regseq) %s\n", os.Args[0], version)
}
