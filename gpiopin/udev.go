// SPDX-License-Identifier: MIT
//
// Copyright © 2024 OPERA70R.

//go:build linux
// +build linux

package gpiopin

import (
	"fmt"
	"time"

	"github.com/pilebones/go-udev/netlink"
	"golang.org/x/sys/unix"
)

// WaitForChip blocks until the named GPIO chip device appears, or the
// timeout expires. Bring-up on boot can race the GPIO controller's own
// probe; waiting on the uevent avoids polling /dev.
func WaitForChip(name string, timeout time.Duration) error {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return fmt.Errorf("unable to connect to netlink uevent socket")
	}
	defer conn.Close()
	action := "add"
	matcher := &netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "gpio",
			"DEVNAME":   "/dev/" + name,
		},
	}
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	quit := conn.Monitor(queue, errs, matcher)
	defer func() {
		quit <- struct{}{}
	}()
	// the chip may have appeared before the monitor came up
	if _, err := gpiodChipInfo(name); err == nil {
		return nil
	}
	select {
	case <-queue:
		return nil
	case err := <-errs:
		return err
	case <-time.After(timeout):
		return unix.ETIMEDOUT
	}
}

func gpiodChipInfo(name string) (unix.Stat_t, error) {
	var stat unix.Stat_t
	err := unix.Stat("/dev/"+name, &stat)
	return stat, err
}
