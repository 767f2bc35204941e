// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// wxlistener - GW1000/Ecowitt Gateway Weather Station Listener
//
// Polls a weather gateway over its binary TCP protocol and forwards live
// readings to the console, databases, MQTT, HTTP and a web dashboard.

package main

import (
	"os"

	"github.com/Thermoquad/wxlistener/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
