// Copyright (c) 2026 PN Mocap
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/pnmocap/motion_computer/internal/app"
	"github.com/pnmocap/motion_computer/internal/config"
)

func main() {
	configPath := flag.String("config", "motion_config.txt", "configuration file")
	flag.Parse()

	log.Println("starting motion-computer web server (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	log.Println("Note: live data requires the capture source to be publishing frames")

	if err := app.RunWeb(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
