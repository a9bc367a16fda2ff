// Copyright (c) 2026 PN Mocap
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/pnmocap/motion_computer/internal/app"
)

func main() {
	bvhPath := flag.String("bvh", "", "input BVH file")
	csvPath := flag.String("csv", "kinematics.csv", "output CSV file")
	flag.Parse()

	if *bvhPath == "" {
		log.Fatalf("usage: replay -bvh <file.bvh> [-csv <out.csv>]")
	}

	log.Println("starting motion-computer replay (BVH -> kinematics CSV)")

	if err := app.RunReplay(*bvhPath, *csvPath); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
