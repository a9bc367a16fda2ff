// Copyright (c) 2026 PN Mocap
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"os"

	"github.com/pnmocap/motion_computer/internal/bvh"
	"github.com/pnmocap/motion_computer/internal/kinematics"
)

// RunReplay runs the offline pipeline: parse a BVH file, derive
// kinematics for every frame and write the dataset as CSV.
func RunReplay(bvhPath, csvPath string) error {
	log.Printf("replay: loading %s", bvhPath)

	in, err := os.Open(bvhPath)
	if err != nil {
		return fmt.Errorf("replay: open %s: %w", bvhPath, err)
	}
	defer in.Close()

	res, err := bvh.Parse(in)
	if err != nil {
		return err
	}
	log.Printf("replay: %d joints, %d frames, frame time %.6fs",
		res.Skeleton.Len(), len(res.Frames), res.FrameTime)
	if res.DeclaredFrames != len(res.Frames) {
		log.Printf("replay: header declared %d frames, motion block has %d",
			res.DeclaredFrames, len(res.Frames))
	}

	series := kinematics.Compute(res.Skeleton, res.Frames, res.FrameTime)

	out, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("replay: create %s: %w", csvPath, err)
	}
	defer out.Close()

	if err := kinematics.ExportCSV(out, res.Skeleton, series); err != nil {
		return err
	}
	log.Printf("replay: kinematics exported to %s", csvPath)
	return nil
}
