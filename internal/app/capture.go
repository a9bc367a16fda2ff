// Copyright (c) 2026 PN Mocap
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pnmocap/motion_computer/internal/capture"
	"github.com/pnmocap/motion_computer/internal/config"
	"github.com/pnmocap/motion_computer/internal/fk"
	"github.com/pnmocap/motion_computer/internal/geom"
	"github.com/pnmocap/motion_computer/internal/recorder"
	"github.com/pnmocap/motion_computer/internal/skeleton"
)

// RunCapture runs the live pipeline: connect to the capture source,
// stabilize, calibrate, record for the configured duration and export
// the buffer as BVH. SIGINT stops early and still exports whatever
// was recorded.
func RunCapture() error {
	cfg := config.Get()

	src := capture.NewMQTTSource(capture.MQTTConfig{
		Broker:       cfg.MQTTBroker,
		ClientID:     cfg.MQTTClientIDCapture,
		FrameTopic:   cfg.TopicFrames,
		CommandTopic: cfg.TopicCommands,
		ReplyTopic:   cfg.TopicReplies,
	})
	conn := capture.NewConnector(src, capture.Options{
		StabilizeDuration:  time.Duration(cfg.StabilizeDurationSeconds) * time.Second,
		CalibrationTimeout: time.Duration(cfg.CalibrationTimeoutSeconds) * time.Second,
		DataTimeout:        time.Duration(cfg.DataTimeoutSeconds) * time.Second,
	})

	if err := conn.Connect(); err != nil {
		return err
	}
	defer func() {
		if err := conn.Disconnect(); err != nil {
			log.Printf("capture: disconnect: %v", err)
		}
	}()

	if err := conn.StartCapture(); err != nil {
		return err
	}

	skel := skeleton.NewDefault()
	pose := skeleton.NewPose(skel)
	world := make([]geom.Mat4, skel.Len())
	rec := recorder.New()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(time.Duration(cfg.PollIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	var (
		lastStatus   string
		lastPoseLog  time.Time
		recordingEnd time.Time
		done         bool
	)
	for !done {
		select {
		case <-sigCh:
			log.Printf("capture: interrupted")
			done = true
			continue
		case <-ticker.C:
		}

		frame := conn.PollAndUpdate()

		if status := conn.StatusText(); status != lastStatus {
			log.Printf("capture: %s", status)
			lastStatus = status
		}

		if cfg.AutoCalibrate && conn.CanCalibrate() {
			if err := conn.StartCalibration(); err != nil {
				log.Printf("capture: start calibration: %v", err)
			}
		}

		if conn.ReadyForRecord() && !rec.Recording() && rec.Count() == 0 {
			rec.Start(cfg.RecordFPS)
			recordingEnd = time.Now().Add(time.Duration(cfg.RecordSeconds) * time.Second)
		}

		if frame != nil {
			frame.Apply(skel, pose)
			fk.EvaluateStream(skel, pose, world)
			if time.Since(lastPoseLog) >= 5*time.Second {
				hips := fk.WorldPosition(world, 0)
				log.Printf("capture: hips at (%.1f, %.1f, %.1f) cm, %.1f FPS",
					hips.X, hips.Y, hips.Z, conn.FPS())
				lastPoseLog = time.Now()
			}
			if rec.Recording() {
				rec.Record(frame.Samples())
			}
		}

		if rec.Recording() && time.Now().After(recordingEnd) {
			rec.Stop()
			done = true
		}
	}

	if rec.Recording() {
		rec.Stop()
	}
	if rec.Count() == 0 {
		log.Printf("capture: nothing recorded, skipping export")
		return nil
	}
	if err := rec.ExportBVH(cfg.BVHExportPath); err != nil {
		return fmt.Errorf("capture: export: %w", err)
	}
	log.Printf("capture: %s", rec.StatusText())
	return nil
}
