// Copyright (c) 2026 PN Mocap
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bvh reads and writes the BVH (BioVision Hierarchy) text
// format: a HIERARCHY block describing the joint tree and a MOTION
// block of per-frame channel rows.
package bvh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pnmocap/motion_computer/internal/geom"
	"github.com/pnmocap/motion_computer/internal/skeleton"
)

// Result is a parsed BVH document.
type Result struct {
	Skeleton *skeleton.Skeleton
	// Frames holds one channel-value row per motion line.
	Frames [][]float64
	// DeclaredFrames is the count from the Frames: header. It normally
	// equals len(Frames) but the motion rows are authoritative.
	DeclaredFrames int
	// FrameTime is seconds per frame.
	FrameTime float64
}

// Parse reads a BVH document. Malformed input returns an error; Parse
// never panics on bad data.
func Parse(r io.Reader) (*Result, error) {
	p := &parser{scanner: bufio.NewScanner(r)}
	p.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if err := p.parseHierarchy(); err != nil {
		return nil, err
	}
	skel, err := skeleton.New(p.joints)
	if err != nil {
		return nil, fmt.Errorf("bvh: %w", err)
	}
	res := &Result{Skeleton: skel}
	if err := p.parseMotion(res); err != nil {
		return nil, err
	}
	return res, nil
}

type parser struct {
	scanner *bufio.Scanner
	lineNum int

	joints    []skeleton.Joint
	stack     []int // indices of open joints
	inEndSite bool
	chanCount int // global running channel counter
}

func (p *parser) next() ([]string, bool) {
	for p.scanner.Scan() {
		p.lineNum++
		fields := strings.Fields(p.scanner.Text())
		if len(fields) == 0 {
			continue
		}
		return fields, true
	}
	return nil, false
}

func (p *parser) errf(format string, args ...any) error {
	return fmt.Errorf("bvh: line %d: %s", p.lineNum, fmt.Sprintf(format, args...))
}

func (p *parser) top() (*skeleton.Joint, error) {
	if len(p.stack) == 0 {
		return nil, p.errf("no open joint")
	}
	return &p.joints[p.stack[len(p.stack)-1]], nil
}

// parseHierarchy consumes everything up to and including the MOTION
// keyword, building the joint arena with an explicit stack.
func (p *parser) parseHierarchy() error {
	for {
		fields, ok := p.next()
		if !ok {
			return p.errf("unexpected end of input before MOTION")
		}
		switch fields[0] {
		case "HIERARCHY":
			// header keyword only

		case "ROOT", "JOINT":
			if len(fields) < 2 {
				return p.errf("%s without a name", fields[0])
			}
			j := skeleton.Joint{Name: fields[1], Parent: skeleton.NoParent}
			if len(p.stack) > 0 {
				parent := p.stack[len(p.stack)-1]
				j.Parent = parent
				p.joints[parent].Children = append(p.joints[parent].Children, len(p.joints))
			} else if len(p.joints) > 0 {
				return p.errf("second root joint %q", fields[1])
			}
			p.joints = append(p.joints, j)
			p.stack = append(p.stack, len(p.joints)-1)

		case "{":
			// brace balance is tracked through the stack and inEndSite

		case "OFFSET":
			v, err := parseVec3(fields[1:])
			if err != nil {
				return p.errf("OFFSET: %v", err)
			}
			j, err := p.top()
			if err != nil {
				return err
			}
			if p.inEndSite {
				end := v
				j.EndSite = &end
			} else {
				j.Offset = v
			}

		case "CHANNELS":
			if len(fields) < 2 {
				return p.errf("CHANNELS without a count")
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n != len(fields)-2 {
				return p.errf("CHANNELS count %q does not match %d tags", fields[1], len(fields)-2)
			}
			j, err := p.top()
			if err != nil {
				return err
			}
			j.ChannelOffset = p.chanCount
			for _, tag := range fields[2:] {
				ch := skeleton.Channel(tag)
				if !ch.Valid() {
					return p.errf("unknown channel %q", tag)
				}
				j.Channels = append(j.Channels, ch)
			}
			p.chanCount += n

		case "End":
			if len(fields) < 2 || fields[1] != "Site" {
				return p.errf("unexpected token %q", strings.Join(fields, " "))
			}
			p.inEndSite = true

		case "}":
			if p.inEndSite {
				p.inEndSite = false
				break
			}
			if len(p.stack) == 0 {
				return p.errf("unbalanced closing brace")
			}
			p.stack = p.stack[:len(p.stack)-1]

		case "MOTION":
			if len(p.stack) != 0 {
				return p.errf("MOTION inside an open joint block")
			}
			return nil

		default:
			return p.errf("unexpected token %q", fields[0])
		}
	}
}

// parseMotion consumes the Frames/Frame Time headers and the channel
// rows that follow.
func (p *parser) parseMotion(res *Result) error {
	for {
		fields, ok := p.next()
		if !ok {
			if err := p.scanner.Err(); err != nil {
				return fmt.Errorf("bvh: read: %w", err)
			}
			return nil
		}
		switch {
		case fields[0] == "Frames:":
			if len(fields) < 2 {
				return p.errf("Frames: without a count")
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return p.errf("invalid frame count %q", fields[1])
			}
			res.DeclaredFrames = n

		case fields[0] == "Frame" && len(fields) >= 3 && fields[1] == "Time:":
			t, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return p.errf("invalid frame time %q", fields[2])
			}
			res.FrameTime = t

		default:
			row := make([]float64, len(fields))
			for i, f := range fields {
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return p.errf("invalid motion value %q", f)
				}
				row[i] = v
			}
			res.Frames = append(res.Frames, row)
		}
	}
}

func parseVec3(fields []string) (geom.Vec3, error) {
	if len(fields) != 3 {
		return geom.Vec3{}, fmt.Errorf("want 3 values, got %d", len(fields))
	}
	var out [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return geom.Vec3{}, fmt.Errorf("invalid value %q", f)
		}
		out[i] = v
	}
	return geom.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}
