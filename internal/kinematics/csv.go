package kinematics

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/pnmocap/motion_computer/internal/geom"
	"github.com/pnmocap/motion_computer/internal/skeleton"
)

// ExportCSV writes the derived series as CSV: one row per frame, frame
// numbers starting at 1. Positions, velocities and accelerations are
// converted from cm to meters with 4 decimals; angle columns are the
// sorted union of all angle keys across frames, filled with NaN where
// a frame lacks the angle.
func ExportCSV(w io.Writer, s *skeleton.Skeleton, series *Series) error {
	out := csv.NewWriter(w)

	jointNames := make([]string, 0, s.Len())
	jointIdx := make([]int, 0, s.Len())
	for _, name := range skeleton.DrawOrder {
		if i, ok := s.Index(name); ok {
			jointNames = append(jointNames, name)
			jointIdx = append(jointIdx, i)
		}
	}

	angleKeySet := make(map[string]struct{})
	for _, frameAngles := range series.Angles {
		for key := range frameAngles {
			angleKeySet[key] = struct{}{}
		}
	}
	angleKeys := make([]string, 0, len(angleKeySet))
	for key := range angleKeySet {
		angleKeys = append(angleKeys, key)
	}
	sort.Strings(angleKeys)

	header := []string{"Frame"}
	for _, name := range jointNames {
		header = append(header,
			name+"_pos_X(m)", name+"_pos_Y(m)", name+"_pos_Z(m)",
			name+"_vel_X(m/s)", name+"_vel_Y(m/s)", name+"_vel_Z(m/s)",
			name+"_accel_X(m/s²)", name+"_accel_Y(m/s²)", name+"_accel_Z(m/s²)",
		)
	}
	for _, key := range angleKeys {
		header = append(header, key+"(°)")
	}
	if err := out.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for frame := range series.Positions {
		row := make([]string, 0, len(header))
		row = append(row, fmt.Sprintf("%d", frame+1))
		for _, j := range jointIdx {
			row = appendMeters(row, series.Positions[frame][j])
			row = appendMeters(row, series.Velocities[frame][j])
			row = appendMeters(row, series.Accelerations[frame][j])
		}
		for _, key := range angleKeys {
			if deg, ok := series.Angles[frame][key]; ok {
				row = append(row, fmt.Sprintf("%.2f", deg))
			} else {
				row = append(row, "NaN")
			}
		}
		if err := out.Write(row); err != nil {
			return fmt.Errorf("csv: write frame %d: %w", frame+1, err)
		}
	}

	out.Flush()
	if err := out.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	return nil
}

// appendMeters appends a cm vector as meter components with 4 decimals.
func appendMeters(row []string, v geom.Vec3) []string {
	return append(row,
		fmt.Sprintf("%.4f", v.X/100),
		fmt.Sprintf("%.4f", v.Y/100),
		fmt.Sprintf("%.4f", v.Z/100),
	)
}
