package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
)

// Sample is the pose of every logical joint at one instant.
type Sample struct {
	Time      float64
	Rotations []mgl32.Quat
}

// Recorder accumulates samples for a fixed joint list.
type Recorder struct {
	joints  []string
	samples []Sample
}

// NewRecorder returns a recorder for the named joints.
func NewRecorder(joints []string) *Recorder {
	return &Recorder{joints: append([]string(nil), joints...)}
}

// Joints returns the recorded joint names.
func (r *Recorder) Joints() []string {
	return r.joints
}

// Record stores a copy of rotations at time t. Missing joints are recorded as
// identity and extra entries are ignored.
func (r *Recorder) Record(t float64, rotations []mgl32.Quat) {
	row := make([]mgl32.Quat, len(r.joints))
	for i := range row {
		if i < len(rotations) {
			row[i] = rotations[i]
		} else {
			row[i] = mgl32.QuatIdent()
		}
	}
	r.samples = append(r.samples, Sample{Time: t, Rotations: row})
}

// Len is the number of samples.
func (r *Recorder) Len() int {
	return len(r.samples)
}

// Samples returns the recorded samples in order.
func (r *Recorder) Samples() []Sample {
	return r.samples
}

// Header returns the CSV header: time, then x,y,z,w per joint.
func (r *Recorder) Header() []string {
	header := make([]string, 0, 1+len(r.joints)*4)
	header = append(header, "time")
	for _, name := range r.joints {
		header = append(header, name+".x", name+".y", name+".z", name+".w")
	}
	return header
}

// WriteCSV writes every sample as one row.
func (r *Recorder) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, 0, 1+len(r.joints)*4)
	for i, s := range r.samples {
		row = row[:0]
		row = append(row, strconv.FormatFloat(s.Time, 'f', 6, 64))
		for _, q := range s.Rotations {
			row = append(row, formatFloat(q.V.X()), formatFloat(q.V.Y()), formatFloat(q.V.Z()), formatFloat(q.W))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write sample %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the table to path, creating parent directories.
func (r *Recorder) SaveCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := r.WriteCSV(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 6, 32)
}

// AngleDegrees is the rotation angle of q away from identity, in [0, 180].
func AngleDegrees(q mgl32.Quat) float64 {
	q = q.Normalize()
	w := math.Abs(float64(q.W))
	if w > 1 {
		w = 1
	}
	return 2 * math.Acos(w) * 180 / math.Pi
}
