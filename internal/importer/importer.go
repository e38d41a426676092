// Package importer turns recorded workout files into activities and
// distance samples.
package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// Source labels recorded on imported activities.
const (
	SourceGPX = "gpx"
	SourceFIT = "fit"
)

// activityNamespace scopes content-derived activity IDs.
var activityNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://shoerack.dev/activity"))

// point is one timestamped position along a workout. Cumulative is the
// distance covered since the first point, in meters.
type point struct {
	At         time.Time
	Cumulative float64
}

// build converts an ordered point series into an activity and its samples.
// Each consecutive pair of points becomes one sample.
func build(content []byte, source string, points []point) (types.Activity, []types.Sample, error) {
	if len(points) < 2 {
		return types.Activity{}, nil, fmt.Errorf("%w: need at least two points, got %d", types.ErrInvalidActivityFile, len(points))
	}
	samples := make([]types.Sample, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		if prev.At.IsZero() || cur.At.IsZero() {
			return types.Activity{}, nil, fmt.Errorf("%w: point %d has no timestamp", types.ErrInvalidActivityFile, i)
		}
		if cur.At.Before(prev.At) {
			return types.Activity{}, nil, fmt.Errorf("%w: timestamps go backwards at point %d", types.ErrInvalidActivityFile, i)
		}
		delta := cur.Cumulative - prev.Cumulative
		if delta < 0 {
			delta = 0
		}
		samples = append(samples, types.Sample{StartTime: prev.At.UTC(), EndTime: cur.At.UTC(), Distance: delta})
	}

	var total float64
	for _, s := range samples {
		total += s.Distance
	}
	activity := types.Activity{
		ActivityID: uuid.NewSHA1(activityNamespace, content).String(),
		StartTime:  points[0].At.UTC(),
		EndTime:    points[len(points)-1].At.UTC(),
		Distance:   total,
		Source:     source,
	}
	return activity, samples, nil
}

// Parse reads a workout file and dispatches on the file extension.
func Parse(name string, r io.Reader) (types.Activity, []types.Sample, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gpx":
		return ParseGPX(r)
	case ".fit":
		return ParseFIT(r)
	default:
		return types.Activity{}, nil, fmt.Errorf("%w: unsupported file type %q", types.ErrInvalidActivityFile, filepath.Ext(name))
	}
}

// ImportFile parses the file at path and stores the result. Re-importing the
// same file replaces the earlier copy because the ID is content-derived.
func ImportFile(ctx context.Context, w types.ActivityWriter, path string) (types.Activity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Activity{}, fmt.Errorf("reading %s: %w", path, err)
	}
	activity, samples, err := Parse(path, bytes.NewReader(data))
	if err != nil {
		return types.Activity{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := w.PutActivity(ctx, activity, samples); err != nil {
		return types.Activity{}, fmt.Errorf("storing activity %s: %w", activity.ActivityID, err)
	}
	return activity, nil
}
