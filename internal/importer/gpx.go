package importer

import (
	"fmt"
	"io"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// ParseGPX reads a GPX document. Track points are used when present,
// otherwise route points. Distance deltas are great-circle distances
// between consecutive points of the same segment; the gap between two
// segments becomes a zero-distance sample.
func ParseGPX(r io.Reader) (types.Activity, []types.Sample, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return types.Activity{}, nil, err
	}
	doc, err := gpx.ParseBytes(content)
	if err != nil {
		return types.Activity{}, nil, fmt.Errorf("%w: %v", types.ErrInvalidActivityFile, err)
	}

	var points []point
	var previous *gpx.GPXPoint
	var total float64
	add := func(p *gpx.GPXPoint) {
		if previous != nil {
			total += previous.Distance2D(p)
		}
		points = append(points, point{At: p.Timestamp, Cumulative: total})
		pCopy := *p
		previous = &pCopy
	}

	for _, track := range doc.Tracks {
		for _, segment := range track.Segments {
			previous = nil
			for i := range segment.Points {
				add(&segment.Points[i])
			}
		}
	}
	if len(points) == 0 {
		for _, route := range doc.Routes {
			previous = nil
			for i := range route.Points {
				add(&route.Points[i])
			}
		}
	}
	return build(content, SourceGPX, points)
}
