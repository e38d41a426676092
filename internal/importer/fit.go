package importer

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// FIT stores record distance in centimeters.
const fitDistanceScale = 100.0

// ParseFIT reads a FIT activity file. Every record message with a valid
// timestamp and cumulative distance contributes one point.
func ParseFIT(r io.Reader) (types.Activity, []types.Sample, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return types.Activity{}, nil, err
	}

	var points []point
	dec := decoder.New(bytes.NewReader(content))
	for dec.Next() {
		fit, err := dec.Decode()
		if err != nil {
			return types.Activity{}, nil, fmt.Errorf("%w: %v", types.ErrInvalidActivityFile, err)
		}
		for i := range fit.Messages {
			if fit.Messages[i].Num != typedef.MesgNumRecord {
				continue
			}
			rec := mesgdef.NewRecord(&fit.Messages[i])
			if rec.Distance == math.MaxUint32 {
				continue
			}
			points = append(points, point{At: rec.Timestamp, Cumulative: float64(rec.Distance) / fitDistanceScale})
		}
	}
	return build(content, SourceFIT, points)
}
