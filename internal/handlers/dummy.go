package handlers

import (
	"math"

	"github.com/mesh-intelligence/filestore/pkg/types"
)

// Dummy frames are 10x10.
const dummyFrameSide = 10

type dummyParams struct {
	FramePerPoint int  `mapstructure:"frame_per_point"`
	Frames        *int `mapstructure:"frames"`
}

// Dummy stands in for an area detector whose files are unavailable: every
// datum reads as frame_per_point frames of NaN. Unknown resource kwargs are
// ignored. Setting "frames" simulates a source holding a different number of
// frames, which Read reports as an integrity error.
type Dummy struct {
	params dummyParams
}

// NewDummy builds a Dummy handler.
func NewDummy(_ string, kwargs types.Kwargs) (types.Handler, error) {
	p := dummyParams{FramePerPoint: 1}
	if err := decodeResource("dummy-area-detector", kwargs, &p, false); err != nil {
		return nil, err
	}
	var bad []string
	if p.FramePerPoint < 0 {
		bad = append(bad, "frame_per_point")
	}
	if p.Frames != nil && *p.Frames < 0 {
		bad = append(bad, "frames")
	}
	if len(bad) > 0 {
		return nil, &types.ValidationError{Kind: "resource", Keys: bad}
	}
	return &Dummy{params: p}, nil
}

// Read returns a squeezed (frame_per_point, 10, 10) array of NaN. Datum kwargs
// are ignored.
func (h *Dummy) Read(types.Kwargs) (any, error) {
	found := h.params.FramePerPoint
	if h.params.Frames != nil {
		found = *h.params.Frames
	}
	if err := CheckFrames(h.params.FramePerPoint, found); err != nil {
		return nil, err
	}
	out := types.NewArray(found, dummyFrameSide, dummyFrameSide)
	for i := range out.Data {
		out.Data[i] = math.NaN()
	}
	return out.Squeeze(), nil
}
