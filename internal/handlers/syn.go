package handlers

import (
	"fmt"

	"github.com/mesh-intelligence/filestore/pkg/types"
)

type synParams struct {
	Shape  []int `mapstructure:"shape"`
	Frames *int  `mapstructure:"frames"`
}

type synDatum struct {
	N float64 `mapstructure:"n"`
}

// synthetic holds the frame shape shared by the synthetic handlers.
type synthetic struct {
	name   string
	params synParams
	size   int
}

func newSynthetic(name string, kwargs types.Kwargs) (synthetic, error) {
	var p synParams
	if err := decodeResource(name, kwargs, &p, true); err != nil {
		return synthetic{}, err
	}
	if len(p.Shape) == 0 {
		return synthetic{}, &types.ValidationError{Kind: "resource", Keys: []string{"shape"}}
	}
	size := 1
	for _, d := range p.Shape {
		if d < 0 {
			return synthetic{}, &types.ValidationError{Kind: "resource", Keys: []string{"shape"},
				Err: fmt.Errorf("%s: negative dimension %d", name, d)}
		}
		size *= d
	}
	return synthetic{name: name, params: p, size: size}, nil
}

// frame allocates the output array. When the resource simulates a short
// source, the leading dimension is cut to the available frames and the
// result is checked against the requested shape.
func (s synthetic) frame() (*types.Array, error) {
	if s.params.Frames != nil {
		if err := CheckFrames(s.params.Shape[0], *s.params.Frames); err != nil {
			return nil, err
		}
	}
	return types.NewArray(s.params.Shape...), nil
}

// SynMod returns a ramp modulo n reshaped to the frame shape.
type SynMod struct{ synthetic }

// NewSynMod builds a SynMod handler. Resource kwargs: shape, optional frames.
func NewSynMod(_ string, kwargs types.Kwargs) (types.Handler, error) {
	s, err := newSynthetic("syn-mod", kwargs)
	if err != nil {
		return nil, err
	}
	return &SynMod{s}, nil
}

// Read implements types.Handler. Datum kwargs: n, a positive integer.
func (h *SynMod) Read(kwargs types.Kwargs) (any, error) {
	var d synDatum
	if err := decodeDatum(h.name, kwargs, &d); err != nil {
		return nil, err
	}
	n := int(d.N)
	if n <= 0 || float64(n) != d.N {
		return nil, &types.ValidationError{Kind: "datum", Keys: []string{"n"},
			Err: fmt.Errorf("%s: n must be a positive integer, got %v", h.name, d.N)}
	}
	out, err := h.frame()
	if err != nil {
		return nil, err
	}
	for i := range out.Data {
		out.Data[i] = float64(i % n)
	}
	return out, nil
}

// SynEcho returns a frame filled with n.
type SynEcho struct{ synthetic }

// NewSynEcho builds a SynEcho handler. Resource kwargs: shape, optional frames.
func NewSynEcho(_ string, kwargs types.Kwargs) (types.Handler, error) {
	s, err := newSynthetic("syn-echo", kwargs)
	if err != nil {
		return nil, err
	}
	return &SynEcho{s}, nil
}

// Read implements types.Handler. Datum kwargs: n.
func (h *SynEcho) Read(kwargs types.Kwargs) (any, error) {
	var d synDatum
	if err := decodeDatum(h.name, kwargs, &d); err != nil {
		return nil, err
	}
	out, err := h.frame()
	if err != nil {
		return nil, err
	}
	for i := range out.Data {
		out.Data[i] = d.N
	}
	return out, nil
}
