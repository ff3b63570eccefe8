package handlers

import (
	"fmt"

	"github.com/mesh-intelligence/filestore/pkg/types"
)

type tiffParams struct {
	Template      string `mapstructure:"template"`
	Filename      string `mapstructure:"filename"`
	FramePerPoint int    `mapstructure:"frame_per_point"`
}

// TiffPathOnly resolves an area-detector TIFF datum to the file names that
// hold its frames, without opening them. The template takes the resource
// path, the file name stem and a frame number, e.g. "%s%s_%6.6d.tiff".
type TiffPathOnly struct {
	path   string
	params tiffParams
}

// NewTiffPathOnly builds a TiffPathOnly handler from AD_TIFF resource kwargs.
func NewTiffPathOnly(path string, kwargs types.Kwargs) (types.Handler, error) {
	p := tiffParams{FramePerPoint: 1}
	if err := decodeResource("tiff-path-only", kwargs, &p, true); err != nil {
		return nil, err
	}
	if p.Template == "" {
		return nil, &types.ValidationError{Kind: "resource", Keys: []string{"template"}}
	}
	if p.FramePerPoint < 1 {
		return nil, &types.ValidationError{Kind: "resource", Keys: []string{"frame_per_point"}}
	}
	return &TiffPathOnly{path: path, params: p}, nil
}

// Read returns the frame_per_point file names for the datum's point_number.
func (h *TiffPathOnly) Read(kwargs types.Kwargs) (any, error) {
	var dp pointParams
	if err := decodeDatum("tiff-path-only", kwargs, &dp); err != nil {
		return nil, err
	}
	fpp := h.params.FramePerPoint
	names := make([]string, 0, fpp)
	for n := dp.PointNumber * fpp; n < (dp.PointNumber+1)*fpp; n++ {
		names = append(names, fmt.Sprintf(h.params.Template, h.path, h.params.Filename, n))
	}
	return names, nil
}
