package handlers

import "github.com/mesh-intelligence/filestore/pkg/types"

// RawResult is what the raw handler returns: its inputs, unchanged.
type RawResult struct {
	Path           string       `json:"path"`
	ResourceKwargs types.Kwargs `json:"resource_kwargs"`
	DatumKwargs    types.Kwargs `json:"datum_kwargs"`
}

// Raw echoes the resource path and both kwargs sets. It is useful for
// inspecting what a datum points at without touching the file.
type Raw struct {
	path   string
	kwargs types.Kwargs
}

// NewRaw accepts any resource kwargs.
func NewRaw(path string, kwargs types.Kwargs) (types.Handler, error) {
	return &Raw{path: path, kwargs: kwargs.Clone()}, nil
}

// Read implements types.Handler.
func (h *Raw) Read(kwargs types.Kwargs) (any, error) {
	return RawResult{Path: h.path, ResourceKwargs: h.kwargs.Clone(), DatumKwargs: kwargs.Clone()}, nil
}
