package handlers

import "github.com/mesh-intelligence/filestore/pkg/types"

// Spec names bound by Builtins.
const (
	SpecRaw     = "RAW"
	SpecADTiff  = "AD_TIFF"
	SpecDummy   = "DUMMY"
	SpecSynMod  = "syn-mod"
	SpecSynEcho = "syn-echo"
)

// Built-in handler factories. Each is a single value so registering it twice
// is recognized as the same binding.
var (
	RawFactory          = types.NewHandlerFactory("raw", NewRaw)
	TiffPathOnlyFactory = types.NewHandlerFactory("tiff-path-only", NewTiffPathOnly)
	DummyFactory        = types.NewHandlerFactory("dummy-area-detector", NewDummy)
	SynModFactory       = types.NewHandlerFactory("syn-mod", NewSynMod)
	SynEchoFactory      = types.NewHandlerFactory("syn-echo", NewSynEcho)
)

// Builtins returns the default spec to factory bindings.
func Builtins() map[string]types.HandlerFactory {
	return map[string]types.HandlerFactory{
		SpecRaw:     RawFactory,
		SpecADTiff:  TiffPathOnlyFactory,
		SpecDummy:   DummyFactory,
		SpecSynMod:  SynModFactory,
		SpecSynEcho: SynEchoFactory,
	}
}
