// Package handlers holds the built-in handler implementations. Each one
// decodes its resource and datum kwargs into a typed parameter struct
// before use; none of them decode file formats.
package handlers

import (
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"

	"github.com/mesh-intelligence/filestore/pkg/types"
)

// decode copies kwargs into out. With strict set, keys that out does not
// declare are rejected. Numbers read back from JSON arrive as float64, so
// weak typing is on.
func decode(kwargs types.Kwargs, out any, strict bool) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      strict,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if kwargs == nil {
		kwargs = types.Kwargs{}
	}
	return d.Decode(map[string]any(kwargs))
}

func decodeResource(handler string, kwargs types.Kwargs, out any, strict bool) error {
	if err := decode(kwargs, out, strict); err != nil {
		return &types.ValidationError{Kind: "resource", Keys: sortedKeys(kwargs), Err: fmt.Errorf("%s: %w", handler, err)}
	}
	return nil
}

func decodeDatum(handler string, kwargs types.Kwargs, out any) error {
	if err := decode(kwargs, out, true); err != nil {
		return &types.ValidationError{Kind: "datum", Keys: sortedKeys(kwargs), Err: fmt.Errorf("%s: %w", handler, err)}
	}
	return nil
}

// CheckFrames returns an *types.IntegrityError when found differs from
// expected.
func CheckFrames(expected, found int) error {
	if expected != found {
		return &types.IntegrityError{Expected: expected, Found: found}
	}
	return nil
}

// pointParams is the datum kwargs shape shared by the area-detector handlers.
type pointParams struct {
	PointNumber int `mapstructure:"point_number"`
}

func sortedKeys(k types.Kwargs) []string {
	keys := k.Keys()
	sort.Strings(keys)
	return keys
}
