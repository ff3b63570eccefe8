package handlers

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/filestore/pkg/types"
)

func TestRaw(t *testing.T) {
	h, err := NewRaw("path", types.Kwargs{"a": 1})
	require.NoError(t, err)

	got, err := h.Read(types.Kwargs{"b": 2})
	require.NoError(t, err)
	assert.Equal(t, RawResult{
		Path:           "path",
		ResourceKwargs: types.Kwargs{"a": 1},
		DatumKwargs:    types.Kwargs{"b": 2},
	}, got)
}

func TestTiffPathOnly(t *testing.T) {
	for _, fpp := range []int{1, 5} {
		t.Run(fmt.Sprintf("fpp=%d", fpp), func(t *testing.T) {
			h, err := NewTiffPathOnly("/foo/", types.Kwargs{
				"template":        "%s%s_%6.6d.tiff",
				"filename":        "baz",
				"frame_per_point": float64(fpp),
			})
			require.NoError(t, err)

			for j := 0; j < 5; j++ {
				got, err := h.Read(types.Kwargs{"point_number": j})
				require.NoError(t, err)

				want := make([]string, 0, fpp)
				for n := j * fpp; n < (j+1)*fpp; n++ {
					want = append(want, fmt.Sprintf("/foo/baz_%06d.tiff", n))
				}
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestTiffPathOnly_InvalidKwargs(t *testing.T) {
	tests := []struct {
		name   string
		kwargs types.Kwargs
	}{
		{"missing template", types.Kwargs{"filename": "baz"}},
		{"unknown key", types.Kwargs{"template": "%s%s_%6.6d.tiff", "filename": "baz", "aardvark": 5}},
		{"zero frames per point", types.Kwargs{"template": "%s%s_%6.6d.tiff", "filename": "baz", "frame_per_point": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTiffPathOnly("/foo/", tt.kwargs)
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}
}

func TestDummy(t *testing.T) {
	tests := []struct {
		fpp   int
		shape []int
	}{
		{1, []int{10, 10}},
		{3, []int{3, 10, 10}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("fpp=%d", tt.fpp), func(t *testing.T) {
			h, err := NewDummy("", types.Kwargs{"frame_per_point": tt.fpp, "aadvark": 5})
			require.NoError(t, err)

			got, err := h.Read(types.Kwargs{"point_number": 0})
			require.NoError(t, err)
			arr := got.(*types.Array)
			assert.Equal(t, tt.shape, arr.Shape)
			for _, v := range arr.Data {
				require.True(t, math.IsNaN(v))
			}
		})
	}
}

func TestDummy_FewerFramesThanRequested(t *testing.T) {
	h, err := NewDummy("", types.Kwargs{"frame_per_point": 5, "frames": 3})
	require.NoError(t, err)

	_, err = h.Read(nil)
	var ie *types.IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 5, ie.Expected)
	assert.Equal(t, 3, ie.Found)
	assert.Equal(t, "expected 5 frames, found 3 frames", err.Error())
}

func TestDummy_NegativeFrameCounts(t *testing.T) {
	tests := []struct {
		kwargs types.Kwargs
		keys   []string
	}{
		{types.Kwargs{"frame_per_point": -1}, []string{"frame_per_point"}},
		{types.Kwargs{"frame_per_point": 2, "frames": -3}, []string{"frames"}},
		{types.Kwargs{"frame_per_point": -2, "frames": -2}, []string{"frame_per_point", "frames"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.keys), func(t *testing.T) {
			h, err := NewDummy("", tt.kwargs)
			assert.Nil(t, h)
			var ve *types.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "resource", ve.Kind)
			assert.Equal(t, tt.keys, ve.Keys)
		})
	}
}

func TestSynMod(t *testing.T) {
	h, err := NewSynMod("", types.Kwargs{"shape": []any{2.0, 3.0}})
	require.NoError(t, err)

	got, err := h.Read(types.Kwargs{"n": 4})
	require.NoError(t, err)
	assert.Equal(t, &types.Array{Shape: []int{2, 3}, Data: []float64{0, 1, 2, 3, 0, 1}}, got)

	_, err = h.Read(types.Kwargs{"n": 0})
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = h.Read(types.Kwargs{"n": 1, "extra": true})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestSynEcho(t *testing.T) {
	h, err := NewSynEcho("", types.Kwargs{"shape": []int{2, 2}})
	require.NoError(t, err)

	got, err := h.Read(types.Kwargs{"n": 7})
	require.NoError(t, err)
	assert.Equal(t, &types.Array{Shape: []int{2, 2}, Data: []float64{7, 7, 7, 7}}, got)
}

func TestSynthetic_ShortSource(t *testing.T) {
	for name, ctor := range map[string]types.HandlerConstructor{"mod": NewSynMod, "echo": NewSynEcho} {
		t.Run(name, func(t *testing.T) {
			h, err := ctor("", types.Kwargs{"shape": []int{4, 2}, "frames": 1})
			require.NoError(t, err)

			_, err = h.Read(types.Kwargs{"n": 2})
			var ie *types.IntegrityError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, 4, ie.Expected)
			assert.Equal(t, 1, ie.Found)
		})
	}
}

func TestSynthetic_InvalidShape(t *testing.T) {
	_, err := NewSynMod("", types.Kwargs{})
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = NewSynEcho("", types.Kwargs{"shape": []int{2, -1}})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestBuiltins(t *testing.T) {
	b := Builtins()
	assert.Len(t, b, 5)
	assert.True(t, b[SpecADTiff] == TiffPathOnlyFactory)
	assert.True(t, Builtins()[SpecSynMod] == b[SpecSynMod], "factories are stable across calls")

	names := map[string]bool{}
	for _, f := range b {
		names[f.Name()] = true
	}
	assert.Len(t, names, 5, "handler names are distinct")
}

func TestCheckFrames(t *testing.T) {
	assert.NoError(t, CheckFrames(2, 2))
	assert.ErrorIs(t, CheckFrames(2, 1), types.ErrIntegrity)
}
