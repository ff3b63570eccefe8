package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/filestore/pkg/types"
)

// emit writes v as indented JSON in --json mode and calls text otherwise.
func (a *app) emit(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if a.flags.jsonMode {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(jsonValue(v)); err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		return nil
	}
	text(w)
	return nil
}

// jsonArray is an Array whose non-finite samples encode as null.
type jsonArray struct {
	Shape []int      `json:"shape"`
	Data  []*float64 `json:"data"`
}

// jsonValue replaces arrays with a form encoding/json accepts.
func jsonValue(v any) any {
	arr, ok := v.(*types.Array)
	if !ok {
		return v
	}
	out := jsonArray{Shape: arr.Shape, Data: make([]*float64, len(arr.Data))}
	for i := range arr.Data {
		if x := arr.Data[i]; !math.IsNaN(x) && !math.IsInf(x, 0) {
			out.Data[i] = &x
		}
	}
	return out
}

// parseKwargs decodes a JSON object flag value. Empty means no kwargs.
func parseKwargs(s string) (types.Kwargs, error) {
	if s == "" {
		return nil, nil
	}
	var kw types.Kwargs
	if err := json.Unmarshal([]byte(s), &kw); err != nil {
		return nil, &types.ValidationError{Err: fmt.Errorf("kwargs must be a JSON object: %w", err)}
	}
	return kw, nil
}

func printResource(w io.Writer, r types.Resource) {
	fmt.Fprintf(w, "id:     %s\nspec:   %s\npath:   %s\nkwargs: %s\n", r.ID, r.Spec, r.ResourcePath, kwargsText(r.ResourceKwargs))
}

func printDatum(w io.Writer, d types.Datum) {
	fmt.Fprintf(w, "id:       %s\nresource: %s\nkwargs:   %s\n", d.DatumID, d.Resource, kwargsText(d.DatumKwargs))
}

func kwargsText(kw types.Kwargs) string {
	if len(kw) == 0 {
		return "{}"
	}
	b, err := json.Marshal(kw)
	if err != nil {
		return fmt.Sprint(map[string]any(kw))
	}
	return string(b)
}
