// JSON record structures for export and import files.
package sqlite

import (
	"encoding/json"

	"github.com/mesh-intelligence/filestore/pkg/types"
)

// resourceJSON represents a resource in resource.jsonl.
type resourceJSON struct {
	ID             string          `json:"_id"`
	Spec           string          `json:"spec"`
	ResourcePath   string          `json:"resource_path"`
	ResourceKwargs json.RawMessage `json:"resource_kwargs"`
}

// datumJSON represents a datum in datum.jsonl.
type datumJSON struct {
	ID          string          `json:"_id"`
	DatumID     string          `json:"datum_id"`
	Resource    string          `json:"resource"`
	DatumKwargs json.RawMessage `json:"datum_kwargs"`
}

// encodeKwargs serializes kwargs for a TEXT column. Nil kwargs store as {}.
func encodeKwargs(k types.Kwargs) (string, error) {
	if k == nil {
		return "{}", nil
	}
	b, err := json.Marshal(k)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeKwargs parses a TEXT column back into kwargs. Numbers decode as
// float64.
func decodeKwargs(s string) (types.Kwargs, error) {
	k := types.Kwargs{}
	if s == "" {
		return k, nil
	}
	if err := json.Unmarshal([]byte(s), &k); err != nil {
		return nil, err
	}
	if k == nil {
		k = types.Kwargs{}
	}
	return k, nil
}

// rawKwargs returns the stored JSON text as a raw message, substituting {}
// for anything that is not a JSON object.
func rawKwargs(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(s)
}
