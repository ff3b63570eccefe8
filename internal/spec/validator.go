// Package spec validates resource and datum kwargs against the JSON Schema
// pair registered for each spec name. Schemas for the built-in specs are
// embedded; more can be loaded from a directory at startup.
package spec

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mesh-intelligence/filestore/pkg/types"
)

// Kind selects which half of a spec's schema pair applies.
type Kind string

// Schema kinds.
const (
	KindResource Kind = "resource"
	KindDatum    Kind = "datum"
)

// File name suffixes for schema files, as in "AD_HDF5_resource.json".
const (
	resourceSuffix = "_resource.json"
	datumSuffix    = "_datum.json"
)

//go:embed schemas/*.json
var builtin embed.FS

// ErrIncompleteSpec is returned when only one half of a schema pair exists.
var ErrIncompleteSpec = errors.New("spec is missing a schema file")

type pair struct {
	resource *jsonschema.Schema
	datum    *jsonschema.Schema
}

// Validator holds compiled schema pairs keyed by spec name.
type Validator struct {
	mu    sync.RWMutex
	specs map[string]pair
}

// New returns a Validator loaded with the built-in specs.
func New() (*Validator, error) {
	v := &Validator{specs: make(map[string]pair)}
	if err := v.loadFS(builtin, "schemas"); err != nil {
		return nil, fmt.Errorf("load built-in specs: %w", err)
	}
	return v, nil
}

// Add compiles and registers a schema pair for name, replacing any pair
// already registered under that name.
func (v *Validator) Add(name string, resourceSchema, datumSchema []byte) error {
	res, err := compile(name, KindResource, resourceSchema)
	if err != nil {
		return err
	}
	dat, err := compile(name, KindDatum, datumSchema)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.specs[name] = pair{resource: res, datum: dat}
	v.mu.Unlock()
	return nil
}

// LoadDir adds every spec found in dir as a "<spec>_resource.json" and
// "<spec>_datum.json" file pair.
func (v *Validator) LoadDir(dir string) error {
	return v.loadFS(os.DirFS(dir), ".")
}

func (v *Validator) loadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read spec dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), resourceSuffix) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), resourceSuffix)
		res, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, e.Name())))
		if err != nil {
			return fmt.Errorf("read %s: %w", e.Name(), err)
		}
		dat, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, name+datumSuffix)))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s%s", ErrIncompleteSpec, name, datumSuffix)
			}
			return fmt.Errorf("read %s%s: %w", name, datumSuffix, err)
		}
		if err := v.Add(name, res, dat); err != nil {
			return err
		}
	}
	return nil
}

// Known reports whether a schema pair is registered for name.
func (v *Validator) Known(name string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.specs[name]
	return ok
}

// Names returns the registered spec names, sorted.
func (v *Validator) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	names := make([]string, 0, len(v.specs))
	for name := range v.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks kwargs against the named spec's schema of the given kind.
// Specs without a registered schema are accepted unchecked. A failure is
// returned as *types.ValidationError listing the offending keys.
func (v *Validator) Validate(name string, kind Kind, kwargs types.Kwargs) error {
	v.mu.RLock()
	p, ok := v.specs[name]
	v.mu.RUnlock()
	if !ok {
		return nil
	}
	schema := p.resource
	if kind == KindDatum {
		schema = p.datum
	}

	doc, err := normalize(kwargs)
	if err != nil {
		return &types.ValidationError{Spec: name, Kind: string(kind), Keys: sortedKeys(kwargs), Err: err}
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &types.ValidationError{Spec: name, Kind: string(kind), Keys: offendingKeys(ve), Err: err}
		}
		return &types.ValidationError{Spec: name, Kind: string(kind), Err: err}
	}
	return nil
}

func compile(name string, kind Kind, schema []byte) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://filestore.schemas.local/%s_%s.json", name, kind)
	if err := c.AddResource(url, bytes.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("load %s %s schema: %w", name, kind, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s %s schema: %w", name, kind, err)
	}
	return compiled, nil
}

// normalize converts kwargs into the generic JSON form the schema validator
// expects. Nil kwargs validate as an empty object.
func normalize(kwargs types.Kwargs) (any, error) {
	if kwargs == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(kwargs)
	if err != nil {
		return nil, fmt.Errorf("kwargs are not JSON-compatible: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

var quoted = regexp.MustCompile(`'([^']*)'`)

// offendingKeys collects the top-level kwargs named by the leaf errors: the
// first segment of the instance location, or the property names quoted in
// the message for errors reported against the whole object.
func offendingKeys(ve *jsonschema.ValidationError) []string {
	seen := make(map[string]bool)
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		if loc := strings.TrimPrefix(e.InstanceLocation, "/"); loc != "" {
			seg, _, _ := strings.Cut(loc, "/")
			seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
			seen[seg] = true
			return
		}
		for _, m := range quoted.FindAllStringSubmatch(e.Message, -1) {
			seen[m[1]] = true
		}
	}
	walk(ve)

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(k types.Kwargs) []string {
	keys := k.Keys()
	sort.Strings(keys)
	return keys
}
