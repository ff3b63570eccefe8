package types

import "errors"

// Config holds backend selection and cache sizing for a filestore.
type Config struct {
	Backend        string `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir        string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	DatumCacheSize int    `json:"datum_cache_size" yaml:"datum_cache_size" mapstructure:"datum_cache_size"`
	SpecDir        string `json:"spec_dir" yaml:"spec_dir" mapstructure:"spec_dir"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DefaultDatumCacheSize bounds the datum cache. Datum records are small and
// numerous, so the ceiling is high.
const DefaultDatumCacheSize = 1_000_000

// Config validation errors.
var (
	ErrBackendEmpty      = errors.New("backend must not be empty")
	ErrBackendUnknown    = errors.New("unknown backend")
	ErrCacheSizeNegative = errors.New("datum cache size must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.DatumCacheSize < 0 {
		return ErrCacheSizeNegative
	}
	return nil
}

// GetDatumCacheSize returns the configured datum cache size, falling back to
// DefaultDatumCacheSize when unset.
func (c Config) GetDatumCacheSize() int {
	if c.DatumCacheSize == 0 {
		return DefaultDatumCacheSize
	}
	return c.DatumCacheSize
}
