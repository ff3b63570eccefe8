package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/filestore/internal/telemetry"
	"github.com/mesh-intelligence/filestore/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
)

// settings is config.yaml decoded.
type settings struct {
	types.Config `mapstructure:",squash"`
	Tracing      telemetry.Config `mapstructure:"tracing"`
}

// configFile is the structure written to config.yaml by init.
type configFile struct {
	Backend        string           `yaml:"backend"`
	DataDir        string           `yaml:"data_dir,omitempty"`
	DatumCacheSize int              `yaml:"datum_cache_size"`
	SpecDir        string           `yaml:"spec_dir,omitempty"`
	Tracing        telemetry.Config `yaml:"tracing"`
}

// loadConfig reads config.yaml from configDir. A missing file yields the
// defaults.
func loadConfig(configDir string) (settings, error) {
	tracing := telemetry.DefaultConfig()

	v := viper.New()
	v.SetDefault("backend", types.BackendSQLite)
	v.SetDefault("datum_cache_size", types.DefaultDatumCacheSize)
	v.SetDefault("tracing.enabled", tracing.Enabled)
	v.SetDefault("tracing.exporter", tracing.Exporter)
	v.SetDefault("tracing.service_name", tracing.ServiceName)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return settings{}, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

// writeConfigIfMissing creates config.yaml with default values unless it
// already exists.
func writeConfigIfMissing(configDir, dataDir string) (bool, error) {
	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	cfg := configFile{
		Backend:        types.BackendSQLite,
		DataDir:        dataDir,
		DatumCacheSize: types.DefaultDatumCacheSize,
		Tracing:        telemetry.DefaultConfig(),
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
