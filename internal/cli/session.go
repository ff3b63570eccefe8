package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/filestore/internal/handlers"
	"github.com/mesh-intelligence/filestore/internal/paths"
	"github.com/mesh-intelligence/filestore/internal/spec"
	"github.com/mesh-intelligence/filestore/internal/sqlite"
	"github.com/mesh-intelligence/filestore/internal/telemetry"
	"github.com/mesh-intelligence/filestore/pkg/filestore"
)

// newLogger builds a production logger writing to stderr: warnings only by
// default, everything with verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// session is an open filestore and what backs it.
type session struct {
	fs       *filestore.FileStore
	backend  *sqlite.Backend
	provider *telemetry.Provider
	dataDir  string
}

// open attaches the SQLite store and builds a FileStore with the built-in
// handlers and any schemas in the spec directory.
func (a *app) open() (*session, error) {
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.settings.DataDir)
	if err != nil {
		return nil, systemError{fmt.Errorf("resolve data dir: %w", err)}
	}
	cfg := a.settings.Config
	cfg.DataDir = dataDir

	validator, err := a.validator()
	if err != nil {
		return nil, err
	}
	provider, err := telemetry.NewProvider(a.settings.Tracing)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	metrics, err := telemetry.NewCacheMetrics(otel.Meter(telemetry.DefaultServiceName))
	if err != nil {
		return nil, systemError{err}
	}

	backend := sqlite.NewBackend()
	if err := backend.Attach(cfg); err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, systemError{fmt.Errorf("attach backend: %w", err)}
	}

	fs, err := filestore.New(backend,
		filestore.WithLogger(a.logger),
		filestore.WithTracer(provider.Tracer()),
		filestore.WithCacheMetrics(metrics),
		filestore.WithDatumCacheSize(cfg.GetDatumCacheSize()),
		filestore.WithValidator(validator),
		filestore.WithHandlers(handlers.Builtins()),
	)
	if err != nil {
		_ = backend.Detach()
		_ = provider.Shutdown(context.Background())
		return nil, err
	}
	a.logger.Debug("filestore opened", zap.String("data_dir", dataDir))
	return &session{fs: fs, backend: backend, provider: provider, dataDir: dataDir}, nil
}

// validator returns the built-in schemas plus those under the spec
// directory. A configured spec_dir must exist; the default one may not.
func (a *app) validator() (*spec.Validator, error) {
	v, err := spec.New()
	if err != nil {
		return nil, systemError{err}
	}
	dir, err := paths.ResolveSpecDir(a.configDir, a.settings.SpecDir)
	if err != nil {
		return nil, systemError{err}
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) && a.settings.SpecDir == "" {
		return v, nil
	}
	if err := v.LoadDir(dir); err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}
	return v, nil
}

// Close closes the filestore, which detaches the backend, then flushes
// pending spans.
func (s *session) Close() error {
	return errors.Join(s.fs.Close(), s.provider.Shutdown(context.Background()))
}
