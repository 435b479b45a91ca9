package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/database"
	"github.com/kozaktomas/face-matcher/internal/database/mariadb"
	"github.com/kozaktomas/face-matcher/internal/database/postgres"
	"github.com/kozaktomas/face-matcher/internal/inference"
	"github.com/kozaktomas/face-matcher/internal/inference/onnx"
	"github.com/kozaktomas/face-matcher/internal/inference/remote"
	"github.com/kozaktomas/face-matcher/internal/logging"
	"github.com/kozaktomas/face-matcher/internal/pipeline"
)

// app bundles the pipeline a command runs with the resources it must release.
type app struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	store    database.FaceWriter
	closers  []func() error
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.Warn(logging.Fields{"error": err.Error()}, "cleanup failed")
		}
	}
}

// newEngine creates the detector and recognizer sessions for the configured backend.
func newEngine(cfg *config.Config) (*inference.Engine, error) {
	switch cfg.Inference.Backend {
	case constants.BackendRemote:
		logging.Info(logging.Fields{"url": cfg.Inference.URL}, "using remote inference")
		return remote.NewEngine(cfg.Inference.URL, 0), nil
	case constants.BackendONNX:
		return onnx.NewEngine(cfg.Detector.ModelPath, cfg.Recognizer.ModelPath, onnx.Options{
			LibraryPath: cfg.Inference.LibraryPath,
			Threads:     cfg.Inference.Threads,
		})
	}
	return nil, fmt.Errorf("unknown inference backend %q", cfg.Inference.Backend)
}

// openStore connects the configured face store. PostgreSQL wins when both are
// configured; no store at all returns nil.
func openStore(ctx context.Context, cfg *config.Config) (database.FaceWriter, func() error, error) {
	switch {
	case cfg.Database.URL != "":
		fmt.Println("Connecting to PostgreSQL database...")
		pool, err := postgres.Initialize(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		store, err := database.GetFaceWriter()
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	case cfg.MariaDB.DSN != "":
		fmt.Println("Connecting to MariaDB database...")
		pool, err := mariadb.Initialize(ctx, cfg.MariaDB.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		store, err := database.GetFaceWriter()
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	}
	return nil, nil, nil
}

// newApp loads the models and, when withStore is set, attaches the face store
// and restores the registry from it.
func newApp(ctx context.Context, withStore bool) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	engine, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, engine.Close)

	p, err := pipeline.New(engine, opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pipeline = p

	if !withStore {
		return a, nil
	}
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if store == nil {
		return a, nil
	}
	a.closers = append(a.closers, closeStore)
	a.store = store
	p.SetStore(store)

	n, err := p.Restore(ctx, store)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("restoring registry: %w", err)
	}
	fmt.Printf("Restored %d registered faces (%s)\n", n, database.BackendName())
	return a, nil
}

// requireStore returns the store or an error naming the settings that enable it.
func (a *app) requireStore() (database.FaceWriter, error) {
	if a.store == nil {
		return nil, database.ErrNotInitialized
	}
	return a.store, nil
}
