package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/s1natex/tasktree/internal/config"
	"github.com/s1natex/tasktree/internal/tasks"
)

// backuper is implemented by blobs that can keep a copy of unreadable data
// before a reset overwrites it.
type backuper interface {
	Backup(ctx context.Context) (string, error)
}

// openStore builds the configured Blob and loads the forest from it. The
// returned func releases the backend.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*tasks.Store, func(), error) {
	blob, closeFn, err := openBlob(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []tasks.Option{tasks.WithLogger(logger.With(slog.String("cmp", "store")))}

	store, err := tasks.Open(ctx, blob, opts...)
	if errors.Is(err, tasks.ErrMalformedStorage) && cfg.ResetOnMalformed {
		logger.Warn("storage_malformed_reset",
			slog.String("backend", cfg.Backend),
			slog.String("error", err.Error()),
		)
		if b, ok := blob.(backuper); ok {
			backup, berr := b.Backup(ctx)
			if berr != nil {
				closeFn()
				return nil, nil, berr
			}
			logger.Warn("storage_backup", slog.String("path", cfg.Path), slog.String("backup", backup))
		}
		store, err = tasks.Reset(ctx, blob, opts...)
	}
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("open %s storage: %w", cfg.Backend, err)
	}
	return store, closeFn, nil
}

func openBlob(ctx context.Context, cfg config.StorageConfig) (tasks.Blob, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case config.BackendMemory:
		return tasks.NewMemoryBlob(), noop, nil
	case config.BackendFile:
		return tasks.NewFileBlob(cfg.Path), noop, nil
	case config.BackendSQLite:
		dsn, err := tasks.SQLiteFileDSN(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		blob, err := tasks.NewSQLiteBlob(dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := blob.ApplyMigrations(ctx); err != nil {
			_ = blob.Close()
			return nil, nil, err
		}
		return blob, func() { _ = blob.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
