package main

import (
	"fmt"

	"github.com/aretw0/espalier/internal/config"
	"github.com/aretw0/espalier/pkg/adapters/file"
	loamstore "github.com/aretw0/espalier/pkg/adapters/loam"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	redisstore "github.com/aretw0/espalier/pkg/adapters/redis"
	"github.com/aretw0/espalier/pkg/persistence/middleware"
	"github.com/aretw0/espalier/pkg/ports"
)

type backend struct {
	store  ports.SceneStore
	locker ports.DistributedLocker
	close  func() error
}

// openBackend opens the scene store selected by cfg.Store.Backend, encrypted
// when an encryption key is configured.
func openBackend(cfg config.Config) (*backend, error) {
	b, err := openPlainBackend(cfg)
	if err != nil {
		return nil, err
	}
	active, fallback, err := cfg.Store.EncryptionKeys()
	if err != nil || active == nil {
		return b, err
	}
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
	if err != nil {
		return nil, err
	}
	b.store = middleware.Chain(b.store, mw)
	return b, nil
}

func openPlainBackend(cfg config.Config) (*backend, error) {
	noop := func() error { return nil }

	switch cfg.Store.Backend {
	case config.BackendMemory:
		return &backend{store: memory.NewStore(), close: noop}, nil
	case config.BackendFile:
		format := file.Format(cfg.Store.Format)
		if format == "" {
			format = file.FormatJSON
		}
		return &backend{
			store: file.New(cfg.Store.Path, file.WithFormat(format)),
			close: noop,
		}, nil
	case config.BackendLoam:
		store, err := loamstore.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open loam store: %w", err)
		}
		return &backend{store: store, close: noop}, nil
	case config.BackendRedis:
		rc := cfg.Store.Redis
		opts := []redisstore.Option{redisstore.WithPrefix(rc.Prefix)}
		if rc.TTL > 0 {
			opts = append(opts, redisstore.WithTTL(rc.TTL))
		}
		store := redisstore.New(rc.Address, rc.Password, rc.DB, opts...)
		return &backend{
			store:  store,
			locker: redisstore.NewLocker(store.Client(), rc.Prefix),
			close:  store.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
