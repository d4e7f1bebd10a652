package cmd

import (
	"context"
	"fmt"

	"github.com/inference-sim/loss-sim/sim/store"
	"github.com/inference-sim/loss-sim/sim/store/redis"
	"github.com/inference-sim/loss-sim/sim/sweep"
)

// storeOptions selects and configures the result store backend.
type storeOptions struct {
	kind       string
	sqlitePath string
	redisAddr  string
}

func noopClose() error { return nil }

// openStore returns the configured store and its close function. For kind
// "none" the returned store is a nil interface, which disables reuse and
// persistence in sweep.Run.
func openStore(ctx context.Context, opts storeOptions) (sweep.ResultStore, func() error, error) {
	switch opts.kind {
	case "", "none":
		return nil, noopClose, nil
	case "memory":
		s := store.NewMemoryStore()
		return s, s.Close, nil
	case "sqlite":
		s, err := store.NewSQLiteStore(opts.sqlitePath)
		if err != nil {
			return nil, noopClose, err
		}
		return s, s.Close, nil
	case "redis":
		s, err := redis.Dial(ctx, opts.redisAddr)
		if err != nil {
			return nil, noopClose, err
		}
		return s, s.Close, nil
	default:
		return nil, noopClose, fmt.Errorf("unknown store %q (want none, memory, sqlite or redis)", opts.kind)
	}
}
