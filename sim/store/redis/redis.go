// Package redis stores finalized series in Redis: one list of JSON documents
// per cell plus a set indexing the cells.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/inference-sim/loss-sim/sim"
	"github.com/inference-sim/loss-sim/sim/store"
)

const (
	keyPrefix = "loss-sim:stats:"
	modelsSet = "loss-sim:models"
)

// Store is a Redis-backed result store.
type Store struct {
	client *redis.Client
}

// NewStore wraps an existing client. The caller keeps ownership of the
// connection options; Close closes the client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return NewStore(client), nil
}

func (s *Store) makeKey(model sim.ModelDescription) string {
	return keyPrefix + store.Key(model)
}

// Insert appends one series to the cell's list and indexes the cell.
func (s *Store) Insert(ctx context.Context, model sim.ModelDescription, stats sim.FinalizedStatistics) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal statistics: %w", err)
	}
	key := s.makeKey(model)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.SAdd(ctx, modelsSet, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store statistics under %s: %w", key, err)
	}
	return nil
}

// Find returns the compatible series stored for model, oldest first.
func (s *Store) Find(ctx context.Context, model sim.ModelDescription, minVersion string, minThreshold uint64) ([]sim.FinalizedStatistics, error) {
	key := s.makeKey(model)
	values, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	found := make([]sim.FinalizedStatistics, 0, len(values))
	for _, v := range values {
		var fs sim.FinalizedStatistics
		if err := json.Unmarshal([]byte(v), &fs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal statistics from %s: %w", key, err)
		}
		found = append(found, fs)
	}
	return store.Filter(found, minVersion, minThreshold), nil
}

// Cells returns the number of indexed cells.
func (s *Store) Cells(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, modelsSet).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", modelsSet, err)
	}
	return n, nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
