// Package redis persists the directory snapshot under a single Redis key.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"persondir/internal/directory/models"
	"persondir/internal/directory/sink/file"
	"persondir/pkg/platform/sentinel"
)

// DefaultKey holds the JSON array when no key is configured.
const DefaultKey = "persondir:records"

// Sink stores the full JSON array as one string value. SET replaces it
// atomically, so readers see either the old or the new snapshot.
type Sink struct {
	client *redis.Client
	key    string
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithKey overrides the Redis key.
func WithKey(key string) SinkOption {
	return func(s *Sink) {
		if key != "" {
			s.key = key
		}
	}
}

func New(client *redis.Client, opts ...SinkOption) *Sink {
	s := &Sink{client: client, key: DefaultKey}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Sink) ReadAll(ctx context.Context) ([]json.RawMessage, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get %s: %w", s.key, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w: %w", s.key, sentinel.ErrUnavailable, err)
	}
	return file.DecodeArray(data)
}

func (s *Sink) WriteAll(ctx context.Context, records []*models.Record) error {
	if records == nil {
		records = []*models.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}
