//go:build integration

package redis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"persondir/internal/directory/models"
	redissink "persondir/internal/directory/sink/redis"
	"persondir/pkg/platform/sentinel"
	"persondir/pkg/testutil/containers"
)

type RedisSinkSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	sink  *redissink.Sink
	ctx   context.Context
}

func TestRedisSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSinkSuite))
}

func (s *RedisSinkSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
	s.sink = redissink.New(s.redis.Client, redissink.WithKey("test:records"))
}

func (s *RedisSinkSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisSinkSuite) TestMissingKeyIsNotFound() {
	_, err := s.sink.ReadAll(s.ctx)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisSinkSuite) TestMalformedValue() {
	s.Require().NoError(s.redis.Client.Set(s.ctx, "test:records", "not json", 0).Err())
	_, err := s.sink.ReadAll(s.ctx)
	s.Require().ErrorIs(err, sentinel.ErrMalformed)
}

func (s *RedisSinkSuite) TestRoundTrip() {
	records := []*models.Record{
		{ID: "123456782", Name: "Test User", PhoneNumber: "0501112222", Address: "Test Address"},
		{ID: "18", Name: "Alice", PhoneNumber: "0501234567", Address: "Main St 1"},
	}
	s.Require().NoError(s.sink.WriteAll(s.ctx, records))

	raw, err := s.sink.ReadAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(raw, 2)
	s.JSONEq(`{"id":"18","name":"Alice","phone_number":"0501234567","address":"Main St 1"}`, string(raw[1]))
}
