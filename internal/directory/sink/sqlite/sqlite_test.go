package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"persondir/internal/directory/models"
)

type SQLiteSinkSuite struct {
	suite.Suite
	path string
	sink *Sink
	ctx  context.Context
}

func TestSQLiteSinkSuite(t *testing.T) {
	suite.Run(t, new(SQLiteSinkSuite))
}

func (s *SQLiteSinkSuite) SetupTest() {
	s.ctx = context.Background()
	s.path = filepath.Join(s.T().TempDir(), "data", "persondir.db")
	sink, err := Open(s.path)
	s.Require().NoError(err)
	s.sink = sink
	s.T().Cleanup(func() { _ = s.sink.Close() })
}

func (s *SQLiteSinkSuite) TestEmptyDatabase() {
	raw, err := s.sink.ReadAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(raw)
}

func (s *SQLiteSinkSuite) TestWriteReplacesSnapshot() {
	first := []*models.Record{
		{ID: "18", Name: "Alice", PhoneNumber: "0501234567", Address: "A"},
		{ID: "26", Name: "Bob", PhoneNumber: "0501234568", Address: "B"},
	}
	s.Require().NoError(s.sink.WriteAll(s.ctx, first))

	second := []*models.Record{
		{ID: "26", Name: "Bob", PhoneNumber: "0501234568", Address: "B2",
			Extra: map[string]json.RawMessage{"note": json.RawMessage(`"vip"`)}},
	}
	s.Require().NoError(s.sink.WriteAll(s.ctx, second))

	raw, err := s.sink.ReadAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(raw, 1)

	var rec models.Record
	s.Require().NoError(json.Unmarshal(raw[0], &rec))
	s.Equal(*second[0], rec)
}

func (s *SQLiteSinkSuite) TestSnapshotSurvivesReopen() {
	records := []*models.Record{
		{ID: "34", Name: "Carol", PhoneNumber: "0501234569", Address: "C"},
		{ID: "18", Name: "Alice", PhoneNumber: "0501234567", Address: "A"},
	}
	s.Require().NoError(s.sink.WriteAll(s.ctx, records))
	s.Require().NoError(s.sink.Close())

	reopened, err := Open(s.path)
	s.Require().NoError(err)
	s.sink = reopened

	raw, err := reopened.ReadAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(raw, 2)

	var first models.Record
	s.Require().NoError(json.Unmarshal(raw[0], &first))
	s.Equal("34", first.ID)
}
