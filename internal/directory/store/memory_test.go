package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"persondir/internal/directory/models"
	"persondir/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func newRecord(id, name string) *models.Record {
	return &models.Record{ID: id, Name: name, PhoneNumber: "0501234567", Address: "Main St 1"}
}

// TestCreationAndLookups verifies records are created and found by id and name.
func (s *InMemoryStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds record by id", func() {
		rec := newRecord("123456782", "Test User")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		found, err := s.store.FindByID(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(rec, found)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, "000000018")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate id and keeps the first record", func() {
		err := s.store.Create(s.ctx, newRecord("123456782", "Someone Else"))
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

		found, err := s.store.FindByID(s.ctx, "123456782")
		s.Require().NoError(err)
		s.Equal("Test User", found.Name)
	})

	s.Run("finds by name case-insensitively", func() {
		for _, name := range []string{"test user", "TEST USER", "Test User"} {
			found, err := s.store.FindByName(s.ctx, name)
			s.Require().NoError(err, name)
			s.Equal("123456782", found.ID)
		}
	})

	s.Run("name match is exact, not substring", func() {
		_, err := s.store.FindByName(s.ctx, "test")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestOrdering verifies insertion order is kept through overwrite and delete.
func (s *InMemoryStoreSuite) TestOrdering() {
	s.Require().NoError(s.store.Put(s.ctx, newRecord("18", "Alice")))
	s.Require().NoError(s.store.Put(s.ctx, newRecord("26", "Bob")))
	s.Require().NoError(s.store.Put(s.ctx, newRecord("34", "alice")))

	s.Run("first match wins for shared names", func() {
		found, err := s.store.FindByName(s.ctx, "ALICE")
		s.Require().NoError(err)
		s.Equal("18", found.ID)
	})

	s.Run("put overwrites in place", func() {
		s.Require().NoError(s.store.Put(s.ctx, newRecord("18", "Alicia")))
		names, err := s.store.Names(s.ctx)
		s.Require().NoError(err)
		s.Equal([]string{"Alicia", "Bob", "alice"}, names)
	})

	s.Run("delete removes from listing", func() {
		deleted, err := s.store.Delete(s.ctx, "26")
		s.Require().NoError(err)
		s.Equal("Bob", deleted.Name)

		list, err := s.store.List(s.ctx)
		s.Require().NoError(err)
		s.Len(list, 2)
		s.Equal("18", list[0].ID)
		s.Equal("34", list[1].ID)

		count, err := s.store.Count(s.ctx)
		s.Require().NoError(err)
		s.Equal(2, count)
	})

	s.Run("delete of unknown id fails", func() {
		_, err := s.store.Delete(s.ctx, "26")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestIsolation verifies callers cannot mutate stored records through pointers.
func (s *InMemoryStoreSuite) TestIsolation() {
	rec := newRecord("18", "Alice")
	rec.Extra = map[string]json.RawMessage{"k": json.RawMessage(`"v"`)}
	s.Require().NoError(s.store.Create(s.ctx, rec))

	rec.Name = "Mallory"
	rec.Extra["k"] = json.RawMessage(`"x"`)

	found, err := s.store.FindByID(s.ctx, "18")
	s.Require().NoError(err)
	s.Equal("Alice", found.Name)
	s.JSONEq(`"v"`, string(found.Extra["k"]))

	found.Address = "elsewhere"
	again, err := s.store.FindByID(s.ctx, "18")
	s.Require().NoError(err)
	s.Equal("Main St 1", again.Address)
}

func (s *InMemoryStoreSuite) TestUpdate() {
	s.Run("updates existing record", func() {
		s.Require().NoError(s.store.Create(s.ctx, newRecord("18", "Alice")))
		changed := newRecord("18", "Alice")
		changed.Address = "New St 2"
		s.Require().NoError(s.store.Update(s.ctx, changed))

		found, err := s.store.FindByID(s.ctx, "18")
		s.Require().NoError(err)
		s.Equal("New St 2", found.Address)
	})

	s.Run("returns ErrNotFound for unknown record", func() {
		err := s.store.Update(s.ctx, newRecord("26", "Nobody"))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
