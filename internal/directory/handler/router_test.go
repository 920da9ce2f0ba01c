package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persondir/internal/directory/handler"
	"persondir/internal/directory/service"
	"persondir/internal/directory/sink/file"
	"persondir/internal/directory/store"
	"persondir/pkg/testutil"
)

const seedFile = `[
  {"id": "123456782", "name": "Test User", "phone_number": "0501112222", "address": "Test Address"},
  {"id": "123456789", "name": "Bad Checksum", "phone_number": "0501112222", "address": "Nowhere"}
]`

func newRouter(t *testing.T, persist bool) (http.Handler, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(seedFile), 0o644))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewInMemory(), file.New(path),
		service.WithLogger(logger),
		service.WithPersistence(persist),
	)
	report := svc.Load(context.Background())
	require.Equal(t, 1, report.Loaded)
	require.Equal(t, 1, report.Skipped)

	r := chi.NewRouter()
	handler.New(svc, logger, nil).Register(r)
	return r, path
}

func TestDirectoryLifecycle(t *testing.T) {
	testutil.Given(t, "a directory loaded from a file with one valid and one invalid record", func(t *testing.T) {
		router, path := newRouter(t, true)

		testutil.When(t, "listing names", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/users"))

			testutil.Then(t, "only the valid record is present", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				assert.JSONEq(t, `["Test User"]`, rr.Body.String())
			})
		})

		testutil.When(t, "creating a record with an extra field", func(t *testing.T) {
			body := `{"id":"18","name":"Alice","phone_number":"0501234567","address":"Main St 1","email":"alice@example.com"}`
			rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/users", body))

			testutil.Then(t, "it is created and written to the file in order", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusCreated)
				records := testutil.ReadRecordsFile(t, path)
				require.Len(t, records, 2)
				assert.Equal(t, "123456782", records[0]["id"])
				assert.Equal(t, "18", records[1]["id"])
				assert.Equal(t, "alice@example.com", records[1]["email"])
			})

			testutil.Then(t, "it is retrievable by id with the extra field", func(t *testing.T) {
				rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/users/id/18"))
				testutil.AssertStatusOK(t, rr)
				assert.JSONEq(t,
					`{"id":"18","name":"Alice","phone_number":"0501234567","address":"Main St 1","email":"alice@example.com"}`,
					rr.Body.String())
			})

			testutil.Then(t, "it is retrievable by name ignoring case", func(t *testing.T) {
				for _, name := range []string{"alice", "ALICE"} {
					rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/users/"+name))
					testutil.AssertStatusOK(t, rr)
					testutil.AssertJSONContains(t, rr, "id", "18")
				}
			})
		})

		testutil.When(t, "creating the same id again", func(t *testing.T) {
			body := `{"id":"18","name":"Impostor","phone_number":"0501234567","address":"Elsewhere"}`
			rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/users", body))

			testutil.Then(t, "it is rejected and the original stays", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "duplicate_identifier")
				rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/users/id/18"))
				testutil.AssertJSONContains(t, rr, "name", "Alice")
			})
		})

		testutil.When(t, "updating only the address", func(t *testing.T) {
			rr := testutil.DoRequest(router,
				testutil.NewRequestWithBody(t, http.MethodPatch, "/users/18", `{"address":"Side St 2"}`))

			testutil.Then(t, "name and phone are unchanged", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				var rec map[string]any
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
				assert.Equal(t, "Alice", rec["name"])
				assert.Equal(t, "0501234567", rec["phone_number"])
				assert.Equal(t, "Side St 2", rec["address"])
				assert.Equal(t, "Side St 2", testutil.ReadRecordsFile(t, path)[1]["address"])
			})
		})

		testutil.When(t, "updating the phone to an invalid value", func(t *testing.T) {
			rr := testutil.DoRequest(router,
				testutil.NewRequestWithBody(t, http.MethodPatch, "/users/18", `{"phone_number":"1234567890"}`))

			testutil.Then(t, "the request fails and nothing changes", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_phone")
				assert.Equal(t, "0501234567", testutil.ReadRecordsFile(t, path)[1]["phone_number"])
			})
		})

		testutil.When(t, "deleting the record", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodDelete, "/users/18"))

			testutil.Then(t, "it is gone from lookups, listings and the file", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				testutil.AssertJSONContains(t, rr, "message", "User Alice deleted")

				rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/users/id/18"))
				testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")

				rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/users"))
				assert.JSONEq(t, `["Test User"]`, rr.Body.String())
				assert.Len(t, testutil.ReadRecordsFile(t, path), 1)
			})
		})
	})
}

func TestDirectoryTestModeLeavesFileAlone(t *testing.T) {
	testutil.Given(t, "a directory running with persistence disabled", func(t *testing.T) {
		router, path := newRouter(t, false)

		testutil.When(t, "creating and deleting records", func(t *testing.T) {
			body := `{"id":"18","name":"Alice","phone_number":"0501234567","address":"Main St 1"}`
			created := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/users", body))
			deleted := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodDelete, "/users/123456782"))

			testutil.Then(t, "memory changes but the file keeps its seed content", func(t *testing.T) {
				testutil.AssertStatus(t, created, http.StatusCreated)
				testutil.AssertStatusOK(t, deleted)

				rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/users"))
				assert.JSONEq(t, `["Alice"]`, rr.Body.String())

				data, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.Equal(t, seedFile, string(data))
			})
		})
	})
}
