package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCheck(t *testing.T, content string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"check", "--env-file", filepath.Join(t.TempDir(), "none.env"), "--file", path})
	err := root.Execute()
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	t.Run("clean file", func(t *testing.T) {
		out, err := runCheck(t, `[{"id":"123456782","name":"Test User","phone_number":"0501112222","address":"A"}]`)
		require.NoError(t, err)
		assert.Contains(t, out, "1 records, 0 rejected")
	})

	t.Run("rejected records fail the command", func(t *testing.T) {
		out, err := runCheck(t, `[
			{"id":"123456782","name":"Test User","phone_number":"0501112222","address":"A"},
			{"id":"123456789","name":"Bad Id","phone_number":"0501112222","address":"B"}
		]`)
		require.ErrorIs(t, err, errRejected)
		assert.Contains(t, out, "2 records, 1 rejected")
		assert.Contains(t, out, "Bad Id")
		assert.Contains(t, out, "Invalid Israeli ID")
	})

	t.Run("malformed file", func(t *testing.T) {
		_, err := runCheck(t, `{"not":"an array"}`)
		require.Error(t, err)
	})
}
