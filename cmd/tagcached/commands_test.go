package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-tagcache/pkg/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	err := root.Execute()
	return out.String(), err
}

func TestMigrateCommand(t *testing.T) {
	out, err := execute(t, "migrate", "--dsn", testsupport.SQLiteMemoryDSN())
	require.NoError(t, err)
	assert.Equal(t, "migrated to version 2\n", out)
}

func TestSeedCommandLoadsDemo(t *testing.T) {
	out, err := execute(t, "seed", "--dsn", testsupport.SQLiteMemoryDSN())
	require.NoError(t, err)
	assert.Equal(t, "seeded 4 users, 2 organizations, 5 memberships, 4 contacts, 1 notes, 2 tasks, 3 favorites, 1 webhooks\n", out)
}

func TestSeedCommandMissingFile(t *testing.T) {
	_, err := execute(t, "seed", "--dsn", testsupport.SQLiteMemoryDSN(), "--file", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestInvalidFlagValueFailsValidation(t *testing.T) {
	_, err := execute(t, "migrate", "--db-driver", "oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validate")
}
