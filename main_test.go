package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckISBNCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(""), &out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"check-isbn", "0-13-235088-2", "9780132350884"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "0-13-235088-2        valid")

	out.Reset()
	cmd = newRootCmd(strings.NewReader(""), &out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"check-isbn", "0132350883"})
	assert.Error(t, cmd.Execute())
	assert.Contains(t, out.String(), "INVALID")
}

func TestRootCommandRunsSession(t *testing.T) {
	for _, key := range []string{"LIBRARY_BORROW_LIMIT", "LIBRARY_SEED_FILE", "LIBRARY_LEDGER_PATH"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "json")

	dir := t.TempDir()
	seed := filepath.Join(dir, "seed.json")
	ledger := filepath.Join(dir, "ledger.db")
	require.NoError(t, os.WriteFile(seed, []byte(`{
  "books": [{"title": "Clean Code", "author": "Robert Martin", "isbn": "0132350882"}],
  "users": [{"name": "Rohan", "email": "rohan@example.com", "dob": "1990-01-01"}]
}`), 0o644))

	script := strings.Join([]string{
		"yes", "rohan@example.com",
		"checkout", "0132350882",
		"exit",
	}, "\n") + "\n"

	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(script), &out)
	cmd.SetArgs([]string{"--seed", seed, "--ledger", ledger, "--borrow-limit", "2"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Welcome back, Rohan!")
	assert.Contains(t, out.String(), "Book 'Clean Code' checked out to Rohan (1/2)")

	_, err := os.Stat(ledger)
	assert.NoError(t, err)
}

func TestRootCommandRejectsBadConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(""), &out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--borrow-limit", "-1"})
	assert.Error(t, cmd.Execute())

	cmd = newRootCmd(strings.NewReader(""), &out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--seed", filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, cmd.Execute())
}
