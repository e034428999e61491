package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "logs", "todo.log")
	l, c, err := New(p, "info")
	require.NoError(t, err)

	l.Debug("hidden")
	l.Error("adding todo", "err", "connection refused")
	require.NoError(t, c.Close())

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "adding todo")
	assert.Contains(t, out, "connection refused")
	assert.NotContains(t, out, "hidden")
}

func TestNewEmptyPathDiscards(t *testing.T) {
	l, c, err := New("", "debug")
	require.NoError(t, err)
	l.Info("nowhere")
	assert.NoError(t, c.Close())
}

func TestNewBadLevel(t *testing.T) {
	_, _, err := New("", "loud")
	assert.Error(t, err)
}
