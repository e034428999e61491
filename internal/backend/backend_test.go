package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/livetodo/internal/config"
	"github.com/idilsaglam/livetodo/internal/store/jsonstore"
	"github.com/idilsaglam/livetodo/internal/store/memstore"
	"github.com/idilsaglam/livetodo/internal/store/sqlitestore"
)

func TestOpenLocalDrivers(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		driver string
		check  func(t *testing.T, v any)
	}{
		{driver: config.DriverMemory, check: func(t *testing.T, v any) { assert.IsType(t, &memstore.Store{}, v) }},
		{driver: config.DriverSQLite, check: func(t *testing.T, v any) { assert.IsType(t, &sqlitestore.Store{}, v) }},
		{driver: config.DriverJSON, check: func(t *testing.T, v any) { assert.IsType(t, &jsonstore.Store{}, v) }},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := config.Config{
				Backend: config.Backend{Driver: tt.driver, Collection: "todos"},
				SQLite:  config.SQLite{Path: filepath.Join(dir, "todos.db"), PollInterval: 50 * time.Millisecond},
				JSON:    config.JSON{Path: filepath.Join(dir, "todos.json")},
			}
			coll, err := Open(context.Background(), cfg, nil)
			require.NoError(t, err)
			defer coll.Close()
			tt.check(t, coll)
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.Config{Backend: config.Backend{Driver: "mongo"}}, nil)
	assert.Error(t, err)
}
