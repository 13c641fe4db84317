package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/config"
	"rollcall/internal/storage"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = backend
	cfg.Storage.Directory = filepath.Join(t.TempDir(), "rosters")
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "rollcall.db")
	cfg.HTTP.Host = "127.0.0.1"
	return cfg
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestApplication_ArchitecturalCompliance(t *testing.T) {
	var _ *Application = (*Application)(nil)
}

func TestApplication_RejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.HTTP.Port = -1

	application, err := NewApplication(cfg)
	assert.Error(t, err)
	assert.Nil(t, application)
}

func TestOpenStorage(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		store, err := OpenStorage(testConfig(t, config.BackendFile))
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &storage.FileStore{}, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		store, err := OpenStorage(testConfig(t, config.BackendSQLite))
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &storage.SQLiteStore{}, store)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := testConfig(t, "s3")
		_, err := OpenStorage(cfg)
		assert.ErrorContains(t, err, "unknown storage backend")
	})
}

// Roster flow over the assembled handler, once per backend
func TestApplication_RosterFlow(t *testing.T) {
	for _, backend := range []string{config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			application, err := NewApplication(testConfig(t, backend))
			require.NoError(t, err)
			t.Cleanup(func() { _ = application.Stop(context.Background()) })

			server := httptest.NewServer(application.Handler())
			defer server.Close()

			resp, err := http.Post(server.URL+"/api/sessions", "application/json", nil)
			require.NoError(t, err)
			var sess struct {
				ID string `json:"id"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
			resp.Body.Close()
			require.Equal(t, http.StatusCreated, resp.StatusCode)

			resp, err = http.Post(server.URL+"/api/rosters/import?class_name=3A&session_id="+sess.ID,
				"text/plain", strings.NewReader("Ana,+\nBen,-\n"))
			require.NoError(t, err)
			resp.Body.Close()
			require.Equal(t, http.StatusCreated, resp.StatusCode)

			resp, err = http.Post(server.URL+"/api/sessions/"+sess.ID+"/lucky", "application/json", nil)
			require.NoError(t, err)
			var lucky struct {
				LuckyNumber int `json:"lucky_number"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&lucky))
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.GreaterOrEqual(t, lucky.LuckyNumber, 1)
			assert.LessOrEqual(t, lucky.LuckyNumber, 2)

			resp, err = http.Get(server.URL + "/api/rosters")
			require.NoError(t, err)
			var list struct {
				Rosters []string `json:"rosters"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
			resp.Body.Close()
			assert.Equal(t, []string{"3A"}, list.Rosters)
		})
	}
}

func TestApplication_StartStop(t *testing.T) {
	cfg := testConfig(t, config.BackendFile)
	cfg.HTTP.Port = freePort(t)

	application, err := NewApplication(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, application.Start(ctx))

	resp, err := http.Get("http://" + application.GetAddr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, application.Stop(ctx))

	_, err = http.Get("http://" + application.GetAddr() + "/health")
	assert.Error(t, err, "server should be closed after Stop")
}
