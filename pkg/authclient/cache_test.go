package authclient

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	snapshot, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, snapshot, "nothing stored yet")

	validated := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(Snapshot{
		Principal:     &Principal{ID: "p-1", Username: "alice", Email: "alice@example.com", Role: "customer"},
		LastValidated: validated,
	}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	snapshot, err = NewFileStore(path).Load()
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, "alice", snapshot.Principal.Username)
	assert.True(t, validated.Equal(snapshot.LastValidated))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	snapshot, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestNewCoordinator_IgnoresCorruptCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	c, err := NewCoordinator(Config{BaseURL: "http://127.0.0.1:1", Cache: NewFileStore(path)})
	require.NoError(t, err)
	assert.Nil(t, c.Principal())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	p := &Principal{ID: "p-1", Role: "customer"}
	require.NoError(t, store.Save(Snapshot{Principal: p}))

	p.Role = "admin"
	snapshot, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "customer", snapshot.Principal.Role)
}
