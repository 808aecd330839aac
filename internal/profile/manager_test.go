package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(
		filepath.Join(t.TempDir(), "profile"),
		filepath.Join(t.TempDir(), "snapshots"),
	)
	require.NoError(t, err)
	return m
}

func TestPrepareRemovesStaleLocks(t *testing.T) {
	m := newTestManager(t)

	lock := filepath.Join(m.Dir(), "SingletonLock")
	require.NoError(t, os.WriteFile(lock, nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "Cookies"), []byte("keep"), 0o644))

	require.NoError(t, m.Prepare())

	_, err := os.Lstat(lock)
	assert.True(t, os.IsNotExist(err), "stale singleton lock must be removed")
	_, err = os.Stat(filepath.Join(m.Dir(), "Cookies"))
	assert.NoError(t, err, "regular profile files must survive")
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, os.MkdirAll(filepath.Join(m.Dir(), "Default"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "Default", "Cookies"), []byte("session=abc"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "Local State"), []byte("{}"), 0o644))

	archive, err := m.Snapshot()
	require.NoError(t, err)
	assert.FileExists(t, archive)

	// Lose the login state, then restore it
	require.NoError(t, os.RemoveAll(filepath.Join(m.Dir(), "Default")))
	require.NoError(t, m.Restore(archive))

	data, err := os.ReadFile(filepath.Join(m.Dir(), "Default", "Cookies"))
	require.NoError(t, err)
	assert.Equal(t, "session=abc", string(data))
}

func TestRestoreDefaultsToLatestSnapshot(t *testing.T) {
	m := newTestManager(t)

	// Timestamped names sort lexicographically
	old := filepath.Join(m.snapshotDir, "profile-20250101-000000.tar.gz")
	newest := filepath.Join(m.snapshotDir, "profile-20250601-120000.tar.gz")
	for _, p := range []string{old, newest} {
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	latest, err := m.LatestSnapshot()
	require.NoError(t, err)
	assert.Equal(t, newest, latest)
}

func TestRestoreWithoutSnapshotsFails(t *testing.T) {
	m := newTestManager(t)
	assert.Error(t, m.Restore(""))
}

func TestSnapshotSkipsSockets(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "Preferences"), []byte("{}"), 0o644))
	// A symlink stands in for Chrome's SingletonSocket irregular file
	require.NoError(t, os.Symlink("nowhere", filepath.Join(m.Dir(), "SingletonSocket")))

	archive, err := m.Snapshot()
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(m.Dir()))
	require.NoError(t, m.Restore(archive))

	assert.FileExists(t, filepath.Join(m.Dir(), "Preferences"))
	_, err = os.Lstat(filepath.Join(m.Dir(), "SingletonSocket"))
	assert.True(t, os.IsNotExist(err), "irregular files stay out of the archive")
}
