package settings

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatcherDebounce(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "settings.yaml")

	var calls int32
	w, err := newWatcher(file, 100*time.Millisecond, zap.NewNop().Sugar(), func() { atomic.AddInt32(&calls, 1) })
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(file, []byte("a: 1\n"), 0644))
	}

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherClose(t *testing.T) {
	dir := t.TempDir()

	w, err := newWatcher(filepath.Join(dir, "settings.json"), time.Millisecond, zap.NewNop().Sugar(), func() {})
	require.NoError(t, err)

	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())

	w.schedule()
	assert.Nil(t, w.timer)
}

func TestWatcherMissingDirectory(t *testing.T) {
	_, err := newWatcher(filepath.Join(t.TempDir(), "missing", "settings.json"), time.Millisecond, zap.NewNop().Sugar(), func() {})
	assert.ErrorContains(t, err, "failed to watch directory")
}
