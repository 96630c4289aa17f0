package pidlock

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recompute.pid")

	lock, err := Acquire(path)
	require.NoError(t, err)
	defer lock.Release()

	t.Run("pid file holds our pid", func(t *testing.T) {
		data, err := os.ReadFile(path)
		require.NoError(t, err)

		pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
		require.NoError(t, err)
		assert.Equal(t, os.Getpid(), pid)
	})

	t.Run("release frees the lock for the next run", func(t *testing.T) {
		require.NoError(t, lock.Release())

		again, err := Acquire(path)
		require.NoError(t, err)
		require.NoError(t, again.Release())
	})
}
