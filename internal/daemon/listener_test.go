package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenerPaths(t *testing.T) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	return dir, filepath.Join(dir, "unit.sock"), filepath.Join(dir, "unit.pid")
}

func TestListenCreatesMarkers(t *testing.T) {
	dir, sock, pid := listenerPaths(t)

	l, err := Listen(zerolog.Nop(), dir, sock, pid)
	require.NoError(t, err)
	defer l.Close()

	_, err = os.Stat(sock)
	require.NoError(t, err)

	data, err := os.ReadFile(pid)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
}

func TestListenFailsWhenDaemonLive(t *testing.T) {
	dir, sock, pid := listenerPaths(t)

	l, err := Listen(zerolog.Nop(), dir, sock, pid)
	require.NoError(t, err)
	defer l.Close()

	// Keep the first listener accepting so the probe dial succeeds.
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	_, err = Listen(zerolog.Nop(), dir, sock, filepath.Join(dir, "other.pid"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestListenReclaimsStaleSocket(t *testing.T) {
	dir, sock, pid := listenerPaths(t)

	// Simulate a crash leftover: a socket path nobody answers on.
	require.NoError(t, os.WriteFile(sock, nil, 0600))

	l, err := Listen(zerolog.Nop(), dir, sock, pid)
	require.NoError(t, err)
	defer l.Close()
}

func TestCloseRemovesMarkers(t *testing.T) {
	dir, sock, pid := listenerPaths(t)

	l, err := Listen(zerolog.Nop(), dir, sock, pid)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	_, err = os.Stat(sock)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(pid)
	assert.True(t, os.IsNotExist(err))
}
