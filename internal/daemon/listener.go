package daemon

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// ErrAlreadyRunning means another live daemon already holds this unit's
// socket.
var ErrAlreadyRunning = errors.New("daemon already running")

// Listener is the unit's liveness marker: a bound unix socket plus a pid
// file. Close releases both, and Listen reclaims stale markers left behind
// by a crashed daemon.
type Listener struct {
	net.Listener
	socketPath string
	pidPath    string
}

// Listen binds the unit socket and writes the pid file. If the socket is
// already bound by a live daemon it fails with ErrAlreadyRunning; a socket
// nobody answers on is treated as stale, removed, and rebound.
func Listen(logger zerolog.Logger, dataDir, socketPath, pidPath string) (*Listener, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	if _, err := os.Stat(socketPath); err == nil {
		conn, err := net.DialTimeout("unix", socketPath, time.Second)
		if err == nil {
			conn.Close()
			return nil, fmt.Errorf("%w: socket %s is live", ErrAlreadyRunning, socketPath)
		}

		logger.Warn().Str("socket", socketPath).Msg("removing stale daemon socket")
		if err := os.Remove(socketPath); err != nil {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}

	l, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("bind daemon socket: %w", err)
	}

	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
		l.Close()
		os.Remove(socketPath)
		return nil, fmt.Errorf("write pid file: %w", err)
	}

	return &Listener{
		Listener:   l,
		socketPath: socketPath,
		pidPath:    pidPath,
	}, nil
}

// SocketPath returns the bound socket path.
func (l *Listener) SocketPath() string { return l.socketPath }

// Close closes the socket and removes both liveness markers.
func (l *Listener) Close() error {
	err := l.Listener.Close()
	if rmErr := os.Remove(l.socketPath); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	if rmErr := os.Remove(l.pidPath); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}
