// Package client is the CLI front-end's connection to the unit daemon over
// its unix socket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/katharostech/lucky/internal/hook"
)

// ErrDaemonUnreachable means no daemon answered on the unit socket. The
// caller is expected to run "daemon start" first.
var ErrDaemonUnreachable = errors.New("daemon unreachable")

// Client talks HTTP/JSON to the daemon over the unit's unix socket.
type Client struct {
	HTTPClient *http.Client
	socketPath string
}

// New creates a client for the daemon on socketPath. Hook executions can be
// slow, so the trigger call carries no client-side timeout beyond the context
// the caller provides; the default timeout only guards the short calls.
func New(socketPath string) *Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
	}

	return &Client{
		HTTPClient: &http.Client{Transport: transport},
		socketPath: socketPath,
	}
}

// Ping reports whether a live daemon answers on the socket.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var out map[string]string
	return c.do(ctx, http.MethodGet, "/healthz", nil, &out)
}

// TriggerHook asks the daemon to run the named hook and blocks until the
// execution completes.
func (c *Client) TriggerHook(ctx context.Context, hookName string) (*hook.Result, error) {
	var result hook.Result
	if err := c.do(ctx, http.MethodPost, "/hooks/"+hookName+"/trigger", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Hooks returns the hook names registered with the daemon.
func (c *Client) Hooks(ctx context.Context) ([]string, error) {
	var out struct {
		Hooks []string `json:"hooks"`
	}
	if err := c.do(ctx, http.MethodGet, "/hooks", nil, &out); err != nil {
		return nil, err
	}
	return out.Hooks, nil
}

// SetScriptStatus reports a script's status to the daemon.
func (c *Client) SetScriptStatus(ctx context.Context, scriptID string, status hook.Status) error {
	return c.do(ctx, http.MethodPut, "/status/"+scriptID, status, nil)
}

// UnitStatus returns the daemon's consolidated unit status.
func (c *Client) UnitStatus(ctx context.Context) (hook.Status, error) {
	var status hook.Status
	err := c.do(ctx, http.MethodGet, "/status", nil, &status)
	return status, err
}

// Stop asks the daemon to shut down.
func (c *Client) Stop(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/stop", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	// The host is ignored by the unix-socket dialer but required by net/http.
	req, err := http.NewRequestWithContext(ctx, method, "http://lucky"+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDaemonUnreachable, c.socketPath, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return errorFromResponse(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}

	return nil
}

// errorFromResponse maps daemon error responses back to the typed errors the
// CLI exits on.
func errorFromResponse(status int, body []byte) error {
	var payload struct {
		Error  string `json:"error"`
		Output string `json:"output"`
	}
	message := string(body)
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}

	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", hook.ErrUnknownHook, message)
	case http.StatusInternalServerError:
		return &hook.ExecutionError{
			Output: payload.Output,
			Err:    errors.New(message),
		}
	default:
		return fmt.Errorf("daemon error: status %d: %s", status, message)
	}
}
