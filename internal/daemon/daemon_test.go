package daemon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katharostech/lucky/internal/charm"
	"github.com/katharostech/lucky/internal/hook"
)

// fakeRunner records executions and can detect overlapping runs.
type fakeRunner struct {
	mu       sync.Mutex
	calls    []string
	delay    time.Duration
	err      error
	active   atomic.Int32
	overlaps atomic.Int32
}

func (f *fakeRunner) Run(_ context.Context, hookName string, _ []charm.Script) (*hook.Result, error) {
	if f.active.Add(1) > 1 {
		f.overlaps.Add(1)
	}
	defer f.active.Add(-1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, hookName)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return &hook.Result{ExecutionID: "exec-1", Hook: hookName}, nil
}

// fakeStatusSetter records consolidated statuses pushed to Juju.
type fakeStatusSetter struct {
	mu       sync.Mutex
	statuses []hook.Status
}

func (f *fakeStatusSetter) SetStatus(_ context.Context, status hook.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func testRegistry() *hook.Registry {
	return hook.NewRegistry(&charm.Metadata{
		Name: "my-charm",
		Hooks: map[string][]charm.Script{
			"install":        {{Path: "scripts/install.sh"}},
			"config-changed": {{Path: "scripts/configure.sh"}},
		},
	})
}

func TestTriggerHook(t *testing.T) {
	runner := &fakeRunner{}
	d := New(zerolog.Nop(), testRegistry(), runner, &fakeStatusSetter{})

	result, err := d.TriggerHook(context.Background(), "install")
	require.NoError(t, err)

	assert.Equal(t, "install", result.Hook)
	assert.Equal(t, []string{"install"}, runner.calls)
}

func TestTriggerHookUnknown(t *testing.T) {
	runner := &fakeRunner{}
	d := New(zerolog.Nop(), testRegistry(), runner, &fakeStatusSetter{})

	_, err := d.TriggerHook(context.Background(), "upgrade-charm")
	require.Error(t, err)
	assert.ErrorIs(t, err, hook.ErrUnknownHook)
	assert.Empty(t, runner.calls, "unknown hooks must never execute")
}

func TestTriggerHookExecutionsNeverOverlap(t *testing.T) {
	runner := &fakeRunner{delay: 20 * time.Millisecond}
	d := New(zerolog.Nop(), testRegistry(), runner, &fakeStatusSetter{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.TriggerHook(context.Background(), "install")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), runner.overlaps.Load(), "hook executions interleaved")
	assert.Len(t, runner.calls, 8)
}

func TestTriggerHookPropagatesExecutionError(t *testing.T) {
	execErr := &hook.ExecutionError{Hook: "install", Script: "scripts/install.sh", Err: errors.New("exit status 3")}
	runner := &fakeRunner{err: execErr}
	d := New(zerolog.Nop(), testRegistry(), runner, &fakeStatusSetter{})

	_, err := d.TriggerHook(context.Background(), "install")
	require.Error(t, err)

	var got *hook.ExecutionError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, "install", got.Hook)
}

func TestSetScriptStatusPushesConsolidated(t *testing.T) {
	setter := &fakeStatusSetter{}
	d := New(zerolog.Nop(), testRegistry(), &fakeRunner{}, setter)

	require.NoError(t, d.SetScriptStatus(context.Background(), "web", hook.Status{State: hook.StateActive}))
	require.NoError(t, d.SetScriptStatus(context.Background(), "db", hook.Status{State: hook.StateBlocked, Message: "db unreachable"}))

	require.Len(t, setter.statuses, 2)
	assert.Equal(t, hook.StateBlocked, setter.statuses[1].State)
	assert.Equal(t, "db unreachable", setter.statuses[1].Message)

	assert.Equal(t, hook.StateBlocked, d.UnitStatus().State)
}

func TestRequestStopIsIdempotent(t *testing.T) {
	d := New(zerolog.Nop(), testRegistry(), &fakeRunner{}, &fakeStatusSetter{})

	d.RequestStop()
	d.RequestStop()

	select {
	case <-d.Done():
	default:
		t.Fatal("Done channel not closed after RequestStop")
	}
}
