package hook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatePrecedenceOrder(t *testing.T) {
	assert.True(t, StateActive < StateWaiting)
	assert.True(t, StateWaiting < StateMaintenance)
	assert.True(t, StateMaintenance < StateBlocked)
}

func TestParseState(t *testing.T) {
	for _, name := range []string{"active", "waiting", "maintenance", "blocked"} {
		state, err := ParseState(name)
		require.NoError(t, err)
		assert.Equal(t, name, state.String())
	}

	_, err := ParseState("bogus")
	require.Error(t, err)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "active", Status{State: StateActive}.String())
	assert.Equal(t, "blocked: db unreachable", Status{State: StateBlocked, Message: "db unreachable"}.String())
}

func TestStateJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Status{State: StateMaintenance, Message: "installing"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"maintenance","message":"installing"}`, string(data))

	var status Status
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Equal(t, StateMaintenance, status.State)
	assert.Equal(t, "installing", status.Message)
}

func TestStateUnmarshalUnknown(t *testing.T) {
	var state State
	require.Error(t, json.Unmarshal([]byte(`"bogus"`), &state))
}

func TestConsolidateEmpty(t *testing.T) {
	result := Consolidate(map[string]Status{})
	assert.Equal(t, StateActive, result.State)
	assert.Empty(t, result.Message)
}

func TestConsolidateHighestPrecedenceWins(t *testing.T) {
	result := Consolidate(map[string]Status{
		"web":    {State: StateActive},
		"db":     {State: StateBlocked, Message: "db unreachable"},
		"worker": {State: StateWaiting},
	})

	assert.Equal(t, StateBlocked, result.State)
}

func TestConsolidateJoinsMessages(t *testing.T) {
	result := Consolidate(map[string]Status{
		"a": {State: StateWaiting, Message: "waiting for db"},
		"b": {State: StateMaintenance, Message: "installing deps"},
		"c": {State: StateActive},
	})

	assert.Equal(t, StateMaintenance, result.State)
	assert.Equal(t, "waiting for db, installing deps", result.Message)
}
