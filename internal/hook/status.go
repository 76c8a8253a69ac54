package hook

import (
	"fmt"
	"sort"
)

// State is a script's reported state, ordered by precedence: when script
// statuses are consolidated into one unit status, the highest-precedence
// state wins.
type State int

const (
	StateActive State = iota
	StateWaiting
	StateMaintenance
	StateBlocked
)

var stateNames = map[State]string{
	StateActive:      "active",
	StateWaiting:     "waiting",
	StateMaintenance: "maintenance",
	StateBlocked:     "blocked",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseState parses a state name as used on the wire and in lucky.yaml.
func ParseState(name string) (State, error) {
	for state, n := range stateNames {
		if n == name {
			return state, nil
		}
	}
	return StateActive, fmt.Errorf("unknown script state %q", name)
}

// Status is a script's state plus an optional operator-facing message.
type Status struct {
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
}

func (s Status) String() string {
	if s.Message == "" {
		return s.State.String()
	}
	return fmt.Sprintf("%s: %s", s.State, s.Message)
}

// MarshalJSON encodes the state by name so clients never see raw ints.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", s.String())), nil
}

// UnmarshalJSON decodes a state name.
func (s *State) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid script state %s", data)
	}
	state, err := ParseState(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// Consolidate merges script statuses into one unit-wide status: the highest
// precedence state wins and all messages are joined.
func Consolidate(statuses map[string]Status) Status {
	result := Status{State: StateActive}

	for _, id := range sortedKeys(statuses) {
		status := statuses[id]
		if status.State > result.State {
			result.State = status.State
		}
		if status.Message != "" {
			if result.Message != "" {
				result.Message = result.Message + ", " + status.Message
			} else {
				result.Message = status.Message
			}
		}
	}

	return result
}

// sortedKeys keeps message joining deterministic across map iterations.
func sortedKeys(m map[string]Status) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
