package hook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katharostech/lucky/internal/charm"
)

func testMetadata() *charm.Metadata {
	return &charm.Metadata{
		Name: "my-charm",
		Hooks: map[string][]charm.Script{
			"install":        {{Path: "scripts/install.sh"}},
			"config-changed": {{Path: "scripts/configure.sh"}, {Path: "scripts/restart.sh"}},
		},
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry(testMetadata())

	scripts, err := reg.Lookup("config-changed")
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.Equal(t, "scripts/configure.sh", scripts[0].Path)
}

func TestRegistryLookupUnknown(t *testing.T) {
	reg := NewRegistry(testMetadata())

	_, err := reg.Lookup("upgrade-charm")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownHook)
}

func TestRegistryNames(t *testing.T) {
	reg := NewRegistry(testMetadata())
	assert.Equal(t, []string{"config-changed", "install"}, reg.Names())
}
