package uuid

import (
	"testing"

	guuid "github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDProducesUniqueV7(t *testing.T) {
	gen := NewGenerator()
	seen := make(map[string]struct{})
	for range 100 {
		id, err := gen.NewID()
		require.NoError(t, err)

		parsed, err := guuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, guuid.Version(7), parsed.Version())

		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
}
