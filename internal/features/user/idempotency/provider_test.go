package idempotency

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDProvider_UniqueKeys(t *testing.T) {
	p := NewUUIDProvider()

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		key := p.GenerateKey()
		_, dup := seen[key]
		require.False(t, dup, "duplicate key %s", key)
		seen[key] = struct{}{}
	}
}

func TestUUIDProvider_KeyIsRandomUUID(t *testing.T) {
	id, err := uuid.Parse(NewUUIDProvider().GenerateKey())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())
}
