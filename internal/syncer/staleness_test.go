package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsStale(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsStale(nil, now, DefaultStaleAfter), "never synced is stale")

	fresh := now.Add(-23 * time.Hour)
	assert.False(t, IsStale(&fresh, now, DefaultStaleAfter))

	old := now.Add(-25 * time.Hour)
	assert.True(t, IsStale(&old, now, DefaultStaleAfter))

	exact := now.Add(-DefaultStaleAfter)
	assert.False(t, IsStale(&exact, now, DefaultStaleAfter), "stale only when strictly older")
}
