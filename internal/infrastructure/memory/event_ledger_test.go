package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLedger_MarcaYExpira(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewEventLedger(time.Hour)
	l.now = func() time.Time { return now }

	seen, err := l.Processed(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, l.MarkProcessed(ctx, "evt_1"))
	seen, _ = l.Processed(ctx, "evt_1")
	assert.True(t, seen)

	now = now.Add(2 * time.Hour)
	seen, _ = l.Processed(ctx, "evt_1")
	assert.False(t, seen, "pasado el TTL el evento se olvida")
}
