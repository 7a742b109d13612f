package cleanup

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tienda-lubbi/mirador/pkg/memory"
	"github.com/tienda-lubbi/mirador/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedStore(t *testing.T) *memory.InMemoryStore {
	t.Helper()
	store := memory.NewInMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.AppendMessage(ctx, "thread-1", "u1", models.ConversationTurn{
		Role: "user", Content: "vieja", CreatedAt: now.Add(-48 * time.Hour),
	}))
	require.NoError(t, store.AppendMessage(ctx, "thread-1", "u1", models.ConversationTurn{
		Role: "user", Content: "reciente", CreatedAt: now,
	}))
	return store
}

func TestPruneOnce(t *testing.T) {
	store := seedStore(t)
	svc := NewService(store, 24*time.Hour, time.Hour, testLogger())

	svc.pruneOnce(context.Background())

	turns, err := store.History(context.Background(), "thread-1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "reciente", turns[0].Content)
}

func TestStartRunsImmediatePass(t *testing.T) {
	store := seedStore(t)
	svc := NewService(store, 24*time.Hour, time.Hour, testLogger())

	svc.Start(context.Background())
	defer svc.Stop()

	// The loop prunes once on startup before the first tick.
	require.Eventually(t, func() bool {
		turns, err := store.History(context.Background(), "thread-1", 0)
		return err == nil && len(turns) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestDisabledWhenTTLZero(t *testing.T) {
	store := seedStore(t)
	svc := NewService(store, 0, time.Hour, testLogger())

	svc.Start(context.Background())
	svc.Stop()

	turns, err := store.History(context.Background(), "thread-1", 0)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestStopIsIdempotent(t *testing.T) {
	svc := NewService(memory.NewInMemory(), time.Hour, time.Hour, testLogger())
	svc.Start(context.Background())
	svc.Stop()
	svc.Stop()
}
