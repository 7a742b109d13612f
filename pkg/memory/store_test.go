package memory

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tienda-lubbi/mirador/pkg/models"
)

func turn(role, content string, at time.Time) models.ConversationTurn {
	return models.ConversationTurn{Role: role, Content: content, CreatedAt: at}
}

func TestInMemoryStore_AppendAndHistory(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.AppendMessage(ctx, "t1", "u1", turn("user", "hola", now)))
	require.NoError(t, s.AppendMessage(ctx, "t1", "u1", turn("assistant", "Hola! En que te ayudo?", now.Add(time.Second))))
	require.NoError(t, s.AppendMessage(ctx, "t2", "u2", turn("user", "otro hilo", now)))

	turns, err := s.History(ctx, "t1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "hola", turns[0].Content)
	assert.Equal(t, "assistant", turns[1].Role)

	turns, err = s.History(ctx, "t2", 0)
	require.NoError(t, err)
	assert.Len(t, turns, 1)

	turns, err = s.History(ctx, "missing", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestInMemoryStore_HistoryLimitKeepsNewest(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 10; i++ {
		content := fmt.Sprintf("mensaje %d", i)
		require.NoError(t, s.AppendMessage(ctx, "t1", "u1", turn("user", content, base.Add(time.Duration(i)*time.Second))))
	}

	turns, err := s.History(ctx, "t1", 3)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "mensaje 7", turns[0].Content)
	assert.Equal(t, "mensaje 9", turns[2].Content)
}

func TestInMemoryStore_Prune(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.AppendMessage(ctx, "t1", "u1", turn("user", "viejo", now.Add(-48*time.Hour))))
	require.NoError(t, s.AppendMessage(ctx, "t1", "u1", turn("user", "nuevo", now)))
	require.NoError(t, s.AppendMessage(ctx, "t2", "u1", turn("user", "solo viejo", now.Add(-72*time.Hour))))

	pruned, err := s.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)

	turns, err := s.History(ctx, "t1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "nuevo", turns[0].Content)

	turns, err = s.History(ctx, "t2", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestContextString(t *testing.T) {
	now := time.Now().UTC()
	turns := []models.ConversationTurn{
		turn("user", "como van las ventas", now),
		turn("assistant", "Las ventas van bien", now.Add(time.Second)),
	}

	s := ContextString(turns, 10)
	assert.Equal(t, "Usuario: como van las ventas\nAsistente: Las ventas van bien", s)
}

func TestContextString_LimitsAndTruncates(t *testing.T) {
	now := time.Now().UTC()
	var turns []models.ConversationTurn
	for i := 0; i < 15; i++ {
		turns = append(turns, turn("user", fmt.Sprintf("m%d", i), now))
	}

	s := ContextString(turns, 10)
	assert.NotContains(t, s, "m4")
	assert.Contains(t, s, "m5")
	assert.Contains(t, s, "m14")

	long := turn("assistant", strings.Repeat("a", 600), now)
	s = ContextString([]models.ConversationTurn{long}, 10)
	assert.Contains(t, s, "...")
	assert.Less(t, len(s), 600)
}
