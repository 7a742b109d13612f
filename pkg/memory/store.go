// Package memory persists conversation history so follow-up questions can
// lean on prior turns. Three backends share one interface: Postgres for
// production, SQLite for single-node deployments, and an in-memory store
// for tests and demo mode.
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tienda-lubbi/mirador/pkg/config"
	"github.com/tienda-lubbi/mirador/pkg/models"
)

// Store is the conversation history backend.
type Store interface {
	// AppendMessage persists one turn of a thread.
	AppendMessage(ctx context.Context, threadID, userID string, turn models.ConversationTurn) error

	// History returns up to limit turns of a thread, oldest first.
	History(ctx context.Context, threadID string, limit int) ([]models.ConversationTurn, error)

	// Prune deletes turns older than the cutoff and reports how many.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)

	Close() error
}

// DefaultHistoryLimit bounds how many turns a single load pulls.
const DefaultHistoryLimit = 50

// Open builds the store selected by MEMORY_BACKEND.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.MemoryBackend {
	case config.MemoryBackendPostgres:
		return openPostgres(ctx, cfg.MemoryDSN())
	case config.MemoryBackendSQLite:
		return openSQLite(ctx, cfg.SQLitePath)
	case config.MemoryBackendInMemory:
		return NewInMemory(), nil
	default:
		return nil, fmt.Errorf("unknown memory backend %q", cfg.MemoryBackend)
	}
}

// ContextString renders the most recent turns as the prompt context block,
// newest last. At most maxMessages turns are included.
func ContextString(turns []models.ConversationTurn, maxMessages int) string {
	if len(turns) > maxMessages {
		turns = turns[len(turns)-maxMessages:]
	}

	var b strings.Builder
	for _, turn := range turns {
		label := "Asistente"
		if turn.Role == "user" {
			label = "Usuario"
		}
		content := turn.Content
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		fmt.Fprintf(&b, "%s: %s\n", label, content)
	}
	return strings.TrimRight(b.String(), "\n")
}
