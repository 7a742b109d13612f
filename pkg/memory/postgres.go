package memory

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver for database/sql

	"github.com/tienda-lubbi/mirador/pkg/models"
)

//go:embed migrations
var migrationsFS embed.FS

// sqlStore implements Store over database/sql. Both the Postgres and the
// SQLite backends use it; only driver setup and migrations differ.
type sqlStore struct {
	db *sql.DB
}

func openPostgres(ctx context.Context, dsn string) (Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping memory database: %w", err)
	}

	if err := migrateUp(db, "postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqlStore{db: db}, nil
}

// migrateUp applies the embedded migrations for the given dialect.
// Migration files are embedded so deployments need no external files.
func migrateUp(db *sql.DB, dialect string) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations/"+dialect)
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	var m *migrate.Migrate
	switch dialect {
	case "postgres":
		driver, err := migratepg.WithInstance(db, &migratepg.Config{
			MigrationsTable: "mirador_memory_migrations",
		})
		if err != nil {
			return fmt.Errorf("failed to create postgres migration driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", sourceDriver, "memory", driver)
		if err != nil {
			return fmt.Errorf("failed to create migrate instance: %w", err)
		}
	case "sqlite":
		var err error
		m, err = newSQLiteMigrate(db, sourceDriver)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown migration dialect %q", dialect)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply memory migrations: %w", err)
	}

	// Close only the source driver. m.Close() would also close the shared
	// *sql.DB handed to the database driver.
	if err := sourceDriver.Close(); err != nil {
		return fmt.Errorf("failed to close migration source: %w", err)
	}
	return nil
}

func (s *sqlStore) AppendMessage(ctx context.Context, threadID, userID string, turn models.ConversationTurn) error {
	if userID == "" {
		userID = "anonymous"
	}
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	metadata, err := json.Marshal(turn.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode message metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (thread_id, user_id, role, content, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		threadID, userID, turn.Role, turn.Content, string(metadata), createdAt)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (s *sqlStore) History(ctx context.Context, threadID string, limit int) ([]models.ConversationTurn, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	// Newest N turns, returned oldest first.
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, metadata, created_at FROM (
			SELECT role, content, metadata, created_at
			FROM chat_messages
			WHERE thread_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent ORDER BY created_at ASC`,
		threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var turns []models.ConversationTurn
	for rows.Next() {
		var turn models.ConversationTurn
		var metadata sql.NullString
		if err := rows.Scan(&turn.Role, &turn.Content, &metadata, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if metadata.Valid && metadata.String != "" && metadata.String != "null" {
			if err := json.Unmarshal([]byte(metadata.String), &turn.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode message metadata: %w", err)
			}
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return turns, nil
}

func (s *sqlStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_messages WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune messages: %w", err)
	}
	return result.RowsAffected()
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
