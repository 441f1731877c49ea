package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kitazume/personabot/internal/bot"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding conversation and user records.
// It implements bot.Store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "personabot.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// --- Conversations ---

// GetOrCreateConversation returns the conversation record for id, inserting
// an empty one if none exists yet.
func (s *Store) GetOrCreateConversation(ctx context.Context, id string) (bot.ConversationState, error) {
	state, err := s.GetConversation(ctx, id)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return bot.ConversationState{}, err
	}

	empty := bot.ConversationState{}
	if err := s.SaveConversation(ctx, id, empty); err != nil {
		return bot.ConversationState{}, fmt.Errorf("creating conversation %s: %w", id, err)
	}
	return empty, nil
}

// GetConversation returns the conversation record for id, or ErrNotFound.
func (s *Store) GetConversation(ctx context.Context, id string) (bot.ConversationState, error) {
	var state bot.ConversationState
	var messages string
	err := s.db.QueryRowContext(ctx, `
		SELECT persona_id, messages, last_timestamp, channel_id
		FROM conversations WHERE id = ?`, id,
	).Scan(&state.PersonaID, &messages, &state.LastTimestamp, &state.ChannelID)
	if errors.Is(err, sql.ErrNoRows) {
		return bot.ConversationState{}, ErrNotFound
	}
	if err != nil {
		return bot.ConversationState{}, err
	}
	if err := json.Unmarshal([]byte(messages), &state.Messages); err != nil {
		return bot.ConversationState{}, fmt.Errorf("parsing messages for conversation %s: %w", id, err)
	}
	return state, nil
}

// SaveConversation upserts the conversation record for id.
func (s *Store) SaveConversation(ctx context.Context, id string, state bot.ConversationState) error {
	messages, err := json.Marshal(state.Messages)
	if err != nil {
		return fmt.Errorf("marshaling messages for conversation %s: %w", id, err)
	}
	if state.Messages == nil {
		messages = []byte("[]")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, persona_id, messages, last_timestamp, channel_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			persona_id = excluded.persona_id,
			messages = excluded.messages,
			last_timestamp = excluded.last_timestamp,
			channel_id = excluded.channel_id,
			updated_at = excluded.updated_at`,
		id, state.PersonaID, string(messages), state.LastTimestamp, state.ChannelID,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// DeleteConversation removes the conversation record for id.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountConversations returns the number of stored conversation records.
func (s *Store) CountConversations(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations").Scan(&n)
	return n, err
}

// --- Users ---

// GetOrCreateUser returns the user record for id, inserting an empty one if
// none exists yet.
func (s *Store) GetOrCreateUser(ctx context.Context, id string) (bot.UserProfile, error) {
	var profile bot.UserProfile
	err := s.db.QueryRowContext(ctx,
		"SELECT display_name FROM users WHERE id = ?", id,
	).Scan(&profile.DisplayName)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return bot.UserProfile{}, err
	}

	empty := bot.UserProfile{}
	if err := s.SaveUser(ctx, id, empty); err != nil {
		return bot.UserProfile{}, fmt.Errorf("creating user %s: %w", id, err)
	}
	return empty, nil
}

// SaveUser upserts the user record for id.
func (s *Store) SaveUser(ctx context.Context, id string, profile bot.UserProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			updated_at = excluded.updated_at`,
		id, profile.DisplayName, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}
