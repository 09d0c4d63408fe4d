package storage

import (
	"context"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	pool *pgxpool.Pool
}

type AuditLog struct {
	ID        int64
	GuildID   string
	ChannelID string
	UserID    string
	Level     string
	Event     string
	Details   string
	CreatedAt time.Time
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Migrate(ctx context.Context) error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

// UpsertPrefix stores a guild prefix, creating the primary row when needed.
// An empty prefix clears it.
func (s *Store) UpsertPrefix(ctx context.Context, guildID int64, prefix string) error {
	var value *string
	if prefix != "" {
		value = &prefix
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO guild_settings (guild_id, prefix) VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET prefix = excluded.prefix
	`, guildID, value)
	return err
}

func (s *Store) AddAuditLog(ctx context.Context, log AuditLog) error {
	createdAt := log.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_logs (guild_id, channel_id, user_id, level, event, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, log.GuildID, log.ChannelID, log.UserID, log.Level, log.Event, log.Details, createdAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, guildID string, since time.Time, limit int) ([]AuditLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, guild_id, channel_id, user_id, level, event, details, created_at
		FROM audit_logs
		WHERE guild_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`, guildID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var log AuditLog
		if err := rows.Scan(&log.ID, &log.GuildID, &log.ChannelID, &log.UserID, &log.Level, &log.Event, &log.Details, &log.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (s *Store) CleanupAuditLogs(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	tag, err := s.pool.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column") || strings.Contains(message, "already exists")
}
