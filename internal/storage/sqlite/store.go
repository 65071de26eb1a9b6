// Package sqlite persists content records and user accounts in a SQLite
// database through the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/any-hub/content-hub/internal/auth"
	"github.com/any-hub/content-hub/internal/content"
	"github.com/any-hub/content-hub/internal/storage/sqlite/migrations"
)

// Store implements content.Store and auth.UserStore.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens (creating if needed) the database at path and applies the
// embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	dsn := "file:" + cleanPath +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// UpsertByKeyLocale inserts the record or updates value and tags in place.
// The (key, locale) unique constraint makes concurrent upserts converge on
// one row.
func (s *Store) UpsertByKeyLocale(ctx context.Context, key, locale, value string, tags []string) (content.Record, error) {
	if err := ctx.Err(); err != nil {
		return content.Record{}, err
	}
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return content.Record{}, fmt.Errorf("encode tags: %w", err)
	}
	now := toMillis(s.now())

	var (
		id        int64
		createdAt int64
		updatedAt int64
	)
	err = s.sqlDB.QueryRowContext(ctx,
		`INSERT INTO contents ("key", locale, value, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT ("key", locale) DO UPDATE SET
		   value = excluded.value,
		   tags = excluded.tags,
		   updated_at = excluded.updated_at
		 RETURNING id, created_at, updated_at`,
		key, locale, value, string(encoded), now, now,
	).Scan(&id, &createdAt, &updatedAt)
	if err != nil {
		return content.Record{}, fmt.Errorf("upsert content %s/%s: %w", locale, key, err)
	}

	return content.Record{
		ID:        id,
		Key:       key,
		Locale:    locale,
		Value:     value,
		Tags:      copyTags(tags),
		CreatedAt: fromMillis(createdAt),
		UpdatedAt: fromMillis(updatedAt),
	}, nil
}

// QueryByLocale returns key → value for locale, honouring tag and group.
// The group prefix compares case-sensitively.
func (s *Store) QueryByLocale(ctx context.Context, locale string, filter content.DeliveryFilter) (map[string]string, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT "key", value FROM contents WHERE locale = ?`)
	args := []any{locale}
	if filter.Tag != "" {
		query.WriteString(` AND EXISTS (SELECT 1 FROM json_each(contents.tags) WHERE json_each.value = ?)`)
		args = append(args, filter.Tag)
	}
	if filter.Group != "" {
		query.WriteString(` AND substr("key", 1, length(?)) = ?`)
		args = append(args, filter.Group, filter.Group)
	}
	query.WriteString(` ORDER BY id ASC`)

	rows, err := s.sqlDB.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query content for %s: %w", locale, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan content row: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content rows: %w", err)
	}
	return out, nil
}

// SearchRecords matches q as a substring of key or value, OR'ed with an
// exact tag match; locale narrows both. Substring matching uses LIKE, so it
// folds ASCII case only. Results are newest first.
func (s *Store) SearchRecords(ctx context.Context, filter content.SearchFilter, limit int) ([]content.Record, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, "key", locale, value, tags, created_at, updated_at FROM contents WHERE 1 = 1`)
	var args []any
	if filter.Locale != "" {
		query.WriteString(` AND locale = ?`)
		args = append(args, filter.Locale)
	}

	var either []string
	if filter.Q != "" {
		pattern := "%" + escapeLike(filter.Q) + "%"
		either = append(either, `("key" LIKE ? ESCAPE '\' OR value LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if filter.Tag != "" {
		either = append(either, `EXISTS (SELECT 1 FROM json_each(contents.tags) WHERE json_each.value = ?)`)
		args = append(args, filter.Tag)
	}
	if len(either) > 0 {
		query.WriteString(` AND (` + strings.Join(either, ` OR `) + `)`)
	}
	query.WriteString(` ORDER BY created_at DESC, id DESC`)
	if limit > 0 {
		query.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search content: %w", err)
	}
	defer rows.Close()

	records := make([]content.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return records, nil
}

// FindByID returns content.ErrNotFound for unknown ids.
func (s *Store) FindByID(ctx context.Context, id int64) (content.Record, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, "key", locale, value, tags, created_at, updated_at FROM contents WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Record{}, content.ErrNotFound
	}
	return record, err
}

// CreateUser inserts an account, mapping the email unique constraint to
// auth.ErrUserExists.
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string) (auth.User, error) {
	createdAt := s.now().UTC()
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		name, email, passwordHash, toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.User{}, auth.ErrUserExists
		}
		return auth.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return auth.User{}, fmt.Errorf("read user id: %w", err)
	}
	return auth.User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    fromMillis(toMillis(createdAt)),
	}, nil
}

// FindUserByEmail looks an account up case-insensitively.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (auth.User, error) {
	var (
		user      auth.User
		createdAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`, email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("find user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

// RevokeToken records a logged-out token id until expiresAt. Entries whose
// tokens have expired on their own are pruned on each call.
func (s *Store) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin revoke: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at <= ?`, toMillis(s.now()),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prune revoked tokens: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO revoked_tokens (token_id, expires_at) VALUES (?, ?)
		 ON CONFLICT (token_id) DO UPDATE SET expires_at = excluded.expires_at`,
		tokenID, toMillis(expiresAt),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert revoked token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revoke: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether tokenID was revoked and has not expired.
func (s *Store) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	var count int
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM revoked_tokens WHERE token_id = ? AND expires_at > ?`,
		tokenID, toMillis(s.now()),
	).Scan(&count); err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return count > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (content.Record, error) {
	var (
		record    content.Record
		rawTags   string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&record.ID, &record.Key, &record.Locale, &record.Value, &rawTags, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return content.Record{}, err
		}
		return content.Record{}, fmt.Errorf("scan content record: %w", err)
	}
	record.Tags = []string{}
	if rawTags != "" {
		if err := json.Unmarshal([]byte(rawTags), &record.Tags); err != nil {
			return content.Record{}, fmt.Errorf("decode tags for record %d: %w", record.ID, err)
		}
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

// copyTags always returns a non-nil slice so records encode tags as [].
func copyTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// escapeLike escapes LIKE wildcards so q matches literally.
func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var (
	_ content.Store = (*Store)(nil)
	_ auth.Store    = (*Store)(nil)
)
