// Package userstore persists customer identities, the interaction log and the
// two aggregates derived from it (daily metrics and word frequency) in SQLite.
package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"retailbot/internal/domain"
)

const (
	timeLayout = "2006-01-02 15:04:05.000000"
	dayLayout  = "2006-01-02"
)

// Updatable fields accepted by UpdateUser.
const (
	FieldFullName = "full_name"
	FieldPhone    = "phone"
	FieldEmail    = "email"
)

var allowedUpdateFields = map[string]struct{}{
	FieldFullName: {},
	FieldPhone:    {},
	FieldEmail:    {},
}

var userColumns = []string{"id", "identifier", "full_name", "phone", "email", "registered_at", "active"}

// Store is the SQLite-backed user registry.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serialises
	// writers on file databases.
	db.SetMaxOpenConns(1)
	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("user store opened", zap.String("path", path))
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// UserExists reports whether an active user has the given identifier.
func (s *Store) UserExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := sq.Select("1").
		From("users").
		Where(sq.Eq{"identifier": id, "active": true}).
		Limit(1).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user %s: %w", id, err)
	}
	return true, nil
}

// RegisterUser inserts a new active user and counts it in today's metrics.
// Identifiers are unique across active and deactivated users; a clash
// returns domain.ErrUserExists.
func (s *Store) RegisterUser(ctx context.Context, id, fullName, phone, email string) error {
	now := s.timestamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = sq.Insert("users").
		Columns("identifier", "full_name", "phone", "email", "registered_at", "active").
		Values(id, fullName, phone, email, now.Format(timeLayout), true).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user %s: %w", id, err)
	}

	if err := bumpDailyCounter(ctx, tx, now, "new_users"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit registration: %w", err)
	}
	s.logger.Info("user registered", zap.String("identifier", id))
	return nil
}

// GetUser returns the active user with the given identifier or
// domain.ErrUserNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := sq.Select(userColumns...).
		From("users").
		Where(sq.Eq{"identifier": id, "active": true}).
		RunWith(s.db).
		QueryRowContext(ctx)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// GetAllUsers returns every active user, newest registration first.
func (s *Store) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := sq.Select(userColumns...).
		From("users").
		Where(sq.Eq{"active": true}).
		OrderBy("registered_at DESC", "id DESC").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser changes allow-listed fields (full_name, phone, email) of an
// active user. Unknown field names are ignored; if none remain the call
// fails with domain.ErrNoFieldsToUpdate.
func (s *Store) UpdateUser(ctx context.Context, id string, fields map[string]string) error {
	exists, err := s.UserExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrUserNotFound
	}

	set := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if _, ok := allowedUpdateFields[k]; ok {
			set[k] = v
		}
	}
	if len(set) == 0 {
		return domain.ErrNoFieldsToUpdate
	}

	res, err := sq.Update("users").
		SetMap(set).
		Where(sq.Eq{"identifier": id, "active": true}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// DeactivateUser flips the active flag off. Records are never deleted.
func (s *Store) DeactivateUser(ctx context.Context, id string) error {
	res, err := sq.Update("users").
		Set("active", false).
		Where(sq.Eq{"identifier": id, "active": true}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("deactivate user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	s.logger.Info("user deactivated", zap.String("identifier", id))
	return nil
}

// UserCount returns the number of active users.
func (s *Store) UserCount(ctx context.Context) (int, error) {
	var n int
	err := sq.Select("COUNT(*)").
		From("users").
		Where(sq.Eq{"active": true}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u          domain.User
		registered string
	)
	if err := row.Scan(&u.RowID, &u.ID, &u.FullName, &u.Phone, &u.Email, &registered, &u.Active); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, registered)
	if err != nil {
		return nil, fmt.Errorf("parse registered_at %q: %w", registered, err)
	}
	u.RegisteredAt = t
	return &u, nil
}
