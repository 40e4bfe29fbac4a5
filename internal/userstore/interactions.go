package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"retailbot/internal/textutil"
)

// Query types counted in the daily metrics. Other values are logged but not
// counted.
const (
	QuerySchedule   = "horarios"
	QueryPromotions = "promociones"
	QueryGeneral    = "generales"
)

// Words of at most this many runes are not counted in word_frequency.
const minFrequencyWordRunes = 3

// Interaction is one logged conversational turn.
type Interaction struct {
	UserID       string // external identifier; empty for anonymous turns
	SessionID    string
	UserMessage  string
	BotReply     string
	QueryType    string
	Satisfaction *int
}

// LogInteraction appends a turn to the log and updates today's metrics and
// the word-frequency table in the same transaction.
func (s *Store) LogInteraction(ctx context.Context, in Interaction) error {
	now := s.timestamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userRowID sql.NullInt64
	firstToday := false
	if in.UserID != "" {
		err := sq.Select("id").
			From("users").
			Where(sq.Eq{"identifier": in.UserID}).
			RunWith(tx).
			QueryRowContext(ctx).
			Scan(&userRowID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("resolve user %s: %w", in.UserID, err)
		}
		if userRowID.Valid {
			var seen int
			err := sq.Select("COUNT(*)").
				From("interactions").
				Where(sq.Eq{"user_id": userRowID.Int64}).
				Where("substr(created_at, 1, 10) = ?", now.Format(dayLayout)).
				RunWith(tx).
				QueryRowContext(ctx).
				Scan(&seen)
			if err != nil {
				return fmt.Errorf("count today's interactions: %w", err)
			}
			firstToday = seen == 0
		}
	}

	var queryType sql.NullString
	if in.QueryType != "" {
		queryType = sql.NullString{String: in.QueryType, Valid: true}
	}
	var satisfaction sql.NullInt64
	if in.Satisfaction != nil {
		satisfaction = sql.NullInt64{Int64: int64(*in.Satisfaction), Valid: true}
	}

	_, err = sq.Insert("interactions").
		Columns("user_id", "session_id", "user_message", "bot_reply", "created_at", "query_type", "satisfaction").
		Values(userRowID, in.SessionID, in.UserMessage, in.BotReply, now.Format(timeLayout), queryType, satisfaction).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}

	if err := bumpDailyCounter(ctx, tx, now, "total_messages"); err != nil {
		return err
	}
	if firstToday {
		if err := bumpDailyCounter(ctx, tx, now, "unique_users"); err != nil {
			return err
		}
	}
	if col := queryTypeColumn(in.QueryType); col != "" {
		if err := bumpDailyCounter(ctx, tx, now, col); err != nil {
			return err
		}
	}

	if err := countWords(ctx, tx, in.UserMessage, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit interaction: %w", err)
	}
	s.logger.Debug("interaction logged",
		zap.String("session", in.SessionID),
		zap.String("query_type", in.QueryType),
	)
	return nil
}

func queryTypeColumn(queryType string) string {
	switch queryType {
	case QuerySchedule:
		return "schedule_queries"
	case QueryPromotions:
		return "promotion_queries"
	case QueryGeneral:
		return "general_queries"
	}
	return ""
}

// bumpDailyCounter increments one counter column of the day's metrics row,
// creating the row when missing. column must be a known column name.
func bumpDailyCounter(ctx context.Context, tx *sql.Tx, at time.Time, column string) error {
	day := at.Format(dayLayout)
	_, err := sq.Insert("daily_metrics").
		Columns("day").
		Values(day).
		Options("OR IGNORE").
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("create metrics row %s: %w", day, err)
	}
	_, err = sq.Update("daily_metrics").
		Set(column, sq.Expr(column+" + 1")).
		Where(sq.Eq{"day": day}).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("increment %s for %s: %w", column, day, err)
	}
	return nil
}

func countWords(ctx context.Context, tx *sql.Tx, message string, at time.Time) error {
	stamp := at.Format(timeLayout)
	for _, w := range textutil.ContentWords(message, minFrequencyWordRunes) {
		_, err := sq.Insert("word_frequency").
			Columns("word", "frequency", "updated_at").
			Values(w, 1, stamp).
			Suffix("ON CONFLICT(word) DO UPDATE SET frequency = frequency + 1, updated_at = excluded.updated_at").
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("count word %q: %w", w, err)
		}
	}
	return nil
}
