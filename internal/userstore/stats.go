package userstore

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// DayCount is the number of interactions logged on one day.
type DayCount struct {
	Day          string `json:"day"`
	Interactions int    `json:"interactions"`
}

// QueryTypeCount is the number of interactions tagged with one query type.
type QueryTypeCount struct {
	QueryType string `json:"query_type"`
	Count     int    `json:"count"`
}

// UserActivity is the message count of one active user.
type UserActivity struct {
	FullName string `json:"full_name"`
	Messages int    `json:"messages"`
}

// WordCount is one row of the word-frequency table.
type WordCount struct {
	Word      string `json:"word"`
	Frequency int    `json:"frequency"`
}

// Stats is the general usage overview.
type Stats struct {
	ActiveUsers       int              `json:"active_users"`
	TotalInteractions int              `json:"total_interactions"`
	LastWeek          []DayCount       `json:"last_week"`
	QueryTypes        []QueryTypeCount `json:"query_types"`
	TopUsers          []UserActivity   `json:"top_users"`
	TopWords          []WordCount      `json:"top_words"`
}

// DailyMetrics is one row of the daily rollup.
type DailyMetrics struct {
	Day              string `json:"day"`
	TotalMessages    int    `json:"total_messages"`
	UniqueUsers      int    `json:"unique_users"`
	NewUsers         int    `json:"new_users"`
	ScheduleQueries  int    `json:"schedule_queries"`
	PromotionQueries int    `json:"promotion_queries"`
	GeneralQueries   int    `json:"general_queries"`
}

const (
	topUsersLimit = 10
	topWordsLimit = 20
	statsWindow   = 7
)

// GeneralStats gathers user, interaction and vocabulary totals.
func (s *Store) GeneralStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	var err error
	if stats.ActiveUsers, err = s.UserCount(ctx); err != nil {
		return nil, err
	}

	err = sq.Select("COUNT(*)").
		From("interactions").
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&stats.TotalInteractions)
	if err != nil {
		return nil, fmt.Errorf("count interactions: %w", err)
	}

	cutoff := s.timestamp().AddDate(0, 0, -statsWindow).Format(dayLayout)
	rows, err := sq.Select("substr(created_at, 1, 10) AS day", "COUNT(*)").
		From("interactions").
		Where(sq.GtOrEq{"created_at": cutoff}).
		GroupBy("day").
		OrderBy("day DESC").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("interactions per day: %w", err)
	}
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Interactions); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan day count: %w", err)
		}
		stats.LastWeek = append(stats.LastWeek, dc)
	}
	rows.Close()

	rows, err = sq.Select("query_type", "COUNT(*) AS n").
		From("interactions").
		Where(sq.NotEq{"query_type": nil}).
		GroupBy("query_type").
		OrderBy("n DESC", "query_type").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query type breakdown: %w", err)
	}
	for rows.Next() {
		var qc QueryTypeCount
		if err := rows.Scan(&qc.QueryType, &qc.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan query type: %w", err)
		}
		stats.QueryTypes = append(stats.QueryTypes, qc)
	}
	rows.Close()

	rows, err = sq.Select("u.full_name", "COUNT(i.id) AS messages").
		From("users u").
		LeftJoin("interactions i ON u.id = i.user_id").
		Where(sq.Eq{"u.active": true}).
		GroupBy("u.id", "u.full_name").
		OrderBy("messages DESC", "u.id").
		Limit(topUsersLimit).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}
	for rows.Next() {
		var ua UserActivity
		if err := rows.Scan(&ua.FullName, &ua.Messages); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan user activity: %w", err)
		}
		stats.TopUsers = append(stats.TopUsers, ua)
	}
	rows.Close()

	if stats.TopWords, err = s.TopWords(ctx, topWordsLimit); err != nil {
		return nil, err
	}
	return stats, nil
}

// TopWords returns the most frequent words, highest first.
func (s *Store) TopWords(ctx context.Context, limit int) ([]WordCount, error) {
	rows, err := sq.Select("word", "frequency").
		From("word_frequency").
		OrderBy("frequency DESC", "word").
		Limit(uint64(limit)).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("top words: %w", err)
	}
	defer rows.Close()

	var words []WordCount
	for rows.Next() {
		var wc WordCount
		if err := rows.Scan(&wc.Word, &wc.Frequency); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		words = append(words, wc)
	}
	return words, rows.Err()
}

// PeriodMetrics returns the daily rollup rows of the last days days, newest first.
func (s *Store) PeriodMetrics(ctx context.Context, days int) ([]DailyMetrics, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := s.timestamp().AddDate(0, 0, -days).Format(dayLayout)
	rows, err := sq.Select("day", "total_messages", "unique_users", "new_users",
		"schedule_queries", "promotion_queries", "general_queries").
		From("daily_metrics").
		Where(sq.GtOrEq{"day": cutoff}).
		OrderBy("day DESC").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("period metrics: %w", err)
	}
	defer rows.Close()

	var out []DailyMetrics
	for rows.Next() {
		var m DailyMetrics
		if err := rows.Scan(&m.Day, &m.TotalMessages, &m.UniqueUsers, &m.NewUsers,
			&m.ScheduleQueries, &m.PromotionQueries, &m.GeneralQueries); err != nil {
			return nil, fmt.Errorf("scan metrics: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
