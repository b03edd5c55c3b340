package topicindex

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/joestump/joe-forum/internal/category"
)

// SQL is an Index backed by the topic_sets table.
type SQL struct {
	db *sqlx.DB
}

func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{db: db}
}

func (s *SQL) q(query string) string { return s.db.Rebind(query) }

func (s *SQL) Range(ctx context.Context, set category.StorageSet, reverse bool, start, stop int) ([]int64, error) {
	keys := set.Keys()
	if len(keys) == 0 {
		return nil, ErrEmptySet
	}
	if emptyWindow(start, stop) {
		return []int64{}, nil
	}

	order := "ASC"
	if reverse {
		order = "DESC"
	}

	query := `SELECT tid FROM topic_sets WHERE set_key = ?`
	args := []any{keys[0]}
	if filters := distinct(keys[1:]); len(filters) > 0 {
		// Members of the base set that appear in every filter set.
		sub, subArgs, err := sqlx.In(`
			AND tid IN (
				SELECT tid FROM topic_sets WHERE set_key IN (?)
				GROUP BY tid HAVING COUNT(DISTINCT set_key) = ?
			)`, filters, len(filters))
		if err != nil {
			return nil, err
		}
		query += sub
		args = append(args, subArgs...)
	}
	query += ` ORDER BY score ` + order + `, tid ` + order + ` LIMIT ? OFFSET ?`
	args = append(args, stop-start+1, start)

	var tids []int64
	if err := s.db.SelectContext(ctx, &tids, s.q(query), args...); err != nil {
		return nil, err
	}
	if tids == nil {
		tids = []int64{}
	}
	return tids, nil
}

func (s *SQL) Add(ctx context.Context, key string, score float64, tid int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE topic_sets SET score = ? WHERE set_key = ? AND tid = ?`), score, key, tid)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO topic_sets (set_key, score, tid) VALUES (?, ?, ?)`), key, score, tid)
	return err
}

func (s *SQL) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM topic_sets`)
	return err
}

// distinct drops repeated keys, keeping first-seen order.
func distinct(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
