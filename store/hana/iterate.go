package hana

import (
	"context"
	"database/sql"
	"iter"

	"github.com/unkn0wn-root/hanakv/store"
)

// Iterate walks the ids under namespace in ascending order using keyset
// pagination: each batch fetches up to the configured limit rows past the
// last id seen. The next round trip happens only once the current batch is
// drained, so abandoning the sequence stops fetching. Iteration ends on an
// empty batch or one shorter than the limit (no trailing empty round trip).
func (s *Store) Iterate(ctx context.Context, namespace string) iter.Seq2[store.Entry, error] {
	pattern := prefixPattern(namespace)
	return func(yield func(store.Entry, error) bool) {
		var (
			cursor string
			first  = true
		)
		for {
			batch, err := s.page(ctx, pattern, cursor, first)
			if err != nil {
				yield(store.Entry{}, err)
				return
			}
			for _, e := range batch {
				if !yield(e, nil) {
					return
				}
			}
			if len(batch) < s.limit {
				return
			}
			cursor = batch[len(batch)-1].Key
			first = false
		}
	}
}

func (s *Store) page(ctx context.Context, pattern, cursor string, first bool) ([]store.Entry, error) {
	stmt := s.stmt.iterFirst
	args := []any{pattern}
	if !first {
		stmt = s.stmt.iterNext
		args = append(args, cursor)
	}
	batch := make([]store.Entry, 0, s.limit)
	err := s.query(ctx, "iterate", stmt, args, func(rows *sql.Rows) error {
		for rows.Next() {
			var e store.Entry
			if err := rows.Scan(&e.Key, &e.Value); err != nil {
				return err
			}
			batch = append(batch, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}
