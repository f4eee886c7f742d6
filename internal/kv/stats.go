package kv

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string            `json:"db_path"`
	DBSizeBytes int64             `json:"db_size_bytes"`
	Collections []CollectionStats `json:"collections"`
}

// CollectionStats holds per-collection counts.
type CollectionStats struct {
	Name      string `json:"name"`
	Records   int    `json:"records"`
	SizeBytes int    `json:"size_bytes"`
	UpdatedAt string `json:"updated_at"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path}

	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name, data, updated_at FROM collections ORDER BY name`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var c CollectionStats
		var data string
		if err := rows.Scan(&c.Name, &data, &c.UpdatedAt); err != nil {
			return st, err
		}
		records, _ := splitDocument([]byte(data))
		c.Records = len(records)
		c.SizeBytes = len(data)
		st.Collections = append(st.Collections, c)
	}

	return st, rows.Err()
}
