package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps history rows in insertion order keyed by an autoincrement id
type SQLiteStore struct {
	db               *sql.DB
	connectionString string
	now              func() time.Time
}

func NewSQLiteStore(connectionString string) (HistoryStore, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// one connection: ":memory:" databases are per connection, and writes are serialised anyway
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:               db,
		connectionString: connectionString,
		now:              time.Now,
	}
	if err := s.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record TEXT NOT NULL
	)`)
	return err
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, record FROM history ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	records := []Record{}
	for rows.Next() {
		var id int64
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		record, err := ParseRecord([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", id, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Append(ctx context.Context, record Record) (Record, error) {
	stamped := stamp(record, s.now())
	line, err := encodeRecord(stamped)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, "INSERT INTO history (record) VALUES (?)", string(line[:len(line)-1])); err != nil {
		return nil, fmt.Errorf("inserting history record: %w", err)
	}
	return stamped, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM history")
	return err
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
