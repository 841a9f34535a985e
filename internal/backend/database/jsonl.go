package database

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONLStore keeps one JSON record per line in a flat file
type JSONLStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewJSONLStore(path string) (HistoryStore, error) {
	if path == "" {
		return nil, fmt.Errorf("history file path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}
	return &JSONLStore{path: path, now: time.Now}, nil
}

func (s *JSONLStore) ListAll(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := []Record{}
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening history file: %w", err)
	}
	defer func() {
		_ = f.Close() // read-only handle
	}()

	reader := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, fmt.Errorf("reading history file: %w", readErr)
		}
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			record, err := ParseRecord(trimmed)
			if err != nil {
				return nil, fmt.Errorf("history line %d: %w", lineNo, err)
			}
			records = append(records, record)
		}
		if readErr == io.EOF {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *JSONLStore) Append(ctx context.Context, record Record) (Record, error) {
	stamped := stamp(record, s.now())
	line, err := encodeRecord(stamped)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening history file: %w", err)
	}
	// the whole line goes out in one write on an O_APPEND descriptor
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("appending history record: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing history file: %w", err)
	}

	slog.Debug("history record appended", "path", s.path, "keys", len(stamped), "bytes", len(line))
	return stamped, nil
}

func (s *JSONLStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("truncating history file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing history file: %w", err)
	}
	slog.Info("history cleared", "path", s.path)
	return nil
}

func (s *JSONLStore) Close() error {
	return nil
}
