package database

import (
	"errors"
	"fmt"
	"log/slog"
)

const (
	TypeJSONL  = "jsonl"
	TypeSQLite = "sqlite"
	TypeRedis  = "redis"
)

var ErrUnsupportedDatabase = errors.New("unsupported history store type")

// NewDatabase opens the history backend named by databaseType
func NewDatabase(databaseType, connectionString string) (store HistoryStore, err error) {
	switch databaseType {
	case TypeJSONL, "":
		store, err = NewJSONLStore(connectionString)
	case TypeSQLite:
		store, err = NewSQLiteStore(connectionString)
	case TypeRedis:
		store, err = NewRedisStore(connectionString)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, databaseType)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("history store initialized", "type", databaseType)
	return store, nil
}
