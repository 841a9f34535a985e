package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// TimestampKey is set on every record at write time, replacing any caller value
const TimestampKey = "timestamp"

// ErrInvalidRecord is returned for payloads that are not a JSON object
var ErrInvalidRecord = errors.New("history record must be a JSON object")

// Record is one history entry: an open-ended JSON object
type Record map[string]any

// Timestamp returns the write time recorded on r
func (r Record) Timestamp() (time.Time, error) {
	s, ok := r[TimestampKey].(string)
	if !ok {
		return time.Time{}, fmt.Errorf("record has no %s", TimestampKey)
	}
	return time.Parse(time.RFC3339Nano, s)
}

// stamp returns a copy of r with TimestampKey set to now in ISO-8601
func stamp(r Record, now time.Time) Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[TimestampKey] = now.UTC().Format(time.RFC3339Nano)
	return out
}

// ParseRecord decodes a single JSON object, keeping numbers exact
func ParseRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", ErrInvalidRecord)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrInvalidRecord
	}
	return Record(obj), nil
}

// encodeRecord renders r as a single newline-terminated JSON line.
// Non-ASCII text and HTML characters are written unescaped.
func encodeRecord(r Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode history record: %w", err)
	}
	return buf.Bytes(), nil
}
