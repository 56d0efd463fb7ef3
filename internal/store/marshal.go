package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/letwinventory/harnessgraph/internal/model"
)

// Timestamps are stored as RFC 3339 text in UTC with nanoseconds.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func scanTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func scanString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// marshalDocument encodes a document as JSON TEXT. Unknown members are
// written back as they were decoded.
func marshalDocument(d *model.Document) (any, error) {
	if d == nil {
		return nil, nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}

func unmarshalDocument(ns sql.NullString) (*model.Document, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := model.ParseDocument([]byte(ns.String))
	if err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return d, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
