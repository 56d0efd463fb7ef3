package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/letwinventory/harnessgraph/internal/model"
	"github.com/letwinventory/harnessgraph/internal/query"
)

const harnessColumns = `id, name, part_id, revision, description, harness_data, thumbnail,
	release_state, released_at, released_by, previous_revision_id, active_flag,
	created_by, created_at, updated_at`

// HarnessFields are the logical fields ListHarnesses filters on.
var HarnessFields = query.Fields{
	"id":                 "id",
	"name":               "name",
	"partId":             "part_id",
	"revision":           "revision",
	"releaseState":       "release_state",
	"active":             "active_flag",
	"previousRevisionId": "previous_revision_id",
	"createdBy":          "created_by",
}

// InsertHarness writes a new harness row.
func (tx *Tx) InsertHarness(ctx context.Context, h *model.Harness) error {
	doc, err := marshalDocument(h.Document)
	if err != nil {
		return fmt.Errorf("insert harness: %w", err)
	}
	_, err = tx.q.ExecContext(ctx, `
		INSERT INTO harnesses (`+harnessColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		h.ID,
		h.Name,
		nullString(h.PartID),
		h.Revision,
		h.Description,
		doc,
		nullString(h.Thumbnail),
		string(h.ReleaseState),
		nullTime(h.ReleasedAt),
		nullString(h.ReleasedBy),
		nullString(h.PreviousRevisionID),
		boolToInt(h.Active),
		nullString(h.CreatedBy),
		formatTime(h.CreatedAt),
		formatTime(h.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert harness: %w", err)
	}
	return nil
}

// UpdateHarness overwrites every mutable column of an existing row.
// id, created_by and created_at never change.
func (tx *Tx) UpdateHarness(ctx context.Context, h *model.Harness) error {
	doc, err := marshalDocument(h.Document)
	if err != nil {
		return fmt.Errorf("update harness: %w", err)
	}
	res, err := tx.q.ExecContext(ctx, `
		UPDATE harnesses SET
			name = ?, part_id = ?, revision = ?, description = ?, harness_data = ?,
			thumbnail = ?, release_state = ?, released_at = ?, released_by = ?,
			previous_revision_id = ?, active_flag = ?, updated_at = ?
		WHERE id = ?
	`,
		h.Name,
		nullString(h.PartID),
		h.Revision,
		h.Description,
		doc,
		nullString(h.Thumbnail),
		string(h.ReleaseState),
		nullTime(h.ReleasedAt),
		nullString(h.ReleasedBy),
		nullString(h.PreviousRevisionID),
		boolToInt(h.Active),
		formatTime(h.UpdatedAt),
		h.ID,
	)
	if err != nil {
		return fmt.Errorf("update harness: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update harness: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update harness %s: %w", h.ID, ErrNotFound)
	}
	return nil
}

// GetHarness returns a row by id, active or not. Missing rows return
// ErrNotFound.
func (tx *Tx) GetHarness(ctx context.Context, id string) (*model.Harness, error) {
	row := tx.q.QueryRowContext(ctx, `SELECT `+harnessColumns+` FROM harnesses WHERE id = ?`, id)
	h, err := scanHarness(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("harness %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get harness: %w", err)
	}
	return h, nil
}

// IsActiveHarness reports whether id exists and is active.
func (tx *Tx) IsActiveHarness(ctx context.Context, id string) (bool, error) {
	var active int64
	err := tx.q.QueryRowContext(ctx, `SELECT active_flag FROM harnesses WHERE id = ?`, id).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is active harness: %w", err)
	}
	return active == 1, nil
}

// ListHarnesses returns rows matching filter ordered by name, then id.
// A nil filter lists every row. Returns an empty slice, not nil.
func (tx *Tx) ListHarnesses(ctx context.Context, filter query.Predicate) ([]*model.Harness, error) {
	where, params, err := query.Compile(filter, HarnessFields)
	if err != nil {
		return nil, fmt.Errorf("list harnesses: %w", err)
	}
	rows, err := tx.q.QueryContext(ctx, `
		SELECT `+harnessColumns+` FROM harnesses
		WHERE `+where+`
		ORDER BY name COLLATE BINARY ASC, id COLLATE BINARY ASC
	`, params...)
	if err != nil {
		return nil, fmt.Errorf("list harnesses: %w", err)
	}
	return collectHarnesses(rows)
}

// ListActiveHarnesses returns every active row.
func (tx *Tx) ListActiveHarnesses(ctx context.Context) ([]*model.Harness, error) {
	return tx.ListHarnesses(ctx, query.Equals{Field: "active", Value: true})
}

func collectHarnesses(rows *sql.Rows) ([]*model.Harness, error) {
	defer rows.Close()
	out := []*model.Harness{}
	for rows.Next() {
		h, err := scanHarness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate harnesses: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHarness(row rowScanner) (*model.Harness, error) {
	var (
		h                                   model.Harness
		partID, data, thumbnail, releasedAt sql.NullString
		releasedBy, previous, createdBy     sql.NullString
		state, createdAt, updatedAt         string
		active                              int64
	)
	if err := row.Scan(
		&h.ID, &h.Name, &partID, &h.Revision, &h.Description, &data, &thumbnail,
		&state, &releasedAt, &releasedBy, &previous, &active,
		&createdBy, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if h.Document, err = unmarshalDocument(data); err != nil {
		return nil, fmt.Errorf("harness %s: %w", h.ID, err)
	}
	if h.ReleasedAt, err = scanTime(releasedAt); err != nil {
		return nil, err
	}
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if h.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	h.PartID = scanString(partID)
	h.Thumbnail = scanString(thumbnail)
	h.ReleasedBy = scanString(releasedBy)
	h.PreviousRevisionID = scanString(previous)
	h.CreatedBy = scanString(createdBy)
	h.ReleaseState = model.ReleaseState(state)
	h.Active = active == 1
	return &h, nil
}
