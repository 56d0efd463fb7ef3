package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/letwinventory/harnessgraph/internal/model"
)

const historyColumns = `id, harness_id, seq, revision, release_state, changed_by, change_type,
	change_notes, snapshot_data, snapshot_hash, created_at`

// AppendHistory writes e and assigns e.Seq as one past the harness's
// current maximum. Entries are never updated or deleted.
func (tx *Tx) AppendHistory(ctx context.Context, e *model.HistoryEntry) error {
	var seq int64
	if err := tx.q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM harness_history WHERE harness_id = ?`,
		e.HarnessID,
	).Scan(&seq); err != nil {
		return fmt.Errorf("append history: next seq: %w", err)
	}

	snapshot, err := marshalDocument(e.Snapshot)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	var hash any
	if e.SnapshotHash != "" {
		hash = e.SnapshotHash
	}

	_, err = tx.q.ExecContext(ctx, `
		INSERT INTO harness_history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.HarnessID,
		seq,
		e.Revision,
		string(e.ReleaseState),
		nullString(e.ChangedBy),
		string(e.ChangeType),
		nullString(e.ChangeNotes),
		snapshot,
		hash,
		formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	e.Seq = seq
	return nil
}

// ReadHistory returns a harness's entries most-recent-first (seq DESC).
// Returns an empty slice, not nil.
func (tx *Tx) ReadHistory(ctx context.Context, harnessID string) ([]model.HistoryEntry, error) {
	rows, err := tx.q.QueryContext(ctx, `
		SELECT `+historyColumns+` FROM harness_history
		WHERE harness_id = ?
		ORDER BY seq DESC
	`, harnessID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer rows.Close()

	entries := []model.HistoryEntry{}
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// GetHistoryEntry returns one entry by id or ErrNotFound.
func (tx *Tx) GetHistoryEntry(ctx context.Context, id string) (*model.HistoryEntry, error) {
	row := tx.q.QueryRowContext(ctx, `SELECT `+historyColumns+` FROM harness_history WHERE id = ?`, id)
	e, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history entry %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get history entry: %w", err)
	}
	return e, nil
}

func scanHistory(row rowScanner) (*model.HistoryEntry, error) {
	var (
		e                            model.HistoryEntry
		changedBy, notes, data, hash sql.NullString
		state, changeType, createdAt string
	)
	if err := row.Scan(
		&e.ID, &e.HarnessID, &e.Seq, &e.Revision, &state, &changedBy, &changeType,
		&notes, &data, &hash, &createdAt,
	); err != nil {
		return nil, err
	}

	var err error
	if e.Snapshot, err = unmarshalDocument(data); err != nil {
		return nil, fmt.Errorf("history entry %s: %w", e.ID, err)
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	e.ReleaseState = model.ReleaseState(state)
	e.ChangeType = model.ChangeType(changeType)
	e.ChangedBy = scanString(changedBy)
	e.ChangeNotes = scanString(notes)
	e.SnapshotHash = hash.String
	return &e, nil
}
