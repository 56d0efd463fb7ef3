package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/letwinventory/harnessgraph/internal/model"
)

// Edge is one indexed embedding edge.
type Edge struct {
	ParentID string `json:"parentId"`
	ChildID  string `json:"childId"`
}

// ReplaceEdges rewrites the indexed edges of parentID to exactly children.
// Call it in the same transaction as the document write that produced them.
func (tx *Tx) ReplaceEdges(ctx context.Context, parentID string, children []string) error {
	if _, err := tx.q.ExecContext(ctx, `DELETE FROM harness_edges WHERE parent_id = ?`, parentID); err != nil {
		return fmt.Errorf("replace edges: %w", err)
	}
	for _, child := range children {
		if _, err := tx.q.ExecContext(ctx,
			`INSERT OR IGNORE INTO harness_edges (parent_id, child_id) VALUES (?, ?)`,
			parentID, child,
		); err != nil {
			return fmt.Errorf("replace edges: %w", err)
		}
	}
	return nil
}

// ChildrenOf returns the harness ids parentID embeds, sorted.
func (tx *Tx) ChildrenOf(ctx context.Context, parentID string) ([]string, error) {
	rows, err := tx.q.QueryContext(ctx, `
		SELECT child_id FROM harness_edges
		WHERE parent_id = ?
		ORDER BY child_id COLLATE BINARY ASC
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("children of: %w", err)
	}
	defer rows.Close()

	children := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("children of: %w", err)
		}
		children = append(children, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("children of: %w", err)
	}
	return children, nil
}

// ParentsOf returns the active harnesses with an indexed edge to childID,
// ordered by name, then id.
func (tx *Tx) ParentsOf(ctx context.Context, childID string) ([]*model.Harness, error) {
	rows, err := tx.q.QueryContext(ctx, `
		SELECT `+prefixed("h.", harnessColumns)+`
		FROM harness_edges e
		JOIN harnesses h ON h.id = e.parent_id
		WHERE e.child_id = ? AND h.active_flag = 1
		ORDER BY h.name COLLATE BINARY ASC, h.id COLLATE BINARY ASC
	`, childID)
	if err != nil {
		return nil, fmt.Errorf("parents of: %w", err)
	}
	return collectHarnesses(rows)
}

// ActiveEdges returns the embedding graph of active parents as an adjacency
// map. Every active harness appears as a key, leaves with no children.
func (tx *Tx) ActiveEdges(ctx context.Context) (map[string][]string, error) {
	graph := make(map[string][]string)

	rows, err := tx.q.QueryContext(ctx, `SELECT id FROM harnesses WHERE active_flag = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("active edges: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("active edges: %w", err)
		}
		graph[id] = []string{}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("active edges: %w", err)
	}
	rows.Close()

	edges, err := tx.q.QueryContext(ctx, `
		SELECT e.parent_id, e.child_id
		FROM harness_edges e
		JOIN harnesses h ON h.id = e.parent_id
		WHERE h.active_flag = 1
		ORDER BY e.parent_id COLLATE BINARY ASC, e.child_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("active edges: %w", err)
	}
	defer edges.Close()
	for edges.Next() {
		var e Edge
		if err := edges.Scan(&e.ParentID, &e.ChildID); err != nil {
			return nil, fmt.Errorf("active edges: %w", err)
		}
		graph[e.ParentID] = append(graph[e.ParentID], e.ChildID)
	}
	if err := edges.Err(); err != nil {
		return nil, fmt.Errorf("active edges: %w", err)
	}
	return graph, nil
}

// DanglingEdges returns edges from active parents to harnesses that are
// missing or inactive.
func (tx *Tx) DanglingEdges(ctx context.Context) ([]Edge, error) {
	rows, err := tx.q.QueryContext(ctx, `
		SELECT e.parent_id, e.child_id
		FROM harness_edges e
		JOIN harnesses p ON p.id = e.parent_id
		LEFT JOIN harnesses c ON c.id = e.child_id
		WHERE p.active_flag = 1 AND (c.id IS NULL OR c.active_flag = 0)
		ORDER BY e.parent_id COLLATE BINARY ASC, e.child_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("dangling edges: %w", err)
	}
	defer rows.Close()

	out := []Edge{}
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.ParentID, &e.ChildID); err != nil {
			return nil, fmt.Errorf("dangling edges: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dangling edges: %w", err)
	}
	return out, nil
}

// prefixed qualifies a comma-separated column list with a table alias.
func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
