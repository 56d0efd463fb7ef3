package model

import "time"

// ReleaseState is the lifecycle stage of one harness revision row.
type ReleaseState string

const (
	StateDraft    ReleaseState = "draft"
	StateReview   ReleaseState = "review"
	StateReleased ReleaseState = "released"
)

// Rank orders states draft < review < released. Unknown states rank -1.
func (s ReleaseState) Rank() int {
	switch s {
	case StateDraft:
		return 0
	case StateReview:
		return 1
	case StateReleased:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is one of the three lifecycle states.
func (s ReleaseState) Valid() bool {
	return s.Rank() >= 0
}

// ChangeType classifies a history entry.
type ChangeType string

const (
	ChangeCreated         ChangeType = "created"
	ChangeUpdated         ChangeType = "updated"
	ChangeNewRevision     ChangeType = "new_revision"
	ChangeSubmittedReview ChangeType = "submitted_review"
	ChangeRejected        ChangeType = "rejected"
	ChangeReleased        ChangeType = "released"
)

// Harness is one revision row.
type Harness struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	PartID             *string      `json:"partId,omitempty"`
	Revision           string       `json:"revision"`
	Description        string       `json:"description,omitempty"`
	Document           *Document    `json:"harnessData,omitempty"`
	Thumbnail          *string      `json:"thumbnail,omitempty"`
	ReleaseState       ReleaseState `json:"releaseState"`
	ReleasedAt         *time.Time   `json:"releasedAt,omitempty"`
	ReleasedBy         *string      `json:"releasedBy,omitempty"`
	PreviousRevisionID *string      `json:"previousRevisionId,omitempty"`
	Active             bool         `json:"activeFlag"`
	CreatedBy          *string      `json:"createdBy,omitempty"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// Ref returns the {id, name} pair used by parent listings and reports.
func (h *Harness) Ref() HarnessRef {
	return HarnessRef{ID: h.ID, Name: h.Name}
}

// Clone returns a deep copy so a fork never aliases the source row.
func (h *Harness) Clone() *Harness {
	c := *h
	c.PartID = cloneString(h.PartID)
	c.Thumbnail = cloneString(h.Thumbnail)
	c.ReleasedBy = cloneString(h.ReleasedBy)
	c.PreviousRevisionID = cloneString(h.PreviousRevisionID)
	c.CreatedBy = cloneString(h.CreatedBy)
	if h.ReleasedAt != nil {
		t := *h.ReleasedAt
		c.ReleasedAt = &t
	}
	if h.Document != nil {
		c.Document = h.Document.Clone()
	}
	return &c
}

// HarnessRef names a harness without its document.
type HarnessRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HistoryEntry is an append-only revision history record.
//
// Seq is assigned by the store and strictly increases per harness; readers
// order by it, never by CreatedAt.
type HistoryEntry struct {
	ID           string       `json:"id"`
	HarnessID    string       `json:"harnessId"`
	Seq          int64        `json:"seq"`
	Revision     string       `json:"revision"`
	ReleaseState ReleaseState `json:"releaseState"`
	ChangedBy    *string      `json:"changedBy,omitempty"`
	ChangeType   ChangeType   `json:"changeType"`
	ChangeNotes  *string      `json:"changeNotes,omitempty"`
	Snapshot     *Document    `json:"snapshotData,omitempty"`
	SnapshotHash string       `json:"snapshotHash,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// CascadeChange reports one sub-assembly advanced by a cascade.
type CascadeChange struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	PreviousState ReleaseState `json:"previousState"`
	NewState      ReleaseState `json:"newState"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns *p or "" for nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}
