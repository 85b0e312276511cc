package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the pipeline lifecycle of a file.
type Status string

const (
	// StatusProgress is the initial status: uploaded, OCR not yet complete.
	StatusProgress Status = "progress"
	// StatusUpgrading means OCR output was delivered and postprocessing is pending.
	StatusUpgrading Status = "upgrading"
	// StatusDone means postprocessing finished and final content is available.
	StatusDone Status = "done"
)

var allStatuses = []Status{
	StatusProgress,
	StatusUpgrading,
	StatusDone,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Valid reports whether the status is a known pipeline status.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// ParseStatus converts raw input into a Status.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return status, nil
}

// Next returns the status following s in the pipeline order. ok is false for
// the terminal status.
func (s Status) Next() (next Status, ok bool) {
	for i, status := range allStatuses {
		if status == s && i+1 < len(allStatuses) {
			return allStatuses[i+1], true
		}
	}
	return "", false
}

// CanAdvance reports whether the automated pipeline may move a file from one
// status to another. Pipeline transitions are strictly forward, one step at a
// time; re-applying the current status is allowed so redelivered callbacks
// stay idempotent. Administrative patches bypass this check.
func CanAdvance(from, to Status) bool {
	if from == to {
		return true
	}
	next, ok := from.Next()
	return ok && next == to
}

// Group represents one uploaded batch sharing archival metadata.
type Group struct {
	GroupID   string    `json:"group_uuid"`
	Fond      string    `json:"fond,omitempty"`
	Opis      string    `json:"opis,omitempty"`
	Delo      string    `json:"delo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupPatch carries optional archival metadata updates; nil fields are left
// unchanged.
type GroupPatch struct {
	Fond *string `json:"fond"`
	Opis *string `json:"opis"`
	Delo *string `json:"delo"`
}

// File represents one scanned page tracked through the pipeline.
type File struct {
	FileID       string    `json:"file_uuid"`
	GroupID      string    `json:"group_uuid"`
	OriginalName string    `json:"original_name"`
	RawPath      string    `json:"raw_path"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// groupIndex is the secondary group to file-ids structure. It is a
// best-effort cache; the per-file documents stay authoritative.
type groupIndex struct {
	Files []string `json:"files"`
}
