package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Stage names a pipeline phase with its own content directory.
type Stage string

const (
	// StageProgress holds OCR output payloads.
	StageProgress Stage = "progress"
	// StageDone holds final postprocessing payloads.
	StageDone Stage = "done"
)

// ParseStage converts raw input into a Stage, defaulting to StageProgress
// when empty.
func ParseStage(raw string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(StageProgress):
		return StageProgress, nil
	case string(StageDone):
		return StageDone, nil
	default:
		return "", fmt.Errorf("unknown stage %q", raw)
	}
}

// Layout derives the on-disk directory tree for a group. The directory names
// are a stable contract with the external processing services that read and
// write them directly:
//
//	<root>/<group_id>/raw_data/   uploaded originals
//	<root>/<group_id>/statuses/   per-file status mirror documents
//	<root>/<group_id>/progress/   OCR-stage payloads
//	<root>/<group_id>/done/       postprocessing payloads
type Layout struct {
	root string
}

// NewLayout returns a layout rooted at the groups directory.
func NewLayout(root string) Layout {
	return Layout{root: root}
}

// Root returns the groups root directory.
func (l Layout) Root() string {
	return l.root
}

// GroupRoot returns the directory owning all of a group's content.
func (l Layout) GroupRoot(groupID string) string {
	return filepath.Join(l.root, groupID)
}

// RawDir returns the directory holding uploaded originals.
func (l Layout) RawDir(groupID string) string {
	return filepath.Join(l.GroupRoot(groupID), "raw_data")
}

// StatusDir returns the directory holding the per-file status mirror.
func (l Layout) StatusDir(groupID string) string {
	return filepath.Join(l.GroupRoot(groupID), "statuses")
}

// StatusMirrorPath returns the mirror document location for one file.
func (l Layout) StatusMirrorPath(groupID, fileID string) string {
	return filepath.Join(l.StatusDir(groupID), fileID+".json")
}

// StageDir returns the payload directory for a stage.
func (l Layout) StageDir(groupID string, stage Stage) string {
	return filepath.Join(l.GroupRoot(groupID), string(stage))
}

// EnsureGroupDirs creates the full directory tree for a group.
func (l Layout) EnsureGroupDirs(groupID string) error {
	for _, dir := range []string{
		l.RawDir(groupID),
		l.StatusDir(groupID),
		l.StageDir(groupID, StageProgress),
		l.StageDir(groupID, StageDone),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create group directory %q: %w", dir, err)
		}
	}
	return nil
}

// RemoveGroupTree deletes the group's entire directory tree.
func (l Layout) RemoveGroupTree(groupID string) error {
	return os.RemoveAll(l.GroupRoot(groupID))
}
