package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"folio/internal/docstore"
	"folio/internal/logging"
	"folio/internal/stagecontent"
)

// ErrAmbiguousName indicates a filename that matched more than one file in a
// group during callback resolution.
var ErrAmbiguousName = errors.New("filename matches multiple files")

var nameFolder = cases.Fold()

// Catalog maintains group and file metadata on top of the document store and
// keeps the per-group status mirror in lockstep with it. The store is the
// source of truth; the mirror and the group index are caches that external
// readers may consume.
type Catalog struct {
	store  *docstore.Store
	layout Layout
	logger *slog.Logger
}

// New constructs a catalog over the given store and group layout.
func New(store *docstore.Store, layout Layout, logger *slog.Logger) *Catalog {
	return &Catalog{
		store:  store,
		layout: layout,
		logger: logger.With(slog.String(logging.FieldComponent, "catalog")),
	}
}

// Layout exposes the group directory layout.
func (c *Catalog) Layout() Layout {
	return c.layout
}

func groupKey(groupID string) string { return "groups/" + groupID }
func fileKey(fileID string) string   { return "files/" + fileID }
func indexKey(groupID string) string { return "group_index/" + groupID }

// CreateGroup registers a new group and creates its directory tree.
func (c *Catalog) CreateGroup(ctx context.Context, fond, opis, delo string) (Group, error) {
	group := Group{
		GroupID:   uuid.NewString(),
		Fond:      strings.TrimSpace(fond),
		Opis:      strings.TrimSpace(opis),
		Delo:      strings.TrimSpace(delo),
		CreatedAt: time.Now().UTC(),
	}
	if err := c.layout.EnsureGroupDirs(group.GroupID); err != nil {
		return Group{}, err
	}
	if err := c.store.Create(ctx, groupKey(group.GroupID), group, false); err != nil {
		return Group{}, fmt.Errorf("create group: %w", err)
	}
	c.logger.Info("group created", slog.String(logging.FieldGroupID, group.GroupID))
	return group, nil
}

// GetGroup loads a group by id.
func (c *Catalog) GetGroup(ctx context.Context, groupID string) (Group, error) {
	var group Group
	if err := c.store.Read(ctx, groupKey(groupID), &group); err != nil {
		return Group{}, err
	}
	return group, nil
}

// ListGroups returns every registered group, newest first.
func (c *Catalog) ListGroups(ctx context.Context) ([]Group, error) {
	keys, err := c.store.List(ctx, "groups", false)
	if err != nil {
		return nil, err
	}
	groups := make([]Group, 0, len(keys))
	for _, key := range keys {
		var group Group
		if err := c.store.Read(ctx, key, &group); err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				continue // deleted between list and read
			}
			return nil, err
		}
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].CreatedAt.After(groups[j].CreatedAt)
	})
	return groups, nil
}

// PatchGroup applies non-nil archival metadata fields to a group.
func (c *Catalog) PatchGroup(ctx context.Context, groupID string, patch GroupPatch) (Group, error) {
	var updated Group
	_, err := c.store.Update(ctx, groupKey(groupID), func(current json.RawMessage) (any, error) {
		var group Group
		if err := json.Unmarshal(current, &group); err != nil {
			return nil, err
		}
		if patch.Fond != nil {
			group.Fond = strings.TrimSpace(*patch.Fond)
		}
		if patch.Opis != nil {
			group.Opis = strings.TrimSpace(*patch.Opis)
		}
		if patch.Delo != nil {
			group.Delo = strings.TrimSpace(*patch.Delo)
		}
		updated = group
		return group, nil
	}, nil)
	if err != nil {
		return Group{}, err
	}
	return updated, nil
}

// DeleteGroup removes the group's directory tree, its files, its index, and
// the group document itself. Partially deleted structures do not abort the
// cascade; the store documents go last so a retry can still find them. File
// ids come from the same index-then-scan resolution as ListFiles, so files
// registered without an index entry are still swept.
func (c *Catalog) DeleteGroup(ctx context.Context, groupID string) error {
	if err := c.layout.RemoveGroupTree(groupID); err != nil {
		c.logger.Warn("remove group tree",
			slog.String(logging.FieldGroupID, groupID),
			slog.String("error", err.Error()))
	}

	fileIDs, err := c.fileIDs(ctx, groupID)
	if err != nil {
		return err
	}
	for _, fileID := range fileIDs {
		if err := c.store.Delete(ctx, fileKey(fileID), true); err != nil {
			return fmt.Errorf("delete file %s: %w", fileID, err)
		}
	}

	if err := c.store.Delete(ctx, indexKey(groupID), true); err != nil {
		return err
	}
	if err := c.store.Delete(ctx, groupKey(groupID), true); err != nil {
		return err
	}
	c.logger.Info("group deleted", slog.String(logging.FieldGroupID, groupID))
	return nil
}

// AddFile registers an uploaded file under a group with the initial
// progress status, writing both the store document and the status mirror.
func (c *Catalog) AddFile(ctx context.Context, groupID, originalName, rawPath string) (File, error) {
	now := time.Now().UTC()
	file := File{
		FileID:       uuid.NewString(),
		GroupID:      groupID,
		OriginalName: originalName,
		RawPath:      rawPath,
		Status:       StatusProgress,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.store.Create(ctx, fileKey(file.FileID), file, false); err != nil {
		return File{}, fmt.Errorf("create file: %w", err)
	}
	if err := c.writeMirror(file); err != nil {
		return File{}, err
	}
	return file, nil
}

// GetFile loads a file by id.
func (c *Catalog) GetFile(ctx context.Context, fileID string) (File, error) {
	var file File
	if err := c.store.Read(ctx, fileKey(fileID), &file); err != nil {
		return File{}, err
	}
	return file, nil
}

// SetGroupIndex replaces the group's file-id index.
func (c *Catalog) SetGroupIndex(ctx context.Context, groupID string, fileIDs []string) error {
	ids := append([]string(nil), fileIDs...)
	sort.Strings(ids)
	return c.store.Create(ctx, indexKey(groupID), groupIndex{Files: ids}, true)
}

// AppendGroupIndex merges file ids into the group's index, creating it when
// absent.
func (c *Catalog) AppendGroupIndex(ctx context.Context, groupID string, fileIDs []string) error {
	key := indexKey(groupID)
	exists, err := c.store.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return c.SetGroupIndex(ctx, groupID, fileIDs)
	}
	_, err = c.store.Update(ctx, key, func(current json.RawMessage) (any, error) {
		var index groupIndex
		if err := json.Unmarshal(current, &index); err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(index.Files))
		for _, id := range index.Files {
			seen[id] = struct{}{}
		}
		for _, id := range fileIDs {
			if _, ok := seen[id]; !ok {
				index.Files = append(index.Files, id)
			}
		}
		sort.Strings(index.Files)
		return index, nil
	}, nil)
	return err
}

// GroupExists reports whether the group is registered.
func (c *Catalog) GroupExists(ctx context.Context, groupID string) (bool, error) {
	return c.store.Exists(ctx, groupKey(groupID))
}

// ListFiles returns the group's files ordered by casefolded original name.
// The group index is consulted first; when it is missing (for example after
// a crash mid-upload) the store is scanned, since the store is authoritative.
func (c *Catalog) ListFiles(ctx context.Context, groupID string) ([]File, error) {
	fileIDs, err := c.fileIDs(ctx, groupID)
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(fileIDs))
	for _, fileID := range fileIDs {
		var file File
		if err := c.store.Read(ctx, fileKey(fileID), &file); err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				continue // index entry without a document
			}
			return nil, err
		}
		files = append(files, file)
	}
	sort.Slice(files, func(i, j int) bool {
		return nameFolder.String(files[i].OriginalName) < nameFolder.String(files[j].OriginalName)
	})
	return files, nil
}

func (c *Catalog) fileIDs(ctx context.Context, groupID string) ([]string, error) {
	var index groupIndex
	err := c.store.Read(ctx, indexKey(groupID), &index)
	if err == nil {
		return index.Files, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}

	keys, err := c.store.List(ctx, "files", false)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, key := range keys {
		var file File
		if err := c.store.Read(ctx, key, &file); err != nil {
			continue
		}
		if file.GroupID == groupID {
			ids = append(ids, file.FileID)
		}
	}
	return ids, nil
}

// SetFileStatus writes a file's status to both representations: the store
// document first (authoritative), then the per-group mirror. A crash between
// the two leaves the mirror stale; readers prefer the store and the next
// transition rewrites the mirror.
func (c *Catalog) SetFileStatus(ctx context.Context, fileID string, status Status) (File, error) {
	if !status.Valid() {
		return File{}, fmt.Errorf("set status: unknown status %q", status)
	}

	var updated File
	_, err := c.store.Update(ctx, fileKey(fileID), func(current json.RawMessage) (any, error) {
		var file File
		if err := json.Unmarshal(current, &file); err != nil {
			return nil, err
		}
		file.Status = status
		file.UpdatedAt = time.Now().UTC()
		updated = file
		return file, nil
	}, nil)
	if err != nil {
		return File{}, err
	}

	if err := c.writeMirror(updated); err != nil {
		return File{}, err
	}
	c.logger.Info("file status updated",
		slog.String(logging.FieldGroupID, updated.GroupID),
		slog.String(logging.FieldFileID, updated.FileID),
		slog.String(logging.FieldStatus, string(status)))
	return updated, nil
}

// ResolveFileByName finds the group's file whose original name corresponds to
// filename under stem normalization, with containment accepted in either
// direction. Several matches fail with ErrAmbiguousName rather than picking
// one; zero matches fail with the store's not-found error.
func (c *Catalog) ResolveFileByName(ctx context.Context, groupID, filename string) (File, error) {
	files, err := c.ListFiles(ctx, groupID)
	if err != nil {
		return File{}, err
	}

	wantStem := stagecontent.NormalizeStem(filename)
	var matches []File
	for _, file := range files {
		haveStem := stagecontent.NormalizeStem(file.OriginalName)
		if haveStem == wantStem ||
			(wantStem != "" && strings.Contains(haveStem, wantStem)) ||
			(haveStem != "" && strings.Contains(wantStem, haveStem)) {
			matches = append(matches, file)
		}
	}
	switch len(matches) {
	case 0:
		return File{}, fmt.Errorf("%w: no file named %q in group %s", docstore.ErrNotFound, filename, groupID)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.OriginalName
		}
		return File{}, fmt.Errorf("%w: %q matches %s", ErrAmbiguousName, filename, strings.Join(names, ", "))
	}
}

func (c *Catalog) writeMirror(file File) error {
	path := c.layout.StatusMirrorPath(file.GroupID, file.FileID)
	if err := docstore.AtomicWriteJSON(path, file); err != nil {
		return fmt.Errorf("write status mirror: %w", err)
	}
	return nil
}
