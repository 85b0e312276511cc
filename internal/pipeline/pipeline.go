package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"folio/internal/catalog"
	"folio/internal/ingest"
	"folio/internal/logging"
)

// ErrValidation marks a request the caller composed incorrectly: missing
// identifiers, an unparseable status, or a status the processing stage is
// not allowed to report.
var ErrValidation = errors.New("invalid pipeline request")

// CallbackKind identifies which processing service is reporting completion.
type CallbackKind string

const (
	CallbackOCR            CallbackKind = "ocr"
	CallbackPostprocessing CallbackKind = "postprocessing"
)

// expectedStatus returns the only status a service of this kind may report.
func (k CallbackKind) expectedStatus() (catalog.Status, bool) {
	switch k {
	case CallbackOCR:
		return catalog.StatusUpgrading, true
	case CallbackPostprocessing:
		return catalog.StatusDone, true
	}
	return "", false
}

// CallbackRequest is the completion notice an external service posts back
// for one processed file. FileID is optional; when absent the file is
// resolved by name within the group.
type CallbackRequest struct {
	GroupID  string `json:"group_uuid"`
	Filename string `json:"filename"`
	FileID   string `json:"file_uuid,omitempty"`
	Status   string `json:"status"`
}

// Dispatcher hands work to the external processing services.
type Dispatcher interface {
	DispatchOCR(ctx context.Context, groupID string) error
	DispatchPostprocessing(ctx context.Context, groupID string) error
}

// Receiver applies processing-service callbacks to the catalog and chains
// the next pipeline stage.
type Receiver struct {
	catalog    *catalog.Catalog
	dispatcher Dispatcher
	logger     *slog.Logger

	// dispatched is closed-loop test plumbing: signaled after each
	// fire-and-forget dispatch attempt finishes.
	dispatched chan struct{}
}

// NewReceiver constructs a callback receiver.
func NewReceiver(cat *catalog.Catalog, dispatcher Dispatcher, logger *slog.Logger) *Receiver {
	return &Receiver{
		catalog:    cat,
		dispatcher: dispatcher,
		logger:     logger.With(slog.String(logging.FieldComponent, "pipeline")),
	}
}

// HandleCallback validates and applies one completion notice. OCR callbacks
// may only report upgrading and postprocessing callbacks only done; a
// re-delivered callback overwrites the same status without error. When a
// file reaches upgrading, postprocessing dispatch for its group runs on a
// background goroutine so the reporting service is never blocked on our
// downstream; a failed dispatch is logged and the status stands.
func (r *Receiver) HandleCallback(ctx context.Context, req CallbackRequest, kind CallbackKind) (catalog.File, error) {
	if req.GroupID == "" {
		return catalog.File{}, fmt.Errorf("%w: group_uuid is required", ErrValidation)
	}
	if req.Filename == "" && req.FileID == "" {
		return catalog.File{}, fmt.Errorf("%w: filename or file_uuid is required", ErrValidation)
	}

	expected, ok := kind.expectedStatus()
	if !ok {
		return catalog.File{}, fmt.Errorf("%w: unknown callback kind %q", ErrValidation, kind)
	}
	status, err := catalog.ParseStatus(req.Status)
	if err != nil {
		return catalog.File{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if status != expected {
		return catalog.File{}, fmt.Errorf("%w: %s callback may not report status %q", ErrValidation, kind, req.Status)
	}

	if _, err := r.catalog.GetGroup(ctx, req.GroupID); err != nil {
		return catalog.File{}, err
	}

	file, err := r.resolveFile(ctx, req)
	if err != nil {
		return catalog.File{}, err
	}
	if !catalog.CanAdvance(file.Status, status) {
		return catalog.File{}, fmt.Errorf("%w: file %s cannot move from %q to %q",
			ErrValidation, file.FileID, file.Status, status)
	}

	updated, err := r.catalog.SetFileStatus(ctx, file.FileID, status)
	if err != nil {
		return catalog.File{}, err
	}

	if status == catalog.StatusUpgrading {
		go r.chainPostprocessing(context.WithoutCancel(ctx), updated.GroupID)
	}
	return updated, nil
}

func (r *Receiver) resolveFile(ctx context.Context, req CallbackRequest) (catalog.File, error) {
	if req.FileID != "" {
		file, err := r.catalog.GetFile(ctx, req.FileID)
		if err == nil && file.GroupID == req.GroupID {
			return file, nil
		}
		// Fall through to name resolution: services occasionally echo a
		// stale or foreign identifier while the filename stays good.
	}
	return r.catalog.ResolveFileByName(ctx, req.GroupID, req.Filename)
}

func (r *Receiver) chainPostprocessing(ctx context.Context, groupID string) {
	err := r.dispatcher.DispatchPostprocessing(ctx, groupID)
	if err != nil {
		r.logger.Error("postprocessing dispatch failed",
			slog.String(logging.FieldGroupID, groupID),
			slog.String("error", err.Error()))
	}
	if r.dispatched != nil {
		r.dispatched <- struct{}{}
	}
}

// Uploader turns an uploaded archive into a registered group with files
// queued for recognition.
type Uploader struct {
	catalog     *catalog.Catalog
	dispatcher  Dispatcher
	allowedExts []string
	logger      *slog.Logger

	dispatched chan struct{}
}

// NewUploader constructs an upload orchestrator. allowedExts lists the
// file extensions accepted from archives, dot included.
func NewUploader(cat *catalog.Catalog, dispatcher Dispatcher, allowedExts []string, logger *slog.Logger) *Uploader {
	return &Uploader{
		catalog:     cat,
		dispatcher:  dispatcher,
		allowedExts: allowedExts,
		logger:      logger.With(slog.String(logging.FieldComponent, "pipeline")),
	}
}

// UploadGroup creates a group, unpacks the archive into its raw data
// directory, registers every extracted file at the initial status, writes
// the group index, and hands the group to OCR on a background goroutine.
// The group is returned immediately; recognition progress arrives through
// callbacks.
func (u *Uploader) UploadGroup(ctx context.Context, archivePath, fond, opis, delo string) (catalog.Group, []catalog.File, error) {
	group, err := u.catalog.CreateGroup(ctx, fond, opis, delo)
	if err != nil {
		return catalog.Group{}, nil, err
	}

	rawDir := u.catalog.Layout().RawDir(group.GroupID)
	paths, err := ingest.ExtractZip(archivePath, rawDir, u.allowedExts)
	if err != nil {
		return catalog.Group{}, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	// The index grows file by file so a crash mid-upload leaves it
	// consistent with the documents registered so far.
	files := make([]catalog.File, 0, len(paths))
	for _, p := range paths {
		file, err := u.catalog.AddFile(ctx, group.GroupID, filepath.Base(p), p)
		if err != nil {
			return catalog.Group{}, nil, err
		}
		if err := u.catalog.AppendGroupIndex(ctx, group.GroupID, []string{file.FileID}); err != nil {
			return catalog.Group{}, nil, err
		}
		files = append(files, file)
	}

	u.logger.Info("group uploaded",
		slog.String(logging.FieldGroupID, group.GroupID),
		slog.Int("files", len(files)))

	go func() {
		err := u.dispatcher.DispatchOCR(context.WithoutCancel(ctx), group.GroupID)
		if err != nil {
			u.logger.Error("ocr dispatch failed",
				slog.String(logging.FieldGroupID, group.GroupID),
				slog.String("error", err.Error()))
		}
		if u.dispatched != nil {
			u.dispatched <- struct{}{}
		}
	}()

	return group, files, nil
}
