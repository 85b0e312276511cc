package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"folio/internal/catalog"
	"folio/internal/pipeline"
	"folio/internal/stagecontent"
)

type filePatchRequest struct {
	Status string `json:"status"`
}

// handlePatchFile sets a file's status administratively, without the
// monotonic guard the pipeline callbacks enforce. Operators use it to
// requeue a file or force completion.
func (a *API) handlePatchFile(w http.ResponseWriter, r *http.Request) {
	var req filePatchRequest
	if err := decodeJSONBody(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	status, err := catalog.ParseStatus(req.Status)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	file, err := a.catalog.SetFileStatus(r.Context(), chi.URLParam(r, "fileID"), status)
	if err != nil {
		a.writeMappedError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, file)
}

// contentLocation resolves the stage directory and file metadata a content
// request addresses.
func (a *API) contentLocation(r *http.Request) (catalog.File, string, string, error) {
	file, err := a.catalog.GetFile(r.Context(), chi.URLParam(r, "fileID"))
	if err != nil {
		return catalog.File{}, "", "", err
	}
	stage, err := catalog.ParseStage(r.URL.Query().Get("stage"))
	if err != nil {
		return catalog.File{}, "", "", fmt.Errorf("%w: %v", pipeline.ErrValidation, err)
	}
	dir := a.catalog.Layout().StageDir(file.GroupID, stage)
	return file, dir, r.URL.Query().Get("name"), nil
}

func (a *API) handleGetContent(w http.ResponseWriter, r *http.Request) {
	file, dir, name, err := a.contentLocation(r)
	if err != nil {
		a.writeMappedError(w, err)
		return
	}
	path, err := stagecontent.Resolve(dir, file.FileID, file.OriginalName, name)
	if err != nil {
		a.writeMappedError(w, err)
		return
	}
	payload, err := stagecontent.ReadPayload(path)
	if err != nil {
		a.writeMappedError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func (a *API) handlePutContent(w http.ResponseWriter, r *http.Request) {
	file, dir, name, err := a.contentLocation(r)
	if err != nil {
		a.writeMappedError(w, err)
		return
	}
	var doc json.RawMessage
	if err := decodeJSONBody(r, &doc); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Sprintf("body must be JSON: %v", err))
		return
	}
	path, err := stagecontent.WritePath(dir, file.FileID, file.OriginalName, name)
	if err != nil {
		a.writeMappedError(w, err)
		return
	}
	if err := stagecontent.WritePayload(path, doc); err != nil {
		a.writeMappedError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"stored": path})
}

func (a *API) handleDeleteContent(w http.ResponseWriter, r *http.Request) {
	file, dir, name, err := a.contentLocation(r)
	if err != nil {
		a.writeMappedError(w, err)
		return
	}
	path, err := stagecontent.Resolve(dir, file.FileID, file.OriginalName, name)
	if err != nil {
		a.writeMappedError(w, err)
		return
	}
	if err := os.Remove(path); err != nil {
		a.writeMappedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

