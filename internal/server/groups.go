package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"folio/internal/catalog"
	"folio/internal/ingest"
	"folio/internal/report"
)

// maxUploadBytes caps one archive upload.
const maxUploadBytes = 2 << 30

type uploadResponse struct {
	Group catalog.Group  `json:"group"`
	Files []catalog.File `json:"files"`
}

func (a *API) handleUploadZip(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	archive, _, err := r.FormFile("archive")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "multipart field \"archive\" is required")
		return
	}
	defer archive.Close()

	spooled, cleanup, err := ingest.SpoolArchive(archive)
	if err != nil {
		a.writeMappedError(w, err)
		return
	}
	defer cleanup()

	group, files, err := a.uploader.UploadGroup(r.Context(), spooled,
		r.FormValue("fond"), r.FormValue("opis"), r.FormValue("delo"))
	if err != nil {
		a.writeMappedError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, uploadResponse{Group: group, Files: files})
}

func (a *API) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := a.catalog.ListGroups(r.Context())
	if err != nil {
		a.writeMappedError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (a *API) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := a.catalog.GetGroup(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		a.writeMappedError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, group)
}

func (a *API) handlePatchGroup(w http.ResponseWriter, r *http.Request) {
	var patch catalog.GroupPatch
	if err := decodeJSONBody(r, &patch); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	group, err := a.catalog.PatchGroup(r.Context(), chi.URLParam(r, "groupID"), patch)
	if err != nil {
		a.writeMappedError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, group)
}

func (a *API) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	if exists, err := a.catalog.GroupExists(r.Context(), groupID); err != nil {
		a.writeMappedError(w, err)
		return
	} else if !exists {
		a.writeError(w, http.StatusNotFound, "group not found")
		return
	}
	if err := a.catalog.DeleteGroup(r.Context(), groupID); err != nil {
		a.writeMappedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListFiles(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	if exists, err := a.catalog.GroupExists(r.Context(), groupID); err != nil {
		a.writeMappedError(w, err)
		return
	} else if !exists {
		a.writeError(w, http.StatusNotFound, "group not found")
		return
	}
	files, err := a.catalog.ListFiles(r.Context(), groupID)
	if err != nil {
		a.writeMappedError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (a *API) handleReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	stage, err := catalog.ParseStage(query.Get("stage"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	format, err := report.ParseFormat(query.Get("format"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := report.Options{
		Fields:           splitCSVParam(query.Get("fields")),
		EntityTypesOrder: splitCSVParam(query.Get("entity_types_order")),
		EntityJoiner:     query.Get("entity_joiner"),
	}
	if v := query.Get("deduplicate_values"); v == "false" || v == "0" {
		opts.KeepDuplicateValues = true
	}

	rep, err := a.reports.Build(r.Context(), chi.URLParam(r, "groupID"), stage, opts)
	if err != nil {
		a.writeMappedError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", rep.Filename(format.Extension())))
	_, _ = w.Write([]byte(report.Render(rep, format)))
}

func splitCSVParam(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
