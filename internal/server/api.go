package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"folio/internal/catalog"
	"folio/internal/docstore"
	"folio/internal/logging"
	"folio/internal/pipeline"
	"folio/internal/report"
	"folio/internal/stagecontent"
)

// API binds the HTTP surface to the pipeline services.
type API struct {
	catalog  *catalog.Catalog
	uploader *pipeline.Uploader
	receiver *pipeline.Receiver
	reports  *report.Builder
	logger   *slog.Logger
}

// NewAPI constructs the API handler set.
func NewAPI(cat *catalog.Catalog, uploader *pipeline.Uploader, receiver *pipeline.Receiver, reports *report.Builder, logger *slog.Logger) *API {
	return &API{
		catalog:  cat,
		uploader: uploader,
		receiver: receiver,
		reports:  reports,
		logger:   logger.With(slog.String(logging.FieldComponent, "api")),
	}
}

// Router builds the versioned route tree.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", a.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", a.handleHealth)

		r.Route("/groups", func(r chi.Router) {
			r.Post("/upload-zip", a.handleUploadZip)
			r.Get("/", a.handleListGroups)
			r.Route("/{groupID}", func(r chi.Router) {
				r.Get("/", a.handleGetGroup)
				r.Patch("/", a.handlePatchGroup)
				r.Delete("/", a.handleDeleteGroup)
				r.Get("/files", a.handleListFiles)
				r.Get("/report", a.handleReport)
			})
		})

		r.Route("/files/{fileID}", func(r chi.Router) {
			r.Patch("/", a.handlePatchFile)
			r.Get("/content", a.handleGetContent)
			r.Put("/content", a.handlePutContent)
			r.Delete("/content", a.handleDeleteContent)
		})

		r.Post("/pipeline/callback_ocr", a.handleCallback(pipeline.CallbackOCR))
		r.Post("/pipeline/callback_postprocessing", a.handleCallback(pipeline.CallbackPostprocessing))
	})
	return r
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, map[string]string{"error": message})
}

// writeMappedError translates a service error into an HTTP status.
func (a *API) writeMappedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, docstore.ErrNotFound) || errors.Is(err, stagecontent.ErrNotFound):
		a.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, pipeline.ErrValidation) || errors.Is(err, docstore.ErrInvalidKey):
		a.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrAmbiguousName) || errors.Is(err, stagecontent.ErrAmbiguousContent):
		a.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, docstore.ErrConcurrentModification) || errors.Is(err, docstore.ErrAlreadyExists):
		a.writeError(w, http.StatusConflict, err.Error())
	default:
		a.logger.Error("request failed", slog.String("error", err.Error()))
		a.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSONBody tolerates unknown fields: the processing services have
// added payload fields over time without coordination.
func decodeJSONBody(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}
