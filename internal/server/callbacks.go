package server

import (
	"fmt"
	"net/http"

	"folio/internal/pipeline"
)

// handleCallback adapts one processing-service callback endpoint to the
// receiver. OCR and postprocessing share the wire shape and differ only in
// the status each may report.
func (a *API) handleCallback(kind pipeline.CallbackKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pipeline.CallbackRequest
		if err := decodeJSONBody(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		file, err := a.receiver.HandleCallback(r.Context(), req, kind)
		if err != nil {
			a.writeMappedError(w, err)
			return
		}
		a.writeJSON(w, http.StatusOK, file)
	}
}
