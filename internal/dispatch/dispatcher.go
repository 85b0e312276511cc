package dispatch

import (
	"context"
	"log/slog"
	"path"

	"folio/internal/config"
	"folio/internal/logging"
)

// Dispatcher binds the two pipeline call sites to the dispatch client: the
// OCR handoff at upload time and the postprocessing handoff triggered by the
// OCR callback. Both share the same retry contract and differ only in
// directories and callback paths. Targets are idempotent per group and
// stage, so repeating a dispatch is safe.
type Dispatcher struct {
	client *Client
	logger *slog.Logger

	ocrURL            string
	postprocessingURL string
	callbackBaseURL   string
	remotePathPrefix  string
}

// NewDispatcher constructs a dispatcher from configuration.
func NewDispatcher(cfg *config.Config, client *Client, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client:            client,
		logger:            logger.With(slog.String(logging.FieldComponent, "dispatch")),
		ocrURL:            cfg.OCR.URL,
		postprocessingURL: cfg.Postprocessing.URL,
		callbackBaseURL:   cfg.Pipeline.CallbackBaseURL,
		remotePathPrefix:  cfg.Pipeline.RemotePathPrefix,
	}
}

// DispatchOCR hands the group's uploaded originals to the OCR service.
// Results land in the progress stage directory and completion arrives on the
// OCR callback endpoint.
func (d *Dispatcher) DispatchOCR(ctx context.Context, groupID string) error {
	req := Request{
		Source:   d.remoteDir(groupID, "raw_data"),
		Dst:      d.remoteDir(groupID, "progress"),
		Callback: d.callbackBaseURL + "/pipeline/callback_ocr",
	}
	return d.send(ctx, d.ocrURL, groupID, "ocr", req)
}

// DispatchPostprocessing hands the group's OCR output to the text-correction
// service. Results land in the done stage directory.
func (d *Dispatcher) DispatchPostprocessing(ctx context.Context, groupID string) error {
	req := Request{
		Source:   d.remoteDir(groupID, "progress"),
		Dst:      d.remoteDir(groupID, "done"),
		Callback: d.callbackBaseURL + "/pipeline/callback_postprocessing",
	}
	return d.send(ctx, d.postprocessingURL, groupID, "postprocessing", req)
}

func (d *Dispatcher) send(ctx context.Context, target, groupID, stage string, req Request) error {
	d.logger.Info("dispatching work",
		slog.String(logging.FieldGroupID, groupID),
		slog.String(logging.FieldStage, stage),
		slog.String(logging.FieldTarget, target))

	if err := d.client.Send(ctx, target, req); err != nil {
		d.logger.Error("dispatch failed",
			slog.String(logging.FieldGroupID, groupID),
			slog.String(logging.FieldStage, stage),
			slog.String(logging.FieldTarget, target),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// remoteDir composes the directory path as seen from the processing
// service's mount, with a trailing slash per the service contract.
func (d *Dispatcher) remoteDir(groupID, dir string) string {
	return path.Join(d.remotePathPrefix, "groups", groupID, dir) + "/"
}
