package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/zenshin-chart/internal/charts"
	"github.com/hugh/zenshin-chart/internal/export"
	"github.com/hugh/zenshin-chart/internal/workspace"
	"github.com/hugh/zenshin-chart/pkg/crypto"
	"github.com/hugh/zenshin-chart/pkg/metrics"
)

type Handler struct {
	workspaces *workspace.Service
	charts     *charts.Service
	uploader   export.Uploader
	encryptor  *crypto.Encryptor
	retention  time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewHandler wires task handlers. uploader may be nil when export storage is
// not configured; export tasks then fail without retry.
func NewHandler(
	workspaces *workspace.Service,
	chartService *charts.Service,
	uploader export.Uploader,
	retention time.Duration,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		workspaces: workspaces,
		charts:     chartService,
		uploader:   uploader,
		retention:  retention,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

// WithEncryptor seals exports before upload.
func (h *Handler) WithEncryptor(e *crypto.Encryptor) *Handler {
	h.encryptor = e
	return h
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypePurgeExpiredInvitations, h.HandlePurgeExpiredInvitations)
	mux.HandleFunc(TypeChartExport, h.HandleChartExport)
}

func (h *Handler) HandlePurgeExpiredInvitations(ctx context.Context, t *asynq.Task) error {
	n, err := h.workspaces.PurgeExpiredInvitations(ctx, h.retention)
	if err != nil {
		h.logger.Error("invitation purge failed", "error", err)
		return err
	}

	h.logger.Info("purged expired invitations", "count", n, "retention", h.retention)
	return nil
}

func (h *Handler) HandleChartExport(ctx context.Context, t *asynq.Task) error {
	var payload ChartExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if h.uploader == nil {
		h.metrics.ExportsFinished.WithLabelValues("skipped").Inc()
		return fmt.Errorf("%v: %w", export.ErrNotConfigured, asynq.SkipRetry)
	}

	log := h.logger.With("workspace_id", payload.WorkspaceID, "chart_id", payload.ChartID)
	log.Info("starting chart export")

	tree, err := h.charts.LoadChartTree(ctx, payload.WorkspaceID, payload.ChartID)
	if err != nil {
		if errors.Is(err, charts.ErrChartNotFound) {
			h.metrics.ExportsFinished.WithLabelValues("not_found").Inc()
			return fmt.Errorf("chart %s: %v: %w", payload.ChartID, err, asynq.SkipRetry)
		}
		h.metrics.ExportsFinished.WithLabelValues("failed").Inc()
		return fmt.Errorf("loading chart: %w", err)
	}

	at := h.now()
	body, err := export.Marshal(tree, at)
	if err != nil {
		h.metrics.ExportsFinished.WithLabelValues("failed").Inc()
		return fmt.Errorf("marshal export: %v: %w", err, asynq.SkipRetry)
	}

	key, contentType := export.Key(payload.WorkspaceID, payload.ChartID, at), "application/json"
	if h.encryptor != nil {
		if body, err = h.encryptor.Encrypt(body); err != nil {
			h.metrics.ExportsFinished.WithLabelValues("failed").Inc()
			return fmt.Errorf("sealing export: %w", err)
		}
		key, contentType = key+".age", "application/octet-stream"
	}

	location, err := h.uploader.Upload(ctx, key, body, contentType)
	if err != nil {
		h.metrics.ExportsFinished.WithLabelValues("failed").Inc()
		log.Error("chart export upload failed", "error", err)
		return err
	}

	h.metrics.ExportsFinished.WithLabelValues("uploaded").Inc()
	log.Info("chart export uploaded", "location", location, "bytes", len(body))
	return nil
}
