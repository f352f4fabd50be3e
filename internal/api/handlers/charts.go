package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hugh/zenshin-chart/internal/api/dto"
	"github.com/hugh/zenshin-chart/internal/api/middleware"
	"github.com/hugh/zenshin-chart/internal/charts"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"github.com/hugh/zenshin-chart/internal/permissions"
	"github.com/hugh/zenshin-chart/internal/tasks"
	"github.com/hugh/zenshin-chart/pkg/metrics"
)

type ChartHandler struct {
	charts  *charts.Service
	queue   tasks.Enqueuer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewChartHandler wires chart endpoints. queue may be nil, in which case
// export requests are answered with 503.
func NewChartHandler(svc *charts.Service, queue tasks.Enqueuer, m *metrics.Metrics, logger *slog.Logger) *ChartHandler {
	return &ChartHandler{charts: svc, queue: queue, metrics: m, logger: logger}
}

func (h *ChartHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.charts.ListCharts(r.Context(), middleware.GetWorkspaceID(r.Context()))
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: list, Total: len(list)})
}

func (h *ChartHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, permissions.CanCreateChart) {
		return
	}

	var req dto.CreateChartRequest
	if !readJSON(w, r, &req) {
		return
	}

	chart, err := h.charts.CreateChart(r.Context(),
		middleware.GetWorkspaceID(r.Context()),
		middleware.GetUserID(r.Context()),
		charts.CreateChartInput{Title: req.Title, DueDate: req.DueDate})
	if err != nil {
		h.writeChartError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chart)
}

// Get returns the chart with every child collection.
func (h *ChartHandler) Get(w http.ResponseWriter, r *http.Request) {
	chartID, ok := uuidParam(w, r, "chartID", "Chart")
	if !ok {
		return
	}

	chart, err := h.charts.LoadChartTree(r.Context(), middleware.GetWorkspaceID(r.Context()), chartID)
	if err != nil {
		h.writeChartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

func (h *ChartHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, permissions.CanEditContent) {
		return
	}
	chartID, ok := uuidParam(w, r, "chartID", "Chart")
	if !ok {
		return
	}

	var req dto.UpdateChartRequest
	if !readJSON(w, r, &req) {
		return
	}
	input := charts.UpdateChartInput{
		Title:        req.Title,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
	}
	if req.Status != nil {
		status := models.ChartStatus(*req.Status)
		input.Status = &status
	}

	chart, err := h.charts.UpdateChart(r.Context(), middleware.GetWorkspaceID(r.Context()), chartID, input)
	if err != nil {
		h.writeChartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

func (h *ChartHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, permissions.CanDeleteChart) {
		return
	}
	chartID, ok := uuidParam(w, r, "chartID", "Chart")
	if !ok {
		return
	}

	if err := h.charts.DeleteChart(r.Context(), middleware.GetWorkspaceID(r.Context()), chartID); err != nil {
		h.writeChartError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export queues a JSON export of the chart to object storage.
func (h *ChartHandler) Export(w http.ResponseWriter, r *http.Request) {
	chartID, ok := uuidParam(w, r, "chartID", "Chart")
	if !ok {
		return
	}
	workspaceID := middleware.GetWorkspaceID(r.Context())

	if _, err := h.charts.GetChart(r.Context(), workspaceID, chartID); err != nil {
		h.writeChartError(w, err)
		return
	}

	if h.queue == nil {
		writeError(w, http.StatusServiceUnavailable, "Export queue is unavailable")
		return
	}

	task, err := tasks.NewChartExportTask(tasks.ChartExportPayload{
		WorkspaceID: workspaceID,
		ChartID:     chartID,
		RequestedBy: middleware.GetUserID(r.Context()),
	})
	if err != nil {
		h.logger.Error("failed to build export task", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to queue export")
		return
	}

	info, err := h.queue.EnqueueContext(r.Context(), task)
	if err != nil {
		h.logger.Error("failed to enqueue export", "chart_id", chartID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "Export queue is unavailable")
		return
	}

	h.metrics.ExportsEnqueued.Inc()
	writeJSON(w, http.StatusAccepted, dto.ExportResponse{TaskID: info.ID, Queue: info.Queue})
}

func (h *ChartHandler) writeChartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, charts.ErrChartNotFound):
		writeError(w, http.StatusNotFound, "Chart not found")
	case errors.Is(err, charts.ErrAreaNotFound):
		writeError(w, http.StatusNotFound, "Area not found")
	case errors.Is(err, charts.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "Item not found")
	case errors.Is(err, charts.ErrEmptyTitle),
		errors.Is(err, charts.ErrEmptyContent),
		errors.Is(err, charts.ErrInvalidColor),
		errors.Is(err, charts.ErrInvalidStatus),
		errors.Is(err, charts.ErrInvalidOrder),
		errors.Is(err, charts.ErrInvalidLink),
		errors.Is(err, charts.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("chart operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Chart operation failed")
	}
}
