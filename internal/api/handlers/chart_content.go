package handlers

import (
	"net/http"

	"github.com/hugh/zenshin-chart/internal/api/dto"
	"github.com/hugh/zenshin-chart/internal/api/middleware"
	"github.com/hugh/zenshin-chart/internal/api/validation"
	"github.com/hugh/zenshin-chart/internal/charts"
	"github.com/hugh/zenshin-chart/internal/permissions"
)

func (h *ChartHandler) ListAreas(w http.ResponseWriter, r *http.Request) {
	chartID, ok := uuidParam(w, r, "chartID", "Chart")
	if !ok {
		return
	}

	areas, err := h.charts.ListAreas(r.Context(), middleware.GetWorkspaceID(r.Context()), chartID)
	if err != nil {
		h.writeChartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: areas, Total: len(areas)})
}

func (h *ChartHandler) CreateArea(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, permissions.CanEditContent) {
		return
	}
	chartID, ok := uuidParam(w, r, "chartID", "Chart")
	if !ok {
		return
	}

	var req dto.AreaRequest
	if !readJSON(w, r, &req) {
		return
	}

	area, err := h.charts.CreateArea(r.Context(), middleware.GetWorkspaceID(r.Context()), chartID,
		charts.AreaInput{Name: req.Name, Color: req.Color})
	if err != nil {
		h.writeChartError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, area)
}

func (h *ChartHandler) UpdateArea(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, permissions.CanEditContent) {
		return
	}
	chartID, ok := uuidParam(w, r, "chartID", "Chart")
	if !ok {
		return
	}
	areaID, ok := uuidParam(w, r, "areaID", "Area")
	if !ok {
		return
	}

	var req dto.AreaPatchRequest
	if !readJSON(w, r, &req) {
		return
	}

	area, err := h.charts.UpdateArea(r.Context(), middleware.GetWorkspaceID(r.Context()), chartID, areaID,
		charts.AreaPatch{Name: req.Name, Color: req.Color})
	if err != nil {
		h.writeChartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, area)
}

func (h *ChartHandler) DeleteArea(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, permissions.CanEditContent) {
		return
	}
	chartID, ok := uuidParam(w, r, "chartID", "Chart")
	if !ok {
		return
	}
	areaID, ok := uuidParam(w, r, "areaID", "Area")
	if !ok {
		return
	}

	if err := h.charts.DeleteArea(r.Context(), middleware.GetWorkspaceID(r.Context()), chartID, areaID); err != nil {
		h.writeChartError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderAreas handles PUT /areas/order with the complete new ordering.
func (h *ChartHandler) ReorderAreas(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, permissions.CanEditContent) {
		return
	}
	chartID, ok := uuidParam(w, r, "chartID", "Chart")
	if !ok {
		return
	}

	var req dto.ReorderAreasRequest
	if !readJSON(w, r, &req) {
		return
	}

	areas, err := h.charts.ReorderAreas(r.Context(), middleware.GetWorkspaceID(r.Context()), chartID, req.AreaIDs)
	if err != nil {
		h.writeChartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: areas, Total: len(areas)})
}

// CreateItem returns the POST handler for one item collection.
func (h *ChartHandler) CreateItem(kind charts.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, permissions.CanEditContent) {
			return
		}
		chartID, ok := uuidParam(w, r, "chartID", "Chart")
		if !ok {
			return
		}

		var req dto.ItemRequest
		if !readJSON(w, r, &req) {
			return
		}

		item, err := h.charts.CreateItem(r.Context(), middleware.GetWorkspaceID(r.Context()), chartID, kind, charts.ItemInput{
			Content:    req.Content,
			Title:      req.Title,
			AreaID:     req.AreaID,
			TensionID:  req.TensionID,
			AssigneeID: req.AssigneeID,
			DueDate:    req.DueDate,
			Status:     req.Status,
			LinkURL:    req.LinkURL,
		})
		if err != nil {
			h.writeChartError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

func (h *ChartHandler) UpdateItem(kind charts.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, permissions.CanEditContent) {
			return
		}
		chartID, ok := uuidParam(w, r, "chartID", "Chart")
		if !ok {
			return
		}
		itemID, ok := uuidParam(w, r, "itemID", "Item")
		if !ok {
			return
		}

		var req dto.ItemPatchRequest
		if !readJSON(w, r, &req) {
			return
		}

		item, err := h.charts.UpdateItem(r.Context(), middleware.GetWorkspaceID(r.Context()), chartID, kind, itemID, charts.ItemPatch{
			Content:       req.Content,
			Title:         req.Title,
			AreaID:        req.AreaID,
			ClearArea:     req.ClearArea,
			TensionID:     req.TensionID,
			ClearTension:  req.ClearTension,
			AssigneeID:    req.AssigneeID,
			ClearAssignee: req.ClearAssignee,
			DueDate:       req.DueDate,
			ClearDueDate:  req.ClearDueDate,
			Status:        req.Status,
			LinkURL:       req.LinkURL,
			SortOrder:     req.SortOrder,
		})
		if err != nil {
			h.writeChartError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (h *ChartHandler) DeleteItem(kind charts.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, permissions.CanEditContent) {
			return
		}
		chartID, ok := uuidParam(w, r, "chartID", "Chart")
		if !ok {
			return
		}
		itemID, ok := uuidParam(w, r, "itemID", "Item")
		if !ok {
			return
		}

		if err := h.charts.DeleteItem(r.Context(), middleware.GetWorkspaceID(r.Context()), chartID, kind, itemID); err != nil {
			h.writeChartError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ToggleAction flips an action between done and todo.
func (h *ChartHandler) ToggleAction(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, permissions.CanEditContent) {
		return
	}
	chartID, ok := uuidParam(w, r, "chartID", "Chart")
	if !ok {
		return
	}
	itemID, ok := uuidParam(w, r, "itemID", "Item")
	if !ok {
		return
	}

	action, err := h.charts.ToggleAction(r.Context(), middleware.GetWorkspaceID(r.Context()), chartID, itemID)
	if err != nil {
		h.writeChartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, action)
}

func (h *ChartHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	chartID, ok := uuidParam(w, r, "chartID", "Chart")
	if !ok {
		return
	}

	comments, err := h.charts.ListComments(r.Context(), middleware.GetWorkspaceID(r.Context()), chartID)
	if err != nil {
		h.writeChartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: comments, Total: len(comments)})
}

func (h *ChartHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, permissions.CanComment) {
		return
	}
	chartID, ok := uuidParam(w, r, "chartID", "Chart")
	if !ok {
		return
	}

	var req dto.CommentRequest
	if !readJSON(w, r, &req) {
		return
	}

	result, err := h.charts.CreateComment(r.Context(),
		middleware.GetWorkspaceID(r.Context()), chartID, middleware.GetUserID(r.Context()), validation.SanitizeString(req.Body))
	if err != nil {
		h.writeChartError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
