package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
	"github.com/oshokin/arming-scheduler/internal/logger"
	"github.com/oshokin/arming-scheduler/internal/repository/inventory"
	"github.com/oshokin/arming-scheduler/internal/repository/schedule"
)

// Display defaults for buildings without a stored window.
const (
	DefaultStartTime = "09:00"
	DefaultEndTime   = "17:00"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// Panel is the global panel flag.
type Panel interface {
	Armed(ctx context.Context) (bool, error)
	SetArmed(ctx context.Context, armed bool) error
}

// Schedules stores windows, exception rules and state history.
type Schedules interface {
	Ping(ctx context.Context) error
	StoredWindow(ctx context.Context, buildingID int64) (schedule.StoredWindow, error)
	Windows(ctx context.Context) (map[int64]schedule.StoredWindow, error)
	SetWindow(ctx context.Context, buildingID int64, start, end string) error
	Exceptions(ctx context.Context) (map[int64]domain.ExceptionRule, error)
	UpsertException(ctx context.Context, rule domain.ExceptionRule) error
	History(ctx context.Context, buildingID int64, limit int) ([]schedule.HistoryEntry, error)
}

// Inventory reads buildings and proevents.
type Inventory interface {
	Ping(ctx context.Context) error
	ListBuildings(ctx context.Context) ([]domain.Building, error)
	ListPoints(ctx context.Context, buildingID int64, filter domain.PointFilter) ([]domain.Point, error)
}

// Reevaluator reconciles one building now.
type Reevaluator interface {
	ReconcileOne(ctx context.Context, buildingID int64) (domain.Result, error)
}

// Operator applies manual bulk actions.
type Operator interface {
	Apply(ctx context.Context, buildingID int64, target domain.ReactiveState) (domain.Result, error)
}

// Handler serves the HTTP API.
type Handler struct {
	panel       Panel
	schedules   Schedules
	inventory   Inventory
	reevaluator Reevaluator
	operator    Operator
	timeout     time.Duration
}

// NewHandler creates a handler. timeout bounds the health check.
func NewHandler(
	panel Panel,
	schedules Schedules,
	inv Inventory,
	reevaluator Reevaluator,
	operator Operator,
	timeout time.Duration,
) *Handler {
	return &Handler{
		panel:       panel,
		schedules:   schedules,
		inventory:   inv,
		reevaluator: reevaluator,
		operator:    operator,
		timeout:     timeout,
	}
}

// GetPanelStatus returns the global panel flag.
func (h *Handler) GetPanelStatus(w http.ResponseWriter, r *http.Request) {
	armed, err := h.panel.Armed(r.Context())
	if err != nil {
		logger.ErrorKV(r.Context(), "Failed to read panel status", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read panel status", err)

		return
	}

	writeJSON(w, http.StatusOK, PanelStatus{Armed: &armed})
}

// SetPanelStatus stores the global panel flag.
func (h *Handler) SetPanelStatus(w http.ResponseWriter, r *http.Request) {
	var req PanelStatus
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)

		return
	}

	if req.Armed == nil {
		writeError(w, http.StatusBadRequest, "armed is required", nil)

		return
	}

	if err := h.panel.SetArmed(r.Context(), *req.Armed); err != nil {
		logger.ErrorKV(r.Context(), "Failed to set panel status", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update panel status", err)

		return
	}

	writeJSON(w, http.StatusOK, req)
}

// ListBuildings returns every building with its schedule, or the display
// defaults when none is stored.
func (h *Handler) ListBuildings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	buildings, err := h.inventory.ListBuildings(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to list buildings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list buildings", err)

		return
	}

	windows, err := h.schedules.Windows(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to read schedules", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read schedules", err)

		return
	}

	out := make([]BuildingOut, 0, len(buildings))

	for _, b := range buildings {
		item := BuildingOut{
			ID:        b.ID,
			Name:      b.Name,
			StartTime: DefaultStartTime,
			EndTime:   DefaultEndTime,
		}

		if stored, ok := windows[b.ID]; ok {
			item.StartTime = stored.Start

			if stored.End != "" {
				item.EndTime = stored.End
			}
		}

		out = append(out, item)
	}

	writeJSON(w, http.StatusOK, out)
}

// ListDevices returns a page of a building's proevents.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	if query.Get("building") == "" {
		writeError(w, http.StatusBadRequest, "a building ID is required", nil)

		return
	}

	buildingID, err := strconv.ParseInt(query.Get("building"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid building ID", err)

		return
	}

	filter := domain.PointFilter{
		Search: query.Get("search"),
		Limit:  domain.DefaultPointLimit,
	}

	if raw := query.Get("limit"); raw != "" {
		filter.Limit, err = strconv.Atoi(raw)
		if err != nil || filter.Limit < 1 || filter.Limit > domain.MaxPointLimit {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("limit must be between 1 and %d", domain.MaxPointLimit), err)

			return
		}
	}

	if raw := query.Get("offset"); raw != "" {
		filter.Offset, err = strconv.Atoi(raw)
		if err != nil || filter.Offset < 0 {
			writeError(w, http.StatusBadRequest, "offset must not be negative", err)

			return
		}
	}

	points, err := h.inventory.ListPoints(ctx, buildingID, filter)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to list proevents", "building_id", buildingID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list proevents", err)

		return
	}

	rules, err := h.schedules.Exceptions(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to read exception rules", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read exception rules", err)

		return
	}

	out := make([]DeviceOut, 0, len(points))

	for _, p := range points {
		rule := rules[p.ID]

		out = append(out, DeviceOut{
			ID:                p.ID,
			Name:              p.Name,
			State:             p.State.String(),
			IsIgnoredOnArm:    rule.IgnoreOnArm,
			IsIgnoredOnDisarm: rule.IgnoreOnDisarm,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

// DeviceAction arms or disarms a whole building on operator request.
// A storage failure is reported in the summary, not as an HTTP error.
func (h *Handler) DeviceAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req DeviceActionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)

		return
	}

	var target domain.ReactiveState

	switch req.Action {
	case string(domain.ActionArm):
		target = domain.Armed
	case string(domain.ActionDisarm):
		target = domain.Disarmed
	default:
		writeError(w, http.StatusBadRequest, "action must be arm or disarm", nil)

		return
	}

	result, err := h.operator.Apply(ctx, req.BuildingID, target)
	if err != nil {
		logger.ErrorKV(ctx, "Bulk action failed", "building_id", req.BuildingID, "action", req.Action, "error", err)

		writeJSON(w, http.StatusOK, DeviceActionSummaryResponse{
			FailureCount: 1,
			Details: []ActionDetail{{
				BuildingID: req.BuildingID,
				Status:     "Failure",
				Message:    err.Error(),
			}},
		})

		return
	}

	if result.Affected == 0 {
		logger.WarnKV(ctx, "No proevents updated", "building_id", req.BuildingID, "action", req.Action)
	}

	writeJSON(w, http.StatusOK, DeviceActionSummaryResponse{
		SuccessCount: result.Affected,
		Details: []ActionDetail{{
			BuildingID: req.BuildingID,
			Status:     "Success",
			Message:    fmt.Sprintf("Updated %d proevents", result.Affected),
		}},
	})
}

// GetBuildingTime returns a building's stored schedule.
func (h *Handler) GetBuildingTime(w http.ResponseWriter, r *http.Request) {
	buildingID, ok := pathID(w, r)
	if !ok {
		return
	}

	out := BuildingTime{BuildingID: buildingID}

	stored, err := h.schedules.StoredWindow(r.Context(), buildingID)
	switch {
	case err == nil:
		out.StartTime = &stored.Start

		if stored.End != "" {
			out.EndTime = &stored.End
		}
	case errors.Is(err, schedule.ErrNotFound):
	default:
		logger.ErrorKV(r.Context(), "Failed to read building schedule", "building_id", buildingID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read building schedule", err)

		return
	}

	writeJSON(w, http.StatusOK, out)
}

// SetBuildingTime stores a building's schedule and re-evaluates the building.
func (h *Handler) SetBuildingTime(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	buildingID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req BuildingTimeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)

		return
	}

	if req.BuildingID != buildingID {
		writeError(w, http.StatusBadRequest, "building ID in path and body must match", nil)

		return
	}

	if req.EndTime != "" {
		if _, err := domain.ParseWindow(req.StartTime, req.EndTime); err != nil {
			writeError(w, http.StatusBadRequest, "invalid schedule", err)

			return
		}
	}

	if err := h.schedules.SetWindow(ctx, buildingID, req.StartTime, req.EndTime); err != nil {
		if errors.Is(err, domain.ErrInvalidClock) {
			writeError(w, http.StatusBadRequest, "invalid schedule", err)

			return
		}

		logger.ErrorKV(ctx, "Failed to store building schedule", "building_id", buildingID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update building scheduled time", err)

		return
	}

	logger.InfoKV(ctx, "Building schedule updated",
		"building_id", buildingID,
		"start", req.StartTime,
		"end", req.EndTime,
	)

	if _, err := h.reevaluator.ReconcileOne(ctx, buildingID); err != nil {
		logger.WarnKV(ctx, "Re-evaluation after schedule change failed", "building_id", buildingID, "error", err)
	}

	out := BuildingTimeResponse{
		BuildingID: buildingID,
		StartTime:  req.StartTime,
		Updated:    true,
	}

	if req.EndTime != "" {
		out.EndTime = &req.EndTime
	}

	writeJSON(w, http.StatusOK, out)
}

// Reevaluate reconciles one building synchronously.
func (h *Handler) Reevaluate(w http.ResponseWriter, r *http.Request) {
	buildingID, ok := pathID(w, r)
	if !ok {
		return
	}

	result, err := h.reevaluator.ReconcileOne(r.Context(), buildingID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, inventory.ErrBuildingNotFound) {
			status = http.StatusNotFound
		}

		writeError(w, status, "failed to re-evaluate building", err)

		return
	}

	writeJSON(w, http.StatusOK, ReevaluateResponse{
		Status:   "success",
		Message:  fmt.Sprintf("Building %d re-evaluated.", buildingID),
		Action:   string(result.Action),
		Affected: result.Affected,
		Notified: result.Notified,
		Skipped:  string(result.Skipped),
	})
}

// History returns the most recent state changes of a building.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	buildingID, ok := pathID(w, r)
	if !ok {
		return
	}

	limit := defaultHistoryLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error

		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxHistoryLimit {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit), err)

			return
		}
	}

	entries, err := h.schedules.History(r.Context(), buildingID, limit)
	if err != nil {
		logger.ErrorKV(r.Context(), "Failed to read state history", "building_id", buildingID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read state history", err)

		return
	}

	out := make([]HistoryEntryOut, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryOut(e))
	}

	writeJSON(w, http.StatusOK, out)
}

// IgnoreBulk stores exception rules and re-evaluates every touched building.
func (h *Handler) IgnoreBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req IgnoredItemBulkRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)

		return
	}

	touched := make([]int64, 0, len(req.Items))

	for _, item := range req.Items {
		err := h.schedules.UpsertException(ctx, domain.ExceptionRule{
			PointID:        item.ItemID,
			BuildingID:     item.BuildingFrk,
			DeviceID:       item.DevicePrk,
			IgnoreOnArm:    item.IgnoreOnArm,
			IgnoreOnDisarm: item.IgnoreOnDisarm,
		})
		if err != nil {
			logger.ErrorKV(ctx, "Failed to store exception rule", "proevent_id", item.ItemID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to store exception rule", err)

			return
		}

		if !slices.Contains(touched, item.BuildingFrk) {
			touched = append(touched, item.BuildingFrk)
		}
	}

	slices.Sort(touched)

	for _, buildingID := range touched {
		if _, err := h.reevaluator.ReconcileOne(ctx, buildingID); err != nil {
			logger.WarnKV(ctx, "Re-evaluation after exception change failed", "building_id", buildingID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, IgnoreBulkResponse{
		Status:      "success",
		Updated:     len(req.Items),
		Reevaluated: touched,
	})
}

// Health pings the inventory and the schedule store.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.inventory.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: "inventory: " + err.Error()})

		return
	}

	if err := h.schedules.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: "schedule store: " + err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid building ID", err)

		return 0, false
	}

	return id, true
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}

	writeJSON(w, status, resp)
}
