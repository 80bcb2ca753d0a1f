// Package api exposes HTTP handlers for the activity service.
package api

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/SnowDream39/vocamap-backend/internal/domain"
	"github.com/SnowDream39/vocamap-backend/internal/geo"
	"github.com/SnowDream39/vocamap-backend/internal/persistence"
	"github.com/SnowDream39/vocamap-backend/internal/search"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	logger  *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// CreateActivityResponse describes the response body for create.
type CreateActivityResponse struct {
	ActivityID int64 `json:"activity_id"`
}

// ListActivitiesResponse packages a page of activities.
type ListActivitiesResponse struct {
	Items      []domain.ActivityView `json:"items"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

// TagIDsRequest carries tag ids to associate.
type TagIDsRequest struct {
	TagIDs []int64 `json:"tag_ids"`
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateActivityInput
	if err := decodeBody(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	id, err := h.service.CreateActivity(r.Context(), principal(r), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateActivityResponse{ActivityID: id})
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		h.writeDomainError(w, r, badRequest("invalid cursor"))
		return
	}

	views, next, err := h.service.ListActivities(r.Context(), cursor, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListActivitiesResponse{Items: views, NextCursor: persistence.EncodeCursor(next)})
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	view, err := h.service.GetActivity(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	var patch domain.ActivityPatch
	if err := decodeBody(r, &patch); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	view, err := h.service.UpdateActivity(r.Context(), principal(r), id, patch)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if err := h.service.DeleteActivity(r.Context(), principal(r), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) participants(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	users, err := h.service.Participants(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	h.participation(w, r, h.service.Join)
}

func (h *Handler) leave(w http.ResponseWriter, r *http.Request) {
	h.participation(w, r, h.service.Leave)
}

func (h *Handler) participation(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, activityID, userID int64) error) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if err := op(r.Context(), id, principal(r).UserID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addTags(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	var req TagIDsRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if err := h.service.AddTags(r.Context(), principal(r), id, req.TagIDs); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	var (
		criteria search.Criteria
		err      error
	)
	criteria.Keywords = search.SplitKeywords(r.URL.Query().Get("keywords"))
	if criteria.TagIDs, err = queryInt64List(r, "tag_ids"); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if criteria.MaxMemberGT, err = optionalInt(r, "max_member_gt"); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if criteria.MaxMemberLT, err = optionalInt(r, "max_member_lt"); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if criteria.TimeBegin, err = optionalTime(r, "time_begin"); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if criteria.TimeEnd, err = optionalTime(r, "time_end"); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.respondViews(w, r)(h.service.Search(r.Context(), criteria))
}

func (h *Handler) nearby(w http.ResponseWriter, r *http.Request) {
	lon, err := queryFloat(r, "lon")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	lat, err := queryFloat(r, "lat")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	distance, err := queryFloat(r, "distance")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.respondViews(w, r)(h.service.Nearby(r.Context(), geo.Point{Lon: lon, Lat: lat}, distance))
}

func (h *Handler) timePoint(w http.ResponseWriter, r *http.Request) {
	at, err := requiredTime(r, "at")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.respondViews(w, r)(h.service.ByTimePoint(r.Context(), at))
}

func (h *Handler) timePeriod(w http.ResponseWriter, r *http.Request) {
	start, err := requiredTime(r, "start_time")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	end, err := requiredTime(r, "end_time")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.respondViews(w, r)(h.service.ByTimePeriod(r.Context(), start, end))
}

func (h *Handler) byOwner(w http.ResponseWriter, r *http.Request) {
	userID, err := queryInt64(r, "user_id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.respondViews(w, r)(h.service.ActivitiesByOwner(r.Context(), userID))
}

func (h *Handler) byParticipant(w http.ResponseWriter, r *http.Request) {
	userID, err := queryInt64(r, "user_id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.respondViews(w, r)(h.service.ActivitiesByParticipant(r.Context(), userID))
}

func (h *Handler) byTag(w http.ResponseWriter, r *http.Request) {
	tagID, err := queryInt64(r, "tag_id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.respondViews(w, r)(h.service.ActivitiesByTag(r.Context(), tagID))
}

// respondViews writes a list result or the error that produced it.
func (h *Handler) respondViews(w http.ResponseWriter, r *http.Request) func([]domain.ActivityView, error) {
	return func(views []domain.ActivityView, err error) {
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}
