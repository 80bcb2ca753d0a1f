package api

import (
	"net/http"
	"strconv"

	"github.com/SnowDream39/vocamap-backend/internal/domain"
)

// TagResponse is the public form of a tag.
type TagResponse struct {
	ID   int64          `json:"id"`
	Type domain.TagType `json:"type"`
	Name string         `json:"name"`
}

// PopularTagResponse adds the number of activities carrying the tag.
type PopularTagResponse struct {
	TagResponse
	Activities int `json:"activities"`
}

// TagNameRequest is the body for tag creation.
type TagNameRequest struct {
	Name string `json:"name"`
}

func toTagResponse(t domain.Tag) TagResponse {
	return TagResponse{ID: t.ID, Type: t.Type, Name: t.Name}
}

func (h *Handler) categoryTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.CategoryTags(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, toTagResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) popularArtistTags(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeDomainError(w, r, badRequest("invalid limit parameter"))
			return
		}
		limit = parsed
	}

	usages, err := h.service.PopularArtistTags(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]PopularTagResponse, 0, len(usages))
	for _, u := range usages {
		out = append(out, PopularTagResponse{TagResponse: toTagResponse(u.Tag), Activities: u.Activities})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createArtistTag(w http.ResponseWriter, r *http.Request) {
	var req TagNameRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	tag, err := h.service.CreateArtistTag(r.Context(), req.Name)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTagResponse(tag))
}

func (h *Handler) createCategoryTag(w http.ResponseWriter, r *http.Request) {
	var req TagNameRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	tag, err := h.service.CreateCategoryTag(r.Context(), principal(r), req.Name)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTagResponse(tag))
}

func (h *Handler) deleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if err := h.service.DeleteTag(r.Context(), principal(r), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addUserTags(w http.ResponseWriter, r *http.Request) {
	var req TagIDsRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if err := h.service.AddUserTags(r.Context(), principal(r), req.TagIDs); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
