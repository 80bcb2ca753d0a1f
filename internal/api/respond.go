package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SnowDream39/vocamap-backend/internal/auth"
	"github.com/SnowDream39/vocamap-backend/internal/domain"
)

const maxBodyBytes = 1 << 20

// requestError reports a malformed request. It maps to 400.
type requestError struct{ detail string }

func (e *requestError) Error() string { return e.detail }

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

var kindStatus = map[domain.Kind]int{
	domain.KindNotFound:   http.StatusNotFound,
	domain.KindForbidden:  http.StatusForbidden,
	domain.KindConflict:   http.StatusConflict,
	domain.KindValidation: http.StatusUnprocessableEntity,
}

// writeDomainError maps a service error to its HTTP status. Unclassified
// errors are logged and reported without detail.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		writeError(w, http.StatusBadRequest, "invalid_request", reqErr.detail)
		return
	}
	kind := domain.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, string(domain.KindInternal), "internal server error")
		return
	}
	writeError(w, status, string(kind), domain.SafeMessage(err))
}

func badRequest(format string, args ...any) error {
	return &requestError{detail: fmt.Sprintf(format, args...)}
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return badRequest("unable to parse body")
	}
	return nil
}

func principal(r *http.Request) domain.Principal {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		return domain.Principal{}
	}
	return claims.Principal()
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

func queryInt64(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, badRequest("missing %s parameter", name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, badRequest("invalid %s parameter", name)
	}
	return v, nil
}

func queryFloat(r *http.Request, name string) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, badRequest("missing %s parameter", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, badRequest("invalid %s parameter", name)
	}
	return v, nil
}

func optionalInt(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, badRequest("invalid %s parameter", name)
	}
	return &v, nil
}

// timeLayouts accepts RFC 3339 and zone-less timestamps, the latter read as UTC.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

func parseTime(raw string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func optionalTime(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	t, ok := parseTime(raw)
	if !ok {
		return nil, badRequest("invalid %s parameter", name)
	}
	return &t, nil
}

func requiredTime(r *http.Request, name string) (time.Time, error) {
	t, err := optionalTime(r, name)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return time.Time{}, badRequest("missing %s parameter", name)
	}
	return *t, nil
}

// queryInt64List reads repeated and comma-separated values of name.
func queryInt64List(r *http.Request, name string) ([]int64, error) {
	var out []int64
	for _, raw := range r.URL.Query()[name] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, badRequest("invalid %s parameter", name)
			}
			out = append(out, v)
		}
	}
	return out, nil
}
