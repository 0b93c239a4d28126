package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"envelope/internal/core"
)

// userHeader identifies the acting user. Authentication happens upstream;
// the API trusts the header the gateway sets.
const userHeader = "X-User-ID"

type userHandler func(w http.ResponseWriter, r *http.Request, userID int64)

// withUser rejects requests without a usable user id before the handler runs.
func (s *Server) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(userHeader))
		if raw == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing " + userHeader + " header"})
			return
		}
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID < 1 {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid " + userHeader + " header"})
			return
		}
		next(w, r, userID)
	}
}

// monthQuery parses the month query parameter, required on budget reads.
func monthQuery(r *http.Request) (core.Month, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("month"))
	if raw == "" {
		return "", fmt.Errorf("month query parameter is required: %w", core.ErrInvalidMonth)
	}
	return core.ParseMonth(raw)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q: %w", r.PathValue("id"), core.ErrNotFound)
	}
	return id, nil
}

// decodeJSON decodes a request body into dst, rejecting unknown fields and
// trailing garbage.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// writeBadRequest reports malformed request bodies.
func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}
