package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sterlingconwell/courier-react/internal/messages"
)

// maxPageSize caps the limit a caller may request per page or list.
const maxPageSize = 100

// CountResponse is the unread/total count response.
type CountResponse struct {
	Count int `json:"count"`
}

// ListsRequest is the body of POST /api/v1/lists.
type ListsRequest struct {
	Lists []messages.ListSpec `json:"lists"`
	Limit int                 `json:"limit,omitempty"`
}

// ListsResponse holds one page per requested list. Order preserves the
// request order of ids.
type ListsResponse struct {
	Lists map[string]messages.Page `json:"lists"`
	Order []string                 `json:"order"`
}

// WatchStatusResponse represents unread watcher status.
type WatchStatusResponse struct {
	Enabled bool         `json:"enabled"`
	Status  *WatchStatus `json:"status,omitempty"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

func writeUnconfigured(w http.ResponseWriter) {
	writeError(w, http.StatusServiceUnavailable, "client_unconfigured",
		"Inbox client not configured; set [client] credentials in config.toml")
}

// isBadListInput reports whether err came from rejecting list specs.
func isBadListInput(err error) bool {
	return errors.Is(err, messages.ErrInvalidListID) ||
		errors.Is(err, messages.ErrDuplicateListID) ||
		errors.Is(err, messages.ErrNoLists)
}

// writeUpstreamError maps a client error to a response.
func (s *Server) writeUpstreamError(w http.ResponseWriter, op string, err error) {
	if isBadListInput(err) {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	s.logger.Error("inbox query failed", "operation", op, "error", err)
	writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
}

// bound reports whether the gateway has a usable client.
func (s *Server) bound() bool {
	return s.client != nil && s.client.Bound()
}

// parseFilters reads account_id, tags (comma separated), from (epoch ms)
// and is_read from the query string.
func parseFilters(r *http.Request) (messages.FilterParams, error) {
	q := r.URL.Query()
	f := messages.FilterParams{AccountID: q.Get("account_id")}

	if raw := q.Get("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				f.Tags = append(f.Tags, tag)
			}
		}
	}
	if raw := q.Get("from"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms < 0 {
			return f, fmt.Errorf("from must be epoch milliseconds, got %q", raw)
		}
		f.From = &ms
	}
	if raw := q.Get("is_read"); raw != "" {
		read, err := strconv.ParseBool(raw)
		if err != nil {
			return f, fmt.Errorf("is_read must be a boolean, got %q", raw)
		}
		f.IsRead = &read
	}
	return f, nil
}

// parseLimit reads the limit query parameter. Zero means unset.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", raw)
	}
	return min(n, maxPageSize), nil
}

// handleMessageCount returns the number of messages matching the filters.
func (s *Server) handleMessageCount(w http.ResponseWriter, r *http.Request) {
	if !s.bound() {
		writeUnconfigured(w)
		return
	}

	filters, err := parseFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	var params *messages.FilterParams
	if !filters.IsZero() {
		params = &filters
	}

	res, err := s.client.MessageCount(r.Context(), params)
	if err != nil {
		s.writeUpstreamError(w, messages.OpMessageCount, err)
		return
	}
	n, ok := res.Get()
	if !ok {
		writeUnconfigured(w)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// handleMessages returns one page of messages. Pass the previous page's
// startCursor as after to continue.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if !s.bound() {
		writeUnconfigured(w)
		return
	}

	filters, err := parseFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	params := &messages.MessageParams{FilterParams: filters, Limit: limit}
	res, err := s.client.Messages(r.Context(), params, r.URL.Query().Get("after"))
	if err != nil {
		s.writeUpstreamError(w, messages.OpGetMessages, err)
		return
	}
	page, ok := res.Get()
	if !ok {
		writeUnconfigured(w)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleTabLists fetches every configured tab in one batch.
func (s *Server) handleTabLists(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if limit == 0 {
		limit = s.cfg.Inbox.PageSize
	}
	s.serveLists(w, r, s.cfg.ListSpecs(), limit)
}

// handleMessageLists fetches caller-defined lists in one batch.
func (s *Server) handleMessageLists(w http.ResponseWriter, r *http.Request) {
	var req ListsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body: "+err.Error())
		return
	}
	if req.Limit < 0 || req.Limit > maxPageSize {
		writeError(w, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("limit must be between 1 and %d", maxPageSize))
		return
	}
	s.serveLists(w, r, req.Lists, req.Limit)
}

func (s *Server) serveLists(w http.ResponseWriter, r *http.Request, specs []messages.ListSpec, limit int) {
	if len(specs) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", messages.ErrNoLists.Error())
		return
	}
	if err := messages.ValidateListSpecs(specs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !s.bound() {
		writeUnconfigured(w)
		return
	}

	res, err := s.client.MessageLists(r.Context(), specs, limit)
	if err != nil {
		s.writeUpstreamError(w, messages.OpGetMessageLists, err)
		return
	}
	lists, ok := res.Get()
	if !ok {
		writeUnconfigured(w)
		return
	}

	order := make([]string, len(specs))
	for i, spec := range specs {
		order[i] = spec.ID
	}
	writeJSON(w, http.StatusOK, ListsResponse{Lists: lists, Order: order})
}

// handleWatchStatus returns the unread watcher state.
func (s *Server) handleWatchStatus(w http.ResponseWriter, r *http.Request) {
	if s.watcher == nil {
		writeJSON(w, http.StatusOK, WatchStatusResponse{Enabled: false})
		return
	}
	st := s.watcher.Status()
	writeJSON(w, http.StatusOK, WatchStatusResponse{Enabled: true, Status: &st})
}

// handleWatchTrigger starts an unread poll immediately.
func (s *Server) handleWatchTrigger(w http.ResponseWriter, r *http.Request) {
	if s.watcher == nil {
		writeError(w, http.StatusServiceUnavailable, "watcher_unavailable", "Unread watcher is not running")
		return
	}
	if err := s.watcher.Trigger(); err != nil {
		writeError(w, http.StatusConflict, "watch_conflict", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
