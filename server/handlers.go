package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agendex/agendex/batch"
	"github.com/agendex/agendex/docpipe"
	"github.com/agendex/agendex/extract"
	"github.com/agendex/agendex/inference"
	"github.com/agendex/agendex/observability"
	"github.com/agendex/agendex/store"
)

type parseResponse struct {
	Events     []extract.ParsedEvent `json:"events"`
	TokensUsed int                   `json:"tokens_used"`
	Stored     int                   `json:"stored"`
}

// handleParse extracts events from the request payload. Two content types
// are accepted: application/json with {"text": ..., "mode": ...}, and
// multipart/form-data with a "file" part plus an optional "mode" field.
// Results are persisted for the authenticated user unless persist=false.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	user := userID(r)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		result *extract.Result
		err    error
	)
	switch {
	case ct == "multipart/form-data":
		result, err = s.parseUpload(r, user)
	default:
		result, err = s.parseJSON(r, user)
	}
	if err != nil {
		s.writeParseError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordSimple(observability.MetricTokensUsed, float64(result.TokensUsed), "count")
		s.metrics.RecordSimple(observability.MetricEventsExtracted, float64(len(result.Events)), "count")
	}

	resp := parseResponse{Events: result.Events, TokensUsed: result.TokensUsed}
	if s.store != nil && r.URL.Query().Get("persist") != "false" {
		stored, err := s.store.InsertEvents(r.Context(), user, result.Events)
		if err != nil {
			s.logger.Error("persist failed", "error", err, "user", user)
			writeError(w, http.StatusInternalServerError, "events extracted but not stored")
			return
		}
		resp.Stored = len(stored)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) parseJSON(r *http.Request, user string) (*extract.Result, error) {
	var req struct {
		Text string `json:"text"`
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, &badRequestError{"invalid request body"}
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, &badRequestError{"text is required"}
	}
	return s.extractor.ParseText(r.Context(), user, req.Text, extract.ModeByName(req.Mode))
}

func (s *Server) parseUpload(r *http.Request, user string) (*extract.Result, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, &badRequestError{"file part is required"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, &badRequestError{"read upload: " + err.Error()}
	}

	mode := extract.ModeByName(r.FormValue("mode"))
	return s.extractor.ParseFile(r.Context(), user, header.Filename, data, mode)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	f := store.ListFilter{
		UserID: userID(r),
		From:   r.URL.Query().Get("from"),
		To:     r.URL.Query().Get("to"),
		Limit:  500,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			f.Limit = n
		}
	}
	for _, d := range []string{f.From, f.To} {
		if d != "" && !inference.ValidDate(d) {
			writeError(w, http.StatusBadRequest, "dates must be YYYY-MM-DD")
			return
		}
	}

	events, err := s.store.ListEvents(r.Context(), f)
	if err != nil {
		s.logger.Error("list events", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if events == nil {
		events = []store.StoredEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.DeleteEvent(r.Context(), userID(r), id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, "event not found")
	case err != nil:
		s.logger.Error("delete event", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

// writeParseError maps pipeline failures onto HTTP statuses.
func (s *Server) writeParseError(w http.ResponseWriter, err error) {
	var (
		br  *badRequestError
		tle *batch.TooLargeError
		mre *inference.MalformedResponseError
		re  *inference.RequestError
	)
	switch {
	case errors.As(err, &br):
		writeError(w, http.StatusBadRequest, br.msg)
	case errors.Is(err, extract.ErrEmptyDocument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, docpipe.ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.As(err, &tle), errors.Is(err, docpipe.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, extract.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &mre), errors.As(err, &re):
		s.logger.Error("engine failure", "error", err)
		writeError(w, http.StatusBadGateway, "extraction engine failed")
	default:
		s.logger.Error("parse failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
