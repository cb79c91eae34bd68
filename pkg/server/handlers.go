package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/memchat/pkg/chat"
	"github.com/kadirpekel/memchat/pkg/model"
)

// maxBodyBytes bounds POST /ask bodies.
const maxBodyBytes = 1 << 20

type askResponse struct {
	Provider  model.Provider `json:"provider"`
	Reply     string         `json:"reply"`
	SessionID *string        `json:"session_id"`
}

type modelsResponse struct {
	Provider model.Provider `json:"provider"`
	Models   []model.Info   `json:"models"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// writeServiceError maps service errors onto status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if chat.IsValidation(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	slog.Error("Request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", requestIDFrom(r.Context()),
		"error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "AI Server is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAskQuery(w http.ResponseWriter, r *http.Request) {
	req, err := askRequestFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.ask(w, r, req)
}

func (s *Server) handleAskJSON(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	s.ask(w, r, req)
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request, req chat.Request) {
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	res, err := s.chat.Ask(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := askResponse{Provider: res.Provider, Reply: res.Reply}
	if res.SessionID != "" {
		resp.SessionID = &res.SessionID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	name, models, err := s.chat.ListModels(r.Context(), r.URL.Query().Get("provider"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if models == nil {
		models = []model.Info{}
	}
	writeJSON(w, http.StatusOK, modelsResponse{Provider: name, Models: models})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.Purge(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// askRequestFromQuery reads the GET /ask parameters. Numeric overrides
// that are absent stay nil.
func askRequestFromQuery(q url.Values) (chat.Request, error) {
	req := chat.Request{
		Prompt:    q.Get("prompt"),
		Provider:  q.Get("provider"),
		SessionID: q.Get("session_id"),
		Memory:    q.Get("memory"),
	}

	var errs []error
	intParam := func(name string) *int {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			return nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be an integer, got %q", name, raw))
			return nil
		}
		return &v
	}

	req.MaxMessages = intParam("max_messages")
	req.KeepLast = intParam("keep_last")
	req.WindowSize = intParam("window_size")

	return req, errors.Join(errs...)
}
