package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/export"
)

// maxExportBody bounds the submission body; the overlay collection is
// the only part that can grow
const maxExportBody = 8 << 20

// handleExportSubmit serves POST /export
func (s *Server) handleExportSubmit(w http.ResponseWriter, r *http.Request) {
	var req export.Request

	body := http.MaxBytesReader(w, r.Body, maxExportBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	token, err := s.exports.Submit(req)
	if err != nil {
		if errors.Is(err, export.ErrCapacityExceeded) {
			if s.metrics != nil {
				s.metrics.ExportJobs.WithLabelValues("rejected").Inc()
			}
			http.Error(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// handleExportPoll serves HEAD /export?token=. The response is held
// back until the job finishes or the poll window elapses, so clients
// get an answer without hammering the endpoint.
func (s *Server) handleExportPoll(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}

	snap, err := s.exports.WaitReady(r.Context(), token, s.cfg.PollWait)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	switch snap.Status {
	case export.StatusReady:
		w.WriteHeader(http.StatusOK)
	case export.StatusFailed:
		w.WriteHeader(http.StatusInternalServerError)
	default:
		retry := int(s.cfg.PollWait.Seconds())
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleExportFetch serves GET /export?token=
func (s *Server) handleExportFetch(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}

	data, contentType, err := s.exports.Result(token)
	if err != nil {
		switch {
		case errors.Is(err, export.ErrNotFound):
			http.NotFound(w, r)
		case errors.Is(err, export.ErrNotReady):
			http.Error(w, "export not ready", http.StatusConflict)
		case errors.Is(err, export.ErrRenderFailed):
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			s.log.Error("export fetch failure", zap.String("token", token), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	ext := "png"
	if contentType == "image/jpeg" {
		ext = "jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="export.%s"`, ext))
	w.Write(data)
}

// handleExportDelete serves DELETE /export?token=
func (s *Server) handleExportDelete(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}

	if err := s.exports.Delete(token); err != nil {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
