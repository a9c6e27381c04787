package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mrcode/nursery-advisor/internal/activitylog"
	"github.com/mrcode/nursery-advisor/internal/models"
	"github.com/mrcode/nursery-advisor/internal/tray"
)

// defaultListWindow is the range served when a list request names no bounds
const defaultListWindow = 24 * time.Hour

// maxBodyBytes bounds activity uploads
const maxBodyBytes = 1 << 20

func (s *Server) handleNextAction(w http.ResponseWriter, r *http.Request) {
	result, err := s.backend.NextAction(r.Context())
	if err != nil {
		s.logger.Error("next action failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	sched, err := s.backend.Schedule(r.Context())
	if err != nil {
		s.logger.Error("schedule failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	sched, err := s.backend.Schedule(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	png, err := tray.RenderTimeline(s.settings, *sched, s.settings.Location())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writePNG(w, png)
}

func (s *Server) handleIcon(w http.ResponseWriter, _ *http.Request) {
	png, err := s.badge.Current(false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writePNG(w, png)
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	to := time.Now()
	from := to.Add(-defaultListWindow)

	q := r.URL.Query()
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to: want RFC3339")
			return
		}
		to = t
		if q.Get("from") == "" {
			from = to.Add(-defaultListWindow)
		}
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from: want RFC3339")
			return
		}
		from = t
	}
	if from.After(to) {
		writeError(w, http.StatusBadRequest, "from is after to")
		return
	}

	records, err := s.backend.Activities(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if records == nil {
		records = []models.ActivityRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAddActivity(w http.ResponseWriter, r *http.Request) {
	var rec models.ActivityRecord
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity: "+err.Error())
		return
	}

	stored, err := s.backend.AddActivity(r.Context(), rec)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.backend.DeleteActivity(r.Context(), id)
	if errors.Is(err, activitylog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}
