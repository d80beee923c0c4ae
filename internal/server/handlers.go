package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"licman/internal/history"
	"licman/internal/security"
	"licman/internal/supervisor"

	"github.com/go-chi/chi/v5"
)

// RecentEventsLimit is the number of events returned by the status endpoint.
const RecentEventsLimit = 10

// GroupState is the probed state of one process group.
type GroupState struct {
	Group       string          `json:"group"`
	State       string          `json:"state"`
	PID         int             `json:"pid,omitempty"`
	LatestEvent *history.Event  `json:"latest_event"`
	Recent      []history.Event `json:"recent_events,omitempty"`
}

func (s *Server) probe(g supervisor.Group) GroupState {
	st := supervisor.Probe(g.PIDPath, s.Alive)
	gs := GroupState{Group: g.Name, State: string(st.State)}
	if st.Running() {
		gs.PID = st.PID
	}
	return gs
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":      "ok",
		"groups":      s.Registry.List(),
		"group_count": s.Registry.Count(),
	}

	s.respondJSON(w, http.StatusOK, response)
}

// HandleStatusAll reports the state and latest event of every group.
func (s *Server) HandleStatusAll(w http.ResponseWriter, r *http.Request) {
	var latest map[string]*history.Event
	if s.History != nil {
		var err error
		latest, err = s.History.GetLatestByTarget(r.Context())
		if err != nil {
			s.Logger.Error("Failed to get latest events", "error", err)
			s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch group status"})
			return
		}
	}

	groups := make([]GroupState, 0, s.Registry.Count())
	for _, name := range s.Registry.List() {
		g, err := s.Registry.Get(name)
		if err != nil {
			continue
		}
		gs := s.probe(g)
		gs.LatestEvent = latest[name]
		groups = append(groups, gs)
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

// HandleStatus handles process group status requests
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "group")

	if err := security.ValidateGroupName(name); err != nil {
		s.Logger.Warn("Invalid group name in status request", "group", name, "error", err)
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid group name: %v", err)})
		return
	}

	g, err := s.Registry.Get(name)
	if err != nil {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "Unknown group"})
		return
	}

	gs := s.probe(g)

	if s.History != nil {
		gs.LatestEvent, err = s.History.GetLatestEvent(r.Context(), name)
		if err != nil {
			s.Logger.Error("Failed to get latest event", "error", err, "group", name)
			s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch group status"})
			return
		}

		gs.Recent, err = s.History.GetHistory(r.Context(), name, RecentEventsLimit)
		if err != nil {
			s.Logger.Error("Failed to get event history", "error", err, "group", name)
			s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch group status"})
			return
		}
	}

	s.respondJSON(w, http.StatusOK, gs)
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("Failed to encode JSON response", "error", err)
	}
}
