package adapthttp

import (
	"net/http"

	"habits/internal/app"
)

func (s *Server) handleHabitList(w http.ResponseWriter, r *http.Request) {
	items, err := s.habits.List(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleHabitCreate(w http.ResponseWriter, r *http.Request) {
	var in app.HabitInput
	if err := parseJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h, err := s.habits.Create(r.Context(), userFromContext(r.Context()).ID, in)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) handleHabitGet(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h, err := s.habits.Get(r.Context(), userFromContext(r.Context()).ID, id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleHabitUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var in app.HabitInput
	if err := parseJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h, err := s.habits.Update(r.Context(), userFromContext(r.Context()).ID, id, in)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleHabitDelete(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.habits.Delete(r.Context(), userFromContext(r.Context()).ID, id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
