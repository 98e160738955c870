package adapthttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"habits/internal/card"
	"habits/internal/domain"
)

type mutation func(ctx context.Context, userID int64, habitID uuid.UUID) (card.Snapshot, bool, error)

// handleCard returns the card, re-anchoring it first when ?day= is given.
func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	userID := userFromContext(r.Context()).ID

	var snap card.Snapshot
	if day := r.URL.Query().Get("day"); day != "" {
		d, perr := domain.ParseDay(day)
		if perr != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid day: %w", perr))
			return
		}
		snap, err = s.cards.JumpTo(r.Context(), userID, id, d)
	} else {
		snap, err = s.cards.Card(r.Context(), userID, id)
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCardShift(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body struct {
		Direction string `json:"direction"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dir, err := card.ParseDirection(body.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snap, err := s.cards.Shift(r.Context(), userFromContext(r.Context()).ID, id, dir)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCardJump(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body struct {
		Day string `json:"day"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	day, err := domain.ParseDay(body.Day)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid day: %w", err))
		return
	}
	snap, err := s.cards.JumpTo(r.Context(), userFromContext(r.Context()).ID, id, day)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCardMutation(op mutation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := habitID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		snap, changed, err := op(r.Context(), userFromContext(r.Context()).ID, id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"changed": changed, "card": snap})
	}
}

// handleCardRandomize redraws the last day, or the whole window with
// {"scope": "window"}.
func (s *Server) handleCardRandomize(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body struct {
		Scope string `json:"scope"`
	}
	if r.ContentLength != 0 {
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	userID := userFromContext(r.Context()).ID

	switch body.Scope {
	case "", "day":
		s.handleCardMutation(s.cards.Randomize)(w, r)
	case "window":
		snap, n, err := s.cards.RandomizeWindow(r.Context(), userID, id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"changed": n > 0, "stored": n, "card": snap})
	default:
		writeError(w, http.StatusBadRequest, errors.New(`scope must be "day" or "window"`))
	}
}

func (s *Server) handleCardGrid(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fw := s.cards.FirstWeekday()
	if v := r.URL.Query().Get("first_weekday"); v != "" {
		if fw, err = card.ParseWeekday(v); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	g, err := s.cards.Grid(r.Context(), userFromContext(r.Context()).ID, id, fw)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleCardHistory(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	days := intQuery(r, "days", card.WindowDays)
	points, err := s.cards.History(r.Context(), userFromContext(r.Context()).ID, id, days)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": len(points), "points": points})
}
