package mux

import (
	"net/http"

	gmux "github.com/gorilla/mux"
)

func (m *Mux) postTableUUIDHand() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hand, err := m.engine.StartHand(r.Context(), gmux.Vars(r)["uuid"])
		if err != nil {
			writeEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, hand)
	}
}

type canStartResponse struct {
	CanStart bool `json:"canStart"`
}

func (m *Mux) getTableUUIDCanStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		canStart, err := m.engine.CanStartHand(r.Context(), gmux.Vars(r)["uuid"])
		if err != nil {
			writeEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, canStartResponse{CanStart: canStart})
	}
}
