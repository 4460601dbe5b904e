package mux

import (
	"net/http"

	gmux "github.com/gorilla/mux"
)

func (m *Mux) getHandUUID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := m.engine.HandForAccount(r.Context(), gmux.Vars(r)["uuid"], accountID(r))
		if err != nil {
			writeEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, detail)
	}
}

type actionRequest struct {
	Action string `json:"action"`
	Amount int64  `json:"amount"`
}

func (m *Mux) postHandUUIDAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload actionRequest
		if !decodeRequest(w, r, &payload) {
			return
		}

		handUUID := gmux.Vars(r)["uuid"]
		account := accountID(r)
		ctx := r.Context()

		var outcome interface{}
		var err error
		switch payload.Action {
		case "fold":
			outcome, err = m.engine.Fold(ctx, handUUID, account)
		case "check":
			outcome, err = m.engine.Check(ctx, handUUID, account)
		case "call":
			outcome, err = m.engine.Call(ctx, handUUID, account)
		case "bet":
			outcome, err = m.engine.Bet(ctx, handUUID, account, payload.Amount)
		case "raise":
			outcome, err = m.engine.Raise(ctx, handUUID, account, payload.Amount)
		case "all_in":
			outcome, err = m.engine.AllIn(ctx, handUUID, account)
		default:
			writeJSONError(w, http.StatusBadRequest, nil)
			return
		}

		if err != nil {
			writeEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, outcome)
	}
}
