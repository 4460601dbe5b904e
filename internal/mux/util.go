package mux

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"cardroom-server/pkg/ledger"
	"cardroom-server/pkg/poker/engine"
)

func decodeRequest(w http.ResponseWriter, r *http.Request, payload interface{}) bool {
	if ct := r.Header.Get("Content-Type"); ct != "application/json" && ct != "text/json" {
		writeJSONError(w, http.StatusUnsupportedMediaType, nil)
		return false
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("could not write JSON response")
	}
}

type errorResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// writeEngineError maps the engine error taxonomy onto HTTP status codes
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrHandNotFound),
		errors.Is(err, engine.ErrTableNotFound),
		errors.Is(err, ledger.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err)
	case errors.Is(err, engine.ErrSeatNotFound):
		writeJSONError(w, http.StatusForbidden, err)
	case errors.Is(err, engine.ErrNotYourTurn),
		errors.Is(err, engine.ErrAlreadyActed),
		errors.Is(err, engine.ErrHandComplete),
		errors.Is(err, engine.ErrHandInProgress),
		errors.Is(err, engine.ErrNotEnoughPlayers):
		writeJSONError(w, http.StatusConflict, err)
	case errors.Is(err, engine.ErrInvalidAmount):
		writeJSONError(w, http.StatusBadRequest, err)
	default:
		writeJSONError(w, http.StatusInternalServerError, err)
	}
}

func writeJSONError(w http.ResponseWriter, statusCode int, err error) {
	var msg string

	if statusCode < 500 && err != nil {
		msg = err.Error()
	} else {
		msg = http.StatusText(statusCode)
	}

	if statusCode >= 500 {
		logrus.WithField("statusCode", statusCode).Error(err)
	}

	writeJSON(w, statusCode, errorResponse{
		Message:    msg,
		StatusCode: statusCode,
	})
}
