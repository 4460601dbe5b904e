// Package mux exposes the engine over HTTP. All gameplay endpoints require
// a bearer JWT; the account ID in the token's subject is the acting player.
package mux

import (
	"context"
	"net/http"
	"strings"

	gmux "github.com/gorilla/mux"

	"cardroom-server/internal/jwt"
	"cardroom-server/pkg/events"
	"cardroom-server/pkg/poker/engine"
)

type ctxKey int

const ctxAccountKey ctxKey = iota

const uuidPattern = `(?i)[a-f0-9]{8}(?:-[a-f0-9]{4}){3}-[a-f0-9]{12}`

// Mux handles HTTP requests
type Mux struct {
	*gmux.Router
	engine  *engine.Engine
	hub     *events.Hub
	version string

	// store for testing purposes
	authRouter *gmux.Router
}

// NewMux returns a new HTTP mux
func NewMux(version string, eng *engine.Engine, hub *events.Hub) *Mux {
	this := &Mux{
		Router:  gmux.NewRouter(),
		engine:  eng,
		hub:     hub,
		version: version,
	}

	this.authRouter = this.Router.NewRoute().Subrouter()
	this.authRouter.Use(this.authMiddleware)

	// unauthorized endpoints
	{
		r := this.Router
		r.Methods(http.MethodGet).Path("/health").Handler(this.getHealth())
	}

	// requires bearer authorization
	{
		r := this.authRouter

		tr := r.PathPrefix("/table/{uuid:" + uuidPattern + "}").Subrouter()
		tr.Methods(http.MethodPost).Path("/hand").Handler(this.postTableUUIDHand())
		tr.Methods(http.MethodGet).Path("/can-start").Handler(this.getTableUUIDCanStart())
		tr.Methods(http.MethodGet).Path("/ws").Handler(this.getTableUUIDWS())

		hr := r.PathPrefix("/hand/{uuid:" + uuidPattern + "}").Subrouter()
		hr.Methods(http.MethodGet).Path("").Handler(this.getHandUUID())
		hr.Methods(http.MethodPost).Path("/action").Handler(this.postHandUUIDAction())
	}

	return this
}

func (m *Mux) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.FormValue("access_token")
		if token == "" {
			authHeader := strings.Split(r.Header.Get("Authorization"), " ")
			if len(authHeader) != 2 || strings.ToLower(authHeader[0]) != "bearer" {
				writeJSONError(w, http.StatusUnauthorized, nil)
				return
			}

			token = authHeader[1]
		}

		accountID, err := jwt.ValidAccountID(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, nil)
			return
		}

		ctx := context.WithValue(r.Context(), ctxAccountKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountID(r *http.Request) string {
	return r.Context().Value(ctxAccountKey).(string)
}
