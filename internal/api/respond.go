// Package api implements the read-oriented HTTP surface of spec §4.8/§6:
// route registration over gorilla/mux, shared JSON envelope helpers, and
// the central error-to-response mapping of spec §7. The router-over-mux
// shape (plain http.HandlerFunc per route, mux.Vars for path parameters)
// is grounded on the REST storage backend other_examples contributed for
// this pack (chrissnell-remoteweather's storage/rest_server.go).
package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ngmaloney/weatherd/internal/werrors"
)

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorEnvelope is the stable failure shape of spec §7: a client-branchable
// token plus an optional human message.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError maps err to a status code and token per spec §7's taxonomy and
// writes the envelope. logger records anything at Unexpected/StorageFailure
// severity with request context.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error, fallbackToken string) {
	werr, ok := werrors.As(err)
	if !ok {
		logger.Error("unexpected failure", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{Error: fallbackToken})
		return
	}

	status, token := http.StatusInternalServerError, werr.Token
	switch werr.Kind {
	case werrors.Validation:
		status = http.StatusBadRequest
	case werrors.NotFound:
		status = http.StatusNotFound
	case werrors.UpstreamTransient, werrors.BreakerOpen:
		status = http.StatusServiceUnavailable
	case werrors.UpstreamPermanent:
		status = http.StatusBadGateway
	case werrors.StorageFailure:
		status = http.StatusInternalServerError
		logger.Error("storage failure serving request", zap.Error(werr))
		writeJSON(w, status, errorEnvelope{Error: fallbackToken})
		return
	default:
		logger.Error("unexpected failure serving request", zap.Error(werr))
	}
	writeJSON(w, status, errorEnvelope{Error: token, Message: werr.Message})
}

func badRequest(w http.ResponseWriter, token, message string) {
	writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: token, Message: message})
}

func notFound(w http.ResponseWriter, token string) {
	writeJSON(w, http.StatusNotFound, errorEnvelope{Error: token})
}
