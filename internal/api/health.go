package api

import (
	"net/http"
	"time"

	"github.com/ngmaloney/weatherd/internal/models"
)

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	db := "ok"
	if err := h.deps.Store.Ping(r.Context()); err != nil {
		db = "unavailable"
	}
	writeJSON(w, http.StatusOK, models.ServiceHealth{Status: "ok", Time: time.Now().UTC(), DB: db})
}
