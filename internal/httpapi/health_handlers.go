package httpapi

import (
	"net/http"
	"time"
)

type HealthHandler struct {
	Backend string
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"store": h.Backend,
		"time":  time.Now().UTC().Format(time.RFC3339),
	})
}
