package httpapi

import (
	"net/http"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/domain"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/store"
)

type JobsHandler struct {
	Store store.Store
}

// List returns the persisted snapshot, optionally filtered by ?status= and ?q=.
func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	if status != "" {
		if _, err := domain.ParseStatus(status); err != nil {
			WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}

	records, err := h.Store.ReadAll(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusServiceUnavailable, "store_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, store.Filter(records, store.Query{Status: status, Q: q.Get("q")}))
}
