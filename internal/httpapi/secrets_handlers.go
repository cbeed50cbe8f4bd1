package httpapi

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/config"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

// SetStorePassword saves the snapshot store password in the OS keychain.
func (h SecretsHandler) SetStorePassword(w http.ResponseWriter, r *http.Request) {
	var req setStorePasswordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.SetStorePassword(secrets.StoreKeyringAccount(cfg.Store.Backend), req.Password); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "failed to store password: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
