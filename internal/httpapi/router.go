package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	hh := HealthHandler{Backend: d.Store.Name()}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Snapshot
	jh := JobsHandler{Store: d.Store}
	mux.HandleFunc("/api/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.List,
	}))

	// Scrape
	sch := ScrapeHandler{Poller: d.Poller, Timeout: d.ScrapeTimeout}
	mux.HandleFunc("/api/scrape", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sch.Run,
	}))
	mux.HandleFunc("/api/scrape/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sch.Status,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	if d.CfgVal != nil {
		ch := ConfigHandler{
			CfgVal:      d.CfgVal,
			UserCfgPath: d.UserCfgPath,
			LoadCfg:     d.LoadCfg,
		}
		mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
			http.MethodGet: ch.Get,
			http.MethodPut: ch.Put,
		}))
		mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
			http.MethodGet: ch.Path,
		}))
		mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
			http.MethodGet: ch.Validate,
		}))

		// Secrets (use cfgVal, NOT a snapshot cfg)
		sh := SecretsHandler{CfgVal: d.CfgVal}
		mux.HandleFunc("/api/secrets/store", methodMux(map[string]http.HandlerFunc{
			http.MethodPost: sh.SetStorePassword,
		}))
	}

	return mux
}

// NewHandler wraps the mux in the standard middleware chain.
func NewHandler(d Deps) http.Handler {
	return Chain(NewMux(d), RequestID, Recover, AccessLog, Cors)
}
