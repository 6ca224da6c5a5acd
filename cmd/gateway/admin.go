package main

import (
	"encoding/json"
	"net/http"

	"edge-proxy/middleware/ratelimit/infra"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type statsResponse struct {
	Total    infra.Counters            `json:"total"`
	ByRoute  map[string]infra.Counters `json:"by_route"`
	ByOrigin map[string]infra.Counters `json:"by_origin"`
	ByKey    map[string]infra.Counters `json:"by_key,omitempty"`
	Clients  int                       `json:"clients"`

	// InFlight e Capacity ficam em -1 sem limite de concorrência.
	InFlight int `json:"in_flight"`
	Capacity int `json:"capacity"`
}

// adminRouter expõe saúde, métricas e estatísticas do rate limit. Fica em um
// listener separado do endpoint público.
func adminRouter(gatherer prometheus.Gatherer, stats *infra.MemoryStatsStore, window *infra.MemoryWindowStore, pool *infra.ChanPool) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	router.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		resp := statsResponse{
			Total:    stats.Total(),
			ByRoute:  stats.ByRoute(),
			ByOrigin: stats.ByOrigin(),
			ByKey:    stats.ByKey(),
			Clients:  -1,
			InFlight: -1,
			Capacity: -1,
		}
		if window != nil {
			resp.Clients = window.Len()
		}
		if pool != nil {
			resp.InFlight = pool.InFlight()
			resp.Capacity = pool.Cap()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}).Methods(http.MethodGet)

	return router
}
