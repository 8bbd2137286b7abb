package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ps-vitor/crous-notifier/internal/api/handlers"
)

// NewRouter mounts the JSON endpoints under /api and metrics at /metrics,
// both behind basic auth when password is set. /health stays open.
func NewRouter(apiHandler *handlers.APIHandler, scrapingHandler *handlers.ScrapingHandler, metrics http.Handler, password string) *mux.Router {
	auth := handlers.BasicAuth(password)

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	sub := r.PathPrefix("/api").Subrouter()
	sub.Use(auth)
	apiHandler.RegisterRoutes(sub)
	scrapingHandler.RegisterRoutes(sub)

	if metrics != nil {
		r.Handle("/metrics", auth(metrics)).Methods(http.MethodGet)
	}
	return r
}
