package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ps-vitor/crous-notifier/internal/api/models"
	"github.com/ps-vitor/crous-notifier/internal/repositories"
	"github.com/ps-vitor/crous-notifier/internal/services/listing"
	"github.com/ps-vitor/crous-notifier/internal/services/runstate"
	"github.com/ps-vitor/crous-notifier/pkg/logger"
)

// APIHandler serves the read side: status, logs, listings and cities.
type APIHandler struct {
	listings *listing.Service
	state    *runstate.RunState
	interval time.Duration
	log      *logger.Logger
}

func NewAPIHandler(listings *listing.Service, state *runstate.RunState, interval time.Duration, log *logger.Logger) *APIHandler {
	return &APIHandler{listings: listings, state: state, interval: interval, log: log.Named("api")}
}

func (h *APIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/status", h.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/logs", h.handleLogs).Methods(http.MethodGet)
	r.HandleFunc("/listings", h.handleListings).Methods(http.MethodGet)
	r.HandleFunc("/listings/{id}", h.handleForget).Methods(http.MethodDelete)
	r.HandleFunc("/cities", h.handleCities).Methods(http.MethodGet)
}

func (h *APIHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.state.Snapshot()
	known, err := h.listings.KnownCount(r.Context())
	if err != nil {
		h.log.Warn("Could not count known listings", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, models.Status{
		Running:         snap.Running,
		CycleInFlight:   snap.CycleInFlight,
		LastCheck:       snap.LastCheck,
		ListingCount:    snap.ListingCount,
		NewSinceStart:   snap.NewSinceStart,
		KnownCount:      known,
		IntervalMinutes: int(h.interval / time.Minute),
	})
}

func (h *APIHandler) handleLogs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.LogsResponse{Logs: h.state.Logs()})
}

func (h *APIHandler) handleListings(w http.ResponseWriter, r *http.Request) {
	all, err := h.listings.FindAll(r.Context())
	if err != nil {
		h.log.Error("Could not load listings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load listings")
		return
	}
	writeJSON(w, http.StatusOK, models.ListingsResponse{Listings: models.NewListings(all)})
}

func (h *APIHandler) handleForget(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := h.listings.Forget(r.Context(), id)
	switch {
	case errors.Is(err, repositories.ErrListingNotFound):
		writeError(w, http.StatusNotFound, "listing not found")
	case err != nil:
		h.log.Error("Could not delete listing", zap.String("listing_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not delete listing")
	default:
		h.log.Info("Listing removed from known set", zap.String("listing_id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *APIHandler) handleCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.listings.Cities(r.Context())
	if errors.Is(err, listing.ErrCitiesUnavailable) {
		writeError(w, http.StatusNotImplemented, err.Error())
		return
	}
	if err != nil {
		h.log.Error("Could not list cities", zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not reach the listing site")
		return
	}
	writeJSON(w, http.StatusOK, models.CitiesResponse{Cities: cities})
}

// BasicAuth requires password on every request when it is non-empty. Any
// user name is accepted.
func BasicAuth(password string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if password == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, got, ok := r.BasicAuth()
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(password)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="CROUS Notifier"`)
				http.Error(w, "Authentication required.", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
