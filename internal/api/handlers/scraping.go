// internal/api/handlers/scraping.go

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ps-vitor/crous-notifier/internal/api/models"
	"github.com/ps-vitor/crous-notifier/internal/services/scheduler"
	"github.com/ps-vitor/crous-notifier/pkg/logger"
)

// Controller drives the polling loop.
type Controller interface {
	Start(interval time.Duration) error
	Stop() error
	CheckNow() bool
}

type ScrapingHandler struct {
	controller Controller
	interval   time.Duration
	log        *logger.Logger
}

func NewScrapingHandler(controller Controller, interval time.Duration, log *logger.Logger) *ScrapingHandler {
	return &ScrapingHandler{controller: controller, interval: interval, log: log.Named("api")}
}

func (h *ScrapingHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/start", h.HandleStart).Methods(http.MethodPost)
	r.HandleFunc("/stop", h.HandleStop).Methods(http.MethodPost)
	r.HandleFunc("/check-now", h.HandleCheckNow).Methods(http.MethodPost)
}

func (h *ScrapingHandler) HandleStart(w http.ResponseWriter, _ *http.Request) {
	if err := h.controller.Start(h.interval); err != nil {
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "Notifier is already running.")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.log.Info("Notifier started", zap.Duration("interval", h.interval))
	writeJSON(w, http.StatusOK, models.Message{Message: "Notifier started."})
}

func (h *ScrapingHandler) HandleStop(w http.ResponseWriter, _ *http.Request) {
	if err := h.controller.Stop(); err != nil {
		if errors.Is(err, scheduler.ErrNotRunning) {
			writeError(w, http.StatusConflict, "Notifier is not running.")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.log.Info("Notifier stopped")
	writeJSON(w, http.StatusOK, models.Message{Message: "Notifier stopped."})
}

func (h *ScrapingHandler) HandleCheckNow(w http.ResponseWriter, _ *http.Request) {
	if !h.controller.CheckNow() {
		writeError(w, http.StatusConflict, "A check is already in progress.")
		return
	}
	writeJSON(w, http.StatusAccepted, models.Message{Message: "Manual check triggered."})
}
