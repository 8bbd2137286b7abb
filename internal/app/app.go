// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ps-vitor/crous-notifier/internal/adapters/backup"
	"github.com/ps-vitor/crous-notifier/internal/adapters/email"
	"github.com/ps-vitor/crous-notifier/internal/adapters/telegram"
	"github.com/ps-vitor/crous-notifier/internal/api"
	"github.com/ps-vitor/crous-notifier/internal/api/handlers"
	"github.com/ps-vitor/crous-notifier/internal/config"
	"github.com/ps-vitor/crous-notifier/internal/notifier"
	"github.com/ps-vitor/crous-notifier/internal/platform/metrics"
	"github.com/ps-vitor/crous-notifier/internal/repositories"
	"github.com/ps-vitor/crous-notifier/internal/scraping/collectors/crous"
	"github.com/ps-vitor/crous-notifier/internal/services/listing"
	"github.com/ps-vitor/crous-notifier/internal/services/runstate"
	"github.com/ps-vitor/crous-notifier/internal/services/scheduler"
	"github.com/ps-vitor/crous-notifier/internal/services/scraping"
	"github.com/ps-vitor/crous-notifier/internal/session"
	"github.com/ps-vitor/crous-notifier/pkg/logger"
)

// App holds the wired components shared by the binaries.
type App struct {
	Config    *config.Config
	Log       *logger.Logger
	State     *runstate.RunState
	Metrics   *metrics.Metrics
	Collector *crous.Collector
	Pipeline  *scraping.ScraperService
	Scheduler *scheduler.Scheduler
	Listings  *listing.Service

	closers []func() error
}

// New builds every component from cfg. The notification channel is only
// required when withChannel is true.
func New(ctx context.Context, cfg *config.Config, withChannel bool) (*App, error) {
	state := runstate.New(runstate.DefaultLogCapacity)
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}).
		WithHooks(state.Hook).
		With(zap.String("app", cfg.App.Name))

	a := &App{
		Config:  cfg,
		Log:     log,
		State:   state,
		Metrics: metrics.New(strings.ReplaceAll(cfg.App.Name, "-", "_")),
	}

	var dispatcher *notifier.Dispatcher
	if withChannel {
		if err := cfg.ValidateChannel(); err != nil {
			return nil, err
		}
		channel, err := newChannel(cfg)
		if err != nil {
			return nil, err
		}
		dispatcher = notifier.NewDispatcher(channel, log)
	}

	mirror := a.newMirror(ctx)
	repo := repositories.NewJSONFileRepository(ctx, cfg.State.File, mirror, log)

	var cookies crous.CookieSource
	if cfg.Scraping.UseAuth {
		cookies = session.NewStore(cfg.Scraping.CookiesFile, cfg.Scraping.CookiesJSON)
	}
	var alerter crous.Alerter
	if dispatcher != nil {
		alerter = dispatcher
	}
	a.Collector = crous.NewCollector(crous.Config{
		BaseURL:    cfg.Scraping.BaseURL,
		SearchPath: cfg.Scraping.SearchPath,
		UserAgent:  cfg.Scraping.UserAgent,
		UseAuth:    cfg.Scraping.UseAuth,
		Timeout:    time.Duration(cfg.Scraping.Timeout) * time.Second,
		MinDelay:   time.Duration(cfg.Scraping.MinDelayMS) * time.Millisecond,
		MaxDelay:   time.Duration(cfg.Scraping.MaxDelayMS) * time.Millisecond,
		Filter:     cfg.Filter(),
	}, cookies, alerter, log)

	a.Listings = listing.NewService(repo, a.Collector)
	if dispatcher != nil {
		a.Pipeline = scraping.NewScraperService(a.Collector, repo, dispatcher, state, a.Metrics, log)
		a.Scheduler = scheduler.New(a.Pipeline, state, log)
	}

	filter := cfg.Filter()
	log.Info("Notifier configured",
		zap.Strings("locations", filter.Locations),
		zap.String("max_price", cfg.Scraping.MaxPrice),
		zap.Bool("use_auth", cfg.Scraping.UseAuth),
		zap.Int("interval_minutes", cfg.App.CheckIntervalMinutes),
		zap.String("channel", cfg.Notify.Channel),
	)
	return a, nil
}

// Handler builds the control API router.
func (a *App) Handler() http.Handler {
	interval := a.Config.CheckInterval()
	return api.NewRouter(
		handlers.NewAPIHandler(a.Listings, a.State, interval, a.Log),
		handlers.NewScrapingHandler(a.Scheduler, interval, a.Log),
		a.Metrics.Handler(),
		a.Config.Web.Password,
	)
}

// Close releases external connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newChannel(cfg *config.Config) (notifier.Channel, error) {
	switch strings.ToLower(cfg.Notify.Channel) {
	case "email":
		s := cfg.Notify.SMTP
		return email.NewSender(email.Config{
			Host:        s.Host,
			Port:        s.Port,
			Username:    s.Username,
			Password:    s.Password,
			SenderEmail: s.SenderEmail,
			Recipients:  s.Recipients,
			Encryption:  s.Encryption,
		})
	case "telegram":
		return telegram.NewClient(telegram.Config{
			Token:  cfg.Notify.Telegram.Token,
			ChatID: cfg.Notify.Telegram.ChatID,
		})
	default:
		return nil, fmt.Errorf("unknown notification channel %q", cfg.Notify.Channel)
	}
}

// newMirror picks the remote state backup: Heroku config vars, then Redis.
// A mirror that cannot be reached is skipped; the local file still works.
func (a *App) newMirror(ctx context.Context) repositories.Mirror {
	st := a.Config.State
	switch {
	case st.Heroku.APIKey != "" && st.Heroku.AppName != "":
		a.Log.Info("State mirrored to Heroku config vars", zap.String("app_name", st.Heroku.AppName))
		return backup.NewHerokuMirror(st.Heroku.APIKey, st.Heroku.AppName)
	case st.Redis.Addr != "":
		client, err := backup.NewRedisClient(ctx, backup.RedisConfig{
			Addr:     st.Redis.Addr,
			Password: st.Redis.Password,
			DB:       st.Redis.DB,
		})
		if err != nil {
			a.Log.Warn("Redis mirror disabled", zap.Error(err))
			return nil
		}
		a.closers = append(a.closers, client.Close)
		a.Log.Info("State mirrored to Redis",
			zap.String("addr", st.Redis.Addr), zap.Int("db", st.Redis.DB), zap.String("key", st.Redis.Key))
		return backup.NewRedisMirror(client, st.Redis.Key)
	default:
		return nil
	}
}
