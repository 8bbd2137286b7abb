// internal/scraping/collectors/crous/collector.go
package crous

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/ps-vitor/crous-notifier/internal/domain"
	"github.com/ps-vitor/crous-notifier/internal/scraping/extractor"
	"github.com/ps-vitor/crous-notifier/pkg/logger"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	acceptLanguage   = "fr-FR,fr;q=0.9"

	authExpiredAlert = "⚠️ <b>CROUS Notifier</b>: Login cookies have expired or are invalid.\n" +
		"Falling back to <b>anonymous mode</b> (fewer listings visible).\n\n" +
		"Export fresh cookies from the browser login to re-authenticate."
)

// CookieSource provides the cookies captured by the external login flow.
type CookieSource interface {
	Load() ([]*http.Cookie, error)
}

// Alerter delivers operator warnings, e.g. through the notification channel.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

type Config struct {
	BaseURL    string
	SearchPath string
	UserAgent  string
	UseAuth    bool
	Timeout    time.Duration
	// Politeness delay between page requests is drawn from [MinDelay, MaxDelay].
	MinDelay time.Duration
	MaxDelay time.Duration
	Filter   domain.FilterCriteria
}

// Collector crawls every results page of the search.
type Collector struct {
	cfg     Config
	cookies CookieSource
	alerter Alerter
	log     *logger.Logger

	mu       sync.Mutex
	degraded bool
	warned   bool
}

func NewCollector(cfg Config, cookies CookieSource, alerter Alerter, log *logger.Logger) *Collector {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Collector{
		cfg:     cfg,
		cookies: cookies,
		alerter: alerter,
		log:     log.Named("collector"),
	}
}

// Authenticated reports whether requests currently carry the login cookies.
func (p *Collector) Authenticated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.UseAuth && !p.degraded
}

// FetchAll returns the filtered listings of every results page.
// Any page failing aborts the whole crawl with a *domain.FetchError.
func (p *Collector) FetchAll(ctx context.Context) ([]domain.Listing, error) {
	var all []domain.Listing
	err := p.crawl(ctx, func(page int, doc *goquery.Document) {
		listings, warnings := extractor.ParsePage(doc, p.cfg.BaseURL)
		for _, w := range warnings {
			p.log.Debug("Skipping malformed card", zap.Int("page", page), zap.String("reason", w.Error()))
		}
		all = append(all, listings...)
	})
	if err != nil {
		return nil, err
	}

	filtered := p.cfg.Filter.Apply(all)
	p.log.Info("Fetched listings",
		zap.Int("scraped", len(all)),
		zap.Int("matching", len(filtered)),
		zap.Bool("authenticated", p.Authenticated()),
	)
	return filtered, nil
}

// Cities returns the sorted set of cities present on the site, ignoring filters.
func (p *Collector) Cities(ctx context.Context) ([]string, error) {
	set := make(map[string]struct{})
	err := p.crawl(ctx, func(_ int, doc *goquery.Document) {
		for _, city := range extractor.Cities(doc) {
			set[city] = struct{}{}
		}
	})
	if err != nil {
		return nil, err
	}
	cities := make([]string, 0, len(set))
	for city := range set {
		cities = append(cities, city)
	}
	sort.Strings(cities)
	return cities, nil
}

func (p *Collector) crawl(ctx context.Context, handle func(page int, doc *goquery.Document)) error {
	c, sink, withCookies, err := p.newCollector()
	if err != nil {
		return err
	}

	doc, err := p.fetchPage(c, sink, 1)
	if err != nil {
		return err
	}
	if withCookies {
		p.checkSession(ctx, doc)
	}

	total := extractor.TotalPages(doc)
	handle(1, doc)

	for page := 2; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return &domain.FetchError{Page: page, URL: p.pageURL(page), Err: err}
		}
		doc, err := p.fetchPage(c, sink, page)
		if err != nil {
			return err
		}
		handle(page, doc)
	}
	p.log.Debug("Crawl finished", zap.Int("pages", total))
	return nil
}

// pageSink receives the outcome of the request in flight. The collector is
// synchronous and pages are visited one at a time, so a single sink suffices.
type pageSink struct {
	body []byte
	err  error
}

// newCollector also reports whether login cookies were attached. Only then is
// the first page a meaningful session check.
func (p *Collector) newCollector() (*colly.Collector, *pageSink, bool, error) {
	c := colly.NewCollector(
		colly.UserAgent(p.cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(p.cfg.Timeout)

	if p.cfg.MaxDelay > 0 {
		// Randomised pause so requests do not follow a fixed rhythm.
		err := c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: 1,
			Delay:       p.cfg.MinDelay,
			RandomDelay: p.cfg.MaxDelay - p.cfg.MinDelay,
		})
		if err != nil {
			return nil, nil, false, fmt.Errorf("configure rate limit: %w", err)
		}
	}

	sink := &pageSink{}
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", acceptLanguage)
	})
	c.OnResponse(func(r *colly.Response) {
		sink.body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		sink.err = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	if p.Authenticated() {
		cookies, err := p.cookies.Load()
		if err != nil {
			p.log.Warn("Saved cookies unavailable, using anonymous mode for this cycle", zap.Error(err))
			return c, sink, false, nil
		}
		if err := c.SetCookies(p.cfg.BaseURL, cookies); err != nil {
			p.log.Warn("Could not attach saved cookies", zap.Error(err))
			return c, sink, false, nil
		}
		p.log.Debug("Using saved login cookies", zap.Int("count", len(cookies)))
		return c, sink, true, nil
	}
	return c, sink, false, nil
}

func (p *Collector) fetchPage(c *colly.Collector, sink *pageSink, page int) (*goquery.Document, error) {
	pageURL := p.pageURL(page)
	sink.body, sink.err = nil, nil

	if err := c.Visit(pageURL); err != nil && sink.err == nil {
		sink.err = err
	}
	c.Wait()

	if sink.err != nil {
		p.log.Error("Failed to fetch results page", zap.Int("page", page), zap.Error(sink.err))
		return nil, &domain.FetchError{Page: page, URL: pageURL, Err: sink.err}
	}
	if sink.body == nil {
		return nil, &domain.FetchError{Page: page, URL: pageURL, Err: fmt.Errorf("empty response")}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(sink.body))
	if err != nil {
		return nil, &domain.FetchError{Page: page, URL: pageURL, Err: fmt.Errorf("parse html: %w", err)}
	}
	return doc, nil
}

// checkSession degrades to anonymous mode for the rest of the process lifetime
// when the first page still offers the login link. The operator is warned once.
func (p *Collector) checkSession(ctx context.Context, doc *goquery.Document) {
	if !p.Authenticated() || extractor.IsLoggedIn(doc) {
		return
	}

	p.mu.Lock()
	p.degraded = true
	alert := !p.warned
	p.warned = true
	p.mu.Unlock()

	p.log.Warn("Cookies invalid, running in anonymous mode", zap.Error(domain.ErrAuthDegraded))
	if !alert || p.alerter == nil {
		return
	}
	if err := p.alerter.Alert(ctx, authExpiredAlert); err != nil {
		p.log.Error("Failed to send auth warning", zap.Error(err))
	}
}

func (p *Collector) pageURL(page int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	return p.cfg.BaseURL + p.cfg.SearchPath + "?" + q.Encode()
}
