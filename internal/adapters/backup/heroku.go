// internal/adapters/backup/heroku.go
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	herokuAPI = "https://api.heroku.com"
	// StateConfigVar is the config var holding the state document.
	StateConfigVar = "STATE_JSON"
)

// HerokuMirror copies the state file into an app config var so it survives dyno restarts.
type HerokuMirror struct {
	apiKey  string
	app     string
	varName string
	baseURL string
	client  *http.Client
}

func NewHerokuMirror(apiKey, app string) *HerokuMirror {
	return &HerokuMirror{
		apiKey:  apiKey,
		app:     app,
		varName: StateConfigVar,
		baseURL: herokuAPI,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *HerokuMirror) Pull(ctx context.Context) ([]byte, error) {
	resp, err := h.do(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	vars := map[string]string{}
	if err := json.NewDecoder(resp.Body).Decode(&vars); err != nil {
		return nil, fmt.Errorf("heroku: decode config vars: %w", err)
	}
	raw := vars[h.varName]
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return []byte(raw), nil
}

func (h *HerokuMirror) Push(ctx context.Context, payload []byte) error {
	body, err := json.Marshal(map[string]string{h.varName: string(payload)})
	if err != nil {
		return fmt.Errorf("heroku: encode config vars: %w", err)
	}
	resp, err := h.do(ctx, http.MethodPatch, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (h *HerokuMirror) do(ctx context.Context, method string, body []byte) (*http.Response, error) {
	url := fmt.Sprintf("%s/apps/%s/config-vars", h.baseURL, h.app)
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("heroku: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Accept", "application/vnd.heroku+json; version=3")
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("heroku: %s config vars: %w", strings.ToLower(method), err)
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("heroku: %s config vars: status code %d", strings.ToLower(method), resp.StatusCode)
	}
	return resp, nil
}
