// internal/session/cookies.go
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrNoCookies is returned when neither the cookie file nor the env fallback exist.
var ErrNoCookies = errors.New("no saved login cookies")

// browserCookie is the shape written by the browser login flow.
type browserCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
}

// Store reads login cookies produced elsewhere. It never writes them back,
// except to restore the file from its env-var copy on ephemeral hosts.
type Store struct {
	Path     string
	Fallback string
}

func NewStore(path, fallback string) *Store {
	return &Store{Path: path, Fallback: strings.TrimSpace(fallback)}
}

// Load returns the saved cookies.
func (s *Store) Load() ([]*http.Cookie, error) {
	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoCookies
		}
		return nil, fmt.Errorf("read cookies %s: %w", s.Path, err)
	}
	return Parse(raw)
}

// Parse decodes a browser cookie export.
func Parse(raw []byte) ([]*http.Cookie, error) {
	var exported []browserCookie
	if err := json.Unmarshal(raw, &exported); err != nil {
		return nil, fmt.Errorf("decode cookies: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(exported))
	for _, c := range exported {
		if c.Name == "" {
			continue
		}
		cookie := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HttpOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			cookie.Expires = time.Unix(int64(c.Expires), 0)
		}
		cookies = append(cookies, cookie)
	}
	if len(cookies) == 0 {
		return nil, ErrNoCookies
	}
	return cookies, nil
}

func (s *Store) ensureFile() error {
	if _, err := os.Stat(s.Path); err == nil || s.Fallback == "" {
		return nil
	}
	if err := os.WriteFile(s.Path, []byte(s.Fallback), 0o600); err != nil {
		return fmt.Errorf("restore cookies %s: %w", s.Path, err)
	}
	return nil
}
