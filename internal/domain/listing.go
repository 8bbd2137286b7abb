// internal/domain/listing.go
package domain

import (
	"regexp"
	"strings"
	"time"
)

// FirstSeenLayout is the ISO-8601 layout (seconds precision) used for Listing.FirstSeen.
const FirstSeenLayout = "2006-01-02T15:04:05"

var postalCodeRe = regexp.MustCompile(`\d{5}\s+`)

// Listing is one housing unit scraped from the results pages.
// ID is the last path segment of the listing's canonical URL and is stable across runs.
type Listing struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Address   string   `json:"address,omitempty"`
	Price     string   `json:"price,omitempty"`
	PriceMin  *float64 `json:"price_min,omitempty"`
	URL       string   `json:"url,omitempty"`
	ImageURL  string   `json:"image_url,omitempty"`
	FirstSeen string   `json:"first_seen,omitempty"`
}

// Placeholder returns a record that only carries the ID. Used for known IDs
// that have no full record, e.g. after the legacy list layout was upgraded.
func Placeholder(id string) Listing {
	return Listing{ID: id}
}

// City extracts the city name from the address ("12 Rue X, 47000 AGEN" -> "AGEN").
func (l Listing) City() (string, bool) {
	return ExtractCity(l.Address)
}

// ExtractCity returns whatever follows the last five-digit postal code and whitespace.
func ExtractCity(address string) (string, bool) {
	address = strings.TrimSpace(address)
	locs := postalCodeRe.FindAllStringIndex(address, -1)
	if len(locs) == 0 {
		return "", false
	}
	city := strings.TrimSpace(address[locs[len(locs)-1][1]:])
	return city, city != ""
}

// StampNow formats t the way FirstSeen is stored.
func StampNow(t time.Time) string {
	return t.Format(FirstSeenLayout)
}

// IDs returns the listing IDs in order, skipping duplicates.
func IDs(listings []Listing) []string {
	seen := make(map[string]struct{}, len(listings))
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		if _, ok := seen[l.ID]; ok {
			continue
		}
		seen[l.ID] = struct{}{}
		ids = append(ids, l.ID)
	}
	return ids
}
