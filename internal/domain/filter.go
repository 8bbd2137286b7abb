// internal/domain/filter.go
package domain

import "strings"

// FilterCriteria is built once per process from configuration and never mutated.
type FilterCriteria struct {
	// Locations holds upper-cased substrings matched against the address. Empty matches all.
	Locations []string
	// MaxPrice is the inclusive price ceiling. Nil means unbounded.
	MaxPrice *int
}

// NewFilterCriteria normalises locations (trim, upper-case, drop blanks).
func NewFilterCriteria(locations []string, maxPrice *int) FilterCriteria {
	locs := make([]string, 0, len(locations))
	for _, loc := range locations {
		loc = strings.ToUpper(strings.TrimSpace(loc))
		if loc != "" {
			locs = append(locs, loc)
		}
	}
	return FilterCriteria{Locations: locs, MaxPrice: maxPrice}
}

func (f FilterCriteria) Matches(l Listing) bool {
	return f.matchesLocation(l) && f.matchesPrice(l)
}

func (f FilterCriteria) matchesLocation(l Listing) bool {
	if len(f.Locations) == 0 {
		return true
	}
	addr := strings.ToUpper(l.Address)
	for _, loc := range f.Locations {
		if strings.Contains(addr, loc) {
			return true
		}
	}
	return false
}

// A listing whose price could not be parsed is kept.
func (f FilterCriteria) matchesPrice(l Listing) bool {
	if f.MaxPrice == nil || l.PriceMin == nil {
		return true
	}
	return *l.PriceMin <= float64(*f.MaxPrice)
}

// Apply returns the listings accepted by the criteria, preserving order.
func (f FilterCriteria) Apply(listings []Listing) []Listing {
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if f.Matches(l) {
			out = append(out, l)
		}
	}
	return out
}
