// internal/scraping/extractor/extractor.go
package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ps-vitor/crous-notifier/internal/domain"
)

// Selectors for the result cards. The markup is owned by the site; if it drifts
// cards are skipped rather than failing the crawl.
const (
	cardSelector    = "li.fr-col-lg-4"
	titleSelector   = "h3.fr-card__title a"
	addressSelector = "p.fr-card__desc"
	priceSelector   = ".fr-badges-group .fr-badge"
	imageSelector   = ".fr-card__img img.fr-responsive-img"
	loginSelector   = `a[href="/mse/discovery/connect"]`
)

var (
	pageCountRe     = regexp.MustCompile(`page \d+ sur (\d+)`)
	numberRe        = regexp.MustCompile(`\d+(?:\.\d+)?`)
	priceNormalizer = strings.NewReplacer("\u00a0", "", "\u202f", "", ",", ".")
)

// ParsePage extracts every well-formed listing card of one results page.
func ParsePage(doc *goquery.Document, baseURL string) ([]domain.Listing, []domain.ParseWarning) {
	var (
		listings []domain.Listing
		warnings []domain.ParseWarning
	)
	baseURL = strings.TrimRight(baseURL, "/")

	doc.Find(cardSelector).Each(func(i int, card *goquery.Selection) {
		title := card.Find(titleSelector).First()
		if title.Length() == 0 {
			warnings = append(warnings, domain.ParseWarning{Index: i, Reason: "missing title link"})
			return
		}
		href, _ := title.Attr("href")
		id := idFromHref(href)
		if id == "" {
			warnings = append(warnings, domain.ParseWarning{Index: i, Reason: "title link without path"})
			return
		}

		priceLabel := text(card.Find(priceSelector).First())
		listing := domain.Listing{
			ID:       id,
			Name:     text(title),
			Address:  text(card.Find(addressSelector).First()),
			Price:    priceLabel,
			PriceMin: ParsePrice(priceLabel),
			URL:      absolute(baseURL, href),
		}
		if src, ok := card.Find(imageSelector).First().Attr("src"); ok && src != "" {
			listing.ImageURL = absolute(baseURL, src)
		}
		listings = append(listings, listing)
	})

	return listings, warnings
}

// ParsePrice returns the lowest positive amount in a price label, or nil.
// "À partir de 300€" -> 300, "750,00 €" -> 750.
func ParsePrice(label string) *float64 {
	var (
		lowest float64
		found  bool
	)
	for _, tok := range numberRe.FindAllString(priceNormalizer.Replace(label), -1) {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || v <= 0 {
			continue
		}
		if !found || v < lowest {
			lowest, found = v, true
		}
	}
	if !found {
		return nil
	}
	return &lowest
}

// TotalPages reads "page X sur N" from the document title. Defaults to 1.
func TotalPages(doc *goquery.Document) int {
	m := pageCountRe.FindStringSubmatch(doc.Find("title").First().Text())
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// IsLoggedIn reports false when the page still offers the login link.
func IsLoggedIn(doc *goquery.Document) bool {
	return doc.Find(loginSelector).Length() == 0
}

// Cities returns the city of every card that has a parseable address.
func Cities(doc *goquery.Document) []string {
	var cities []string
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		if city, ok := domain.ExtractCity(text(card.Find(addressSelector).First())); ok {
			cities = append(cities, city)
		}
	})
	return cities
}

func idFromHref(href string) string {
	path := href
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return path
}

func absolute(baseURL, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return baseURL + ref
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
