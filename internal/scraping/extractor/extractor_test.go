package extractor

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "https://trouverunlogement.lescrous.fr"

const resultsPage = `<html><head><title>Résultats - page 1 sur 3</title></head><body>
<ul>
  <li class="fr-col-lg-4">
    <div class="fr-card">
      <h3 class="fr-card__title"><a href="/tools/42/accommodations/1234/">Résidence Lamartine</a></h3>
      <p class="fr-card__desc">12 Rue X, 47000 AGEN</p>
      <div class="fr-badges-group"><p class="fr-badge">À partir de 300€</p></div>
      <div class="fr-card__img"><img class="fr-responsive-img" src="/media/1234.jpg"></div>
    </div>
  </li>
  <li class="fr-col-lg-4">
    <div class="fr-card">
      <h3 class="fr-card__title"><a href="/tools/42/accommodations/5678">Résidence Cap</a></h3>
      <p class="fr-card__desc">3 avenue Y 33000   BORDEAUX</p>
      <div class="fr-badges-group"><p class="fr-badge">750,00&nbsp;€</p></div>
      <div class="fr-card__img"><img class="fr-responsive-img" src="https://cdn.example.org/5678.jpg"></div>
    </div>
  </li>
  <li class="fr-col-lg-4">
    <div class="fr-card"><p class="fr-card__desc">no title here 75001 PARIS</p></div>
  </li>
</ul>
<a href="/mse/discovery/connect">Se connecter</a>
</body></html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestParsePage(t *testing.T) {
	doc := mustDoc(t, resultsPage)

	listings, warnings := ParsePage(doc, base+"/")

	require.Len(t, listings, 2)
	require.Len(t, warnings, 1)
	assert.Equal(t, 2, warnings[0].Index)

	first := listings[0]
	assert.Equal(t, "1234", first.ID)
	assert.Equal(t, "Résidence Lamartine", first.Name)
	assert.Equal(t, "12 Rue X, 47000 AGEN", first.Address)
	assert.Equal(t, "À partir de 300€", first.Price)
	require.NotNil(t, first.PriceMin)
	assert.Equal(t, 300.0, *first.PriceMin)
	assert.Equal(t, base+"/tools/42/accommodations/1234/", first.URL)
	assert.Equal(t, base+"/media/1234.jpg", first.ImageURL)
	assert.Empty(t, first.FirstSeen)

	second := listings[1]
	assert.Equal(t, "5678", second.ID)
	require.NotNil(t, second.PriceMin)
	assert.Equal(t, 750.0, *second.PriceMin)
	assert.Equal(t, "https://cdn.example.org/5678.jpg", second.ImageURL)
}

func TestParsePage_SameListingSameID(t *testing.T) {
	a, _ := ParsePage(mustDoc(t, resultsPage), base)
	b, _ := ParsePage(mustDoc(t, resultsPage), base)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
	}
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		label string
		want  *float64
	}{
		{"750,00 €", ptr(750)},
		{"À partir de 300€", ptr(300)},
		{"De 250 € à 410 €", ptr(250)},
		{"1\u00a0200 €", ptr(1200)},
		{"1\u202f050,50 €", ptr(1050.5)},
		{"0 € - 95,50 €", ptr(95.5)},
		{"Prix sur demande", nil},
		{"", nil},
	}
	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			got := ParsePrice(tc.label)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tc.want, *got, 1e-9)
		})
	}
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 3, TotalPages(mustDoc(t, resultsPage)))
	assert.Equal(t, 1, TotalPages(mustDoc(t, `<html><head><title>Recherche</title></head></html>`)))
	assert.Equal(t, 1, TotalPages(mustDoc(t, `<html><body></body></html>`)))
}

func TestIsLoggedIn(t *testing.T) {
	assert.False(t, IsLoggedIn(mustDoc(t, resultsPage)))
	assert.True(t, IsLoggedIn(mustDoc(t, `<html><body><a href="/mse/logout">Déconnexion</a></body></html>`)))
}

func TestCities(t *testing.T) {
	assert.Equal(t, []string{"AGEN", "BORDEAUX", "PARIS"}, Cities(mustDoc(t, resultsPage)))
}

func TestIDFromHref(t *testing.T) {
	assert.Equal(t, "1234", idFromHref("/tools/42/accommodations/1234/"))
	assert.Equal(t, "1234", idFromHref("https://host/a/1234?x=1"))
	assert.Equal(t, "", idFromHref(""))
	assert.Equal(t, "", idFromHref("/"))
}

func ptr(v float64) *float64 { return &v }
