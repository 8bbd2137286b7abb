package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ps-vitor/crous-notifier/internal/domain"
)

func TestDecodeState(t *testing.T) {
	set, format, err := decodeState([]byte(" [\"a\"] "))
	require.NoError(t, err)
	assert.Equal(t, formatLegacyList, format)
	assert.Equal(t, knownSet{"a": {ID: "a"}}, set)

	set, format, err = decodeState([]byte(`{"b": {"name": "B"}}`))
	require.NoError(t, err)
	assert.Equal(t, formatMapping, format)
	assert.Equal(t, knownSet{"b": {ID: "b", Name: "B"}}, set)

	set, _, err = decodeState(nil)
	require.NoError(t, err)
	assert.Empty(t, set)

	_, _, err = decodeState([]byte(`"nope"`))
	assert.Error(t, err)
}

func TestEncodeState_KeepsHTMLAndUnicode(t *testing.T) {
	price := 300.0
	raw, err := encodeState(knownSet{"1": {ID: "1", Name: "Résidence <A&B>", PriceMin: &price}})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"Résidence <A&B>"`)
	assert.Contains(t, string(raw), `"price_min": 300`)

	decoded, _, err := decodeState(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.Listing{ID: "1", Name: "Résidence <A&B>", PriceMin: &price}, decoded["1"])
}
