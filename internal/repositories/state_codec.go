// internal/repositories/state_codec.go
package repositories

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ps-vitor/crous-notifier/internal/domain"
)

// Known state document shapes. A future change of layout must get a new
// version and an upgrade step in decodeState; new shapes should be an object
// carrying a "version" field so they cannot be mistaken for formatMapping.
type formatVersion int

const (
	// formatLegacyList is a bare JSON array of listing IDs.
	formatLegacyList formatVersion = iota
	// formatMapping is a JSON object of listing ID -> listing record. Current format.
	formatMapping
)

type knownSet map[string]domain.Listing

// decodeState detects the document shape and upgrades it to the current one.
func decodeState(raw []byte) (knownSet, formatVersion, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return knownSet{}, formatMapping, nil
	}

	switch trimmed[0] {
	case '[':
		var ids []string
		if err := json.Unmarshal(trimmed, &ids); err != nil {
			return nil, formatLegacyList, fmt.Errorf("decode legacy id list: %w", err)
		}
		return upgradeLegacyList(ids), formatLegacyList, nil
	case '{':
		set := knownSet{}
		if err := json.Unmarshal(trimmed, &set); err != nil {
			return nil, formatMapping, fmt.Errorf("decode listing map: %w", err)
		}
		for id, l := range set {
			// the key is authoritative
			l.ID = id
			set[id] = l
		}
		return set, formatMapping, nil
	default:
		return nil, formatMapping, fmt.Errorf("unrecognised state document")
	}
}

func upgradeLegacyList(ids []string) knownSet {
	set := make(knownSet, len(ids))
	for _, id := range ids {
		set[id] = domain.Placeholder(id)
	}
	return set
}

func encodeState(set knownSet) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
