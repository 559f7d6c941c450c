/**
 * @description
 * Transformation of raw snapshot listings into canonical listing
 * documents. Snapshot attributes arrive as bare {defindex, float_value}
 * pairs and are resolved against the static attribute tables: spells,
 * paints, strange parts, killstreak sheens and effects.
 */

package snapshot

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/tf2-stack/listings-backend/internal/models"
	"github.com/tf2-stack/listings-backend/internal/tf2"
)

type snapshotResponse struct {
	Listings []snapshotListing `json:"listings"`
}

type snapshotListing struct {
	Intent     string                 `json:"intent"`
	SteamID    string                 `json:"steamid"`
	Bump       int64                  `json:"bump"`
	Timestamp  int64                  `json:"timestamp"`
	Details    string                 `json:"details"`
	Currencies map[string]float64     `json:"currencies"`
	Buyout     int                    `json:"buyout"`
	Offers     int                    `json:"offers"`
	UserAgent  map[string]interface{} `json:"userAgent"`
	Item       snapshotItem           `json:"item"`
}

type snapshotItem struct {
	ID         json.Number         `json:"id"`
	Attributes []snapshotAttribute `json:"attributes"`
}

type snapshotAttribute struct {
	Defindex   json.Number `json:"defindex"`
	FloatValue json.Number `json:"float_value"`
}

// formatListing builds the canonical document for one snapshot entry.
// Returns (nil, nil) for listings that are filtered out (priced in usd);
// an error means the listing is malformed and should be skipped.
func formatListing(l snapshotListing, appID int) (*models.ListingDoc, error) {
	if _, usd := l.Currencies["usd"]; usd {
		return nil, nil
	}

	id := l.Item.ID.String()
	if l.Intent != "sell" {
		id = fmt.Sprintf("buy_%d_%s", appID, l.SteamID)
	}

	doc := &models.ListingDoc{
		ID:                   id,
		Intent:               l.Intent,
		SteamID:              l.SteamID,
		Currencies:           l.Currencies,
		ListedAt:             l.Timestamp,
		BumpAt:               l.Bump,
		Details:              l.Details,
		BuyoutOnly:           l.Buyout != 0,
		TradeOffersPreferred: l.Offers != 0,
		UserAgent:            l.UserAgent,
	}

	for _, attr := range l.Item.Attributes {
		if err := applyAttribute(doc, attr); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func applyAttribute(doc *models.ListingDoc, attr snapshotAttribute) error {
	defindex, err := attr.Defindex.Int64()
	if err != nil {
		return fmt.Errorf("bad attribute defindex %q", attr.Defindex)
	}
	value, hasValue, err := attributeValue(attr.FloatValue)
	if err != nil {
		return fmt.Errorf("attribute %d: %w", defindex, err)
	}

	switch {
	case defindex >= 1004 && defindex <= 1009:
		// Spells without a float_value default to the base variant.
		if !hasValue {
			value = 1
		}
		name, ok := tf2.SpellNames[int(defindex)][value]
		if !ok {
			return fmt.Errorf("unknown spell %d:%d", defindex, value)
		}
		doc.Spells = append(doc.Spells, models.Spell{Defindex: int(defindex), ID: value, Name: name})

	case defindex == 142:
		name, ok := tf2.PaintNames[value]
		if !hasValue || !ok {
			return fmt.Errorf("unknown paint %d", value)
		}
		doc.Paint = &models.NamedAttribute{ID: value, Name: name}

	case defindex == 380 || defindex == 382 || defindex == 384:
		name, ok := tf2.StrangePartNames[value]
		if !hasValue || !ok {
			return fmt.Errorf("unknown strange part %d", value)
		}
		doc.StrangeParts = append(doc.StrangeParts, models.NamedAttribute{ID: value, Name: name})

	case defindex == 2013:
		name, ok := tf2.KillstreakerNames[value]
		if !hasValue || !ok {
			return fmt.Errorf("unknown killstreaker %d", value)
		}
		doc.Killstreaker = &models.NamedAttribute{ID: value, Name: name}

	case defindex == 2014:
		name, ok := tf2.SheenNames[value]
		if !hasValue || !ok {
			return fmt.Errorf("unknown sheen %d", value)
		}
		doc.Sheen = &models.NamedAttribute{ID: value, Name: name}
	}

	return nil
}

// attributeValue coerces a float_value to an integer table key. Whole
// floats collapse to ints; a missing value reports hasValue = false.
func attributeValue(n json.Number) (int, bool, error) {
	if n == "" {
		return 0, false, nil
	}
	if v, err := n.Int64(); err == nil {
		return int(v), true, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false, fmt.Errorf("bad float_value %q", n)
	}
	if f != math.Trunc(f) {
		return 0, false, fmt.Errorf("non-integral float_value %q", n)
	}
	return int(f), true, nil
}
